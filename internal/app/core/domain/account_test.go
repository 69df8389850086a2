package domain

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T, b *Bank, name string, units int64) *Account {
	t.Helper()
	acc, err := b.CreateAccount(name, WithInitialDeposit(NewAmount(units)))
	require.NoError(t, err)
	return acc
}

func TestDeposit(t *testing.T) {
	b := NewBank()
	charlie := newTestAccount(t, b, "Charlie", 0)

	receipt, err := charlie.Deposit(NewAmount(250))
	require.NoError(t, err)
	assert.Equal(t, NewAmount(250), charlie.Balance())

	history := charlie.History()
	require.Len(t, history, 1)
	rec, ok := history[0].(DepositRecord)
	require.True(t, ok, "want DepositRecord, got %T", history[0])
	assert.Equal(t, NewAmount(250), rec.Amount)
	assert.False(t, rec.CreatedAt.IsZero())

	require.Len(t, receipt.Postings, 1)
	assert.Equal(t, charlie.ID(), receipt.Postings[0].AccountID)
	assert.Equal(t, NewAmount(250), receipt.Postings[0].Balance)
}

func TestDepositInvalidAmount(t *testing.T) {
	b := NewBank()
	acc := newTestAccount(t, b, "A", 100)

	for _, amt := range []Amount{0, -1, NewAmount(-50)} {
		_, err := acc.Deposit(amt)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Equal(t, NewAmount(100), acc.Balance())
	assert.Empty(t, acc.History())
}

func TestWithdraw(t *testing.T) {
	b := NewBank()
	acc := newTestAccount(t, b, "Bob", 500)

	_, err := acc.Withdraw(NewAmount(100))
	require.NoError(t, err)
	assert.Equal(t, NewAmount(400), acc.Balance())

	history := acc.History()
	require.Len(t, history, 1)
	assert.Equal(t, TransactionTypeWithdraw, history[0].Type())
	assert.Equal(t, NewAmount(100), history[0].Header().Amount)

	t.Run("exact balance", func(t *testing.T) {
		_, err := acc.Withdraw(NewAmount(400))
		require.NoError(t, err)
		assert.Equal(t, Amount(0), acc.Balance())
	})
}

func TestWithdrawRefused(t *testing.T) {
	b := NewBank()
	alice := newTestAccount(t, b, "Alice", 1000)

	_, err := alice.Withdraw(NewAmount(2000))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, FailureInsufficientFunds, FailureKindOf(err))

	_, err = alice.Withdraw(0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = alice.Withdraw(-5)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Equal(t, NewAmount(1000), alice.Balance())
	assert.Empty(t, alice.History())
}

func TestTransfer(t *testing.T) {
	b := NewBank()
	alice := newTestAccount(t, b, "Alice", 1000)
	bob := newTestAccount(t, b, "Bob", 500)

	_, err := alice.Withdraw(NewAmount(2000))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, NewAmount(1000), alice.Balance())

	receipt, err := alice.Transfer(NewAmount(300), bob)
	require.NoError(t, err)
	assert.Equal(t, NewAmount(700), alice.Balance())
	assert.Equal(t, NewAmount(800), bob.Balance())

	aliceHistory := alice.History()
	require.Len(t, aliceHistory, 1)
	out, ok := aliceHistory[0].(TransferRecord)
	require.True(t, ok)
	assert.Equal(t, NewAmount(300), out.Amount)
	assert.Equal(t, "Bob", out.To)
	assert.Equal(t, bob.ID(), out.ToID)

	bobHistory := bob.History()
	require.Len(t, bobHistory, 1)
	in, ok := bobHistory[0].(ReceivedRecord)
	require.True(t, ok)
	assert.Equal(t, NewAmount(300), in.Amount)
	assert.Equal(t, "Alice", in.From)
	assert.Equal(t, alice.ID(), in.FromID)

	assert.Equal(t, out.TransactionID, in.TransactionID)

	require.Len(t, receipt.Postings, 2)
	assert.Equal(t, alice.ID(), receipt.Postings[0].AccountID)
	assert.Equal(t, NewAmount(700), receipt.Postings[0].Balance)
	assert.Equal(t, bob.ID(), receipt.Postings[1].AccountID)
	assert.Equal(t, NewAmount(800), receipt.Postings[1].Balance)
}

func TestTransferRefusedLeavesBothAccountsUntouched(t *testing.T) {
	b := NewBank()
	alice := newTestAccount(t, b, "Alice", 100)
	bob := newTestAccount(t, b, "Bob", 100)

	cases := []struct {
		name      string
		amount    Amount
		recipient *Account
		want      error
	}{
		{"zero amount", 0, bob, ErrInvalidAmount},
		{"negative amount", NewAmount(-1), bob, ErrInvalidAmount},
		{"insufficient funds", NewAmount(101), bob, ErrInsufficientFunds},
		{"self transfer", NewAmount(1), alice, ErrInvalidOperation},
		{"nil recipient", NewAmount(1), nil, ErrInvalidOperation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := alice.Transfer(tc.amount, tc.recipient)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, NewAmount(100), alice.Balance())
			assert.Equal(t, NewAmount(100), bob.Balance())
			assert.Empty(t, alice.History())
			assert.Empty(t, bob.History())
		})
	}
}

func TestDepositThenWithdrawRestoresBalance(t *testing.T) {
	b := NewBank()
	acc := newTestAccount(t, b, "A", 40)

	_, err := acc.Deposit(NewAmount(15))
	require.NoError(t, err)
	_, err = acc.Withdraw(NewAmount(15))
	require.NoError(t, err)

	assert.Equal(t, NewAmount(40), acc.Balance())
	assert.Len(t, acc.History(), 2)
}

func TestHistoryIsACopy(t *testing.T) {
	b := NewBank()
	acc := newTestAccount(t, b, "A", 0)
	_, err := acc.Deposit(NewAmount(1))
	require.NoError(t, err)

	history := acc.History()
	history[0] = WithdrawalRecord{}
	assert.Equal(t, TransactionTypeDeposit, acc.History()[0].Type())
}

// TestBalanceMatchesHistory 隨機操作後，每一步都檢查餘額等於開戶金額加上紀錄總和
func TestBalanceMatchesHistory(t *testing.T) {
	b := NewBank()
	accounts := []*Account{
		newTestAccount(t, b, "A", 1000),
		newTestAccount(t, b, "B", 500),
		newTestAccount(t, b, "C", 0),
	}
	rng := rand.New(rand.NewSource(42))

	for range 500 {
		acc := accounts[rng.Intn(len(accounts))]
		amount := Amount(rng.Int63n(int64(NewAmount(400)))) - NewAmount(50)

		before := acc.Balance()
		beforeLen := len(acc.History())

		var err error
		switch rng.Intn(3) {
		case 0:
			_, err = acc.Deposit(amount)
		case 1:
			_, err = acc.Withdraw(amount)
		case 2:
			_, err = acc.Transfer(amount, accounts[rng.Intn(len(accounts))])
		}
		if err != nil {
			assert.Equal(t, before, acc.Balance())
			assert.Equal(t, beforeLen, len(acc.History()))
		}

		for _, a := range accounts {
			require.NoError(t, a.Verify())
			require.GreaterOrEqual(t, a.Balance(), Amount(0))
		}
	}
}

func TestConcurrentTransfersPreserveTotal(t *testing.T) {
	b := NewBank()
	a1 := newTestAccount(t, b, "A", 1000)
	a2 := newTestAccount(t, b, "B", 1000)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for range n {
		go func() {
			defer wg.Done()
			_, err := a1.Transfer(NewAmount(1), a2)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := a2.Transfer(NewAmount(1), a1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, NewAmount(2000), a1.Balance()+a2.Balance())
	assert.Len(t, a1.History(), 2*n)
	assert.Len(t, a2.History(), 2*n)
	assert.NoError(t, b.Audit())
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	b := NewBank()
	acc := newTestAccount(t, b, "A", 50)

	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			if _, err := acc.Withdraw(NewAmount(1)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)
	assert.Equal(t, Amount(0), acc.Balance())
	assert.NoError(t, acc.Verify())
}

func TestDepositRefusesBalanceOverflow(t *testing.T) {
	b := NewBank()
	acc, err := b.CreateAccount("Whale", WithInitialDeposit(MaxAmount))
	require.NoError(t, err)

	_, err = acc.Deposit(NewAmount(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, MaxAmount, acc.Balance())
	assert.Empty(t, acc.History())

	near, err := b.CreateAccount("Near", WithInitialDeposit(MaxAmount-1))
	require.NoError(t, err)
	_, err = near.Deposit(1)
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, near.Balance())
	_, err = near.Deposit(1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Len(t, near.History(), 1)
	require.NoError(t, b.Audit())
}

func TestTransferRefusesRecipientOverflow(t *testing.T) {
	b := NewBank()
	full, err := b.CreateAccount("Full", WithInitialDeposit(MaxAmount-NewAmount(1)))
	require.NoError(t, err)
	bob := newTestAccount(t, b, "Bob", 500)

	_, err = bob.Transfer(NewAmount(2), full)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, MaxAmount-NewAmount(1), full.Balance())
	assert.Equal(t, NewAmount(500), bob.Balance())
	assert.Empty(t, full.History())
	assert.Empty(t, bob.History())

	_, err = bob.Transfer(NewAmount(1), full)
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, full.Balance())
	assert.Equal(t, NewAmount(499), bob.Balance())
	require.NoError(t, b.Audit())
}

func TestPostingPositionFollowsHistory(t *testing.T) {
	b := NewBank()
	alice, err := b.CreateAccount("Alice", WithInitialDeposit(NewAmount(1000)))
	require.NoError(t, err)
	bob, err := b.CreateAccount("Bob")
	require.NoError(t, err)

	r, err := alice.Deposit(NewAmount(1))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Postings[0].Position)

	r, err = alice.Transfer(NewAmount(100), bob)
	require.NoError(t, err)
	require.Len(t, r.Postings, 2)
	assert.Equal(t, 2, r.Postings[0].Position)
	assert.Equal(t, 1, r.Postings[1].Position)

	_, err = alice.Withdraw(NewAmount(5000))
	require.Error(t, err)
	r, err = alice.Withdraw(NewAmount(1))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Postings[0].Position)
	assert.Len(t, alice.History(), r.Postings[0].Position)
}
