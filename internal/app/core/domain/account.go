package domain

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Account 帳戶，持有自己的餘額與交易紀錄
//
// 結構:
//
//	id: 穩定且唯一的帳戶 ID (名稱不保證唯一，所以比較、排序、查詢都用 ID)
//	name: 帳戶名稱，建立後不可變
//	opening: 開戶金額
//	balance: 目前餘額
//	history: 交易紀錄，只能附加，順序即時間順序
//	mu: 保護 balance 與 history
type Account struct {
	id      uuid.UUID
	name    string
	opening Amount
	clock   func() time.Time

	mu      sync.Mutex
	balance Amount
	history []TransactionRecord
}

// AccountSnapshot 帳戶某一時間點的狀態 (值拷貝)
type AccountSnapshot struct {
	ID      uuid.UUID
	Name    string
	Balance Amount
	Records int
}

func newAccount(id uuid.UUID, name string, opening Amount, clock func() time.Time) *Account {
	return &Account{
		id:      id,
		name:    name,
		opening: opening,
		clock:   clock,
		balance: opening,
	}
}

// ID 帳戶 ID
func (a *Account) ID() uuid.UUID {
	return a.id
}

// Name 帳戶名稱
func (a *Account) Name() string {
	return a.name
}

// OpeningBalance 開戶金額
func (a *Account) OpeningBalance() Amount {
	return a.opening
}

// Balance 取得目前餘額 (checkBalance)，不改變任何狀態
func (a *Account) Balance() Amount {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// History 回傳交易紀錄的拷貝，依時間順序
func (a *Account) History() []TransactionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]TransactionRecord, len(a.history))
	copy(out, a.history)
	return out
}

// Snapshot 回傳帳戶目前狀態
func (a *Account) Snapshot() AccountSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AccountSnapshot{
		ID:      a.id,
		Name:    a.name,
		Balance: a.balance,
		Records: len(a.history),
	}
}

// Deposit 存款
//
// 參數:
//
//	amount: 存款金額，必須 > 0
//
// 回傳:
//
//	Receipt: 寫入的紀錄與存款後餘額
//	error: ErrInvalidAmount，包含入帳後超出 Amount 範圍的情況 (不會改變任何狀態)
func (a *Account) Deposit(amount Amount) (Receipt, error) {
	if amount <= 0 {
		return Receipt{}, ErrInvalidAmount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkCredit(amount); err != nil {
		return Receipt{}, err
	}

	rec := DepositRecord{RecordHeader: a.header(uuid.New(), amount)}
	a.balance += amount
	a.history = append(a.history, rec)
	return Receipt{Postings: []Posting{a.posting(rec)}}, nil
}

// Withdraw 提款
//
// 參數:
//
//	amount: 提款金額，必須 > 0 且不可超過餘額
//
// 回傳:
//
//	Receipt: 寫入的紀錄與提款後餘額
//	error: ErrInvalidAmount 或 ErrInsufficientFunds (不會改變任何狀態)
func (a *Account) Withdraw(amount Amount) (Receipt, error) {
	if amount <= 0 {
		return Receipt{}, ErrInvalidAmount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if amount > a.balance {
		return Receipt{}, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, a.balance, amount)
	}

	rec := WithdrawalRecord{RecordHeader: a.header(uuid.New(), amount)}
	a.balance -= amount
	a.history = append(a.history, rec)
	return Receipt{Postings: []Posting{a.posting(rec)}}, nil
}

// Transfer 轉帳給另一個帳戶
//
// 兩個帳戶的鎖依 ID 順序取得以避免死鎖，扣款與入帳在同一個臨界區完成，
// 不會出現只成功一邊的情況。
//
// 參數:
//
//	amount: 轉帳金額，必須 > 0 且不可超過付款方餘額
//	recipient: 收款帳戶，不可為 nil 或自己
//
// 回傳:
//
//	Receipt: 兩筆紀錄 (付款方在前，收款方在後)
//	error: ErrInvalidAmount (含收款方入帳溢位), ErrInvalidOperation 或 ErrInsufficientFunds (兩邊都不會變動)
func (a *Account) Transfer(amount Amount, recipient *Account) (Receipt, error) {
	if amount <= 0 {
		return Receipt{}, ErrInvalidAmount
	}
	if recipient == nil {
		return Receipt{}, fmt.Errorf("%w: recipient is required", ErrInvalidOperation)
	}
	if recipient == a || recipient.id == a.id {
		return Receipt{}, fmt.Errorf("%w: cannot transfer to the same account", ErrInvalidOperation)
	}

	unlock := lockPair(a, recipient)
	defer unlock()

	if amount > a.balance {
		return Receipt{}, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, a.balance, amount)
	}
	if err := recipient.checkCredit(amount); err != nil {
		return Receipt{}, err
	}

	txID := uuid.New()
	out := TransferRecord{RecordHeader: a.header(txID, amount), To: recipient.name, ToID: recipient.id}
	in := ReceivedRecord{RecordHeader: out.RecordHeader, From: a.name, FromID: a.id}

	a.balance -= amount
	a.history = append(a.history, out)
	recipient.balance += amount
	recipient.history = append(recipient.history, in)

	return Receipt{Postings: []Posting{a.posting(out), recipient.posting(in)}}, nil
}

// Verify 檢查餘額 == 開戶金額 + 所有紀錄的有號金額
func (a *Account) Verify() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	expected := a.opening
	for _, rec := range a.history {
		expected += SignedAmount(rec)
	}
	if expected != a.balance {
		return fmt.Errorf("%w: account %s balance %s, history sums to %s", ErrLedgerMismatch, a.id, a.balance, expected)
	}
	return nil
}

// checkCredit 入帳後餘額不可超過 MaxAmount，需持有 a.mu
func (a *Account) checkCredit(amount Amount) error {
	if amount > MaxAmount-a.balance {
		return fmt.Errorf("%w: crediting %s to account %s would exceed the maximum balance %s (balance %s)",
			ErrInvalidAmount, amount, a.id, MaxAmount, a.balance)
	}
	return nil
}

// header 需持有 a.mu
func (a *Account) header(txID uuid.UUID, amount Amount) RecordHeader {
	return RecordHeader{
		TransactionID: txID,
		Amount:        amount,
		CreatedAt:     a.clock(),
	}
}

// posting 需持有 a.mu，且 rec 已附加到 history
func (a *Account) posting(rec TransactionRecord) Posting {
	return Posting{
		AccountID:   a.id,
		AccountName: a.name,
		Record:      rec,
		Balance:     a.balance,
		Position:    len(a.history),
	}
}

// lockPair 依帳戶 ID 的固定順序鎖定兩個帳戶，回傳解鎖函式
func lockPair(x, y *Account) (unlock func()) {
	first, second := x, y
	if bytes.Compare(x.id[:], y.id[:]) > 0 {
		first, second = y, x
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}
