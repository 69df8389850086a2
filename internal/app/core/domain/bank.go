package domain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Bank 帳戶的註冊表與工廠
//
// Bank 只負責建立與查詢帳戶，存提款與轉帳直接呼叫 Account 的方法。
type Bank struct {
	mu       sync.RWMutex
	accounts []*Account
	byID     map[uuid.UUID]*Account

	newID func() uuid.UUID
	clock func() time.Time
}

// BankOption 定義了 Bank 的配置選項函數
type BankOption func(*Bank)

// WithClock 設定紀錄時間的來源 (測試用)
func WithClock(clock func() time.Time) BankOption {
	return func(b *Bank) {
		b.clock = clock
	}
}

// WithIDGenerator 設定帳戶 ID 的產生方式
func WithIDGenerator(newID func() uuid.UUID) BankOption {
	return func(b *Bank) {
		b.newID = newID
	}
}

// NewBank 建立空白銀行
func NewBank(opts ...BankOption) *Bank {
	b := &Bank{
		byID:  make(map[uuid.UUID]*Account),
		newID: uuid.New,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type accountOptions struct {
	initialDeposit Amount
}

// AccountOption 定義了 CreateAccount 的選項
type AccountOption func(*accountOptions)

// WithInitialDeposit 設定開戶金額 (預設 0)
func WithInitialDeposit(amount Amount) AccountOption {
	return func(o *accountOptions) {
		o.initialDeposit = amount
	}
}

// CreateAccount 建立新帳戶並加入註冊表
//
// 參數:
//
//	name: 帳戶名稱 (不檢查是否重複或空白)
//	opts: WithInitialDeposit 設定開戶金額
//
// 回傳:
//
//	*Account: 新帳戶
//	error: 開戶金額為負數時回傳 ErrInvalidAmount
func (b *Bank) CreateAccount(name string, opts ...AccountOption) (*Account, error) {
	var o accountOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.initialDeposit < 0 {
		return nil, fmt.Errorf("%w: initial deposit %s", ErrInvalidAmount, o.initialDeposit)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.newID()
	if _, exists := b.byID[id]; exists {
		return nil, fmt.Errorf("%w: duplicate account id %s", ErrInvalidOperation, id)
	}
	acc := newAccount(id, name, o.initialDeposit, b.clock)
	b.accounts = append(b.accounts, acc)
	b.byID[id] = acc
	return acc, nil
}

// Account 依 ID 查詢帳戶
func (b *Bank) Account(id uuid.UUID) (*Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	acc, ok := b.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return acc, nil
}

// Accounts 依建立順序回傳所有帳戶
func (b *Bank) Accounts() []*Account {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Account, len(b.accounts))
	copy(out, b.accounts)
	return out
}

// Len 帳戶數量
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.accounts)
}

// Audit 檢查所有帳戶的餘額與交易紀錄是否一致
func (b *Bank) Audit() error {
	var errs []error
	for _, acc := range b.Accounts() {
		if err := acc.Verify(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
