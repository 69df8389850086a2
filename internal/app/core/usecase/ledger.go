package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
)

// Teller 是銀行操作的介面，in-process 的 BankUseCase 與 gRPC Client 都實作它
type Teller interface {
	// CreateAccount 開戶
	CreateAccount(ctx context.Context, name string, initialDeposit domain.Amount) (domain.AccountSnapshot, error)
	// Deposit 存款，回傳存款後餘額
	Deposit(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error)
	// Withdraw 提款，回傳提款後餘額
	Withdraw(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error)
	// Transfer 轉帳，回傳付款方餘額
	Transfer(ctx context.Context, fromID, toID uuid.UUID, amount domain.Amount) (domain.Amount, error)
	// GetAccountBalance 取得帳戶餘額
	GetAccountBalance(ctx context.Context, accountID uuid.UUID) (domain.Amount, error)
	// History 取得帳戶交易紀錄
	History(ctx context.Context, accountID uuid.UUID) ([]domain.TransactionRecord, error)
	// ListAccounts 依建立順序列出所有帳戶
	ListAccounts(ctx context.Context) ([]domain.AccountSnapshot, error)
}

// Journal 接收已完成的 Posting，作為稽核紀錄 (只寫不讀回)
type Journal interface {
	Append(ctx context.Context, postings ...domain.Posting) error
}
