package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
)

// BankUseCase 是核心業務邏輯層
//
// 以帳戶 ID 操作 domain.Bank，並負責 log、metrics 與稽核 Journal。
type BankUseCase struct {
	bank    *domain.Bank
	logger  *zap.Logger
	metrics *metrics
	journal Journal
}

// Option 定義了 BankUseCase 的配置選項函數
type Option func(*options)

type options struct {
	logger        *zap.Logger
	meterProvider metric.MeterProvider
	journal       Journal
}

// WithLogger 設定 logger (預設 zap.NewNop)
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeterProvider 設定 metrics 來源 (預設 noop)
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = provider
	}
}

// WithJournal 設定稽核 Journal (預設不寫)
func WithJournal(journal Journal) Option {
	return func(o *options) {
		o.journal = journal
	}
}

// NewBankUseCase 建立 BankUseCase
//
// 參數:
//
//	bank: 帳戶註冊表
//	opts: logger / metrics / journal 選項
//
// 回傳:
//
//	*BankUseCase: BankUseCase 實例
//	error: metrics 初始化錯誤
func NewBankUseCase(bank *domain.Bank, opts ...Option) (*BankUseCase, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	m, err := newMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}
	return &BankUseCase{
		bank:    bank,
		logger:  o.logger,
		metrics: m,
		journal: o.journal,
	}, nil
}

// CreateAccount 開戶
func (c *BankUseCase) CreateAccount(ctx context.Context, name string, initialDeposit domain.Amount) (domain.AccountSnapshot, error) {
	acc, err := c.bank.CreateAccount(name, domain.WithInitialDeposit(initialDeposit))
	c.metrics.record(ctx, opCreateAccount, initialDeposit, err)
	if err != nil {
		c.logger.Warn("create account refused",
			zap.String("name", name),
			zap.Stringer("initial_deposit", initialDeposit),
			zap.Error(err))
		return domain.AccountSnapshot{}, err
	}
	c.logger.Info("account created",
		zap.Stringer("account_id", acc.ID()),
		zap.String("name", name),
		zap.Stringer("initial_deposit", initialDeposit))
	return acc.Snapshot(), nil
}

// Deposit 存款
func (c *BankUseCase) Deposit(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error) {
	acc, err := c.bank.Account(accountID)
	if err != nil {
		c.metrics.record(ctx, opDeposit, amount, err)
		return 0, err
	}
	receipt, err := acc.Deposit(amount)
	return c.complete(ctx, opDeposit, acc, amount, receipt, err)
}

// Withdraw 提款
func (c *BankUseCase) Withdraw(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error) {
	acc, err := c.bank.Account(accountID)
	if err != nil {
		c.metrics.record(ctx, opWithdraw, amount, err)
		return 0, err
	}
	receipt, err := acc.Withdraw(amount)
	return c.complete(ctx, opWithdraw, acc, amount, receipt, err)
}

// Transfer 轉帳，回傳付款方餘額
func (c *BankUseCase) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount domain.Amount) (domain.Amount, error) {
	from, err := c.bank.Account(fromID)
	if err != nil {
		c.metrics.record(ctx, opTransfer, amount, err)
		return 0, err
	}
	to, err := c.bank.Account(toID)
	if err != nil {
		c.metrics.record(ctx, opTransfer, amount, err)
		return 0, err
	}
	receipt, err := from.Transfer(amount, to)
	return c.complete(ctx, opTransfer, from, amount, receipt, err)
}

// GetAccountBalance 取得帳戶餘額
func (c *BankUseCase) GetAccountBalance(ctx context.Context, accountID uuid.UUID) (domain.Amount, error) {
	acc, err := c.bank.Account(accountID)
	if err != nil {
		return 0, err
	}
	return acc.Balance(), nil
}

// History 取得帳戶交易紀錄
func (c *BankUseCase) History(ctx context.Context, accountID uuid.UUID) ([]domain.TransactionRecord, error) {
	acc, err := c.bank.Account(accountID)
	if err != nil {
		return nil, err
	}
	return acc.History(), nil
}

// ListAccounts 依建立順序列出所有帳戶
func (c *BankUseCase) ListAccounts(ctx context.Context) ([]domain.AccountSnapshot, error) {
	accounts := c.bank.Accounts()
	out := make([]domain.AccountSnapshot, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, acc.Snapshot())
	}
	return out, nil
}

// Audit 檢查所有帳戶餘額與交易紀錄是否一致
func (c *BankUseCase) Audit(ctx context.Context) error {
	if err := c.bank.Audit(); err != nil {
		c.logger.Error("ledger audit failed", zap.Error(err))
		return err
	}
	return nil
}

// complete 記錄結果並寫入 Journal，回傳 acc 操作後的餘額
func (c *BankUseCase) complete(ctx context.Context, op string, acc *domain.Account, amount domain.Amount, receipt domain.Receipt, err error) (domain.Amount, error) {
	c.metrics.record(ctx, op, amount, err)
	if err != nil {
		c.logger.Warn(op+" refused",
			zap.Stringer("account_id", acc.ID()),
			zap.Stringer("amount", amount),
			zap.Stringer("failure", domain.FailureKindOf(err)),
			zap.Error(err))
		return 0, err
	}

	var balance domain.Amount
	for _, p := range receipt.Postings {
		if p.AccountID == acc.ID() {
			balance = p.Balance
		}
		c.logger.Info(op,
			zap.Stringer("account_id", p.AccountID),
			zap.String("record", p.Record.Type().String()),
			zap.Stringer("transaction_id", p.Record.Header().TransactionID),
			zap.Stringer("amount", p.Record.Header().Amount),
			zap.Stringer("balance", p.Balance))
	}

	// Journal 只是稽核輸出，寫入失敗不影響已完成的交易
	if c.journal != nil {
		if jerr := c.journal.Append(ctx, receipt.Postings...); jerr != nil {
			c.logger.Error("journal append failed", zap.String("operation", op), zap.Error(jerr))
		}
	}
	return balance, nil
}

var _ Teller = (*BankUseCase)(nil)
