package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
)

// Entry 稽核紀錄的一行，對應一筆 domain.Posting
type Entry struct {
	// Sequence: 全局唯一的順序號 (由 Dispatcher 分配，1, 2, 3...)
	Sequence       uint64    `json:"seq"`
	TransactionID  uuid.UUID `json:"transaction_id"`
	AccountID      uuid.UUID `json:"account_id"`
	AccountName    string    `json:"account_name"`
	Type           string    `json:"type"`
	Amount         int64     `json:"amount"`
	Counterparty   string    `json:"counterparty,omitempty"`
	CounterpartyID string    `json:"counterparty_id,omitempty"`
	// Position: 帳戶內的提交順序 (1, 2, 3...)，Sequence 只代表寫入 journal 的順序
	Position int `json:"position"`
	// Balance: 寫入後的餘額
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink 稽核紀錄的實際儲存位置
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
}

// NewEntry 把 domain.Posting 轉成 Entry (Sequence 由 Dispatcher 填入)
func NewEntry(p domain.Posting) Entry {
	h := p.Record.Header()
	e := Entry{
		TransactionID: h.TransactionID,
		AccountID:     p.AccountID,
		AccountName:   p.AccountName,
		Type:          p.Record.Type().String(),
		Amount:        int64(h.Amount),
		Position:      p.Position,
		Balance:       int64(p.Balance),
		CreatedAt:     h.CreatedAt,
	}
	if name, id, ok := domain.Counterparty(p.Record); ok {
		e.Counterparty = name
		e.CounterpartyID = id.String()
	}
	return e
}

// SignedAmount 回傳這筆紀錄對餘額的影響
func (e Entry) SignedAmount() (domain.Amount, error) {
	t, err := domain.ParseTransactionType(e.Type)
	if err != nil {
		return 0, err
	}
	switch t {
	case domain.TransactionTypeDeposit, domain.TransactionTypeReceived:
		return domain.Amount(e.Amount), nil
	default:
		return -domain.Amount(e.Amount), nil
	}
}
