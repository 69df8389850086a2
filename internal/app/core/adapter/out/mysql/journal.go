package mysql

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/out/journal"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/pkg/mysql"
)

// sqlJournalEntry 對應資料庫的 bank_journal 表
type sqlJournalEntry struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Sequence       uint64 `gorm:"index"`
	TransactionID  []byte `gorm:"column:transaction_id;type:binary(16);uniqueIndex:idx_tx_account"` // 對應 domain.RecordHeader.TransactionID
	AccountID      []byte `gorm:"column:account_id;type:binary(16);uniqueIndex:idx_tx_account;index"`
	AccountName    string `gorm:"size:255"`
	Type           uint8
	Amount         int64
	Position       int
	Counterparty   string `gorm:"size:255"`
	CounterpartyID []byte `gorm:"type:binary(16)"`
	Balance        int64
	RecordedAt     int64 // 交易發生時間 (unix milli)
	CreatedAt      int64 `gorm:"autoCreateTime:milli"` // 自動寫入時間
}

func (*sqlJournalEntry) TableName() string {
	return "bank_journal"
}

// JournalSink 把稽核紀錄寫入 MySQL
type JournalSink struct {
	client *mysql.Client
}

func NewJournalSink(client *mysql.Client) *JournalSink {
	return &JournalSink{
		client: client,
	}
}

// Migrate 建立或更新 bank_journal 表
func (s *JournalSink) Migrate(ctx context.Context) error {
	return s.client.DB().WithContext(ctx).AutoMigrate(&sqlJournalEntry{})
}

// Write 批次寫入紀錄；同一筆交易同一個帳戶重複寫入時略過 (冪等)
func (s *JournalSink) Write(ctx context.Context, entries []journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows, err := toRows(entries)
	if err != nil {
		return err
	}
	return s.client.DB().
		WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).
		Error
}

func toRows(entries []journal.Entry) ([]sqlJournalEntry, error) {
	rows := make([]sqlJournalEntry, 0, len(entries))
	for _, e := range entries {
		t, err := domain.ParseTransactionType(e.Type)
		if err != nil {
			return nil, err
		}
		row := sqlJournalEntry{
			Sequence:      e.Sequence,
			TransactionID: cloneID(e.TransactionID),
			AccountID:     cloneID(e.AccountID),
			AccountName:   e.AccountName,
			Type:          uint8(t),
			Amount:        e.Amount,
			Position:      e.Position,
			Counterparty:  e.Counterparty,
			Balance:       e.Balance,
			RecordedAt:    e.CreatedAt.UnixMilli(),
		}
		if e.CounterpartyID != "" {
			id, err := uuid.Parse(e.CounterpartyID)
			if err != nil {
				return nil, err
			}
			row.CounterpartyID = cloneID(id)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cloneID(id uuid.UUID) []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

var _ journal.Sink = (*JournalSink)(nil)
