package journal

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/pkg/wal"
)

// FileSink 把紀錄以 JSON Lines 寫入 WAL 檔案
type FileSink struct {
	wal *wal.WAL
}

// NewFileSink 開啟或建立 path 指向的檔案
func NewFileSink(path string) (*FileSink, error) {
	w, err := wal.NewWAL(path, wal.WithSyncEveryWrite(false))
	if err != nil {
		return nil, err
	}
	return &FileSink{wal: w}, nil
}

// Write 寫入一批紀錄後刷入硬碟
func (s *FileSink) Write(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if err := s.wal.Write(e); err != nil {
			return err
		}
	}
	return s.wal.Flush()
}

// Close 關閉檔案
func (s *FileSink) Close() error {
	return s.wal.Close()
}

// ReadEntries 依檔案順序讀出所有紀錄
func ReadEntries(path string, fn func(Entry) error) error {
	return wal.ReadFile(path, func(jsonRaw []byte) error {
		var e Entry
		if err := json.Unmarshal(jsonRaw, &e); err != nil {
			return err
		}
		return fn(e)
	})
}

// AccountSummary 單一帳戶在 journal 中的統計
type AccountSummary struct {
	AccountID   uuid.UUID
	AccountName string
	Entries     int
	Net         domain.Amount
	// LastBalance: 帳戶內最後提交的紀錄寫入後的餘額
	LastBalance domain.Amount
}

// Summarize 統計每個帳戶的紀錄數與淨額，依帳戶第一次出現的順序回傳
func Summarize(path string) ([]AccountSummary, error) {
	byID := make(map[uuid.UUID]*AccountSummary)
	order := make(map[uuid.UUID]uint64)
	lastPosition := make(map[uuid.UUID]int)
	err := ReadEntries(path, func(e Entry) error {
		signed, err := e.SignedAmount()
		if err != nil {
			return err
		}
		s, ok := byID[e.AccountID]
		if !ok {
			s = &AccountSummary{AccountID: e.AccountID, AccountName: e.AccountName}
			byID[e.AccountID] = s
			order[e.AccountID] = e.Sequence
		}
		s.Entries++
		s.Net += signed
		// 並發操作寫入 journal 的順序可能和提交順序不同，以帳戶內位置最大的為準
		if e.Position >= lastPosition[e.AccountID] {
			lastPosition[e.AccountID] = e.Position
			s.LastBalance = domain.Amount(e.Balance)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]AccountSummary, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return order[out[i].AccountID] < order[out[j].AccountID]
	})
	return out, nil
}
