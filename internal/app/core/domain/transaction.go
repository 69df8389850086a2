package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType 交易類型
// 為了極致節省記憶體，使用 uint8
type TransactionType uint8

const (
	// 存款
	TransactionTypeDeposit TransactionType = 1
	// 提款
	TransactionTypeWithdraw TransactionType = 2
	// 轉出
	TransactionTypeTransfer TransactionType = 3
	// 轉入
	TransactionTypeReceived TransactionType = 4
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeDeposit:
		return "Deposit"
	case TransactionTypeWithdraw:
		return "Withdrawal"
	case TransactionTypeTransfer:
		return "Transfer"
	case TransactionTypeReceived:
		return "Received"
	default:
		return fmt.Sprintf("TransactionType(%d)", uint8(t))
	}
}

// ParseTransactionType 是 String 的反向操作
func ParseTransactionType(s string) (TransactionType, error) {
	for _, t := range []TransactionType{TransactionTypeDeposit, TransactionTypeWithdraw, TransactionTypeTransfer, TransactionTypeReceived} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

// RecordHeader 所有交易紀錄共用的欄位
type RecordHeader struct {
	// TransactionID: 交易追蹤號，轉帳的兩筆紀錄共用同一個
	TransactionID uuid.UUID
	// Amount: 金額，永遠為正，方向由紀錄類型決定
	Amount Amount
	// CreatedAt: 交易時間
	CreatedAt time.Time
}

// Header 回傳共用欄位
func (h RecordHeader) Header() RecordHeader {
	return h
}

// TransactionRecord 帳戶歷史中的一筆紀錄，寫入後不再變動
//
// 只有本 package 定義的四種紀錄可以實作此介面:
// DepositRecord, WithdrawalRecord, TransferRecord, ReceivedRecord
type TransactionRecord interface {
	Type() TransactionType
	Header() RecordHeader
	record()
}

// DepositRecord 存款紀錄
type DepositRecord struct {
	RecordHeader
}

// WithdrawalRecord 提款紀錄
type WithdrawalRecord struct {
	RecordHeader
}

// TransferRecord 轉出紀錄 (寫在付款方)
type TransferRecord struct {
	RecordHeader
	To   string
	ToID uuid.UUID
}

// ReceivedRecord 轉入紀錄 (寫在收款方)
type ReceivedRecord struct {
	RecordHeader
	From   string
	FromID uuid.UUID
}

func (DepositRecord) Type() TransactionType    { return TransactionTypeDeposit }
func (WithdrawalRecord) Type() TransactionType { return TransactionTypeWithdraw }
func (TransferRecord) Type() TransactionType   { return TransactionTypeTransfer }
func (ReceivedRecord) Type() TransactionType   { return TransactionTypeReceived }

func (DepositRecord) record()    {}
func (WithdrawalRecord) record() {}
func (TransferRecord) record()   {}
func (ReceivedRecord) record()   {}

// SignedAmount 回傳紀錄對餘額的影響 (入帳為正，出帳為負)
func SignedAmount(r TransactionRecord) Amount {
	switch r := r.(type) {
	case DepositRecord:
		return r.Amount
	case ReceivedRecord:
		return r.Amount
	case WithdrawalRecord:
		return -r.Amount
	case TransferRecord:
		return -r.Amount
	default:
		panic(fmt.Sprintf("domain: unknown transaction record %T", r))
	}
}

// Counterparty 回傳轉帳對手的名稱與 ID，非轉帳紀錄回傳 false
func Counterparty(r TransactionRecord) (name string, id uuid.UUID, ok bool) {
	switch r := r.(type) {
	case TransferRecord:
		return r.To, r.ToID, true
	case ReceivedRecord:
		return r.From, r.FromID, true
	default:
		return "", uuid.Nil, false
	}
}

// Posting 一筆寫入帳戶的紀錄，以及寫入後的餘額
type Posting struct {
	AccountID   uuid.UUID
	AccountName string
	Record      TransactionRecord
	Balance     Amount
	// Position: 該紀錄在帳戶 history 中的位置 (從 1 開始)，在帳戶鎖內決定，即帳戶內的提交順序
	Position int
}

// Receipt 一次成功操作產生的所有 Posting (轉帳為兩筆，一邊一筆)
type Receipt struct {
	Postings []Posting
}
