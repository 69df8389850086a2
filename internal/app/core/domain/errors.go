package domain

import "errors"

var (
	// ErrInvalidAmount 金額必須為正數 (或無法解析)
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidOperation 不合法的操作 (如轉帳給自己)
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrLedgerMismatch 餘額與交易紀錄不一致
	ErrLedgerMismatch = errors.New("ledger mismatch")
)

// FailureKind 業務失敗的分類，給呼叫端決定如何呈現
type FailureKind uint8

const (
	FailureUnknown FailureKind = iota
	FailureInvalidAmount
	FailureInsufficientFunds
	FailureInvalidOperation
	FailureNotFound
)

func (k FailureKind) String() string {
	switch k {
	case FailureInvalidAmount:
		return "INVALID_AMOUNT"
	case FailureInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case FailureInvalidOperation:
		return "INVALID_OPERATION"
	case FailureNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// ParseFailureKind 是 String 的反向操作，無法辨識時回傳 FailureUnknown
func ParseFailureKind(s string) FailureKind {
	for _, k := range []FailureKind{FailureInvalidAmount, FailureInsufficientFunds, FailureInvalidOperation, FailureNotFound} {
		if k.String() == s {
			return k
		}
	}
	return FailureUnknown
}

// FailureKindOf 將錯誤對應到業務失敗分類
func FailureKindOf(err error) FailureKind {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return FailureInvalidAmount
	case errors.Is(err, ErrInsufficientFunds):
		return FailureInsufficientFunds
	case errors.Is(err, ErrInvalidOperation):
		return FailureInvalidOperation
	case errors.Is(err, ErrAccountNotFound):
		return FailureNotFound
	default:
		return FailureUnknown
	}
}

// Err 回傳該分類對應的 sentinel error
func (k FailureKind) Err() error {
	switch k {
	case FailureInvalidAmount:
		return ErrInvalidAmount
	case FailureInsufficientFunds:
		return ErrInsufficientFunds
	case FailureInvalidOperation:
		return ErrInvalidOperation
	case FailureNotFound:
		return ErrAccountNotFound
	default:
		return nil
	}
}
