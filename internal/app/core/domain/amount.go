package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// amount 使用int64，並定義精度：小數點後 4 位
const (
	CurrencyScale    = 10000
	currencyExponent = 4
)

// Amount 以最小單位 (1/CurrencyScale) 儲存的金額
type Amount int64

const (
	// MaxAmount 可表示的最大金額 (922337203685477.5807)，也是帳戶餘額的上限
	MaxAmount Amount = math.MaxInt64

	// MaxAmountUnits NewAmount 可接受的整數單位範圍為 [-MaxAmountUnits, MaxAmountUnits]
	MaxAmountUnits = math.MaxInt64 / CurrencyScale
)

// NewAmount 以整數單位建立金額，例如 NewAmount(300) 代表 300.0000
//
// units 超出 ±MaxAmountUnits 時 panic；外部輸入請用 ParseAmount。
func NewAmount(units int64) Amount {
	if units > MaxAmountUnits || units < -MaxAmountUnits {
		panic(fmt.Sprintf("domain.NewAmount: %d units out of range", units))
	}
	return Amount(units * CurrencyScale)
}

// ParseAmount 解析十進位字串，例如 "12.5"、"-3"、"1000.0001"
//
// 參數:
//
//	s: 金額字串
//
// 回傳:
//
//	Amount: 金額 (最小單位)
//	error: 非數字、NaN/Inf、超過 4 位小數或溢位時回傳 ErrInvalidAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	scaled := d.Shift(currencyExponent)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, currencyExponent)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return Amount(scaled.IntPart()), nil
}

// Decimal 轉成 decimal.Decimal
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -currencyExponent)
}

func (a Amount) String() string {
	return a.Decimal().String()
}

// StringFixed 固定兩位小數，給畫面輸出用
func (a Amount) StringFixed() string {
	return a.Decimal().StringFixed(2)
}
