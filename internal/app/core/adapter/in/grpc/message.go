package grpc

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
)

// 欄位名稱
const (
	fieldAccountID      = "account_id"
	fieldFromAccountID  = "from_account_id"
	fieldToAccountID    = "to_account_id"
	fieldName           = "name"
	fieldInitialDeposit = "initial_deposit"
	fieldAmount         = "amount"
	fieldBalance        = "balance"
	fieldSuccess        = "success"
	fieldMessage        = "message"
	fieldFailure        = "failure"
	fieldAccount        = "account"
	fieldAccounts       = "accounts"
	fieldRecords        = "records"
	fieldRecordCount    = "record_count"
	fieldID             = "id"
	fieldType           = "type"
	fieldTransactionID  = "transaction_id"
	fieldCreatedAt      = "created_at"
	fieldTo             = "to"
	fieldToID           = "to_id"
	fieldFrom           = "from"
	fieldFromID         = "from_id"
)

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func idField(s *structpb.Struct, key string) (uuid.UUID, error) {
	raw := stringField(s, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidOperation, key, raw)
	}
	return id, nil
}

// amountField 金額以十進位字串傳遞，也接受數字
func amountField(s *structpb.Struct, key string, required bool) (domain.Amount, error) {
	v, ok := s.GetFields()[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidAmount, key)
		}
		return 0, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return domain.ParseAmount(kind.StringValue)
	case *structpb.Value_NumberValue:
		return domain.ParseAmount(strconv.FormatFloat(kind.NumberValue, 'f', -1, 64))
	default:
		return 0, fmt.Errorf("%w: %s must be a decimal string", domain.ErrInvalidAmount, key)
	}
}

func snapshotToMap(a domain.AccountSnapshot) map[string]any {
	return map[string]any{
		fieldID:          a.ID.String(),
		fieldName:        a.Name,
		fieldBalance:     a.Balance.String(),
		fieldRecordCount: a.Records,
	}
}

func snapshotFromStruct(s *structpb.Struct) (domain.AccountSnapshot, error) {
	id, err := uuid.Parse(stringField(s, fieldID))
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	balance, err := domain.ParseAmount(stringField(s, fieldBalance))
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	return domain.AccountSnapshot{
		ID:      id,
		Name:    stringField(s, fieldName),
		Balance: balance,
		Records: int(s.GetFields()[fieldRecordCount].GetNumberValue()),
	}, nil
}

func recordToMap(r domain.TransactionRecord) map[string]any {
	h := r.Header()
	m := map[string]any{
		fieldType:          r.Type().String(),
		fieldTransactionID: h.TransactionID.String(),
		fieldAmount:        h.Amount.String(),
		fieldCreatedAt:     h.CreatedAt.Format(time.RFC3339Nano),
	}
	switch r := r.(type) {
	case domain.TransferRecord:
		m[fieldTo] = r.To
		m[fieldToID] = r.ToID.String()
	case domain.ReceivedRecord:
		m[fieldFrom] = r.From
		m[fieldFromID] = r.FromID.String()
	}
	return m
}

func recordFromStruct(s *structpb.Struct) (domain.TransactionRecord, error) {
	t, err := domain.ParseTransactionType(stringField(s, fieldType))
	if err != nil {
		return nil, err
	}
	txID, err := uuid.Parse(stringField(s, fieldTransactionID))
	if err != nil {
		return nil, err
	}
	amount, err := domain.ParseAmount(stringField(s, fieldAmount))
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, stringField(s, fieldCreatedAt))
	if err != nil {
		return nil, err
	}
	h := domain.RecordHeader{TransactionID: txID, Amount: amount, CreatedAt: createdAt}

	switch t {
	case domain.TransactionTypeDeposit:
		return domain.DepositRecord{RecordHeader: h}, nil
	case domain.TransactionTypeWithdraw:
		return domain.WithdrawalRecord{RecordHeader: h}, nil
	case domain.TransactionTypeTransfer:
		toID, err := uuid.Parse(stringField(s, fieldToID))
		if err != nil {
			return nil, err
		}
		return domain.TransferRecord{RecordHeader: h, To: stringField(s, fieldTo), ToID: toID}, nil
	case domain.TransactionTypeReceived:
		fromID, err := uuid.Parse(stringField(s, fieldFromID))
		if err != nil {
			return nil, err
		}
		return domain.ReceivedRecord{RecordHeader: h, From: stringField(s, fieldFrom), FromID: fromID}, nil
	default:
		return nil, fmt.Errorf("unsupported transaction type %s", t)
	}
}

// RemoteError 是 server 回傳的業務失敗 (Soft Failure)，可用 errors.Is 比對 domain 錯誤
type RemoteError struct {
	Kind    domain.FailureKind
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Kind.Err()
}
