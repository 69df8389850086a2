package grpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
)

// Client 透過 gRPC 呼叫遠端 BankService，實作 usecase.Teller
//
// 業務失敗 (success=false) 會轉成 *RemoteError，可用 errors.Is 比對 domain 錯誤。
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{
		conn: conn,
	}
}

func (c *Client) CreateAccount(ctx context.Context, name string, initialDeposit domain.Amount) (domain.AccountSnapshot, error) {
	out, err := c.mutate(ctx, MethodCreateAccount, map[string]any{
		fieldName:           name,
		fieldInitialDeposit: initialDeposit.String(),
	})
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	return snapshotFromStruct(out.GetFields()[fieldAccount].GetStructValue())
}

func (c *Client) Deposit(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error) {
	return c.balanceOf(c.mutate(ctx, MethodDeposit, map[string]any{
		fieldAccountID: accountID.String(),
		fieldAmount:    amount.String(),
	}))
}

func (c *Client) Withdraw(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error) {
	return c.balanceOf(c.mutate(ctx, MethodWithdraw, map[string]any{
		fieldAccountID: accountID.String(),
		fieldAmount:    amount.String(),
	}))
}

func (c *Client) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount domain.Amount) (domain.Amount, error) {
	return c.balanceOf(c.mutate(ctx, MethodTransfer, map[string]any{
		fieldFromAccountID: fromID.String(),
		fieldToAccountID:   toID.String(),
		fieldAmount:        amount.String(),
	}))
}

func (c *Client) GetAccountBalance(ctx context.Context, accountID uuid.UUID) (domain.Amount, error) {
	out, err := c.invoke(ctx, MethodGetBalance, map[string]any{
		fieldAccountID: accountID.String(),
	})
	if err != nil {
		return 0, err
	}
	return domain.ParseAmount(stringField(out, fieldBalance))
}

func (c *Client) History(ctx context.Context, accountID uuid.UUID) ([]domain.TransactionRecord, error) {
	out, err := c.invoke(ctx, MethodHistory, map[string]any{
		fieldAccountID: accountID.String(),
	})
	if err != nil {
		return nil, err
	}
	values := out.GetFields()[fieldRecords].GetListValue().GetValues()
	records := make([]domain.TransactionRecord, 0, len(values))
	for _, v := range values {
		r, err := recordFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (c *Client) ListAccounts(ctx context.Context) ([]domain.AccountSnapshot, error) {
	out, err := c.invoke(ctx, MethodListAccounts, map[string]any{})
	if err != nil {
		return nil, err
	}
	values := out.GetFields()[fieldAccounts].GetListValue().GetValues()
	accounts := make([]domain.AccountSnapshot, 0, len(values))
	for _, v := range values {
		a, err := snapshotFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, status.Convert(err).Message())
		}
		return nil, err
	}
	return out, nil
}

// mutate 呼叫會改變狀態的 RPC，並把 Soft Failure 轉成 *RemoteError
func (c *Client) mutate(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	out, err := c.invoke(ctx, method, fields)
	if err != nil {
		return nil, err
	}
	if !out.GetFields()[fieldSuccess].GetBoolValue() {
		return nil, &RemoteError{
			Kind:    domain.ParseFailureKind(stringField(out, fieldFailure)),
			Message: stringField(out, fieldMessage),
		}
	}
	return out, nil
}

func (c *Client) balanceOf(out *structpb.Struct, err error) (domain.Amount, error) {
	if err != nil {
		return 0, err
	}
	return domain.ParseAmount(stringField(out, fieldBalance))
}

var _ usecase.Teller = (*Client)(nil)
