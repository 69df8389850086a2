package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
)

// startServer 以 bufconn 啟動 in-process gRPC server，回傳連到它的連線
func startServer(t *testing.T) *grpc.ClientConn {
	t.Helper()
	logger := zaptest.NewLogger(t)
	uc, err := usecase.NewBankUseCase(domain.NewBank(), usecase.WithLogger(logger))
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger)))
	RegisterBankServiceServer(srv, NewGrpcServer(uc))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestClientScenario(t *testing.T) {
	ctx := context.Background()
	client := NewClient(startServer(t))

	alice, err := client.CreateAccount(ctx, "Alice", domain.NewAmount(1000))
	require.NoError(t, err)
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, domain.NewAmount(1000), alice.Balance)
	assert.Equal(t, 0, alice.Records)

	bob, err := client.CreateAccount(ctx, "Bob", domain.NewAmount(500))
	require.NoError(t, err)

	_, err = client.Withdraw(ctx, alice.ID, domain.NewAmount(2000))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, domain.FailureInsufficientFunds, remote.Kind)

	balance, err := client.Transfer(ctx, alice.ID, bob.ID, domain.NewAmount(300))
	require.NoError(t, err)
	assert.Equal(t, domain.NewAmount(700), balance)

	balance, err = client.Deposit(ctx, bob.ID, mustAmount("12.5"))
	require.NoError(t, err)
	assert.Equal(t, mustAmount("812.5"), balance)

	balance, err = client.Withdraw(ctx, bob.ID, domain.NewAmount(12))
	require.NoError(t, err)
	assert.Equal(t, mustAmount("800.5"), balance)

	balance, err = client.GetAccountBalance(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NewAmount(700), balance)

	history, err := client.History(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	received, ok := history[0].(domain.ReceivedRecord)
	require.True(t, ok)
	assert.Equal(t, "Alice", received.From)
	assert.Equal(t, alice.ID, received.FromID)
	assert.Equal(t, domain.NewAmount(300), received.Amount)

	aliceHistory, err := client.History(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceHistory, 1)
	transfer, ok := aliceHistory[0].(domain.TransferRecord)
	require.True(t, ok)
	assert.Equal(t, "Bob", transfer.To)
	assert.Equal(t, received.TransactionID, transfer.TransactionID)

	accounts, err := client.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, alice.ID, accounts[0].ID)
	assert.Equal(t, mustAmount("800.5"), accounts[1].Balance)
	assert.Equal(t, 3, accounts[1].Records)
}

func TestClientRefusals(t *testing.T) {
	ctx := context.Background()
	client := NewClient(startServer(t))

	alice, err := client.CreateAccount(ctx, "Alice", domain.NewAmount(100))
	require.NoError(t, err)

	_, err = client.Deposit(ctx, alice.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = client.Transfer(ctx, alice.ID, alice.ID, domain.NewAmount(1))
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	_, err = client.CreateAccount(ctx, "Dave", domain.NewAmount(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = client.Deposit(ctx, uuid.New(), domain.NewAmount(1))
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = client.GetAccountBalance(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = client.History(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	balance, err := client.GetAccountBalance(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NewAmount(100), balance)
}

func TestServerRejectsMalformedRequests(t *testing.T) {
	ctx := context.Background()
	conn := startServer(t)

	call := func(method string, fields map[string]any) (*structpb.Struct, error) {
		in, err := structpb.NewStruct(fields)
		require.NoError(t, err)
		out := new(structpb.Struct)
		return out, conn.Invoke(ctx, FullMethod(method), in, out)
	}

	created, err := call(MethodCreateAccount, map[string]any{fieldName: "Alice", fieldInitialDeposit: 50})
	require.NoError(t, err)
	require.True(t, created.GetFields()[fieldSuccess].GetBoolValue())
	id := created.GetFields()[fieldAccount].GetStructValue().GetFields()[fieldID].GetStringValue()

	cases := []struct {
		name    string
		method  string
		fields  map[string]any
		failure domain.FailureKind
	}{
		{"non-numeric amount", MethodDeposit, map[string]any{fieldAccountID: id, fieldAmount: "abc"}, domain.FailureInvalidAmount},
		{"NaN amount", MethodDeposit, map[string]any{fieldAccountID: id, fieldAmount: "NaN"}, domain.FailureInvalidAmount},
		{"missing amount", MethodWithdraw, map[string]any{fieldAccountID: id}, domain.FailureInvalidAmount},
		{"balance overflow", MethodDeposit, map[string]any{fieldAccountID: id, fieldAmount: "922337203685477.5807"}, domain.FailureInvalidAmount},
		{"bool amount", MethodWithdraw, map[string]any{fieldAccountID: id, fieldAmount: true}, domain.FailureInvalidAmount},
		{"bad account id", MethodDeposit, map[string]any{fieldAccountID: "nope", fieldAmount: "1"}, domain.FailureInvalidOperation},
		{"bad recipient id", MethodTransfer, map[string]any{fieldFromAccountID: id, fieldToAccountID: "", fieldAmount: "1"}, domain.FailureInvalidOperation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := call(tc.method, tc.fields)
			require.NoError(t, err)
			assert.False(t, out.GetFields()[fieldSuccess].GetBoolValue())
			assert.Equal(t, tc.failure.String(), out.GetFields()[fieldFailure].GetStringValue())
			assert.NotEmpty(t, out.GetFields()[fieldMessage].GetStringValue())
		})
	}

	// 數字型別的金額也接受
	out, err := call(MethodDeposit, map[string]any{fieldAccountID: id, fieldAmount: 25.5})
	require.NoError(t, err)
	assert.Equal(t, "75.5", out.GetFields()[fieldBalance].GetStringValue())

	_, err = call(MethodGetBalance, map[string]any{fieldAccountID: "nope"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = call(MethodHistory, map[string]any{fieldAccountID: uuid.NewString()})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

// mustAmount 解析測試用的金額字串
func mustAmount(s string) domain.Amount {
	a, err := domain.ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}
