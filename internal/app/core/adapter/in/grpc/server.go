package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
)

type GrpcServer struct {
	teller usecase.Teller
}

func NewGrpcServer(teller usecase.Teller) *GrpcServer {
	return &GrpcServer{
		teller: teller,
	}
}

func (s *GrpcServer) CreateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	initial, err := amountField(req, fieldInitialDeposit, false)
	if err != nil {
		return failure(err)
	}
	acc, err := s.teller.CreateAccount(ctx, stringField(req, fieldName), initial)
	if err != nil {
		return failure(err)
	}
	return structpb.NewStruct(map[string]any{
		fieldSuccess: true,
		fieldBalance: acc.Balance.String(),
		fieldAccount: snapshotToMap(acc),
	})
}

func (s *GrpcServer) Deposit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, amount, err := accountAndAmount(req, fieldAccountID)
	if err != nil {
		return failure(err)
	}
	return mutation(s.teller.Deposit(ctx, id, amount))
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, amount, err := accountAndAmount(req, fieldAccountID)
	if err != nil {
		return failure(err)
	}
	return mutation(s.teller.Withdraw(ctx, id, amount))
}

func (s *GrpcServer) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	from, amount, err := accountAndAmount(req, fieldFromAccountID)
	if err != nil {
		return failure(err)
	}
	to, err := idField(req, fieldToAccountID)
	if err != nil {
		return failure(err)
	}
	// 回傳付款方餘額
	return mutation(s.teller.Transfer(ctx, from, to, amount))
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idField(req, fieldAccountID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	balance, err := s.teller.GetAccountBalance(ctx, id)
	if err != nil {
		return nil, queryError(err)
	}
	return structpb.NewStruct(map[string]any{
		fieldBalance: balance.String(),
	})
}

func (s *GrpcServer) History(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idField(req, fieldAccountID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	records, err := s.teller.History(ctx, id)
	if err != nil {
		return nil, queryError(err)
	}
	list := make([]any, 0, len(records))
	for _, r := range records {
		list = append(list, recordToMap(r))
	}
	return structpb.NewStruct(map[string]any{
		fieldRecords: list,
	})
}

func (s *GrpcServer) ListAccounts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accounts, err := s.teller.ListAccounts(ctx)
	if err != nil {
		return nil, queryError(err)
	}
	list := make([]any, 0, len(accounts))
	for _, a := range accounts {
		list = append(list, snapshotToMap(a))
	}
	return structpb.NewStruct(map[string]any{
		fieldAccounts: list,
	})
}

func accountAndAmount(req *structpb.Struct, idKey string) (uuid.UUID, domain.Amount, error) {
	id, err := idField(req, idKey)
	if err != nil {
		return uuid.Nil, 0, err
	}
	amount, err := amountField(req, fieldAmount, true)
	if err != nil {
		return uuid.Nil, 0, err
	}
	return id, amount, nil
}

func mutation(balance domain.Amount, err error) (*structpb.Struct, error) {
	if err != nil {
		return failure(err)
	}
	return structpb.NewStruct(map[string]any{
		fieldSuccess: true,
		fieldBalance: balance.String(),
	})
}

// failure 業務邏輯錯誤，回傳 success=false (Soft Failure)
func failure(err error) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldSuccess: false,
		fieldMessage: err.Error(),
		fieldFailure: domain.FailureKindOf(err).String(),
	})
}

func queryError(err error) error {
	if errors.Is(err, domain.ErrAccountNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// LoggingInterceptor 記錄每個 RPC 的方法、耗時與 status code
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("elapsed", time.Since(start)),
			zap.Stringer("code", status.Code(err)),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc", fields...)
		}
		return resp, err
	}
}

var _ BankServiceServer = (*GrpcServer)(nil)
