package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// 服務描述直接以 well-known type (structpb.Struct) 定義，不需要 protoc 產生程式碼
const (
	ServiceName = "bank.v1.BankService"

	MethodCreateAccount = "CreateAccount"
	MethodDeposit       = "Deposit"
	MethodWithdraw      = "Withdraw"
	MethodTransfer      = "Transfer"
	MethodGetBalance    = "GetBalance"
	MethodHistory       = "History"
	MethodListAccounts  = "ListAccounts"
)

// FullMethod 回傳 "/bank.v1.BankService/<method>"
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// BankServiceServer 是 bank.v1.BankService 的 server 介面
type BankServiceServer interface {
	CreateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Deposit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Withdraw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Transfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAccounts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(BankServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BankServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BankServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// BankServiceDesc 是 bank.v1.BankService 的 grpc.ServiceDesc
var BankServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BankServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodCreateAccount, BankServiceServer.CreateAccount),
		unaryMethod(MethodDeposit, BankServiceServer.Deposit),
		unaryMethod(MethodWithdraw, BankServiceServer.Withdraw),
		unaryMethod(MethodTransfer, BankServiceServer.Transfer),
		unaryMethod(MethodGetBalance, BankServiceServer.GetBalance),
		unaryMethod(MethodHistory, BankServiceServer.History),
		unaryMethod(MethodListAccounts, BankServiceServer.ListAccounts),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bank/v1/bank.proto",
}

// RegisterBankServiceServer 把實作註冊到 gRPC server
func RegisterBankServiceServer(s grpc.ServiceRegistrar, srv BankServiceServer) {
	s.RegisterService(&BankServiceDesc, srv)
}
