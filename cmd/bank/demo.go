package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	grpc_adapter "github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
	grpcpool "github.com/JoeShih716/go-mem-bank/pkg/grpc"
)

func newDemoCmd(opts *rootOptions) *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the banking walkthrough (in-process, or against a server with --remote)",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := opts.consoleLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var teller usecase.Teller
			if remote != "" {
				pool := grpcpool.NewPool(grpcpool.WithInterceptor(grpcpool.LoggingInterceptor(log)))
				defer func() { _ = pool.Close() }()
				conn, err := pool.GetConnection(remote)
				if err != nil {
					return err
				}
				teller = grpc_adapter.NewClient(conn)
			} else {
				uc, err := usecase.NewBankUseCase(domain.NewBank(), usecase.WithLogger(log))
				if err != nil {
					return err
				}
				teller = uc
			}
			return runDemo(cmd.Context(), cmd.OutOrStdout(), teller)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "bank server address, e.g. localhost:50051")
	return cmd
}

// narrator 把每個操作的結果印成使用者看得懂的句子
//
// 業務失敗 (金額不合法、餘額不足) 只印出訊息並繼續；其他錯誤中斷 demo。
type narrator struct {
	ctx    context.Context
	out    io.Writer
	teller usecase.Teller
}

type demoAccount struct {
	id   uuid.UUID
	name string
}

func runDemo(ctx context.Context, out io.Writer, teller usecase.Teller) error {
	n := &narrator{ctx: ctx, out: out, teller: teller}

	n.printf("===== Banking System Test =====\n\n")

	n.printf("--- Creating Accounts ---\n")
	alice, err := n.create("Alice Johnson", domain.NewAmount(1000))
	if err != nil {
		return err
	}
	bob, err := n.create("Bob Smith", domain.NewAmount(500))
	if err != nil {
		return err
	}
	charlie, err := n.create("Charlie Brown", 0)
	if err != nil {
		return err
	}
	accounts := []demoAccount{alice, bob, charlie}
	n.printf("\n")

	n.printf("--- Initial Balances ---\n")
	if err := n.balances(accounts); err != nil {
		return err
	}
	n.printf("\n")

	steps := []struct {
		title string
		ops   []func() error
	}{
		{"Testing Deposits", []func() error{
			func() error { return n.deposit(alice, domain.NewAmount(500)) },
			func() error { return n.deposit(charlie, domain.NewAmount(250)) },
		}},
		{"Testing Withdrawals", []func() error{
			func() error { return n.withdraw(bob, domain.NewAmount(100)) },
			func() error { return n.withdraw(alice, domain.NewAmount(2000)) },
		}},
		{"Testing Transfers", []func() error{
			func() error { return n.transfer(alice, bob, domain.NewAmount(300)) },
			func() error { return n.transfer(bob, charlie, domain.NewAmount(150)) },
		}},
	}
	for _, step := range steps {
		n.printf("--- %s ---\n", step.title)
		for _, op := range step.ops {
			if err := op(); err != nil {
				return err
			}
		}
		n.printf("\n")
	}

	n.printf("--- Final Balances ---\n")
	if err := n.balances(accounts); err != nil {
		return err
	}
	n.printf("\n")

	n.printf("===== Test Complete =====\n")
	return nil
}

func (n *narrator) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(n.out, format, args...)
}

func (n *narrator) create(name string, initial domain.Amount) (demoAccount, error) {
	acc, err := n.teller.CreateAccount(n.ctx, name, initial)
	if err != nil {
		return demoAccount{}, err
	}
	n.printf("Account created for %s with initial deposit: $%s\n", name, initial)
	return demoAccount{id: acc.ID, name: acc.Name}, nil
}

func (n *narrator) balances(accounts []demoAccount) error {
	for _, acc := range accounts {
		balance, err := n.teller.GetAccountBalance(n.ctx, acc.id)
		if err != nil {
			return err
		}
		n.printf("%s's current balance: $%s\n", acc.name, balance)
	}
	return nil
}

func (n *narrator) deposit(acc demoAccount, amount domain.Amount) error {
	balance, err := n.teller.Deposit(n.ctx, acc.id, amount)
	if err != nil {
		return n.refused(acc, "Deposit", "", err)
	}
	n.printf("Deposited $%s to %s's account. New balance: $%s\n", amount, acc.name, balance)
	return nil
}

func (n *narrator) withdraw(acc demoAccount, amount domain.Amount) error {
	balance, err := n.teller.Withdraw(n.ctx, acc.id, amount)
	if err != nil {
		return n.refused(acc, "Withdrawal", "", err)
	}
	n.printf("Withdrew $%s from %s's account. New balance: $%s\n", amount, acc.name, balance)
	return nil
}

func (n *narrator) transfer(from, to demoAccount, amount domain.Amount) error {
	if _, err := n.teller.Transfer(n.ctx, from.id, to.id, amount); err != nil {
		return n.refused(from, "Transfer", " for transfer", err)
	}
	n.printf("Transferred $%s from %s to %s\n", amount, from.name, to.name)
	return nil
}

// refused 印出業務失敗的訊息；非業務錯誤原樣回傳
func (n *narrator) refused(acc demoAccount, op, suffix string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		n.printf("Error: %s amount must be positive\n", op)
	case errors.Is(err, domain.ErrInsufficientFunds):
		balance, berr := n.teller.GetAccountBalance(n.ctx, acc.id)
		if berr != nil {
			return berr
		}
		n.printf("Error: Insufficient funds%s. Current balance: $%s\n", suffix, balance)
	case errors.Is(err, domain.ErrInvalidOperation):
		n.printf("Error: %v\n", err)
	default:
		return err
	}
	return nil
}
