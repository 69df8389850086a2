package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	grpc_adapter "github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
	grpcpool "github.com/JoeShih716/go-mem-bank/pkg/grpc"
)

type benchOptions struct {
	addr        string
	total       int
	concurrency int
	amount      string
	timeout     time.Duration
}

func newBenchCmd(opts *rootOptions) *cobra.Command {
	bo := benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Send concurrent deposits to a bank server and report TPS",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := opts.consoleLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			pool := grpcpool.NewPool()
			defer func() { _ = pool.Close() }()
			conn, err := pool.GetConnection(bo.addr)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), bo.timeout)
			defer cancel()
			return runBench(ctx, cmd.OutOrStdout(), grpc_adapter.NewClient(conn), bo, log)
		},
	}
	cmd.Flags().StringVar(&bo.addr, "addr", "localhost:50051", "bank server address")
	cmd.Flags().IntVar(&bo.total, "total", 100000, "number of deposits")
	cmd.Flags().IntVar(&bo.concurrency, "concurrency", 100, "in-flight requests")
	cmd.Flags().StringVar(&bo.amount, "amount", "1", "amount per deposit")
	cmd.Flags().DurationVar(&bo.timeout, "timeout", 2*time.Minute, "overall deadline")
	return cmd
}

// runBench 開一個新帳戶，並發存款後以最終餘額核對成功筆數
func runBench(ctx context.Context, out io.Writer, teller usecase.Teller, bo benchOptions, log *zap.Logger) error {
	if bo.total <= 0 || bo.concurrency <= 0 {
		return fmt.Errorf("total and concurrency must be positive")
	}
	amount, err := domain.ParseAmount(bo.amount)
	if err != nil {
		return err
	}

	acc, err := teller.CreateAccount(ctx, "bench-"+uuid.NewString(), 0)
	if err != nil {
		return err
	}

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
		sem    = make(chan struct{}, bo.concurrency)
	)
	start := time.Now()
	for i := 0; i < bo.total; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := teller.Deposit(ctx, acc.ID, amount); err != nil {
				failed.Add(1)
				if idx%10000 == 0 {
					log.Warn("deposit failed", zap.Int("index", idx), zap.Error(err))
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	balance, err := teller.GetAccountBalance(context.WithoutCancel(ctx), acc.ID)
	if err != nil {
		return err
	}
	ok := int64(bo.total) - failed.Load()

	fmt.Fprintf(out, "Completed %d requests in %v (%d failed)\n", bo.total, elapsed, failed.Load())
	fmt.Fprintf(out, "TPS: %.2f\n", float64(bo.total)/elapsed.Seconds())
	fmt.Fprintf(out, "Account %s balance: %s\n", acc.ID, balance)
	if want := amount * domain.Amount(ok); balance != want {
		return fmt.Errorf("balance %s does not match %d successful deposits (want %s)", balance, ok, want)
	}
	return nil
}
