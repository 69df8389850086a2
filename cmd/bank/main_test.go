package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/out/journal"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-bank/internal/config"
)

const demoOutput = `===== Banking System Test =====

--- Creating Accounts ---
Account created for Alice Johnson with initial deposit: $1000
Account created for Bob Smith with initial deposit: $500
Account created for Charlie Brown with initial deposit: $0

--- Initial Balances ---
Alice Johnson's current balance: $1000
Bob Smith's current balance: $500
Charlie Brown's current balance: $0

--- Testing Deposits ---
Deposited $500 to Alice Johnson's account. New balance: $1500
Deposited $250 to Charlie Brown's account. New balance: $250

--- Testing Withdrawals ---
Withdrew $100 from Bob Smith's account. New balance: $400
Error: Insufficient funds. Current balance: $1500

--- Testing Transfers ---
Transferred $300 from Alice Johnson to Bob Smith
Transferred $150 from Bob Smith to Charlie Brown

--- Final Balances ---
Alice Johnson's current balance: $1200
Bob Smith's current balance: $550
Charlie Brown's current balance: $400

===== Test Complete =====
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDemoInProcess(t *testing.T) {
	out, err := execute(t, "demo", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, demoOutput, out)
}

func TestDemoRemote(t *testing.T) {
	uc, err := usecase.NewBankUseCase(domain.NewBank(), usecase.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	grpc_adapter.RegisterBankServiceServer(srv, grpc_adapter.NewGrpcServer(uc))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	out, err := execute(t, "demo", "--log-level", "error", "--remote", lis.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, demoOutput, out)

	accounts, err := uc.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
	require.NoError(t, uc.Audit(context.Background()))
}

func TestRunBench(t *testing.T) {
	uc, err := usecase.NewBankUseCase(domain.NewBank())
	require.NoError(t, err)

	var out bytes.Buffer
	err = runBench(context.Background(), &out, uc, benchOptions{total: 500, concurrency: 16, amount: "0.5"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Completed 500 requests")
	assert.Contains(t, out.String(), "(0 failed)")
	assert.Contains(t, out.String(), "balance: 250\n")

	err = runBench(context.Background(), &out, uc, benchOptions{total: 1, concurrency: 1, amount: "abc"}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	err = runBench(context.Background(), &out, uc, benchOptions{total: 0, concurrency: 1, amount: "1"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestAudit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.log")

	sink, err := journal.NewFileSink(path)
	require.NoError(t, err)
	dctx, cancel := context.WithCancel(ctx)
	d := journal.NewDispatcher(sink, 16, zaptest.NewLogger(t))
	d.Start(dctx)

	uc, err := usecase.NewBankUseCase(domain.NewBank(), usecase.WithJournal(d))
	require.NoError(t, err)
	require.NoError(t, runDemo(ctx, &bytes.Buffer{}, uc))

	cancel()
	<-d.Done()
	require.NoError(t, sink.Close())

	out, err := execute(t, "audit", "--journal", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "LAST BALANCE")
	// 依第一次出現的順序：Alice (存款)、Charlie (存款)、Bob (提款)
	assert.Regexp(t, `Alice Johnson\s+2\s+200\s+1200`, lines[1])
	assert.Regexp(t, `Charlie Brown\s+2\s+400\s+400`, lines[2])
	assert.Regexp(t, `Bob Smith\s+3\s+50\s+550`, lines[3])

	_, err = execute(t, "audit", "--journal", filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.GRPC.Addr = "127.0.0.1:0"
	cfg.Journal.Driver = config.JournalFile
	cfg.Journal.Path = path

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, zaptest.NewLogger(t))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestServeRejectsBadAddress(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.GRPC.Addr = "not-an-address"

	err = serve(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
