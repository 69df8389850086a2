package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/out/journal"
	mysql_adapter "github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-bank/internal/config"
	"github.com/JoeShih716/go-mem-bank/pkg/logger"
	"github.com/JoeShih716/go-mem-bank/pkg/mysql"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC bank server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

// serve 組裝 usecase / journal / metrics 並啟動 gRPC server，ctx 結束後優雅關閉
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ucOpts := []usecase.Option{usecase.WithLogger(log)}

	if cfg.Metrics.Enabled {
		provider, shutdownMetrics, err := initMeter(ctx, cfg.Metrics.Addr, log)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownMetrics(sctx); err != nil {
				log.Warn("metrics shutdown", zap.Error(err))
			}
		}()
		ucOpts = append(ucOpts, usecase.WithMeterProvider(provider))
	}

	dispatcher, closeJournal, err := openJournal(ctx, cfg, log)
	if err != nil {
		return err
	}
	if dispatcher != nil {
		ucOpts = append(ucOpts, usecase.WithJournal(dispatcher))
	}

	uc, err := usecase.NewBankUseCase(domain.NewBank(), ucOpts...)
	if err != nil {
		return errors.Join(err, closeJournal())
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return errors.Join(fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err), closeJournal())
	}

	s := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.LoggingInterceptor(log)))
	grpc_adapter.RegisterBankServiceServer(s, grpc_adapter.NewGrpcServer(uc))
	reflection.Register(s)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting gRPC server", zap.String("addr", lis.Addr().String()))
		serveErr <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server")
		s.GracefulStop()
	case err = <-serveErr:
		log.Error("gRPC server stopped", zap.Error(err))
	}

	// server 停止後才關 journal，確保已完成的交易都寫出
	if jerr := closeJournal(); jerr != nil {
		log.Error("journal close failed", zap.Error(jerr))
		err = errors.Join(err, jerr)
	}
	if aerr := uc.Audit(context.Background()); aerr != nil {
		err = errors.Join(err, aerr)
	}
	log.Info("server exited")
	return err
}

// openJournal 依設定建立稽核 journal，driver 為 none 時回傳 nil Dispatcher
func openJournal(ctx context.Context, cfg *config.Config, log *zap.Logger) (*journal.Dispatcher, func() error, error) {
	var (
		sink      journal.Sink
		closeSink func() error
	)
	switch cfg.Journal.Driver {
	case config.JournalNone:
		return nil, func() error { return nil }, nil
	case config.JournalFile:
		fileSink, err := journal.NewFileSink(cfg.Journal.Path)
		if err != nil {
			return nil, nil, err
		}
		sink, closeSink = fileSink, fileSink.Close
	case config.JournalMySQL:
		client, err := mysql.NewClient(cfg.MySQL, log)
		if err != nil {
			return nil, nil, err
		}
		sqlSink := mysql_adapter.NewJournalSink(client)
		if err := sqlSink.Migrate(ctx); err != nil {
			return nil, nil, errors.Join(err, client.Close())
		}
		sink, closeSink = sqlSink, client.Close
	default:
		return nil, nil, fmt.Errorf("unknown journal driver %q", cfg.Journal.Driver)
	}

	dctx, cancel := context.WithCancel(context.Background())
	d := journal.NewDispatcher(sink, cfg.Journal.Buffer, log)
	d.Start(dctx)
	log.Info("journal enabled", zap.String("driver", cfg.Journal.Driver))

	closeFn := func() error {
		cancel()
		<-d.Done()
		return closeSink()
	}
	return d, closeFn, nil
}

// initMeter 安裝 Prometheus exporter 並以 /metrics 對外提供
func initMeter(ctx context.Context, addr string, log *zap.Logger) (*sdkmetric.MeterProvider, func(context.Context) error, error) {
	// exporter 同時是 Reader 與 prometheus.Collector
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}
	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attribute.String("service.name", "bank")),
	)
	if err != nil && !errors.Is(err, resource.ErrPartialResource) {
		return nil, nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("prometheus metrics enabled", zap.String("addr", addr))

	shutdown := func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), provider.Shutdown(ctx))
	}
	return provider, shutdown, nil
}
