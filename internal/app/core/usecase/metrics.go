package usecase

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
)

const meterName = "github.com/JoeShih716/go-mem-bank/usecase"

const (
	opCreateAccount = "create_account"
	opDeposit       = "deposit"
	opWithdraw      = "withdraw"
	opTransfer      = "transfer"
)

type metrics struct {
	operations metric.Int64Counter
	moved      metric.Int64Counter
}

func newMetrics(provider metric.MeterProvider) (*metrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)

	operations, err := meter.Int64Counter("bank.operations",
		metric.WithDescription("Number of bank operations by outcome"))
	if err != nil {
		return nil, err
	}
	moved, err := meter.Int64Counter("bank.amount.moved",
		metric.WithDescription("Amount moved by successful operations, in minor units"))
	if err != nil {
		return nil, err
	}
	return &metrics{operations: operations, moved: moved}, nil
}

func (m *metrics) record(ctx context.Context, op string, amount domain.Amount, err error) {
	result := "ok"
	if err != nil {
		result = domain.FailureKindOf(err).String()
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("result", result),
	))
	if err == nil && amount > 0 {
		m.moved.Add(ctx, int64(amount), metric.WithAttributes(attribute.String("operation", op)))
	}
}
