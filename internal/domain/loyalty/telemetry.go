package loyalty

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/xenking/loyalty-discount/internal/domain/loyalty"

type metrics struct {
	evaluations metric.Int64Counter
	discounted  metric.Float64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	evaluations, err := meter.Int64Counter("loyalty.evaluations",
		metric.WithDescription("Loyalty discount evaluations by outcome."),
	)
	if err != nil {
		return nil, errors.Wrap(err, "evaluations counter")
	}
	discounted, err := meter.Float64Counter("loyalty.discounted",
		metric.WithDescription("Total loyalty discount granted."),
	)
	if err != nil {
		return nil, errors.Wrap(err, "discounted counter")
	}
	return &metrics{evaluations: evaluations, discounted: discounted}, nil
}

func (m *metrics) outcome(ctx context.Context, outcome string) {
	m.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metrics) discount(ctx context.Context, amount decimal.Decimal, currency string) {
	m.discounted.Add(ctx, amount.InexactFloat64(), metric.WithAttributes(attribute.String("currency", currency)))
}
