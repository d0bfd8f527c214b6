// Package loyalty computes the tiered loyalty discount for an order from the
// customer's cumulative spend over a rolling period.
package loyalty

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/loyalty-discount/internal/domain/currency"
	"github.com/xenking/loyalty-discount/internal/domain/order"
)

// Title is the name shown on the order-total line.
const Title = "Loyalty Discount"

// Skip explains why an evaluation produced no discount. Skips are normal
// outcomes, not errors.
type Skip string

const (
	SkipNone          Skip = ""
	SkipInvalidConfig Skip = "invalid_config"
	SkipDisabled      Skip = "disabled"
	SkipGuest         Skip = "guest"
	SkipCoupon        Skip = "coupon"
	SkipBelowTier     Skip = "below_tier"
	SkipZeroDiscount  Skip = "zero_discount"
)

// Result is the outcome of one successful evaluation.
type Result struct {
	Period          Period
	CumulativeSpend decimal.Decimal
	Threshold       decimal.Decimal
	Percentage      decimal.Decimal
	Basis           decimal.Decimal
	// Amount is the total reduction of the order total. It includes
	// TaxAdjustment when tax is recalculated.
	Amount decimal.Decimal
	// NetAmount is Amount without the tax portion.
	NetAmount           decimal.Decimal
	TaxAdjustment       decimal.Decimal
	TaxGroupAdjustments map[string]decimal.Decimal
	Description         string
	// Text is Amount formatted in the order currency.
	Text string
}

// Line renders the result as an order-total line.
func (r *Result) Line(code string, sortOrder int) order.TotalLine {
	return order.TotalLine{
		Code:      code,
		Title:     Title + ": " + r.Description,
		Text:      r.Text,
		Value:     r.Amount,
		SortOrder: sortOrder,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracerProvider sets the tracer provider used for evaluation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used for evaluation metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// WithClock overrides the clock used to compute lookback cutoffs.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.history.now = now }
}

// Engine evaluates the loyalty discount for one order at a time. It holds no
// per-order state and is safe for concurrent use.
type Engine struct {
	cfg       Config
	history   *Aggregator
	formatter currency.Formatter

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	metrics        *metrics
}

// NewEngine creates an Engine. The configuration is validated on every
// evaluation, so an invalid cfg disables the discount instead of failing here.
func NewEngine(cfg Config, history HistoryRepository, f currency.Formatter, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:            cfg,
		history:        NewAggregator(history),
		formatter:      f,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(e)
	}

	e.tracer = e.tracerProvider.Tracer(instrumentationName)
	m, err := newMetrics(e.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}
	e.metrics = m
	return e, nil
}

// SortOrder returns the configured position of the loyalty line.
func (e *Engine) SortOrder() int {
	return e.cfg.SortOrder
}

// Check validates the configuration. A non-nil result means the discount is
// disabled; the message is meant for administrators only.
func (e *Engine) Check() error {
	_, err := e.cfg.compile()
	return err
}

// Title returns the module title for administrative views, annotated with
// the validation message when the configuration is unusable.
func (e *Engine) Title() string {
	if err := e.Check(); err != nil {
		return fmt.Sprintf("%s (disabled: %s)", Title, err)
	}
	return Title
}

// Status summarises the configuration for administrative views.
type Status struct {
	Enabled bool
	Title   string
	Period  Period
	Tiers   []Rule
	Error   string
}

// Status reports whether the discount is active and with which tiers.
func (e *Engine) Status() Status {
	st := Status{Enabled: e.cfg.Enabled, Title: e.Title()}
	s, err := e.cfg.compile()
	if err != nil {
		st.Enabled = false
		st.Error = err.Error()
		return st
	}
	st.Period = s.period
	st.Tiers = s.table.Rules()
	return st
}

// Preview is a customer's standing without an order.
type Preview struct {
	CustomerID      string
	Period          Period
	CumulativeSpend decimal.Decimal
	Tier            *Rule
}

// Preview computes the cumulative spend and applicable tier for customerID.
func (e *Engine) Preview(ctx context.Context, customerID string) (*Preview, error) {
	s, err := e.cfg.compile()
	if err != nil {
		return nil, err
	}
	spend, err := e.history.CumulativeSpend(ctx, customerID, s.statuses, s.period)
	if err != nil {
		return nil, err
	}
	p := &Preview{CustomerID: customerID, Period: s.period, CumulativeSpend: spend}
	if rule, ok := s.table.TierFor(spend); ok {
		p.Tier = &rule
	}
	return p, nil
}

// Process evaluates the discount for o and, when one applies, reduces
// o.Total, o.Tax and o.TaxGroups in place. A nil result with a nil error
// means no discount applies and o is unchanged. Order history failures are
// returned as *DataSourceError and leave o unchanged.
//
// Process must run exactly once per order-total build.
func (e *Engine) Process(ctx context.Context, o *order.Order) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "loyalty.Process",
		trace.WithAttributes(attribute.String("customer.id", o.CustomerID)),
	)
	defer span.End()

	lg := zctx.From(ctx).With(zap.String("customer_id", o.CustomerID), zap.String("order_id", o.ID))

	res, skip, err := e.evaluate(ctx, lg, o)
	switch {
	case err != nil:
		e.metrics.outcome(ctx, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluate loyalty discount")
		return nil, err
	case skip != SkipNone:
		e.metrics.outcome(ctx, string(skip))
		span.SetAttributes(attribute.String("loyalty.skip", string(skip)))
		lg.Debug("Loyalty discount skipped", zap.String("reason", string(skip)))
		return nil, nil
	}

	e.metrics.outcome(ctx, "applied")
	e.metrics.discount(ctx, res.Amount, o.Currency)
	span.SetAttributes(
		attribute.String("loyalty.percentage", res.Percentage.String()),
		attribute.String("loyalty.amount", res.Amount.String()),
	)
	lg.Debug("Loyalty discount applied",
		zap.Stringer("percentage", res.Percentage),
		zap.Stringer("amount", res.Amount),
		zap.Stringer("tax_adjustment", res.TaxAdjustment),
	)
	return res, nil
}

func (e *Engine) evaluate(ctx context.Context, lg *zap.Logger, o *order.Order) (*Result, Skip, error) {
	s, err := e.cfg.compile()
	if err != nil {
		lg.Warn("Loyalty discount disabled by invalid configuration", zap.Error(err))
		return nil, SkipInvalidConfig, nil
	}
	if !e.cfg.Enabled {
		return nil, SkipDisabled, nil
	}
	if o.Guest || o.CustomerID == "" {
		return nil, SkipGuest, nil
	}
	if o.CouponCode != "" {
		return nil, SkipCoupon, nil
	}

	spend, err := e.history.CumulativeSpend(ctx, o.CustomerID, s.statuses, s.period)
	if err != nil {
		return nil, SkipNone, err
	}
	rule, ok := s.table.TierFor(spend)
	if !ok {
		return nil, SkipBelowTier, nil
	}

	places := e.formatter.DecimalPlaces(o.Currency)
	round := func(v decimal.Decimal) decimal.Decimal { return v.Round(places) }
	pct := rule.Percentage

	basis := ComputeBasis(o, places, e.cfg.IncludeTax, e.cfg.IncludeShipping)

	amount := round(basis.Amount.Mul(pct).Div(hundred))
	if amount.GreaterThan(o.Total) {
		amount = decimal.Max(o.Total, zero)
	}
	if !amount.IsPositive() {
		return nil, SkipZeroDiscount, nil
	}

	taxAdjustment := zero
	var groupShares map[string]decimal.Decimal
	if e.cfg.RecalculateTax && e.cfg.IncludeTax {
		discountedTaxes := basis.NonGiftTax
		if e.cfg.IncludeShipping {
			discountedTaxes = round(discountedTaxes.Add(basis.ShippingTax))
		}
		taxAdjustment = decimal.Min(round(discountedTaxes.Mul(pct).Div(hundred)), amount)
		groupShares = splitTaxAdjustment(basis.TaxGroups, pct, taxAdjustment, places)
	}

	res := &Result{
		Period:              s.period,
		CumulativeSpend:     spend,
		Threshold:           rule.Threshold,
		Percentage:          pct,
		Basis:               basis.Amount,
		Amount:              amount,
		NetAmount:           round(amount.Sub(taxAdjustment)),
		TaxAdjustment:       taxAdjustment,
		TaxGroupAdjustments: groupShares,
		Description:         e.describe(s.period, spend, pct, o.Currency),
		Text:                e.formatter.Format(amount, o.Currency),
	}

	// Nothing is written to the order before this point.
	o.Total = round(o.Total.Sub(amount))
	if taxAdjustment.IsPositive() {
		o.Tax = round(o.Tax.Sub(taxAdjustment))
		o.EnsureTaxGroups()
		for g, share := range groupShares {
			if cur, ok := o.TaxGroups[g]; ok {
				o.TaxGroups[g] = round(cur.Sub(share))
			}
		}
	}

	return res, SkipNone, nil
}

func (e *Engine) describe(p Period, spend, pct decimal.Decimal, currencyCode string) string {
	var shipping, tax string
	if e.cfg.IncludeShipping {
		if e.cfg.IncludeTax {
			shipping = ", shipping-cost"
		} else {
			shipping = " and shipping-cost"
		}
	}
	if e.cfg.IncludeTax {
		tax = " and associated taxes"
	}
	return fmt.Sprintf(
		"Because of your previous purchases %s totalling %s, this order qualifies for a discount of %s%% on its products%s%s.",
		p.Label(), e.formatter.Format(spend, currencyCode), pct.String(), shipping, tax,
	)
}

// splitTaxAdjustment reduces every tax group by pct of its value. Shares
// are reconciled to the rounded percentage of the groups' combined value,
// capped at limit: a surplus goes to the largest group, a shortfall is taken
// from the largest groups first. No share is ever negative, and tax that
// belongs to no group never lands on one.
func splitTaxAdjustment(groups map[string]decimal.Decimal, pct, limit decimal.Decimal, places int32) map[string]decimal.Decimal {
	if len(groups) == 0 || !limit.IsPositive() {
		return nil
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	// Largest group first, ties by name.
	slices.SortFunc(names, func(a, b string) int {
		if c := groups[b].Cmp(groups[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	shares := make(map[string]decimal.Decimal, len(groups))
	sum, value := zero, zero
	for _, g := range names {
		share := decimal.Max(groups[g].Mul(pct).Div(hundred).Round(places), zero)
		shares[g] = share
		sum = sum.Add(share)
		value = value.Add(groups[g])
	}
	target := decimal.Min(decimal.Max(value.Mul(pct).Div(hundred).Round(places), zero), limit)

	diff := target.Sub(sum)
	if diff.IsPositive() {
		shares[names[0]] = shares[names[0]].Add(diff)
		return shares
	}
	for _, g := range names {
		if !diff.IsNegative() {
			break
		}
		take := decimal.Min(shares[g], diff.Neg())
		shares[g] = shares[g].Sub(take)
		diff = diff.Add(take)
	}
	return shares
}
