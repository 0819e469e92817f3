package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeReplay   = "replay"
	OutcomeFailed   = "failed"
)

// Metrics holds the counters the services record.  A nil *Metrics records
// nothing.
type Metrics struct {
	reservations  metric.Int64Counter
	payments      metric.Int64Counter
	confirmations metric.Int64Counter
	notifyFailed  metric.Int64Counter
	searchResults metric.Int64Histogram
}

// NewMetrics creates instruments on m.  Pass nil to use the global meter
// provider.
func NewMetrics(m metric.Meter) (*Metrics, error) {
	if m == nil {
		m = otel.Meter("github.com/travelhub/busticket")
	}
	var (
		out Metrics
		err error
	)
	if out.reservations, err = m.Int64Counter("busticket.reservations",
		metric.WithDescription("Seat reservation attempts by outcome")); err != nil {
		return nil, err
	}
	if out.payments, err = m.Int64Counter("busticket.payments.initiated",
		metric.WithDescription("Payment sessions requested by outcome")); err != nil {
		return nil, err
	}
	if out.confirmations, err = m.Int64Counter("busticket.payments.confirmations",
		metric.WithDescription("Gateway callbacks by outcome")); err != nil {
		return nil, err
	}
	if out.notifyFailed, err = m.Int64Counter("busticket.notifications.failed",
		metric.WithDescription("Booking confirmations that could not be dispatched")); err != nil {
		return nil, err
	}
	if out.searchResults, err = m.Int64Histogram("busticket.search.results",
		metric.WithDescription("Trips matched per search"), metric.WithUnit("{trip}")); err != nil {
		return nil, err
	}
	return &out, nil
}

func outcome(o string) metric.AddOption {
	return metric.WithAttributes(attribute.String("outcome", o))
}

// Reservation counts one Reserve call.
func (m *Metrics) Reservation(ctx context.Context, o string) {
	if m == nil {
		return
	}
	m.reservations.Add(ctx, 1, outcome(o))
}

// PaymentInitiated counts one InitiatePayment call.
func (m *Metrics) PaymentInitiated(ctx context.Context, o string) {
	if m == nil {
		return
	}
	m.payments.Add(ctx, 1, outcome(o))
}

// Confirmation counts one gateway callback.
func (m *Metrics) Confirmation(ctx context.Context, o string) {
	if m == nil {
		return
	}
	m.confirmations.Add(ctx, 1, outcome(o))
}

// NotificationFailed counts a swallowed notifier error.
func (m *Metrics) NotificationFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.notifyFailed.Add(ctx, 1)
}

// SearchResults records the total of one search.
func (m *Metrics) SearchResults(ctx context.Context, total int64) {
	if m == nil {
		return
	}
	m.searchResults.Record(ctx, total)
}
