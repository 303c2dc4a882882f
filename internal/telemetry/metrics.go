package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "room-booking/auth"

// Metrics holds the auth counters. The zero value is not usable; a nil *Metrics records nothing.
type Metrics struct {
	logins    metric.Int64Counter
	refreshes metric.Int64Counter
	logouts   metric.Int64Counter
	swept     metric.Int64Counter
}

// NewMetrics creates the auth instruments on mp. A nil mp uses a no-op provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	m := mp.Meter(meterName)
	var err error
	out := &Metrics{}
	if out.logins, err = m.Int64Counter("auth.logins",
		metric.WithDescription("Login attempts by outcome and scope")); err != nil {
		return nil, err
	}
	if out.refreshes, err = m.Int64Counter("auth.refreshes",
		metric.WithDescription("Refresh attempts by outcome and scope")); err != nil {
		return nil, err
	}
	if out.logouts, err = m.Int64Counter("auth.logouts",
		metric.WithDescription("Completed logouts")); err != nil {
		return nil, err
	}
	if out.swept, err = m.Int64Counter("auth.retention.deleted",
		metric.WithDescription("Rows deleted by the retention sweeper by table")); err != nil {
		return nil, err
	}
	return out, nil
}

// Login records one login attempt.
func (m *Metrics) Login(ctx context.Context, outcome, scope string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome), attribute.String("scope", scope)))
}

// Refresh records one refresh attempt.
func (m *Metrics) Refresh(ctx context.Context, outcome, scope string) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome), attribute.String("scope", scope)))
}

// Logout records one completed logout.
func (m *Metrics) Logout(ctx context.Context) {
	if m == nil {
		return
	}
	m.logouts.Add(ctx, 1)
}

// Swept records rows deleted from table by one sweep.
func (m *Metrics) Swept(ctx context.Context, table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(ctx, n, metric.WithAttributes(attribute.String("table", table)))
}
