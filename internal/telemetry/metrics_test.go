package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out[m.Name] += dp.Value
			}
		}
	}
	return out
}

func TestMetrics_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	require.NoError(t, err)
	ctx := context.Background()

	m.Login(ctx, "success", "legacy")
	m.Login(ctx, "failure", "organization")
	m.Refresh(ctx, "reuse_detected", "legacy")
	m.Logout(ctx)
	m.Swept(ctx, "refresh_tokens", 3)
	m.Swept(ctx, "revoked_tokens", 0)

	got := collect(t, reader)
	assert.Equal(t, int64(2), got["auth.logins"])
	assert.Equal(t, int64(1), got["auth.refreshes"])
	assert.Equal(t, int64(1), got["auth.logouts"])
	assert.Equal(t, int64(3), got["auth.retention.deleted"])
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Login(context.Background(), "success", "legacy")
	m.Logout(context.Background())

	noop, err := NewMetrics(nil)
	require.NoError(t, err)
	noop.Refresh(context.Background(), "rotated", "platform")
}
