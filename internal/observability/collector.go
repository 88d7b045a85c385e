package observability

import (
	"context"
	"fmt"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Collector is an in-process metrics pipeline: the instruments in Metrics
// feed a manual reader so a run can report its own totals on exit.
type Collector struct {
	Metrics  *Metrics
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// Total is the aggregate of one instrument across all attribute sets.
// Counters report their sum; histograms report sample count and sum.
type Total struct {
	Name  string
	Count uint64
	Sum   float64
}

// NewCollector creates a Collector backed by the OpenTelemetry SDK.
func NewCollector() (*Collector, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider)
	if err != nil {
		return nil, fmt.Errorf("observability.NewCollector: %w", err)
	}
	return &Collector{Metrics: m, reader: reader, provider: provider}, nil
}

// Totals collects the current values of every instrument, sorted by name.
func (c *Collector) Totals(ctx context.Context) ([]Total, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("observability.Collector.Totals: %w", err)
	}
	var out []Total
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			t := Total{Name: m.Name}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					t.Count += uint64(dp.Value)
					t.Sum += float64(dp.Value)
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					t.Count += dp.Count
					t.Sum += dp.Sum
				}
			default:
				continue
			}
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Shutdown flushes and stops the meter provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}
