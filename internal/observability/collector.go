package observability

import (
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Sample is one collected data point.
type Sample struct {
	Name       string
	Attributes string
	Value      float64

	// Count is the number of recordings for histograms and zero otherwise.
	Count uint64
}

// Collector is an in-process meter provider whose data can be read on
// demand, used by the console's stats command.
type Collector struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewCollector creates a collector with a manual reader.
func NewCollector() *Collector {
	reader := sdkmetric.NewManualReader()
	return &Collector{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// MeterProvider returns the provider to build recorders from.
func (c *Collector) MeterProvider() metric.MeterProvider {
	return c.provider
}

// Snapshot collects the current value of every instrument, sorted by name
// and attributes.
func (c *Collector) Snapshot(ctx context.Context) ([]Sample, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	var samples []Sample
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for i := range data.DataPoints {
					dp := &data.DataPoints[i]
					samples = append(samples, Sample{
						Name:       m.Name,
						Attributes: encode(&dp.Attributes),
						Value:      float64(dp.Value),
					})
				}
			case metricdata.Histogram[float64]:
				for i := range data.DataPoints {
					dp := &data.DataPoints[i]
					samples = append(samples, Sample{
						Name:       m.Name,
						Attributes: encode(&dp.Attributes),
						Value:      dp.Sum,
						Count:      dp.Count,
					})
				}
			}
		}
	}

	slices.SortFunc(samples, func(a, b Sample) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Attributes, b.Attributes)
	})
	return samples, nil
}

// Shutdown flushes and stops the provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}

func encode(set *attribute.Set) string {
	return set.Encoded(attribute.DefaultEncoder())
}
