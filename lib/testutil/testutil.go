// Package testutil sets up the shared infrastructure tests run against.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	_ "modernc.org/sqlite"
)

// Telemetry holds in-memory exporters for everything recorded through the
// global otel providers.
type Telemetry struct {
	Spans   *tracetest.SpanRecorder
	Metrics *metric.ManualReader
}

var setupOnce sync.Once
var shared Telemetry

// SetupTelemetry installs in-memory global providers. It only takes effect
// once per test binary, later calls return the same recorders so counters
// should be compared before and after the code under test.
func SetupTelemetry(t testing.TB) Telemetry {
	setupOnce.Do(func() {
		shared = Telemetry{
			Spans:   tracetest.NewSpanRecorder(),
			Metrics: metric.NewManualReader(),
		}
		otel.SetTracerProvider(trace.NewTracerProvider(trace.WithSpanProcessor(shared.Spans)))
		otel.SetMeterProvider(metric.NewMeterProvider(metric.WithReader(shared.Metrics)))
	})
	return shared
}

// Counter returns the sum over all attribute sets of the int64 counter name.
func (tel Telemetry) Counter(t testing.TB, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	err := tel.Metrics.Collect(context.Background(), &rm)
	if err != nil {
		t.Fatal(err)
	}

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is a %T, not an int64 sum", name, m.Data)
			}
			for _, point := range sum.DataPoints {
				total += point.Value
			}
		}
	}
	return total
}

// EndedSpans returns the names of every span ended so far.
func (tel Telemetry) EndedSpans() []string {
	var names []string
	for _, span := range tel.Spans.Ended() {
		names = append(names, span.Name())
	}
	return names
}

// OpenDB opens a sqlite database in a temporary directory with schema applied,
// it is closed with the test.
func OpenDB(t testing.TB, schema string) *sql.DB {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if schema != "" {
		_, err = db.Exec(schema)
		if err != nil {
			t.Fatal(err)
		}
	}
	return db
}
