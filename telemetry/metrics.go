// Package telemetry provides Prometheus metrics, OpenTelemetry tracing, and
// correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	EventsReceived     prometheus.Counter
	EventsDeduplicated prometheus.Counter
	RaidsCreated       prometheus.Counter
	RaidsUpdated       prometheus.Counter
	BenchUpdates       prometheus.Counter
	PermissionDenials  prometheus.Counter
	OracleOutages      prometheus.Counter
	BackendErrors      prometheus.Counter
	NotifyFailures     prometheus.Counter
	ThreadsDeleted     prometheus.Counter

	// Histograms (seconds)
	BackendRequestDuration prometheus.Observer

	// Gauges
	DedupEntriesGauge prometheus.Gauge
	GatewayUpGauge    prometheus.Gauge // 1=connected,0=down
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		EventsReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_events_received_total", Help: "Chat events entering the correlator"})
		EventsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_events_deduplicated_total", Help: "Events dropped as already-seen occurrences"})
		RaidsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_raids_created_total", Help: "Successful raid create-or-find backend calls"})
		RaidsUpdated = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_raids_updated_total", Help: "Successful raid update backend calls"})
		BenchUpdates = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_bench_updates_total", Help: "Successful bench roster backend calls"})
		PermissionDenials = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_permission_denials_total", Help: "Events rejected because the author lacks raid-manager authority"})
		OracleOutages = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_oracle_outages_total", Help: "Permission checks that failed at the transport level"})
		BackendErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_backend_errors_total", Help: "Backend calls returning failure or unreachable"})
		NotifyFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_notify_failures_total", Help: "Thread send/create/rename calls that errored (swallowed)"})
		ThreadsDeleted = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_threads_deleted_total", Help: "Companion threads removed by the cleanup job"})
		BackendRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "raidwatch_backend_request_duration_seconds", Help: "Temple API request duration seconds", Buckets: prometheus.DefBuckets})
		DedupEntriesGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "raidwatch_dedup_entries", Help: "Live entries in the deduplicator table"})
		GatewayUpGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "raidwatch_gateway_up", Help: "Discord gateway connected=1 down=0"})
	})
}

// SetDedupEntries records the current deduplicator table size.
func SetDedupEntries(n int) {
	if DedupEntriesGauge != nil {
		DedupEntriesGauge.Set(float64(n))
	}
}

// SetGatewayUp sets the gateway gauge to 1 if connected else 0.
func SetGatewayUp(up bool) {
	if GatewayUpGauge != nil {
		if up {
			GatewayUpGauge.Set(1)
		} else {
			GatewayUpGauge.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the given correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
