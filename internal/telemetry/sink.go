// Package telemetry exposes the process's operational counters as
// Prometheus metrics, scraped over /metrics the way the rest of the
// retrieved pack's services do.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sink is the telemetry surface every component reports through, instead
// of holding package-level counters directly. A nil *Sink method receiver
// is never passed around; call New once at startup and share it.
type Sink struct {
	SyncFilesProcessed prometheus.Counter
	SyncNodesEmbedded  prometheus.Counter
	SyncDuration       prometheus.Histogram
	KeyRotations       prometheus.Counter
	ProviderFailures   *prometheus.CounterVec
	RetrievalDuration  prometheus.Histogram
	CacheHits          *prometheus.CounterVec
	JournalRollbacks   prometheus.Counter
}

// New registers every counter/histogram against reg and returns the sink.
func New(reg prometheus.Registerer) *Sink {
	factory := promauto.With(reg)
	return &Sink{
		SyncFilesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "coderag_sync_files_processed_total",
			Help: "Number of files processed by the sync engine across all runs.",
		}),
		SyncNodesEmbedded: factory.NewCounter(prometheus.CounterOpts{
			Name: "coderag_sync_nodes_embedded_total",
			Help: "Number of code nodes successfully embedded during sync.",
		}),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "coderag_sync_duration_seconds",
			Help:    "Duration of a single sync run.",
			Buckets: prometheus.DefBuckets,
		}),
		KeyRotations: factory.NewCounter(prometheus.CounterOpts{
			Name: "coderag_keypool_rotations_total",
			Help: "Number of key or model rotations performed by the key pool.",
		}),
		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coderag_provider_failures_total",
			Help: "Provider call failures, labeled by kind (transient/terminal).",
		}, []string{"kind"}),
		RetrievalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "coderag_retrieval_duration_seconds",
			Help:    "Duration of a single retrieval engine run.",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coderag_cache_requests_total",
			Help: "Cache lookups, labeled by tier (embedding/answer) and outcome (hit/miss).",
		}, []string{"tier", "outcome"}),
		JournalRollbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "coderag_journal_rollbacks_total",
			Help: "Number of atomic journal rollbacks triggered by validation failure or crash recovery.",
		}),
	}
}

// Handler returns the HTTP handler that serves the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
