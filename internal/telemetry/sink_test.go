package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := New(reg)

	sink.SyncFilesProcessed.Inc()
	sink.CacheHits.WithLabelValues("embedding", "hit").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["coderag_sync_files_processed_total"])
	assert.True(t, names["coderag_cache_requests_total"])
}

func TestSink_CounterIncrementsAreObservable(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := New(reg)
	sink.JournalRollbacks.Add(3)

	var m dto.Metric
	require.NoError(t, sink.JournalRollbacks.Write(&m))
	assert.Equal(t, 3.0, m.GetCounter().GetValue())
}
