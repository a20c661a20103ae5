package monitor

import (
	"testing"

	"RangeSSE/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.ObserveFetch("PiBas", "index", utils.Unit(1), 3)
	r.ObserveProbes("PiBas", 2)
	r.ObserveBuild("PiBas", 10)
	r.ObserveUpdate("SDa", 0)
	r.Reset()
	assert.Nil(t, r.Fetches())
	assert.Equal(t, AccessStats{}, r.Stats())
}

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := NewRecorder(m)

	r.ObserveFetch("LogSRCi", "index1", utils.Range{Start: 0, End: 3}, 2)
	r.ObserveFetch("LogSRCi", "index2", utils.Range{Start: 4, End: 5}, 4)
	r.ObserveProbes("PiBas", 7)
	r.ObserveBuild("PiBas", 12)
	r.ObserveUpdate("SDa", 2)

	require.Len(t, r.Fetches(), 2)
	assert.Equal(t, Fetch{Scheme: "LogSRCi", Index: "index2", Key: utils.Range{Start: 4, End: 5}, Entries: 4}, r.Fetches()[1])

	stats := r.Stats()
	assert.Equal(t, uint64(2), stats.FetchCount)
	assert.Equal(t, uint64(6), stats.EntryCount)
	assert.Equal(t, uint64(7), stats.ProbeCount)
	assert.Equal(t, uint64(12), stats.BuiltEntries)
	assert.Equal(t, 3.0, stats.EntriesPerFetch())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.bucketFetches.WithLabelValues("LogSRCi", "index1")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.probes.WithLabelValues("PiBas")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotMerges.WithLabelValues("SDa", "2")))

	r.Reset()
	assert.Empty(t, r.Fetches())
	assert.Equal(t, uint64(2), r.Stats().FetchCount)
}
