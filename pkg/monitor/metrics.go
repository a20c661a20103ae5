package monitor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	bucketFetches  *prometheus.CounterVec
	entriesFetched *prometheus.HistogramVec
	probes         *prometheus.CounterVec
	builds         *prometheus.CounterVec
	builtEntries   *prometheus.CounterVec
	slotMerges     *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		bucketFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rangesse_bucket_fetches_total",
			Help: "Number of buckets fetched from the store",
		}, []string{"scheme", "index"}),
		entriesFetched: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rangesse_bucket_entries",
			Help:    "Entries returned per bucket fetch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"scheme", "index"}),
		probes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rangesse_probes_total",
			Help: "Store slots probed by lookups",
		}, []string{"scheme"}),
		builds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rangesse_index_builds_total",
			Help: "Number of encrypted indexes built",
		}, []string{"scheme"}),
		builtEntries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rangesse_index_entries_total",
			Help: "Encrypted entries written by index builds",
		}, []string{"scheme"}),
		slotMerges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rangesse_slot_merges_total",
			Help: "Updates by the slot that received the merged index",
		}, []string{"scheme", "slot"}),
	}
}

func (m *Metrics) fetch(scheme, index string, entries int) {
	if m == nil {
		return
	}
	m.bucketFetches.WithLabelValues(scheme, index).Inc()
	m.entriesFetched.WithLabelValues(scheme, index).Observe(float64(entries))
}

func (m *Metrics) probe(scheme string, n int) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(scheme).Add(float64(n))
}

func (m *Metrics) build(scheme string, entries int) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(scheme).Inc()
	m.builtEntries.WithLabelValues(scheme).Add(float64(entries))
}

func (m *Metrics) update(scheme string, slot int) {
	if m == nil {
		return
	}
	m.slotMerges.WithLabelValues(scheme, strconv.Itoa(slot)).Inc()
}
