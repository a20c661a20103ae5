// Package monitor records what the untrusted store observes while serving
// queries: which bucket was fetched and how many entries came back.
package monitor

import (
	"sync"
	"sync/atomic"

	"RangeSSE/pkg/utils"
)

type AccessStats struct {
	FetchCount   uint64
	EntryCount   uint64
	ProbeCount   uint64
	BuildCount   uint64
	UpdateCount  uint64
	BuiltEntries uint64
}

func (s *AccessStats) snapshot() AccessStats {
	return AccessStats{
		FetchCount:   atomic.LoadUint64(&s.FetchCount),
		EntryCount:   atomic.LoadUint64(&s.EntryCount),
		ProbeCount:   atomic.LoadUint64(&s.ProbeCount),
		BuildCount:   atomic.LoadUint64(&s.BuildCount),
		UpdateCount:  atomic.LoadUint64(&s.UpdateCount),
		BuiltEntries: atomic.LoadUint64(&s.BuiltEntries),
	}
}

// EntriesPerFetch is the mean bucket size observed so far.
func (s AccessStats) EntriesPerFetch() float64 {
	if s.FetchCount == 0 {
		return 0
	}
	return float64(s.EntryCount) / float64(s.FetchCount)
}

// Fetch is one bucket access as seen by the store. Key identifies the
// fetched bucket, a tree node or keyword range; the store itself only sees
// the token derived from it.
type Fetch struct {
	Scheme  string
	Index   string
	Key     utils.Range
	Entries int
}

// Recorder collects the leakage of a scheme. A nil Recorder records nothing.
type Recorder struct {
	mu      sync.Mutex
	fetches []Fetch
	stats   AccessStats
	metrics *Metrics
}

// NewRecorder reports to m as well when m is not nil.
func NewRecorder(m *Metrics) *Recorder {
	return &Recorder{metrics: m}
}

func (r *Recorder) ObserveFetch(scheme, index string, key utils.Range, entries int) {
	if r == nil {
		return
	}
	atomic.AddUint64(&r.stats.FetchCount, 1)
	atomic.AddUint64(&r.stats.EntryCount, uint64(entries))
	r.mu.Lock()
	r.fetches = append(r.fetches, Fetch{Scheme: scheme, Index: index, Key: key, Entries: entries})
	r.mu.Unlock()
	r.metrics.fetch(scheme, index, entries)
}

func (r *Recorder) ObserveProbes(scheme string, probes int) {
	if r == nil {
		return
	}
	atomic.AddUint64(&r.stats.ProbeCount, uint64(probes))
	r.metrics.probe(scheme, probes)
}

func (r *Recorder) ObserveBuild(scheme string, entries int) {
	if r == nil {
		return
	}
	atomic.AddUint64(&r.stats.BuildCount, 1)
	atomic.AddUint64(&r.stats.BuiltEntries, uint64(entries))
	r.metrics.build(scheme, entries)
}

func (r *Recorder) ObserveUpdate(scheme string, slot int) {
	if r == nil {
		return
	}
	atomic.AddUint64(&r.stats.UpdateCount, 1)
	r.metrics.update(scheme, slot)
}

// Fetches returns every recorded fetch in order.
func (r *Recorder) Fetches() []Fetch {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Fetch(nil), r.fetches...)
}

func (r *Recorder) Stats() AccessStats {
	if r == nil {
		return AccessStats{}
	}
	return r.stats.snapshot()
}

// Reset forgets recorded fetches; counters keep running.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.fetches = nil
	r.mu.Unlock()
}
