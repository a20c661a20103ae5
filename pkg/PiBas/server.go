package PiBas

import (
	"bytes"
	"errors"
	"fmt"

	"RangeSSE/pkg/monitor"
	"RangeSSE/pkg/storage"
	"RangeSSE/pkg/utils"
)

// Server stores sealed entries and only ever handles tokens and labels.
type Server struct {
	placement Placement
	buckets   storage.BucketStore
	labels    storage.LabelStore
	recorder  *monitor.Recorder
	name      string
}

// Search returns every entry stored under token, in counter order.
func (s *Server) Search(token []byte) ([]storage.Entry, error) {
	if s.placement == ResultRevealing {
		return s.searchLabels(token)
	}
	return s.searchTable(token)
}

func (s *Server) searchTable(token []byte) ([]storage.Entry, error) {
	capacity := s.buckets.Size()
	if capacity == 0 {
		return nil, nil
	}

	var out []storage.Entry
	probes := 0
	defer func() { s.recorder.ObserveProbes(s.name, probes) }()

	for i := uint64(0); i < capacity; i++ {
		label := Label(ResultHiding, token, i)
		slot := home(label, capacity)
		found := false
		for p := uint64(0); p < capacity; p++ {
			probes++
			e, ok, err := s.buckets.ReadAt((slot + p) % capacity)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			if bytes.Equal(e.Label, label) {
				out = append(out, e)
				found = true
				break
			}
		}
		if !found {
			return out, nil
		}
	}
	return out, nil
}

func (s *Server) searchLabels(token []byte) ([]storage.Entry, error) {
	limit := s.labels.Len()
	var out []storage.Entry
	for counter := 0; ; counter++ {
		if counter > limit {
			return nil, fmt.Errorf("%w: %d labels in a store of %d", utils.ErrProbeLimit, counter, limit)
		}
		e, ok, err := s.labels.Get(Label(ResultRevealing, token, uint64(counter)))
		if err != nil {
			return nil, err
		}
		if !ok {
			s.recorder.ObserveProbes(s.name, counter+1)
			return out, nil
		}
		out = append(out, e)
	}
}

func (s *Server) Close() error {
	var errs []error
	if s.buckets != nil {
		errs = append(errs, s.buckets.Close())
	}
	if s.labels != nil {
		errs = append(errs, s.labels.Close())
	}
	return errors.Join(errs...)
}
