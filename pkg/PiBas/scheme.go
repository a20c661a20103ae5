package PiBas

import (
	"slices"
	"sync"

	"RangeSSE/pkg/utils"
)

// Scheme indexes records under their keyword and answers a range query with
// one lookup per indexed keyword inside the range.
type Scheme struct {
	mu        sync.RWMutex
	opts      Options
	index     *Index[utils.Record]
	plaintext utils.Database[utils.Record]
	// keywords is every indexed keyword, ascending.
	keywords []uint64
}

func New(opts Options) *Scheme {
	return &Scheme{opts: opts.WithDefaults()}
}

// Factory makes schemes sharing opts for the update layer.
func Factory(opts Options) utils.SchemeFactory {
	return func() utils.Scheme { return New(opts) }
}

func (s *Scheme) Setup(secParam int, db utils.Database[utils.Record]) error {
	index := NewIndex[utils.Record](utils.RecordCodec{}, s.opts)
	if err := index.Setup(secParam); err != nil {
		return err
	}
	if err := index.BuildIndex(db); err != nil {
		index.Close()
		return err
	}
	var keywords []uint64
	for _, k := range db.Keys() {
		keywords = append(keywords, k.Start)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		s.index.Close()
	}
	s.index = index
	s.plaintext = slices.Clone(db)
	s.keywords = keywords
	return nil
}

func (s *Scheme) Search(q utils.Range) ([]utils.Record, error) {
	records, err := s.SearchRaw(q)
	if err != nil {
		return nil, err
	}
	return utils.Reconcile(records), nil
}

func (s *Scheme) SearchRaw(q utils.Range) ([]utils.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil, utils.ErrNotSetup
	}

	var out []utils.Record
	i, _ := slices.BinarySearch(s.keywords, q.Start)
	for _, kw := range s.keywords[i:] {
		if kw > q.End {
			break
		}
		records, err := s.index.Search(utils.Unit(kw))
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func (s *Scheme) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plaintext) == 0
}

func (s *Scheme) Plaintext() utils.Database[utils.Record] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.plaintext)
}

func (s *Scheme) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}
