// Package LogSRCi answers range queries with two single range cover lookups.
// TreeA spans the keyword domain and its buckets hold, per keyword, the range
// of positions its records occupy once sorted by keyword. TreeB spans those
// positions and its buckets hold the records themselves.
package LogSRCi

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"RangeSSE/pkg/PiBas"
	"RangeSSE/pkg/TDAG"
	"RangeSSE/pkg/storage"
	"RangeSSE/pkg/utils"

	"go.uber.org/zap"
)

type Options struct {
	PiBas.Options
	Index2 Index2Layout
}

type Scheme struct {
	mu        sync.RWMutex
	opts      Options
	ready     bool
	treeA     *TDAG.Tree
	treeB     *TDAG.Tree
	index1    *PiBas.Index[Summary]
	index2    recordIndex
	plaintext utils.Database[utils.Record]
}

func New(opts Options) *Scheme {
	if opts.Name == "" {
		opts.Name = "LogSRCi"
	}
	opts.Options = opts.Options.WithDefaults()
	return &Scheme{opts: opts}
}

func Factory(opts Options) utils.SchemeFactory {
	return func() utils.Scheme { return New(opts) }
}

func compareRecords(a, b utils.Record) int {
	return cmp.Or(
		cmp.Compare(a.Keyword, b.Keyword),
		cmp.Compare(a.ID, b.ID),
		cmp.Compare(a.Op, b.Op),
	)
}

func (s *Scheme) indexOptions(suffix string) PiBas.Options {
	o := s.opts.Options
	o.Name = s.opts.Name + "/" + suffix
	return o
}

type built struct {
	treeA  *TDAG.Tree
	treeB  *TDAG.Tree
	index1 *PiBas.Index[Summary]
	index2 recordIndex
}

func (b *built) close() error {
	var errs []error
	if b.index1 != nil {
		errs = append(errs, b.index1.Close())
	}
	if b.index2 != nil {
		errs = append(errs, b.index2.Close())
	}
	return errors.Join(errs...)
}

func (s *Scheme) build(secParam int, sorted []utils.Record) (*built, error) {
	b := &built{}
	domain := utils.Range{Start: sorted[0].Keyword, End: sorted[len(sorted)-1].Keyword}
	var err error
	if b.treeA, err = TDAG.BuildDomain(domain); err != nil {
		return nil, fmt.Errorf("build keyword tree: %w", err)
	}
	leafCount := storage.NextPowerOfTwo(uint64(len(sorted)))
	if b.treeB, err = TDAG.BuildDomain(utils.Range{Start: 0, End: leafCount - 1}); err != nil {
		return nil, fmt.Errorf("build position tree: %w", err)
	}

	var db1 utils.Database[Summary]
	for _, sum := range summarize(sorted) {
		for _, n := range b.treeA.CoveringNodes(sum.Keywords) {
			db1 = append(db1, utils.Pair[Summary]{Value: sum, Key: b.treeA.Range(n)})
		}
	}
	b.index1 = PiBas.NewIndex[Summary](SummaryCodec{}, s.indexOptions("index1"))
	if err := b.index1.Setup(secParam); err != nil {
		return nil, err
	}
	if err := b.index1.BuildIndex(db1); err != nil {
		b.close()
		return nil, fmt.Errorf("build keyword index: %w", err)
	}

	opts2 := s.indexOptions("index2")
	if s.opts.Index2 == Hashed {
		b.index2, err = buildHashed(secParam, b.treeB, sorted, opts2)
	} else {
		b.index2, err = buildLocality(secParam, b.treeB, sorted, opts2)
	}
	if err != nil {
		b.close()
		return nil, fmt.Errorf("build position index: %w", err)
	}

	s.opts.Logger.Debug("built two-level index",
		zap.String("scheme", s.opts.Name),
		zap.Int("records", len(sorted)),
		zap.Int("summaries", len(db1)),
		zap.Int("keyword_nodes", b.treeA.Len()),
		zap.Int("position_leaves", b.treeB.LeafCount()),
		zap.Stringer("index2", s.opts.Index2))
	return b, nil
}

func (s *Scheme) Setup(secParam int, db utils.Database[utils.Record]) error {
	if err := utils.CheckSecParam(secParam); err != nil {
		return err
	}
	sorted := db.Values()
	slices.SortStableFunc(sorted, compareRecords)

	b := &built{}
	if len(sorted) > 0 {
		var err error
		if b, err = s.build(secParam, sorted); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old := &built{index1: s.index1, index2: s.index2}
	if err := old.close(); err != nil {
		s.opts.Logger.Warn("close replaced index", zap.String("scheme", s.opts.Name), zap.Error(err))
	}
	s.treeA, s.treeB = b.treeA, b.treeB
	s.index1, s.index2 = b.index1, b.index2
	s.plaintext = slices.Clone(db)
	s.ready = true
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
	if !s.ready {
		return nil, utils.ErrNotSetup
	}
	if s.treeA == nil {
		return nil, nil
	}

	q, ok := q.Intersect(s.treeA.Domain())
	if !ok {
		return nil, nil
	}
	nodeA, ok := s.treeA.FindCover(q)
	if !ok {
		return nil, nil
	}
	summaries, err := s.index1.Search(s.treeA.Range(nodeA))
	if err != nil {
		return nil, err
	}

	var positions utils.Range
	found := false
	for _, sum := range summaries {
		if !q.Contains(sum.Keywords) {
			continue
		}
		if !found {
			positions, found = sum.Positions, true
			continue
		}
		positions = positions.Union(sum.Positions)
	}
	if !found {
		return nil, nil
	}

	nodeB, ok := s.treeB.FindCover(positions)
	if !ok {
		return nil, nil
	}
	records, err := s.index2.Fetch(s.treeB.Range(nodeB))
	if err != nil {
		return nil, err
	}
	return utils.FilterRecords(records, q), nil
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
	b := &built{index1: s.index1, index2: s.index2}
	s.index1, s.index2 = nil, nil
	s.treeA, s.treeB = nil, nil
	s.ready = false
	return b.close()
}
