// Package LogSRC is the single-tree range scheme: every record is replicated
// into each TDAG node covering its keyword, and a range query fetches the one
// bucket of its single range cover.
package LogSRC

import (
	"fmt"
	"slices"
	"sync"

	"RangeSSE/pkg/PiBas"
	"RangeSSE/pkg/TDAG"
	"RangeSSE/pkg/utils"

	"go.uber.org/zap"
)

type Scheme struct {
	mu        sync.RWMutex
	opts      PiBas.Options
	tree      *TDAG.Tree
	index     *PiBas.Index[utils.Record]
	plaintext utils.Database[utils.Record]
}

func New(opts PiBas.Options) *Scheme {
	if opts.Name == "" {
		opts.Name = "LogSRC"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheme{opts: opts}
}

func Factory(opts PiBas.Options) utils.SchemeFactory {
	return func() utils.Scheme { return New(opts) }
}

// replicate places every record at each tree node covering its keyword.
func replicate(tree *TDAG.Tree, db utils.Database[utils.Record]) utils.Database[utils.Record] {
	cache := make(map[uint64][]TDAG.NodeID)
	out := make(utils.Database[utils.Record], 0, len(db)*(tree.Height()+1))
	for _, p := range db {
		kw := p.Value.Keyword
		nodes, ok := cache[kw]
		if !ok {
			nodes = tree.CoveringNodes(utils.Unit(kw))
			cache[kw] = nodes
		}
		for _, n := range nodes {
			out = append(out, utils.Pair[utils.Record]{Value: p.Value, Key: tree.Range(n)})
		}
	}
	return out
}

func (s *Scheme) Setup(secParam int, db utils.Database[utils.Record]) error {
	index := PiBas.NewIndex[utils.Record](utils.RecordCodec{}, s.opts)
	if err := index.Setup(secParam); err != nil {
		return err
	}

	var tree *TDAG.Tree
	if domain, ok := utils.KeywordDomain(db); ok {
		var err error
		if tree, err = TDAG.BuildDomain(domain); err != nil {
			index.Close()
			return fmt.Errorf("build keyword tree: %w", err)
		}
		replicated := replicate(tree, db)
		if err := index.BuildIndex(replicated); err != nil {
			index.Close()
			return err
		}
		s.opts.Logger.Debug("replicated records",
			zap.String("scheme", s.opts.Name),
			zap.Int("records", len(db)),
			zap.Int("entries", len(replicated)),
			zap.Int("nodes", tree.Len()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		s.index.Close()
	}
	s.tree = tree
	s.index = index
	s.plaintext = slices.Clone(db)
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
	if s.tree == nil {
		return nil, nil
	}
	q, ok := q.Intersect(s.tree.Domain())
	if !ok {
		return nil, nil
	}
	node, ok := s.tree.FindCover(q)
	if !ok {
		return nil, nil
	}
	records, err := s.index.Search(s.tree.Range(node))
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
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}
