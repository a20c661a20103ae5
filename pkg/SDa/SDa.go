// Package SDa makes a static range scheme dynamic. Slot i holds either nothing
// or one static index over exactly 2^i records, and an update merges the full
// low slots into the first empty one like a binary counter increment.
package SDa

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"
	"sync"

	"RangeSSE/pkg/monitor"
	"RangeSSE/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// Factory creates the static scheme of each slot.
	Factory utils.SchemeFactory
	// SecParam is used by Update when Setup was never called.
	SecParam int
	Logger   *zap.Logger
	Recorder *monitor.Recorder
	Name     string
}

type Scheme struct {
	mu      sync.RWMutex
	opts    Options
	slots   []utils.Scheme
	applied utils.Database[utils.Record]
}

func New(opts Options) *Scheme {
	if opts.SecParam == 0 {
		opts.SecParam = 128
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "SDa"
	}
	return &Scheme{opts: opts}
}

func (s *Scheme) newSlot(db utils.Database[utils.Record]) (utils.Scheme, error) {
	if s.opts.Factory == nil {
		return nil, fmt.Errorf("%s: no static scheme factory", s.opts.Name)
	}
	slot := s.opts.Factory()
	if err := slot.Setup(s.opts.SecParam, db); err != nil {
		slot.Close()
		return nil, err
	}
	return slot, nil
}

func closeSlots(slots []utils.Scheme) error {
	var errs []error
	for _, slot := range slots {
		if slot != nil {
			errs = append(errs, slot.Close())
		}
	}
	return errors.Join(errs...)
}

// Setup replaces every slot. The records fill the slots given by the binary
// form of len(db), the oldest records in the highest slot.
func (s *Scheme) Setup(secParam int, db utils.Database[utils.Record]) error {
	if err := utils.CheckSecParam(secParam); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.SecParam = secParam

	var slots []utils.Scheme
	n := len(db)
	next := 0
	for i := bits.Len(uint(n)) - 1; i >= 0; i-- {
		size := 1 << i
		if n&size == 0 {
			continue
		}
		if slots == nil {
			slots = make([]utils.Scheme, i+1)
		}
		slot, err := s.newSlot(db[next : next+size])
		if err != nil {
			closeSlots(slots)
			return fmt.Errorf("build slot %d: %w", i, err)
		}
		slots[i] = slot
		next += size
	}

	if err := closeSlots(s.slots); err != nil {
		s.opts.Logger.Warn("close replaced slots", zap.String("scheme", s.opts.Name), zap.Error(err))
	}
	s.slots = slots
	s.applied = slices.Clone(db)
	return nil
}

// Update applies one record. The merged index is built before any slot is
// emptied, so a failed update leaves the scheme unchanged.
func (s *Scheme) Update(r utils.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := slices.Index(s.slots, nil)
	if k < 0 {
		k = len(s.slots)
	}

	batch := make(utils.Database[utils.Record], 0, 1<<k)
	for i := k - 1; i >= 0; i-- {
		batch = append(batch, s.slots[i].Plaintext()...)
	}
	pair := utils.Pair[utils.Record]{Value: r, Key: utils.Unit(r.Keyword)}
	batch = append(batch, pair)

	merged, err := s.newSlot(batch)
	if err != nil {
		return fmt.Errorf("build slot %d: %w", k, err)
	}

	if err := closeSlots(s.slots[:k]); err != nil {
		s.opts.Logger.Warn("close merged slots", zap.String("scheme", s.opts.Name), zap.Error(err))
	}
	for i := 0; i < k; i++ {
		s.slots[i] = nil
	}
	if k == len(s.slots) {
		s.slots = append(s.slots, merged)
	} else {
		s.slots[k] = merged
	}
	s.applied = append(s.applied, pair)

	s.opts.Recorder.ObserveUpdate(s.opts.Name, k)
	if k > 0 {
		s.opts.Logger.Info("merged slots",
			zap.String("scheme", s.opts.Name),
			zap.Int("slot", k),
			zap.Int("records", len(batch)))
	}
	return nil
}

func (s *Scheme) Search(q utils.Range) ([]utils.Record, error) {
	records, err := s.SearchRaw(q)
	if err != nil {
		return nil, err
	}
	return utils.Reconcile(records), nil
}

// SearchRaw queries the occupied slots in parallel. A record and its
// tombstone can sit in different slots, so nothing is reconciled per slot.
func (s *Scheme) SearchRaw(q utils.Range) ([]utils.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([][]utils.Record, len(s.slots))
	var g errgroup.Group
	for i, slot := range s.slots {
		if slot == nil || slot.IsEmpty() {
			continue
		}
		g.Go(func() error {
			records, err := slot.SearchRaw(q)
			if err != nil {
				return fmt.Errorf("search slot %d: %w", i, err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(results...), nil
}

// Occupied reports which slots hold an index, slot 0 first.
func (s *Scheme) Occupied() []bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bool, len(s.slots))
	for i, slot := range s.slots {
		out[i] = slot != nil
	}
	return out
}

func (s *Scheme) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.applied) == 0
}

// Plaintext returns every applied record in application order.
func (s *Scheme) Plaintext() utils.Database[utils.Record] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.applied)
}

func (s *Scheme) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := closeSlots(s.slots)
	s.slots = nil
	return err
}
