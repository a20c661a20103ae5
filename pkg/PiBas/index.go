package PiBas

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"RangeSSE/pkg/monitor"
	"RangeSSE/pkg/storage"
	"RangeSSE/pkg/utils"

	"go.uber.org/zap"
)

type Options struct {
	Placement Placement
	// Buckets backs ResultHiding tables; RAM by default.
	Buckets storage.BucketFactory
	// Labels backs ResultRevealing stores; RAM by default.
	Labels storage.LabelFactory
	// Capacity overrides the table size of ResultHiding, 0 sizes it to the entry count.
	Capacity uint64
	Rand     io.Reader
	Logger   *zap.Logger
	Recorder *monitor.Recorder
	// Name labels logs and leakage records.
	Name string
}

// WithDefaults fills unset stores, randomness, logger and name.
func (o Options) WithDefaults() Options {
	if o.Buckets == nil {
		o.Buckets = storage.RAMBuckets()
	}
	if o.Labels == nil {
		o.Labels = storage.RAMLabels()
	}
	if o.Rand == nil {
		o.Rand = rand.Reader
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Name == "" {
		o.Name = "PiBas"
	}
	return o
}

// Index is a client and its server for values of type T keyed by range.
type Index[T any] struct {
	mu     sync.RWMutex
	opts   Options
	client *Client[T]
	server *Server
	size   int
}

func NewIndex[T any](codec utils.Codec[T], opts Options) *Index[T] {
	opts = opts.WithDefaults()
	return &Index[T]{opts: opts, client: NewClient(codec, opts.Rand)}
}

// Setup generates fresh keys and drops any built index.
func (x *Index[T]) Setup(secParam int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.client.Setup(secParam); err != nil {
		return err
	}
	err := x.closeServer()
	x.size = 0
	return err
}

func (x *Index[T]) closeServer() error {
	if x.server == nil {
		return nil
	}
	err := x.server.Close()
	x.server = nil
	return err
}

// BuildIndex encrypts db into a fresh store. The previous index stays
// searchable until the new one is complete.
func (x *Index[T]) BuildIndex(db utils.Database[T]) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.client.Ready() {
		return utils.ErrNotSetup
	}

	var server *Server
	var err error
	if x.opts.Placement == ResultRevealing {
		server, err = x.buildLabels(db)
	} else {
		server, err = x.buildTable(db)
	}
	if err != nil {
		return err
	}

	if err := x.closeServer(); err != nil {
		x.opts.Logger.Warn("close replaced index", zap.String("scheme", x.opts.Name), zap.Error(err))
	}
	x.server = server
	x.size = len(db)
	x.opts.Recorder.ObserveBuild(x.opts.Name, len(db))
	x.opts.Logger.Debug("built index",
		zap.String("scheme", x.opts.Name),
		zap.Stringer("placement", x.opts.Placement),
		zap.Int("entries", len(db)))
	return nil
}

type sealed struct {
	key   utils.Range
	entry storage.Entry
}

func (x *Index[T]) seal(db utils.Database[T]) ([]sealed, error) {
	out := make([]sealed, 0, len(db))
	for _, g := range db.Group() {
		token := x.client.Token(g.Key)
		for i, v := range g.Values {
			e, err := x.client.Seal(g.Key, Label(x.opts.Placement, token, uint64(i)), v)
			if err != nil {
				return nil, fmt.Errorf("seal %s/%d: %w", g.Key, i, err)
			}
			out = append(out, sealed{key: g.Key, entry: e})
		}
	}
	return out, nil
}

func (x *Index[T]) buildTable(db utils.Database[T]) (*Server, error) {
	entries, err := x.seal(db)
	if err != nil {
		return nil, err
	}
	capacity := uint64(len(entries))
	if x.opts.Capacity != 0 {
		capacity = x.opts.Capacity
	}

	cells := make([]storage.Cell, 0, len(entries))
	occupied := make([]bool, capacity)
	for _, s := range entries {
		if capacity == 0 {
			return nil, fmt.Errorf("%w: no slot for %s", utils.ErrIndexFull, s.key)
		}
		slot := home(s.entry.Label, capacity)
		placed := false
		for p := uint64(0); p < capacity; p++ {
			at := (slot + p) % capacity
			if !occupied[at] {
				occupied[at] = true
				cells = append(cells, storage.Cell{Off: at, Entry: s.entry})
				placed = true
				break
			}
		}
		if !placed {
			return nil, fmt.Errorf("%w: %d slots for %d entries", utils.ErrIndexFull, capacity, len(entries))
		}
	}

	store, err := x.opts.Buckets(x.client.Layout())
	if err != nil {
		return nil, err
	}
	if err := store.Init(capacity); err != nil {
		store.Close()
		return nil, err
	}
	if err := storage.WriteCells(store, cells); err != nil {
		store.Close()
		return nil, err
	}
	return &Server{placement: ResultHiding, buckets: store, recorder: x.opts.Recorder, name: x.opts.Name}, nil
}

func (x *Index[T]) buildLabels(db utils.Database[T]) (*Server, error) {
	entries, err := x.seal(db)
	if err != nil {
		return nil, err
	}
	store, err := x.opts.Labels()
	if err != nil {
		return nil, err
	}
	batch := make([]storage.Entry, len(entries))
	for i, s := range entries {
		batch[i] = s.entry
	}
	if err := store.PutBatch(batch); err != nil {
		store.Close()
		return nil, err
	}
	return &Server{placement: ResultRevealing, labels: store, recorder: x.opts.Recorder, name: x.opts.Name}, nil
}

// Search returns the values stored under w, none if w was never indexed.
func (x *Index[T]) Search(w utils.Range) ([]T, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if !x.client.Ready() {
		return nil, utils.ErrNotSetup
	}
	if x.server == nil {
		return nil, nil
	}

	entries, err := x.server.Search(x.client.Token(w))
	if err != nil {
		return nil, err
	}
	x.opts.Recorder.ObserveFetch(x.opts.Name, x.opts.Placement.String(), w, len(entries))

	values := make([]T, 0, len(entries))
	for _, e := range entries {
		v, err := x.client.Open(w, e)
		if err != nil {
			x.opts.Logger.Error("corrupted entry", zap.String("scheme", x.opts.Name), zap.Stringer("key", w), zap.Error(err))
			return nil, fmt.Errorf("open entry of %s: %w", w, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// Len is the number of entries in the built index.
func (x *Index[T]) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.size
}

func (x *Index[T]) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.closeServer()
}
