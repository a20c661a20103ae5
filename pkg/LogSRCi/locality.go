package LogSRCi

import (
	"fmt"

	"RangeSSE/pkg/PiBas"
	"RangeSSE/pkg/TDAG"
	"RangeSSE/pkg/monitor"
	"RangeSSE/pkg/storage"
	"RangeSSE/pkg/utils"
)

// Index2Layout selects how the position-tree buckets are stored.
type Index2Layout int

const (
	// Locality keeps every bucket contiguous in one store at its layout offset.
	Locality Index2Layout = iota
	// Hashed stores buckets in a PiBas index keyed by node range.
	Hashed
)

func (l Index2Layout) String() string {
	switch l {
	case Locality:
		return "locality"
	case Hashed:
		return "hashed"
	default:
		return fmt.Sprintf("Index2Layout(%d)", int(l))
	}
}

func ParseIndex2Layout(s string) (Index2Layout, error) {
	switch s {
	case "locality", "":
		return Locality, nil
	case "hashed":
		return Hashed, nil
	}
	return 0, fmt.Errorf("unknown index2 layout %q", s)
}

// recordIndex returns the records of one position-tree node.
type recordIndex interface {
	Fetch(node utils.Range) ([]utils.Record, error)
	Close() error
}

type hashedIndex struct {
	*PiBas.Index[utils.Record]
}

func (h hashedIndex) Fetch(node utils.Range) ([]utils.Record, error) {
	return h.Search(node)
}

func buildHashed(secParam int, tree *TDAG.Tree, sorted []utils.Record, opts PiBas.Options) (recordIndex, error) {
	db := make(utils.Database[utils.Record], 0, len(sorted)*(tree.Height()+1))
	for pos, r := range sorted {
		for _, n := range tree.CoveringNodes(utils.Unit(uint64(pos))) {
			db = append(db, utils.Pair[utils.Record]{Value: r, Key: tree.Range(n)})
		}
	}
	x := PiBas.NewIndex[utils.Record](utils.RecordCodec{}, opts)
	if err := x.Setup(secParam); err != nil {
		return nil, err
	}
	if err := x.BuildIndex(db); err != nil {
		x.Close()
		return nil, err
	}
	return hashedIndex{x}, nil
}

// localityIndex lays the buckets of a perfect position tree out level by
// level, so fetching a node is one contiguous read.
type localityIndex struct {
	client    *PiBas.Client[utils.Record]
	store     storage.BucketStore
	leafCount uint64
	recorder  *monitor.Recorder
	name      string
}

func buildLocality(secParam int, tree *TDAG.Tree, sorted []utils.Record, opts PiBas.Options) (recordIndex, error) {
	leafCount := uint64(tree.LeafCount())
	client := PiBas.NewClient[utils.Record](utils.RecordCodec{}, opts.Rand)
	if err := client.Setup(secParam); err != nil {
		return nil, err
	}

	tokens := make(map[TDAG.NodeID][]byte)
	cells := make([]storage.Cell, 0, len(sorted)*(tree.Height()+1))
	for pos, r := range sorted {
		p := uint64(pos)
		for _, n := range tree.CoveringNodes(utils.Unit(p)) {
			node := tree.Range(n)
			rank := p - node.Start
			off, err := storage.Offset(node, node.Size(), rank, tree.Domain().Start, leafCount)
			if err != nil {
				return nil, fmt.Errorf("place position %d in %s: %w", p, node, err)
			}
			token, ok := tokens[n]
			if !ok {
				token = client.Token(node)
				tokens[n] = token
			}
			e, err := client.Seal(node, PiBas.Label(PiBas.ResultHiding, token, rank), r)
			if err != nil {
				return nil, err
			}
			cells = append(cells, storage.Cell{Off: off, Entry: e})
		}
	}

	store, err := opts.Buckets(client.Layout())
	if err != nil {
		return nil, err
	}
	if err := store.Init(storage.TotalEntries(leafCount)); err != nil {
		store.Close()
		return nil, err
	}
	if err := storage.WriteCells(store, cells); err != nil {
		store.Close()
		return nil, err
	}
	return &localityIndex{client: client, store: store, leafCount: leafCount, recorder: opts.Recorder, name: opts.Name}, nil
}

func (x *localityIndex) Fetch(node utils.Range) ([]utils.Record, error) {
	start, err := storage.Offset(node, node.Size(), 0, 0, x.leafCount)
	if err != nil {
		return nil, err
	}
	entries, err := storage.ReadRange(x.store, start, node.Size())
	if err != nil {
		return nil, err
	}
	x.recorder.ObserveFetch(x.name, Locality.String(), node, int(node.Size()))

	var out []utils.Record
	for _, e := range entries {
		if e.IsEmpty() {
			continue
		}
		r, err := x.client.Open(node, e)
		if err != nil {
			return nil, fmt.Errorf("open entry of %s: %w", node, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (x *localityIndex) Close() error {
	return x.store.Close()
}
