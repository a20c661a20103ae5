package LogSRC

import (
	"math/rand"
	"testing"

	"RangeSSE/pkg/PiBas"
	"RangeSSE/pkg/TDAG"
	"RangeSSE/pkg/monitor"
	"RangeSSE/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomRecords(rng *rand.Rand, n, keywords int) []utils.Record {
	records := make([]utils.Record, 0, n)
	for id := 0; id < n; id++ {
		kw := uint64(10 + rng.Intn(keywords))
		records = append(records, utils.NewInsert(uint64(id), kw))
		if rng.Intn(5) == 0 {
			records = append(records, utils.NewDelete(uint64(id), kw))
		}
	}
	return records
}

func TestMatchesLinearScan(t *testing.T) {
	for _, placement := range []PiBas.Placement{PiBas.ResultHiding, PiBas.ResultRevealing} {
		t.Run(placement.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(11))
			records := randomRecords(rng, 80, 25)
			s := New(PiBas.Options{Placement: placement})
			defer s.Close()
			require.NoError(t, s.Setup(128, utils.RecordDatabase(records)))

			for i := 0; i < 50; i++ {
				a, b := uint64(rng.Intn(40)), uint64(rng.Intn(40))
				q := utils.Range{Start: min(a, b), End: max(a, b)}
				want := utils.FilterRecords(records, q)

				raw, err := s.SearchRaw(q)
				require.NoError(t, err)
				assert.ElementsMatch(t, want, raw, "raw %s", q)

				got, err := s.Search(q)
				require.NoError(t, err)
				assert.ElementsMatch(t, utils.Reconcile(want), got, "query %s", q)
			}
		})
	}
}

func TestSingleFetchPerQuery(t *testing.T) {
	rec := monitor.NewRecorder(nil)
	records := []utils.Record{utils.NewInsert(1, 0), utils.NewInsert(2, 1), utils.NewInsert(3, 2), utils.NewInsert(4, 3)}
	s := New(PiBas.Options{Recorder: rec})
	require.NoError(t, s.Setup(128, utils.RecordDatabase(records)))

	got, err := s.Search(utils.Range{Start: 1, End: 2})
	require.NoError(t, err)
	assert.ElementsMatch(t, records[1:3], got)

	fetches := rec.Fetches()
	require.Len(t, fetches, 1)
	assert.Equal(t, utils.Range{Start: 0, End: 3}, fetches[0].Key)
	assert.Equal(t, 4, fetches[0].Entries, "the root bucket holds every record")
}

func TestReplicate(t *testing.T) {
	tree, err := TDAG.BuildDomain(utils.Range{Start: 0, End: 3})
	require.NoError(t, err)
	db := replicate(tree, utils.RecordDatabase([]utils.Record{utils.NewInsert(9, 2)}))
	assert.Equal(t, []utils.Range{{Start: 0, End: 3}, utils.Unit(2), {Start: 2, End: 3}}, db.Keys())
}

func TestEmptyAndUnset(t *testing.T) {
	s := New(PiBas.Options{})
	_, err := s.Search(utils.Unit(1))
	assert.ErrorIs(t, err, utils.ErrNotSetup)

	require.NoError(t, s.Setup(128, nil))
	assert.True(t, s.IsEmpty())
	got, err := s.Search(utils.Unit(1))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSparseKeywordDomain(t *testing.T) {
	s := New(PiBas.Options{})
	defer s.Close()
	sparse := []utils.Record{utils.NewInsert(1, 0), utils.NewInsert(2, 1<<62)}
	assert.ErrorIs(t, s.Setup(128, utils.RecordDatabase(sparse)), utils.ErrDomainTooLarge)

	_, err := s.Search(utils.Unit(0))
	assert.ErrorIs(t, err, utils.ErrNotSetup)
}
