package SDa

import (
	"errors"
	"math/rand"
	"testing"

	"RangeSSE/pkg/LogSRC"
	"RangeSSE/pkg/LogSRCi"
	"RangeSSE/pkg/PiBas"
	"RangeSSE/pkg/monitor"
	"RangeSSE/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factories() map[string]utils.SchemeFactory {
	return map[string]utils.SchemeFactory{
		"LogSRCi": LogSRCi.Factory(LogSRCi.Options{}),
		"LogSRC":  LogSRC.Factory(PiBas.Options{}),
		"PiBas":   PiBas.Factory(PiBas.Options{Placement: PiBas.ResultRevealing}),
	}
}

func stream(rng *rand.Rand, n int) []utils.Record {
	var records []utils.Record
	var live []utils.Record
	for len(records) < n {
		if len(live) > 0 && rng.Intn(3) == 0 {
			i := rng.Intn(len(live))
			records = append(records, utils.NewDelete(live[i].ID, live[i].Keyword))
			live = append(live[:i], live[i+1:]...)
			continue
		}
		r := utils.NewInsert(uint64(len(records)), uint64(rng.Intn(16)))
		records = append(records, r)
		live = append(live, r)
	}
	return records
}

func TestMatchesStaticRebuild(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(5))
			records := stream(rng, 40)
			s := New(Options{Factory: factory})
			defer s.Close()

			for i, r := range records {
				require.NoError(t, s.Update(r))
				if i%7 != 6 && i != len(records)-1 {
					continue
				}
				static := LogSRCi.New(LogSRCi.Options{})
				require.NoError(t, static.Setup(128, utils.RecordDatabase(records[:i+1])))
				for j := 0; j < 10; j++ {
					a, b := uint64(rng.Intn(18)), uint64(rng.Intn(18))
					q := utils.Range{Start: min(a, b), End: max(a, b)}
					want, err := static.Search(q)
					require.NoError(t, err)
					got, err := s.Search(q)
					require.NoError(t, err)
					assert.ElementsMatch(t, want, got, "after %d updates, query %s", i+1, q)
				}
				static.Close()
			}
			assert.Equal(t, utils.RecordDatabase(records), s.Plaintext())
		})
	}
}

func TestBinaryCounter(t *testing.T) {
	rec := monitor.NewRecorder(nil)
	s := New(Options{Factory: PiBas.Factory(PiBas.Options{}), Recorder: rec})
	assert.True(t, s.IsEmpty())
	assert.Empty(t, s.Occupied())

	want := [][]bool{
		{true},
		{false, true},
		{true, true},
		{false, false, true},
		{true, false, true},
	}
	for i, occupied := range want {
		require.NoError(t, s.Update(utils.NewInsert(uint64(i), 1)))
		assert.Equal(t, occupied, s.Occupied(), "after %d updates", i+1)
	}
	assert.Equal(t, uint64(5), rec.Stats().UpdateCount)
	assert.Len(t, s.slots[2].Plaintext(), 4)
	assert.Equal(t, utils.NewInsert(0, 1), s.slots[2].Plaintext()[0].Value, "merges keep the oldest record first")
}

func TestCrossSlotTombstone(t *testing.T) {
	s := New(Options{Factory: LogSRCi.Factory(LogSRCi.Options{})})
	require.NoError(t, s.Update(utils.NewInsert(1, 5)))
	require.NoError(t, s.Update(utils.NewInsert(2, 5)))
	require.NoError(t, s.Update(utils.NewDelete(1, 5)))
	assert.Equal(t, []bool{true, true}, s.Occupied())

	raw, err := s.SearchRaw(utils.Unit(5))
	require.NoError(t, err)
	assert.Len(t, raw, 3)

	got, err := s.Search(utils.Unit(5))
	require.NoError(t, err)
	assert.Equal(t, []utils.Record{utils.NewInsert(2, 5)}, got)
}

func TestSetupDecomposesIntoSlots(t *testing.T) {
	var records []utils.Record
	for i := uint64(0); i < 6; i++ {
		records = append(records, utils.NewInsert(i, i))
	}
	s := New(Options{Factory: LogSRCi.Factory(LogSRCi.Options{})})
	require.NoError(t, s.Setup(128, utils.RecordDatabase(records)))
	assert.Equal(t, []bool{false, true, true}, s.Occupied())
	assert.Equal(t, utils.RecordDatabase(records[:4]), s.slots[2].Plaintext())

	got, err := s.Search(utils.Range{Start: 2, End: 5})
	require.NoError(t, err)
	assert.ElementsMatch(t, records[2:], got)

	require.NoError(t, s.Update(utils.NewDelete(3, 3)))
	assert.Equal(t, []bool{true, true, true}, s.Occupied())
	got, err = s.Search(utils.Range{Start: 2, End: 5})
	require.NoError(t, err)
	assert.ElementsMatch(t, []utils.Record{records[2], records[4], records[5]}, got)

	assert.ErrorIs(t, s.Setup(64, nil), utils.ErrInvalidSecurityParameter)
}

type failing struct{ utils.Scheme }

func (failing) Setup(int, utils.Database[utils.Record]) error { return errors.New("disk full") }

func (failing) Close() error { return nil }

func TestFailedUpdateKeepsSlots(t *testing.T) {
	fail := false
	s := New(Options{Factory: func() utils.Scheme {
		if fail {
			return failing{}
		}
		return PiBas.New(PiBas.Options{})
	}})
	require.NoError(t, s.Update(utils.NewInsert(1, 1)))

	fail = true
	assert.Error(t, s.Update(utils.NewInsert(2, 1)))
	assert.Equal(t, []bool{true}, s.Occupied())
	assert.Len(t, s.Plaintext(), 1)

	got, err := s.Search(utils.Unit(1))
	require.NoError(t, err)
	assert.Equal(t, []utils.Record{utils.NewInsert(1, 1)}, got)
}
