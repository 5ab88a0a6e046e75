package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsCountersAccumulate(t *testing.T) {
	s := New()
	s.IncInserted()
	s.IncInserted()
	s.IncDeleted()
	s.AddPruned(3)

	assert.Equal(t, Counters{Inserted: 2, Deleted: 1, Pruned: 3}, s.Snapshot())
}

func TestStatsAddPrunedZeroIsNoop(t *testing.T) {
	s := New()
	s.AddPruned(0)
	assert.Equal(t, uint64(0), s.Snapshot().Pruned)
}

func TestStatsResetZeroesAllCounters(t *testing.T) {
	s := New()
	s.IncInserted()
	s.IncDeleted()
	s.AddPruned(5)

	s.Reset()
	assert.Equal(t, Counters{}, s.Snapshot())
}
