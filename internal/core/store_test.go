package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

// Scenario 1: basic FIFO within a priority.
func TestStoreBasicFIFOWithinPriority(t *testing.T) {
	s := NewStore(0)
	a, err := s.Add(1, 10)
	require.NoError(t, err)
	b, err := s.Add(1, 10)
	require.NoError(t, err)

	newest, ok := s.Get(nil, nil, false)
	require.True(t, ok)
	assert.Equal(t, b.Id, newest)

	oldest, ok := s.Get(nil, nil, true)
	require.True(t, ok)
	assert.Equal(t, a.Id, oldest)
}

// Scenario 2: highest priority wins.
func TestStoreHighestPriorityWins(t *testing.T) {
	s := NewStore(0)
	_, err := s.Add(1, 13)
	require.NoError(t, err)
	b, err := s.Add(2, 14)
	require.NoError(t, err)

	got, ok := s.Get(nil, nil, false)
	require.True(t, ok)
	assert.Equal(t, b.Id, got)
}

// Scenario 3: group-cap eviction.
func TestStoreGroupCapEviction(t *testing.T) {
	s := NewStore(0)
	s.UpdateGroupDefaults(1, GroupDefaults{MaxByteSize: u64(10)})

	a, err := s.Add(1, 10)
	require.NoError(t, err)
	b, err := s.Add(1, 10)
	require.NoError(t, err)

	assert.Equal(t, []Id{a.Id}, b.MsgsRemoved)
	assert.Equal(t, uint64(10), s.ByteSize())

	remaining := s.GetN(10, nil, nil, false)
	assert.Equal(t, []Id{b.Id}, remaining)
}

// Scenario 4: store-cap eviction across groups.
func TestStoreCapEvictionAcrossGroups(t *testing.T) {
	s := NewStore(0)
	s.UpdateStoreDefaults(StoreDefaults{MaxByteSize: u64(20)})

	a, err := s.Add(2, 10)
	require.NoError(t, err)
	b, err := s.Add(1, 10)
	require.NoError(t, err)
	c, err := s.Add(1, 10)
	require.NoError(t, err)

	assert.Equal(t, []Id{b.Id}, c.MsgsRemoved)

	remaining := s.GetN(10, nil, nil, false)
	assert.ElementsMatch(t, []Id{a.Id, c.Id}, remaining)
}

// Scenario 5: LacksPriority leaves state unchanged.
func TestStoreLacksPriority(t *testing.T) {
	s := NewStore(0)
	s.UpdateStoreDefaults(StoreDefaults{MaxByteSize: u64(20)})

	_, err := s.Add(2, 10)
	require.NoError(t, err)
	_, err = s.Add(2, 10)
	require.NoError(t, err)

	before := s.ByteSize()
	_, err = s.Add(1, 10)
	require.Error(t, err)
	assert.True(t, IsLacksPriority(err))
	assert.Equal(t, before, s.ByteSize())
}

// Scenario 6: oversize rejected against the store cap.
func TestStoreRejectOversizeForStore(t *testing.T) {
	s := NewStore(0)
	s.UpdateStoreDefaults(StoreDefaults{MaxByteSize: u64(9)})

	_, err := s.Add(2, 10)
	require.Error(t, err)
	assert.True(t, IsExceedsStoreMax(err))
}

// Scenario 7: group defaults applied at creation.
func TestStoreGroupDefaultsAppliedAtCreation(t *testing.T) {
	s := NewStore(0)
	s.UpdateGroupDefaults(1, GroupDefaults{MaxByteSize: u64(10)})

	_, err := s.Add(1, 10)
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Groups, 1)
	require.NotNil(t, snap.Groups[0].MaxByteSize)
	assert.Equal(t, uint64(10), *snap.Groups[0].MaxByteSize)
}

// Scenario 8: tightening defaults evicts immediately.
func TestStoreDefaultsTightenedEvicts(t *testing.T) {
	s := NewStore(0)
	a, err := s.Add(1, 3)
	require.NoError(t, err)
	_, err = s.Add(1, 3)
	require.NoError(t, err)

	result := s.UpdateGroupDefaults(1, GroupDefaults{MaxByteSize: u64(3)})
	assert.Equal(t, []Id{a.Id}, result.MsgsRemoved)
	assert.Equal(t, uint64(3), s.ByteSize())
}

// Invariant 5: add followed by del of the returned id restores byte_size.
func TestStoreAddThenDelRestoresByteSize(t *testing.T) {
	s := NewStore(0)
	before := s.ByteSize()
	res, err := s.Add(1, 42)
	require.NoError(t, err)
	require.NoError(t, s.Del(res.Id))
	assert.Equal(t, before, s.ByteSize())
}

// Invariant 6: del is idempotent.
func TestStoreDelIsIdempotent(t *testing.T) {
	s := NewStore(0)
	res, err := s.Add(1, 10)
	require.NoError(t, err)
	require.NoError(t, s.Del(res.Id))
	require.NoError(t, s.Del(res.Id))
}

// Invariant 3: store byte_size never exceeds a configured cap.
func TestStoreByteSizeNeverExceedsCap(t *testing.T) {
	s := NewStore(0)
	s.UpdateStoreDefaults(StoreDefaults{MaxByteSize: u64(30)})

	for i := 0; i < 10; i++ {
		s.Add(1, 7)
	}
	assert.LessOrEqual(t, s.ByteSize(), uint64(30))
}

func TestStoreDelGroupRemovesAllMembers(t *testing.T) {
	s := NewStore(0)
	a, _ := s.Add(1, 5)
	b, _ := s.Add(1, 5)
	c, _ := s.Add(2, 5)

	removed := s.DelGroup(1)
	assert.ElementsMatch(t, []Id{a.Id, b.Id}, removed)

	remaining := s.GetN(10, nil, nil, false)
	assert.Equal(t, []Id{c.Id}, remaining)
}

func TestStoreGetNRespectsReverseAndAfterId(t *testing.T) {
	s := NewStore(0)
	a, _ := s.Add(1, 1)
	b, _ := s.Add(1, 1)
	c, _ := s.Add(2, 1)

	forward := s.GetN(10, nil, nil, false)
	assert.Equal(t, []Id{c.Id, a.Id, b.Id}, forward)

	afterC := c.Id
	rest := s.GetN(10, nil, &afterC, false)
	assert.Equal(t, []Id{a.Id, b.Id}, rest)

	reversed := s.GetN(10, nil, nil, true)
	assert.Equal(t, []Id{b.Id, a.Id, c.Id}, reversed)
}
