package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdStringRoundTrip(t *testing.T) {
	id := Id{Priority: 3, Timestamp: 12345, Sequence: 2, Node: 7}
	parsed, err := ParseId(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseIdMalformed(t *testing.T) {
	cases := []string{"", "1-2-3", "1-2-3-4-5", "a-2-3-4"}
	for _, c := range cases {
		_, err := ParseId(c)
		assert.Error(t, err, c)
		assert.True(t, IsMalformedId(err), c)
	}
}

func TestIdLessHigherPriorityFirst(t *testing.T) {
	a := Id{Priority: 2, Timestamp: 100, Sequence: 1}
	b := Id{Priority: 1, Timestamp: 1, Sequence: 1}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestIdLessOlderFirstWithinPriority(t *testing.T) {
	older := Id{Priority: 1, Timestamp: 100, Sequence: 1}
	newer := Id{Priority: 1, Timestamp: 200, Sequence: 1}
	assert.True(t, older.Less(newer))
}

func TestIdGeneratorMonotonic(t *testing.T) {
	gen := NewIdGenerator(5)
	var frozen uint64 = 42
	gen.clock = func() uint64 { return frozen }

	first := gen.Next(1)
	second := gen.Next(1)
	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, uint32(1), first.Sequence)
	assert.Equal(t, uint32(2), second.Sequence)
	assert.Equal(t, uint16(5), second.Node)

	frozen = 43
	third := gen.Next(1)
	assert.Equal(t, uint32(1), third.Sequence)
}
