package dis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp(t *testing.T) {
	ts := NewTimestamp(30*time.Minute, true)
	assert.True(t, ts.Absolute())
	assert.InDelta(t, float64(30*time.Minute), float64(ts.Offset()), float64(2*time.Microsecond))

	rel := NewTimestamp(90*time.Minute, false)
	assert.False(t, rel.Absolute())
	assert.InDelta(t, float64(30*time.Minute), float64(rel.Offset()), float64(2*time.Microsecond))

	at := time.Date(2025, 3, 1, 14, 15, 0, 0, time.UTC)
	assert.InDelta(t, float64(15*time.Minute), float64(TimestampFromTime(at, true).Offset()), float64(2*time.Microsecond))
}

func TestEntityID_HashIsInjective(t *testing.T) {
	ids := []EntityID{
		{1, 2, 3},
		{1, 3, 2},
		{3, 2, 1},
		{0, 0, 1},
		{0, 1, 0},
		{1, 0, 0},
		{0xFFFF, 0xFFFF, 0xFFFF},
	}
	seen := make(map[uint64]EntityID)
	for _, id := range ids {
		h := id.Hash()
		prev, dup := seen[h]
		assert.False(t, dup, "%s collides with %s", id, prev)
		seen[h] = id
		assert.Equal(t, id, EntityIDFromHash(h))
	}
}

func TestParseEntityID(t *testing.T) {
	id, err := ParseEntityID("1:3101:42")
	require.NoError(t, err)
	assert.Equal(t, EntityID{Site: 1, Application: 3101, Entity: 42}, id)

	id, err = ParseEntityID("7.8.9")
	require.NoError(t, err)
	assert.Equal(t, EntityID{Site: 7, Application: 8, Entity: 9}, id)

	_, err = ParseEntityID("1:2")
	assert.Error(t, err)
	_, err = ParseEntityID("1:2:70000")
	assert.Error(t, err)
}

func TestParseEntityType(t *testing.T) {
	et, err := ParseEntityType("1.2.225.1.1.3.0")
	require.NoError(t, err)
	assert.Equal(t, EntityType{Kind: KindPlatform, Domain: 2, Country: 225, Category: 1, Subcategory: 1, Specific: 3}, et)
	assert.Equal(t, [EntityTypeLevels]int{1, 2, 225, 1, 1, 3, 0}, et.Levels())
	assert.Equal(t, "1.2.225.1.1.3.0", et.String())

	et, err = ParseEntityType("3.1")
	require.NoError(t, err)
	assert.Equal(t, EntityType{Kind: KindLifeForm, Domain: 1}, et)

	_, err = ParseEntityType("1.300")
	assert.Error(t, err)
	_, err = ParseEntityType("1.2.3.4.5.6.7.8")
	assert.Error(t, err)
	_, err = ParseEntityType("")
	assert.Error(t, err)
}

func TestReader_LatchesFirstError(t *testing.T) {
	r := NewReader([]byte{1, 2, 3}, ProtocolVersion7)
	assert.Equal(t, uint16(0x0102), r.Uint16())
	assert.Equal(t, uint32(0), r.Uint32())
	require.ErrorIs(t, r.Err(), ErrTruncatedInput)
	assert.Equal(t, uint8(0), r.Uint8(), "reads after an error return zero")
	assert.Equal(t, 2, r.Offset())
}
