package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_RoundTrip(t *testing.T) {
	rec := Record{
		State:                StatePartial,
		Bump:                 254,
		TokenMint:            testKey(t),
		TokenAccount:         testKey(t),
		Launcher:             testKey(t),
		Canceler:             testKey(t),
		CancelerTokenAccount: testKey(t),
		ExpiresAt:            1700086400,
	}

	raw := rec.Marshal()
	require.Len(t, raw, RecordLen)

	var actual Record
	require.NoError(t, actual.Unmarshal(raw))
	assert.Equal(t, rec, actual)
}

func TestRecord_Unmarshal_InvalidSize(t *testing.T) {
	var rec Record
	assert.ErrorIs(t, rec.Unmarshal(make([]byte, RecordLen-1)), ErrInvalidAccountSize)
	assert.ErrorIs(t, rec.Unmarshal(make([]byte, RecordLen+1)), ErrInvalidAccountSize)
	assert.ErrorIs(t, rec.Unmarshal(nil), ErrInvalidAccountSize)
}

func TestRecord_Unmarshal_InvalidState(t *testing.T) {
	raw := make([]byte, RecordLen)
	raw[0] = byte(StateCancelled) + 1

	var rec Record
	assert.ErrorIs(t, rec.Unmarshal(raw), ErrInvalidState)
}

func TestRecord_IsZero(t *testing.T) {
	var rec Record
	require.NoError(t, rec.Unmarshal(make([]byte, RecordLen)))
	assert.True(t, rec.IsZero())

	rec.Launcher = testKey(t)
	assert.False(t, rec.IsZero())

	rec = Record{}
	rec.ExpiresAt = 1
	assert.False(t, rec.IsZero())
}

func TestState_String(t *testing.T) {
	for state, expected := range map[State]string{
		StateUninitialized: "uninitialized",
		StateLaunched:      "launched",
		StatePartial:       "partial",
		StatePaid:          "paid",
		StateComplete:      "complete",
		StateCancelled:     "cancelled",
	} {
		assert.Equal(t, expected, state.String())
	}
}
