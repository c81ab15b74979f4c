package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAuthority(t *testing.T) {
	program := testKey(t)
	record := testKey(t)

	authority, bump, err := DeriveAuthority(program, record)
	require.NoError(t, err)
	require.Len(t, authority, 32)

	// The stored bump must reproduce exactly the found authority.
	rederived, err := AuthorityForBump(program, record, bump)
	require.NoError(t, err)
	assert.EqualValues(t, authority, rederived)

	// The derivation is deterministic.
	again, againBump, err := DeriveAuthority(program, record)
	require.NoError(t, err)
	assert.EqualValues(t, authority, again)
	assert.Equal(t, bump, againBump)

	// A different record derives a different authority.
	other, _, err := DeriveAuthority(program, testKey(t))
	require.NoError(t, err)
	assert.NotEqual(t, authority, other)
}
