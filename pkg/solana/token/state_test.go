package token

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_RoundTrip(t *testing.T) {
	native := uint64(2039280)
	account := Account{
		Mint:            testKey(t),
		Owner:           testKey(t),
		Amount:          123456,
		Delegate:        testKey(t),
		State:           AccountStateInitialized,
		IsNative:        &native,
		DelegatedAmount: 42,
		CloseAuthority:  testKey(t),
	}

	raw := account.Marshal()
	require.Len(t, raw, AccountSize)

	var actual Account
	require.True(t, actual.Unmarshal(raw))
	assert.Equal(t, account, actual)
}

func TestAccount_RoundTrip_NoOptionals(t *testing.T) {
	account := Account{
		Mint:   testKey(t),
		Owner:  testKey(t),
		Amount: 10,
		State:  AccountStateInitialized,
	}

	raw := account.Marshal()

	var actual Account
	require.True(t, actual.Unmarshal(raw))
	assert.Equal(t, account, actual)
	assert.Nil(t, actual.Delegate)
	assert.Nil(t, actual.IsNative)
	assert.Nil(t, actual.CloseAuthority)

	assert.False(t, actual.Unmarshal(raw[:AccountSize-1]))
}

func TestMint_RoundTrip(t *testing.T) {
	mint := Mint{
		MintAuthority: testKey(t),
		Supply:        1000000,
		Decimals:      9,
		Initialized:   true,
	}

	raw := mint.Marshal()
	require.Len(t, raw, MintSize)

	var actual Mint
	require.True(t, actual.Unmarshal(raw))
	assert.Equal(t, mint, actual)

	assert.False(t, actual.Unmarshal(raw[:MintSize-1]))
}

func testKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
