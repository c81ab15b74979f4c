package system

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanprotocol/escrow-server/pkg/solana"
)

func TestCreateAccount_Decompile(t *testing.T) {
	funder := testKey(t)
	address := testKey(t)
	owner := testKey(t)

	txn := solana.NewTransaction(
		funder,
		CreateAccount(funder, address, owner, 12345, 165),
	)

	decompiled, err := DecompileCreateAccount(txn.Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, funder, decompiled.Funder)
	assert.EqualValues(t, address, decompiled.Address)
	assert.EqualValues(t, owner, decompiled.Owner)
	assert.EqualValues(t, 12345, decompiled.Lamports)
	assert.EqualValues(t, 165, decompiled.Size)

	_, err = DecompileCreateAccount(txn.Message, 1)
	assert.Error(t, err)
}

func TestCreateAccount_DecompileIncorrect(t *testing.T) {
	funder := testKey(t)

	txn := solana.NewTransaction(
		funder,
		Transfer(funder, testKey(t), 10),
	)

	_, err := DecompileCreateAccount(txn.Message, 0)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
}

func testKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
