package memledger

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanprotocol/escrow-server/pkg/solana"
	"github.com/humanprotocol/escrow-server/pkg/solana/runtime"
	"github.com/humanprotocol/escrow-server/pkg/solana/system"
	"github.com/humanprotocol/escrow-server/pkg/solana/token"
)

func TestLedger_CreateAccount(t *testing.T) {
	ledger := New()

	payer := generateKey(t)
	account := generateKey(t)
	owner := public(generateKey(t))

	ledger.Fund(public(payer), 1<<30)

	rent := ledger.MinimumBalanceForRentExemption(100)
	execute(t, ledger, []ed25519.PrivateKey{payer, account},
		public(payer),
		system.CreateAccount(public(payer), public(account), owner, rent, 100),
	)

	info, ok := ledger.GetAccount(public(account))
	require.True(t, ok)
	assert.EqualValues(t, owner, info.Owner)
	assert.Equal(t, rent, info.Lamports)
	assert.Len(t, info.Data, 100)

	// Creating the same account twice fails.
	err := submit(t, ledger, []ed25519.PrivateKey{payer, account},
		public(payer),
		system.CreateAccount(public(payer), public(account), owner, rent, 100),
	)
	assert.ErrorIs(t, err, ErrAccountInUse)
}

func TestLedger_CreateAccount_NotRentExempt(t *testing.T) {
	ledger := New()

	payer := generateKey(t)
	account := generateKey(t)

	ledger.Fund(public(payer), 1<<30)

	err := submit(t, ledger, []ed25519.PrivateKey{payer, account},
		public(payer),
		system.CreateAccount(public(payer), public(account), public(generateKey(t)), 1, 100),
	)
	assert.ErrorIs(t, err, ErrNotRentExempt)
}

func TestLedger_Transfer(t *testing.T) {
	ledger := New()

	from := generateKey(t)
	to := public(generateKey(t))

	ledger.Fund(public(from), 1000)

	execute(t, ledger, []ed25519.PrivateKey{from},
		public(from),
		system.Transfer(public(from), to, 400),
	)

	fromInfo, _ := ledger.GetAccount(public(from))
	toInfo, _ := ledger.GetAccount(to)
	assert.EqualValues(t, 600, fromInfo.Lamports)
	assert.EqualValues(t, 400, toInfo.Lamports)

	err := submit(t, ledger, []ed25519.PrivateKey{from},
		public(from),
		system.Transfer(public(from), to, 601),
	)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestLedger_InvalidSignature(t *testing.T) {
	ledger := New()

	from := generateKey(t)
	forger := generateKey(t)
	ledger.Fund(public(from), 1000)

	txn := solana.NewTransaction(
		public(from),
		system.Transfer(public(from), public(generateKey(t)), 1),
	)

	// Unsigned.
	assert.ErrorIs(t, ledger.Execute(txn), ErrInvalidSignature)

	// Signed by the wrong key over the right message.
	copy(txn.Signatures[0][:], ed25519.Sign(forger, txn.Message.Marshal()))
	assert.ErrorIs(t, ledger.Execute(txn), ErrInvalidSignature)
}

func TestLedger_TokenFlows(t *testing.T) {
	ledger := New()

	payer := generateKey(t)
	mintAuthority := generateKey(t)
	mint := generateKey(t)
	alice := generateKey(t)
	bob := generateKey(t)

	ledger.Fund(public(payer), 1<<30)

	mintRent := ledger.MinimumBalanceForRentExemption(token.MintSize)
	accountRent := ledger.MinimumBalanceForRentExemption(token.AccountSize)

	execute(t, ledger, []ed25519.PrivateKey{payer, mint},
		public(payer),
		system.CreateAccount(public(payer), public(mint), token.ProgramKey, mintRent, token.MintSize),
		token.InitializeMint(public(mint), public(mintAuthority), 5),
	)

	aliceAccount := generateKey(t)
	bobAccount := generateKey(t)
	execute(t, ledger, []ed25519.PrivateKey{payer, aliceAccount, bobAccount},
		public(payer),
		system.CreateAccount(public(payer), public(aliceAccount), token.ProgramKey, accountRent, token.AccountSize),
		token.InitializeAccount(public(aliceAccount), public(mint), public(alice)),
		system.CreateAccount(public(payer), public(bobAccount), token.ProgramKey, accountRent, token.AccountSize),
		token.InitializeAccount(public(bobAccount), public(mint), public(bob)),
	)

	execute(t, ledger, []ed25519.PrivateKey{payer, mintAuthority},
		public(payer),
		token.MintTo(public(mint), public(aliceAccount), public(mintAuthority), 100),
	)
	assert.EqualValues(t, 100, tokenBalance(t, ledger, public(aliceAccount)))

	execute(t, ledger, []ed25519.PrivateKey{payer, alice},
		public(payer),
		token.Transfer(public(aliceAccount), public(bobAccount), public(alice), 30),
	)
	assert.EqualValues(t, 70, tokenBalance(t, ledger, public(aliceAccount)))
	assert.EqualValues(t, 30, tokenBalance(t, ledger, public(bobAccount)))

	// Only the account owner can move funds.
	err := submit(t, ledger, []ed25519.PrivateKey{payer, bob},
		public(payer),
		token.Transfer(public(aliceAccount), public(bobAccount), public(bob), 1),
	)
	assert.ErrorIs(t, err, token.ErrorOwnerMismatch)

	err = submit(t, ledger, []ed25519.PrivateKey{payer, alice},
		public(payer),
		token.Transfer(public(aliceAccount), public(bobAccount), public(alice), 71),
	)
	assert.ErrorIs(t, err, token.ErrorInsufficientFunds)

	// A transfer from an account to itself validates but moves nothing. The
	// amount is still bounded by the balance.
	execute(t, ledger, []ed25519.PrivateKey{payer, alice},
		public(payer),
		token.Transfer(public(aliceAccount), public(aliceAccount), public(alice), 40),
	)
	assert.EqualValues(t, 70, tokenBalance(t, ledger, public(aliceAccount)))

	err = submit(t, ledger, []ed25519.PrivateKey{payer, alice},
		public(payer),
		token.Transfer(public(aliceAccount), public(aliceAccount), public(alice), 71),
	)
	assert.ErrorIs(t, err, token.ErrorInsufficientFunds)
}

func TestLedger_Atomicity(t *testing.T) {
	ledger := New()

	from := generateKey(t)
	to := public(generateKey(t))
	ledger.Fund(public(from), 1000)

	// The first transfer is valid in isolation but the batch fails on the
	// second, so neither is committed.
	err := submit(t, ledger, []ed25519.PrivateKey{from},
		public(from),
		system.Transfer(public(from), to, 400),
		system.Transfer(public(from), to, 10000),
	)
	require.Error(t, err)

	var ie solana.InstructionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Index)

	fromInfo, _ := ledger.GetAccount(public(from))
	assert.EqualValues(t, 1000, fromInfo.Lamports)
}

// TestLedger_DerivedSigner exercises program-signed invocation: a registered
// program transfers out of a token account held by its derived address.
func TestLedger_DerivedSigner(t *testing.T) {
	ledger := New()

	payer := generateKey(t)
	mintAuthority := generateKey(t)
	mint := generateKey(t)
	program := public(generateKey(t))

	ledger.Fund(public(payer), 1<<30)

	seed := []byte("vault")
	vaultAuthority, bump, err := solana.FindProgramAddressAndBump(program, seed)
	require.NoError(t, err)

	// The program forwards everything it holds to the first writable
	// destination account.
	ledger.RegisterProgram(program, runtime.HandlerFunc(
		func(host runtime.Host, accounts []*runtime.Account, data []byte) error {
			source, dest, authority := accounts[0], accounts[1], accounts[2]

			var held token.Account
			if !held.Unmarshal(source.Data) {
				return token.ErrorUninitializedState
			}

			return host.Invoke(
				token.Transfer(source.Key, dest.Key, authority.Key, held.Amount),
				[][]byte{seed, {bump}},
			)
		},
	))

	mintRent := ledger.MinimumBalanceForRentExemption(token.MintSize)
	accountRent := ledger.MinimumBalanceForRentExemption(token.AccountSize)

	vault := generateKey(t)
	dest := generateKey(t)
	execute(t, ledger, []ed25519.PrivateKey{payer, mint, vault, dest},
		public(payer),
		system.CreateAccount(public(payer), public(mint), token.ProgramKey, mintRent, token.MintSize),
		token.InitializeMint(public(mint), public(mintAuthority), 0),
		system.CreateAccount(public(payer), public(vault), token.ProgramKey, accountRent, token.AccountSize),
		token.InitializeAccount(public(vault), public(mint), vaultAuthority),
		system.CreateAccount(public(payer), public(dest), token.ProgramKey, accountRent, token.AccountSize),
		token.InitializeAccount(public(dest), public(mint), public(payer)),
	)

	execute(t, ledger, []ed25519.PrivateKey{payer, mintAuthority},
		public(payer),
		token.MintTo(public(mint), public(vault), public(mintAuthority), 55),
	)

	execute(t, ledger, []ed25519.PrivateKey{payer},
		public(payer),
		solana.NewInstruction(
			program,
			nil,
			solana.NewAccountMeta(public(vault), false),
			solana.NewAccountMeta(public(dest), false),
			solana.NewReadonlyAccountMeta(vaultAuthority, false),
			solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		),
	)

	assert.EqualValues(t, 0, tokenBalance(t, ledger, public(vault)))
	assert.EqualValues(t, 55, tokenBalance(t, ledger, public(dest)))
}

func execute(t *testing.T, ledger *Ledger, signers []ed25519.PrivateKey, payer ed25519.PublicKey, instructions ...solana.Instruction) {
	require.NoError(t, submit(t, ledger, signers, payer, instructions...))
}

func submit(t *testing.T, ledger *Ledger, signers []ed25519.PrivateKey, payer ed25519.PublicKey, instructions ...solana.Instruction) error {
	txn := solana.NewTransaction(payer, instructions...)
	require.NoError(t, txn.Sign(signers...))
	return ledger.Execute(txn)
}

func tokenBalance(t *testing.T, ledger *Ledger, key ed25519.PublicKey) uint64 {
	info, ok := ledger.GetAccount(key)
	require.True(t, ok)

	var account token.Account
	require.True(t, account.Unmarshal(info.Data))
	return account.Amount
}

func generateKey(t *testing.T) ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return priv
}

func public(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}
