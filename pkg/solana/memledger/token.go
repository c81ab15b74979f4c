package memledger

import (
	"bytes"
	"encoding/binary"

	"github.com/humanprotocol/escrow-server/pkg/solana/runtime"
	"github.com/humanprotocol/escrow-server/pkg/solana/token"
)

// processToken implements the subset of the SPL token program the escrow
// flows exercise: mint and account initialization, minting, and
// owner-authorized transfers.
func processToken(host runtime.Host, accounts []*runtime.Account, data []byte) error {
	if len(data) == 0 {
		return token.ErrorUninitializedState
	}

	switch token.Command(data[0]) {
	case token.CommandInitializeMint:
		return tokenInitializeMint(accounts, data)
	case token.CommandInitializeAccount:
		return tokenInitializeAccount(accounts)
	case token.CommandMintTo:
		return tokenMintTo(accounts, data)
	case token.CommandTransfer:
		return tokenTransfer(accounts, data)
	default:
		return token.ErrorUninitializedState
	}
}

func tokenInitializeMint(accounts []*runtime.Account, data []byte) error {
	if len(accounts) < 1 || len(data) != 1+1+32+1 {
		return token.ErrorInvalidMint
	}

	mintAccount := accounts[0]
	if !bytes.Equal(mintAccount.Owner, token.ProgramKey) {
		return token.ErrorOwnerMismatch
	}

	var mint token.Mint
	if !mint.Unmarshal(mintAccount.Data) {
		return token.ErrorInvalidMint
	}
	if mint.Initialized {
		return token.ErrorAlreadyInUse
	}

	mint.Decimals = data[1]
	mint.MintAuthority = append([]byte(nil), data[2:2+32]...)
	mint.Initialized = true

	copy(mintAccount.Data, mint.Marshal())
	return nil
}

func tokenInitializeAccount(accounts []*runtime.Account) error {
	if len(accounts) < 3 {
		return token.ErrorUninitializedState
	}

	tokenAccount, mintAccount, owner := accounts[0], accounts[1], accounts[2]
	if !bytes.Equal(tokenAccount.Owner, token.ProgramKey) {
		return token.ErrorOwnerMismatch
	}

	var account token.Account
	if !account.Unmarshal(tokenAccount.Data) {
		return token.ErrorUninitializedState
	}
	if account.State != token.AccountStateUninitialized {
		return token.ErrorAlreadyInUse
	}

	var mint token.Mint
	if !mint.Unmarshal(mintAccount.Data) || !mint.Initialized {
		return token.ErrorInvalidMint
	}

	account.Mint = mintAccount.Key
	account.Owner = owner.Key
	account.State = token.AccountStateInitialized

	copy(tokenAccount.Data, account.Marshal())
	return nil
}

func tokenMintTo(accounts []*runtime.Account, data []byte) error {
	if len(accounts) < 3 || len(data) != 9 {
		return token.ErrorUninitializedState
	}

	mintAccount, dest, authority := accounts[0], accounts[1], accounts[2]
	amount := binary.LittleEndian.Uint64(data[1:])

	var mint token.Mint
	if !mint.Unmarshal(mintAccount.Data) || !mint.Initialized {
		return token.ErrorInvalidMint
	}
	if !authority.IsSigner {
		return ErrMissingSignature
	}
	if !bytes.Equal(mint.MintAuthority, authority.Key) {
		return token.ErrorOwnerMismatch
	}

	var account token.Account
	if !account.Unmarshal(dest.Data) || account.State != token.AccountStateInitialized {
		return token.ErrorUninitializedState
	}
	if !bytes.Equal(account.Mint, mintAccount.Key) {
		return token.ErrorMintMismatch
	}

	mint.Supply += amount
	account.Amount += amount

	copy(mintAccount.Data, mint.Marshal())
	copy(dest.Data, account.Marshal())
	return nil
}

func tokenTransfer(accounts []*runtime.Account, data []byte) error {
	if len(accounts) < 3 || len(data) != 9 {
		return token.ErrorUninitializedState
	}

	source, dest, owner := accounts[0], accounts[1], accounts[2]
	amount := binary.LittleEndian.Uint64(data[1:])

	var src token.Account
	if !src.Unmarshal(source.Data) || src.State != token.AccountStateInitialized {
		return token.ErrorUninitializedState
	}
	var dst token.Account
	if !dst.Unmarshal(dest.Data) || dst.State != token.AccountStateInitialized {
		return token.ErrorUninitializedState
	}

	if !owner.IsSigner {
		return ErrMissingSignature
	}
	if !bytes.Equal(src.Owner, owner.Key) {
		return token.ErrorOwnerMismatch
	}
	if !bytes.Equal(src.Mint, dst.Mint) {
		return token.ErrorMintMismatch
	}
	if src.Amount < amount {
		return token.ErrorInsufficientFunds
	}

	// A self-transfer validates like any other but moves nothing. Writing
	// both decoded structs back to the shared account data would double-count
	// the amount.
	if bytes.Equal(source.Key, dest.Key) {
		return nil
	}

	src.Amount -= amount
	dst.Amount += amount

	copy(source.Data, src.Marshal())
	copy(dest.Data, dst.Marshal())
	return nil
}
