package memledger

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/humanprotocol/escrow-server/pkg/solana/runtime"
	"github.com/humanprotocol/escrow-server/pkg/solana/system"
	"github.com/humanprotocol/escrow-server/pkg/solana/token"
)

func (l *Ledger) registerNatives() {
	l.handlers[base58.Encode(system.ProgramKey)] = runtime.HandlerFunc(l.processSystem)
	l.handlers[base58.Encode(token.ProgramKey)] = runtime.HandlerFunc(processToken)
}

const (
	systemCommandCreateAccount uint32 = 0
	systemCommandTransfer      uint32 = 2
)

func (l *Ledger) processSystem(host runtime.Host, accounts []*runtime.Account, data []byte) error {
	if len(data) < 4 {
		return errors.New("invalid system instruction data")
	}

	switch binary.LittleEndian.Uint32(data) {
	case systemCommandCreateAccount:
		return l.createAccount(accounts, data)
	case systemCommandTransfer:
		return transferLamports(accounts, data)
	default:
		return errors.New("unsupported system instruction")
	}
}

func (l *Ledger) createAccount(accounts []*runtime.Account, data []byte) error {
	if len(accounts) != 2 || len(data) != 52 {
		return errors.New("invalid create account instruction")
	}

	funder, account := accounts[0], accounts[1]
	if !funder.IsSigner || !account.IsSigner {
		return ErrMissingSignature
	}

	lamports := binary.LittleEndian.Uint64(data[4:])
	size := binary.LittleEndian.Uint64(data[12:])
	owner := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(owner, data[20:])

	if account.Lamports != 0 || len(account.Data) != 0 {
		return ErrAccountInUse
	}
	if funder.Lamports < lamports {
		return ErrInsufficientFunds
	}
	if lamports < l.MinimumBalanceForRentExemption(size) {
		return ErrNotRentExempt
	}

	funder.Lamports -= lamports
	account.Lamports = lamports
	account.Data = make([]byte, size)
	account.Owner = owner

	return nil
}

func transferLamports(accounts []*runtime.Account, data []byte) error {
	if len(accounts) != 2 || len(data) != 12 {
		return errors.New("invalid transfer instruction")
	}

	from, to := accounts[0], accounts[1]
	if !from.IsSigner {
		return ErrMissingSignature
	}

	lamports := binary.LittleEndian.Uint64(data[4:])
	if from.Lamports < lamports {
		return ErrInsufficientFunds
	}

	from.Lamports -= lamports
	to.Lamports += lamports

	return nil
}
