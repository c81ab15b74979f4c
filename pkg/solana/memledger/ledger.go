// Package memledger implements an in-memory ledger with the execution
// semantics an on-chain program relies on: per-transaction atomicity,
// signature verification, program dispatch by account owner, and
// program-signed (derived address) cross-program invocation. It exists to
// host and verify instruction processors without a validator.
package memledger

import (
	"bytes"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/humanprotocol/escrow-server/pkg/solana"
	"github.com/humanprotocol/escrow-server/pkg/solana/runtime"
)

var (
	ErrUnknownProgram    = errors.New("no handler registered for program")
	ErrMissingSignature  = errors.New("missing required signature")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrAccountNotInBatch = errors.New("invoked account not present in transaction")
	ErrInsufficientFunds = errors.New("insufficient lamports")
	ErrAccountInUse      = errors.New("account already in use")
	ErrNotRentExempt     = errors.New("balance below rent-exempt minimum")
)

// Rent parameters mirroring the mainnet defaults: 3480 lamports per
// byte-year, two years of rent for exemption, 128 bytes of account overhead.
const (
	lamportsPerByteYear = 3480
	exemptionYears      = 2
	accountOverhead     = 128
)

type storedAccount struct {
	lamports uint64
	data     []byte
	owner    ed25519.PublicKey
}

// Ledger is an in-memory account store plus program registry.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string]*storedAccount
	handlers map[string]runtime.Handler
	unixTime int64
}

func New() *Ledger {
	l := &Ledger{
		accounts: make(map[string]*storedAccount),
		handlers: make(map[string]runtime.Handler),
		unixTime: time.Now().Unix(),
	}

	l.registerNatives()
	return l
}

// RegisterProgram installs a handler for instructions addressed to the given
// program key.
func (l *Ledger) RegisterProgram(program ed25519.PublicKey, handler runtime.Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[base58.Encode(program)] = handler
}

// SetUnixTime pins the ledger clock, letting tests exercise time-dependent
// behavior such as expiry boundaries.
func (l *Ledger) SetUnixTime(t int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unixTime = t
}

// AdvanceTime moves the ledger clock forward by d seconds.
func (l *Ledger) AdvanceTime(seconds int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unixTime += seconds
}

// MinimumBalanceForRentExemption returns the rent-exempt minimum for an
// account with the given data size.
func (l *Ledger) MinimumBalanceForRentExemption(size uint64) uint64 {
	return (size + accountOverhead) * lamportsPerByteYear * exemptionYears
}

// Fund credits lamports to an account, creating it if needed. This is the
// test stand-in for an airdrop.
func (l *Ledger) Fund(key ed25519.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.lookupLocked(key)
	acc.lamports += lamports
}

// GetAccount returns a copy of the account's current committed state.
func (l *Ledger) GetAccount(key ed25519.PublicKey) (solana.AccountInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[base58.Encode(key)]
	if !ok {
		return solana.AccountInfo{}, false
	}

	data := make([]byte, len(acc.data))
	copy(data, acc.data)

	return solana.AccountInfo{
		Data:     data,
		Owner:    append(ed25519.PublicKey(nil), acc.owner...),
		Lamports: acc.lamports,
	}, true
}

func (l *Ledger) lookupLocked(key ed25519.PublicKey) *storedAccount {
	id := base58.Encode(key)
	acc, ok := l.accounts[id]
	if !ok {
		acc = &storedAccount{owner: make(ed25519.PublicKey, ed25519.PublicKeySize)}
		l.accounts[id] = acc
	}
	return acc
}

// Execute runs every instruction of the transaction in order against a
// working copy of the store. The copy is committed only if all instructions
// succeed; any failure leaves the ledger untouched.
func (l *Ledger) Execute(txn solana.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := txn.Message

	if int(m.Header.NumSignatures) != len(txn.Signatures) {
		return ErrMissingSignature
	}
	if len(m.Accounts) < int(m.Header.NumSignatures) {
		return ErrMissingSignature
	}

	msgBytes := m.Marshal()
	for i := 0; i < int(m.Header.NumSignatures); i++ {
		if !ed25519.Verify(m.Accounts[i], msgBytes, txn.Signatures[i][:]) {
			return ErrInvalidSignature
		}
	}

	// Build working views of every referenced account. Instructions share
	// views, so writes are visible to later instructions in the batch.
	views := make(map[string]*runtime.Account)
	ordered := make([]*runtime.Account, len(m.Accounts))
	for i, key := range m.Accounts {
		committed := l.lookupLocked(key)

		data := make([]byte, len(committed.data))
		copy(data, committed.data)

		view := &runtime.Account{
			Key:        key,
			Owner:      append(ed25519.PublicKey(nil), committed.owner...),
			Lamports:   committed.lamports,
			Data:       data,
			IsSigner:   i < int(m.Header.NumSignatures),
			IsWritable: l.isWritable(m.Header, len(m.Accounts), i),
		}
		views[base58.Encode(key)] = view
		ordered[i] = view
	}

	for index, ci := range m.Instructions {
		if int(ci.ProgramIndex) >= len(m.Accounts) {
			return solana.InstructionError{Index: index, Err: errors.New("invalid program index")}
		}

		program := m.Accounts[ci.ProgramIndex]
		handler, ok := l.handlers[base58.Encode(program)]
		if !ok {
			return solana.InstructionError{Index: index, Err: ErrUnknownProgram}
		}

		accounts := make([]*runtime.Account, len(ci.Accounts))
		for i, accountIndex := range ci.Accounts {
			if int(accountIndex) >= len(ordered) {
				return solana.InstructionError{Index: index, Err: errors.New("invalid account index")}
			}
			accounts[i] = ordered[accountIndex]
		}

		host := &execContext{
			ledger:  l,
			views:   views,
			program: program,
		}

		if err := handler.Process(host, accounts, ci.Data); err != nil {
			return solana.InstructionError{Index: index, Err: err}
		}
	}

	// Commit.
	for id, view := range views {
		l.accounts[id] = &storedAccount{
			lamports: view.Lamports,
			data:     view.Data,
			owner:    view.Owner,
		}
	}

	return nil
}

func (l *Ledger) isWritable(h solana.Header, numAccounts, index int) bool {
	numSigners := int(h.NumSignatures)
	if index < numSigners {
		return index < numSigners-int(h.NumReadonlySigned)
	}
	return index < numAccounts-int(h.NumReadOnly)
}

// execContext is the runtime.Host for one instruction (and its nested
// invokes).
type execContext struct {
	ledger  *Ledger
	views   map[string]*runtime.Account
	program ed25519.PublicKey
}

func (e *execContext) UnixTime() int64 {
	return e.ledger.unixTime
}

func (e *execContext) Invoke(instruction solana.Instruction, signerSeeds ...[][]byte) error {
	handler, ok := e.ledger.handlers[base58.Encode(instruction.Program)]
	if !ok {
		return ErrUnknownProgram
	}

	// Addresses derived from the calling program and the provided seeds are
	// treated as having signed the inner instruction.
	derived := make([]ed25519.PublicKey, 0, len(signerSeeds))
	for _, seeds := range signerSeeds {
		key, err := solana.CreateProgramAddress(e.program, seeds...)
		if err != nil {
			return errors.Wrap(err, "invalid signer seeds")
		}
		derived = append(derived, key)
	}

	accounts := make([]*runtime.Account, len(instruction.Accounts))
	outer := make([]*runtime.Account, len(instruction.Accounts))
	for i, meta := range instruction.Accounts {
		view, ok := e.views[base58.Encode(meta.PublicKey)]
		if !ok {
			return ErrAccountNotInBatch
		}

		signed := view.IsSigner
		for _, key := range derived {
			if bytes.Equal(key, meta.PublicKey) {
				signed = true
			}
		}
		if meta.IsSigner && !signed {
			return ErrMissingSignature
		}

		// The inner view shares the data slice of the outer one but carries
		// the privileges the caller granted for this invoke.
		inner := *view
		inner.IsSigner = signed
		inner.IsWritable = view.IsWritable && meta.IsWritable
		accounts[i] = &inner
		outer[i] = view
	}

	innerCtx := &execContext{
		ledger:  e.ledger,
		views:   e.views,
		program: instruction.Program,
	}

	if err := handler.Process(innerCtx, accounts, instruction.Data); err != nil {
		return err
	}

	// Propagate lamport, owner, and reallocation changes back to the shared
	// views. Data writes within the existing allocation are already visible
	// through the shared slice.
	for i := range accounts {
		outer[i].Lamports = accounts[i].Lamports
		outer[i].Owner = accounts[i].Owner
		outer[i].Data = accounts[i].Data
	}

	return nil
}
