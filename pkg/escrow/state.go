// Package escrow implements a custodial escrow program: its persisted record
// layout, the derivation of its keyless custodian authority, the instruction
// codec, and the processor that validates and executes state transitions.
package escrow

import (
	"crypto/ed25519"

	"github.com/humanprotocol/escrow-server/pkg/solana/binary"
)

// State is the lifecycle tag of an escrow record.
type State uint8

const (
	// StateUninitialized is the implicit zero state of a fresh record.
	StateUninitialized State = iota
	// StateLaunched means the custody relationship is established and the
	// escrow accepts funding and payouts.
	StateLaunched
	// StatePartial means at least one payout has occurred and a balance
	// remains.
	StatePartial
	// StatePaid means the escrowed balance has been fully paid out.
	StatePaid
	// StateComplete is the terminal success state.
	StateComplete
	// StateCancelled is the terminal state after the canceler reclaimed the
	// remaining balance.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLaunched:
		return "launched"
	case StatePartial:
		return "partial"
	case StatePaid:
		return "paid"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	}

	return "unknown"
}

func validState(s State) bool {
	return s <= StateCancelled
}

// RecordLen is the exact byte length of an escrow record account.
const RecordLen = (1 + // state
	1 + // bump seed
	32 + // token mint
	32 + // token account
	32 + // launcher
	32 + // canceler
	32 + // canceler token account
	8) // expires at

// Record is the persistent state of one escrow instance. All address fields
// are fixed at initialization; only State changes afterwards.
type Record struct {
	State State

	// Bump is the disambiguation byte under which the custodian authority
	// for this record derives to a keyless address.
	Bump uint8

	// TokenMint identifies the token type this escrow custodies.
	TokenMint ed25519.PublicKey

	// TokenAccount is the token account holding the escrowed balance. Its
	// on-ledger authority must be the derived custodian address.
	TokenAccount ed25519.PublicKey

	// Launcher is the party on whose behalf funds are released.
	Launcher ed25519.PublicKey

	// Canceler may trigger return of the remaining balance.
	Canceler ed25519.PublicKey

	// CancelerTokenAccount receives returned funds on cancellation.
	CancelerTokenAccount ed25519.PublicKey

	// ExpiresAt is the unix second past which forward progress is rejected.
	// Cancellation remains available after expiry.
	ExpiresAt uint64
}

func (r *Record) Marshal() []byte {
	b := make([]byte, RecordLen)

	var offset int
	binary.PutUint8(b, uint8(r.State), &offset)
	binary.PutUint8(b[offset:], r.Bump, &offset)
	binary.PutKey32(b[offset:], r.TokenMint, &offset)
	binary.PutKey32(b[offset:], r.TokenAccount, &offset)
	binary.PutKey32(b[offset:], r.Launcher, &offset)
	binary.PutKey32(b[offset:], r.Canceler, &offset)
	binary.PutKey32(b[offset:], r.CancelerTokenAccount, &offset)
	binary.PutUint64(b[offset:], r.ExpiresAt, &offset)

	return b
}

// IsZero reports whether every field is unset, the form a freshly created
// record account decodes to.
func (r *Record) IsZero() bool {
	if r.State != StateUninitialized || r.Bump != 0 || r.ExpiresAt != 0 {
		return false
	}

	for _, key := range [][]byte{r.TokenMint, r.TokenAccount, r.Launcher, r.Canceler, r.CancelerTokenAccount} {
		for _, v := range key {
			if v != 0 {
				return false
			}
		}
	}

	return true
}

func (r *Record) Unmarshal(b []byte) error {
	if len(b) != RecordLen {
		return ErrInvalidAccountSize
	}

	var offset int
	var state uint8
	binary.GetUint8(b, &state, &offset)
	if !validState(State(state)) {
		return ErrInvalidState
	}
	r.State = State(state)

	binary.GetUint8(b[offset:], &r.Bump, &offset)
	binary.GetKey32(b[offset:], &r.TokenMint, &offset)
	binary.GetKey32(b[offset:], &r.TokenAccount, &offset)
	binary.GetKey32(b[offset:], &r.Launcher, &offset)
	binary.GetKey32(b[offset:], &r.Canceler, &offset)
	binary.GetKey32(b[offset:], &r.CancelerTokenAccount, &offset)
	binary.GetUint64(b[offset:], &r.ExpiresAt, &offset)

	return nil
}
