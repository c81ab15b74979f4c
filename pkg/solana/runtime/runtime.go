// Package runtime defines the contract between an instruction processor and
// the ledger environment that hosts it. Processors receive account snapshots
// and instruction data up front, mutate account bytes synchronously, and use
// the host only for the clock and for invoking other programs.
package runtime

import (
	"crypto/ed25519"

	"github.com/humanprotocol/escrow-server/pkg/solana"
)

// Account is the view of a ledger account supplied to a processor for a
// single instruction. Data mutations are visible to subsequent instructions
// in the same batch; nothing is committed unless the whole batch succeeds.
type Account struct {
	Key      ed25519.PublicKey
	Owner    ed25519.PublicKey
	Lamports uint64
	Data     []byte

	IsSigner   bool
	IsWritable bool
}

// Host is the execution environment an instruction runs in.
type Host interface {
	// UnixTime returns the ledger's current time in unix seconds.
	UnixTime() int64

	// Invoke executes an instruction of another program within the current
	// batch. Each entry of signerSeeds authorizes, as a signer, the program
	// address derived from the calling program and those seeds.
	Invoke(instruction solana.Instruction, signerSeeds ...[][]byte) error
}

// Handler processes a single instruction for a program. Implementations must
// perform no partial writes before all preconditions pass; the host rolls
// back the batch on any returned error.
type Handler interface {
	Process(host Host, accounts []*Account, data []byte) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(host Host, accounts []*Account, data []byte) error

func (f HandlerFunc) Process(host Host, accounts []*Account, data []byte) error {
	return f(host, accounts, data)
}
