package escrow

import (
	"crypto/ed25519"

	"github.com/humanprotocol/escrow-server/pkg/solana"
	"github.com/humanprotocol/escrow-server/pkg/solana/binary"
	"github.com/humanprotocol/escrow-server/pkg/solana/token"
)

// Command is the leading variant tag of an escrow instruction envelope.
type Command byte

const (
	CommandInitialize Command = iota
	CommandPayout
	CommandCancel
	CommandComplete
)

const (
	initializeArgsSize = (1 + // tag
		32 + // mint
		32 + // token account
		32 + // launcher
		32 + // canceler
		32 + // canceler token account
		8) // duration

	payoutArgsSize = 1 + 8 // tag + amount

	tagOnlySize = 1
)

// InitializeArgs are the request fields of the Initialize operation.
type InitializeArgs struct {
	Mint                 ed25519.PublicKey
	TokenAccount         ed25519.PublicKey
	Launcher             ed25519.PublicKey
	Canceler             ed25519.PublicKey
	CancelerTokenAccount ed25519.PublicKey

	// Duration is the validity window in seconds from creation.
	Duration uint64
}

func (a *InitializeArgs) Marshal() []byte {
	b := make([]byte, initializeArgsSize)

	var offset int
	binary.PutUint8(b, uint8(CommandInitialize), &offset)
	binary.PutKey32(b[offset:], a.Mint, &offset)
	binary.PutKey32(b[offset:], a.TokenAccount, &offset)
	binary.PutKey32(b[offset:], a.Launcher, &offset)
	binary.PutKey32(b[offset:], a.Canceler, &offset)
	binary.PutKey32(b[offset:], a.CancelerTokenAccount, &offset)
	binary.PutUint64(b[offset:], a.Duration, &offset)

	return b
}

func (a *InitializeArgs) Unmarshal(b []byte) error {
	if len(b) != initializeArgsSize || Command(b[0]) != CommandInitialize {
		return ErrInvalidInstructionData
	}

	offset := 1
	binary.GetKey32(b[offset:], &a.Mint, &offset)
	binary.GetKey32(b[offset:], &a.TokenAccount, &offset)
	binary.GetKey32(b[offset:], &a.Launcher, &offset)
	binary.GetKey32(b[offset:], &a.Canceler, &offset)
	binary.GetKey32(b[offset:], &a.CancelerTokenAccount, &offset)
	binary.GetUint64(b[offset:], &a.Duration, &offset)

	return nil
}

// PayoutArgs are the request fields of the Payout operation.
type PayoutArgs struct {
	Amount uint64
}

func (a *PayoutArgs) Marshal() []byte {
	b := make([]byte, payoutArgsSize)

	var offset int
	binary.PutUint8(b, uint8(CommandPayout), &offset)
	binary.PutUint64(b[offset:], a.Amount, &offset)

	return b
}

func (a *PayoutArgs) Unmarshal(b []byte) error {
	if len(b) != payoutArgsSize || Command(b[0]) != CommandPayout {
		return ErrInvalidInstructionData
	}

	offset := 1
	binary.GetUint64(b[offset:], &a.Amount, &offset)

	return nil
}

// Initialize builds the instruction that turns a freshly created,
// program-owned record account into a launched escrow. The token account
// must already be initialized with the predicted derived authority as its
// owner.
func Initialize(program, record ed25519.PublicKey, args *InitializeArgs) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The escrow record account.
	//   1. `[]` The escrow token account named in the args.
	return solana.NewInstruction(
		program,
		args.Marshal(),
		solana.NewAccountMeta(record, false),
		solana.NewReadonlyAccountMeta(args.TokenAccount, false),
	)
}

// Payout builds the instruction releasing `amount` from the escrowed balance
// to a recipient token account, authorized by the launcher.
func Payout(program, record, launcher, authority, escrowToken, recipientToken ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The escrow record account.
	//   1. `[signer]` The launcher.
	//   2. `[]` The custodian authority derived for the record.
	//   3. `[writable]` The escrow token account.
	//   4. `[writable]` The recipient token account.
	//   5. `[]` The token program.
	args := PayoutArgs{Amount: amount}

	return solana.NewInstruction(
		program,
		args.Marshal(),
		solana.NewAccountMeta(record, false),
		solana.NewReadonlyAccountMeta(launcher, true),
		solana.NewReadonlyAccountMeta(authority, false),
		solana.NewAccountMeta(escrowToken, false),
		solana.NewAccountMeta(recipientToken, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

// Cancel builds the instruction returning the remaining escrowed balance to
// the canceler token account recorded at initialization.
func Cancel(program, record, canceler, authority, escrowToken, cancelerToken ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The escrow record account.
	//   1. `[signer]` The canceler.
	//   2. `[]` The custodian authority derived for the record.
	//   3. `[writable]` The escrow token account.
	//   4. `[writable]` The canceler token account held in the record.
	//   5. `[]` The token program.
	return solana.NewInstruction(
		program,
		[]byte{byte(CommandCancel)},
		solana.NewAccountMeta(record, false),
		solana.NewReadonlyAccountMeta(canceler, true),
		solana.NewReadonlyAccountMeta(authority, false),
		solana.NewAccountMeta(escrowToken, false),
		solana.NewAccountMeta(cancelerToken, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

// Complete builds the instruction marking a fully paid out escrow as
// complete.
func Complete(program, record, launcher ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The escrow record account.
	//   1. `[signer]` The launcher.
	return solana.NewInstruction(
		program,
		[]byte{byte(CommandComplete)},
		solana.NewAccountMeta(record, false),
		solana.NewReadonlyAccountMeta(launcher, true),
	)
}
