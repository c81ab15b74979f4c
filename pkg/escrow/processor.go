package escrow

import (
	"bytes"
	"crypto/ed25519"

	"github.com/humanprotocol/escrow-server/pkg/solana/runtime"
	"github.com/humanprotocol/escrow-server/pkg/solana/token"
)

// Processor validates and executes escrow instructions. The program identity
// is injected at construction and referenced read-only by every derivation
// and ownership check.
//
// Every operation re-validates the caller-supplied accounts from scratch:
// address equality against the record, ownership against the expected
// program, and the custodian authority by re-derivation from the stored bump
// seed. No writes happen before all checks pass, so any failure leaves the
// accounts untouched and the host's batch atomicity does the rest.
type Processor struct {
	programID ed25519.PublicKey
}

func NewProcessor(programID ed25519.PublicKey) *Processor {
	return &Processor{programID: programID}
}

// Process implements runtime.Handler.
func (p *Processor) Process(host runtime.Host, accounts []*runtime.Account, data []byte) error {
	if len(data) == 0 {
		return ErrInvalidInstructionData
	}

	switch Command(data[0]) {
	case CommandInitialize:
		return p.initialize(host, accounts, data)
	case CommandPayout:
		return p.payout(host, accounts, data)
	case CommandCancel:
		return p.cancel(host, accounts, data)
	case CommandComplete:
		return p.complete(host, accounts, data)
	default:
		return ErrInvalidInstructionData
	}
}

func (p *Processor) initialize(host runtime.Host, accounts []*runtime.Account, data []byte) error {
	if len(accounts) != 2 {
		return ErrInvalidInstructionData
	}

	var args InitializeArgs
	if err := args.Unmarshal(data); err != nil {
		return err
	}

	record, tokenAccount := accounts[0], accounts[1]

	if !bytes.Equal(record.Owner, p.programID) {
		return ErrInvalidOwner
	}
	if len(record.Data) != RecordLen {
		return ErrInvalidAccountSize
	}
	// A fresh record account decodes to the all-zero form; anything else has
	// been touched before.
	var existing Record
	if err := existing.Unmarshal(record.Data); err != nil || !existing.IsZero() {
		return ErrAlreadyInitialized
	}

	if !bytes.Equal(tokenAccount.Key, args.TokenAccount) {
		return ErrAccountMismatch
	}
	// A canceler refund account aliased to the escrow's own account would
	// leave the funds under the custodian after cancellation, with no
	// instruction left to release them.
	if bytes.Equal(args.CancelerTokenAccount, args.TokenAccount) {
		return ErrAccountMismatch
	}
	if !bytes.Equal(tokenAccount.Owner, token.ProgramKey) {
		return ErrInvalidOwner
	}

	var held token.Account
	if !held.Unmarshal(tokenAccount.Data) {
		return ErrInvalidAccountSize
	}
	if held.State != token.AccountStateInitialized {
		return ErrInvalidState
	}
	if !bytes.Equal(held.Mint, args.Mint) {
		return ErrMintMismatch
	}

	authority, bump, err := DeriveAuthority(p.programID, record.Key)
	if err != nil {
		return ErrInvalidAuthority
	}
	if !bytes.Equal(held.Owner, authority) {
		return ErrInvalidAuthority
	}
	// A delegate or close authority would let a third party bypass the
	// custody relationship.
	if len(held.Delegate) != 0 || len(held.CloseAuthority) != 0 {
		return ErrInvalidAuthority
	}

	rec := Record{
		State:                StateLaunched,
		Bump:                 bump,
		TokenMint:            args.Mint,
		TokenAccount:         args.TokenAccount,
		Launcher:             args.Launcher,
		Canceler:             args.Canceler,
		CancelerTokenAccount: args.CancelerTokenAccount,
		ExpiresAt:            uint64(host.UnixTime()) + args.Duration,
	}

	copy(record.Data, rec.Marshal())
	return nil
}

func (p *Processor) payout(host runtime.Host, accounts []*runtime.Account, data []byte) error {
	if len(accounts) != 6 {
		return ErrInvalidInstructionData
	}

	var args PayoutArgs
	if err := args.Unmarshal(data); err != nil {
		return err
	}
	if args.Amount == 0 {
		return ErrInvalidInstructionData
	}

	record := accounts[0]
	launcher := accounts[1]
	authorityAccount := accounts[2]
	escrowToken := accounts[3]
	recipientToken := accounts[4]
	tokenProgram := accounts[5]

	if !bytes.Equal(tokenProgram.Key, token.ProgramKey) {
		return ErrAccountMismatch
	}

	rec, err := p.loadRecord(record)
	if err != nil {
		return err
	}
	if rec.State != StateLaunched && rec.State != StatePartial {
		return ErrInvalidState
	}
	if uint64(host.UnixTime()) >= rec.ExpiresAt {
		return ErrEscrowExpired
	}

	if !bytes.Equal(launcher.Key, rec.Launcher) {
		return ErrAccountMismatch
	}
	if !launcher.IsSigner {
		return ErrMissingSignature
	}

	authority, err := p.validateCustody(rec, record.Key, authorityAccount, escrowToken)
	if err != nil {
		return err
	}

	// Paying the escrow back into its own account would advance the state
	// machine without releasing anything.
	if bytes.Equal(recipientToken.Key, rec.TokenAccount) {
		return ErrAccountMismatch
	}
	if !bytes.Equal(recipientToken.Owner, token.ProgramKey) {
		return ErrInvalidOwner
	}
	var recipient token.Account
	if !recipient.Unmarshal(recipientToken.Data) {
		return ErrInvalidAccountSize
	}
	if !bytes.Equal(recipient.Mint, rec.TokenMint) {
		return ErrMintMismatch
	}

	var held token.Account
	held.Unmarshal(escrowToken.Data)
	if held.Amount < args.Amount {
		return ErrInsufficientFunds
	}

	err = host.Invoke(
		token.Transfer(rec.TokenAccount, recipientToken.Key, authority, args.Amount),
		[][]byte{record.Key, {rec.Bump}},
	)
	if err != nil {
		return err
	}

	// Re-read the balance after the transfer to settle the state tag.
	held.Unmarshal(escrowToken.Data)
	if held.Amount == 0 {
		rec.State = StatePaid
	} else {
		rec.State = StatePartial
	}

	copy(record.Data, rec.Marshal())
	return nil
}

func (p *Processor) cancel(host runtime.Host, accounts []*runtime.Account, data []byte) error {
	if len(accounts) != 6 || len(data) != tagOnlySize {
		return ErrInvalidInstructionData
	}

	record := accounts[0]
	canceler := accounts[1]
	authorityAccount := accounts[2]
	escrowToken := accounts[3]
	cancelerToken := accounts[4]
	tokenProgram := accounts[5]

	if !bytes.Equal(tokenProgram.Key, token.ProgramKey) {
		return ErrAccountMismatch
	}

	rec, err := p.loadRecord(record)
	if err != nil {
		return err
	}
	// Cancellation is the escape hatch: it stays available after expiry.
	if rec.State != StateLaunched && rec.State != StatePartial {
		return ErrInvalidState
	}

	if !bytes.Equal(canceler.Key, rec.Canceler) {
		return ErrAccountMismatch
	}
	if !canceler.IsSigner {
		return ErrMissingSignature
	}
	if !bytes.Equal(cancelerToken.Key, rec.CancelerTokenAccount) {
		return ErrAccountMismatch
	}

	authority, err := p.validateCustody(rec, record.Key, authorityAccount, escrowToken)
	if err != nil {
		return err
	}

	var held token.Account
	held.Unmarshal(escrowToken.Data)

	err = host.Invoke(
		token.Transfer(rec.TokenAccount, cancelerToken.Key, authority, held.Amount),
		[][]byte{record.Key, {rec.Bump}},
	)
	if err != nil {
		return err
	}

	rec.State = StateCancelled
	copy(record.Data, rec.Marshal())
	return nil
}

func (p *Processor) complete(host runtime.Host, accounts []*runtime.Account, data []byte) error {
	if len(accounts) != 2 || len(data) != tagOnlySize {
		return ErrInvalidInstructionData
	}

	record, launcher := accounts[0], accounts[1]

	rec, err := p.loadRecord(record)
	if err != nil {
		return err
	}
	if rec.State != StatePaid {
		return ErrInvalidState
	}
	if uint64(host.UnixTime()) >= rec.ExpiresAt {
		return ErrEscrowExpired
	}

	if !bytes.Equal(launcher.Key, rec.Launcher) {
		return ErrAccountMismatch
	}
	if !launcher.IsSigner {
		return ErrMissingSignature
	}

	rec.State = StateComplete
	copy(record.Data, rec.Marshal())
	return nil
}

// loadRecord checks ownership and size of the record account and decodes an
// initialized record from it.
func (p *Processor) loadRecord(record *runtime.Account) (*Record, error) {
	if !bytes.Equal(record.Owner, p.programID) {
		return nil, ErrInvalidOwner
	}
	if len(record.Data) != RecordLen {
		return nil, ErrInvalidAccountSize
	}

	var rec Record
	if err := rec.Unmarshal(record.Data); err != nil {
		return nil, err
	}
	if rec.State == StateUninitialized {
		return nil, ErrUninitializedRecord
	}

	return &rec, nil
}

// validateCustody enforces the custody relationship on every fund-moving
// instruction: the escrow token account must be the one named in the record,
// owned by the token program, and held by the authority re-derived from the
// record address and the stored bump seed. The caller-supplied authority
// account is compared against the derivation, never trusted.
func (p *Processor) validateCustody(rec *Record, recordKey ed25519.PublicKey, authorityAccount, escrowToken *runtime.Account) (ed25519.PublicKey, error) {
	authority, err := AuthorityForBump(p.programID, recordKey, rec.Bump)
	if err != nil {
		return nil, ErrInvalidAuthority
	}
	if !bytes.Equal(authorityAccount.Key, authority) {
		return nil, ErrInvalidAuthority
	}

	if !bytes.Equal(escrowToken.Key, rec.TokenAccount) {
		return nil, ErrAccountMismatch
	}
	if !bytes.Equal(escrowToken.Owner, token.ProgramKey) {
		return nil, ErrInvalidOwner
	}

	var held token.Account
	if !held.Unmarshal(escrowToken.Data) {
		return nil, ErrInvalidAccountSize
	}
	if !bytes.Equal(held.Owner, authority) {
		return nil, ErrInvalidAuthority
	}

	return authority, nil
}
