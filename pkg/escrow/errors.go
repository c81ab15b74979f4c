package escrow

// Error is the numeric error taxonomy the processor returns on-ledger.
// Codes are stable across versions; the textual form is diagnostic only.
type Error uint32

const (
	// The record account is already initialized
	ErrAlreadyInitialized Error = iota

	// The record account's byte length is not RecordLen
	ErrInvalidAccountSize

	// An account is not owned by the expected program
	ErrInvalidOwner

	// A token account's authority is not the re-derived custodian address
	ErrInvalidAuthority

	// A token account references a different mint than the escrow custodies
	ErrMintMismatch

	// The instruction data is malformed
	ErrInvalidInstructionData

	// The escrow's validity window has passed
	ErrEscrowExpired

	// The record account has not been initialized
	ErrUninitializedRecord

	// The record's lifecycle state does not permit this operation
	ErrInvalidState

	// A required signature is missing
	ErrMissingSignature

	// A supplied account does not match the address held in the record
	ErrAccountMismatch

	// The escrow token account holds less than the requested amount
	ErrInsufficientFunds
)

func (e Error) Error() string {
	switch e {
	case ErrAlreadyInitialized:
		return "escrow: record already initialized"
	case ErrInvalidAccountSize:
		return "escrow: invalid account size"
	case ErrInvalidOwner:
		return "escrow: invalid account owner"
	case ErrInvalidAuthority:
		return "escrow: invalid custodian authority"
	case ErrMintMismatch:
		return "escrow: token mint mismatch"
	case ErrInvalidInstructionData:
		return "escrow: invalid instruction data"
	case ErrEscrowExpired:
		return "escrow: escrow expired"
	case ErrUninitializedRecord:
		return "escrow: record not initialized"
	case ErrInvalidState:
		return "escrow: invalid state for operation"
	case ErrMissingSignature:
		return "escrow: missing required signature"
	case ErrAccountMismatch:
		return "escrow: account does not match record"
	case ErrInsufficientFunds:
		return "escrow: insufficient escrowed funds"
	}

	return "escrow: unknown error"
}
