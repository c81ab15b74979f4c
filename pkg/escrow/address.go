package escrow

import (
	"crypto/ed25519"

	"github.com/humanprotocol/escrow-server/pkg/solana"
)

// DeriveAuthority finds the custodian authority for an escrow record: the
// keyless address derived from the program identity and the record address,
// along with the bump seed that produced it. Callers creating a new escrow
// use this to predict the authority before the record exists on-ledger.
func DeriveAuthority(program, record ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(program, record)
}

// AuthorityForBump re-derives the custodian authority from the bump seed
// stored in the record. The processor always re-derives and compares; it
// never trusts a caller-supplied authority address.
func AuthorityForBump(program, record ed25519.PublicKey, bump uint8) (ed25519.PublicKey, error) {
	return solana.CreateProgramAddress(program, record, []byte{bump})
}
