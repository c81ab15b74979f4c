package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"os"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// MustPublicKey decodes a base58 encoded public key, panicking on failure.
// Reserved for well-known program addresses baked in at compile time.
func MustPublicKey(s string) ed25519.PublicKey {
	raw, err := base58.Decode(s)
	if err != nil {
		panic(errors.Wrapf(err, "invalid base58 key: %s", s))
	}
	if len(raw) != ed25519.PublicKeySize {
		panic(errors.Errorf("invalid key length: %d", len(raw)))
	}
	return raw
}

// ParsePublicKey decodes a base58 encoded public key.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base58 encoding")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid key length: %d", len(raw))
	}
	return raw, nil
}

// LoadKeypair reads a private key from a Solana CLI keypair file, which is a
// JSON array of the 64 bytes of the expanded ed25519 private key.
func LoadKeypair(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keypair file")
	}

	// encoding/json maps []byte to base64, so the array is decoded by hand.
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrap(err, "failed to parse keypair file")
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid keypair length: %d", len(values))
	}

	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("invalid keypair byte at %d: %d", i, v)
		}
		key[i] = byte(v)
	}

	return key, nil
}
