package sandbox

import (
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"contractfuzz/internal/trace"
)

// HashFunction identifies the bundle's declared hash function.
// Portability across host chains requires this to be injectable rather
// than hard-coded.
type HashFunction int

const (
	// HashBlake2b256 is ink!/the default contracts pallet's hash function.
	HashBlake2b256 HashFunction = iota
	// HashKeccak256 is selectable for Substrate chains configured with an
	// EVM-compatible hasher.
	HashKeccak256
)

// ParseHashFunction maps a bundle's hash_function_id string to a
// HashFunction, defaulting to HashBlake2b256 for an unrecognized id.
func ParseHashFunction(id string) HashFunction {
	if id == "keccak-256" {
		return HashKeccak256
	}
	return HashBlake2b256
}

// Hash256 hashes b with the selected function.
func Hash256(hf HashFunction, b []byte) [32]byte {
	switch hf {
	case HashKeccak256:
		var out [32]byte
		h := sha3.NewLegacyKeccak256()
		h.Write(b)
		copy(out[:], h.Sum(nil))
		return out
	default:
		return blake2b.Sum256(b)
	}
}

// CodeHash computes the bundle's declared hash of the contract code, so
// that deploy.code_hash always equals Hash(code).
func CodeHash(hf HashFunction, code []byte) [32]byte {
	return Hash256(hf, code)
}

// AddressOf derives the deployed contract address as
// H(caller || code_hash || data || salt). It must be
// bit-compatible with the host chain's own derivation for faithful
// reproduction; callers needing a different scheme inject a different
// HashFunction rather than patching this function.
func AddressOf(hf HashFunction, caller trace.AccountId, codeHash [32]byte, data, salt []byte) trace.AccountId {
	buf := make([]byte, 0, 32+32+len(data)+len(salt))
	buf = append(buf, caller[:]...)
	buf = append(buf, codeHash[:]...)
	buf = append(buf, data...)
	buf = append(buf, salt...)
	return trace.AccountId(Hash256(hf, buf))
}
