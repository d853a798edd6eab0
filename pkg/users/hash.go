package users

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PasswordHash is the opaque stored form of a password. It carries its own
// derivation parameters so verification keeps working for accounts created
// under an older hasher configuration.
type PasswordHash struct {
	Salt       []byte `cbor:"1,keyasint"`
	Key        []byte `cbor:"2,keyasint"`
	Iterations int    `cbor:"3,keyasint"`
}

// Hasher is the pluggable password derivation collaborator. The directory
// only depends on this interface; the algorithm choice lives outside the
// core contract.
type Hasher interface {
	// Hash derives a storable hash from a cleartext password.
	Hash(password string) (PasswordHash, error)

	// Verify reports whether password matches the stored hash.
	Verify(hash PasswordHash, password string) bool
}

// PBKDF2 hasher defaults. 600k iterations follows the OWASP recommendation
// for PBKDF2-SHA-256.
const (
	DefaultIterations = 600000
	DefaultSaltSize   = 32

	derivedKeySize = 32
)

// PBKDF2Hasher derives password hashes with PBKDF2-SHA-256 and a random
// per-password salt.
type PBKDF2Hasher struct {
	// Iterations is the PBKDF2 iteration count for newly derived hashes.
	Iterations int

	// SaltSize is the salt length in bytes for newly derived hashes.
	SaltSize int
}

// NewPBKDF2Hasher returns a hasher with the given parameters. Zero values
// fall back to the package defaults.
func NewPBKDF2Hasher(iterations, saltSize int) *PBKDF2Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if saltSize <= 0 {
		saltSize = DefaultSaltSize
	}
	return &PBKDF2Hasher{Iterations: iterations, SaltSize: saltSize}
}

// Hash implements Hasher.
func (h *PBKDF2Hasher) Hash(password string) (PasswordHash, error) {
	salt := make([]byte, h.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return PasswordHash{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, h.Iterations, derivedKeySize, sha256.New)
	return PasswordHash{Salt: salt, Key: key, Iterations: h.Iterations}, nil
}

// Verify implements Hasher. The comparison is constant-time; the stored
// iteration count is used so old hashes stay verifiable after a
// configuration change.
func (h *PBKDF2Hasher) Verify(hash PasswordHash, password string) bool {
	if len(hash.Key) == 0 || hash.Iterations <= 0 {
		return false
	}
	key := pbkdf2.Key([]byte(password), hash.Salt, hash.Iterations, len(hash.Key), sha256.New)
	return subtle.ConstantTimeCompare(key, hash.Key) == 1
}
