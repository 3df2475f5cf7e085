package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost settings for newly hashed passwords. Stored hashes carry
// their own settings, so these can be raised without invalidating accounts.
const (
	hashIterations  uint32 = 3
	hashMemoryKiB   uint32 = 64 * 1024
	hashParallelism uint8  = 1
	hashSaltBytes          = 16
	hashKeyBytes    uint32 = 32
)

var errMalformedHash = errors.New("malformed password hash")

// HashPassword derives an Argon2id hash of the password and encodes it as
// a PHC string ($argon2id$v=19$m=...,t=...,p=...$salt$key).
func HashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt,
		hashIterations, hashMemoryKiB, hashParallelism, hashKeyBytes)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		hashMemoryKiB, hashIterations, hashParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// VerifyPassword reports whether the password matches the stored PHC hash.
// The comparison is constant-time.
func VerifyPassword(password, encodedHash string) (bool, error) {
	fields := strings.Split(encodedHash, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return false, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return false, errMalformedHash
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, errMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return false, errMalformedHash
	}
	stored, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil {
		return false, errMalformedHash
	}

	candidate := argon2.IDKey([]byte(password), salt,
		iterations, memory, parallelism, uint32(len(stored))) //nolint:gosec // G115: key length fits uint32

	return subtle.ConstantTimeCompare(stored, candidate) == 1, nil
}
