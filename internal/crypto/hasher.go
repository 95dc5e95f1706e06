package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrHashing           = errors.New("credential hashing failed")
	ErrMalformedSalt     = fmt.Errorf("%w: malformed salt", ErrHashing)
	ErrMalformedEncoding = fmt.Errorf("%w: malformed hash encoding", ErrHashing)
)

// Argon2id parameters, the x/crypto recommended defaults.
const (
	saltLength = 16 // 128 bits
	timeCost   = 1
	memoryCost = 64 * 1024
	threads    = 4
	keyLength  = 32
)

// GenerateSalt returns a cryptographically random salt of the recommended
// length for argon2id.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return salt, nil
}

// Hash derives an argon2id hash of password with the given salt and
// returns it PHC-encoded, e.g.
// $argon2id$v=19$m=65536,t=1,p=4$BASE64_SALT$BASE64_HASH.
// The parameters travel with the hash so verification stays
// self-describing across parameter changes. Deterministic for identical
// inputs.
func Hash(password string, salt []byte) (string, error) {
	if len(salt) == 0 {
		return "", ErrMalformedSalt
	}

	hash := argon2.IDKey([]byte(password), salt, timeCost, memoryCost, threads, keyLength)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memoryCost, timeCost, threads, encodedSalt, encodedHash), nil
}

// Verify re-derives the hash of password using the parameters and salt
// encoded in encodedHash and compares in constant time.
func Verify(encodedHash, password string) (bool, error) {
	salt, storedHash, t, m, p, err := decode(encodedHash)
	if err != nil {
		return false, err
	}

	comparisonHash := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(storedHash)))

	return subtle.ConstantTimeCompare(comparisonHash, storedHash) == 1, nil
}

// decode splits a PHC-encoded argon2id hash into its salt, hash and
// parameters. Expected sections: argon2id, v=19, m=...,t=...,p=..., salt, hash.
func decode(encodedHash string) (salt, hash []byte, t, m uint32, p uint8, err error) {
	sections := strings.Split(strings.TrimPrefix(encodedHash, "$"), "$")
	if len(sections) != 5 || sections[0] != "argon2id" {
		return nil, nil, 0, 0, 0, ErrMalformedEncoding
	}

	var version int
	if _, err := fmt.Sscanf(sections[1], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedEncoding
	}

	var threads uint32
	if _, err := fmt.Sscanf(sections[2], "m=%d,t=%d,p=%d", &m, &t, &threads); err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedEncoding
	}

	salt, err = base64.RawStdEncoding.DecodeString(sections[3])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedSalt
	}
	hash, err = base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedEncoding
	}

	return salt, hash, t, m, uint8(threads), nil
}
