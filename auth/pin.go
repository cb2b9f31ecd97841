package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/nalsan/peka/krypto"
)

// PIN hashes use the stock cost of a PHC Argon2id hasher. A PIN only guards a
// folder view inside an already unlocked vault, so it does not get the vault cost profile.
const (
	pinMemoryKiB   = 19456
	pinTime        = 2
	pinParallelism = 1
	pinKeyLen      = 32
	pinSaltLen     = 16
	pinLength      = 4
)

var (
	// ErrPINRequired is returned when a secure folder is created without a PIN.
	ErrPINRequired = errors.New("PIN is required for secure folders")
	// ErrPINFormat is returned when a PIN is not exactly four ASCII digits.
	ErrPINFormat = errors.New("PIN must be exactly 4 digits")
	// ErrInvalidPINHash is returned when a stored PIN hash cannot be parsed.
	ErrInvalidPINHash = errors.New("invalid PIN hash")
)

// ValidatePIN checks that pin is exactly four ASCII digits.
func ValidatePIN(pin string) error {
	if pin == "" {
		return ErrPINRequired
	}
	if len(pin) != pinLength {
		return ErrPINFormat
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrPINFormat
		}
	}
	return nil
}

// HashPIN hashes a PIN with a fresh salt and returns a PHC string:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
func HashPIN(pin string) (string, error) {
	salt := make([]byte, pinSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate pin salt: %w", err)
	}

	pinBytes := []byte(pin)
	defer krypto.Wipe(pinBytes)

	sum := argon2.IDKey(pinBytes, salt, pinTime, pinMemoryKiB, pinParallelism, pinKeyLen)
	defer krypto.Wipe(sum)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, pinMemoryKiB, pinTime, pinParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// VerifyPIN reports whether pin matches the stored PHC hash. A parse failure
// is an error; a mismatch is (false, nil).
func VerifyPIN(pin, encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	pinBytes := []byte(pin)
	defer krypto.Wipe(pinBytes)

	sum := argon2.IDKey(pinBytes, h.salt, h.time, h.memory, h.lanes, uint32(len(h.hash)))
	defer krypto.Wipe(sum)

	return subtle.ConstantTimeCompare(sum, h.hash) == 1, nil
}

type phcHash struct {
	memory uint32
	time   uint32
	lanes  uint8
	salt   []byte
	hash   []byte
}

func parsePHC(encoded string) (phcHash, error) {
	var h phcHash

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return h, fmt.Errorf("%w: unexpected field count", ErrInvalidPINHash)
	}
	if parts[1] != "argon2id" {
		return h, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidPINHash, parts[1])
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return h, fmt.Errorf("%w: unsupported version %q", ErrInvalidPINHash, parts[2])
	}

	var seen int
	for _, kv := range strings.Split(parts[3], ",") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return h, fmt.Errorf("%w: malformed parameter %q", ErrInvalidPINHash, kv)
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return h, fmt.Errorf("%w: parameter %s: %v", ErrInvalidPINHash, key, err)
		}
		switch key {
		case "m":
			h.memory = uint32(n)
		case "t":
			h.time = uint32(n)
		case "p":
			if n > 255 {
				return h, fmt.Errorf("%w: parallelism out of range", ErrInvalidPINHash)
			}
			h.lanes = uint8(n)
		default:
			return h, fmt.Errorf("%w: unknown parameter %q", ErrInvalidPINHash, key)
		}
		seen++
	}
	if seen != 3 || h.time == 0 || h.lanes == 0 {
		return h, fmt.Errorf("%w: missing or zero cost parameter", ErrInvalidPINHash)
	}
	if h.memory < 8*uint32(h.lanes) || h.memory > 1<<22 {
		return h, fmt.Errorf("%w: memory cost out of range", ErrInvalidPINHash)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return h, fmt.Errorf("%w: salt: %v", ErrInvalidPINHash, err)
	}
	if h.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return h, fmt.Errorf("%w: hash: %v", ErrInvalidPINHash, err)
	}
	if len(h.salt) < 8 || len(h.hash) < 4 || len(h.hash) > 64 {
		return h, fmt.Errorf("%w: salt or hash length out of range", ErrInvalidPINHash)
	}
	return h, nil
}
