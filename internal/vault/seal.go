package vault

import (
	"errors"
	"strings"

	"github.com/nalsan/peka/krypto"
)

func kdfError(err error) *Error {
	if errors.Is(err, krypto.ErrInvalidKDFParams) {
		return NewError(ErrKDF, "vault key derivation parameters are invalid", err)
	}
	return NewError(ErrKDF, "unable to derive encryption key", err)
}

// Seal encrypts p under a key derived from password with kdf's cost profile.
// Salt and nonce are drawn fresh on every call; kdf itself is copied verbatim
// into the envelope.
func Seal(p Payload, password []byte, kdf KDFConfig) (Envelope, error) {
	if !strings.EqualFold(kdf.Algorithm, krypto.AlgorithmArgon2id) {
		return Envelope{}, NewError(ErrKDF, "unsupported key derivation algorithm", nil)
	}
	params := kdf.Params()
	if err := params.Validate(); err != nil {
		return Envelope{}, kdfError(err)
	}

	salt, err := krypto.NewRandomSalt(int(params.SaltLen))
	if err != nil {
		return Envelope{}, NewError(ErrKDF, "unable to generate salt", err)
	}

	key, err := krypto.DeriveKeyArgon2id(password, salt, params)
	if err != nil {
		return Envelope{}, kdfError(err)
	}
	defer krypto.Wipe(key)

	plaintext, err := EncodePayload(p)
	if err != nil {
		return Envelope{}, NewError(ErrPayload, "unable to encode vault data", err)
	}
	defer krypto.Wipe(plaintext)

	nonce, err := krypto.NewNonce()
	if err != nil {
		return Envelope{}, NewError(ErrIO, "unable to generate nonce", err)
	}

	ciphertext, err := krypto.SealAESGCM(key, nonce, plaintext, nil)
	if err != nil {
		return Envelope{}, NewError(ErrIO, "unable to encrypt vault", err)
	}

	return Envelope{
		Version:    FormatVersion,
		VaultName:  p.VaultName,
		KDF:        kdf,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Unseal re-derives the key from the envelope's own parameters and decrypts
// the payload. A wrong password and a tampered file fail identically.
func Unseal(env Envelope, password []byte) (Payload, error) {
	if !strings.EqualFold(env.KDF.Algorithm, krypto.AlgorithmArgon2id) {
		return Payload{}, NewError(ErrKDF, "unsupported key derivation algorithm", nil)
	}

	key, err := krypto.DeriveKeyArgon2id(password, env.Salt, env.KDF.Params())
	if err != nil {
		return Payload{}, kdfError(err)
	}
	defer krypto.Wipe(key)

	plaintext, err := krypto.OpenAESGCM(key, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return Payload{}, NewError(ErrAuthentication, "failed to decrypt vault: incorrect password or corrupted data", err)
	}
	defer krypto.Wipe(plaintext)

	return DecodePayload(plaintext)
}
