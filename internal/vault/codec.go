package vault

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nalsan/peka/krypto"
)

// kdfJSON is the persisted kdf block. The snake_case twins let us read files
// written before the field names were settled; they are never written.
type kdfJSON struct {
	Algorithm   string `json:"algorithm"`
	MemoryKiB   uint32 `json:"memoryKib"`
	TimeCost    uint32 `json:"timeCost"`
	Parallelism uint32 `json:"parallelism"`
	HashLength  uint32 `json:"hashLength"`
	SaltLength  uint32 `json:"saltLength"`

	LegacyMemoryKiB  uint32 `json:"memory_kib,omitempty"`
	LegacyTimeCost   uint32 `json:"time_cost,omitempty"`
	LegacyHashLength uint32 `json:"hash_length,omitempty"`
	LegacySaltLength uint32 `json:"salt_length,omitempty"`
}

type envelopeJSON struct {
	Version         int     `json:"version"`
	VaultName       string  `json:"vaultName"`
	LegacyVaultName string  `json:"vault_name,omitempty"`
	KDF             kdfJSON `json:"kdf"`
	Salt            string  `json:"salt"`
	Nonce           string  `json:"nonce"`
	Ciphertext      string  `json:"ciphertext"`
}

func formatError(msg string, cause error) *Error { return NewError(ErrFormat, msg, cause) }

// EncodeEnvelope renders env as indented JSON with base64 binary fields.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	wire := envelopeJSON{
		Version:   env.Version,
		VaultName: env.VaultName,
		KDF: kdfJSON{
			Algorithm:   env.KDF.Algorithm,
			MemoryKiB:   env.KDF.MemoryKiB,
			TimeCost:    env.KDF.TimeCost,
			Parallelism: env.KDF.Parallelism,
			HashLength:  env.KDF.HashLength,
			SaltLength:  env.KDF.SaltLength,
		},
		Salt:       base64.StdEncoding.EncodeToString(env.Salt),
		Nonce:      base64.StdEncoding.EncodeToString(env.Nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(env.Ciphertext),
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses and structurally validates a persisted envelope.
// It never touches the ciphertext beyond base64 decoding.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope

	var wire envelopeJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&wire); err != nil {
		return env, formatError("vault file is corrupted or invalid", err)
	}
	if dec.More() {
		return env, formatError("vault file is corrupted or invalid", nil)
	}

	if wire.Version != FormatVersion {
		return env, formatError(fmt.Sprintf("unsupported vault format version %d", wire.Version), nil)
	}
	if !strings.EqualFold(wire.KDF.Algorithm, krypto.AlgorithmArgon2id) {
		return env, formatError("unsupported key derivation algorithm", nil)
	}

	env.Version = wire.Version
	env.VaultName = firstNonEmpty(wire.VaultName, wire.LegacyVaultName)
	env.KDF = KDFConfig{
		Algorithm:   wire.KDF.Algorithm,
		MemoryKiB:   firstNonZero(wire.KDF.MemoryKiB, wire.KDF.LegacyMemoryKiB),
		TimeCost:    firstNonZero(wire.KDF.TimeCost, wire.KDF.LegacyTimeCost),
		Parallelism: wire.KDF.Parallelism,
		HashLength:  firstNonZero(wire.KDF.HashLength, wire.KDF.LegacyHashLength),
		SaltLength:  firstNonZero(wire.KDF.SaltLength, wire.KDF.LegacySaltLength),
	}

	var err error
	if env.Salt, err = base64.StdEncoding.DecodeString(wire.Salt); err != nil {
		return env, formatError("invalid salt encoding", err)
	}
	if env.Nonce, err = base64.StdEncoding.DecodeString(wire.Nonce); err != nil {
		return env, formatError("invalid nonce encoding", err)
	}
	if env.Ciphertext, err = base64.StdEncoding.DecodeString(wire.Ciphertext); err != nil {
		return env, formatError("invalid ciphertext encoding", err)
	}

	switch {
	case len(env.Nonce) != krypto.NonceSize:
		return env, formatError("invalid nonce length", nil)
	case len(env.Salt) == 0 || uint32(len(env.Salt)) != env.KDF.SaltLength:
		return env, formatError("salt length does not match kdf parameters", nil)
	case len(env.Ciphertext) == 0:
		return env, formatError("vault ciphertext is empty", nil)
	}
	return env, nil
}

// EncodePayload renders the plaintext form that gets encrypted.
func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// DecodePayload parses decrypted bytes and checks the folder invariants.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, NewError(ErrPayload, "vault data is malformed", err)
	}
	for _, f := range p.Folders {
		if f.ID == "" {
			return Payload{}, NewError(ErrPayload, "vault data is malformed", fmt.Errorf("folder without id"))
		}
		if f.Secure != (f.PINHash != "") {
			return Payload{}, NewError(ErrPayload, "vault data is malformed",
				fmt.Errorf("folder %s: secure flag and pin hash disagree", f.ID))
		}
	}
	return p, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b uint32) uint32 {
	if a != 0 {
		return a
	}
	return b
}
