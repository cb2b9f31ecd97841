package vault

import "github.com/nalsan/peka/krypto"

// FormatVersion is the only envelope version this package reads or writes.
const FormatVersion = 1

// KDFConfig describes the key-derivation parameters stored in the envelope.
// Once written they are reused for every later write of the same file.
type KDFConfig struct {
	Algorithm   string `json:"algorithm"`
	MemoryKiB   uint32 `json:"memoryKib"`
	TimeCost    uint32 `json:"timeCost"`
	Parallelism uint32 `json:"parallelism"`
	HashLength  uint32 `json:"hashLength"`
	SaltLength  uint32 `json:"saltLength"`
}

// NewKDFConfig records p as an Argon2id block.
func NewKDFConfig(p krypto.KDFParams) KDFConfig {
	return KDFConfig{
		Algorithm:   krypto.AlgorithmArgon2id,
		MemoryKiB:   p.MemoryKiB,
		TimeCost:    p.TimeCost,
		Parallelism: p.Parallelism,
		HashLength:  p.KeyLen,
		SaltLength:  p.SaltLen,
	}
}

// Params converts the stored block back into krypto parameters.
func (c KDFConfig) Params() krypto.KDFParams {
	return krypto.KDFParams{
		MemoryKiB:   c.MemoryKiB,
		TimeCost:    c.TimeCost,
		Parallelism: c.Parallelism,
		KeyLen:      c.HashLength,
		SaltLen:     c.SaltLength,
	}
}

// Envelope is the on-disk wrapper around one encrypted vault payload.
type Envelope struct {
	Version    int
	VaultName  string
	KDF        KDFConfig
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}
