package vault_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nalsan/peka/internal/vault"
	"github.com/nalsan/peka/krypto"
)

func testKDF() vault.KDFConfig {
	return vault.NewKDFConfig(krypto.KDFParams{MemoryKiB: 64, TimeCost: 1, Parallelism: 1, KeyLen: 32, SaltLen: 16})
}

func samplePayload() vault.Payload {
	created := time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC)
	updated := created.Add(90 * time.Minute)
	return vault.Payload{
		VaultName: "Personal",
		Folders: []vault.Folder{
			{
				ID:     "f-1",
				Name:   "Banking",
				Secure: false,
				Credentials: []vault.Credential{
					{ID: "c-1", Title: "Chase", Username: "alice", Password: "s3cr3t", CreatedAt: created, UpdatedAt: created},
					{ID: "c-2", Title: "Ally", Username: "alice@example.com", Password: "p@ss", Notes: "joint", CreatedAt: created, UpdatedAt: updated},
				},
				CreatedAt: created,
				UpdatedAt: updated,
			},
			{
				ID:          "f-2",
				Name:        "Work",
				Secure:      true,
				PINHash:     "$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
				Credentials: []vault.Credential{},
				CreatedAt:   created,
				UpdatedAt:   created,
			},
		},
	}
}

func sampleEnvelope() vault.Envelope {
	return vault.Envelope{
		Version:    vault.FormatVersion,
		VaultName:  "Personal",
		KDF:        vault.NewKDFConfig(krypto.DefaultKDFParams()),
		Salt:       bytes.Repeat([]byte{0xAB}, 16),
		Nonce:      bytes.Repeat([]byte{0x01}, 12),
		Ciphertext: []byte("not really ciphertext but opaque"),
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	p := samplePayload()
	data, err := vault.EncodePayload(p)
	require.NoError(t, err)

	got, err := vault.DecodePayload(data)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := sampleEnvelope()
	data, err := vault.EncodeEnvelope(env)
	require.NoError(t, err)

	got, err := vault.DecodeEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, env, got)
}

func TestEnvelopeFieldNames(t *testing.T) {
	data, err := vault.EncodeEnvelope(sampleEnvelope())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"version", "vaultName", "kdf", "salt", "nonce", "ciphertext"} {
		require.Contains(t, raw, key)
	}
	require.NotContains(t, raw, "vault_name")

	kdf := raw["kdf"].(map[string]any)
	require.Equal(t, "Argon2id", kdf["algorithm"])
	require.EqualValues(t, 131072, kdf["memoryKib"])
	require.EqualValues(t, 3, kdf["timeCost"])
	require.EqualValues(t, 2, kdf["parallelism"])
	require.EqualValues(t, 32, kdf["hashLength"])
	require.EqualValues(t, 16, kdf["saltLength"])
	require.Len(t, kdf, 6)
}

func TestDecodeEnvelopeAcceptsSnakeCase(t *testing.T) {
	legacy := []byte(`{
  "version": 1,
  "vault_name": "Old",
  "kdf": {
    "algorithm": "Argon2id",
    "memory_kib": 131072,
    "time_cost": 3,
    "parallelism": 2,
    "hash_length": 32,
    "salt_length": 16
  },
  "salt": "q6urq6urq6urq6urq6urqw==",
  "nonce": "AQEBAQEBAQEBAQEB",
  "ciphertext": "AAAA"
}`)
	env, err := vault.DecodeEnvelope(legacy)
	require.NoError(t, err)
	require.Equal(t, "Old", env.VaultName)
	require.Equal(t, vault.NewKDFConfig(krypto.DefaultKDFParams()), env.KDF)
}

func TestDecodeEnvelopeRejectsMalformed(t *testing.T) {
	valid, err := vault.EncodeEnvelope(sampleEnvelope())
	require.NoError(t, err)

	mutate := func(fn func(m map[string]any)) []byte {
		var m map[string]any
		require.NoError(t, json.Unmarshal(valid, &m))
		fn(m)
		out, err := json.Marshal(m)
		require.NoError(t, err)
		return out
	}

	cases := map[string][]byte{
		"garbage":         []byte("this is not json"),
		"empty":           {},
		"trailing data":   append(append([]byte{}, valid...), []byte(" {}")...),
		"wrong version":   mutate(func(m map[string]any) { m["version"] = 2 }),
		"wrong algorithm": mutate(func(m map[string]any) { m["kdf"].(map[string]any)["algorithm"] = "scrypt" }),
		"bad salt b64":    mutate(func(m map[string]any) { m["salt"] = "***" }),
		"bad nonce b64":   mutate(func(m map[string]any) { m["nonce"] = "***" }),
		"short nonce":     mutate(func(m map[string]any) { m["nonce"] = "AQID" }),
		"salt mismatch":   mutate(func(m map[string]any) { m["kdf"].(map[string]any)["saltLength"] = 24 }),
		"no ciphertext":   mutate(func(m map[string]any) { m["ciphertext"] = "" }),
		"wrong type":      mutate(func(m map[string]any) { m["version"] = "one" }),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := vault.DecodeEnvelope(data)
			require.ErrorIs(t, err, vault.ErrFormat)
			require.NotErrorIs(t, err, vault.ErrAuthentication)
		})
	}
}

func TestDecodePayloadRejectsMalformed(t *testing.T) {
	_, err := vault.DecodePayload([]byte(`[1,2,3]`))
	require.ErrorIs(t, err, vault.ErrPayload)

	insecureWithPIN := samplePayload()
	insecureWithPIN.Folders[0].PINHash = "$argon2id$..."
	data, err := vault.EncodePayload(insecureWithPIN)
	require.NoError(t, err)
	_, err = vault.DecodePayload(data)
	require.ErrorIs(t, err, vault.ErrPayload)

	secureWithoutPIN := samplePayload()
	secureWithoutPIN.Folders[1].PINHash = ""
	data, err = vault.EncodePayload(secureWithoutPIN)
	require.NoError(t, err)
	_, err = vault.DecodePayload(data)
	require.ErrorIs(t, err, vault.ErrPayload)
}

func TestPublicOmitsPINHash(t *testing.T) {
	p := samplePayload()
	contents := p.Public()

	require.Equal(t, "Personal", contents.VaultName)
	require.Len(t, contents.Folders, 2)
	require.True(t, contents.Folders[1].Secure)
	require.Equal(t, "s3cr3t", contents.Folders[0].Credentials[0].Password)

	data, err := json.Marshal(contents)
	require.NoError(t, err)
	require.NotContains(t, string(data), "pinHash")
	require.NotContains(t, string(data), "argon2id")
}
