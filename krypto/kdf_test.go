package krypto_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nalsan/peka/krypto"
)

func cheapParams() krypto.KDFParams {
	return krypto.KDFParams{MemoryKiB: 64, TimeCost: 1, Parallelism: 1, KeyLen: 32, SaltLen: 16}
}

func TestDefaultKDFParams(t *testing.T) {
	p := krypto.DefaultKDFParams()
	want := krypto.KDFParams{MemoryKiB: 131072, TimeCost: 3, Parallelism: 2, KeyLen: 32, SaltLen: 16}
	if p != want {
		t.Fatalf("DefaultKDFParams() = %+v, want %+v", p, want)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("default params rejected: %v", err)
	}
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	p := cheapParams()
	salt := bytes.Repeat([]byte{7}, 16)

	k1, err := krypto.DeriveKeyArgon2id([]byte("correct horse"), salt, p)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	k2, err := krypto.DeriveKeyArgon2id([]byte("correct horse"), salt, p)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("same inputs produced different keys")
	}
	if len(k1) != 32 {
		t.Fatalf("key length = %d, want 32", len(k1))
	}

	k3, err := krypto.DeriveKeyArgon2id([]byte("correct horse!"), salt, p)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if bytes.Equal(k1, k3) {
		t.Fatal("different passwords produced the same key")
	}

	p.TimeCost = 2
	k4, err := krypto.DeriveKeyArgon2id([]byte("correct horse"), salt, p)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if bytes.Equal(k1, k4) {
		t.Fatal("different cost parameters produced the same key")
	}
}

func TestDeriveKeyRejectsInvalidParams(t *testing.T) {
	salt := make([]byte, 16)
	cases := map[string]func(p *krypto.KDFParams){
		"zero time":        func(p *krypto.KDFParams) { p.TimeCost = 0 },
		"zero lanes":       func(p *krypto.KDFParams) { p.Parallelism = 0 },
		"memory too low":   func(p *krypto.KDFParams) { p.MemoryKiB = 4 },
		"memory too high":  func(p *krypto.KDFParams) { p.MemoryKiB = 1 << 30 },
		"memory over 1GiB": func(p *krypto.KDFParams) { p.MemoryKiB = 1<<20 + 1 },
		"short key":        func(p *krypto.KDFParams) { p.KeyLen = 16 },
		"salt too short":   func(p *krypto.KDFParams) { p.SaltLen = 4 },
		"too many lanes":   func(p *krypto.KDFParams) { p.Parallelism = 1000; p.MemoryKiB = 8000 },
		"salt len differs": func(p *krypto.KDFParams) { p.SaltLen = 24 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := cheapParams()
			mutate(&p)
			_, err := krypto.DeriveKeyArgon2id([]byte("pw"), salt, p)
			if !errors.Is(err, krypto.ErrInvalidKDFParams) {
				t.Fatalf("expected ErrInvalidKDFParams, got %v", err)
			}
		})
	}
}

func TestNewRandomSalt(t *testing.T) {
	a, err := krypto.NewRandomSalt(16)
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	b, err := krypto.NewRandomSalt(16)
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	if len(a) != 16 || len(b) != 16 {
		t.Fatalf("unexpected salt lengths %d and %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Fatal("two salts are identical")
	}
	if _, err := krypto.NewRandomSalt(0); err == nil {
		t.Fatal("expected error for zero-length salt")
	}
}

func TestValidateMemoryCap(t *testing.T) {
	p := cheapParams()
	p.MemoryKiB = 1 << 20
	if err := p.Validate(); err != nil {
		t.Fatalf("1 GiB should be accepted: %v", err)
	}
	p.MemoryKiB = 4 << 20
	if err := p.Validate(); !errors.Is(err, krypto.ErrInvalidKDFParams) {
		t.Fatalf("4 GiB should be rejected, got %v", err)
	}
}
