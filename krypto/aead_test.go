package krypto_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nalsan/peka/krypto"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{1}, krypto.KeySize)
	nonce, err := krypto.NewNonce()
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	if len(nonce) != krypto.NonceSize {
		t.Fatalf("nonce length = %d", len(nonce))
	}

	ct, err := krypto.SealAESGCM(key, nonce, []byte("payload"), nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	pt, err := krypto.OpenAESGCM(key, nonce, ct, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(pt) != "payload" {
		t.Fatalf("open returned %q", pt)
	}
}

func TestOpenDetectsTampering(t *testing.T) {
	key := bytes.Repeat([]byte{2}, krypto.KeySize)
	nonce, _ := krypto.NewNonce()
	ct, err := krypto.SealAESGCM(key, nonce, []byte("secret data"), nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	for i := range ct {
		flipped := append([]byte(nil), ct...)
		flipped[i] ^= 0x01
		if _, err := krypto.OpenAESGCM(key, nonce, flipped, nil); !errors.Is(err, krypto.ErrAuthFailed) {
			t.Fatalf("byte %d: expected ErrAuthFailed, got %v", i, err)
		}
	}

	badNonce := append([]byte(nil), nonce...)
	badNonce[0] ^= 0x80
	if _, err := krypto.OpenAESGCM(key, badNonce, ct, nil); !errors.Is(err, krypto.ErrAuthFailed) {
		t.Fatalf("nonce flip: expected ErrAuthFailed, got %v", err)
	}

	otherKey := bytes.Repeat([]byte{3}, krypto.KeySize)
	if _, err := krypto.OpenAESGCM(otherKey, nonce, ct, nil); !errors.Is(err, krypto.ErrAuthFailed) {
		t.Fatalf("wrong key: expected ErrAuthFailed, got %v", err)
	}
}

func TestSealRejectsBadInputs(t *testing.T) {
	nonce, _ := krypto.NewNonce()
	if _, err := krypto.SealAESGCM(make([]byte, 16), nonce, []byte("x"), nil); err == nil {
		t.Fatal("expected error for 16-byte key")
	}
	if _, err := krypto.SealAESGCM(make([]byte, 32), nonce[:8], []byte("x"), nil); err == nil {
		t.Fatal("expected error for short nonce")
	}
}

func TestWipe(t *testing.T) {
	a := []byte("secret")
	b := []byte("key")
	krypto.Wipe(a, b, nil)
	if !bytes.Equal(a, make([]byte, 6)) || !bytes.Equal(b, make([]byte, 3)) {
		t.Fatalf("buffers not wiped: %v %v", a, b)
	}
}
