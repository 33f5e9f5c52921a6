package cryptography

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	encoded, err := GenerateSymmetricKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	key, err := hex.DecodeString(*encoded)
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("expected a 256-bit key, got %d bytes", len(key))
	}
	return key
}

func TestCipherRoundTrip(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("biometric template payload")

	ciphertext, err := DefaultCipher.Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Fatal("ciphertext must not contain the plaintext")
	}

	decrypted, err := DefaultCipher.Decrypt(ciphertext, key)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("round trip mismatch: got %q", decrypted)
	}
}

func TestCipherRejectsTampering(t *testing.T) {
	key := testKey(t)
	ciphertext, err := DefaultCipher.Encrypt([]byte("payload"), key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	tampered := make([]byte, len(ciphertext))
	copy(tampered, ciphertext)
	tampered[len(tampered)-1] ^= 0x01

	if _, err := DefaultCipher.Decrypt(tampered, key); err == nil {
		t.Fatal("a flipped ciphertext bit must fail authentication")
	}

	otherKey := testKey(t)
	if _, err := DefaultCipher.Decrypt(ciphertext, otherKey); err == nil {
		t.Fatal("decryption with the wrong key must fail")
	}

	if _, err := DefaultCipher.Decrypt([]byte("short"), key); err == nil {
		t.Fatal("a truncated ciphertext must be rejected")
	}
}

func TestHashPayload(t *testing.T) {
	first := HashPayload([]byte("template"))
	if first != HashPayload([]byte("template")) {
		t.Fatal("the digest must be deterministic")
	}
	if first == HashPayload([]byte("template!")) {
		t.Fatal("different payloads must not collide")
	}
	if len(first) != 64 {
		t.Fatalf("expected a hex encoded sha-256 digest, got %d chars", len(first))
	}
}
