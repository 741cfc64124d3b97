package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/smb2go/smb2client/wire"
)

func TestCCMSealOpenRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x44}, 16)
	aead, err := NewAEAD(wire.CipherAES128CCM, key)
	if err != nil {
		t.Fatal(err)
	}
	if aead.NonceSize() != 11 {
		t.Fatalf("NonceSize = %d, want 11", aead.NonceSize())
	}
	nonce := make([]byte, aead.NonceSize())
	rand.Read(nonce)
	aad := []byte("transform header bytes go here")

	for _, n := range []int{0, 1, 15, 16, 17, 1000} {
		plaintext := make([]byte, n)
		rand.Read(plaintext)
		sealed := aead.Seal(nil, nonce, plaintext, aad)
		if len(sealed) != n+aead.Overhead() {
			t.Fatalf("len %d: sealed length = %d, want %d", n, len(sealed), n+aead.Overhead())
		}
		opened, err := aead.Open(nil, nonce, sealed, aad)
		if err != nil {
			t.Fatalf("len %d: Open: %v", n, err)
		}
		if !bytes.Equal(opened, plaintext) {
			t.Fatalf("len %d: roundtrip mismatch", n)
		}

		tampered := append([]byte{}, sealed...)
		tampered[0] ^= 0xff
		if _, err := aead.Open(nil, nonce, tampered, aad); err == nil {
			t.Fatalf("len %d: Open accepted a tampered ciphertext", n)
		}
	}
}

func TestCCM256(t *testing.T) {
	key := bytes.Repeat([]byte{0x55}, 32)
	aead, err := NewAEAD(wire.CipherAES256CCM, key)
	if err != nil {
		t.Fatal(err)
	}
	nonce := make([]byte, aead.NonceSize())
	plaintext := []byte("some file data")
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	opened, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatal("roundtrip mismatch")
	}
}

func TestGCMSealOpenRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x66}, 16)
	aead, err := NewAEAD(wire.CipherAES128GCM, key)
	if err != nil {
		t.Fatal(err)
	}
	if aead.NonceSize() != 12 {
		t.Fatalf("NonceSize = %d, want 12", aead.NonceSize())
	}
	nonce := make([]byte, aead.NonceSize())
	rand.Read(nonce)
	plaintext := []byte("read response payload")
	aad := []byte("aad")
	sealed := aead.Seal(nil, nonce, plaintext, aad)
	opened, err := aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatal("roundtrip mismatch")
	}
}

func TestNonceSize(t *testing.T) {
	if got := NonceSize(wire.CipherAES128CCM); got != 11 {
		t.Errorf("CCM NonceSize = %d, want 11", got)
	}
	if got := NonceSize(wire.CipherAES128GCM); got != 12 {
		t.Errorf("GCM NonceSize = %d, want 12", got)
	}
}
