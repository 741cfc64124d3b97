package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/smb2go/smb2client/wire"
)

// NewAEAD returns the stdlib cipher.AEAD for the negotiated cipher ID
// (MS-SMB2 2.2.3.1.2): AES-GCM via crypto/cipher's public constructor, or
// AES-CCM built directly on crypto/aes (see aead_ccm.go).
func NewAEAD(cipherID uint16, key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: AEAD key: %w", err)
	}
	switch cipherID {
	case wire.CipherAES128GCM, wire.CipherAES256GCM:
		return cipher.NewGCM(block)
	case wire.CipherAES128CCM, wire.CipherAES256CCM:
		return newCCM(block, ccmNonceSize)
	default:
		return nil, fmt.Errorf("crypto: unsupported cipher id 0x%04x", cipherID)
	}
}

// NonceSize returns the on-wire nonce length for cipherID: 11 bytes for CCM,
// 12 for GCM. The SMB2 transform header's Nonce field is a fixed 16 bytes
// regardless; callers fill only this many bytes from a CSPRNG and leave the
// rest zero (MS-SMB2 3.1.4.3).
func NonceSize(cipherID uint16) int {
	switch cipherID {
	case wire.CipherAES128GCM, wire.CipherAES256GCM:
		return 12
	default:
		return ccmNonceSize
	}
}
