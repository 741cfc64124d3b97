// Package crypto implements the signing, AEAD and key-derivation primitives
// MS-SMB2 layers on top of the negotiated dialect: SP800-108 counter-mode
// HMAC-SHA256 key derivation, HMAC-SHA256/AES-CMAC/AES-GMAC signing,
// AES-CCM/GCM encryption, and the rolling SHA-512 pre-authentication
// integrity hash.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"github.com/smb2go/smb2client/wire"
)

// KeyPurpose identifies which of the four per-session keys a derivation
// produces (MS-SMB2 3.1.4.2).
type KeyPurpose int

const (
	PurposeSigning KeyPurpose = iota
	PurposeApplication
	PurposeEncryption
	PurposeDecryption
)

// Per-dialect label/context table (spec §4.X). Labels carry their NUL
// terminator as part of the literal, matching the wire encoding.
var (
	label30Signing, ctx30Signing         = []byte("SMB2AESCMAC\x00"), []byte("SmbSign\x00")
	label30App, ctx30App                = []byte("SMB2APP\x00"), []byte("SmbRpc\x00")
	label30Encryption, ctx30Encryption   = []byte("SMB2AESCCM\x00"), []byte("ServerIn \x00")
	label30Decryption, ctx30Decryption   = []byte("SMB2AESCCM\x00"), []byte("ServerOut\x00")

	label311Signing     = []byte("SMBSigningKey\x00")
	label311App         = []byte("SMBAppKey\x00")
	label311Encryption  = []byte("SMBC2SCipherKey\x00")
	label311Decryption  = []byte("SMBS2CCipherKey\x00")
)

// DeriveKey implements the SP800-108 counter-mode KDF with HMAC-SHA256,
// always run for a single counter block (sufficient for the 128/256-bit
// keys this protocol needs): HMAC(Ki, [1]_4 || Label || 0x00 || Context ||
// [L]_4), truncated to keyLenBits/8 bytes.
func DeriveKey(ki, label, context []byte, keyLenBits uint32) []byte {
	h := hmac.New(sha256.New, ki)
	var counter [4]byte
	binary.BigEndian.PutUint32(counter[:], 1)
	h.Write(counter[:])
	h.Write(label)
	h.Write([]byte{0x00})
	h.Write(context)
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], keyLenBits)
	h.Write(length[:])
	sum := h.Sum(nil)
	return sum[:keyLenBits/8]
}

// LabelAndContext returns the label/context pair for purpose under dialect,
// using preauthHash as the 3.1.1 context (ignored pre-3.1.1).
func LabelAndContext(purpose KeyPurpose, dialect wire.Dialect, preauthHash []byte) (label, context []byte) {
	if dialect == wire.Dialect311 {
		switch purpose {
		case PurposeSigning:
			return label311Signing, preauthHash
		case PurposeApplication:
			return label311App, preauthHash
		case PurposeEncryption:
			return label311Encryption, preauthHash
		case PurposeDecryption:
			return label311Decryption, preauthHash
		}
	}
	switch purpose {
	case PurposeSigning:
		return label30Signing, ctx30Signing
	case PurposeApplication:
		return label30App, ctx30App
	case PurposeEncryption:
		return label30Encryption, ctx30Encryption
	case PurposeDecryption:
		return label30Decryption, ctx30Decryption
	}
	return nil, nil
}

// SessionKeys bundles every per-session/per-channel key MS-SMB2 derives
// from the authenticator's session key (spec §3.2).
type SessionKeys struct {
	Signing     []byte
	Application []byte
	Encryption  []byte
	Decryption  []byte
}

// CipherKeyBits returns 128 unless cipher selects one of the 256-bit AEAD
// ciphers (MS-SMB2 2.2.3.1.2).
func CipherKeyBits(cipher uint16) uint32 {
	if cipher == wire.CipherAES256CCM || cipher == wire.CipherAES256GCM {
		return 256
	}
	return 128
}

// Derive computes all four session keys for dialect, given the raw session
// key from the authenticator and (for 3.1.1) the finalized preauth hash.
func Derive(dialect wire.Dialect, sessionKey []byte, preauthHash []byte, cipher uint16) SessionKeys {
	if !dialect.IsSMB3() {
		// SMB 2.x has no derivation step: the session key signs directly
		// and there is no encryption.
		return SessionKeys{Signing: sessionKey, Application: sessionKey}
	}
	cipherBits := CipherKeyBits(cipher)
	sl, sc := LabelAndContext(PurposeSigning, dialect, preauthHash)
	al, ac := LabelAndContext(PurposeApplication, dialect, preauthHash)
	el, ec := LabelAndContext(PurposeEncryption, dialect, preauthHash)
	dl, dc := LabelAndContext(PurposeDecryption, dialect, preauthHash)
	return SessionKeys{
		Signing:     DeriveKey(sessionKey, sl, sc, 128),
		Application: DeriveKey(sessionKey, al, ac, 128),
		Encryption:  DeriveKey(sessionKey, el, ec, cipherBits),
		Decryption:  DeriveKey(sessionKey, dl, dc, cipherBits),
	}
}
