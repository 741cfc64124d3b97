package client

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/smb2go/smb2client/crypto"
	"github.com/smb2go/smb2client/wire"
)

// MessageSecurity is the per-session (or per-channel) sign/verify and
// encrypt/decrypt glue (spec §4.S): it owns one Signer and, once the
// dialect and cipher are known, one pair of AEADs derived from the
// session's or channel's own keys.
type MessageSecurity struct {
	dialect   wire.Dialect
	cipherID  uint16
	sessionID uint64

	signer      crypto.Signer
	encryptor   cipher.AEAD
	decryptor   cipher.AEAD
	encryptData bool
}

// NewMessageSecurity builds the signer (and, for a 3.x dialect with
// encryption keys present, the AEAD pair) from keys derived for this
// session/channel (spec §4.X's Derive).
func NewMessageSecurity(dialect wire.Dialect, signingAlgorithm uint16, cipherID uint16, sessionID uint64, keys crypto.SessionKeys, encryptData bool) (*MessageSecurity, error) {
	signer, err := crypto.NewSigner(dialect, signingAlgorithm, keys.Signing)
	if err != nil {
		return nil, fmt.Errorf("client: build signer: %w", err)
	}
	ms := &MessageSecurity{dialect: dialect, cipherID: cipherID, sessionID: sessionID, signer: signer, encryptData: encryptData}
	if dialect.IsSMB3() && len(keys.Encryption) > 0 {
		enc, err := crypto.NewAEAD(cipherID, keys.Encryption)
		if err != nil {
			return nil, fmt.Errorf("client: build encryptor: %w", err)
		}
		dec, err := crypto.NewAEAD(cipherID, keys.Decryption)
		if err != nil {
			return nil, fmt.Errorf("client: build decryptor: %w", err)
		}
		ms.encryptor = enc
		ms.decryptor = dec
	}
	return ms, nil
}

// Sign patches message's signature field in place, setting the SIGNED flag.
func (ms *MessageSecurity) Sign(message []byte) {
	crypto.SignMessage(ms.signer, message)
}

// Verify reports whether an inbound message's embedded signature matches.
func (ms *MessageSecurity) Verify(message []byte) bool {
	return crypto.VerifySignature(ms.signer, message)
}

// RequiresEncryption reports whether every message to/from this
// session/channel must be wrapped in a transform (encryption_mode =
// Required, or the server demanded it for this session).
func (ms *MessageSecurity) RequiresEncryption() bool { return ms.encryptData }

// Encrypt wraps a plain framed SMB2 message (header + body) in a transform
// header and AEAD-seals it, returning transform||ciphertext ready to hand
// to the transport (spec §4.S).
func (ms *MessageSecurity) Encrypt(message []byte) ([]byte, error) {
	if ms.encryptor == nil {
		return nil, fmt.Errorf("client: encryption requested but no cipher negotiated")
	}
	var nonce [16]byte
	nonceLen := crypto.NonceSize(ms.cipherID)
	if _, err := rand.Read(nonce[:nonceLen]); err != nil {
		return nil, fmt.Errorf("client: generate AEAD nonce: %w", err)
	}
	hdr := &wire.TransformHeader{
		Nonce:        nonce,
		OriginalSize: uint32(len(message)),
		Flags:        wire.TransformFlagEncrypted,
		SessionID:    ms.sessionID,
	}
	aad := hdr.AAD()
	sealed := ms.encryptor.Seal(nil, nonce[:nonceLen], message, aad)
	tagLen := ms.encryptor.Overhead()
	ciphertext := sealed[:len(sealed)-tagLen]
	copy(hdr.Signature[:], sealed[len(sealed)-tagLen:])
	return append(hdr.Encode(), ciphertext...), nil
}

// Decrypt reverses Encrypt: parses the transform header from framed,
// verifies the session ID matches, and AEAD-opens the ciphertext, returning
// the plain SMB2 message.
func (ms *MessageSecurity) Decrypt(framed []byte) ([]byte, error) {
	if ms.decryptor == nil {
		return nil, fmt.Errorf("client: %w: no cipher negotiated for decryption", ErrDecryptionFailed)
	}
	hdr, err := wire.DecodeTransformHeader(framed)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	if hdr.SessionID != ms.sessionID {
		return nil, fmt.Errorf("client: %w: transform session id %d != %d", ErrDecryptionFailed, hdr.SessionID, ms.sessionID)
	}
	nonceLen := crypto.NonceSize(ms.cipherID)
	ciphertext := framed[wire.TransformHeaderSize:]
	sealed := append(append([]byte(nil), ciphertext...), hdr.Signature[:]...)
	plain, err := ms.decryptor.Open(nil, hdr.Nonce[:nonceLen], sealed, hdr.AAD())
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrDecryptionFailed, err)
	}
	if uint32(len(plain)) != hdr.OriginalSize {
		return nil, fmt.Errorf("client: %w: decrypted %d bytes, header claims %d", ErrDecryptionFailed, len(plain), hdr.OriginalSize)
	}
	return plain, nil
}
