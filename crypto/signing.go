package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/smb2go/smb2client/wire"
)

// SignatureOffset and SignatureSize locate the Signature field within the
// fixed 64-byte SMB2 header (MS-SMB2 2.2.1).
const (
	SignatureOffset = 48
	SignatureSize   = 16
)

// Signer computes and verifies the 16-byte signature carried in a signed
// message's header, dispatched by the negotiated signing algorithm
// (MS-SMB2 3.1.4.1).
type Signer interface {
	Sign(message []byte) [SignatureSize]byte
}

// NewSigner returns the Signer appropriate for dialect and, for 3.1.1,
// the negotiated signing algorithm. Pre-3.0 dialects always sign with
// HMAC-SHA256; 3.0/3.0.2 always use AES-CMAC; 3.1.1 negotiates between
// AES-CMAC (default) and AES-GMAC.
func NewSigner(dialect wire.Dialect, signingAlgorithm uint16, key []byte) (Signer, error) {
	if !dialect.IsSMB3() {
		return &hmacSigner{key: key}, nil
	}
	if dialect == wire.Dialect311 && signingAlgorithm == wire.SigningAlgAESGMAC {
		return newGMACSigner(key)
	}
	return newCMACSigner(key)
}

// SignMessage sets the SMB2_FLAGS_SIGNED flag, zeroes the signature field,
// computes the signature with signer and patches it back into message in
// place. message must already hold the fully encoded request, header
// included, at its front.
func SignMessage(signer Signer, message []byte) {
	flags := binary.LittleEndian.Uint32(message[16:20]) | wire.FlagSigned
	binary.LittleEndian.PutUint32(message[16:20], flags)
	for i := SignatureOffset; i < SignatureOffset+SignatureSize; i++ {
		message[i] = 0
	}
	sig := signer.Sign(message)
	copy(message[SignatureOffset:], sig[:])
}

// VerifySignature reports whether message's embedded signature matches the
// one signer computes over it with the signature field zeroed.
func VerifySignature(signer Signer, message []byte) bool {
	if len(message) < SignatureOffset+SignatureSize {
		return false
	}
	var want [SignatureSize]byte
	copy(want[:], message[SignatureOffset:SignatureOffset+SignatureSize])
	msgCopy := make([]byte, len(message))
	copy(msgCopy, message)
	for i := SignatureOffset; i < SignatureOffset+SignatureSize; i++ {
		msgCopy[i] = 0
	}
	got := signer.Sign(msgCopy)
	return hmac.Equal(want[:], got[:])
}

// hmacSigner implements HMAC-SHA256 signing (SMB 2.0.2/2.1), truncated to
// the 16-byte signature field.
type hmacSigner struct{ key []byte }

func (s *hmacSigner) Sign(message []byte) [SignatureSize]byte {
	var sig [SignatureSize]byte
	mac := hmac.New(sha256.New, s.key)
	mac.Write(message)
	copy(sig[:], mac.Sum(nil)[:SignatureSize])
	return sig
}

// cmacSigner implements AES-128/256-CMAC per RFC 4493 (SMB 3.0+).
type cmacSigner struct {
	block cipher.Block
	k1    [aes.BlockSize]byte
	k2    [aes.BlockSize]byte
}

func newCMACSigner(key []byte) (*cmacSigner, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: AES-CMAC key: %w", err)
	}
	s := &cmacSigner{block: block}
	s.k1, s.k2 = cmacSubkeys(block)
	return s, nil
}

// cmacSubkeys derives the two RFC 4493 subkeys from an all-zero-input block
// cipher encryption, doubling in GF(2^128) with the 0x87 reduction
// polynomial at each step.
func cmacSubkeys(block cipher.Block) (k1, k2 [aes.BlockSize]byte) {
	var zero, l [aes.BlockSize]byte
	block.Encrypt(l[:], zero[:])
	k1 = cmacDouble(l)
	k2 = cmacDouble(k1)
	return k1, k2
}

func cmacDouble(in [aes.BlockSize]byte) [aes.BlockSize]byte {
	var out [aes.BlockSize]byte
	var carry byte
	for i := aes.BlockSize - 1; i >= 0; i-- {
		b := in[i]
		out[i] = (b << 1) | carry
		carry = b >> 7
	}
	if in[0]&0x80 != 0 {
		out[aes.BlockSize-1] ^= 0x87
	}
	return out
}

func (s *cmacSigner) Sign(message []byte) [SignatureSize]byte {
	mac := cmacCompute(s.block, s.k1, s.k2, message)
	var sig [SignatureSize]byte
	copy(sig[:], mac[:])
	return sig
}

// cmacCompute implements the RFC 4493 MAC generation algorithm: complete
// blocks are chained with plain CBC-MAC, the last (possibly partial) block
// is padded and XORed with K1 (complete) or K2 (partial) before the final
// encryption.
func cmacCompute(block cipher.Block, k1, k2 [aes.BlockSize]byte, message []byte) [aes.BlockSize]byte {
	n := (len(message) + aes.BlockSize - 1) / aes.BlockSize
	var mLast [aes.BlockSize]byte
	complete := n > 0 && len(message)%aes.BlockSize == 0
	if n == 0 {
		n = 1
		complete = false
	}
	if complete {
		copy(mLast[:], message[(n-1)*aes.BlockSize:])
		xorBlock(&mLast, &k1)
	} else {
		tail := message[(n-1)*aes.BlockSize:]
		copy(mLast[:], tail)
		mLast[len(tail)] = 0x80
		xorBlock(&mLast, &k2)
	}

	var x, y [aes.BlockSize]byte
	for i := 0; i < n-1; i++ {
		var mi [aes.BlockSize]byte
		copy(mi[:], message[i*aes.BlockSize:(i+1)*aes.BlockSize])
		xorBlock(&mi, &x)
		block.Encrypt(y[:], mi[:])
		x = y
	}
	xorBlock(&x, &mLast)
	block.Encrypt(y[:], x[:])
	return y
}

func xorBlock(dst, src *[aes.BlockSize]byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// gmacSigner implements AES-GMAC signing (SMB 3.1.1 optional): AES-GCM run
// over the whole message as additional authenticated data with an empty
// plaintext, so the GCM authentication tag itself is the signature. The
// nonce is the header's 8-byte MessageID, zero-extended to the 12 bytes
// AES-GCM requires (MS-SMB2 3.1.4.1).
type gmacSigner struct{ gcm cipher.AEAD }

func newGMACSigner(key []byte) (*gmacSigner, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: AES-GMAC key: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: AES-GMAC GCM init: %w", err)
	}
	return &gmacSigner{gcm: gcm}, nil
}

func (s *gmacSigner) Sign(message []byte) [SignatureSize]byte {
	var nonce [12]byte
	copy(nonce[:8], message[24:32]) // MessageID
	tag := s.gcm.Seal(nil, nonce[:], nil, message)
	var sig [SignatureSize]byte
	copy(sig[:], tag)
	return sig
}
