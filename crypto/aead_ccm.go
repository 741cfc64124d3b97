package crypto

import (
	"crypto/cipher"
	"crypto/subtle"
	"errors"
)

// ccmNonceSize is the nonce length AEAD_AES_CCM uses in MS-SMB2 (11 bytes),
// giving a 4-byte length field (L = 15 - nonceSize) and so a maximum message
// length of 2^32-1 bytes, far beyond anything SMB2 ever encrypts in one
// transform message.
const (
	ccmNonceSize = 11
	ccmTagSize   = 16
	ccmL         = 15 - ccmNonceSize
)

// ccm implements AEAD_AES_CCM (RFC 3610) directly on a block cipher, since
// crypto/cipher exposes a public constructor for GCM but not CCM and no
// library in the example pack supplies one.
type ccm struct {
	block     cipher.Block
	nonceSize int
}

func newCCM(block cipher.Block, nonceSize int) (cipher.AEAD, error) {
	if block.BlockSize() != 16 {
		return nil, errors.New("crypto: CCM requires a 128-bit block cipher")
	}
	return &ccm{block: block, nonceSize: nonceSize}, nil
}

func (c *ccm) NonceSize() int { return c.nonceSize }
func (c *ccm) Overhead() int  { return ccmTagSize }

func (c *ccm) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(nonce) != c.nonceSize {
		panic("crypto: bad CCM nonce length")
	}
	tag := c.cbcMAC(nonce, plaintext, additionalData)
	ciphertext := make([]byte, len(plaintext))
	c.ctrXOR(nonce, plaintext, ciphertext, 1)
	encTag := make([]byte, ccmTagSize)
	c.ctrXOR(nonce, tag, encTag, 0)
	ret, out := sliceForAppend(dst, len(ciphertext)+ccmTagSize)
	copy(out, ciphertext)
	copy(out[len(ciphertext):], encTag)
	return ret
}

func (c *ccm) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.nonceSize {
		return nil, errors.New("crypto: bad CCM nonce length")
	}
	if len(ciphertext) < ccmTagSize {
		return nil, errors.New("crypto: CCM ciphertext too short")
	}
	ct := ciphertext[:len(ciphertext)-ccmTagSize]
	encTag := ciphertext[len(ciphertext)-ccmTagSize:]

	tag := make([]byte, ccmTagSize)
	c.ctrXOR(nonce, encTag, tag, 0)

	plaintext := make([]byte, len(ct))
	c.ctrXOR(nonce, ct, plaintext, 1)

	want := c.cbcMAC(nonce, plaintext, additionalData)
	if subtle.ConstantTimeCompare(tag, want) != 1 {
		for i := range plaintext {
			plaintext[i] = 0
		}
		return nil, errors.New("crypto: CCM authentication failed")
	}
	ret, out := sliceForAppend(dst, len(plaintext))
	copy(out, plaintext)
	return ret, nil
}

// ctrXOR runs AES-CTR with the RFC 3610 counter-block format (flags byte
// encoding L-1, then the nonce, then a big-endian counter of L bytes)
// starting at startCounter, XORing in into out.
func (c *ccm) ctrXOR(nonce, in, out []byte, startCounter uint64) {
	var counterBlock, keystream [16]byte
	counterBlock[0] = byte(ccmL - 1)
	copy(counterBlock[1:1+ccmNonceSize], nonce)

	for i := 0; i < len(in); i += 16 {
		putCounter(counterBlock[1+ccmNonceSize:], startCounter)
		startCounter++
		c.block.Encrypt(keystream[:], counterBlock[:])
		end := i + 16
		if end > len(in) {
			end = len(in)
		}
		for j := i; j < end; j++ {
			out[j] = in[j] ^ keystream[j-i]
		}
	}
}

// cbcMAC implements the RFC 3610 MAC computation: CBC-MAC with a zero IV
// over B0 (flags/nonce/length), the length-prefixed and zero-padded
// associated data, and the zero-padded plaintext, truncated to the tag size.
func (c *ccm) cbcMAC(nonce, plaintext, aad []byte) []byte {
	var b0 [16]byte
	if len(aad) > 0 {
		b0[0] |= 0x40
	}
	b0[0] |= byte((ccmTagSize - 2) / 2 << 3)
	b0[0] |= byte(ccmL - 1)
	copy(b0[1:1+ccmNonceSize], nonce)
	putCounter(b0[1+ccmNonceSize:], uint64(len(plaintext)))

	var mac [16]byte
	c.block.Encrypt(mac[:], b0[:])

	if len(aad) > 0 {
		blocks := encodeAAD(aad)
		c.chainBlocks(&mac, blocks)
	}
	if len(plaintext) > 0 {
		c.chainBlocks(&mac, padBlock(plaintext))
	}
	return mac[:ccmTagSize]
}

func (c *ccm) chainBlocks(mac *[16]byte, data []byte) {
	var block [16]byte
	for i := 0; i < len(data); i += 16 {
		copy(block[:], data[i:i+16])
		for j := range block {
			block[j] ^= mac[j]
		}
		c.block.Encrypt(mac[:], block[:])
	}
}

// encodeAAD prepends the RFC 3610 associated-data length encoding (a
// 2-byte big-endian length for the sizes SMB2 ever signs: a transform
// header is a few dozen bytes) and zero-pads the result to a block boundary.
func encodeAAD(aad []byte) []byte {
	prefixed := make([]byte, 2+len(aad))
	prefixed[0] = byte(len(aad) >> 8)
	prefixed[1] = byte(len(aad))
	copy(prefixed[2:], aad)
	return padBlock(prefixed)
}

func padBlock(data []byte) []byte {
	pad := (16 - len(data)%16) % 16
	if pad == 0 {
		return data
	}
	out := make([]byte, len(data)+pad)
	copy(out, data)
	return out
}

func putCounter(dst []byte, v uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return
}
