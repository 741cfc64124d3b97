package crypto

import (
	"crypto/sha512"
	"sync"
)

// PreauthHash is the rolling SMB 3.1.1 pre-authentication integrity hash
// (MS-SMB2 3.2.5.2): H(i) = SHA-512(H(i-1) || Message(i)), seeded with
// H(0) = 64 zero bytes and updated with every complete NEGOTIATE and
// SESSION_SETUP request/response exchanged on the connection (or, for a
// channel binding, on that channel) up to the point the value is consumed
// as a KDF context.
type PreauthHash struct {
	mu    sync.Mutex
	value [64]byte
}

// NewPreauthHash returns a hash chain seeded at H(0).
func NewPreauthHash() *PreauthHash { return &PreauthHash{} }

// Update folds message into the chain: H(i) = SHA-512(H(i-1) || message).
func (p *PreauthHash) Update(message []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := sha512.New()
	h.Write(p.value[:])
	h.Write(message)
	copy(p.value[:], h.Sum(nil))
}

// Value returns the current finalized hash, safe to use as a KDF context.
func (p *PreauthHash) Value() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, 64)
	copy(out, p.value[:])
	return out
}

// Clone returns an independent copy of the chain at its current state;
// updating the copy leaves p unchanged.
func (p *PreauthHash) Clone() *PreauthHash {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := &PreauthHash{}
	c.value = p.value
	return c
}
