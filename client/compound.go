package client

import (
	"context"
	"fmt"

	"github.com/smb2go/smb2client/wire"
)

// nextCommandFieldOffset is NextCommand's byte offset within an encoded
// header: magic[4] + StructureSize[2] + CreditCharge[2] + Status[4] +
// Command[2] + CreditRequest[2] + Flags[4] = 20, the position compound.go
// patches once a sub-message's padded length is known.
const nextCommandFieldOffset = 20

// CompoundSubRequest is one operation submitted as part of a compounded
// packet (spec §4.C: "tree-connect + create + query-info chain"). Related
// marks SMB2_FLAGS_RELATED_OPERATIONS, meaning this sub-message reuses the
// file/tree/session ids implied by the prior one instead of carrying its
// own.
type CompoundSubRequest struct {
	Command      wire.Command
	Body         []byte
	SessionID    uint64
	TreeID       uint32
	ExpectedSize uint32
	Related      bool
}

// CompoundResult is one sub-message's outcome, positionally matched to the
// CompoundSubRequest that produced it.
type CompoundResult struct {
	Header *wire.Header
	Body   []byte
	Err    error
}

// SendCompound builds reqs into a single framed packet with each
// sub-header's NextCommand offset patched (8-byte aligned, per spec §4.C),
// assigns each sub-message its own message-id (consecutive, consuming each
// one's credit charge), sends the packet once, and waits for every
// sub-message's individually-correlated response. Encryption, when
// required, wraps the whole compounded packet as one transform; signing
// (when not encrypting) is computed per sub-message, since each carries its
// own signature field.
func (c *Connection) SendCompound(ctx context.Context, security *MessageSecurity, reqs []CompoundSubRequest) ([]CompoundResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	charges := make([]uint16, len(reqs))
	var totalCharge uint16
	for i, r := range reqs {
		charges[i] = creditCharge(uint32(len(r.Body)), r.ExpectedSize)
		totalCharge += charges[i]
	}
	if err := c.reserveCredits(ctx, totalCharge); err != nil {
		return nil, err
	}
	baseID := c.assignMessageID(totalCharge)

	w := wire.NewWriter(0)
	msgIDs := make([]uint64, len(reqs))
	runningID := baseID
	for i, r := range reqs {
		msgIDs[i] = runningID
		flags := uint32(0)
		if r.Related {
			flags |= wire.FlagRelatedOps
		}
		header := &wire.Header{
			CreditCharge: charges[i], Command: r.Command, Flags: flags,
			MessageID: runningID, TreeID: r.TreeID, SessionID: r.SessionID,
		}
		if i == len(reqs)-1 {
			header.CreditRequest = c.creditRequest()
		}

		subStart := w.Len()
		header.Encode(w)
		w.RawBytes(r.Body)

		if i != len(reqs)-1 {
			w.PadTo(8) // next sub-message starts 8-byte aligned (spec §4.C)
			next := w.Len() - subStart
			w.PatchUint32At(subStart+nextCommandFieldOffset, uint32(next))
		}

		if security != nil && !security.RequiresEncryption() {
			security.Sign(w.Bytes()[subStart:])
		}
		runningID += uint64(charges[i])
	}
	message := w.Bytes()

	slots := make([]*waitSlot, len(reqs))
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("client: %w", ErrTransportClosed)
	}
	for i := range reqs {
		slot := &waitSlot{ch: make(chan slotResult, 1), cmd: reqs[i].Command, msgID: msgIDs[i]}
		slots[i] = slot
		c.byMessageID[msgIDs[i]] = slot
	}
	c.mu.Unlock()

	out := message
	var err error
	if security != nil && security.RequiresEncryption() {
		out, err = security.Encrypt(message)
		if err != nil {
			for _, id := range msgIDs {
				c.dropSlot(id)
			}
			return nil, err
		}
	}

	c.sendMu.Lock()
	err = c.conn.WriteMessage(ctx, out)
	c.sendMu.Unlock()
	if err != nil {
		for _, id := range msgIDs {
			c.dropSlot(id)
		}
		return nil, fmt.Errorf("client: %w: %v", ErrTransportClosed, err)
	}

	results := make([]CompoundResult, len(reqs))
	for i, slot := range slots {
		select {
		case res := <-slot.ch:
			results[i] = CompoundResult{Header: res.header, Body: res.body, Err: res.err}
			if res.err == nil && res.header.Status.IsError() {
				results[i].Err = newServerError(reqs[i].Command, res.header.Status)
			}
		case <-ctx.Done():
			for _, id := range msgIDs {
				c.cancel(id)
			}
			reason := ErrTimedOut
			if ctx.Err() == context.Canceled {
				reason = ErrCancelled
			}
			results[i] = CompoundResult{Err: fmt.Errorf("client: %w", reason)}
		}
	}
	return results, nil
}
