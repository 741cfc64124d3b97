package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smb2go/smb2client/wire"
)

// fakeCompoundConn captures whatever SendCompound writes so the test can
// decode the framed sub-headers and verify offset patching without a real
// socket.
type fakeCompoundConn struct {
	mu      sync.Mutex
	written []byte
	wrote   chan struct{}
}

func newFakeCompoundConn() *fakeCompoundConn {
	return &fakeCompoundConn{wrote: make(chan struct{}, 1)}
}

func (f *fakeCompoundConn) ReadMessage(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeCompoundConn) WriteMessage(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	f.written = append([]byte(nil), payload...)
	f.mu.Unlock()
	f.wrote <- struct{}{}
	return nil
}

func (f *fakeCompoundConn) RemoteAddr() string { return "fake" }
func (f *fakeCompoundConn) Close() error       { return nil }

func newTestConnection(conn *fakeCompoundConn) *Connection {
	return &Connection{
		conn:           conn,
		logger:         nopLogger{},
		byMessageID:    make(map[uint64]*waitSlot),
		byAsyncID:      make(map[uint64]*waitSlot),
		creditsAvail:   1000,
		desiredCredits: 32,
	}
}

// completeSlot simulates the receive loop delivering a successful, empty
// SUCCESS response for msgID.
func completeSlot(c *Connection, msgID uint64, cmd wire.Command) {
	c.mu.Lock()
	slot, ok := c.byMessageID[msgID]
	delete(c.byMessageID, msgID)
	c.mu.Unlock()
	if !ok {
		return
	}
	slot.ch <- slotResult{header: &wire.Header{Command: cmd, MessageID: msgID, Status: wire.StatusSuccess}, body: nil}
}

func TestSendCompound_PatchesNextCommandAndAssignsMessageIDs(t *testing.T) {
	conn := newFakeCompoundConn()
	c := newTestConnection(conn)

	reqs := []CompoundSubRequest{
		{Command: wire.CmdCreate, Body: make([]byte, 10), TreeID: 1, SessionID: 1},
		{Command: wire.CmdQueryInfo, Body: make([]byte, 6), TreeID: 1, SessionID: 1, Related: true},
		{Command: wire.CmdClose, Body: make([]byte, 4), TreeID: 1, SessionID: 1, Related: true},
	}

	done := make(chan struct{})
	var results []CompoundResult
	var sendErr error
	go func() {
		results, sendErr = c.SendCompound(context.Background(), nil, reqs)
		close(done)
	}()

	select {
	case <-conn.wrote:
	case <-time.After(time.Second):
		t.Fatal("SendCompound did not write a message in time")
	}

	conn.mu.Lock()
	message := append([]byte(nil), conn.written...)
	conn.mu.Unlock()

	// Walk the compounded buffer, decoding each sub-header and checking
	// NextCommand chains to the next 8-byte-aligned sub-message.
	offsets := []int{0}
	pos := 0
	for i := 0; i < len(reqs); i++ {
		r := wire.NewReader(message[pos:])
		r.Skip(4) // magic
		r.Skip(2) // StructureSize
		r.Skip(2) // CreditCharge
		r.Skip(4) // Status
		cmd := wire.Command(r.Uint16())
		r.Skip(2) // CreditRequest
		r.Skip(4) // Flags
		next := r.Uint32()
		if cmd != reqs[i].Command {
			t.Errorf("sub-message %d Command = %v, want %v", i, cmd, reqs[i].Command)
		}
		if i < len(reqs)-1 {
			if next == 0 {
				t.Fatalf("sub-message %d NextCommand = 0, want nonzero chain offset", i)
			}
			if next%8 != 0 {
				t.Errorf("sub-message %d NextCommand = %d, not 8-byte aligned", i, next)
			}
			pos += int(next)
			offsets = append(offsets, pos)
		} else if next != 0 {
			t.Errorf("final sub-message NextCommand = %d, want 0", next)
		}
	}
	if pos >= len(message) {
		t.Fatalf("computed final sub-message offset %d out of range (message length %d)", pos, len(message))
	}

	// Deliver responses for whatever message-ids SendCompound actually
	// registered, in order.
	c.mu.Lock()
	ids := make([]uint64, 0, len(c.byMessageID))
	for id := range c.byMessageID {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	if len(ids) != len(reqs) {
		t.Fatalf("registered %d wait slots, want %d", len(ids), len(reqs))
	}
	for i := 0; i < len(ids); i++ {
		minID := ids[0]
		for _, id := range ids {
			if id < minID {
				minID = id
			}
		}
		completeSlot(c, minID, reqs[i].Command)
		for j, id := range ids {
			if id == minID {
				ids = append(ids[:j], ids[j+1:]...)
				break
			}
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendCompound did not return in time")
	}
	if sendErr != nil {
		t.Fatalf("SendCompound() error = %v", sendErr)
	}
	if len(results) != len(reqs) {
		t.Fatalf("SendCompound() returned %d results, want %d", len(results), len(reqs))
	}
	for i, res := range results {
		if res.Err != nil {
			t.Errorf("result %d error = %v, want nil", i, res.Err)
		}
		if res.Header.Command != reqs[i].Command {
			t.Errorf("result %d Command = %v, want %v", i, res.Header.Command, reqs[i].Command)
		}
	}
}

func TestSendCompound_Empty(t *testing.T) {
	c := newTestConnection(newFakeCompoundConn())
	results, err := c.SendCompound(context.Background(), nil, nil)
	if err != nil || results != nil {
		t.Errorf("SendCompound(nil) = (%v, %v), want (nil, nil)", results, err)
	}
}
