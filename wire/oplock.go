package wire

import "fmt"

// Lease states (MS-SMB2 2.2.13.2.8).
const (
	LeaseStateNone        uint32 = 0x00000000
	LeaseStateReadCaching uint32 = 0x00000001
	LeaseStateHandleCaching uint32 = 0x00000002
	LeaseStateWriteCaching uint32 = 0x00000004
)

// OplockBreakNotification is the server-initiated OPLOCK_BREAK notification
// (MS-SMB2 2.2.23), delivered asynchronously to an idle connection worker
// and requiring the client to send an acknowledgement.
type OplockBreakNotification struct {
	OplockLevel uint8
	FileID      FileID
}

func DecodeOplockBreakNotification(body []byte) (*OplockBreakNotification, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 24 {
		return nil, fmt.Errorf("wire: OPLOCK_BREAK notification StructureSize %d != 24", structSize)
	}
	n := &OplockBreakNotification{OplockLevel: r.Byte()}
	r.Skip(1) // Reserved
	r.Skip(4) // Reserved2
	n.FileID = r.FileID()
	return n, r.Err()
}

// OplockBreakAcknowledgment is the client's reply to an oplock break
// (MS-SMB2 2.2.24).
type OplockBreakAcknowledgment struct {
	OplockLevel uint8
	FileID      FileID
}

func (a *OplockBreakAcknowledgment) Encode() []byte {
	w := NewWriter(24)
	w.Uint16(24)
	w.Byte(a.OplockLevel)
	w.Byte(0) // Reserved
	w.Uint32(0) // Reserved2
	w.FileID(a.FileID)
	return w.Bytes()
}

// LeaseBreakNotification is the server-initiated lease break notification
// (MS-SMB2 2.2.23.1), keyed by LeaseKey rather than FileID so it applies
// across every handle sharing the lease.
type LeaseBreakNotification struct {
	NewEpoch      uint16
	Flags         uint32
	LeaseKey      [16]byte
	CurrentLeaseState uint32
	NewLeaseState uint32
	BreakReason   uint32
}

const LeaseBreakFlagAckRequired uint32 = 0x00000001

func DecodeLeaseBreakNotification(body []byte) (*LeaseBreakNotification, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 44 {
		return nil, fmt.Errorf("wire: lease break notification StructureSize %d != 44", structSize)
	}
	n := &LeaseBreakNotification{}
	n.NewEpoch = r.Uint16()
	n.Flags = r.Uint32()
	n.LeaseKey = r.GUID()
	n.CurrentLeaseState = r.Uint32()
	n.NewLeaseState = r.Uint32()
	n.BreakReason = r.Uint32()
	r.Skip(8) // AccessMaskHint/ShareMaskHint
	return n, r.Err()
}

// LeaseBreakAcknowledgment is the client's reply to a lease break
// (MS-SMB2 2.2.24.1).
type LeaseBreakAcknowledgment struct {
	LeaseKey      [16]byte
	LeaseState    uint32
}

func (a *LeaseBreakAcknowledgment) Encode() []byte {
	w := NewWriter(36)
	w.Uint16(36)
	w.Uint16(0) // Reserved
	w.GUID(a.LeaseKey)
	w.Uint32(a.LeaseState)
	return w.Bytes()
}
