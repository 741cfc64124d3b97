package wire

import "fmt"

// ReadRequest is the READ request body (MS-SMB2 2.2.19).
type ReadRequest struct {
	Padding         uint8
	Flags           uint8
	Length          uint32
	Offset          uint64
	FileID          FileID
	MinimumCount    uint32
	RemainingBytes  uint32
}

func (r *ReadRequest) Encode() []byte {
	w := NewWriter(48)
	w.Uint16(49) // StructureSize
	w.Byte(r.Padding)
	w.Byte(r.Flags)
	w.Uint32(r.Length)
	w.Uint64(r.Offset)
	w.FileID(r.FileID)
	w.Uint32(r.MinimumCount)
	w.Uint32(0) // Channel
	w.Uint32(r.RemainingBytes)
	w.Uint16(0) // ReadChannelInfoOffset
	w.Uint16(0) // ReadChannelInfoLength
	w.Byte(0)   // Buffer placeholder byte required by the fixed layout
	return w.Bytes()
}

// ReadResponse is the READ response body; Data aliases into the decoded
// message buffer and must be copied by the caller if retained.
type ReadResponse struct {
	DataRemaining uint32
	Data          []byte
}

func DecodeReadResponse(body []byte, bodyOffsetInMessage int) (*ReadResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 17 {
		return nil, fmt.Errorf("wire: READ response StructureSize %d != 17", structSize)
	}
	dataOffset := r.Byte()
	r.Skip(1) // Reserved
	dataLen := r.Uint32()
	dataRemaining := r.Uint32()
	r.Skip(4) // Reserved2
	if err := r.Err(); err != nil {
		return nil, err
	}
	start := int(dataOffset) - bodyOffsetInMessage
	if start < 0 || start+int(dataLen) > len(body) {
		return nil, fmt.Errorf("wire: READ response data out of range")
	}
	return &ReadResponse{DataRemaining: dataRemaining, Data: body[start : start+int(dataLen)]}, nil
}

// WriteRequest is the WRITE request body (MS-SMB2 2.2.21).
type WriteRequest struct {
	Offset            uint64
	FileID            FileID
	Flags             uint32
	Data              []byte
}

const (
	WriteFlagWriteThrough uint32 = 0x00000001
)

func (w2 *WriteRequest) Encode() []byte {
	w := NewWriter(48 + len(w2.Data))
	w.Uint16(49) // StructureSize
	dataOffPos := w.Mark()
	w.Uint16(0)
	lenPos := w.Mark()
	w.Uint32(0)
	w.Uint64(w2.Offset)
	w.FileID(w2.FileID)
	w.Uint32(0) // Channel
	w.Uint32(0) // RemainingBytes
	w.Uint16(0) // WriteChannelInfoOffset
	w.Uint16(0) // WriteChannelInfoLength
	w.Uint32(w2.Flags)
	dataStart := w.Len()
	w.PatchUint16At(dataOffPos, uint16(HeaderSize+dataStart))
	w.PatchUint32At(lenPos, uint32(len(w2.Data)))
	w.RawBytes(w2.Data)
	return w.Bytes()
}

// WriteResponse is the WRITE response body.
type WriteResponse struct {
	Count    uint32
	Remaining uint32
}

func DecodeWriteResponse(body []byte) (*WriteResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 17 {
		return nil, fmt.Errorf("wire: WRITE response StructureSize %d != 17", structSize)
	}
	r.Skip(2) // Reserved
	resp := &WriteResponse{Count: r.Uint32(), Remaining: r.Uint32()}
	r.Skip(4) // WriteChannelInfoOffset/Length
	return resp, r.Err()
}

// LockElement is one range in a LOCK request (MS-SMB2 2.2.26.1).
type LockElement struct {
	Offset uint64
	Length uint64
	Flags  uint32
}

const (
	LockFlagSharedLock    uint32 = 0x00000001
	LockFlagExclusiveLock uint32 = 0x00000002
	LockFlagUnlock        uint32 = 0x00000004
	LockFlagFailImmediately uint32 = 0x00000010
)

// LockRequest is the LOCK request body (MS-SMB2 2.2.26).
type LockRequest struct {
	FileID     FileID
	LockSequence uint32
	Locks      []LockElement
}

func (l *LockRequest) Encode() []byte {
	w := NewWriter(48 + len(l.Locks)*24)
	w.Uint16(48) // StructureSize
	w.Uint16(uint16(len(l.Locks)))
	w.Uint32(l.LockSequence)
	w.FileID(l.FileID)
	for _, e := range l.Locks {
		w.Uint64(e.Offset)
		w.Uint64(e.Length)
		w.Uint32(e.Flags)
		w.Uint32(0) // Reserved
	}
	return w.Bytes()
}

type LockResponse struct{}

func DecodeLockResponse(body []byte) (*LockResponse, error) {
	r := NewReader(body)
	if r.Uint16() != 4 {
		return nil, fmt.Errorf("wire: LOCK response bad StructureSize")
	}
	return &LockResponse{}, r.Err()
}
