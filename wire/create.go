package wire

import "fmt"

// CreateRequest is the CREATE request body (MS-SMB2 2.2.13).
type CreateRequest struct {
	SecurityFlags        uint8
	RequestedOplockLevel uint8
	ImpersonationLevel   uint32
	DesiredAccess        uint32
	FileAttributes       uint32
	ShareAccess          uint32
	CreateDisposition    uint32
	CreateOptions        uint32
	Name                 string
	Contexts             []CreateContext
}

func (c *CreateRequest) Encode() []byte {
	nameBytes := EncodeUTF16LE(c.Name)
	ctxBytes := EncodeCreateContextList(c.Contexts)

	w := NewWriter(56 + len(nameBytes) + len(ctxBytes))
	w.Uint16(57) // StructureSize
	w.Byte(c.SecurityFlags)
	w.Byte(c.RequestedOplockLevel)
	w.Uint32(c.ImpersonationLevel)
	w.Uint64(0) // SmbCreateFlags, reserved
	w.Uint64(0) // Reserved
	w.Uint32(c.DesiredAccess)
	w.Uint32(c.FileAttributes)
	w.Uint32(c.ShareAccess)
	w.Uint32(c.CreateDisposition)
	w.Uint32(c.CreateOptions)

	nameOffPos := w.Mark()
	w.Uint16(0)
	w.Uint16(uint16(len(nameBytes)))

	ctxOffPos := w.Mark()
	w.Uint32(0)
	ctxLenPos := w.Mark()
	w.Uint32(0)

	nameStart := w.Len()
	w.PatchUint16At(nameOffPos, uint16(HeaderSize+nameStart))
	w.RawBytes(nameBytes)

	if len(ctxBytes) > 0 {
		w.PadTo(8)
		ctxStart := w.Len()
		w.PatchUint32At(ctxOffPos, uint32(HeaderSize+ctxStart))
		w.PatchUint32At(ctxLenPos, uint32(len(ctxBytes)))
		w.RawBytes(ctxBytes)
	}
	return w.Bytes()
}

// CreateResponse is the CREATE response body.
type CreateResponse struct {
	OplockLevel    uint8
	Flags          uint8
	CreateAction   uint32
	CreationTime   FileTime
	LastAccessTime FileTime
	LastWriteTime  FileTime
	ChangeTime     FileTime
	AllocationSize int64
	EndOfFile      int64
	FileAttributes uint32
	FileID         FileID
	Contexts       []CreateContext
}

func DecodeCreateResponse(body []byte, bodyOffsetInMessage int) (*CreateResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 89 {
		return nil, fmt.Errorf("wire: CREATE response StructureSize %d != 89", structSize)
	}
	resp := &CreateResponse{}
	resp.OplockLevel = r.Byte()
	resp.Flags = r.Byte()
	resp.CreateAction = r.Uint32()
	resp.CreationTime = r.FileTime()
	resp.LastAccessTime = r.FileTime()
	resp.LastWriteTime = r.FileTime()
	resp.ChangeTime = r.FileTime()
	resp.AllocationSize = int64(r.Uint64())
	resp.EndOfFile = int64(r.Uint64())
	resp.FileAttributes = r.Uint32()
	r.Skip(4) // Reserved2
	resp.FileID = r.FileID()
	ctxOffset := r.Uint32()
	ctxLen := r.Uint32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if ctxLen > 0 {
		start := int(ctxOffset) - bodyOffsetInMessage
		if start < 0 || start+int(ctxLen) > len(body) {
			return nil, fmt.Errorf("wire: CREATE response contexts out of range")
		}
		ctxs, err := DecodeCreateContextList(body[start : start+int(ctxLen)])
		if err != nil {
			return nil, err
		}
		resp.Contexts = ctxs
	}
	return resp, nil
}

// CloseRequest is the CLOSE request body (MS-SMB2 2.2.15).
type CloseRequest struct {
	Flags  uint16
	FileID FileID
}

const CloseFlagPostQueryAttrib uint16 = 0x0001

func (c *CloseRequest) Encode() []byte {
	w := NewWriter(24)
	w.Uint16(24)
	w.Uint16(c.Flags)
	w.Uint32(0) // Reserved
	w.FileID(c.FileID)
	return w.Bytes()
}

// CloseResponse is the CLOSE response body.
type CloseResponse struct {
	Flags          uint16
	CreationTime   FileTime
	LastAccessTime FileTime
	LastWriteTime  FileTime
	ChangeTime     FileTime
	AllocationSize int64
	EndOfFile      int64
	FileAttributes uint32
}

func DecodeCloseResponse(body []byte) (*CloseResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 60 {
		return nil, fmt.Errorf("wire: CLOSE response StructureSize %d != 60", structSize)
	}
	resp := &CloseResponse{}
	resp.Flags = r.Uint16()
	r.Skip(4) // Reserved
	resp.CreationTime = r.FileTime()
	resp.LastAccessTime = r.FileTime()
	resp.LastWriteTime = r.FileTime()
	resp.ChangeTime = r.FileTime()
	resp.AllocationSize = int64(r.Uint64())
	resp.EndOfFile = int64(r.Uint64())
	resp.FileAttributes = r.Uint32()
	return resp, r.Err()
}

// FlushRequest/Response (MS-SMB2 2.2.16/2.2.17).
type FlushRequest struct{ FileID FileID }

func (f *FlushRequest) Encode() []byte {
	w := NewWriter(24)
	w.Uint16(24)
	w.Uint16(0)
	w.Uint32(0)
	w.FileID(f.FileID)
	return w.Bytes()
}

type FlushResponse struct{}

func DecodeFlushResponse(body []byte) (*FlushResponse, error) {
	r := NewReader(body)
	if r.Uint16() != 4 {
		return nil, fmt.Errorf("wire: FLUSH response bad StructureSize")
	}
	return &FlushResponse{}, r.Err()
}
