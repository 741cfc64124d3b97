package wire

// CreateContext is one chained element of the CREATE request/response
// context list (MS-SMB2 2.2.13.2). Each record is keyed by an opaque Name
// that may be a short ASCII tag ("DHnQ", "MxAc", ...) or a GUID byte
// sequence. Unknown names are retained as raw Data.
type CreateContext struct {
	Name []byte
	Data []byte
}

// Well-known create context tags (MS-SMB2 2.2.13.2.1 et al.).
var (
	CtxExtendedAttribute       = []byte("ExtA")
	CtxSecurityDescriptor      = []byte("SecD")
	CtxDurableHandleRequest    = []byte("DHnQ")
	CtxDurableHandleReconnect  = []byte("DHnC")
	CtxAllocationSize          = []byte("AlSi")
	CtxMaximalAccess           = []byte("MxAc")
	CtxTimewarpToken           = []byte("TWrp")
	CtxQueryOnDiskID           = []byte("QFid")
	CtxRequestLease            = []byte("RqLs")
	CtxDurableHandleV2Request  = []byte("DH2Q")
	CtxDurableHandleV2Reconnect = []byte("DH2C")
	CtxAppInstanceID           = []byte{0x45, 0xBC, 0xA6, 0x6A, 0xEF, 0xA7, 0xF7, 0x4A, 0x90, 0x08, 0xFA, 0x46, 0x2E, 0x14, 0x4D, 0x74}
	CtxAppInstanceVersion      = []byte{0xB9, 0x82, 0xD0, 0xB7, 0x3B, 0x56, 0x07, 0x4F, 0xA0, 0x7B, 0x52, 0x4A, 0x81, 0x16, 0xA0, 0x10}
	CtxSvhdxOpenDeviceContext  = []byte{0x9D, 0xFC, 0xE4, 0x9C, 0xCE, 0x3E, 0xDD, 0x47, 0x8C, 0x8E, 0x8D, 0x8D, 0x1B, 0xAC, 0xDA, 0xF6}
)

// EncodeCreateContextList writes the request/response context chain,
// asserting 8-byte data-offset alignment on each record per MS-SMB2 2.2.13.2.
func EncodeCreateContextList(ctxs []CreateContext) []byte {
	w := NewWriter(64 * len(ctxs))
	listStart := 0
	for i, c := range ctxs {
		recStart := w.Len()
		nextPos := w.Mark()
		w.Uint32(0) // NextEntryOffset, patched below
		nameOffPos := w.Mark()
		w.Uint16(0)
		w.Uint16(uint16(len(c.Name)))
		w.Uint16(0) // Reserved
		dataOffPos := w.Mark()
		w.Uint16(0)
		w.Uint32(uint32(len(c.Data)))

		nameStart := w.Len()
		w.PatchUint16At(nameOffPos, uint16(nameStart-recStart))
		w.RawBytes(c.Name)
		w.PadTo(8)

		dataStart := w.Len()
		w.PatchUint16At(dataOffPos, uint16(dataStart-recStart))
		w.RawBytes(c.Data)

		if i != len(ctxs)-1 {
			w.PadTo(8)
			w.PatchUint32At(nextPos, uint32(w.Len()-recStart))
		}
	}
	_ = listStart
	return w.Bytes()
}

// DecodeCreateContextList reads a chained create-context list starting at
// data[0] and continuing until a zero
// NextEntryOffset or stream exhaustion.
func DecodeCreateContextList(data []byte) ([]CreateContext, error) {
	var out []CreateContext
	pos := 0
	for pos < len(data) {
		r := NewReader(data[pos:])
		next := r.Uint32()
		nameOff := r.Uint16()
		nameLen := r.Uint16()
		r.Skip(2) // Reserved
		dataOff := r.Uint16()
		dataLen := r.Uint32()
		if err := r.Err(); err != nil {
			return nil, err
		}
		if int(nameOff)%8 != 0 && nameOff != 0 {
			return nil, errMisaligned("create context name", int(nameOff))
		}
		if int(dataOff)%8 != 0 && dataOff != 0 {
			return nil, errMisaligned("create context data", int(dataOff))
		}
		name := data[pos+int(nameOff) : pos+int(nameOff)+int(nameLen)]
		var ctxData []byte
		if dataLen > 0 {
			ctxData = data[pos+int(dataOff) : pos+int(dataOff)+int(dataLen)]
		}
		out = append(out, CreateContext{
			Name: append([]byte(nil), name...),
			Data: append([]byte(nil), ctxData...),
		})
		if next == 0 {
			break
		}
		pos += int(next)
	}
	return out, nil
}

// DurableHandleV2Request is create context "DH2Q".
type DurableHandleV2Request struct {
	Timeout      uint32
	Flags        uint32
	CreateGUID   [16]byte
}

const durableHandleV2Persistent uint32 = 0x00000002

func (d *DurableHandleV2Request) Encode() []byte {
	w := NewWriter(32)
	w.Uint32(d.Timeout)
	w.Uint32(d.Flags)
	w.Zeros(8) // Reserved
	w.GUID(d.CreateGUID)
	return w.Bytes()
}

func (d *DurableHandleV2Request) IsPersistent() bool { return d.Flags&durableHandleV2Persistent != 0 }

// DurableHandleV2Response is the server's "DH2Q" reply context.
type DurableHandleV2Response struct {
	Timeout uint32
	Flags   uint32
}

func DecodeDurableHandleV2Response(data []byte) (*DurableHandleV2Response, error) {
	r := NewReader(data)
	resp := &DurableHandleV2Response{Timeout: r.Uint32(), Flags: r.Uint32()}
	return resp, r.Err()
}

// DurableHandleV2Reconnect is create context "DH2C".
type DurableHandleV2Reconnect struct {
	FileID     FileID
	CreateGUID [16]byte
	Flags      uint32
}

func (d *DurableHandleV2Reconnect) Encode() []byte {
	w := NewWriter(28)
	w.FileID(d.FileID)
	w.GUID(d.CreateGUID)
	w.Uint32(d.Flags)
	return w.Bytes()
}

// RequestLeaseV2 is create context "RqLs" v2.
type RequestLeaseV2 struct {
	LeaseKey      [16]byte
	LeaseState    uint32
	LeaseFlags    uint32
	LeaseDuration uint64
	ParentLeaseKey [16]byte
	Epoch          uint16
}

func (l *RequestLeaseV2) Encode() []byte {
	w := NewWriter(52)
	w.GUID(l.LeaseKey)
	w.Uint32(l.LeaseState)
	w.Uint32(l.LeaseFlags)
	w.Uint64(l.LeaseDuration)
	w.GUID(l.ParentLeaseKey)
	w.Uint16(l.Epoch)
	w.Uint16(0) // Reserved
	return w.Bytes()
}

// MxAc (QueryMaximalAccessResponse) is the server-only response context.
type MaximalAccessResponse struct {
	QueryStatus   Status
	MaximalAccess uint32
}

func DecodeMaximalAccessResponse(data []byte) (*MaximalAccessResponse, error) {
	r := NewReader(data)
	resp := &MaximalAccessResponse{QueryStatus: Status(r.Uint32()), MaximalAccess: r.Uint32()}
	return resp, r.Err()
}

// TimewarpToken is create context "TWrp": a FILETIME for a previous-version snapshot.
type TimewarpToken struct{ Timestamp FileTime }

func (t *TimewarpToken) Encode() []byte {
	w := NewWriter(8)
	w.FileTime(t.Timestamp)
	return w.Bytes()
}

// QueryOnDiskIDResponse is create context "QFid" response.
type QueryOnDiskIDResponse struct {
	DiskFileID uint64
	VolumeID   uint64
}

func DecodeQueryOnDiskIDResponse(data []byte) (*QueryOnDiskIDResponse, error) {
	r := NewReader(data)
	resp := &QueryOnDiskIDResponse{DiskFileID: r.Uint64(), VolumeID: r.Uint64()}
	return resp, r.Err()
}
