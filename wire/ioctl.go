package wire

import "fmt"

// FSCTL/IOCTL control codes this client issues (MS-SMB2 2.2.31.1, MS-FSCC 2.3).
const (
	FsctlDfsGetReferrals          uint32 = 0x00060194
	FsctlDfsGetReferralsEx        uint32 = 0x000601B0
	FsctlPipePeek                 uint32 = 0x0011400C
	FsctlPipeWait                 uint32 = 0x00110018
	FsctlPipeTransceive           uint32 = 0x0011C017
	FsctlSrvEnumerateSnapshots    uint32 = 0x00144064
	FsctlSrvRequestResumeKey      uint32 = 0x00140078
	FsctlSrvCopychunk             uint32 = 0x001440F2
	FsctlSrvCopychunkWrite        uint32 = 0x001480F2
	FsctlSrvReadHash              uint32 = 0x001441BB
	FsctlLmrRequestResiliency     uint32 = 0x001401D4
	FsctlQueryNetworkInterfaceInfo uint32 = 0x001401FC
	FsctlSetReparsePoint          uint32 = 0x000900A4
	FsctlGetReparsePoint          uint32 = 0x000900A8
	FsctlFileLevelTrim            uint32 = 0x00098208
	FsctlValidateNegotiateInfo    uint32 = 0x00140204
	FsctlQueryAllocatedRanges     uint32 = 0x000940CF
	FsctlSetZeroData              uint32 = 0x000980C8
	FsctlOffloadRead              uint32 = 0x00094264
	FsctlOffloadWrite             uint32 = 0x00098268
)

// IOCTL request/response flags (MS-SMB2 2.2.31/2.2.32).
const (
	IoctlFlagIsFsctl uint32 = 0x00000001
)

// IoctlRequest is the IOCTL request body (MS-SMB2 2.2.31).
type IoctlRequest struct {
	CtlCode           uint32
	FileID            FileID
	InputBuffer       []byte
	MaxOutputResponse uint32
	Flags             uint32
}

func (i *IoctlRequest) Encode() []byte {
	w := NewWriter(56 + len(i.InputBuffer))
	w.Uint16(57) // StructureSize
	w.Uint16(0)  // Reserved
	w.Uint32(i.CtlCode)
	w.FileID(i.FileID)
	inOffPos := w.Mark()
	w.Uint32(0)
	inLenPos := w.Mark()
	w.Uint32(0)
	w.Uint32(0) // MaxIoctlInSize - unused by clients issuing a single buffer
	w.Uint32(0) // OutputOffset, patched if needed by caller via output round-trip
	w.Uint32(0) // OutputCount
	w.Uint32(i.MaxOutputResponse)
	w.Uint32(i.Flags)
	w.Uint32(0) // Reserved2
	if len(i.InputBuffer) > 0 {
		start := w.Len()
		w.PatchUint32At(inOffPos, uint32(HeaderSize+start))
		w.PatchUint32At(inLenPos, uint32(len(i.InputBuffer)))
		w.RawBytes(i.InputBuffer)
	}
	return w.Bytes()
}

// IoctlResponse is the decoded IOCTL response body.
type IoctlResponse struct {
	CtlCode uint32
	FileID  FileID
	Input   []byte
	Output  []byte
}

func DecodeIoctlResponse(body []byte, bodyOffsetInMessage int) (*IoctlResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 49 {
		return nil, fmt.Errorf("wire: IOCTL response StructureSize %d != 49", structSize)
	}
	r.Skip(2) // Reserved
	ctl := r.Uint32()
	fid := r.FileID()
	inOff := r.Uint32()
	inLen := r.Uint32()
	outOff := r.Uint32()
	outLen := r.Uint32()
	r.Skip(8) // Flags/Reserved2
	if err := r.Err(); err != nil {
		return nil, err
	}
	resp := &IoctlResponse{CtlCode: ctl, FileID: fid}
	if inLen > 0 {
		start := int(inOff) - bodyOffsetInMessage
		if start < 0 || start+int(inLen) > len(body) {
			return nil, fmt.Errorf("wire: IOCTL response input buffer out of range")
		}
		resp.Input = body[start : start+int(inLen)]
	}
	if outLen > 0 {
		start := int(outOff) - bodyOffsetInMessage
		if start < 0 || start+int(outLen) > len(body) {
			return nil, fmt.Errorf("wire: IOCTL response output buffer out of range")
		}
		resp.Output = body[start : start+int(outLen)]
	}
	return resp, nil
}

// ValidateNegotiateInfoRequest is the FSCTL_VALIDATE_NEGOTIATE_INFO payload
// (MS-SMB2 2.2.31.3), used to detect downgrade attacks after session setup.
type ValidateNegotiateInfoRequest struct {
	Capabilities uint32
	ClientGUID   [16]byte
	SecurityMode uint16
	Dialects     []Dialect
}

func (v *ValidateNegotiateInfoRequest) Encode() []byte {
	w := NewWriter(24 + 2*len(v.Dialects))
	w.Uint32(v.Capabilities)
	w.GUID(v.ClientGUID)
	w.Uint16(v.SecurityMode)
	w.Uint16(uint16(len(v.Dialects)))
	for _, d := range v.Dialects {
		w.Uint16(uint16(d))
	}
	return w.Bytes()
}

type ValidateNegotiateInfoResponse struct {
	Capabilities uint32
	ServerGUID   [16]byte
	SecurityMode uint16
	Dialect      Dialect
}

func DecodeValidateNegotiateInfoResponse(data []byte) (*ValidateNegotiateInfoResponse, error) {
	r := NewReader(data)
	resp := &ValidateNegotiateInfoResponse{
		Capabilities: r.Uint32(),
		ServerGUID:   r.GUID(),
		SecurityMode: r.Uint16(),
		Dialect:      Dialect(r.Uint16()),
	}
	return resp, r.Err()
}

// SrvCopychunk is one element of a FSCTL_SRV_COPYCHUNK request (MS-FSCC 2.3.29).
type SrvCopychunk struct {
	SourceOffset uint64
	TargetOffset uint64
	Length       uint32
}

// SrvCopychunkCopy is the FSCTL_SRV_COPYCHUNK(_WRITE) input payload.
type SrvCopychunkCopy struct {
	SourceKey [24]byte
	Chunks    []SrvCopychunk
}

func (c *SrvCopychunkCopy) Encode() []byte {
	w := NewWriter(32 + len(c.Chunks)*24)
	w.RawBytes(c.SourceKey[:])
	w.Uint32(uint32(len(c.Chunks)))
	w.Uint32(0) // Reserved
	for _, ch := range c.Chunks {
		w.Uint64(ch.SourceOffset)
		w.Uint64(ch.TargetOffset)
		w.Uint32(ch.Length)
		w.Uint32(0) // Reserved
	}
	return w.Bytes()
}

// SrvCopychunkResponse (MS-FSCC 2.3.30).
type SrvCopychunkResponse struct {
	ChunksWritten   uint32
	ChunkBytesWritten uint32
	TotalBytesWritten uint32
}

func DecodeSrvCopychunkResponse(data []byte) (*SrvCopychunkResponse, error) {
	r := NewReader(data)
	resp := &SrvCopychunkResponse{
		ChunksWritten:     r.Uint32(),
		ChunkBytesWritten: r.Uint32(),
		TotalBytesWritten: r.Uint32(),
	}
	return resp, r.Err()
}

// SrvRequestResumeKeyResponse (MS-FSCC 2.3.54).
type SrvRequestResumeKeyResponse struct {
	ResumeKey [24]byte
}

func DecodeSrvRequestResumeKeyResponse(data []byte) (*SrvRequestResumeKeyResponse, error) {
	r := NewReader(data)
	resp := &SrvRequestResumeKeyResponse{}
	copy(resp.ResumeKey[:], r.Bytes(24))
	r.Skip(4) // ContextLength
	return resp, r.Err()
}

// Network interface capability bits (MS-SMB2 2.2.32.5.1).
const (
	NetIfCapRSS  uint32 = 0x00000001
	NetIfCapRDMA uint32 = 0x00000002
)

// NetworkInterfaceInfo is one chained element of a
// FSCTL_QUERY_NETWORK_INTERFACE_INFO response (MS-SMB2 2.2.32.5.1).
type NetworkInterfaceInfo struct {
	IfIndex     uint32
	Capability  uint32
	LinkSpeed   uint64
	SockAddr    [128]byte
}

func DecodeNetworkInterfaceInfoList(data []byte) ([]NetworkInterfaceInfo, error) {
	var out []NetworkInterfaceInfo
	pos := 0
	for pos < len(data) {
		r := NewReader(data[pos:])
		next := r.Uint32()
		info := NetworkInterfaceInfo{
			IfIndex:    r.Uint32(),
			Capability: r.Uint32(),
		}
		r.Skip(4) // Reserved
		info.LinkSpeed = r.Uint64()
		copy(info.SockAddr[:], r.Bytes(128))
		if err := r.Err(); err != nil {
			return nil, err
		}
		out = append(out, info)
		if next == 0 {
			break
		}
		pos += int(next)
	}
	return out, nil
}

// FileAllocatedRangeBuffer (MS-FSCC 2.3.33), used with
// FSCTL_QUERY_ALLOCATED_RANGES both as input and as each output record.
type FileAllocatedRangeBuffer struct {
	FileOffset int64
	Length     int64
}

func (f *FileAllocatedRangeBuffer) Encode() []byte {
	w := NewWriter(16)
	w.Uint64(uint64(f.FileOffset))
	w.Uint64(uint64(f.Length))
	return w.Bytes()
}

func DecodeFileAllocatedRangeBuffers(data []byte) ([]FileAllocatedRangeBuffer, error) {
	var out []FileAllocatedRangeBuffer
	for pos := 0; pos+16 <= len(data); pos += 16 {
		r := NewReader(data[pos : pos+16])
		out = append(out, FileAllocatedRangeBuffer{
			FileOffset: int64(r.Uint64()),
			Length:     int64(r.Uint64()),
		})
	}
	return out, nil
}
