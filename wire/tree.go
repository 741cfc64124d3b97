package wire

import "fmt"

// TreeConnectRequest is the TREE_CONNECT request body (MS-SMB2 2.2.9).
type TreeConnectRequest struct {
	Flags uint16 // cluster reconnect / extension flags (3.1.1)
	Path  string // "\\server\share" UNC form
}

func (t *TreeConnectRequest) Encode() []byte {
	pathBytes := EncodeUTF16LE(t.Path)
	w := NewWriter(16 + len(pathBytes))
	w.Uint16(9) // StructureSize
	w.Uint16(t.Flags)
	offPos := w.Mark()
	w.Uint16(0)
	w.Uint16(uint16(len(pathBytes)))
	bufStart := w.Len()
	w.RawBytes(pathBytes)
	w.PatchUint16At(offPos, uint16(HeaderSize+bufStart))
	return w.Bytes()
}

// TreeConnectResponse is the TREE_CONNECT response body.
type TreeConnectResponse struct {
	ShareType         uint8
	ShareFlags        uint32
	Capabilities      uint32
	MaximalAccess     uint32
}

func DecodeTreeConnectResponse(body []byte) (*TreeConnectResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 16 {
		return nil, fmt.Errorf("wire: TREE_CONNECT response StructureSize %d != 16", structSize)
	}
	resp := &TreeConnectResponse{}
	resp.ShareType = r.Byte()
	r.Skip(1) // Reserved
	resp.ShareFlags = r.Uint32()
	resp.Capabilities = r.Uint32()
	resp.MaximalAccess = r.Uint32()
	return resp, r.Err()
}

// IsDFS reports whether the connected share is a DFS root or link.
func (t *TreeConnectResponse) IsDFS() bool {
	return t.ShareFlags&(ShareFlagDFS|ShareFlagDFSRoot) != 0 || t.Capabilities&ShareCapDFS != 0
}

// IsCA reports whether the share advertises continuous availability.
func (t *TreeConnectResponse) IsCA() bool {
	return t.Capabilities&ShareCapContinuousAvailability != 0
}

// TreeDisconnectRequest is the (empty) TREE_DISCONNECT request body.
type TreeDisconnectRequest struct{}

func (TreeDisconnectRequest) Encode() []byte {
	w := NewWriter(4)
	w.Uint16(4)
	w.Uint16(0)
	return w.Bytes()
}

// TreeDisconnectResponse is the (empty) TREE_DISCONNECT response body.
type TreeDisconnectResponse struct{}

func DecodeTreeDisconnectResponse(body []byte) (*TreeDisconnectResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 4 {
		return nil, fmt.Errorf("wire: TREE_DISCONNECT response StructureSize %d != 4", structSize)
	}
	return &TreeDisconnectResponse{}, r.Err()
}
