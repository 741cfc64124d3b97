package wire

import "fmt"

// NegotiateRequest is the client's NEGOTIATE request body (MS-SMB2 2.2.3).
type NegotiateRequest struct {
	Dialects          []Dialect
	SecurityMode      uint16
	Capabilities      uint32
	ClientGUID        [16]byte
	NegotiateContexts []NegotiateContext // only sent when 3.1.1 is offered
}

// Encode serializes the request body (not including the 64-byte header).
func (n *NegotiateRequest) Encode() []byte {
	offers311 := false
	for _, d := range n.Dialects {
		if d == Dialect311 {
			offers311 = true
		}
	}

	w := NewWriter(256)
	w.Uint16(36) // StructureSize
	w.Uint16(uint16(len(n.Dialects)))
	w.Uint16(n.SecurityMode)
	w.Uint16(0) // Reserved
	w.Uint32(n.Capabilities)
	w.GUID(n.ClientGUID)

	if offers311 && len(n.NegotiateContexts) > 0 {
		// NegotiateContextOffset/Count/Reserved2 replace
		// ClientStartTime in the 3.1.1 request layout.
		offsetPos := w.Mark()
		w.Uint32(0) // NegotiateContextOffset, patched below
		w.Uint16(uint16(len(n.NegotiateContexts)))
		w.Uint16(0) // Reserved2
		for _, d := range n.Dialects {
			w.Uint16(uint16(d))
		}
		w.PadTo(8)
		ctxStart := w.Len()
		w.PatchUint32At(offsetPos, uint32(HeaderSize+ctxStart))
		EncodeNegotiateContextList(w, n.NegotiateContexts)
	} else {
		w.Uint64(0) // ClientStartTime, reserved by clients
		for _, d := range n.Dialects {
			w.Uint16(uint16(d))
		}
	}
	return w.Bytes()
}

// NegotiateResponse is the server's NEGOTIATE response body.
type NegotiateResponse struct {
	SecurityMode      uint16
	DialectRevision   Dialect
	ServerGUID        [16]byte
	Capabilities      uint32
	MaxTransactSize   uint32
	MaxReadSize       uint32
	MaxWriteSize      uint32
	SystemTime        FileTime
	ServerStartTime   FileTime
	SecurityBuffer    []byte
	NegotiateContexts []NegotiateContext
}

// DecodeNegotiateResponse parses a NEGOTIATE response body, given the full
// message bytes starting at the body (after the 64-byte header) and the
// offset of the body within the overall message (= HeaderSize for a plain,
// non-compounded message) so negotiate-context and security-buffer offsets
// can be resolved.
func DecodeNegotiateResponse(body []byte, bodyOffsetInMessage int) (*NegotiateResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 65 {
		return nil, fmt.Errorf("wire: NEGOTIATE response StructureSize %d != 65", structSize)
	}
	resp := &NegotiateResponse{}
	resp.SecurityMode = r.Uint16()
	resp.DialectRevision = Dialect(r.Uint16())
	negCtxCount := r.Uint16() // also NegotiateContextCount for 3.1.1
	resp.ServerGUID = r.GUID()
	resp.Capabilities = r.Uint32()
	resp.MaxTransactSize = r.Uint32()
	resp.MaxReadSize = r.Uint32()
	resp.MaxWriteSize = r.Uint32()
	resp.SystemTime = r.FileTime()
	resp.ServerStartTime = r.FileTime()
	secBufOffset := r.Uint16()
	secBufLen := r.Uint16()
	negCtxOffset := r.Uint32() // overlaps Reserved2 for pre-3.1.1 dialects

	if err := r.Err(); err != nil {
		return nil, err
	}

	if secBufLen > 0 {
		start := int(secBufOffset) - bodyOffsetInMessage
		if start < 0 || start+int(secBufLen) > len(body) {
			return nil, fmt.Errorf("wire: NEGOTIATE response security buffer out of range")
		}
		resp.SecurityBuffer = append([]byte(nil), body[start:start+int(secBufLen)]...)
	}

	if resp.DialectRevision == Dialect311 && negCtxCount > 0 {
		start := int(negCtxOffset) - bodyOffsetInMessage
		if start < 0 || start > len(body) {
			return nil, fmt.Errorf("wire: NEGOTIATE response negotiate contexts out of range")
		}
		cr := NewReader(body[start:])
		ctxs, err := DecodeNegotiateContextList(cr, int(negCtxCount))
		if err != nil {
			return nil, err
		}
		resp.NegotiateContexts = ctxs
	}

	return resp, nil
}
