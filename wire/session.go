package wire

import "fmt"

// SessionSetupRequest is the client's SESSION_SETUP request body (MS-SMB2 2.2.5).
type SessionSetupRequest struct {
	Flags              uint8 // SessionFlagBinding or 0
	SecurityMode       uint16
	Capabilities       uint32
	Channel            uint32
	PreviousSessionID  uint64
	SecurityBuffer     []byte
}

func (s *SessionSetupRequest) Encode() []byte {
	w := NewWriter(32 + len(s.SecurityBuffer))
	w.Uint16(25) // StructureSize
	w.Byte(s.Flags)
	w.Byte(uint8(s.SecurityMode))
	w.Uint32(s.Capabilities)
	w.Uint32(s.Channel)
	offPos := w.Mark()
	w.Uint16(0) // SecurityBufferOffset, patched below (needs header size)
	w.Uint16(uint16(len(s.SecurityBuffer)))
	w.Uint64(s.PreviousSessionID)
	bufStart := w.Len()
	w.RawBytes(s.SecurityBuffer)
	w.PatchUint16At(offPos, uint16(HeaderSize+bufStart))
	return w.Bytes()
}

// SessionSetupResponse is the server's SESSION_SETUP response body.
type SessionSetupResponse struct {
	SessionFlags   uint16
	SecurityBuffer []byte
}

func DecodeSessionSetupResponse(body []byte, bodyOffsetInMessage int) (*SessionSetupResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 9 {
		return nil, fmt.Errorf("wire: SESSION_SETUP response StructureSize %d != 9", structSize)
	}
	resp := &SessionSetupResponse{}
	resp.SessionFlags = r.Uint16()
	secBufOffset := r.Uint16()
	secBufLen := r.Uint16()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if secBufLen > 0 {
		start := int(secBufOffset) - bodyOffsetInMessage
		if start < 0 || start+int(secBufLen) > len(body) {
			return nil, fmt.Errorf("wire: SESSION_SETUP response security buffer out of range")
		}
		resp.SecurityBuffer = append([]byte(nil), body[start:start+int(secBufLen)]...)
	}
	return resp, nil
}

// LogoffRequest is the (empty) LOGOFF request body (MS-SMB2 2.2.7).
type LogoffRequest struct{}

func (LogoffRequest) Encode() []byte {
	w := NewWriter(4)
	w.Uint16(4)
	w.Uint16(0)
	return w.Bytes()
}

// LogoffResponse is the (empty) LOGOFF response body.
type LogoffResponse struct{}

func DecodeLogoffResponse(body []byte) (*LogoffResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 4 {
		return nil, fmt.Errorf("wire: LOGOFF response StructureSize %d != 4", structSize)
	}
	return &LogoffResponse{}, r.Err()
}
