package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/crypto/md4"
)

// NTLM message type constants (MS-NLMP 2.2).
const (
	ntlmSignature = "NTLMSSP\x00"

	ntlmNegotiate    uint32 = 1
	ntlmChallenge    uint32 = 2
	ntlmAuthenticate uint32 = 3
)

// NTLM negotiate flags this client advertises (MS-NLMP 2.2.2.5): unicode,
// extended session security, target info, 128-bit and key-exchange.
const (
	flagUnicode          uint32 = 0x00000001
	flagNTLM             uint32 = 0x00000200
	flagAlwaysSign       uint32 = 0x00008000
	flagTargetInfo       uint32 = 0x00800000
	flagExtendedSecurity uint32 = 0x00080000
	flagKeyExchange      uint32 = 0x40000000
	flag128Bit           uint32 = 0x20000000
	flag56Bit            uint32 = 0x80000000
)

var clientNegotiateFlags = flagUnicode | flagNTLM | flagAlwaysSign |
	flagTargetInfo | flagExtendedSecurity | flagKeyExchange | flag128Bit | flag56Bit

// NTLM implements NTLMv2 authentication (MS-NLMP), the mechanism carried
// inside SPNEGO whenever Kerberos isn't available or isn't chosen.
type NTLM struct {
	Domain   string
	Username string
	Password string

	serverChallenge []byte
	targetInfo      []byte
	sessionKey      []byte
}

// NewNTLM returns a client for the given credentials. An empty username
// and password select anonymous/guest NTLM authentication.
func NewNTLM(domain, username, password string) *NTLM {
	return &NTLM{Domain: domain, Username: username, Password: password}
}

// Negotiate builds the initial NEGOTIATE_MESSAGE.
func (n *NTLM) Negotiate() []byte {
	var buf bytes.Buffer
	buf.WriteString(ntlmSignature)
	writeUint32(&buf, ntlmNegotiate)
	writeUint32(&buf, clientNegotiateFlags)
	// DomainNameFields and WorkstationFields: empty, not advertised.
	buf.Write(make([]byte, 16))
	return buf.Bytes()
}

// AcceptChallenge parses the server's CHALLENGE_MESSAGE, recording the
// server challenge and target info needed to compute the NTLMv2 response.
func (n *NTLM) AcceptChallenge(msg []byte) error {
	if len(msg) < 48 || string(msg[0:8]) != ntlmSignature {
		return fmt.Errorf("auth: not an NTLM message")
	}
	if binary.LittleEndian.Uint32(msg[8:12]) != ntlmChallenge {
		return fmt.Errorf("auth: expected NTLM CHALLENGE_MESSAGE")
	}
	n.serverChallenge = append([]byte{}, msg[24:32]...)
	targetInfoLen := binary.LittleEndian.Uint16(msg[40:42])
	targetInfoOffset := binary.LittleEndian.Uint32(msg[44:48])
	if int(targetInfoOffset)+int(targetInfoLen) > len(msg) {
		return fmt.Errorf("auth: NTLM target info out of range")
	}
	n.targetInfo = append([]byte{}, msg[targetInfoOffset:targetInfoOffset+uint32(targetInfoLen)]...)
	return nil
}

// Authenticate builds the final AUTHENTICATE_MESSAGE and derives the NTLM
// session key, per MS-NLMP 3.3.2 (NTLMv2).
func (n *NTLM) Authenticate() ([]byte, []byte, error) {
	if n.serverChallenge == nil {
		return nil, nil, fmt.Errorf("auth: Authenticate called before AcceptChallenge")
	}
	ntlmHash := ntowfv2(n.Password, n.Username, n.Domain)

	clientChallenge := make([]byte, 8)
	rand.Read(clientChallenge)

	timestamp := fileTimeNow()
	temp := buildNTLMv2Blob(timestamp, clientChallenge, n.targetInfo)

	ntProofStr := hmacMD5(ntlmHash, append(append([]byte{}, n.serverChallenge...), temp...))
	ntResponse := append(append([]byte{}, ntProofStr...), temp...)

	lmResponse := make([]byte, 24) // LMv2 response omitted in favor of NTLMv2-only, per MS-NLMP 3.3.1 client option.

	sessionBaseKey := hmacMD5(ntlmHash, ntProofStr)
	n.sessionKey = sessionBaseKey

	var buf bytes.Buffer
	buf.WriteString(ntlmSignature)
	writeUint32(&buf, ntlmAuthenticate)

	// Layout: fixed header (no Version or MIC field), then variable payload appended and
	// the length/offset fields patched, mirroring the wire codec's own
	// offset-patching idiom for variable-length structures.
	type field struct{ data []byte }
	domain := utf16le(n.Domain)
	user := utf16le(n.Username)
	fields := []field{{lmResponse}, {ntResponse}, {domain}, {user}, {nil}} // workstation empty

	fixed := make([]byte, 8+4+8*5+4) // signature, type, 5 length/offset fields, flags
	payloadOffset := uint32(len(fixed))
	var payload bytes.Buffer
	offsets := make([]uint32, len(fields))
	lengths := make([]uint16, len(fields))
	for i, f := range fields {
		offsets[i] = payloadOffset + uint32(payload.Len())
		lengths[i] = uint16(len(f.data))
		payload.Write(f.data)
	}

	w := fixed
	copy(w[0:8], ntlmSignature)
	binary.LittleEndian.PutUint32(w[8:12], ntlmAuthenticate)
	putField(w[12:20], lengths[0], offsets[0])
	putField(w[20:28], lengths[1], offsets[1])
	putField(w[28:36], lengths[2], offsets[2])
	putField(w[36:44], lengths[3], offsets[3])
	putField(w[44:52], lengths[4], offsets[4])
	binary.LittleEndian.PutUint32(w[52:56], clientNegotiateFlags)

	buf.Reset()
	buf.Write(w)
	buf.Write(payload.Bytes())
	return buf.Bytes(), sessionBaseKey, nil
}

func putField(dst []byte, length uint16, offset uint32) {
	binary.LittleEndian.PutUint16(dst[0:2], length)
	binary.LittleEndian.PutUint16(dst[2:4], length)
	binary.LittleEndian.PutUint32(dst[4:8], offset)
}

// ntowfv2 computes the NTLMv2 one-way function: HMAC-MD5 of the NT hash
// (MD4 of the UTF-16LE password) keyed over Upper(username) || domain,
// per MS-NLMP 3.3.2.
func ntowfv2(password, username, domain string) []byte {
	h := md4.New()
	h.Write(utf16le(password))
	ntHash := h.Sum(nil)
	identity := utf16le(strings.ToUpper(username) + domain)
	return hmacMD5(ntHash, identity)
}

// buildNTLMv2Blob assembles the "temp" structure appended to the NT proof
// (MS-NLMP 2.2.2.7): a fixed header, the 64-bit FILETIME, the client
// challenge, reserved fields, the server's target info, and a trailing
// zero DWORD.
func buildNTLMv2Blob(timestamp uint64, clientChallenge, targetInfo []byte) []byte {
	var buf bytes.Buffer
	writeUint32(&buf, 0x00000101) // RespType, HiRespType
	binary.Write(&buf, binary.LittleEndian, timestamp)
	buf.Write(clientChallenge)
	writeUint32(&buf, 0) // Reserved
	buf.Write(targetInfo)
	writeUint32(&buf, 0) // Reserved
	return buf.Bytes()
}

func hmacMD5(key, data []byte) []byte {
	mac := hmac.New(md5.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func utf16le(s string) []byte {
	codes := utf16.Encode([]rune(s))
	buf := make([]byte, len(codes)*2)
	for i, c := range codes {
		binary.LittleEndian.PutUint16(buf[i*2:], c)
	}
	return buf
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// fileTimeNow returns the current time as an NT FILETIME: 100ns intervals
// since 1601-01-01, the unit NTLMv2 timestamps use.
func fileTimeNow() uint64 {
	const epochDelta = 116444736000000000
	return uint64(time.Now().UnixNano()/100) + epochDelta
}

// SessionKey returns the NTLM session key derived during Authenticate.
func (n *NTLM) SessionKey() []byte { return n.sessionKey }
