package wire

import "fmt"

// Protocol magic bytes that select how a framed payload is interpreted on
// receipt (MS-SMB2 2.2.1, 2.2.41, 2.2.42).
var (
	ProtocolIDSMB2       = [4]byte{0xFE, 'S', 'M', 'B'}
	ProtocolIDEncrypted  = [4]byte{0xFD, 'S', 'M', 'B'}
	ProtocolIDCompressed = [4]byte{0xFC, 'S', 'M', 'B'}
)

// HeaderSize is the fixed size of the plain SMB2 header.
const HeaderSize = 64

// Dialect identifies a negotiated SMB2/SMB3 protocol revision.
type Dialect uint16

const (
	Dialect202   Dialect = 0x0202
	Dialect21    Dialect = 0x0210
	Dialect30    Dialect = 0x0300
	Dialect302   Dialect = 0x0302
	Dialect311   Dialect = 0x0311
	DialectWild  Dialect = 0x02FF // "SMB 2.02 wildcard" revision
)

func (d Dialect) String() string {
	switch d {
	case Dialect202:
		return "2.0.2"
	case Dialect21:
		return "2.1"
	case Dialect30:
		return "3.0"
	case Dialect302:
		return "3.0.2"
	case Dialect311:
		return "3.1.1"
	case DialectWild:
		return "2.02-wildcard"
	default:
		return fmt.Sprintf("unknown(0x%04x)", uint16(d))
	}
}

// IsSMB3 is true for any 3.x dialect that uses AES-CMAC/GMAC signing.
func (d Dialect) IsSMB3() bool { return d >= Dialect30 }

// ClientDialects is the default ordered preference list a client negotiates
// with, highest first.
var ClientDialects = []Dialect{Dialect311, Dialect302, Dialect30, Dialect21, Dialect202}

// Command is an SMB2 command opcode (MS-SMB2 2.2.1).
type Command uint16

const (
	CmdNegotiate      Command = 0x0000
	CmdSessionSetup   Command = 0x0001
	CmdLogoff         Command = 0x0002
	CmdTreeConnect    Command = 0x0003
	CmdTreeDisconnect Command = 0x0004
	CmdCreate         Command = 0x0005
	CmdClose          Command = 0x0006
	CmdFlush          Command = 0x0007
	CmdRead           Command = 0x0008
	CmdWrite          Command = 0x0009
	CmdLock           Command = 0x000A
	CmdIoctl          Command = 0x000B
	CmdCancel         Command = 0x000C
	CmdEcho           Command = 0x000D
	CmdQueryDirectory Command = 0x000E
	CmdChangeNotify   Command = 0x000F
	CmdQueryInfo      Command = 0x0010
	CmdSetInfo        Command = 0x0011
	CmdOplockBreak    Command = 0x0012
)

var commandNames = map[Command]string{
	CmdNegotiate: "Negotiate", CmdSessionSetup: "SessionSetup", CmdLogoff: "Logoff",
	CmdTreeConnect: "TreeConnect", CmdTreeDisconnect: "TreeDisconnect", CmdCreate: "Create",
	CmdClose: "Close", CmdFlush: "Flush", CmdRead: "Read", CmdWrite: "Write",
	CmdLock: "Lock", CmdIoctl: "Ioctl", CmdCancel: "Cancel", CmdEcho: "Echo",
	CmdQueryDirectory: "QueryDirectory", CmdChangeNotify: "ChangeNotify",
	CmdQueryInfo: "QueryInfo", CmdSetInfo: "SetInfo", CmdOplockBreak: "OplockBreak",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Command(0x%04x)", uint16(c))
}

// Header flags (MS-SMB2 2.2.1).
const (
	FlagServerToRedir    uint32 = 0x00000001
	FlagAsyncCommand     uint32 = 0x00000002
	FlagRelatedOps       uint32 = 0x00000004
	FlagSigned           uint32 = 0x00000008
	FlagPriorityMask     uint32 = 0x00000070
	FlagDFSOperations    uint32 = 0x10000000
	FlagReplayOperation  uint32 = 0x20000000
)

// Header is the fixed 64-byte SMB2 header shared by every plain message.
//
// In the sync form the 8 bytes after MessageID carry Reserved(4) and
// TreeID(4); in the async form (FlagAsyncCommand set, the MS-SMB2
// "Header - ASYNC" variant) the same 8 bytes carry AsyncID and TreeID is
// absent. Encode and DecodeHeader pick the form from Flags.
type Header struct {
	CreditCharge  uint16
	Status        Status
	Command       Command
	CreditRequest uint16
	Flags         uint32
	NextCommand   uint32
	MessageID     uint64
	// Either (TreeID, SessionID) for the sync form, or AsyncID for the
	// async form (FlagAsyncCommand set). AsyncID occupies the same 8 bytes
	// as Reserved(4)+TreeID(4) would in the sync header.
	TreeID    uint32
	SessionID uint64
	AsyncID   uint64
	Signature [16]byte
}

// IsResponse reports whether the header belongs to a server response.
func (h *Header) IsResponse() bool { return h.Flags&FlagServerToRedir != 0 }

// IsAsync reports whether the header uses the async header form.
func (h *Header) IsAsync() bool { return h.Flags&FlagAsyncCommand != 0 }

// IsSigned reports whether the message carries a signature.
func (h *Header) IsSigned() bool { return h.Flags&FlagSigned != 0 }

// IsRelatedOp reports whether this sub-message of a compound chain is
// related to the one preceding it (reuses its tree/session/file ids).
func (h *Header) IsRelatedOp() bool { return h.Flags&FlagRelatedOps != 0 }

// Encode writes the header with its Signature field as given (callers that
// need to sign zero it first, sign, then patch it back in).
func (h *Header) Encode(w *Writer) {
	w.RawBytes(ProtocolIDSMB2[:])
	w.Uint16(HeaderSize)
	w.Uint16(h.CreditCharge)
	w.Uint32(uint32(h.Status))
	w.Uint16(uint16(h.Command))
	w.Uint16(h.CreditRequest)
	w.Uint32(h.Flags)
	w.Uint32(h.NextCommand)
	w.Uint64(h.MessageID)
	if h.IsAsync() {
		w.Uint64(h.AsyncID)
	} else {
		w.Uint32(0) // Reserved
		w.Uint32(h.TreeID)
	}
	w.Uint64(h.SessionID)
	w.RawBytes(h.Signature[:])
}

// DecodeHeader parses a fixed 64-byte SMB2 header from the front of data.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("wire: short header: %d bytes", len(data))
	}
	if data[0] != ProtocolIDSMB2[0] || data[1] != 'S' || data[2] != 'M' || data[3] != 'B' {
		return nil, fmt.Errorf("wire: bad SMB2 protocol id %x", data[0:4])
	}
	r := NewReader(data)
	r.Skip(4)
	structSize := r.Uint16()
	if structSize != HeaderSize {
		return nil, fmt.Errorf("wire: bad header StructureSize %d", structSize)
	}
	h := &Header{}
	h.CreditCharge = r.Uint16()
	h.Status = Status(r.Uint32())
	h.Command = Command(r.Uint16())
	h.CreditRequest = r.Uint16()
	h.Flags = r.Uint32()
	h.NextCommand = r.Uint32()
	h.MessageID = r.Uint64()
	if h.IsAsync() {
		h.AsyncID = r.Uint64()
	} else {
		r.Skip(4) // Reserved
		h.TreeID = r.Uint32()
	}
	h.SessionID = r.Uint64()
	copy(h.Signature[:], r.Bytes(16))
	if err := r.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

// FileID is the 128-bit persistent/volatile handle identifier (MS-SMB2 2.2.14.1).
type FileID struct {
	Persistent uint64
	Volatile   uint64
}

// IsZero reports whether the FileID is the unset sentinel value.
func (f FileID) IsZero() bool { return f.Persistent == 0 && f.Volatile == 0 }

// FileIDAllOutstanding addresses every open handle on a tree, used by some
// SetInfo/Ioctl requests.
var FileIDAllOutstanding = FileID{Persistent: 0xFFFFFFFFFFFFFFFF, Volatile: 0xFFFFFFFFFFFFFFFF}

func (r *Reader) FileID() FileID {
	return FileID{Persistent: r.Uint64(), Volatile: r.Uint64()}
}

func (w *Writer) FileID(f FileID) {
	w.Uint64(f.Persistent)
	w.Uint64(f.Volatile)
}
