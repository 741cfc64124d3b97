package wire

import "fmt"

// QueryDirectoryRequest is the QUERY_DIRECTORY request body (MS-SMB2 2.2.33).
type QueryDirectoryRequest struct {
	FileInformationClass uint8
	Flags                uint8
	FileIndex            uint32
	FileID               FileID
	FileName             string // search pattern, e.g. "*"
	OutputBufferLength   uint32
}

const (
	QueryDirFlagRestartScans  uint8 = 0x01
	QueryDirFlagReturnSingle  uint8 = 0x02
	QueryDirFlagIndexSpecified uint8 = 0x04
	QueryDirFlagReopen        uint8 = 0x10
)

func (q *QueryDirectoryRequest) Encode() []byte {
	nameBytes := EncodeUTF16LE(q.FileName)
	w := NewWriter(32 + len(nameBytes))
	w.Uint16(33) // StructureSize
	w.Byte(q.FileInformationClass)
	w.Byte(q.Flags)
	w.Uint32(q.FileIndex)
	w.FileID(q.FileID)
	offPos := w.Mark()
	w.Uint16(0)
	w.Uint16(uint16(len(nameBytes)))
	w.Uint32(q.OutputBufferLength)
	start := w.Len()
	w.PatchUint16At(offPos, uint16(HeaderSize+start))
	w.RawBytes(nameBytes)
	return w.Bytes()
}

// QueryDirectoryResponse holds the raw chained directory-entry buffer; use
// DecodeDirectoryEntries with the matching FileInformationClass to parse it.
type QueryDirectoryResponse struct {
	Buffer []byte
}

func DecodeQueryDirectoryResponse(body []byte, bodyOffsetInMessage int) (*QueryDirectoryResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 9 {
		return nil, fmt.Errorf("wire: QUERY_DIRECTORY response StructureSize %d != 9", structSize)
	}
	bufOffset := r.Uint16()
	bufLen := r.Uint32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	start := int(bufOffset) - bodyOffsetInMessage
	if start < 0 || start+int(bufLen) > len(body) {
		return nil, fmt.Errorf("wire: QUERY_DIRECTORY response buffer out of range")
	}
	return &QueryDirectoryResponse{Buffer: body[start : start+int(bufLen)]}, nil
}

// DirectoryEntry is a decoded FileIdBothDirectoryInformation-class record
// (MS-FSCC 2.4.17), the representative directory info class this client
// decodes; other classes share the same chaining discipline (8-byte aligned,
// next_entry_offset terminated list) but a different fixed-field layout.
type DirectoryEntry struct {
	FileIndex      uint32
	CreationTime   FileTime
	LastAccessTime FileTime
	LastWriteTime  FileTime
	ChangeTime     FileTime
	EndOfFile      int64
	AllocationSize int64
	FileAttributes uint32
	EaSize         uint32
	ShortName      string
	FileID         int64
	FileName       string
}

// DecodeDirectoryEntries parses a chained FileIdBothDirectoryInformation
// list. Reading stops when next_entry_offset == 0 or the stream is
// exhausted; an empty buffer decodes to an empty, non-nil slice. Alignment
// of each element to the 8-byte directory-info-class boundary is verified;
// misalignment is a fatal decode error.
func DecodeDirectoryEntries(buf []byte) ([]DirectoryEntry, error) {
	entries := make([]DirectoryEntry, 0)
	pos := 0
	for pos < len(buf) {
		if pos%8 != 0 {
			return nil, errMisaligned("directory entry", pos)
		}
		r := NewReader(buf[pos:])
		next := r.Uint32()
		e := DirectoryEntry{}
		e.FileIndex = r.Uint32()
		e.CreationTime = r.FileTime()
		e.LastAccessTime = r.FileTime()
		e.LastWriteTime = r.FileTime()
		e.ChangeTime = r.FileTime()
		e.EndOfFile = int64(r.Uint64())
		e.AllocationSize = int64(r.Uint64())
		e.FileAttributes = r.Uint32()
		fileNameLen := r.Uint32()
		e.EaSize = r.Uint32()
		shortNameLen := r.Byte()
		r.Skip(1) // Reserved1
		shortName := r.Bytes(24)
		e.ShortName = DecodeUTF16LE(shortName[:shortNameLen])
		r.Skip(2) // Reserved2
		e.FileID = int64(r.Uint64())
		e.FileName = r.UTF16String(int(fileNameLen))
		if err := r.Err(); err != nil {
			return nil, err
		}
		entries = append(entries, e)
		if next == 0 {
			break
		}
		pos += int(next)
	}
	return entries, nil
}

// ChangeNotifyRequest is the CHANGE_NOTIFY request body (MS-SMB2 2.2.35).
type ChangeNotifyRequest struct {
	Flags              uint16
	OutputBufferLength uint32
	FileID             FileID
	CompletionFilter   uint32
}

const ChangeNotifyFlagWatchTree uint16 = 0x0001

func (c *ChangeNotifyRequest) Encode() []byte {
	w := NewWriter(32)
	w.Uint16(32)
	w.Uint16(c.Flags)
	w.Uint32(c.OutputBufferLength)
	w.FileID(c.FileID)
	w.Uint32(c.CompletionFilter)
	w.Uint32(0) // Reserved
	return w.Bytes()
}

// FileNotifyInformation is one chained entry of a CHANGE_NOTIFY response
// (MS-FSCC 2.4.42).
type FileNotifyInformation struct {
	Action   uint32
	FileName string
}

func DecodeChangeNotifyResponse(body []byte, bodyOffsetInMessage int) ([]FileNotifyInformation, error) {
	r := NewReader(body)
	if r.Uint16() != 9 {
		return nil, fmt.Errorf("wire: CHANGE_NOTIFY response bad StructureSize")
	}
	bufOffset := r.Uint16()
	bufLen := r.Uint32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	start := int(bufOffset) - bodyOffsetInMessage
	if start < 0 || start+int(bufLen) > len(body) {
		return nil, fmt.Errorf("wire: CHANGE_NOTIFY response buffer out of range")
	}
	buf := body[start : start+int(bufLen)]
	var out []FileNotifyInformation
	pos := 0
	for pos < len(buf) {
		er := NewReader(buf[pos:])
		next := er.Uint32()
		action := er.Uint32()
		nameLen := er.Uint32()
		name := er.UTF16String(int(nameLen))
		if err := er.Err(); err != nil {
			return nil, err
		}
		out = append(out, FileNotifyInformation{Action: action, FileName: name})
		if next == 0 {
			break
		}
		pos += int(next)
	}
	return out, nil
}
