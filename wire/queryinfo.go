package wire

import "fmt"

// QueryInfoRequest is the QUERY_INFO request body (MS-SMB2 2.2.37).
type QueryInfoRequest struct {
	InfoType             uint8
	FileInfoClass        uint8
	OutputBufferLength   uint32
	AdditionalInformation uint32 // security-info bits when InfoType == InfoSecurity
	Flags                uint32
	FileID               FileID
	InputBuffer          []byte
}

func (q *QueryInfoRequest) Encode() []byte {
	w := NewWriter(40 + len(q.InputBuffer))
	w.Uint16(41) // StructureSize
	w.Byte(q.InfoType)
	w.Byte(q.FileInfoClass)
	w.Uint32(q.OutputBufferLength)
	inOffPos := w.Mark()
	w.Uint16(0)
	w.Uint16(0) // Reserved
	inLenPos := w.Mark()
	w.Uint32(0)
	w.Uint32(q.AdditionalInformation)
	w.Uint32(q.Flags)
	w.FileID(q.FileID)
	if len(q.InputBuffer) > 0 {
		start := w.Len()
		w.PatchUint16At(inOffPos, uint16(HeaderSize+start))
		w.PatchUint32At(inLenPos, uint32(len(q.InputBuffer)))
		w.RawBytes(q.InputBuffer)
	}
	return w.Bytes()
}

// QueryInfoResponse holds the raw output buffer; decode with the FSCC class
// matching the request's FileInfoClass.
type QueryInfoResponse struct {
	Buffer []byte
}

func DecodeQueryInfoResponse(body []byte, bodyOffsetInMessage int) (*QueryInfoResponse, error) {
	r := NewReader(body)
	structSize := r.Uint16()
	if structSize != 9 {
		return nil, fmt.Errorf("wire: QUERY_INFO response StructureSize %d != 9", structSize)
	}
	bufOffset := r.Uint16()
	bufLen := r.Uint32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	start := int(bufOffset) - bodyOffsetInMessage
	if start < 0 || start+int(bufLen) > len(body) {
		return nil, fmt.Errorf("wire: QUERY_INFO response buffer out of range")
	}
	return &QueryInfoResponse{Buffer: body[start : start+int(bufLen)]}, nil
}

// SetInfoRequest is the SET_INFO request body (MS-SMB2 2.2.39).
type SetInfoRequest struct {
	InfoType              uint8
	FileInfoClass         uint8
	AdditionalInformation uint32
	FileID                FileID
	Buffer                []byte
}

func (s *SetInfoRequest) Encode() []byte {
	w := NewWriter(32 + len(s.Buffer))
	w.Uint16(33) // StructureSize
	w.Byte(s.InfoType)
	w.Byte(s.FileInfoClass)
	lenPos := w.Mark()
	w.Uint32(0)
	offPos := w.Mark()
	w.Uint16(0)
	w.Uint16(0) // Reserved
	w.Uint32(s.AdditionalInformation)
	w.FileID(s.FileID)
	start := w.Len()
	w.PatchUint16At(offPos, uint16(HeaderSize+start))
	w.PatchUint32At(lenPos, uint32(len(s.Buffer)))
	w.RawBytes(s.Buffer)
	return w.Bytes()
}

type SetInfoResponse struct{}

func DecodeSetInfoResponse(body []byte) (*SetInfoResponse, error) {
	r := NewReader(body)
	if r.Uint16() != 2 {
		return nil, fmt.Errorf("wire: SET_INFO response bad StructureSize")
	}
	return &SetInfoResponse{}, r.Err()
}

// FileBasicInformation (MS-FSCC 2.4.7).
type FileBasicInformation struct {
	CreationTime   FileTime
	LastAccessTime FileTime
	LastWriteTime  FileTime
	ChangeTime     FileTime
	FileAttributes uint32
}

func (f *FileBasicInformation) Encode() []byte {
	w := NewWriter(40)
	w.FileTime(f.CreationTime)
	w.FileTime(f.LastAccessTime)
	w.FileTime(f.LastWriteTime)
	w.FileTime(f.ChangeTime)
	w.Uint32(f.FileAttributes)
	w.Uint32(0) // Reserved
	return w.Bytes()
}

func DecodeFileBasicInformation(data []byte) (*FileBasicInformation, error) {
	r := NewReader(data)
	f := &FileBasicInformation{
		CreationTime:   r.FileTime(),
		LastAccessTime: r.FileTime(),
		LastWriteTime:  r.FileTime(),
		ChangeTime:     r.FileTime(),
		FileAttributes: r.Uint32(),
	}
	return f, r.Err()
}

// FileStandardInformation (MS-FSCC 2.4.38).
type FileStandardInformation struct {
	AllocationSize int64
	EndOfFile      int64
	NumberOfLinks  uint32
	DeletePending  bool
	Directory      bool
}

func DecodeFileStandardInformation(data []byte) (*FileStandardInformation, error) {
	r := NewReader(data)
	f := &FileStandardInformation{
		AllocationSize: int64(r.Uint64()),
		EndOfFile:      int64(r.Uint64()),
		NumberOfLinks:  r.Uint32(),
		DeletePending:  r.Byte() != 0,
		Directory:      r.Byte() != 0,
	}
	return f, r.Err()
}

// FileRenameInformation (MS-FSCC 2.4.34) - used for SET_INFO rename/move.
type FileRenameInformation struct {
	ReplaceIfExists bool
	RootDirectory   uint64
	FileName        string
}

func (f *FileRenameInformation) Encode() []byte {
	name := EncodeUTF16LE(f.FileName)
	w := NewWriter(20 + len(name))
	if f.ReplaceIfExists {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
	w.Zeros(7) // Reserved
	w.Uint64(f.RootDirectory)
	w.Uint32(uint32(len(name)))
	w.RawBytes(name)
	return w.Bytes()
}

// FileDispositionInformation (MS-FSCC 2.4.11) - delete-on-close marker.
type FileDispositionInformation struct{ DeletePending bool }

func (f *FileDispositionInformation) Encode() []byte {
	if f.DeletePending {
		return []byte{1}
	}
	return []byte{0}
}

// FileEndOfFileInformation (MS-FSCC 2.4.13) - truncate/extend.
type FileEndOfFileInformation struct{ EndOfFile int64 }

func (f *FileEndOfFileInformation) Encode() []byte {
	w := NewWriter(8)
	w.Uint64(uint64(f.EndOfFile))
	return w.Bytes()
}

// FileFsFullSizeInformation (MS-FSCC 2.5.4), a representative
// QueryFileSystemInfo class.
type FileFsFullSizeInformation struct {
	TotalAllocationUnits           int64
	CallerAvailableAllocationUnits int64
	ActualAvailableAllocationUnits int64
	SectorsPerAllocationUnit       uint32
	BytesPerSector                 uint32
}

func DecodeFileFsFullSizeInformation(data []byte) (*FileFsFullSizeInformation, error) {
	r := NewReader(data)
	f := &FileFsFullSizeInformation{
		TotalAllocationUnits:           int64(r.Uint64()),
		CallerAvailableAllocationUnits: int64(r.Uint64()),
		ActualAvailableAllocationUnits: int64(r.Uint64()),
		SectorsPerAllocationUnit:       r.Uint32(),
		BytesPerSector:                 r.Uint32(),
	}
	return f, r.Err()
}
