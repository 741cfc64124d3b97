package wire

// Additional MS-FSCC information-class payloads beyond the representative
// set in queryinfo.go: attribute/rename-related structures the resource
// layer needs for directory listing summaries and filesystem capability
// probes.

// FileAllInformation (MS-FSCC 2.4.2) bundles basic, standard, internal,
// EA-size and name information classes into one QUERY_INFO round trip.
type FileAllInformation struct {
	Basic          FileBasicInformation
	Standard       FileStandardInformation
	IndexNumber    uint64
	EaSize         uint32
	AccessFlags    uint32
	CurrentByteOffset int64
	Mode           uint32
	AlignmentRequirement uint32
	FileName       string
}

func DecodeFileAllInformation(data []byte) (*FileAllInformation, error) {
	r := NewReader(data)
	f := &FileAllInformation{}
	f.Basic.CreationTime = r.FileTime()
	f.Basic.LastAccessTime = r.FileTime()
	f.Basic.LastWriteTime = r.FileTime()
	f.Basic.ChangeTime = r.FileTime()
	f.Basic.FileAttributes = r.Uint32()
	r.Skip(4) // Reserved
	f.Standard.AllocationSize = int64(r.Uint64())
	f.Standard.EndOfFile = int64(r.Uint64())
	f.Standard.NumberOfLinks = r.Uint32()
	f.Standard.DeletePending = r.Byte() != 0
	f.Standard.Directory = r.Byte() != 0
	r.Skip(2) // Reserved
	f.IndexNumber = r.Uint64()
	f.EaSize = r.Uint32()
	f.AccessFlags = r.Uint32()
	f.CurrentByteOffset = int64(r.Uint64())
	f.Mode = r.Uint32()
	f.AlignmentRequirement = r.Uint32()
	nameLen := r.Uint32()
	f.FileName = r.UTF16String(int(nameLen))
	return f, r.Err()
}

// FileFsAttributeInformation (MS-FSCC 2.5.1) reports filesystem capability
// flags (case sensitivity, compression, sparse files, named streams, ...)
// used to decide which optional features to attempt against a share.
type FileFsAttributeInformation struct {
	FileSystemAttributes uint32
	MaxComponentNameLen  uint32
	FileSystemName       string
}

const (
	FsAttrCaseSensitiveSearch uint32 = 0x00000001
	FsAttrCasePreservedNames  uint32 = 0x00000002
	FsAttrUnicodeOnDisk       uint32 = 0x00000004
	FsAttrPersistentACLs      uint32 = 0x00000008
	FsAttrSupportsSparseFiles uint32 = 0x00000040
	FsAttrSupportsReparsePoints uint32 = 0x00000080
	FsAttrNamedStreams        uint32 = 0x00040000
)

func DecodeFileFsAttributeInformation(data []byte) (*FileFsAttributeInformation, error) {
	r := NewReader(data)
	f := &FileFsAttributeInformation{
		FileSystemAttributes: r.Uint32(),
		MaxComponentNameLen:  r.Uint32(),
	}
	nameLen := r.Uint32()
	f.FileSystemName = r.UTF16String(int(nameLen))
	return f, r.Err()
}

// FileFsVolumeInformation (MS-FSCC 2.5.9).
type FileFsVolumeInformation struct {
	VolumeCreationTime FileTime
	VolumeSerialNumber uint32
	SupportsObjects    bool
	VolumeLabel        string
}

func DecodeFileFsVolumeInformation(data []byte) (*FileFsVolumeInformation, error) {
	r := NewReader(data)
	f := &FileFsVolumeInformation{
		VolumeCreationTime: r.FileTime(),
		VolumeSerialNumber: r.Uint32(),
	}
	labelLen := r.Uint32()
	f.SupportsObjects = r.Byte() != 0
	r.Skip(1) // Reserved
	f.VolumeLabel = r.UTF16String(int(labelLen))
	return f, r.Err()
}
