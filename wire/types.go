package wire

// Security mode (MS-SMB2 2.2.3 / 2.2.4).
const (
	NegotiateSigningEnabled  uint16 = 0x0001
	NegotiateSigningRequired uint16 = 0x0002
)

// Global capabilities (MS-SMB2 2.2.3 / 2.2.4).
const (
	CapDFS                uint32 = 0x00000001
	CapLeasing            uint32 = 0x00000002
	CapLargeMTU           uint32 = 0x00000004
	CapMultiChannel       uint32 = 0x00000008
	CapPersistentHandles  uint32 = 0x00000010
	CapDirectoryLeasing   uint32 = 0x00000020
	CapEncryption         uint32 = 0x00000040
	CapNotifications      uint32 = 0x00000080
)

// Share type (MS-SMB2 2.2.10).
const (
	ShareTypeDisk  uint8 = 0x01
	ShareTypePipe  uint8 = 0x02
	ShareTypePrint uint8 = 0x03
)

// Share flags (MS-SMB2 2.2.10).
const (
	ShareFlagDFS                 uint32 = 0x00000001
	ShareFlagDFSRoot             uint32 = 0x00000002
	ShareFlagForceSharedDelete   uint32 = 0x00000200
	ShareFlagEncryptData         uint32 = 0x00008000
)

// Share capabilities (MS-SMB2 2.2.10).
const (
	ShareCapDFS                    uint32 = 0x00000008
	ShareCapContinuousAvailability uint32 = 0x00000010
	ShareCapScaleout               uint32 = 0x00000020
	ShareCapCluster                uint32 = 0x00000040
	ShareCapAsymmetric             uint32 = 0x00000080
)

// Access mask bits (MS-DTYP 2.4.3, plus SMB2-specific generic rights).
const (
	FileReadData        uint32 = 0x00000001
	FileWriteData        uint32 = 0x00000002
	FileAppendData       uint32 = 0x00000004
	FileReadEA           uint32 = 0x00000008
	FileWriteEA          uint32 = 0x00000010
	FileExecute          uint32 = 0x00000020
	FileDeleteChild      uint32 = 0x00000040
	FileReadAttributes   uint32 = 0x00000080
	FileWriteAttributes  uint32 = 0x00000100
	Delete               uint32 = 0x00010000
	ReadControl          uint32 = 0x00020000
	WriteDAC             uint32 = 0x00040000
	WriteOwner           uint32 = 0x00080000
	Synchronize          uint32 = 0x00100000
	AccessSystemSecurity uint32 = 0x01000000
	MaximumAllowed       uint32 = 0x02000000
	GenericAll           uint32 = 0x10000000
	GenericExecute       uint32 = 0x20000000
	GenericWrite         uint32 = 0x40000000
	GenericRead          uint32 = 0x80000000
)

// Share access (MS-SMB2 2.2.13).
const (
	FileShareRead   uint32 = 0x00000001
	FileShareWrite  uint32 = 0x00000002
	FileShareDelete uint32 = 0x00000004
)

// Create disposition (MS-SMB2 2.2.13).
const (
	FileSupersede   uint32 = 0x00000000
	FileOpen        uint32 = 0x00000001
	FileCreate      uint32 = 0x00000002
	FileOpenIf      uint32 = 0x00000003
	FileOverwrite   uint32 = 0x00000004
	FileOverwriteIf uint32 = 0x00000005
)

// Create options (MS-SMB2 2.2.13).
const (
	FileDirectoryFile         uint32 = 0x00000001
	FileWriteThrough          uint32 = 0x00000002
	FileSequentialOnly        uint32 = 0x00000004
	FileSynchronousIOAlert    uint32 = 0x00000010
	FileSynchronousIONonalert uint32 = 0x00000020
	FileNonDirectoryFile      uint32 = 0x00000040
	FileCompleteIfOplocked    uint32 = 0x00000100
	FileNoEAKnowledge         uint32 = 0x00000200
	FileRandomAccess          uint32 = 0x00000800
	FileDeleteOnClose         uint32 = 0x00001000
	FileOpenByFileID          uint32 = 0x00002000
	FileOpenForBackupIntent   uint32 = 0x00004000
	FileOpenReparsePoint      uint32 = 0x00200000
	FileOpenNoRecall          uint32 = 0x00400000
)

// Create action (MS-SMB2 2.2.14).
const (
	FileSupersededAction uint32 = 0x00000000
	FileOpenedAction     uint32 = 0x00000001
	FileCreatedAction    uint32 = 0x00000002
	FileOverwrittenAction uint32 = 0x00000003
)

// File attribute flags (MS-FSCC 2.6).
const (
	AttrReadonly            uint32 = 0x00000001
	AttrHidden              uint32 = 0x00000002
	AttrSystem              uint32 = 0x00000004
	AttrDirectory           uint32 = 0x00000010
	AttrArchive             uint32 = 0x00000020
	AttrNormal              uint32 = 0x00000080
	AttrTemporary           uint32 = 0x00000100
	AttrSparseFile          uint32 = 0x00000200
	AttrReparsePoint        uint32 = 0x00000400
	AttrCompressed          uint32 = 0x00000800
	AttrOffline             uint32 = 0x00001000
	AttrNotContentIndexed   uint32 = 0x00002000
	AttrEncrypted           uint32 = 0x00004000
)

// Oplock levels (MS-SMB2 2.2.13).
const (
	OplockLevelNone      uint8 = 0x00
	OplockLevelII        uint8 = 0x01
	OplockLevelExclusive uint8 = 0x08
	OplockLevelBatch     uint8 = 0x09
	OplockLevelLease     uint8 = 0xFF
)

// Impersonation level (MS-SMB2 2.2.13).
const (
	ImpersonationAnonymous      uint32 = 0
	ImpersonationIdentification uint32 = 1
	ImpersonationImpersonation  uint32 = 2
	ImpersonationDelegate       uint32 = 3
)

// Info type (MS-SMB2 2.2.37 / 2.2.39) for QueryInfo/SetInfo.
const (
	InfoFile       uint8 = 0x01
	InfoFileSystem uint8 = 0x02
	InfoSecurity   uint8 = 0x03
	InfoQuota      uint8 = 0x04
)

// File information classes ([MS-FSCC] 2.4), the subset this client's
// QueryInfo/SetInfo/QueryDirectory surface uses. Suffixed Class to keep them
// distinct from the identically-named payload structs in queryinfo.go and
// fscc.go.
const (
	FileDirectoryInformationClass       uint8 = 1
	FileFullDirectoryInformationClass   uint8 = 2
	FileBothDirectoryInformationClass   uint8 = 3
	FileBasicInformationClass           uint8 = 4
	FileStandardInformationClass        uint8 = 5
	FileInternalInformationClass        uint8 = 6
	FileEAInformationClass              uint8 = 7
	FileAccessInformationClass          uint8 = 8
	FileNameInformationClass            uint8 = 9
	FileRenameInformationClass          uint8 = 10
	FileLinkInformationClass            uint8 = 11
	FileNamesInformationClass           uint8 = 12
	FileDispositionInformationClass     uint8 = 13
	FilePositionInformationClass        uint8 = 14
	FileFullEAInformationClass          uint8 = 15
	FileModeInformationClass            uint8 = 16
	FileAlignmentInformationClass       uint8 = 17
	FileAllInformationClass             uint8 = 18
	FileAllocationInformationClass      uint8 = 19
	FileEndOfFileInformationClass       uint8 = 20
	FileAlternateNameInformationClass   uint8 = 21
	FileStreamInformationClass          uint8 = 22
	FileCompressionInformationClass     uint8 = 28
	FileNetworkOpenInformationClass     uint8 = 34
	FileAttributeTagInformationClass    uint8 = 35
	FileIDBothDirectoryInformationClass uint8 = 37
	FileIDFullDirectoryInformationClass uint8 = 38
	FileValidDataLengthInformationClass uint8 = 39
	FileRenameInformationBypassClass    uint8 = 65
)

// Filesystem information classes ([MS-FSCC] 2.5).
const (
	FileFsVolumeInformationClass     uint8 = 1
	FileFsLabelInformationClass      uint8 = 2
	FileFsSizeInformationClass       uint8 = 3
	FileFsDeviceInformationClass     uint8 = 4
	FileFsAttributeInformationClass  uint8 = 5
	FileFsControlInformationClass    uint8 = 6
	FileFsFullSizeInformationClass   uint8 = 7
	FileFsSectorSizeInformationClass uint8 = 11
)

// Negotiate context types (MS-SMB2 2.2.3.1), used in the 3.1.1 negotiate
// request/response.
const (
	NegCtxPreauthIntegrityCapabilities uint16 = 0x0001
	NegCtxEncryptionCapabilities       uint16 = 0x0002
	NegCtxCompressionCapabilities      uint16 = 0x0003
	NegCtxNetnameNegotiateContextID    uint16 = 0x0005
	NegCtxTransportCapabilities        uint16 = 0x0006
	NegCtxRDMATransformCapabilities    uint16 = 0x0007
	NegCtxSigningCapabilities          uint16 = 0x0008
)

// Preauth integrity hash algorithms (MS-SMB2 2.2.3.1.1).
const HashAlgorithmSHA512 uint16 = 0x0001

// Cipher identifiers (MS-SMB2 2.2.3.1.2).
const (
	CipherAES128CCM uint16 = 0x0001
	CipherAES128GCM uint16 = 0x0002
	CipherAES256CCM uint16 = 0x0003
	CipherAES256GCM uint16 = 0x0004
)

// Signing algorithm identifiers (MS-SMB2 2.2.3.1.7).
const (
	SigningAlgHMACSHA256 uint16 = 0x0000
	SigningAlgAESCMAC    uint16 = 0x0001
	SigningAlgAESGMAC    uint16 = 0x0002
)

// Compression algorithm identifiers (MS-SMB2 2.2.3.1.3).
const (
	CompressionNone       uint16 = 0x0000
	CompressionLZNT1      uint16 = 0x0001
	CompressionLZ77       uint16 = 0x0002
	CompressionLZ77Huffman uint16 = 0x0003
	CompressionPatternV1  uint16 = 0x0004
)

// Session setup flags (MS-SMB2 2.2.5 / 2.2.6).
const (
	SessionFlagBinding uint8  = 0x01
	SessionFlagGuest    uint16 = 0x0001
	SessionFlagNull     uint16 = 0x0002
	SessionFlagEncrypt  uint16 = 0x0004
)
