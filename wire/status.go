package wire

import "fmt"

// Status is an NT status code as returned in the SMB2 header (MS-SMB2 2.2.1,
// codes per [MS-ERREF]).
type Status uint32

const (
	StatusSuccess                 Status = 0x00000000
	StatusPending                 Status = 0x00000103
	StatusNotify                  Status = 0x00000104
	StatusBufferOverflow          Status = 0x80000005
	StatusNoMoreFiles             Status = 0x80000006
	StatusInvalidParameter        Status = 0xC000000D
	StatusNoSuchDevice            Status = 0xC000000E
	StatusNoSuchFile              Status = 0xC000000F
	StatusEndOfFile               Status = 0xC0000011
	StatusMoreProcessingRequired  Status = 0xC0000016
	StatusAccessDenied            Status = 0xC0000022
	StatusObjectNameInvalid       Status = 0xC0000033
	StatusObjectNameNotFound      Status = 0xC0000034
	StatusObjectNameCollision     Status = 0xC0000035
	StatusObjectPathNotFound      Status = 0xC000003A
	StatusSharingViolation        Status = 0xC0000043
	StatusDeletePending           Status = 0xC0000056
	StatusLogonFailure            Status = 0xC000006D
	StatusPasswordExpired         Status = 0xC0000071
	StatusInsufficientResources   Status = 0xC000009A
	StatusFileIsADirectory        Status = 0xC00000BA
	StatusBadNetworkName          Status = 0xC00000CC
	StatusNotADirectory           Status = 0xC0000103
	StatusFileClosed              Status = 0xC0000128
	StatusCancelled               Status = 0xC0000120
	StatusNetworkNameDeleted      Status = 0xC00000C9
	StatusUserSessionDeleted      Status = 0xC0000203
	StatusNetworkSessionExpired   Status = 0xC000035C
	StatusPathNotCovered          Status = 0xC0000257
	StatusStoppedOnSymlink        Status = 0x8000002D
	StatusNotMapped               Status = 0xC0000073
	StatusDirectoryNotEmpty       Status = 0xC0000101
	StatusNotSupported            Status = 0xC00000BB
	StatusSmb2BadNegotiateContext Status = 0xC05D0000
)

// IsSuccess reports whether the status indicates unqualified success.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// IsError reports the NT convention of the top two bits indicating an error.
func (s Status) IsError() bool { return s&0xC0000000 == 0xC0000000 && s != StatusStoppedOnSymlink }

var statusNames = map[Status]string{
	StatusSuccess: "STATUS_SUCCESS", StatusPending: "STATUS_PENDING",
	StatusNotify: "STATUS_NOTIFY", StatusBufferOverflow: "STATUS_BUFFER_OVERFLOW",
	StatusNoMoreFiles: "STATUS_NO_MORE_FILES", StatusInvalidParameter: "STATUS_INVALID_PARAMETER",
	StatusNoSuchDevice: "STATUS_NO_SUCH_DEVICE", StatusNoSuchFile: "STATUS_NO_SUCH_FILE", StatusEndOfFile: "STATUS_END_OF_FILE",
	StatusMoreProcessingRequired: "STATUS_MORE_PROCESSING_REQUIRED", StatusAccessDenied: "STATUS_ACCESS_DENIED",
	StatusObjectNameNotFound: "STATUS_OBJECT_NAME_NOT_FOUND", StatusObjectNameCollision: "STATUS_OBJECT_NAME_COLLISION",
	StatusSharingViolation: "STATUS_SHARING_VIOLATION", StatusLogonFailure: "STATUS_LOGON_FAILURE",
	StatusFileIsADirectory: "STATUS_FILE_IS_A_DIRECTORY", StatusBadNetworkName: "STATUS_BAD_NETWORK_NAME",
	StatusFileClosed: "STATUS_FILE_CLOSED", StatusCancelled: "STATUS_CANCELLED",
	StatusNetworkSessionExpired: "STATUS_NETWORK_SESSION_EXPIRED", StatusPathNotCovered: "STATUS_PATH_NOT_COVERED",
	StatusStoppedOnSymlink: "STATUS_STOPPED_ON_SYMLINK", StatusNotMapped: "STATUS_NOT_MAPPED",
	StatusDirectoryNotEmpty: "STATUS_DIRECTORY_NOT_EMPTY", StatusNotSupported: "STATUS_NOT_SUPPORTED",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("STATUS(0x%08x)", uint32(s))
}
