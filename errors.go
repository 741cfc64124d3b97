package smb2client

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/smb2go/smb2client/client"
	"github.com/smb2go/smb2client/wire"
)

var (
	// ErrInvalidConfig indicates the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPath indicates the path is invalid.
	ErrInvalidPath = errors.New("invalid path")

	// ErrNotDirectory indicates a directory-only operation (ReadDir) was
	// attempted against a path the server reports as a plain file
	// (STATUS_NOT_A_DIRECTORY).
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory indicates a file-only operation (ReadFile, WriteFile)
	// was attempted against a path the server reports as a directory
	// (STATUS_FILE_IS_A_DIRECTORY).
	ErrIsDirectory = errors.New("is a directory")
)

// PathError records an error and the operation and path that caused it.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// wrapPathError converts err to the facade's idiomatic io/fs-style
// sentinels via convertError, then wraps the result with operation and
// path information. Every Client method funnels its errors through this.
func wrapPathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	err = convertError(err)

	// If it's already a PathError for the same path, don't double-wrap.
	var pe *PathError
	if errors.As(err, &pe) && pe.Path == path {
		return err
	}

	return &PathError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// convertError maps the protocol engine's error taxonomy - client.ErrXxx
// sentinels and client.ServerError's wrapped NT status codes - onto the
// conventional io/fs sentinels plus ErrNotDirectory/ErrIsDirectory above, so
// a Client caller can use errors.Is(err, fs.ErrNotExist) exactly as it would
// against an os.Open result.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	// Already a standard fs error (e.g. produced by an earlier convertError
	// call further down the stack, or injected directly in a test).
	if errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, fs.ErrInvalid) ||
		errors.Is(err, fs.ErrClosed) {
		return err
	}

	switch {
	case client.IsStatus(err, wire.StatusObjectNameNotFound),
		client.IsStatus(err, wire.StatusNoSuchFile),
		client.IsStatus(err, wire.StatusObjectPathNotFound),
		client.IsStatus(err, wire.StatusNoSuchDevice),
		client.IsStatus(err, wire.StatusBadNetworkName):
		return fs.ErrNotExist
	case client.IsStatus(err, wire.StatusObjectNameCollision):
		return fs.ErrExist
	case client.IsStatus(err, wire.StatusAccessDenied),
		client.IsStatus(err, wire.StatusLogonFailure):
		return fs.ErrPermission
	case client.IsStatus(err, wire.StatusObjectNameInvalid):
		return fs.ErrInvalid
	case client.IsStatus(err, wire.StatusFileIsADirectory):
		return ErrIsDirectory
	case client.IsStatus(err, wire.StatusNotADirectory):
		return ErrNotDirectory
	case errors.Is(err, client.ErrTransportClosed),
		errors.Is(err, client.ErrHandleClosed),
		errors.Is(err, client.ErrInvalidState):
		return fs.ErrClosed
	case errors.Is(err, client.ErrAuthenticationFailed):
		return fs.ErrPermission
	}

	return err
}
