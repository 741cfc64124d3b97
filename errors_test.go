package smb2client

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/smb2go/smb2client/client"
	"github.com/smb2go/smb2client/wire"
)

func TestPathError(t *testing.T) {
	baseErr := errors.New("base error")
	pathErr := &PathError{
		Op:   "open",
		Path: "/path/to/file",
		Err:  baseErr,
	}

	expected := "open /path/to/file: base error"
	if pathErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", pathErr.Error(), expected)
	}

	if unwrapped := pathErr.Unwrap(); unwrapped != baseErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, baseErr)
	}
}

func TestWrapPathError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		path     string
		err      error
		wantNil  bool
		wantPath string
	}{
		{
			name:    "nil error returns nil",
			op:      "open",
			path:    "/path",
			err:     nil,
			wantNil: true,
		},
		{
			name:     "wraps basic error",
			op:       "open",
			path:     "/path/to/file",
			err:      errors.New("base error"),
			wantNil:  false,
			wantPath: "/path/to/file",
		},
		{
			name: "doesn't double-wrap same path",
			op:   "read",
			path: "/path/to/file",
			err: &PathError{
				Op:   "open",
				Path: "/path/to/file",
				Err:  errors.New("base error"),
			},
			wantNil:  false,
			wantPath: "/path/to/file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := wrapPathError(tt.op, tt.path, tt.err)

			if tt.wantNil {
				if result != nil {
					t.Errorf("wrapPathError() = %v, want nil", result)
				}
				return
			}

			if result == nil {
				t.Fatal("wrapPathError() = nil, want error")
			}

			var pathErr *PathError
			if !errors.As(result, &pathErr) {
				t.Fatalf("wrapPathError() result is not a PathError: %T", result)
			}

			if pathErr.Path != tt.wantPath {
				t.Errorf("PathError.Path = %q, want %q", pathErr.Path, tt.wantPath)
			}
		})
	}
}

func serverErr(status wire.Status) error {
	return &client.ServerError{Command: wire.CmdCreate, Status: status}
}

func TestConvertError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{
			name:     "nil error returns nil",
			err:      nil,
			expected: nil,
		},
		{
			name:     "fs.ErrNotExist passes through",
			err:      fs.ErrNotExist,
			expected: fs.ErrNotExist,
		},
		{
			name:     "fs.ErrPermission passes through",
			err:      fs.ErrPermission,
			expected: fs.ErrPermission,
		},
		{
			name:     "STATUS_OBJECT_NAME_NOT_FOUND converts to fs.ErrNotExist",
			err:      serverErr(wire.StatusObjectNameNotFound),
			expected: fs.ErrNotExist,
		},
		{
			name:     "STATUS_OBJECT_PATH_NOT_FOUND converts to fs.ErrNotExist",
			err:      serverErr(wire.StatusObjectPathNotFound),
			expected: fs.ErrNotExist,
		},
		{
			name:     "STATUS_OBJECT_NAME_COLLISION converts to fs.ErrExist",
			err:      serverErr(wire.StatusObjectNameCollision),
			expected: fs.ErrExist,
		},
		{
			name:     "STATUS_ACCESS_DENIED converts to fs.ErrPermission",
			err:      serverErr(wire.StatusAccessDenied),
			expected: fs.ErrPermission,
		},
		{
			name:     "STATUS_FILE_IS_A_DIRECTORY converts to ErrIsDirectory",
			err:      serverErr(wire.StatusFileIsADirectory),
			expected: ErrIsDirectory,
		},
		{
			name:     "STATUS_NOT_A_DIRECTORY converts to ErrNotDirectory",
			err:      serverErr(wire.StatusNotADirectory),
			expected: ErrNotDirectory,
		},
		{
			name:     "client.ErrTransportClosed converts to fs.ErrClosed",
			err:      client.ErrTransportClosed,
			expected: fs.ErrClosed,
		},
		{
			name:     "client.ErrHandleClosed converts to fs.ErrClosed",
			err:      client.ErrHandleClosed,
			expected: fs.ErrClosed,
		},
		{
			name:     "client.ErrAuthenticationFailed converts to fs.ErrPermission",
			err:      client.ErrAuthenticationFailed,
			expected: fs.ErrPermission,
		},
		{
			name:     "unrecognized status passes through unchanged",
			err:      serverErr(wire.StatusInsufficientResources),
			expected: nil, // checked below: must equal the original error
		},
		{
			name:     "unknown error passes through unchanged",
			err:      errors.New("unknown error"),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := convertError(tt.err)

			if tt.err == nil {
				if result != nil {
					t.Errorf("convertError() = %v, want nil", result)
				}
				return
			}

			if tt.expected == nil {
				if result != tt.err {
					t.Errorf("convertError() = %v, want %v (same error)", result, tt.err)
				}
				return
			}

			if !errors.Is(result, tt.expected) {
				t.Errorf("convertError() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestErrorConstants(t *testing.T) {
	errs := []error{
		ErrInvalidConfig,
		ErrInvalidPath,
		ErrNotDirectory,
		ErrIsDirectory,
	}

	for i, err := range errs {
		if err == nil {
			t.Errorf("error constant at index %d is nil", i)
		}
	}

	seen := make(map[string]bool)
	for _, err := range errs {
		msg := err.Error()
		if seen[msg] {
			t.Errorf("duplicate error message: %q", msg)
		}
		seen[msg] = true
	}
}

func TestPathError_ErrorChaining(t *testing.T) {
	baseErr := errors.New("connection refused")
	wrappedErr := wrapPathError("connect", "/server/share", baseErr)

	if !errors.Is(wrappedErr, baseErr) {
		t.Error("errors.Is() failed to find base error in chain")
	}

	var pathErr *PathError
	if !errors.As(wrappedErr, &pathErr) {
		t.Error("errors.As() failed to find PathError in chain")
	}

	if pathErr.Op != "connect" {
		t.Errorf("PathError.Op = %q, want %q", pathErr.Op, "connect")
	}
	if pathErr.Path != "/server/share" {
		t.Errorf("PathError.Path = %q, want %q", pathErr.Path, "/server/share")
	}
}
