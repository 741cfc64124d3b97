package smb2client

import (
	"path"
	"strings"
)

// pathNormalizer handles path normalization for SMB shares.
type pathNormalizer struct {
	caseSensitive bool
}

// newPathNormalizer creates a new path normalizer.
func newPathNormalizer(caseSensitive bool) *pathNormalizer {
	return &pathNormalizer{
		caseSensitive: caseSensitive,
	}
}

// normalize normalizes a share-relative path for use with SMB: backslashes
// become forward slashes, the path is rooted at "/" and cleaned, and it is
// lowercased unless the normalizer is case-sensitive. UNC prefixes and
// smb:// URLs are not parsed; their server and share parts stay in the
// result as ordinary path elements.
func (pn *pathNormalizer) normalize(p string) string {
	// Convert Windows separators to forward slashes
	p = strings.ReplaceAll(p, "\\", "/")

	// Ensure the path starts with /
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	// Clean the path (removes .., ., multiple slashes, etc.)
	p = path.Clean(p)

	// Case normalization (Windows/SMB is typically case-insensitive)
	if !pn.caseSensitive {
		p = strings.ToLower(p)
	}

	return p
}

// base returns the last element of the path.
func (pn *pathNormalizer) base(p string) string {
	p = pn.normalize(p)
	return path.Base(p)
}

// driveLetterPrefix matches a local-filesystem drive designator ("C:",
// "d:") at the start of a path: a share-relative SMB path can never
// legitimately start with one, since the share root already stands in for
// the drive.
func driveLetterPrefix(p string) bool {
	return len(p) >= 2 && p[1] == ':' && (p[0] >= 'A' && p[0] <= 'Z' || p[0] >= 'a' && p[0] <= 'z')
}

// validatePath validates that a path is a safe, share-relative SMB path:
// non-empty, free of NUL bytes, not a local drive-absolute path, and unable
// to traverse above the share root once cleaned.
func validatePath(p string) error {
	if p == "" {
		return ErrInvalidPath
	}
	if strings.Contains(p, "\x00") {
		return ErrInvalidPath
	}
	if driveLetterPrefix(p) {
		return ErrInvalidPath
	}

	normalized := strings.ReplaceAll(p, "\\", "/")
	cleaned := path.Clean(normalized)

	if strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "/..") {
		return ErrInvalidPath
	}

	return nil
}

// toSMBPath converts a normalized Unix-style path to SMB path format.
// SMB paths use backslashes and don't have a leading slash.
func toSMBPath(p string) string {
	// Remove leading slash
	p = strings.TrimPrefix(p, "/")

	// Convert to backslashes for SMB
	p = strings.ReplaceAll(p, "/", "\\")

	return p
}
