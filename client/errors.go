package client

import (
	"errors"
	"fmt"

	"github.com/smb2go/smb2client/wire"
)

// Error taxonomy (spec §7). Every sentinel here is wrapped with context via
// fmt.Errorf("...: %w", ...) at the call site rather than returned bare, so
// callers can both errors.Is against the sentinel and read a useful message.
var (
	// ErrTransportClosed means the underlying transport failed or was
	// closed; every waiting slot on the connection is aborted with it.
	ErrTransportClosed = errors.New("client: transport closed")

	// ErrNegotiationInvalid means the negotiate engine rejected the
	// server's response (missing mandatory context, disagreeing dialect).
	ErrNegotiationInvalid = errors.New("client: negotiation invalid")

	// ErrUnsupportedDialect means no offered dialect was acceptable, or the
	// server selected one the client didn't offer.
	ErrUnsupportedDialect = errors.New("client: unsupported dialect")

	// ErrAuthenticationFailed means the SPNEGO/NTLM/Kerberos exchange did
	// not produce a usable session key.
	ErrAuthenticationFailed = errors.New("client: authentication failed")

	// ErrMechanismUnavailable means the configured auth mechanism could not
	// run (e.g. Kerberos requested with no keytab or ticket available).
	ErrMechanismUnavailable = errors.New("client: authentication mechanism unavailable")

	// ErrSignatureVerificationFailed means an inbound message's signature
	// did not match; the message is dropped.
	ErrSignatureVerificationFailed = errors.New("client: signature verification failed")

	// ErrDecryptionFailed means AEAD authentication failed on an inbound
	// encrypted transform; the message is dropped.
	ErrDecryptionFailed = errors.New("client: decryption failed")

	// ErrProtocolDecode means a message was malformed on the wire.
	ErrProtocolDecode = errors.New("client: protocol decode error")

	// ErrCancelled means the caller's own cancellation resolved the
	// operation; it is not a server- or transport-level failure.
	ErrCancelled = errors.New("client: operation cancelled")

	// ErrTimedOut means a per-connection idle or per-op timeout fired
	// before a response arrived.
	ErrTimedOut = errors.New("client: operation timed out")

	// ErrInvalidState means the caller attempted an operation on a
	// closed/expired handle, tree or session.
	ErrInvalidState = errors.New("client: invalid state")

	// ErrHandleClosed is the specific InvalidState case of operating on an
	// already-closed Handle.
	ErrHandleClosed = fmt.Errorf("%w: handle closed", ErrInvalidState)
)

// ServerError wraps a non-success NT status the server returned in a
// response header (spec §7's ServerStatus(status_code)). It is surfaced
// as-is to the caller; callers match specific codes with errors.As plus
// a Status comparison, since there is one ServerError type for every code.
type ServerError struct {
	Command wire.Command
	Status  wire.Status
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("client: %s failed: %s", e.Command, e.Status)
}

// newServerError wraps status as a ServerError for cmd. It does no filtering
// of its own: callers that handle STATUS_PENDING et al. check the raw status
// before calling this.
func newServerError(cmd wire.Command, status wire.Status) error {
	return &ServerError{Command: cmd, Status: status}
}

// IsStatus reports whether err is a ServerError carrying status, unwrapping
// as errors.As would.
func IsStatus(err error, status wire.Status) bool {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status == status
	}
	return false
}
