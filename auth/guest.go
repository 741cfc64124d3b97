package auth

// GuestPolicy governs fallback to guest or anonymous access when no
// credentials (or credentials the server rejects for a named user) are
// configured, per spec §6.3's `allow_unsigned_guest_access`.
type GuestPolicy struct {
	// AllowUnsignedGuestAccess permits an established guest/anonymous
	// session to skip message signing even though the negotiated dialect
	// would otherwise require it (MS-SMB2 3.2.4.1.1 guest carve-out).
	AllowUnsignedGuestAccess bool
}

// IsGuestSession reports whether sessionFlags carries the SMB2_SESSION_FLAG
// _IS_GUEST or _IS_NULL bit the server sets on its SESSION_SETUP response
// when it fell back to guest or anonymous access on its own.
func IsGuestSession(sessionFlags uint16) bool {
	const (
		sessionFlagIsGuest = 0x0001
		sessionFlagIsNull  = 0x0002
	)
	return sessionFlags&(sessionFlagIsGuest|sessionFlagIsNull) != 0
}

// SigningRequired reports whether a session with the given flags must be
// signed, honoring the guest carve-out when policy allows it.
func (p GuestPolicy) SigningRequired(sessionFlags uint16, dialectSMB3 bool) bool {
	if IsGuestSession(sessionFlags) && p.AllowUnsignedGuestAccess {
		return false
	}
	return true
}

// AnonymousNTLM returns an NTLM client configured for anonymous
// authentication: empty domain, username and password, which MS-NLMP
// treats as a request for a null session.
func AnonymousNTLM() *NTLM {
	return NewNTLM("", "", "")
}
