package auth

import (
	"fmt"

	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
)

// Config carries the credentials and policy an Authenticator needs,
// independent of which mechanism ends up negotiated (spec §6.3's
// `auth_methods.ntlm`/`.kerberos`).
type Config struct {
	EnableNTLM     bool
	EnableKerberos bool

	Domain   string
	Username string
	Password string

	// SPN is the Kerberos service principal name for the target server
	// ("cifs/fileserver.example.com"), required when EnableKerberos is set.
	SPN       string
	Realm     string
	KeyTab    *keytab.Keytab
	KDCConfig *config.Config

	Guest GuestPolicy
}

// mechanism identifies which SPNEGO-negotiated path an in-progress
// Authenticator is driving.
type mechanism int

const (
	mechNone mechanism = iota
	mechNTLM
	mechKerberos
)

// Authenticator drives the SPNEGO exchange carried in consecutive
// SESSION_SETUP requests: blob in, blob out, until the server reports
// negState "accept-completed" and a session key is available. It is the
// only part of this package the connection layer calls directly; Config
// and the NTLM/Kerberos mechanisms underneath are an implementation detail.
type Authenticator struct {
	cfg Config

	mech    mechanism
	ntlm    *NTLM
	kerberos *Kerberos
}

// NewAuthenticator returns an Authenticator ready to start a session setup
// exchange under cfg.
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	if !cfg.EnableNTLM && !cfg.EnableKerberos {
		return nil, fmt.Errorf("auth: at least one of NTLM or Kerberos must be enabled")
	}
	return &Authenticator{cfg: cfg}, nil
}

// Start builds the first SESSION_SETUP security buffer: a NegTokenInit
// offering every enabled mechanism, carrying an optimistic mechToken for
// whichever one requires no prior round trip.
//
// Kerberos is optimistic whenever it's enabled (the ticket is already
// available locally); NTLM is optimistic only when Kerberos isn't in play,
// since NTLM's first leg needs nothing from the server either but the two
// optimistic tokens can't both be sent in one NegTokenInit.
func (a *Authenticator) Start() ([]byte, error) {
	mechs := NegotiateMechTypes(a.cfg.EnableKerberos, a.cfg.EnableNTLM)
	if len(mechs) == 0 {
		return nil, fmt.Errorf("auth: no mechanisms enabled")
	}

	var optimistic []byte
	switch {
	case a.cfg.EnableKerberos:
		a.mech = mechKerberos
		a.kerberos = &Kerberos{
			Realm: a.cfg.Realm, Username: a.cfg.Username, Password: a.cfg.Password,
			KeyTab: a.cfg.KeyTab, KDCConf: a.cfg.KDCConfig,
		}
		token, _, err := a.kerberos.APReqToken(a.cfg.SPN)
		if err != nil {
			return nil, err
		}
		optimistic = token
	case a.cfg.EnableNTLM:
		a.mech = mechNTLM
		if a.cfg.Username == "" {
			a.ntlm = AnonymousNTLM()
		} else {
			a.ntlm = NewNTLM(a.cfg.Domain, a.cfg.Username, a.cfg.Password)
		}
		optimistic = a.ntlm.Negotiate()
	}
	return EncodeNegTokenInit(mechs, optimistic)
}

// Result is what a completed exchange hands back to the session layer:
// the session key crypto.Derive turns into signing/encryption keys.
type Result struct {
	SessionKey []byte
	Done       bool
}

// Continue processes one server response leg. respToken is the raw
// security buffer from the SESSION_SETUP response (STATUS_MORE_PROCESSING
// _REQUIRED carries a NegTokenResp with state accept-incomplete; the final
// STATUS_SUCCESS response carries one with state accept-completed, or may
// omit the security buffer entirely once the session key is already known).
func (a *Authenticator) Continue(respToken []byte) (nextToken []byte, result Result, err error) {
	if len(respToken) == 0 {
		return nil, Result{Done: true}, nil
	}
	state, _, serverToken, err := DecodeNegTokenResp(respToken)
	if err != nil {
		return nil, Result{}, err
	}
	if state == negStateReject {
		return nil, Result{}, fmt.Errorf("auth: server rejected the SPNEGO negotiation")
	}

	switch a.mech {
	case mechKerberos:
		// A single AP-REQ leg is normally sufficient; the session key was
		// already captured in Start.
		return nil, Result{SessionKey: a.kerberos.SessionKey(), Done: true}, nil

	case mechNTLM:
		if a.ntlm.serverChallenge == nil {
			if err := a.ntlm.AcceptChallenge(serverToken); err != nil {
				return nil, Result{}, err
			}
			authMsg, sessionKey, err := a.ntlm.Authenticate()
			if err != nil {
				return nil, Result{}, err
			}
			next, err := EncodeNegTokenResp(authMsg)
			if err != nil {
				return nil, Result{}, err
			}
			return next, Result{SessionKey: sessionKey, Done: state == negStateAcceptCompleted}, nil
		}
		return nil, Result{SessionKey: a.ntlm.SessionKey(), Done: true}, nil

	default:
		return nil, Result{}, fmt.Errorf("auth: no mechanism selected")
	}
}
