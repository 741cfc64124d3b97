package auth

import (
	"encoding/asn1"
	"fmt"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"
)

// gssKrb5TokIDAPReq is the two-byte GSS-API Kerberos token identifier for an
// AP-REQ (RFC 4121 4.1): 0x01 0x00.
var gssKrb5TokIDAPReq = []byte{0x01, 0x00}

// Kerberos implements the Kerberos mechanism SPNEGO can select when the
// server and client both support it, fetching a service ticket for the
// target SPN and wrapping the resulting AP-REQ as a GSS-API mechanism
// token (RFC 4121 4.1) before it is handed to EncodeNegTokenInit/Resp.
// NTLM tokens reach SPNEGO without this framing.
type Kerberos struct {
	Realm    string
	Username string
	Password string
	KeyTab   *keytab.Keytab
	KDCConf  *config.Config

	cl         *client.Client
	sessionKey []byte
}

// NewKerberosWithPassword authenticates to the KDC with a plaintext
// password, the path used when no pre-existing ticket cache or keytab is
// configured.
func NewKerberosWithPassword(realm, username, password string, kdcConf *config.Config) *Kerberos {
	return &Kerberos{Realm: realm, Username: username, Password: password, KDCConf: kdcConf}
}

// NewKerberosWithKeytab authenticates with a long-term key from a keytab,
// avoiding the need to hold a plaintext password in memory.
func NewKerberosWithKeytab(realm, username string, kt *keytab.Keytab, kdcConf *config.Config) *Kerberos {
	return &Kerberos{Realm: realm, Username: username, KeyTab: kt, KDCConf: kdcConf}
}

// APReqToken logs in (if needed), requests a service ticket for spn (the
// SMB server's "cifs/host.domain" or "cifs/host.domain@REALM" SPN), and
// returns the GSS-API-wrapped AP-REQ mechanism token plus the ticket's
// session key, which crypto.Derive then treats exactly like an NTLM
// session key.
func (k *Kerberos) APReqToken(spn string) ([]byte, []byte, error) {
	if k.cl == nil {
		if k.KeyTab != nil {
			k.cl = client.NewWithKeytab(k.Username, k.Realm, k.KeyTab, k.KDCConf)
		} else {
			k.cl = client.NewWithPassword(k.Username, k.Realm, k.Password, k.KDCConf)
		}
		if err := k.cl.Login(); err != nil {
			return nil, nil, fmt.Errorf("auth: kerberos login: %w", err)
		}
	}

	ticket, sessionKey, err := k.cl.GetServiceTicket(spn)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: kerberos service ticket for %s: %w", spn, err)
	}

	authenticator, err := types.NewAuthenticator(k.cl.Credentials.Domain(), k.cl.Credentials.CName())
	if err != nil {
		return nil, nil, fmt.Errorf("auth: build authenticator: %w", err)
	}
	apReq, err := messages.NewAPReq(ticket, sessionKey, authenticator)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: build AP-REQ: %w", err)
	}
	raw, err := apReq.Marshal()
	if err != nil {
		return nil, nil, fmt.Errorf("auth: marshal AP-REQ: %w", err)
	}

	k.sessionKey = append([]byte{}, sessionKey.KeyValue...)
	return wrapKrb5Token(raw), k.sessionKey, nil
}

// SessionKey returns the ticket session key established by the last
// successful APReqToken call.
func (k *Kerberos) SessionKey() []byte { return k.sessionKey }

// wrapKrb5Token applies RFC 4121 4.1's GSS-API mechanism-token framing to a
// raw KRB_AP_REQ: [APPLICATION 0], the Kerberos mech OID, then the 2-byte
// TOK_ID, then the AP-REQ bytes.
func wrapKrb5Token(apReq []byte) []byte {
	oidBytes, _ := asn1.Marshal(oidKerberos)
	body := append(append(append([]byte{}, oidBytes...), gssKrb5TokIDAPReq...), apReq...)
	wrapped, _ := asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassApplication,
		Tag:        0,
		IsCompound: true,
		Bytes:      body,
	})
	return wrapped
}
