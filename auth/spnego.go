// Package auth implements the SPNEGO-carried authentication exchange MS-SMB2
// drives through SESSION_SETUP: NTLMv2 and Kerberos mechanisms wrapped in a
// GSS-API SPNEGO envelope, guest/anonymous policy, and the per-dialect
// session key derivation the connection layer needs to hand to crypto.Derive.
package auth

import (
	"encoding/asn1"
	"fmt"

	"github.com/geoffgarside/ber"
)

// Mechanism OIDs SPNEGO negotiates between (MS-SPNG / RFC 4178).
var (
	oidSPNEGO  = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 2}
	oidNTLMSSP = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 2, 10}
	oidKerberos = asn1.ObjectIdentifier{1, 2, 840, 113554, 1, 2, 2}
	// oidMSKerberos is the Microsoft-specific legacy Kerberos OID some
	// servers still advertise alongside the IETF one.
	oidMSKerberos = asn1.ObjectIdentifier{1, 2, 840, 48018, 1, 2, 2}
)

// negTokenInit is RFC 4178's NegTokenInit (SPNEGO 2.2.1), used for the
// client's first SESSION_SETUP request.
type negTokenInit struct {
	MechTypes   []asn1.ObjectIdentifier `asn1:"explicit,tag:0"`
	ReqFlags    asn1.BitString          `asn1:"explicit,tag:1,optional"`
	MechToken   []byte                  `asn1:"explicit,tag:2,optional"`
	MechListMIC []byte                  `asn1:"explicit,tag:3,optional"`
}

// negTokenResp is RFC 4178's NegTokenResp (SPNEGO 2.2.2), returned by the
// server on every subsequent SESSION_SETUP leg.
type negTokenResp struct {
	NegState      asn1.Enumerated        `asn1:"explicit,tag:0,optional"`
	SupportedMech asn1.ObjectIdentifier  `asn1:"explicit,tag:1,optional"`
	ResponseToken []byte                 `asn1:"explicit,tag:2,optional"`
	MechListMIC   []byte                 `asn1:"explicit,tag:3,optional"`
}

// NegState values (SPNEGO 2.2.2).
const (
	negStateAcceptCompleted  = 0
	negStateAcceptIncomplete = 1
	negStateReject           = 2
	negStateRequestMIC       = 3
)

// rawGSSToken wraps an inner SPNEGO token in the GSS-API "InitialContextToken"
// framing (RFC 2743 3.1): an [APPLICATION 0] tag, the mechanism OID (always
// SPNEGO's own), then the raw inner bytes.
type rawGSSToken struct {
	Raw asn1.RawContent
	OID asn1.ObjectIdentifier
}

// EncodeNegTokenInit builds the GSS-API-wrapped initial SPNEGO token
// offering mechTypes and carrying the first mechanism's token (an NTLM
// NEGOTIATE_MESSAGE or a Kerberos AP-REQ) as the optimistic mechToken.
func EncodeNegTokenInit(mechTypes []asn1.ObjectIdentifier, mechToken []byte) ([]byte, error) {
	inner, err := asn1.Marshal(negTokenInit{MechTypes: mechTypes, MechToken: mechToken})
	if err != nil {
		return nil, fmt.Errorf("auth: marshal NegTokenInit: %w", err)
	}
	// The NegotiationToken CHOICE tags negTokenInit as [0] (SPNEGO 2.2.1);
	// that is wrapped again in the GSS-API application tag carrying the
	// SPNEGO OID.
	choice := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: inner}
	choiceBytes, err := asn1.Marshal(choice)
	if err != nil {
		return nil, err
	}
	return wrapApplication0(oidSPNEGO, choiceBytes), nil
}

// DecodeNegTokenResp parses a server's SPNEGO response. Some servers emit
// indefinite-length BER rather than strict DER for this token, so parsing
// (unlike the client's own DER encoding) goes through the permissive BER
// decoder rather than encoding/asn1.
func DecodeNegTokenResp(token []byte) (state int, supportedMech asn1.ObjectIdentifier, responseToken []byte, err error) {
	var choice asn1.RawValue
	if _, err = ber.Unmarshal(token, &choice); err != nil {
		return 0, nil, nil, fmt.Errorf("auth: unmarshal NegotiationToken: %w", err)
	}
	var resp negTokenResp
	if _, err = ber.Unmarshal(choice.Bytes, &resp); err != nil {
		return 0, nil, nil, fmt.Errorf("auth: unmarshal NegTokenResp: %w", err)
	}
	return int(resp.NegState), resp.SupportedMech, resp.ResponseToken, nil
}

// EncodeNegTokenResp builds a subsequent-leg SPNEGO token carrying
// responseToken (an NTLM AUTHENTICATE_MESSAGE, typically), used when this
// client itself must answer a server challenge as a NegTokenResp rather
// than a NegTokenInit (every leg after the first).
func EncodeNegTokenResp(responseToken []byte) ([]byte, error) {
	inner, err := asn1.Marshal(negTokenResp{ResponseToken: responseToken})
	if err != nil {
		return nil, fmt.Errorf("auth: marshal NegTokenResp: %w", err)
	}
	choice := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 1, IsCompound: true, Bytes: inner}
	return asn1.Marshal(choice)
}

// wrapApplication0 produces the GSS-API InitialContextToken framing: tag
// [APPLICATION 0], constructed, containing the DER OID followed by the raw
// inner token bytes (RFC 2743 3.1).
func wrapApplication0(oid asn1.ObjectIdentifier, inner []byte) []byte {
	oidBytes, _ := asn1.Marshal(oid)
	body := append(append([]byte{}, oidBytes...), inner...)
	wrapped, _ := asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassApplication,
		Tag:        0,
		IsCompound: true,
		Bytes:      body,
	})
	return wrapped
}

// NegotiateMechTypes returns the OIDs this client offers, ordered by
// preference, depending on which mechanisms are enabled (spec §6.3's
// `auth_methods.ntlm`/`.kerberos`).
func NegotiateMechTypes(kerberos, ntlm bool) []asn1.ObjectIdentifier {
	var mechs []asn1.ObjectIdentifier
	if kerberos {
		mechs = append(mechs, oidKerberos, oidMSKerberos)
	}
	if ntlm {
		mechs = append(mechs, oidNTLMSSP)
	}
	return mechs
}
