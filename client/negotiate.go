// Package client implements the connection, session, tree and handle
// orchestration layer: the negotiate engine, the SPNEGO-driven session
// setup, per-message signing/encryption, the credit- and message-id-aware
// connection worker, compounding and compression, and the resource layer
// (DFS resolution, multi-channel, durable handles, parallel copy) built on
// top of wire, crypto, transport and auth.
package client

import (
	"crypto/rand"
	"fmt"

	"github.com/smb2go/smb2client/wire"
)

// Capabilities is the post-negotiate capability snapshot every later
// component (session setup, signer/encryptor, compression, multichannel)
// reads instead of re-deriving it from the raw response.
type Capabilities struct {
	Dialect            wire.Dialect
	ServerGUID         [16]byte
	SecurityMode       uint16
	Capabilities       uint32
	MaxTransactSize    uint32
	MaxReadSize        uint32
	MaxWriteSize       uint32
	SigningAlgorithm   uint16
	CipherID           uint16
	CompressionAlgos   []uint16
	PreauthHashAlgo    uint16
	SupportsEncryption bool
	SupportsCompression bool
	SupportsMultiChannel bool
	SecurityBuffer     []byte
}

// SupportsSMB3 reports whether the negotiated dialect unlocks SMB3's
// signing-key derivation, encryption and compounding semantics.
func (c *Capabilities) SupportsSMB3() bool { return c.Dialect.IsSMB3() }

// NegotiateOptions configures what a negotiate attempt offers.
type NegotiateOptions struct {
	MaxDialect       wire.Dialect
	ClientGUID       [16]byte
	SigningRequired  bool
	EncryptionMode   EncryptionMode
	CompressionOn    bool
	NetName          string
}

// EncryptionMode mirrors spec §6.3's `encryption_mode` client policy key.
type EncryptionMode int

const (
	EncryptionAllowed EncryptionMode = iota
	EncryptionRequired
	EncryptionDisabled
)

// dialectsUpTo returns wire.ClientDialects filtered to dialects at most
// max, preserving the preference order (highest first).
func dialectsUpTo(max wire.Dialect) []wire.Dialect {
	var out []wire.Dialect
	for _, d := range wire.ClientDialects {
		if d <= max {
			out = append(out, d)
		}
	}
	return out
}

// BuildNegotiateRequest constructs the NEGOTIATE request body, including
// the 3.1.1 negotiate-context list (preauth integrity, encryption,
// compression, netname, signing) when 3.1.1 is offered. The connection
// worker feeds the full framed message (this body plus its header) into the
// pre-authentication hash chain once it knows the assigned message-id.
func BuildNegotiateRequest(opts NegotiateOptions) (*wire.NegotiateRequest, []byte) {
	dialects := dialectsUpTo(opts.MaxDialect)
	secMode := uint16(wire.NegotiateSigningEnabled)
	if opts.SigningRequired {
		secMode |= wire.NegotiateSigningRequired
	}
	caps := wire.CapDFS | wire.CapLargeMTU | wire.CapMultiChannel | wire.CapPersistentHandles | wire.CapDirectoryLeasing | wire.CapNotifications
	if opts.EncryptionMode != EncryptionDisabled {
		caps |= wire.CapEncryption
	}

	req := &wire.NegotiateRequest{
		Dialects:     dialects,
		SecurityMode: secMode,
		Capabilities: caps,
		ClientGUID:   opts.ClientGUID,
	}

	offers311 := opts.MaxDialect >= wire.Dialect311
	if offers311 {
		salt := make([]byte, 32)
		rand.Read(salt)
		preauthCtx := &wire.PreauthIntegrityCapabilities{HashAlgorithms: []uint16{wire.HashAlgorithmSHA512}, Salt: salt}
		req.NegotiateContexts = append(req.NegotiateContexts, wire.NegotiateContext{
			Type: wire.NegCtxPreauthIntegrityCapabilities, Data: preauthCtx.Encode(),
		})

		if opts.EncryptionMode != EncryptionDisabled {
			encCtx := &wire.EncryptionCapabilities{Ciphers: []uint16{
				wire.CipherAES256GCM, wire.CipherAES128GCM, wire.CipherAES256CCM, wire.CipherAES128CCM,
			}}
			req.NegotiateContexts = append(req.NegotiateContexts, wire.NegotiateContext{
				Type: wire.NegCtxEncryptionCapabilities, Data: encCtx.Encode(),
			})
		}

		if opts.CompressionOn {
			compCtx := &wire.CompressionCapabilities{Algorithms: CompressionPolicy{}.AlgorithmOrder()}
			req.NegotiateContexts = append(req.NegotiateContexts, wire.NegotiateContext{
				Type: wire.NegCtxCompressionCapabilities, Data: compCtx.Encode(),
			})
		}

		if opts.NetName != "" {
			netCtx := &wire.NetnameNegotiateContext{NetName: opts.NetName}
			req.NegotiateContexts = append(req.NegotiateContexts, wire.NegotiateContext{
				Type: wire.NegCtxNetnameNegotiateContextID, Data: netCtx.Encode(),
			})
		}

		signCtx := &wire.SigningCapabilities{Algorithms: []uint16{wire.SigningAlgAESGMAC, wire.SigningAlgAESCMAC}}
		req.NegotiateContexts = append(req.NegotiateContexts, wire.NegotiateContext{
			Type: wire.NegCtxSigningCapabilities, Data: signCtx.Encode(),
		})
	}

	body := req.Encode()
	return req, body
}

// ParseNegotiateResponse decodes the response and builds the capability
// snapshot, validating that the server actually selected one of the
// dialects offered and, for 3.1.1, that it returned the mandatory
// preauth-integrity context.
func ParseNegotiateResponse(body []byte, bodyOffset int, offered []wire.Dialect) (*wire.NegotiateResponse, *Capabilities, error) {
	resp, err := wire.DecodeNegotiateResponse(body, bodyOffset)
	if err != nil {
		return nil, nil, fmt.Errorf("client: decode NEGOTIATE response: %w", err)
	}
	found := false
	for _, d := range offered {
		if d == resp.DialectRevision {
			found = true
			break
		}
	}
	if !found {
		return nil, nil, fmt.Errorf("client: %w: server selected dialect 0x%04x, not offered", ErrUnsupportedDialect, resp.DialectRevision)
	}

	caps := &Capabilities{
		Dialect:         resp.DialectRevision,
		ServerGUID:      resp.ServerGUID,
		SecurityMode:    resp.SecurityMode,
		Capabilities:    resp.Capabilities,
		MaxTransactSize: resp.MaxTransactSize,
		MaxReadSize:     resp.MaxReadSize,
		MaxWriteSize:    resp.MaxWriteSize,
		SecurityBuffer:  resp.SecurityBuffer,
		SigningAlgorithm: wire.SigningAlgAESCMAC,
	}
	caps.SupportsEncryption = resp.Capabilities&wire.CapEncryption != 0
	caps.SupportsMultiChannel = resp.Capabilities&wire.CapMultiChannel != 0

	if resp.DialectRevision == wire.Dialect311 {
		for _, ctx := range resp.NegotiateContexts {
			switch ctx.Type {
			case wire.NegCtxPreauthIntegrityCapabilities:
				p, err := wire.DecodePreauthIntegrityCapabilities(ctx.Data)
				if err != nil {
					return nil, nil, err
				}
				if len(p.HashAlgorithms) == 0 {
					return nil, nil, fmt.Errorf("client: %w: empty preauth hash algorithm list", ErrNegotiationInvalid)
				}
				caps.PreauthHashAlgo = p.HashAlgorithms[0]
			case wire.NegCtxEncryptionCapabilities:
				e, err := wire.DecodeEncryptionCapabilities(ctx.Data)
				if err != nil {
					return nil, nil, err
				}
				if len(e.Ciphers) > 0 {
					caps.CipherID = e.Ciphers[0]
					caps.SupportsEncryption = true
				}
			case wire.NegCtxCompressionCapabilities:
				c, err := wire.DecodeCompressionCapabilities(ctx.Data)
				if err != nil {
					return nil, nil, err
				}
				caps.CompressionAlgos = c.Algorithms
				caps.SupportsCompression = len(c.Algorithms) > 0
			case wire.NegCtxSigningCapabilities:
				s, err := wire.DecodeSigningCapabilities(ctx.Data)
				if err != nil {
					return nil, nil, err
				}
				if len(s.Algorithms) > 0 {
					caps.SigningAlgorithm = s.Algorithms[0]
				}
			}
		}
		if caps.PreauthHashAlgo == 0 {
			return nil, nil, fmt.Errorf("client: %w: 3.1.1 response missing preauth integrity context", ErrNegotiationInvalid)
		}
	} else if resp.DialectRevision.IsSMB3() {
		caps.SigningAlgorithm = wire.SigningAlgAESCMAC
	} else {
		caps.SigningAlgorithm = wire.SigningAlgHMACSHA256
	}

	return resp, caps, nil
}
