package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/smb2go/smb2client/auth"
	"github.com/smb2go/smb2client/crypto"
	"github.com/smb2go/smb2client/wire"
)

// Channel is one transport connection bound to a Session (spec §9's
// supplemented multi-channel feature): the primary channel is the one
// SessionSetup ran on; additional channels bind to the same session id with
// SessionFlagBinding and derive their own signing/encryption keys from the
// session's key plus that channel's own preauth hash.
type Channel struct {
	Conn     *Connection
	security *MessageSecurity
}

// Session is one authenticated SMB2 session, spanning one or more Channels
// (spec §4.Sess). Trees are opened per-session; every Channel can carry
// traffic for any Tree the session owns, selected by multichannel.go's
// routing policy.
type Session struct {
	mu sync.RWMutex

	id       uint64
	dialect  wire.Dialect
	cipherID uint16
	keys     crypto.SessionKeys

	channels []*Channel

	signingRequired  bool
	encryptionForced bool

	// channelPolicy picks which bound channel carries the next request;
	// multichannel.go's EstablishChannels installs a round-robin policy
	// before binding any channel. Nil means "always the primary channel".
	channelPolicy func([]*Channel) *Channel

	// dropping guards Logoff against concurrent/duplicate invocation: the
	// first caller to flip it from 0 to 1 is the one that actually sends
	// LOGOFF, so a session used across a worker pool's retry path can call
	// Logoff more than once safely.
	dropping int32
}

// ID returns the server-assigned session identifier.
func (s *Session) ID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// PrimaryChannel returns the channel SessionSetup established the session
// on, the one every Tree/Handle operation defaults to routing through.
func (s *Session) PrimaryChannel() *Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.channels) == 0 {
		return nil
	}
	return s.channels[0]
}

// Channels returns a snapshot of every bound channel, used by
// multichannel.go's selection policy.
func (s *Session) Channels() []*Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// SelectChannel returns the channel a new request should be sent on:
// whatever channelPolicy picks, or the primary channel with no policy
// installed.
func (s *Session) SelectChannel() *Channel {
	s.mu.RLock()
	policy := s.channelPolicy
	channels := s.channels
	s.mu.RUnlock()
	if policy != nil && len(channels) > 0 {
		return policy(channels)
	}
	return s.PrimaryChannel()
}

// SetChannelPolicy installs the routing policy; multichannel.go's
// EstablishChannels installs its pool's round-robin policy this way.
func (s *Session) SetChannelPolicy(policy func([]*Channel) *Channel) {
	s.mu.Lock()
	s.channelPolicy = policy
	s.mu.Unlock()
}

// SetupOptions configures one SessionSetup exchange.
type SetupOptions struct {
	Auth             auth.Config
	RequireSigning   bool
	RequireEncryption bool
}

// EstablishSession drives SESSION_SETUP to completion on conn and returns a
// Session bound to it as the primary channel (spec §4.Sess).
func EstablishSession(ctx context.Context, conn *Connection, opts SetupOptions) (*Session, error) {
	caps := conn.Capabilities()
	if caps == nil {
		return nil, fmt.Errorf("client: %w: session setup before negotiate completed", ErrInvalidState)
	}

	authr, err := auth.NewAuthenticator(opts.Auth)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrMechanismUnavailable, err)
	}

	token, err := authr.Start()
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrAuthenticationFailed, err)
	}

	secMode := uint16(wire.NegotiateSigningEnabled)
	if opts.RequireSigning {
		secMode |= wire.NegotiateSigningRequired
	}

	var sessionID uint64
	for {
		req := &wire.SessionSetupRequest{
			SecurityMode:   secMode,
			Capabilities:   wire.CapDFS,
			SecurityBuffer: token,
		}
		header, body, sendErr := conn.sendRequest(ctx, wire.CmdSessionSetup, req.Encode(), requestOptions{
			sessionID: sessionID, preauth: true,
		})
		if sendErr != nil && !IsStatus(sendErr, wire.StatusMoreProcessingRequired) {
			return nil, fmt.Errorf("client: %w: %v", ErrAuthenticationFailed, sendErr)
		}
		sessionID = header.SessionID

		resp, decErr := wire.DecodeSessionSetupResponse(body, wire.HeaderSize)
		if decErr != nil {
			return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, decErr)
		}

		nextToken, result, contErr := authr.Continue(resp.SecurityBuffer)
		if contErr != nil {
			return nil, fmt.Errorf("client: %w: %v", ErrAuthenticationFailed, contErr)
		}
		if result.Done {
			keys := crypto.Derive(caps.Dialect, result.SessionKey, conn.PreauthHash().Value(), caps.CipherID)
			sec, err := NewMessageSecurity(caps.Dialect, caps.SigningAlgorithm, caps.CipherID, sessionID, keys, opts.RequireEncryption)
			if err != nil {
				return nil, err
			}
			conn.RegisterSession(sessionID, sec)

			session := &Session{
				id:               sessionID,
				dialect:          caps.Dialect,
				cipherID:         caps.CipherID,
				keys:             keys,
				signingRequired:  opts.RequireSigning,
				encryptionForced: opts.RequireEncryption,
				channels:         []*Channel{{Conn: conn, security: sec}},
			}
			return session, nil
		}
		token = nextToken
	}
}

// BindChannel establishes an additional Channel on conn for an already
// authenticated session (spec §9's multi-channel supplement, MS-SMB2
// 3.2.4.1.4): it replays SESSION_SETUP with SessionFlagBinding and the
// existing session id, and on success derives that channel's own signing
// key from the channel's own preauth hash.
func (s *Session) BindChannel(ctx context.Context, conn *Connection, authCfg auth.Config) (*Channel, error) {
	caps := conn.Capabilities()
	if caps == nil {
		return nil, fmt.Errorf("client: %w: channel bind before negotiate completed", ErrInvalidState)
	}

	authr, err := auth.NewAuthenticator(authCfg)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrMechanismUnavailable, err)
	}
	token, err := authr.Start()
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrAuthenticationFailed, err)
	}

	sessionID := s.ID()
	for {
		req := &wire.SessionSetupRequest{
			Flags:          wire.SessionFlagBinding,
			SecurityMode:   uint16(wire.NegotiateSigningEnabled),
			Capabilities:   wire.CapDFS,
			SecurityBuffer: token,
		}
		_, body, sendErr := conn.sendRequest(ctx, wire.CmdSessionSetup, req.Encode(), requestOptions{
			sessionID: sessionID, preauth: true,
		})
		if sendErr != nil && !IsStatus(sendErr, wire.StatusMoreProcessingRequired) {
			return nil, fmt.Errorf("client: %w: %v", ErrAuthenticationFailed, sendErr)
		}

		resp, decErr := wire.DecodeSessionSetupResponse(body, wire.HeaderSize)
		if decErr != nil {
			return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, decErr)
		}

		nextToken, result, contErr := authr.Continue(resp.SecurityBuffer)
		if contErr != nil {
			return nil, fmt.Errorf("client: %w: %v", ErrAuthenticationFailed, contErr)
		}
		if result.Done {
			keys := crypto.Derive(caps.Dialect, result.SessionKey, conn.PreauthHash().Value(), caps.CipherID)
			sec, err := NewMessageSecurity(caps.Dialect, caps.SigningAlgorithm, caps.CipherID, sessionID, keys, s.encryptionForced)
			if err != nil {
				return nil, err
			}
			conn.RegisterSession(sessionID, sec)
			ch := &Channel{Conn: conn, security: sec}

			s.mu.Lock()
			s.channels = append(s.channels, ch)
			s.mu.Unlock()
			return ch, nil
		}
		token = nextToken
	}
}

// Logoff sends LOGOFF on the primary channel and tears down every bound
// channel's registered security state. Safe to call more than once or
// concurrently: only the first caller does any work.
func (s *Session) Logoff(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.dropping, 0, 1) {
		return nil
	}
	s.mu.RLock()
	channels := append([]*Channel(nil), s.channels...)
	sessionID := s.id
	s.mu.RUnlock()

	var err error
	if len(channels) > 0 {
		primary := channels[0]
		req := wire.LogoffRequest{}
		_, _, sendErr := primary.Conn.sendRequest(ctx, wire.CmdLogoff, req.Encode(), requestOptions{sessionID: sessionID})
		err = sendErr
	}
	for _, ch := range channels {
		ch.Conn.UnregisterSession(sessionID)
	}
	return err
}
