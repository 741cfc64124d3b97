package client

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/smb2go/smb2client/crypto"
	"github.com/smb2go/smb2client/transport"
	"github.com/smb2go/smb2client/wire"
)

// ConnectionOptions configures a single transport attachment (spec §3.1,
// §6.3's transport/port/timeout/compression/smb2_only_negotiate keys).
type ConnectionOptions struct {
	Address          string
	Port             int
	Transport        transport.Kind
	Negotiate        NegotiateOptions
	SMB2OnlyNegotiate bool
	CompressionPolicy CompressionPolicy
	DialTimeout      time.Duration
	IdleTimeout      time.Duration
	Logger           Logger
}

// Logger is the ambient logging seam every component accepts (matching the
// teacher's config.Logger convention); the nop default is used when the
// caller supplies none.
type Logger interface {
	Printf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

// waitSlot is the future completion a Connection hands back to a caller
// that submitted one SMB2 sub-message.
type waitSlot struct {
	ch       chan slotResult
	cmd      wire.Command
	msgID    uint64
	async    bool
	asyncID  uint64
	canceled bool
	preauth  bool
}

type slotResult struct {
	header *wire.Header
	body   []byte
	err    error
}

// Connection is the single-owner worker for one transport socket (spec
// §4.C): it assigns message-ids, tracks credits, demultiplexes responses by
// message-id/async-id, and applies compression/encryption/signing on the
// way out and in. After the optional SMB1 prelude, exactly one goroutine
// (runRecvLoop) reads the transport; sendMu serializes writes.
type Connection struct {
	conn   transport.Conn
	logger Logger

	caps        *Capabilities
	preauth     *crypto.PreauthHash
	negDialects []wire.Dialect
	compression CompressionPolicy

	sendMu sync.Mutex

	mu             sync.Mutex
	nextMessageID  uint64
	creditsAvail   uint64
	desiredCredits uint64
	byMessageID    map[uint64]*waitSlot
	byAsyncID      map[uint64]*waitSlot
	closed         bool
	closeErr       error

	sessions map[uint64]*sessionSecurity

	idleTimeout time.Duration

	oplockBreakHandler func(wire.FileID, uint8)
	leaseBreakHandler  func(wire.LeaseBreakNotification)

	wg sync.WaitGroup
}

// SetOplockBreakHandler installs the callback the receive loop invokes for
// every unsolicited OPLOCK_BREAK notification (spec §4.H's oplock break
// path). Nothing in this package installs one.
func (c *Connection) SetOplockBreakHandler(h func(wire.FileID, uint8)) {
	c.mu.Lock()
	c.oplockBreakHandler = h
	c.mu.Unlock()
}

// SetLeaseBreakHandler installs the callback for unsolicited lease break
// notifications, keyed by LeaseKey rather than FileID.
func (c *Connection) SetLeaseBreakHandler(h func(wire.LeaseBreakNotification)) {
	c.mu.Lock()
	c.leaseBreakHandler = h
	c.mu.Unlock()
}

// handleBreakNotification dispatches an unsolicited OPLOCK_BREAK command:
// the notification's StructureSize (24 for a plain oplock break, 44 for a
// lease break) disambiguates the two MS-SMB2 payload shapes sharing one
// command code.
func (c *Connection) handleBreakNotification(body []byte) error {
	if len(body) < 2 {
		return fmt.Errorf("client: %w: short break notification", ErrProtocolDecode)
	}
	structSize := uint16(body[0]) | uint16(body[1])<<8
	c.mu.Lock()
	oplockHandler, leaseHandler := c.oplockBreakHandler, c.leaseBreakHandler
	c.mu.Unlock()
	switch structSize {
	case 24:
		n, err := wire.DecodeOplockBreakNotification(body)
		if err != nil {
			return fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
		}
		if oplockHandler != nil {
			oplockHandler(n.FileID, n.OplockLevel)
		} else {
			c.logger.Printf("client: dropped oplock break notification for file id %v: no handler registered", n.FileID)
		}
	case 44:
		n, err := wire.DecodeLeaseBreakNotification(body)
		if err != nil {
			return fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
		}
		if leaseHandler != nil {
			leaseHandler(*n)
		} else {
			c.logger.Printf("client: dropped lease break notification for lease key %x: no handler registered", n.LeaseKey)
		}
	default:
		return fmt.Errorf("client: %w: unrecognized break notification StructureSize %d", ErrProtocolDecode, structSize)
	}
	return nil
}

// sessionSecurity is the subset of Session state the connection's receive
// loop needs to verify/decrypt an inbound message: looked up by SessionID
// straight off the header, independent of the richer Session type in
// session.go.
type sessionSecurity struct {
	primary *MessageSecurity
}

// Dial opens a transport to opts.Address:opts.Port and drives SMB2
// NEGOTIATE to completion, returning a ready Connection.
func Dial(ctx context.Context, opts ConnectionOptions) (*Connection, error) {
	if opts.Transport == "" {
		opts.Transport = transport.Tcp
	}
	if opts.Port == 0 {
		opts.Port = transport.DefaultPort(opts.Transport)
	}
	dialer, err := transport.Lookup(opts.Transport)
	if err != nil {
		return nil, err
	}
	dialCtx := ctx
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}
	conn, err := dialer.Dial(dialCtx, opts.Address, opts.Port)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrTransportClosed, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	c := &Connection{
		conn:           conn,
		logger:         logger,
		preauth:        crypto.NewPreauthHash(),
		compression:    opts.CompressionPolicy,
		desiredCredits: 64,
		creditsAvail:   1,
		byMessageID:    make(map[uint64]*waitSlot),
		byAsyncID:      make(map[uint64]*waitSlot),
		sessions:       make(map[uint64]*sessionSecurity),
		idleTimeout:    opts.IdleTimeout,
	}

	if err := c.negotiate(ctx, opts.Negotiate, opts.SMB2OnlyNegotiate); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Capabilities returns the post-negotiate snapshot (spec §4.N); it is
// immutable once set.
func (c *Connection) Capabilities() *Capabilities { return c.caps }

// PreauthHash exposes the connection's rolling 3.1.1 pre-authentication
// integrity hash, consulted by session setup.
func (c *Connection) PreauthHash() *crypto.PreauthHash { return c.preauth }

// NegotiatedDialects returns the dialect list this connection offered,
// needed to validate a later channel-binding connection offered the same set
// (MS-SMB2 3.2.4.1.4).
func (c *Connection) NegotiatedDialects() []wire.Dialect { return c.negDialects }

func (c *Connection) negotiate(ctx context.Context, opts NegotiateOptions, smb2Only bool) error {
	if opts.MaxDialect == 0 {
		opts.MaxDialect = wire.Dialect311
	}
	if opts.ClientGUID == ([16]byte{}) {
		rand.Read(opts.ClientGUID[:])
	}
	if !smb2Only {
		if err := c.sendSMB1Prelude(ctx); err != nil {
			return err
		}
	}
	// The prelude reads its own response; the receive loop starts after it.
	c.wg.Add(1)
	go c.runRecvLoop()

	req, body := BuildNegotiateRequest(opts)
	c.negDialects = req.Dialects

	header, respBody, err := c.sendRequest(ctx, wire.CmdNegotiate, body, requestOptions{
		sessionID: 0, treeID: 0, preauth: true,
	})
	if err != nil {
		return err
	}
	if header.Status.IsError() {
		return fmt.Errorf("client: %w: NEGOTIATE returned %s", ErrNegotiationInvalid, header.Status)
	}
	_, caps, err := ParseNegotiateResponse(respBody, wire.HeaderSize, req.Dialects)
	if err != nil {
		return err
	}
	c.caps = caps
	return nil
}

// sendSMB1Prelude emits the single SMB1 COM_NEGOTIATE multi-protocol probe
// (spec §4.N), listing the three dialect strings and discarding whatever
// valid SMB2 response comes back (the real negotiate follows immediately).
func (c *Connection) sendSMB1Prelude(ctx context.Context) error {
	dialects := []string{"SMB 2.002", "SMB 2.???", "NT LM 0.12"}
	body := make([]byte, 0, 64)
	body = append(body, 0xFF, 'S', 'M', 'B', 0x72) // SMB1 header command COM_NEGOTIATE
	body = append(body, make([]byte, 27)...)       // rest of the fixed SMB1 header, zeroed
	var wordCount byte
	var params []byte
	for _, d := range dialects {
		params = append(params, 0x02)
		params = append(params, []byte(d)...)
		params = append(params, 0x00)
	}
	body = append(body, wordCount)
	body = append(body, byte(len(params)), byte(len(params)>>8))
	body = append(body, params...)

	if err := c.conn.WriteMessage(ctx, body); err != nil {
		return fmt.Errorf("client: %w: SMB1 prelude: %v", ErrTransportClosed, err)
	}
	if _, err := c.conn.ReadMessage(ctx); err != nil {
		return fmt.Errorf("client: %w: SMB1 prelude response: %v", ErrTransportClosed, err)
	}
	return nil
}

// requestOptions carries the per-request knobs sendRequest needs beyond the
// command and body: which session/tree it belongs to, whether it must be
// signed/encrypted, and whether its bytes feed the pre-auth hash chain.
type requestOptions struct {
	sessionID    uint64
	treeID       uint32
	security     *MessageSecurity
	preauth      bool
	expectedSize uint32
}

// creditCharge implements spec §4.C's formula.
func creditCharge(payloadSize, expectedReplySize uint32) uint16 {
	n := payloadSize
	if expectedReplySize > n {
		n = expectedReplySize
	}
	charge := int(math.Ceil(float64(n) / 65536))
	if charge < 1 {
		charge = 1
	}
	return uint16(charge)
}

// reserveCredits blocks (honoring ctx) until charge credits are available,
// then deducts them.
func (c *Connection) reserveCredits(ctx context.Context, charge uint16) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return fmt.Errorf("client: %w", ErrTransportClosed)
		}
		if c.creditsAvail >= uint64(charge) {
			c.creditsAvail -= uint64(charge)
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (c *Connection) creditRequest() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.creditsAvail >= c.desiredCredits {
		return 1
	}
	return uint16(c.desiredCredits - c.creditsAvail)
}

func (c *Connection) assignMessageID(n uint16) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextMessageID
	c.nextMessageID += uint64(n)
	return id
}

// sendRequest builds, signs/encrypts, frames and sends a single SMB2
// sub-message and blocks for its reply. It is the primitive every typed
// request (create, read, write, ...) in handle.go/session.go/tree.go calls.
func (c *Connection) sendRequest(ctx context.Context, cmd wire.Command, body []byte, opts requestOptions) (*wire.Header, []byte, error) {
	charge := creditCharge(uint32(len(body)), opts.expectedSize)
	if err := c.reserveCredits(ctx, charge); err != nil {
		return nil, nil, err
	}
	msgID := c.assignMessageID(charge)

	header := &wire.Header{
		CreditCharge:  charge,
		Command:       cmd,
		CreditRequest: c.creditRequest(),
		MessageID:     msgID,
		TreeID:        opts.treeID,
		SessionID:     opts.sessionID,
	}
	w := wire.NewWriter(wire.HeaderSize + len(body))
	header.Encode(w)
	w.RawBytes(body)
	message := w.Bytes()

	if opts.security != nil {
		opts.security.Sign(message)
	}

	slot := &waitSlot{ch: make(chan slotResult, 1), cmd: cmd, preauth: opts.preauth, msgID: msgID}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, nil, fmt.Errorf("client: %w", ErrTransportClosed)
	}
	c.byMessageID[msgID] = slot
	c.mu.Unlock()

	out := message
	var err error
	if opts.security != nil && opts.security.RequiresEncryption() {
		out, err = opts.security.Encrypt(message)
		if err != nil {
			c.dropSlot(msgID)
			return nil, nil, err
		}
	}

	c.sendMu.Lock()
	err = c.conn.WriteMessage(ctx, out)
	c.sendMu.Unlock()
	if err != nil {
		c.dropSlot(msgID)
		return nil, nil, fmt.Errorf("client: %w: %v", ErrTransportClosed, err)
	}

	if opts.preauth {
		c.preauth.Update(message)
	}

	select {
	case res := <-slot.ch:
		if res.err != nil {
			return res.header, res.body, res.err
		}
		if res.header.Status.IsError() {
			return res.header, res.body, newServerError(cmd, res.header.Status)
		}
		return res.header, res.body, nil
	case <-ctx.Done():
		c.cancel(msgID)
		if ctx.Err() == context.Canceled {
			return nil, nil, fmt.Errorf("client: %w", ErrCancelled)
		}
		return nil, nil, fmt.Errorf("client: %w", ErrTimedOut)
	}
}

func (c *Connection) dropSlot(msgID uint64) {
	c.mu.Lock()
	delete(c.byMessageID, msgID)
	c.mu.Unlock()
}

// cancel sends SMB2 CANCEL keyed by whichever id (message-id or async-id)
// currently identifies the in-flight operation (spec §4.C's cancellation).
func (c *Connection) cancel(msgID uint64) {
	c.mu.Lock()
	slot, ok := c.byMessageID[msgID]
	c.mu.Unlock()
	if !ok {
		return
	}
	slot.canceled = true

	header := &wire.Header{Command: wire.CmdCancel, MessageID: msgID}
	if slot.async {
		header.Flags |= wire.FlagAsyncCommand
		header.AsyncID = slot.asyncID
	}
	w := wire.NewWriter(wire.HeaderSize + 4)
	header.Encode(w)
	w.RawBytes((&wire.CancelRequest{}).Encode())
	c.sendMu.Lock()
	c.conn.WriteMessage(context.Background(), w.Bytes())
	c.sendMu.Unlock()
}

// runRecvLoop is the connection's single reader: dispatch by magic bytes,
// decrypt/decompress/verify as required, then deliver to the waiting slot.
func (c *Connection) runRecvLoop() {
	defer c.wg.Done()
	for {
		raw, err := c.conn.ReadMessage(context.Background())
		if err != nil {
			c.abortAll(fmt.Errorf("client: %w: %v", ErrTransportClosed, err))
			return
		}
		if err := c.dispatch(raw); err != nil {
			c.logger.Printf("client: dropping inbound message: %v", err)
		}
	}
}

func (c *Connection) dispatch(raw []byte) error {
	if len(raw) < 4 {
		return fmt.Errorf("client: %w: short message", ErrProtocolDecode)
	}
	switch {
	case raw[0] == wire.ProtocolIDEncrypted[0] && raw[1] == 'S':
		return c.dispatchEncrypted(raw)
	case raw[0] == wire.ProtocolIDCompressed[0] && raw[1] == 'S':
		plain, err := DecompressMessage(raw)
		if err != nil {
			return err
		}
		return c.dispatchPlain(plain)
	default:
		return c.dispatchPlain(raw)
	}
}

func (c *Connection) dispatchEncrypted(raw []byte) error {
	hdr, err := wire.DecodeTransformHeader(raw)
	if err != nil {
		return fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	c.mu.Lock()
	sec, ok := c.sessions[hdr.SessionID]
	c.mu.Unlock()
	if !ok || sec.primary == nil {
		return fmt.Errorf("client: %w: encrypted message for unknown session %d", ErrDecryptionFailed, hdr.SessionID)
	}
	plain, err := sec.primary.Decrypt(raw)
	if err != nil {
		return err
	}
	return c.dispatchPlain(plain)
}

func (c *Connection) dispatchPlain(raw []byte) error {
	header, err := wire.DecodeHeader(raw)
	if err != nil {
		return fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	body := raw[wire.HeaderSize:]
	if header.NextCommand != 0 && int(header.NextCommand) < len(raw) {
		// Compound response: split and deliver each sub-message.
		return c.dispatchCompound(raw)
	}

	if header.IsSigned() {
		c.mu.Lock()
		sec, ok := c.sessions[header.SessionID]
		c.mu.Unlock()
		if ok && sec.primary != nil && !sec.primary.Verify(raw) {
			return fmt.Errorf("client: %w: message-id %d", ErrSignatureVerificationFailed, header.MessageID)
		}
	}

	c.mu.Lock()
	c.creditsAvail += uint64(header.CreditRequest)
	var slot *waitSlot
	var ok bool
	if header.IsAsync() {
		slot, ok = c.byAsyncID[header.AsyncID]
	}
	if !ok {
		slot, ok = c.byMessageID[header.MessageID]
	}
	if ok && header.Status == wire.StatusPending && header.IsAsync() {
		// First leg of an async operation: index the slot under its
		// async-id too (the message-id entry stays, so cancel(msgID)
		// keeps working) and keep waiting for the final response.
		slot.async = true
		slot.asyncID = header.AsyncID
		c.byAsyncID[header.AsyncID] = slot
		c.mu.Unlock()
		return nil
	}
	if ok {
		delete(c.byMessageID, slot.msgID)
		if slot.async {
			delete(c.byAsyncID, slot.asyncID)
		}
	}
	c.mu.Unlock()
	if !ok {
		if header.Command == wire.CmdOplockBreak {
			return c.handleBreakNotification(body)
		}
		return fmt.Errorf("client: no waiting operation for message-id %d", header.MessageID)
	}

	if slot.preauth {
		c.preauth.Update(raw)
	}

	var result slotResult
	if header.Status == wire.StatusCancelled && slot.canceled {
		result = slotResult{header: header, body: body, err: fmt.Errorf("client: %w", ErrCancelled)}
	} else {
		result = slotResult{header: header, body: body}
	}
	select {
	case slot.ch <- result:
	default:
	}
	return nil
}

func (c *Connection) dispatchCompound(raw []byte) error {
	offset := 0
	for {
		header, err := wire.DecodeHeader(raw[offset:])
		if err != nil {
			return fmt.Errorf("client: %w: compound sub-message: %v", ErrProtocolDecode, err)
		}
		next := int(header.NextCommand)
		var subLen int
		if next == 0 {
			subLen = len(raw) - offset
		} else {
			subLen = next
		}
		sub := raw[offset : offset+subLen]
		if err := c.dispatchPlain(sub); err != nil {
			c.logger.Printf("client: compound sub-message: %v", err)
		}
		if next == 0 {
			return nil
		}
		offset += next
	}
}

// abortAll fails every waiting slot with err and marks the connection
// closed (spec §3.1: connection destruction aborts all waiting slots with
// TransportClosed).
func (c *Connection) abortAll(err error) {
	c.mu.Lock()
	c.closed = true
	c.closeErr = err
	slots := make([]*waitSlot, 0, len(c.byMessageID)+len(c.byAsyncID))
	for _, s := range c.byMessageID {
		slots = append(slots, s)
	}
	for _, s := range c.byAsyncID {
		slots = append(slots, s)
	}
	c.byMessageID = make(map[uint64]*waitSlot)
	c.byAsyncID = make(map[uint64]*waitSlot)
	c.mu.Unlock()
	for _, s := range slots {
		select {
		case s.ch <- slotResult{err: err}:
		default:
		}
	}
}

// RegisterSession installs the signer/encryptor the receive loop uses to
// verify/decrypt messages on sessionID, called once a session reaches Ready.
func (c *Connection) RegisterSession(sessionID uint64, sec *MessageSecurity) {
	c.mu.Lock()
	c.sessions[sessionID] = &sessionSecurity{primary: sec}
	c.mu.Unlock()
}

// UnregisterSession drops a session's security state, called on logoff.
func (c *Connection) UnregisterSession(sessionID uint64) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
}

// Close tears the connection down, aborting every in-flight operation with
// TransportClosed. Safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	err := c.conn.Close()
	c.abortAll(fmt.Errorf("client: %w", ErrTransportClosed))
	return err
}
