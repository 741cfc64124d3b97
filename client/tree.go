package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/smb2go/smb2client/wire"
)

// Tree is one connected share (spec §4.Tree): the unit Create/QueryDirectory
// and friends operate against. A Tree is scoped to the Session that opened
// it but is not pinned to a single Channel — every request it sends goes
// through session.SelectChannel().
type Tree struct {
	session *Session
	id      uint32
	path    string

	isDFS bool
	isCA  bool

	dropped int32
}

// Connect issues TREE_CONNECT for path ("\\server\share") on session's
// currently selected channel.
func Connect(ctx context.Context, session *Session, path string) (*Tree, error) {
	ch := session.SelectChannel()
	if ch == nil {
		return nil, fmt.Errorf("client: %w: no channel bound to session", ErrInvalidState)
	}

	req := &wire.TreeConnectRequest{Path: path}
	header, body, err := ch.Conn.sendRequest(ctx, wire.CmdTreeConnect, req.Encode(), requestOptions{
		sessionID: session.ID(), security: ch.security,
	})
	if err != nil {
		return nil, err
	}
	resp, err := wire.DecodeTreeConnectResponse(body)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}

	return &Tree{
		session: session,
		id:      header.TreeID,
		path:    path,
		isDFS:   resp.IsDFS(),
		isCA:    resp.IsCA(),
	}, nil
}

// ID returns the server-assigned TreeID.
func (t *Tree) ID() uint32 { return t.id }

// Path returns the UNC path this Tree was connected against.
func (t *Tree) Path() string { return t.path }

// IsDFS reports whether the connected share is a DFS root or link,
// consulted by dfs.go before issuing a referral lookup.
func (t *Tree) IsDFS() bool { return t.isDFS }

// IsContinuouslyAvailable reports whether the share advertised continuous
// availability, relevant to durable/persistent handle defaults.
func (t *Tree) IsContinuouslyAvailable() bool { return t.isCA }

// sendRequest issues a request on t's tree, letting the session pick which
// channel carries it; every client/handle.go operation funnels through
// this instead of calling a Connection directly.
func (t *Tree) sendRequest(ctx context.Context, cmd wire.Command, body []byte, expectedSize uint32) (*wire.Header, []byte, error) {
	ch := t.session.SelectChannel()
	if ch == nil {
		return nil, nil, fmt.Errorf("client: %w: no channel bound to session", ErrInvalidState)
	}
	return ch.Conn.sendRequest(ctx, cmd, body, requestOptions{
		sessionID: t.session.ID(), treeID: t.id, security: ch.security, expectedSize: expectedSize,
	})
}

// Ioctl issues IOCTL/FSCTL on t without an open handle, using the
// FileIDAllOutstanding sentinel (MS-SMB2 2.2.31: the shape used for
// FSCTL_DFS_GET_REFERRALS(_EX) and other tree-scoped controls that aren't
// addressed at a particular open).
func (t *Tree) Ioctl(ctx context.Context, ctlCode uint32, input []byte, maxOutput uint32) (*wire.IoctlResponse, error) {
	req := &wire.IoctlRequest{
		CtlCode: ctlCode, FileID: wire.FileIDAllOutstanding, InputBuffer: input,
		MaxOutputResponse: maxOutput, Flags: wire.IoctlFlagIsFsctl,
	}
	_, body, err := t.sendRequest(ctx, wire.CmdIoctl, req.Encode(), maxOutput)
	if err != nil {
		return nil, err
	}
	resp, err := wire.DecodeIoctlResponse(body, wire.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	return resp, nil
}

// Disconnect issues TREE_DISCONNECT. Safe to call more than once: only the
// first caller actually sends it.
func (t *Tree) Disconnect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&t.dropped, 0, 1) {
		return nil
	}
	ch := t.session.SelectChannel()
	if ch == nil {
		return fmt.Errorf("client: %w: no channel bound to session", ErrInvalidState)
	}
	req := wire.TreeDisconnectRequest{}
	_, _, err := ch.Conn.sendRequest(ctx, wire.CmdTreeDisconnect, req.Encode(), requestOptions{
		sessionID: t.session.ID(), treeID: t.id, security: ch.security,
	})
	return err
}
