package client

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync/atomic"

	"github.com/smb2go/smb2client/wire"
)

// CreateOptions configures a CREATE request (spec §4.H): the access mask,
// disposition/options and, optionally, the create contexts requesting a
// durable or persistent handle, a lease, or maximal-access reporting.
type CreateOptions struct {
	DesiredAccess      uint32
	FileAttributes     uint32
	ShareAccess        uint32
	CreateDisposition  uint32
	CreateOptions      uint32
	OplockLevel        uint8
	ImpersonationLevel uint32

	RequestDurable    bool
	RequestPersistent bool
	RequestMaximalAccess bool
	Lease             *RequestedLease
}

// RequestedLease configures the RqLs v2 create context.
type RequestedLease struct {
	Key        [16]byte
	State      uint32
	ParentKey  [16]byte
}

// Handle is one open file/directory (spec §4.H). It tracks the durable
// handle's CreateGUID so ReconnectDurable can replay DH2C against a new
// Tree after the original connection is lost.
type Handle struct {
	tree   *Tree
	fileID wire.FileID

	createGUID [16]byte
	durable    bool
	persistent bool

	closed int32
}

// FileID returns the 128-bit persistent/volatile handle identifier.
func (h *Handle) FileID() wire.FileID { return h.fileID }

// CreateGUID returns the identifier a durable/persistent handle reconnects
// with; zero if the handle didn't request durability.
func (h *Handle) CreateGUID() [16]byte { return h.createGUID }

// Create issues CREATE for name on tree.
func Create(ctx context.Context, tree *Tree, name string, opts CreateOptions) (*Handle, error) {
	req := &wire.CreateRequest{
		RequestedOplockLevel: opts.OplockLevel,
		ImpersonationLevel:   opts.ImpersonationLevel,
		DesiredAccess:        opts.DesiredAccess,
		FileAttributes:       opts.FileAttributes,
		ShareAccess:          opts.ShareAccess,
		CreateDisposition:    opts.CreateDisposition,
		CreateOptions:        opts.CreateOptions,
		Name:                 name,
	}

	var createGUID [16]byte
	if opts.RequestDurable || opts.RequestPersistent {
		rand.Read(createGUID[:])
		var flags uint32
		if opts.RequestPersistent {
			flags = 0x00000002
		}
		dh := &wire.DurableHandleV2Request{Timeout: 0, Flags: flags, CreateGUID: createGUID}
		req.Contexts = append(req.Contexts, wire.CreateContext{Name: wire.CtxDurableHandleV2Request, Data: dh.Encode()})
	}
	if opts.RequestMaximalAccess {
		req.Contexts = append(req.Contexts, wire.CreateContext{Name: wire.CtxMaximalAccess})
	}
	if opts.Lease != nil {
		lease := &wire.RequestLeaseV2{
			LeaseKey: opts.Lease.Key, LeaseState: opts.Lease.State, ParentLeaseKey: opts.Lease.ParentKey,
		}
		req.Contexts = append(req.Contexts, wire.CreateContext{Name: wire.CtxRequestLease, Data: lease.Encode()})
	}

	_, body, err := tree.sendRequest(ctx, wire.CmdCreate, req.Encode(), 0)
	if err != nil {
		return nil, err
	}
	resp, err := wire.DecodeCreateResponse(body, wire.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}

	return &Handle{
		tree:       tree,
		fileID:     resp.FileID,
		createGUID: createGUID,
		durable:    opts.RequestDurable || opts.RequestPersistent,
		persistent: opts.RequestPersistent,
	}, nil
}

// ReconnectDurable replays CREATE with a DH2C context against a new tree
// (typically opened on a freshly-negotiated connection after the original
// one failed), recovering a durable or persistent handle (spec §9).
func ReconnectDurable(ctx context.Context, tree *Tree, name string, fileID wire.FileID, createGUID [16]byte) (*Handle, error) {
	reconnect := &wire.DurableHandleV2Reconnect{FileID: fileID, CreateGUID: createGUID}
	req := &wire.CreateRequest{
		ImpersonationLevel: wire.ImpersonationImpersonation,
		DesiredAccess:      wire.FileReadData | wire.FileWriteData | wire.FileReadAttributes,
		ShareAccess:        wire.FileShareRead | wire.FileShareWrite | wire.FileShareDelete,
		CreateDisposition:  wire.FileOpen,
		Name:               name,
		Contexts: []wire.CreateContext{
			{Name: wire.CtxDurableHandleV2Reconnect, Data: reconnect.Encode()},
		},
	}
	_, body, err := tree.sendRequest(ctx, wire.CmdCreate, req.Encode(), 0)
	if err != nil {
		return nil, err
	}
	resp, err := wire.DecodeCreateResponse(body, wire.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	return &Handle{tree: tree, fileID: resp.FileID, createGUID: createGUID, durable: true}, nil
}

func (h *Handle) checkOpen() error {
	if atomic.LoadInt32(&h.closed) != 0 {
		return ErrHandleClosed
	}
	return nil
}

// Close issues CLOSE. Safe to call more than once.
func (h *Handle) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&h.closed, 0, 1) {
		return nil
	}
	req := &wire.CloseRequest{FileID: h.fileID}
	_, _, err := h.tree.sendRequest(ctx, wire.CmdClose, req.Encode(), 0)
	return err
}

// Flush issues FLUSH.
func (h *Handle) Flush(ctx context.Context) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	req := &wire.FlushRequest{FileID: h.fileID}
	_, _, err := h.tree.sendRequest(ctx, wire.CmdFlush, req.Encode(), 0)
	return err
}

// Read issues READ for up to length bytes at offset, returning the server's
// data (which may be shorter than length). At end of file
// (STATUS_END_OF_FILE) it returns nil data and a nil error.
func (h *Handle) Read(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	req := &wire.ReadRequest{Length: length, Offset: offset, FileID: h.fileID}
	_, body, err := h.tree.sendRequest(ctx, wire.CmdRead, req.Encode(), length)
	if err != nil {
		if IsStatus(err, wire.StatusEndOfFile) {
			return nil, nil
		}
		return nil, err
	}
	resp, err := wire.DecodeReadResponse(body, wire.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	return append([]byte(nil), resp.Data...), nil
}

// Write issues WRITE of data at offset, returning the number of bytes the
// server actually wrote.
func (h *Handle) Write(ctx context.Context, offset uint64, data []byte) (uint32, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	req := &wire.WriteRequest{Offset: offset, FileID: h.fileID, Data: data}
	_, body, err := h.tree.sendRequest(ctx, wire.CmdWrite, req.Encode(), 0)
	if err != nil {
		return 0, err
	}
	resp, err := wire.DecodeWriteResponse(body)
	if err != nil {
		return 0, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	return resp.Count, nil
}

// QueryDirectory issues one QUERY_DIRECTORY request and decodes its
// FileIdBothDirectoryInformation-class results. Callers loop, passing
// QueryDirFlagIndexSpecified or relying on the server's internal cursor,
// until the response carries STATUS_NO_MORE_FILES.
func (h *Handle) QueryDirectory(ctx context.Context, pattern string, flags uint8, outputBufferLength uint32) ([]wire.DirectoryEntry, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	req := &wire.QueryDirectoryRequest{
		FileInformationClass: wire.FileIDBothDirectoryInformationClass,
		Flags:                flags,
		FileID:               h.fileID,
		FileName:             pattern,
		OutputBufferLength:   outputBufferLength,
	}
	_, body, err := h.tree.sendRequest(ctx, wire.CmdQueryDirectory, req.Encode(), outputBufferLength)
	if err != nil {
		if IsStatus(err, wire.StatusNoMoreFiles) {
			return nil, nil
		}
		return nil, err
	}
	resp, err := wire.DecodeQueryDirectoryResponse(body, wire.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	entries, err := wire.DecodeDirectoryEntries(resp.Buffer)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	return entries, nil
}

// ChangeNotify issues CHANGE_NOTIFY, which the server typically answers
// with STATUS_PENDING immediately and the real response only once a change
// occurs or the handle is closed/cancelled; ctx cancellation drives the
// CANCEL path in connection.go.
func (h *Handle) ChangeNotify(ctx context.Context, completionFilter uint32, watchTree bool, outputBufferLength uint32) ([]wire.FileNotifyInformation, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	var flags uint16
	if watchTree {
		flags = wire.ChangeNotifyFlagWatchTree
	}
	req := &wire.ChangeNotifyRequest{
		Flags: flags, OutputBufferLength: outputBufferLength, FileID: h.fileID, CompletionFilter: completionFilter,
	}
	_, body, err := h.tree.sendRequest(ctx, wire.CmdChangeNotify, req.Encode(), outputBufferLength)
	if err != nil {
		if IsStatus(err, wire.StatusNotify) {
			// STATUS_NOTIFY_CLEANUP / ENUM_DIR still carry a usable buffer.
		} else {
			return nil, err
		}
	}
	return wire.DecodeChangeNotifyResponse(body, wire.HeaderSize)
}

// QueryInfo issues QUERY_INFO and returns the raw output buffer; callers
// decode it with the FSCC type matching infoType/fileInfoClass.
func (h *Handle) QueryInfo(ctx context.Context, infoType, fileInfoClass uint8, additionalInformation uint32, outputBufferLength uint32) ([]byte, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	req := &wire.QueryInfoRequest{
		InfoType: infoType, FileInfoClass: fileInfoClass, AdditionalInformation: additionalInformation,
		OutputBufferLength: outputBufferLength, FileID: h.fileID,
	}
	_, body, err := h.tree.sendRequest(ctx, wire.CmdQueryInfo, req.Encode(), outputBufferLength)
	if err != nil {
		return nil, err
	}
	resp, err := wire.DecodeQueryInfoResponse(body, wire.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	return append([]byte(nil), resp.Buffer...), nil
}

// SetInfo issues SET_INFO with a pre-encoded FSCC information-class buffer.
func (h *Handle) SetInfo(ctx context.Context, infoType, fileInfoClass uint8, additionalInformation uint32, buffer []byte) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	req := &wire.SetInfoRequest{
		InfoType: infoType, FileInfoClass: fileInfoClass, AdditionalInformation: additionalInformation,
		FileID: h.fileID, Buffer: buffer,
	}
	_, _, err := h.tree.sendRequest(ctx, wire.CmdSetInfo, req.Encode(), 0)
	return err
}

// Rename issues SET_INFO with FileRenameInformation.
func (h *Handle) Rename(ctx context.Context, newName string, replaceIfExists bool) error {
	info := &wire.FileRenameInformation{ReplaceIfExists: replaceIfExists, FileName: newName}
	return h.SetInfo(ctx, wire.InfoFile, wire.FileRenameInformationClass, 0, info.Encode())
}

// Delete issues SET_INFO with FileDispositionInformation's delete-pending
// marker; the actual deletion happens on Close.
func (h *Handle) Delete(ctx context.Context) error {
	info := &wire.FileDispositionInformation{DeletePending: true}
	return h.SetInfo(ctx, wire.InfoFile, wire.FileDispositionInformationClass, 0, info.Encode())
}

// SetEndOfFile issues SET_INFO with FileEndOfFileInformation (truncate or
// extend).
func (h *Handle) SetEndOfFile(ctx context.Context, size int64) error {
	info := &wire.FileEndOfFileInformation{EndOfFile: size}
	return h.SetInfo(ctx, wire.InfoFile, wire.FileEndOfFileInformationClass, 0, info.Encode())
}

// Ioctl issues IOCTL/FSCTL with a pre-encoded input buffer.
func (h *Handle) Ioctl(ctx context.Context, ctlCode uint32, input []byte, maxOutput uint32) (*wire.IoctlResponse, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	req := &wire.IoctlRequest{
		CtlCode: ctlCode, FileID: h.fileID, InputBuffer: input, MaxOutputResponse: maxOutput, Flags: wire.IoctlFlagIsFsctl,
	}
	_, body, err := h.tree.sendRequest(ctx, wire.CmdIoctl, req.Encode(), maxOutput)
	if err != nil {
		return nil, err
	}
	resp, err := wire.DecodeIoctlResponse(body, wire.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	return resp, nil
}

// AcknowledgeOplockBreak sends the client's OPLOCK_BREAK acknowledgment for
// a break notification the connection's registered handler observed on
// h.fileID.
func (h *Handle) AcknowledgeOplockBreak(ctx context.Context, oplockLevel uint8) error {
	ack := &wire.OplockBreakAcknowledgment{OplockLevel: oplockLevel, FileID: h.fileID}
	_, _, err := h.tree.sendRequest(ctx, wire.CmdOplockBreak, ack.Encode(), 0)
	return err
}
