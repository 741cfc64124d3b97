package smb2client

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/smb2go/smb2client/client"
	"github.com/smb2go/smb2client/wire"
)

const (
	fileAttributeDirectory = 0x00000010
	fileAttributeNormal    = 0x00000080
)

// Client is one authenticated, tree-connected SMB session, exposing a
// small file-like API over the protocol engine in client/, wire/, crypto/,
// auth/ and transport/ (spec §6's external interfaces, wrapped the way the
// teacher wraps its underlying SMB library behind absfs.FileSystem calls).
type Client struct {
	opts Options

	conn    *client.Connection
	session *client.Session
	tree    *client.Tree

	norm *pathNormalizer
}

// Dial connects to opts.Server, authenticates against opts.Share and
// returns a ready Client. When opts.Multichannel is anything but
// client.MultichannelNone, it also queries and binds additional channels
// over IPC$ before returning.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.setDefaults()

	conn, err := client.Dial(ctx, opts.connectionOptions())
	if err != nil {
		return nil, fmt.Errorf("smb2client: dial %s: %w", opts.Server, err)
	}

	session, err := client.EstablishSession(ctx, conn, opts.setupOptions())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smb2client: session setup against %s: %w", opts.Server, err)
	}

	uncPath := fmt.Sprintf(`\\%s\%s`, opts.Server, opts.Share)
	tree, err := client.Connect(ctx, session, uncPath)
	if err != nil {
		session.Logoff(ctx)
		conn.Close()
		return nil, fmt.Errorf("smb2client: tree connect %s: %w", uncPath, err)
	}

	c := &Client{opts: opts, conn: conn, session: session, tree: tree, norm: newPathNormalizer(false)}

	if opts.Multichannel != client.MultichannelNone {
		if ipc, ipcErr := client.Connect(ctx, session, fmt.Sprintf(`\\%s\IPC$`, opts.Server)); ipcErr == nil {
			dial := func(ctx context.Context, server string) (*client.Connection, error) {
				o := opts
				o.Server = server
				return client.Dial(ctx, o.connectionOptions())
			}
			if mcErr := client.EstablishChannels(ctx, session, ipc, opts.Server, opts.Multichannel, 4, dial, opts.setupOptions().Auth); mcErr != nil && opts.Logger != nil {
				opts.Logger.Printf("smb2client: multichannel setup against %s failed, continuing single-channel: %v", opts.Server, mcErr)
			}
			ipc.Disconnect(ctx)
		}
	}

	return c, nil
}

// dfsResolver lazily builds the DFS resolver used by resolvePath, dialing
// fresh connections against referral targets with the same Options this
// Client was dialed with.
func (c *Client) dfsResolver() *client.DfsResolver {
	dial := func(ctx context.Context, server string) (*client.Connection, error) {
		o := c.opts
		o.Server = server
		return client.Dial(ctx, o.connectionOptions())
	}
	return client.NewDfsResolver(dial, c.opts.setupOptions(), c.opts.Logger)
}

// resolvePath returns the Tree a path should be served from: usually
// Client's own tree, but a referral target's Tree when the share is a DFS
// root/link and DFS resolution is enabled.
func (c *Client) resolvePath(ctx context.Context, p string) (*client.Tree, error) {
	if !c.opts.DFSEnabled || !c.tree.IsDFS() {
		return c.tree, nil
	}
	uncPath := fmt.Sprintf(`\\%s\%s\%s`, c.opts.Server, c.opts.Share, toSMBPath(c.norm.normalize(p)))
	resolved, err := c.dfsResolver().Resolve(ctx, c.tree, uncPath)
	if err != nil {
		return nil, fmt.Errorf("smb2client: %w: dfs resolve %q: %v", ErrInvalidPath, p, err)
	}
	return resolved, nil
}

// Close disconnects the tree, logs off the session and closes the
// connection (and any additional bound channels).
func (c *Client) Close(ctx context.Context) error {
	var firstErr error
	if err := c.tree.Disconnect(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.session.Logoff(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.conn.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// openForRead sets FileNonDirectoryFile so a server rejects an attempt to
// read file data out of a directory with STATUS_FILE_IS_A_DIRECTORY
// (surfaced to callers as ErrIsDirectory via convertError) rather than
// silently misbehaving.
func (c *Client) openForRead(ctx context.Context, tree *client.Tree, name string) (*client.Handle, error) {
	return client.Create(ctx, tree, toSMBPath(name), client.CreateOptions{
		DesiredAccess:     wire.FileReadData | wire.FileReadAttributes,
		FileAttributes:    fileAttributeNormal,
		ShareAccess:       wire.FileShareRead | wire.FileShareDelete,
		CreateDisposition: wire.FileOpen,
		CreateOptions:     wire.FileNonDirectoryFile,
	})
}

func (c *Client) openForWrite(ctx context.Context, tree *client.Tree, name string, truncate bool) (*client.Handle, error) {
	disposition := uint32(wire.FileOpenIf)
	if truncate {
		disposition = wire.FileOverwriteIf
	}
	return client.Create(ctx, tree, toSMBPath(name), client.CreateOptions{
		DesiredAccess:     wire.FileWriteData | wire.FileReadAttributes | wire.Delete,
		FileAttributes:    fileAttributeNormal,
		ShareAccess:       wire.FileShareRead,
		CreateDisposition: disposition,
		CreateOptions:     wire.FileNonDirectoryFile,
	})
}

// ReadFile reads the whole of name, looping READ until the server reports
// end of file.
func (c *Client) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := validatePath(name); err != nil {
		return nil, wrapPathError("open", name, err)
	}
	tree, err := c.resolvePath(ctx, name)
	if err != nil {
		return nil, err
	}
	h, err := c.openForRead(ctx, tree, name)
	if err != nil {
		return nil, wrapPathError("open", name, err)
	}
	defer h.Close(ctx)

	const chunk = 1 << 20
	var out []byte
	for {
		data, err := h.Read(ctx, uint64(len(out)), chunk)
		if err != nil {
			return nil, wrapPathError("read", name, err)
		}
		if len(data) == 0 {
			break
		}
		out = append(out, data...)
		if len(data) < chunk {
			break
		}
	}
	return out, nil
}

// WriteFile writes data to name, creating or truncating it first.
func (c *Client) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := validatePath(name); err != nil {
		return wrapPathError("open", name, err)
	}
	tree, err := c.resolvePath(ctx, name)
	if err != nil {
		return err
	}
	h, err := c.openForWrite(ctx, tree, name, true)
	if err != nil {
		return wrapPathError("open", name, err)
	}
	defer h.Close(ctx)

	written := uint32(0)
	for written < uint32(len(data)) {
		n, err := h.Write(ctx, uint64(written), data[written:])
		if err != nil {
			return wrapPathError("write", name, err)
		}
		if n == 0 {
			return wrapPathError("write", name, fmt.Errorf("smb2client: zero-length write"))
		}
		written += n
	}
	return nil
}

// Remove deletes name.
func (c *Client) Remove(ctx context.Context, name string) error {
	if err := validatePath(name); err != nil {
		return wrapPathError("remove", name, err)
	}
	tree, err := c.resolvePath(ctx, name)
	if err != nil {
		return err
	}
	h, err := client.Create(ctx, tree, toSMBPath(name), client.CreateOptions{
		DesiredAccess:     wire.Delete,
		ShareAccess:       wire.FileShareRead | wire.FileShareWrite | wire.FileShareDelete,
		CreateDisposition: wire.FileOpen,
	})
	if err != nil {
		return wrapPathError("remove", name, err)
	}
	if err := h.Delete(ctx); err != nil {
		h.Close(ctx)
		return wrapPathError("remove", name, err)
	}
	return wrapPathError("remove", name, h.Close(ctx))
}

// Mkdir creates directory name.
func (c *Client) Mkdir(ctx context.Context, name string) error {
	if err := validatePath(name); err != nil {
		return wrapPathError("mkdir", name, err)
	}
	tree, err := c.resolvePath(ctx, name)
	if err != nil {
		return err
	}
	h, err := client.Create(ctx, tree, toSMBPath(name), client.CreateOptions{
		DesiredAccess:     wire.FileReadAttributes,
		FileAttributes:    fileAttributeDirectory,
		ShareAccess:       wire.FileShareRead | wire.FileShareWrite,
		CreateDisposition: wire.FileCreate,
		CreateOptions:     wire.FileDirectoryFile,
	})
	if err != nil {
		return wrapPathError("mkdir", name, err)
	}
	return wrapPathError("mkdir", name, h.Close(ctx))
}

// Rename moves oldname to newname within the same share.
func (c *Client) Rename(ctx context.Context, oldname, newname string) error {
	if err := validatePath(oldname); err != nil {
		return wrapPathError("rename", oldname, err)
	}
	if err := validatePath(newname); err != nil {
		return wrapPathError("rename", newname, err)
	}
	tree, err := c.resolvePath(ctx, oldname)
	if err != nil {
		return err
	}
	h, err := client.Create(ctx, tree, toSMBPath(oldname), client.CreateOptions{
		DesiredAccess:     wire.Delete | wire.FileReadAttributes,
		ShareAccess:       wire.FileShareRead,
		CreateDisposition: wire.FileOpen,
	})
	if err != nil {
		return wrapPathError("rename", oldname, err)
	}
	defer h.Close(ctx)
	return wrapPathError("rename", oldname, h.Rename(ctx, toSMBPath(newname), true))
}

// FileInfo is the subset of MS-FSCC basic/standard file information this
// facade surfaces from Stat/ReadDir.
type FileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (fi *FileInfo) Name() string       { return fi.name }
func (fi *FileInfo) Size() int64        { return fi.size }
func (fi *FileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *FileInfo) ModTime() time.Time { return fi.modTime }
func (fi *FileInfo) IsDir() bool        { return fi.isDir }
func (fi *FileInfo) Sys() interface{}   { return nil }

// Stat issues QUERY_INFO for name's basic and standard information classes
// and returns a fs.FileInfo built from them.
func (c *Client) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	if err := validatePath(name); err != nil {
		return nil, wrapPathError("stat", name, err)
	}
	tree, err := c.resolvePath(ctx, name)
	if err != nil {
		return nil, err
	}
	h, err := client.Create(ctx, tree, toSMBPath(name), client.CreateOptions{
		DesiredAccess:     wire.FileReadAttributes,
		ShareAccess:       wire.FileShareRead | wire.FileShareWrite | wire.FileShareDelete,
		CreateDisposition: wire.FileOpen,
	})
	if err != nil {
		return nil, wrapPathError("stat", name, err)
	}
	defer h.Close(ctx)

	basicBuf, err := h.QueryInfo(ctx, wire.InfoFile, wire.FileBasicInformationClass, 0, 256)
	if err != nil {
		return nil, wrapPathError("stat", name, err)
	}
	basic, err := wire.DecodeFileBasicInformation(basicBuf)
	if err != nil {
		return nil, wrapPathError("stat", name, err)
	}
	stdBuf, err := h.QueryInfo(ctx, wire.InfoFile, wire.FileStandardInformationClass, 0, 256)
	if err != nil {
		return nil, wrapPathError("stat", name, err)
	}
	std, err := wire.DecodeFileStandardInformation(stdBuf)
	if err != nil {
		return nil, wrapPathError("stat", name, err)
	}

	mode := fs.FileMode(0644)
	isDir := basic.FileAttributes&fileAttributeDirectory != 0 || std.Directory
	if isDir {
		mode = fs.ModeDir | 0755
	}
	return &FileInfo{
		name:    c.norm.base(name),
		size:    std.EndOfFile,
		mode:    mode,
		modTime: basic.LastWriteTime.ToTime(),
		isDir:   isDir,
	}, nil
}

// ReadDir lists dir's immediate children.
func (c *Client) ReadDir(ctx context.Context, dir string) ([]fs.FileInfo, error) {
	if err := validatePath(dir); err != nil {
		return nil, wrapPathError("readdir", dir, err)
	}
	tree, err := c.resolvePath(ctx, dir)
	if err != nil {
		return nil, err
	}
	h, err := client.Create(ctx, tree, toSMBPath(dir), client.CreateOptions{
		DesiredAccess:     wire.FileReadData | wire.FileReadAttributes,
		FileAttributes:    fileAttributeDirectory,
		ShareAccess:       wire.FileShareRead,
		CreateDisposition: wire.FileOpen,
		CreateOptions:     wire.FileDirectoryFile,
	})
	if err != nil {
		return nil, wrapPathError("readdir", dir, err)
	}
	defer h.Close(ctx)

	entries, err := h.QueryDirectory(ctx, "*", 0, 64*1024)
	if err != nil {
		return nil, wrapPathError("readdir", dir, err)
	}
	out := make([]fs.FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.FileName == "." || e.FileName == ".." {
			continue
		}
		isDir := e.FileAttributes&fileAttributeDirectory != 0
		mode := fs.FileMode(0644)
		if isDir {
			mode = fs.ModeDir | 0755
		}
		out = append(out, &FileInfo{
			name:    e.FileName,
			size:    e.EndOfFile,
			mode:    mode,
			modTime: e.LastWriteTime.ToTime(),
			isDir:   isDir,
		})
	}
	return out, nil
}
