package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smb2go/smb2client/wire"
)

// RootReferralTarget is one resolved DFS referral target (spec §4.R's DFS
// resolver), reduced from wire.RootReferral to what the resolver needs to
// retarget a tree connect.
type RootReferralTarget struct {
	Server       string
	Share        string
	Path         string
	TTL          time.Duration
	IsStorage    bool
}

// maxDfsHops bounds referral recursion (spec §4.R: "cap recursion (default
// 4 steps)").
const maxDfsHops = 4

// DfsDialFunc opens a fresh Connection to a server, used by the resolver to
// hop onto a referral target; DfsResolver.Resolve never reuses the
// connection the STATUS_PATH_NOT_COVERED/IsDFS tree came from, since the
// referral almost always points at a different host.
type DfsDialFunc func(ctx context.Context, server string) (*Connection, error)

// DfsResolver resolves a DFS root/link path to a Tree on its target server,
// caching positive referrals by TTL and negatively caching NoSuchDevice for
// a short grace period (spec §4.R).
type DfsResolver struct {
	cache  *referralCache
	dial   DfsDialFunc
	setup  SetupOptions
	logger Logger
}

// NewDfsResolver builds a resolver that uses dial to reach referral
// targets and setup to authenticate the session on each one.
func NewDfsResolver(dial DfsDialFunc, setup SetupOptions, logger Logger) *DfsResolver {
	if logger == nil {
		logger = nopLogger{}
	}
	return &DfsResolver{
		cache:  newReferralCache(256, 10*time.Second),
		dial:   dial,
		setup:  setup,
		logger: logger,
	}
}

// splitUNC splits "\\server\share\sub\path" into its server, share and
// remaining-path components.
func splitUNC(path string) (server, share, rest string, err error) {
	p := strings.TrimPrefix(path, `\\`)
	parts := strings.SplitN(p, `\`, 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("client: %w: malformed UNC path %q", ErrInvalidState, path)
	}
	server, share = parts[0], parts[1]
	if len(parts) == 3 {
		rest = parts[2]
	}
	return server, share, rest, nil
}

// getReferrals issues FSCTL_DFS_GET_REFERRALS on tree for path and decodes
// the RootReferral (version 4) entries into RootReferralTarget.
func (r *DfsResolver) getReferrals(ctx context.Context, tree *Tree, path string) ([]RootReferralTarget, error) {
	req := &wire.GetDfsReferralRequest{MaxReferralLevel: 4, RequestFileName: path}
	resp, err := tree.Ioctl(ctx, wire.FsctlDfsGetReferrals, req.Encode(), 64*1024)
	if err != nil {
		return nil, err
	}
	parsed, err := wire.DecodeDfsReferralResponse(resp.Output)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	if len(parsed.Referrals) == 0 {
		return nil, fmt.Errorf("client: %w: empty DFS referral response for %q", ErrInvalidState, path)
	}

	targets := make([]RootReferralTarget, 0, len(parsed.Referrals))
	for _, ref := range parsed.Referrals {
		target := ref.DFSAlternatePath
		if target == "" {
			target = ref.DFSPath
		}
		server, share, _, splitErr := splitUNC(target)
		if splitErr != nil {
			continue
		}
		ttl := time.Duration(ref.TimeToLive) * time.Second
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		targets = append(targets, RootReferralTarget{
			Server:    server,
			Share:     share,
			Path:      target,
			TTL:       ttl,
			IsStorage: ref.ReferralEntryFlags&wire.DfsReferralFlagStorageServers != 0,
		})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("client: %w: no usable DFS referral target for %q", ErrInvalidState, path)
	}
	return targets, nil
}

// Resolve follows path's DFS referral chain (from tree, which returned
// STATUS_PATH_NOT_COVERED or advertised IsDFS) to a Tree connected on the
// target storage server. On success, the caller owns the returned Tree
// (and its Session/Connection) and is responsible for disconnecting it.
func (r *DfsResolver) Resolve(ctx context.Context, tree *Tree, path string) (*Tree, error) {
	if r.cache.isNegative(path) {
		return nil, fmt.Errorf("client: %w: DFS path %q recently reported NoSuchDevice", ErrInvalidState, path)
	}

	targets, ok := r.cache.get(path)
	if !ok {
		var err error
		targets, err = r.getReferrals(ctx, tree, path)
		if err != nil {
			if IsStatus(err, wire.StatusNoSuchDevice) {
				r.cache.markNegative(path)
			}
			return nil, err
		}
		r.cache.put(path, targets, targets[0].TTL)
	}

	return r.followChain(ctx, targets[0], 0)
}

// followChain dials a referral target, connects its tree, and - if that
// tree itself advertises DFS - resolves again, up to maxDfsHops deep.
func (r *DfsResolver) followChain(ctx context.Context, target RootReferralTarget, hop int) (*Tree, error) {
	if hop >= maxDfsHops {
		return nil, fmt.Errorf("client: %w: DFS referral recursion exceeded %d hops", ErrInvalidState, maxDfsHops)
	}

	conn, err := r.dial(ctx, target.Server)
	if err != nil {
		return nil, err
	}
	session, err := EstablishSession(ctx, conn, r.setup)
	if err != nil {
		conn.Close()
		return nil, err
	}
	uncPath := fmt.Sprintf(`\\%s\%s`, target.Server, target.Share)
	newTree, err := Connect(ctx, session, uncPath)
	if err != nil {
		session.Logoff(ctx)
		conn.Close()
		return nil, err
	}

	if !newTree.IsDFS() || target.IsStorage {
		return newTree, nil
	}

	r.logger.Printf("client: dfs: %s still advertises DFS, resolving again (hop %d)", uncPath, hop+1)
	next, err := r.getReferrals(ctx, newTree, target.Path)
	if err != nil {
		return newTree, nil // best effort: the directly-dialed tree is still usable
	}
	r.cache.put(target.Path, next, next[0].TTL)
	resolved, err := r.followChain(ctx, next[0], hop+1)
	if err != nil {
		return newTree, nil
	}
	newTree.Disconnect(ctx)
	session.Logoff(ctx)
	conn.Close()
	return resolved, nil
}
