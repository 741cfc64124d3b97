package client

import (
	"testing"

	"github.com/smb2go/smb2client/wire"
)

func TestFilterInterfaces_RdmaOnly(t *testing.T) {
	ifaces := []wire.NetworkInterfaceInfo{
		{IfIndex: 1, Capability: wire.NetIfCapRSS},
		{IfIndex: 2, Capability: wire.NetIfCapRDMA},
		{IfIndex: 3, Capability: wire.NetIfCapRSS | wire.NetIfCapRDMA},
	}
	got := filterInterfaces(ifaces, MultichannelRdmaOnly)
	if len(got) != 2 {
		t.Fatalf("filterInterfaces(RdmaOnly) returned %d interfaces, want 2", len(got))
	}
	for _, i := range got {
		if i.Capability&wire.NetIfCapRDMA == 0 {
			t.Errorf("filterInterfaces(RdmaOnly) kept non-RDMA interface %+v", i)
		}
	}
}

func TestFilterInterfaces_Always(t *testing.T) {
	ifaces := []wire.NetworkInterfaceInfo{
		{IfIndex: 1, Capability: wire.NetIfCapRSS},
		{IfIndex: 2, Capability: 0},
	}
	got := filterInterfaces(ifaces, MultichannelAlways)
	if len(got) != len(ifaces) {
		t.Fatalf("filterInterfaces(Always) returned %d interfaces, want %d", len(got), len(ifaces))
	}
}

func TestChannelPool_SelectRoundRobin(t *testing.T) {
	pool := &ChannelPool{}
	channels := []*Channel{{}, {}, {}}

	seen := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		selected := pool.selectRoundRobin(channels)
		for idx, ch := range channels {
			if ch == selected {
				seen = append(seen, idx)
				break
			}
		}
	}
	want := []int{0, 1, 2, 0, 1, 2}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("selectRoundRobin() sequence = %v, want %v", seen, want)
		}
	}
}

func TestChannelPool_SelectRoundRobin_Empty(t *testing.T) {
	pool := &ChannelPool{}
	if ch := pool.selectRoundRobin(nil); ch != nil {
		t.Errorf("selectRoundRobin(nil) = %v, want nil", ch)
	}
}
