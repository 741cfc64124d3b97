package transport

import (
	"context"
	"errors"
)

func init() {
	Register(Rdma, rdmaDialer{})
}

// ErrRDMAUnavailable is returned by every RDMA dial attempt. SMB Direct
// (MS-SMBD) needs kernel/hardware RDMA verbs (ibverbs, rsockets, or a
// Windows NDK provider); the Go ecosystem has no pure-Go, cgo-free binding
// for any of them, and none of the example repos in this module's pack
// imports one. A real SMB Direct transport would shell out to a cgo
// binding and is out of scope for a portable build; this dialer exists so
// `transport ∈ {Tcp, NetBios, Quic, Rdma}` has a registered entry for every
// value the configuration accepts, and multichannel's RDMA-aware channel
// selection (see client/multichannel.go) has something concrete to probe
// and skip over.
var ErrRDMAUnavailable = errors.New("transport: RDMA/SMB Direct is not implemented in this build")

type rdmaDialer struct{}

func (rdmaDialer) Dial(ctx context.Context, address string, port int) (Conn, error) {
	return nil, ErrRDMAUnavailable
}
