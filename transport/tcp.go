package transport

import (
	"context"
	"fmt"
	"net"
)

func init() {
	Register(Tcp, tcpDialer{})
}

// tcpDialer dials direct TCP (MS-SMB2 2.1's "Direct TCP transport", port
// 445 by default), the default transport for every Windows SMB client.
type tcpDialer struct{}

func (tcpDialer) Dial(ctx context.Context, address string, port int) (Conn, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		return nil, fmt.Errorf("transport: tcp dial %s:%d: %w", address, port, err)
	}
	if tc, ok := raw.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return newFramedConn(raw, raw.RemoteAddr().String()), nil
}
