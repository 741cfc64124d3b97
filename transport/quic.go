package transport

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/quic-go/quic-go"
)

func init() {
	Register(Quic, quicDialer{})
}

// quicDialer dials SMB-over-QUIC (MS-SMB2 2.2.3.1.11's SMB2_ENCRYPTION_*
// negotiate context world plus the QUIC transport Windows Server added
// alongside it): the connection carries a single bidirectional stream
// framed exactly like direct TCP, trading the NetBIOS-style TCP transport
// for QUIC's own encrypted, connection-migratable one.
type quicDialer struct {
	// TLSConfig overrides the default client TLS config (NextProtos "smb").
	// Left nil, InsecureSkipVerify is false and the system root pool is used.
	TLSConfig *tls.Config
}

func (d quicDialer) Dial(ctx context.Context, address string, port int) (Conn, error) {
	tlsConf := d.TLSConfig
	if tlsConf == nil {
		tlsConf = &tls.Config{NextProtos: []string{"smb"}, ServerName: address}
	}
	qconn, err := quic.DialAddr(ctx, fmt.Sprintf("%s:%d", address, port), tlsConf, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: quic dial %s:%d: %w", address, port, err)
	}
	stream, err := qconn.OpenStreamSync(ctx)
	if err != nil {
		qconn.CloseWithError(0, "stream open failed")
		return nil, fmt.Errorf("transport: quic open stream: %w", err)
	}
	return newFramedConn(&quicStream{Stream: stream, conn: qconn}, qconn.RemoteAddr().String()), nil
}

// quicStream adapts a quic.Stream (whose Close only half-closes the send
// side) to this package's deadlineStream, closing the parent connection too
// so the transport as a whole tears down with the stream.
type quicStream struct {
	quic.Stream
	conn quic.Connection
}

func (s *quicStream) Close() error {
	err := s.Stream.Close()
	s.conn.CloseWithError(0, "")
	return err
}
