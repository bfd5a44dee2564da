package recursor

import (
	"context"
	"net"
	"net/netip"
	"time"

	"golang.org/x/net/proxy"
)

// Transport delivers one serialized query to one nameserver and returns the
// serialized response. Exactly one request/response pair per call: retry
// policy belongs to the resolution engine, which treats any returned error as
// "this candidate failed" and moves on.
type Transport interface {
	Exchange(ctx context.Context, query []byte, server netip.AddrPort) (resp []byte, err error)
}

var defaultNetDialer net.Dialer

// UDPTransport implements Transport over a single connected UDP socket per
// call. The dialer can be replaced to route queries through a proxy.
type UDPTransport struct {
	proxy.ContextDialer     // (read-only) dialer passed to NewUDPTransport
	MsgSize             int // receive buffer size, MaxMsgSize when zero
}

// NewUDPTransport returns a UDPTransport using the given dialer.
// Passing nil for dialer will use a net.Dialer.
func NewUDPTransport(dialer proxy.ContextDialer) *UDPTransport {
	if dialer == nil {
		dialer = &defaultNetDialer
	}
	return &UDPTransport{ContextDialer: dialer, MsgSize: MaxMsgSize}
}

func (t *UDPTransport) Exchange(ctx context.Context, query []byte, server netip.AddrPort) (resp []byte, err error) {
	network := "udp4"
	if server.Addr().Is6() {
		network = "udp6"
	}
	var nconn net.Conn
	if nconn, err = t.DialContext(ctx, network, server.String()); err == nil {
		defer nconn.Close()
		if deadline, ok := ctx.Deadline(); ok {
			_ = nconn.SetDeadline(deadline)
		}
		// unblock the read if the caller abandons the resolution
		stop := context.AfterFunc(ctx, func() { _ = nconn.SetDeadline(time.Unix(1, 0)) })
		defer stop()
		if _, err = nconn.Write(query); err == nil {
			size := t.MsgSize
			if size <= 0 {
				size = MaxMsgSize
			}
			buf := make([]byte, size)
			var n int
			if n, err = nconn.Read(buf); err == nil {
				resp = buf[:n]
			}
		}
	}
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return
}
