package recursor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Server is the UDP boundary: it reads client datagrams, hands them to the
// codec and the resolver, and writes the replies back. Every failure is
// scoped to the datagram that caused it; nothing here is process-fatal.
type Server struct {
	Resolver  Resolver      // resolves the client questions
	Addr      string        // listen address, ":2053" if empty
	Timeout   time.Duration // per-query resolution budget, DefaultTimeout if zero
	LogWriter io.Writer     // if not nil, write per-query errors here

	pc net.PacketConn
}

// Listen binds the server's UDP socket.
func (s *Server) Listen() (err error) {
	addr := s.Addr
	if addr == "" {
		addr = ":2053"
	}
	s.pc, err = net.ListenPacket("udp", addr)
	return
}

// LocalAddr returns the bound address, or nil before Listen.
func (s *Server) LocalAddr() net.Addr {
	if s.pc != nil {
		return s.pc.LocalAddr()
	}
	return nil
}

// Close closes the server's socket, unblocking Serve.
func (s *Server) Close() (err error) {
	if s.pc != nil {
		err = s.pc.Close()
	}
	return
}

// ListenAndServe binds the socket and serves until ctx is done or the socket
// fails.
func (s *Server) ListenAndServe(ctx context.Context) (err error) {
	if err = s.Listen(); err == nil {
		err = s.Serve(ctx)
	}
	return
}

// Serve reads datagrams and dispatches each to its own goroutine, so one
// slow resolution does not block the next client.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.pc.Close() })
	defer stop()
	buf := make([]byte, MaxMsgSize)
	for {
		n, raddr, err := s.pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		go s.handle(ctx, pkt, raddr)
	}
}

func (s *Server) handle(ctx context.Context, pkt []byte, raddr net.Addr) {
	req, err := DecodeMessage(pkt)
	if err != nil {
		s.logf("dropping malformed query from %v: %v", raddr, err)
		// reply FORMERR when the transaction id is recoverable
		if len(pkt) >= 2 {
			reply := new(Msg)
			reply.ID = uint16(pkt[0])<<8 | uint16(pkt[1])
			reply.Response = true
			reply.Rcode = RcodeFormErr
			s.send(reply, raddr)
		}
		return
	}

	reply := new(Msg).SetReply(req)
	if len(req.Question) == 0 {
		reply.Rcode = RcodeFormErr
		s.send(reply, raddr)
		return
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	question := req.Question[0]
	msg, _, err := s.Resolver.Resolve(ctx, question.Name, question.Qtype)
	if err != nil {
		// resolution faults become SERVFAIL; upstream rcodes never error
		s.logf("%s %q from %v: %v", TypeToString(question.Qtype), question.Name, raddr, err)
		reply.Rcode = RcodeServFail
	} else {
		reply.Rcode = msg.Rcode
		reply.Answer = msg.Answer
		reply.Ns = msg.Ns
		reply.Extra = msg.Extra
	}
	s.send(reply, raddr)
}

// send encodes and writes a reply, truncating it when it does not fit the
// datagram size.
func (s *Server) send(reply *Msg, raddr net.Addr) {
	wire, err := reply.Encode()
	if errors.Is(err, ErrOversized) {
		trunc := *reply
		trunc.Truncated = true
		trunc.Answer, trunc.Ns, trunc.Extra = nil, nil, nil
		wire, err = trunc.Encode()
	}
	if err == nil {
		_, err = s.pc.WriteTo(wire, raddr)
	}
	if err != nil {
		s.logf("reply to %v: %v", raddr, err)
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.LogWriter != nil {
		fmt.Fprintf(s.LogWriter, format+"\n", args...)
	}
}
