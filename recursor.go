// Package recursor is a minimal recursive DNS resolver: it carries its own
// wire-format codec and resolves queries by walking the DNS hierarchy from a
// static set of root server hints, following referrals and CNAME chains until
// it holds an answer or a terminal response code.
package recursor

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"
	"slices"
	"strings"
	"time"
)

const (
	maxDepth = 16  // maximum referral hops and reentrant resolutions per query
	maxSteps = 100 // max number of upstream queries per resolution
)

// DefaultTimeout is the per-attempt timeout used when a Recursor's Timeout
// field is left zero.
var DefaultTimeout = time.Second * 5

// dnsPort is the standard DNS port (can be overridden for testing)
var dnsPort uint16 = 53

var _ Resolver = (*Recursor)(nil) // ensure we implement interface

// Recursor is the iterative resolution engine. Each Resolve call threads its
// own state, so a single Recursor may serve concurrent resolutions without
// locking.
type Recursor struct {
	Transport                        // (read-only) Transport passed to NewWithOptions
	Timeout          time.Duration   // per-attempt timeout, DefaultTimeout if zero
	DefaultLogWriter io.Writer       // if not nil, write debug logs here unless overridden
	TraceFn          TraceFunc       // if not nil, receives a TraceEvent per consultation and final answer
	rateLimiter      <-chan struct{} // (read-only) rate limiter passed to NewWithOptions
	roots            []netip.Addr    // (read-only) root hints passed to NewWithOptions
}

// NewWithOptions returns a Recursor using the given Transport, root hints and
// rate limiter.
//
// Passing nil for the transport will use a UDPTransport with a net.Dialer.
// Passing nil for the roots will use Roots4.
// Passing nil for the rateLimiter means no rate limiting.
func NewWithOptions(tr Transport, roots []netip.Addr, rateLimiter <-chan struct{}) *Recursor {
	if tr == nil {
		tr = NewUDPTransport(nil)
	}
	if roots == nil {
		roots = Roots4
	}
	return &Recursor{
		Transport:   tr,
		Timeout:     DefaultTimeout,
		rateLimiter: rateLimiter,
		roots:       slices.Clone(roots),
	}
}

// New returns a Recursor with the default UDP transport and root hints.
func New() *Recursor {
	return NewWithOptions(nil, nil, nil)
}

// Roots returns the root hints in use.
func (r *Recursor) Roots() []netip.Addr {
	return slices.Clone(r.roots)
}

// Resolve performs an iterative resolution of qname and qtype starting from
// the root hints. It returns the final message, the address of the
// nameserver that supplied it, and an error only for resolution-level faults
// (ErrAliasLoop, ErrMaxDepth, ErrNoServers); upstream response codes such as
// NXDOMAIN or REFUSED are answers, returned verbatim in the message.
func (r *Recursor) Resolve(ctx context.Context, qname string, qtype uint16) (msg *Msg, srv netip.Addr, err error) {
	return r.ResolveWithOptions(ctx, nil, qname, qtype)
}

// ResolveWithOptions is Resolve with an explicit debug log destination;
// if logw is nil, DefaultLogWriter is used.
func (r *Recursor) ResolveWithOptions(ctx context.Context, logw io.Writer, qname string, qtype uint16) (msg *Msg, srv netip.Addr, err error) {
	if logw == nil {
		logw = r.DefaultLogWriter
	}
	qname = strings.TrimSuffix(qname, ".")
	q := &query{
		Recursor: r,
		start:    time.Now(),
		logw:     logw,
	}
	msg, srv, err = q.run(ctx, qname, qtype)
	if r.TraceFn != nil {
		ev := TraceEvent{Qname: qname, Qtype: qtype, Server: srv, Final: true, Err: err}
		if msg != nil {
			ev.Rcode = msg.Rcode
			ev.Answer = len(msg.Answer)
			ev.Ns = len(msg.Ns)
			ev.Extra = len(msg.Extra)
		}
		r.TraceFn(ev)
	}
	if logw != nil {
		if msg != nil {
			fmt.Fprintf(logw, "\n%v", msg)
		}
		fmt.Fprintf(logw, "\n;; Sent %v queries in %v", q.sent, time.Since(q.start).Round(time.Millisecond))
		if srv.IsValid() {
			fmt.Fprintf(logw, "\n;; SERVER: %v", srv)
		}
		if err != nil {
			fmt.Fprintf(logw, "\n;; ERROR: %v", err)
		}
		fmt.Fprintln(logw)
	}
	return
}

func newID() uint16 {
	var b [2]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic(err)
	}
	return binary.BigEndian.Uint16(b[:])
}
