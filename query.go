package recursor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"slices"
	"time"
)

// query threads the state of one resolution: the depth and step budgets, the
// set of CNAME targets already followed, and the debug log destination. It is
// never shared between resolutions.
type query struct {
	*Recursor
	start   time.Time
	logw    io.Writer
	depth   int
	sent    int
	steps   int
	aliases map[string]struct{}
}

func (q *query) dbg() bool {
	return q.logw != nil
}

func (q *query) log(format string, args ...any) bool {
	fmt.Fprintf(q.logw, "[%-5d %2d] %*s", time.Since(q.start).Milliseconds(), q.depth, q.depth, "")
	fmt.Fprintf(q.logw, format, args...)
	return false
}

func (q *query) dive() (err error) {
	err = ErrMaxDepth
	if q.depth < maxDepth {
		q.depth++
		err = nil
	}
	return
}

func (q *query) surface() {
	q.depth--
}

// followAlias returns true if the CNAME target has not been followed yet
// during this resolution.
func (q *query) followAlias(target string) bool {
	if q.aliases == nil {
		q.aliases = make(map[string]struct{})
	}
	cn := canonicalName(target)
	_, ok := q.aliases[cn]
	if !ok {
		q.aliases[cn] = struct{}{}
	}
	return !ok
}

// run performs the iterative root-to-answer walk for qname and qtype. It is
// reentered for CNAME targets and for glueless nameserver addresses, sharing
// the depth budget so termination is bounded uniformly.
func (q *query) run(ctx context.Context, qname string, qtype uint16) (msg *Msg, srv netip.Addr, err error) {
	if err = q.dive(); err != nil {
		return
	}
	defer q.surface()

	candidates := slices.Clone(q.roots)
	for range maxDepth {
		if q.dbg() {
			q.log("QUERY %s %q from %v\n", TypeToString(qtype), qname, candidates[:min(4, len(candidates))])
		}

		var resp *Msg
		var from netip.Addr
		if resp, from, err = q.ask(ctx, candidates, qname, qtype); err != nil {
			return nil, netip.Addr{}, err
		}

		// Terminal response codes are answers, not faults.
		if resp.Rcode != RcodeNoError {
			_ = q.dbg() && q.log("ANSWER %s for %s %q\n", RcodeToString[resp.Rcode], TypeToString(qtype), qname)
			return resp, from, nil
		}

		if resp.hasAnswer(qname, qtype) {
			_ = q.dbg() && q.log("ANSWER %s %q with %d records\n", TypeToString(qtype), qname, len(resp.Answer))
			return resp, from, nil
		}

		if target, ok := resp.cnameFor(qname); ok && qtype != TypeCNAME {
			return q.chaseAlias(ctx, resp, from, qname, target, qtype)
		}

		var next []netip.Addr
		if next, err = q.delegation(ctx, resp, qname); err != nil {
			return nil, from, err
		}
		if len(next) == 0 {
			// no answer, no referral: surface the response as-is
			_ = q.dbg() && q.log("ANSWER %s (empty) for %s %q\n", RcodeToString[resp.Rcode], TypeToString(qtype), qname)
			return resp, from, nil
		}
		candidates = next
	}
	return nil, netip.Addr{}, ErrMaxDepth
}

// ask tries each candidate in the order presented until one produces a
// decodable response. Transport errors, timeouts and mismatched transaction
// ids mean "this candidate failed"; only when every candidate has failed does
// the resolution itself fail.
func (q *query) ask(ctx context.Context, candidates []netip.Addr, qname string, qtype uint16) (msg *Msg, srv netip.Addr, err error) {
	var errs []error
	for _, nsaddr := range candidates {
		var m *Msg
		if m, err = q.exchange(ctx, nsaddr, qname, qtype); err == nil {
			return m, nsaddr, nil
		}
		if errors.Is(err, ErrMaxSteps) || errors.Is(err, ErrMaxDepth) {
			return nil, netip.Addr{}, err
		}
		_ = q.dbg() && q.log("FAILED @%v %s %q: %v\n", nsaddr, TypeToString(qtype), qname, err)
		errs = append(errs, err)
	}
	return nil, netip.Addr{}, errors.Join(ErrNoServers, errors.Join(errs...))
}

// exchange sends one query to one nameserver and decodes the reply.
func (q *query) exchange(ctx context.Context, nsaddr netip.Addr, qname string, qtype uint16) (msg *Msg, err error) {
	q.steps++
	if q.steps > maxSteps {
		return nil, ErrMaxSteps
	}
	if q.rateLimiter != nil {
		<-q.rateLimiter
	}

	req := new(Msg)
	req.ID = newID()
	req.RecursionDesired = true
	req.SetQuestion(qname, qtype)
	var wire []byte
	if wire, err = req.Encode(); err != nil {
		return nil, err
	}

	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	q.sent++
	var resp []byte
	if resp, err = q.Exchange(ctx, wire, netip.AddrPortFrom(nsaddr, dnsPort)); err == nil {
		if msg, err = DecodeMessage(resp); err == nil {
			if msg.ID != req.ID {
				msg, err = nil, ErrIDMismatch
			}
		}
	}

	if q.TraceFn != nil {
		ev := TraceEvent{Qname: qname, Qtype: qtype, Server: nsaddr, Err: err}
		if msg != nil {
			ev.Rcode = msg.Rcode
			ev.Answer = len(msg.Answer)
			ev.Ns = len(msg.Ns)
			ev.Extra = len(msg.Extra)
		}
		q.TraceFn(ev)
	}
	if q.dbg() {
		q.log("SENT @%v %s %q", nsaddr, TypeToString(qtype), qname)
		if msg != nil {
			fmt.Fprintf(q.logw, " => %s [%v+%v+%v A/N/E] (%v)",
				RcodeToString[msg.Rcode],
				len(msg.Answer), len(msg.Ns), len(msg.Extra),
				time.Since(started).Round(time.Millisecond))
		}
		if err != nil {
			fmt.Fprintf(q.logw, " error: %v", err)
		}
		fmt.Fprintln(q.logw)
	}
	return
}

// chaseAlias restarts resolution for a CNAME target under the original
// question's type, then merges the chased answers onto a copy of the message
// that carried the alias.
func (q *query) chaseAlias(ctx context.Context, base *Msg, from netip.Addr, qname, target string, qtype uint16) (msg *Msg, srv netip.Addr, err error) {
	if !q.followAlias(target) {
		_ = q.dbg() && q.log("CNAME LOOP %q => %q\n", qname, target)
		return nil, from, ErrAliasLoop
	}
	_ = q.dbg() && q.log("CNAME QUERY %q => %q\n", qname, target)
	var cnmsg *Msg
	if cnmsg, srv, err = q.run(ctx, target, qtype); err != nil {
		return nil, srv, err
	}
	_ = q.dbg() && q.log("CNAME ANSWER %s %q with %v records\n", RcodeToString[cnmsg.Rcode], target, len(cnmsg.Answer))
	msg = base.Copy()
	msg.Answer = append(msg.Answer, cnmsg.Answer...)
	msg.Rcode = cnmsg.Rcode
	return msg, srv, nil
}

// delegation extracts the next candidate nameserver addresses from a
// referral. Glue addresses from the additional section are used when present;
// otherwise each delegated nameserver's own address is resolved by reentering
// the engine under the shared depth budget. A referral that yields no usable
// address at all fails with ErrNoServers rather than silently succeeding.
func (q *query) delegation(ctx context.Context, resp *Msg, qname string) (addrs []netip.Addr, err error) {
	hosts := resp.referralHosts(qname)
	if len(hosts) == 0 {
		return nil, nil
	}
	for _, host := range hosts {
		addrs = append(addrs, resp.glueFor(host)...)
	}
	if len(addrs) == 0 {
		_ = q.dbg() && q.log("no glue for %v\n", hosts)
		for _, host := range hosts {
			m, _, gerr := q.run(ctx, host, TypeA)
			if gerr != nil {
				if errors.Is(gerr, ErrMaxDepth) || errors.Is(gerr, ErrMaxSteps) {
					return nil, gerr
				}
				continue
			}
			if addrs = m.addrAnswers(host); len(addrs) > 0 {
				break
			}
		}
	}
	if len(addrs) == 0 {
		return nil, ErrNoServers
	}
	return dedupeAddrs(addrs), nil
}

func dedupeAddrs(addrs []netip.Addr) (out []netip.Addr) {
	for _, addr := range addrs {
		if !slices.Contains(out, addr) {
			out = append(out, addr)
		}
	}
	return
}
