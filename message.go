package recursor

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
)

// Msg is one DNS message: a header and the four sections in wire order.
// Section order is preserved exactly as received or produced.
type Msg struct {
	Header
	Question []Question
	Answer   []*Record
	Ns       []*Record
	Extra    []*Record
}

// DecodeMessage parses a DNS datagram. It is pure: malformed input yields an
// error wrapping ErrMalformed and never panics or reads out of bounds.
func DecodeMessage(buf []byte) (*Msg, error) {
	r := &wireReader{buf: buf}
	h, counts, err := r.readHeader()
	if err != nil {
		return nil, err
	}
	// Cheapest possible encodings are 5 octets per question and 11 per record,
	// so inflated section counts are rejected before any allocation.
	need := int(counts.qd)*5 + (int(counts.an)+int(counts.ns)+int(counts.ar))*11
	if need > r.remaining() {
		return nil, errMalformed("section counts exceed buffer length")
	}
	m := &Msg{Header: h}
	for range counts.qd {
		q, err := r.readQuestion()
		if err != nil {
			return nil, err
		}
		m.Question = append(m.Question, q)
	}
	sections := []*[]*Record{&m.Answer, &m.Ns, &m.Extra}
	for i, n := range []uint16{counts.an, counts.ns, counts.ar} {
		for range n {
			rr, err := r.readRecord()
			if err != nil {
				return nil, err
			}
			*sections[i] = append(*sections[i], rr)
		}
	}
	return m, nil
}

// Encode serializes the message, failing with an error wrapping ErrOversized
// if the result would not fit in a plain UDP datagram.
func (m *Msg) Encode() ([]byte, error) {
	return m.EncodeLimit(MaxMsgSize)
}

// EncodeLimit serializes the message with the given size limit; limit <= 0
// means unlimited. Section counts are always recomputed from the actual
// section lengths.
func (m *Msg) EncodeLimit(limit int) ([]byte, error) {
	w := &wireWriter{buf: make([]byte, 0, headerLen+64)}
	counts := sectionCounts{
		qd: uint16(len(m.Question)), // #nosec G115
		an: uint16(len(m.Answer)),   // #nosec G115
		ns: uint16(len(m.Ns)),       // #nosec G115
		ar: uint16(len(m.Extra)),    // #nosec G115
	}
	m.Header.encode(w, counts)
	for i := range m.Question {
		if err := m.Question[i].encode(w); err != nil {
			return nil, err
		}
	}
	for _, section := range [][]*Record{m.Answer, m.Ns, m.Extra} {
		for _, rr := range section {
			if err := rr.encode(w); err != nil {
				return nil, err
			}
		}
	}
	if limit > 0 && len(w.buf) > limit {
		return nil, fmt.Errorf("%w: %d > %d octets", ErrOversized, len(w.buf), limit)
	}
	return w.buf, nil
}

// SetQuestion makes m a single-question query for name and qtype.
func (m *Msg) SetQuestion(name string, qtype uint16) *Msg {
	m.Question = []Question{{Name: strings.TrimSuffix(name, "."), Qtype: qtype, Qclass: ClassINET}}
	return m
}

// SetReply makes m a response to req: the transaction id and the question are
// echoed, the recursion-desired bit is copied and recursion-available is set.
func (m *Msg) SetReply(req *Msg) *Msg {
	m.ID = req.ID
	m.Response = true
	m.Opcode = req.Opcode
	m.RecursionDesired = req.RecursionDesired
	m.RecursionAvailable = true
	if len(req.Question) > 0 {
		m.Question = []Question{req.Question[0]}
	}
	return m
}

// Copy returns a copy of m with its own section slices. The records
// themselves are shared; they are immutable by convention.
func (m *Msg) Copy() *Msg {
	n := *m
	n.Question = slices.Clone(m.Question)
	n.Answer = slices.Clone(m.Answer)
	n.Ns = slices.Clone(m.Ns)
	n.Extra = slices.Clone(m.Extra)
	return &n
}

// hasAnswer reports whether the answer section holds a record for qname of
// the given type. Names compare case-insensitively.
func (m *Msg) hasAnswer(qname string, qtype uint16) bool {
	for _, rr := range m.Answer {
		if rr.Type() == qtype && equalNames(rr.Name, qname) {
			return true
		}
	}
	return false
}

// cnameFor returns the target of a CNAME record owned by qname, if any.
func (m *Msg) cnameFor(qname string) (target string, ok bool) {
	for _, rr := range m.Answer {
		if cn, isCname := rr.Data.(*CNAME); isCname && equalNames(rr.Name, qname) {
			return cn.Target, true
		}
	}
	return "", false
}

// referralHosts returns the nameserver names from authority section NS
// records whose zone covers qname, in the order presented, deduplicated.
func (m *Msg) referralHosts(qname string) (hosts []string) {
	seen := map[string]struct{}{}
	for _, rr := range m.Ns {
		if ns, ok := rr.Data.(*NS); ok && nameInZone(qname, rr.Name) {
			host := canonicalName(ns.Ns)
			if _, dup := seen[host]; !dup {
				seen[host] = struct{}{}
				hosts = append(hosts, host)
			}
		}
	}
	return
}

// glueFor returns the addresses of additional-section A and AAAA records
// owned by host, in the order presented.
func (m *Msg) glueFor(host string) (addrs []netip.Addr) {
	for _, rr := range m.Extra {
		if equalNames(rr.Name, host) {
			if addr := addrFromRecord(rr); addr.IsValid() {
				addrs = append(addrs, addr)
			}
		}
	}
	return
}

// addrAnswers returns the addresses of answer-section A and AAAA records
// owned by host.
func (m *Msg) addrAnswers(host string) (addrs []netip.Addr) {
	for _, rr := range m.Answer {
		if equalNames(rr.Name, host) {
			if addr := addrFromRecord(rr); addr.IsValid() {
				addrs = append(addrs, addr)
			}
		}
	}
	return
}

func addrFromRecord(rr *Record) netip.Addr {
	switch rd := rr.Data.(type) {
	case *A:
		return rd.A
	case *AAAA:
		return rd.AAAA
	}
	return netip.Addr{}
}

// String renders the message in a dig-like presentation format.
func (m *Msg) String() string {
	var sb strings.Builder
	rcode := RcodeToString[m.Rcode]
	if rcode == "" {
		rcode = fmt.Sprintf("RCODE%d", m.Rcode)
	}
	fmt.Fprintf(&sb, ";; opcode: %d, status: %s, id: %d\n", m.Opcode, rcode, m.ID)
	fmt.Fprintf(&sb, ";; flags:")
	for _, f := range []struct {
		set  bool
		name string
	}{
		{m.Response, "qr"},
		{m.Authoritative, "aa"},
		{m.Truncated, "tc"},
		{m.RecursionDesired, "rd"},
		{m.RecursionAvailable, "ra"},
	} {
		if f.set {
			sb.WriteByte(' ')
			sb.WriteString(f.name)
		}
	}
	fmt.Fprintf(&sb, "; QUERY: %d, ANSWER: %d, AUTHORITY: %d, ADDITIONAL: %d\n",
		len(m.Question), len(m.Answer), len(m.Ns), len(m.Extra))
	if len(m.Question) > 0 {
		sb.WriteString("\n;; QUESTION SECTION:\n")
		for _, q := range m.Question {
			fmt.Fprintf(&sb, ";%s.\tIN\t%s\n", q.Name, TypeToString(q.Qtype))
		}
	}
	for _, section := range []struct {
		name string
		rrs  []*Record
	}{
		{"ANSWER", m.Answer},
		{"AUTHORITY", m.Ns},
		{"ADDITIONAL", m.Extra},
	} {
		if len(section.rrs) > 0 {
			fmt.Fprintf(&sb, "\n;; %s SECTION:\n", section.name)
			for _, rr := range section.rrs {
				sb.WriteString(rr.String())
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}
