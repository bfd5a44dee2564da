package recursor

import (
	"bytes"
	"errors"
	"net/netip"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeQueryExactBytes(t *testing.T) {
	req := new(Msg)
	req.ID = 0x1234
	req.RecursionDesired = true
	req.SetQuestion("google.com", TypeA)

	wire, err := req.Encode()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x12, 0x34, // id
		0x01, 0x00, // flags: rd
		0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // counts
		6, 'g', 'o', 'o', 'g', 'l', 'e', 3, 'c', 'o', 'm', 0,
		0x00, 0x01, // qtype A
		0x00, 0x01, // qclass IN
	}
	if !bytes.Equal(wire, want) {
		t.Fatalf("encoded query mismatch:\n got %x\nwant %x", wire, want)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	m := &Msg{
		Header: Header{
			ID:                 0xBEEF,
			Response:           true,
			Authoritative:      true,
			RecursionDesired:   true,
			RecursionAvailable: true,
			Rcode:              RcodeNoError,
		},
		Question: []Question{{Name: "www.example.com", Qtype: TypeA, Qclass: ClassINET}},
		Answer: []*Record{
			rrCNAME("www.example.com", "web.example.com"),
			rrA("web.example.com", "192.0.2.80"),
		},
		Ns: []*Record{
			rrNS("example.com", "ns1.example.com"),
		},
		Extra: []*Record{
			rrA("ns1.example.com", "192.0.2.53"),
			rrAAAA("ns1.example.com", "2001:db8::53"),
		},
	}

	wire, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeMessage(wire)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m, got) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, m)
	}
}

func TestEncodeCompressesOwnerNames(t *testing.T) {
	m := new(Msg)
	m.SetQuestion("host.example.com", TypeA)
	m.Answer = []*Record{rrA("host.example.com", "192.0.2.1")}

	wire, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	// the answer owner repeats the question name, so it must be a pointer
	// to offset 12 where the question name starts
	want := []byte{0xC0, 0x0C}
	if !bytes.Contains(wire, want) {
		t.Fatalf("no compression pointer in %x", wire)
	}
}

func TestDecodeRejectsShortHeader(t *testing.T) {
	if _, err := DecodeMessage([]byte{0x12, 0x34, 0x00}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeRejectsInflatedCounts(t *testing.T) {
	buf := make([]byte, headerLen)
	buf[6], buf[7] = 0xFF, 0xFF // ancount 65535 with nothing following
	if _, err := DecodeMessage(buf); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeRejectsTruncatedRecord(t *testing.T) {
	m := new(Msg)
	m.SetQuestion("example.com", TypeA)
	m.Answer = []*Record{rrA("example.com", "192.0.2.1")}
	wire, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if _, err = DecodeMessage(wire[:len(wire)-2]); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestEncodeOversized(t *testing.T) {
	m := new(Msg)
	m.SetQuestion("example.com", TypeTXT)
	for range 3 {
		m.Answer = append(m.Answer, &Record{
			Name:  "example.com",
			Class: ClassINET,
			TTL:   60,
			Data:  &TXT{Txt: []string{strings.Repeat("x", 250)}},
		})
	}
	if _, err := m.Encode(); !errors.Is(err, ErrOversized) {
		t.Fatalf("expected ErrOversized, got %v", err)
	}
	// no limit, no error
	if _, err := m.EncodeLimit(0); err != nil {
		t.Fatalf("EncodeLimit(0): %v", err)
	}
}

func TestSetReply(t *testing.T) {
	req := new(Msg)
	req.ID = 42
	req.RecursionDesired = true
	req.SetQuestion("example.com", TypeMX)

	reply := new(Msg).SetReply(req)
	if reply.ID != 42 || !reply.Response || !reply.RecursionDesired || !reply.RecursionAvailable {
		t.Fatalf("bad reply header: %+v", reply.Header)
	}
	if len(reply.Question) != 1 || reply.Question[0] != req.Question[0] {
		t.Fatalf("question not echoed: %+v", reply.Question)
	}
}

func TestCopyIsolatesSections(t *testing.T) {
	m := new(Msg)
	m.Answer = []*Record{rrA("example.com", "192.0.2.1")}
	n := m.Copy()
	n.Answer = append(n.Answer, rrA("example.com", "192.0.2.2"))
	if len(m.Answer) != 1 {
		t.Fatal("copy shares answer slice")
	}
}

func TestReferralHelpers(t *testing.T) {
	m := &Msg{
		Ns: []*Record{
			rrNS("example.com", "ns1.example.com"),
			rrNS("example.com", "NS1.EXAMPLE.COM"), // dup, different case
			rrNS("other.test", "ns.other.test"),    // not our zone
		},
		Extra: []*Record{
			rrA("ns1.example.com", "192.0.2.53"),
			rrAAAA("ns1.example.com", "2001:db8::53"),
		},
	}
	hosts := m.referralHosts("www.example.com")
	if !reflect.DeepEqual(hosts, []string{"ns1.example.com"}) {
		t.Fatalf("referralHosts: %v", hosts)
	}
	addrs := m.glueFor("ns1.example.com")
	want := []netip.Addr{netip.MustParseAddr("192.0.2.53"), netip.MustParseAddr("2001:db8::53")}
	if !reflect.DeepEqual(addrs, want) {
		t.Fatalf("glueFor: %v", addrs)
	}
}

func TestMsgString(t *testing.T) {
	m := new(Msg)
	m.Rcode = RcodeNXDomain
	m.SetQuestion("missing.example.com", TypeA)
	s := m.String()
	for _, want := range []string{"NXDOMAIN", "missing.example.com.", "QUESTION SECTION"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}
