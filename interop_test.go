package recursor

import (
	"net"
	"net/netip"
	"testing"

	"github.com/miekg/dns"
)

// Cross-validation against an independent wire format implementation.

func TestInteropDecodeExternalMessage(t *testing.T) {
	ext := new(dns.Msg)
	ext.SetQuestion("www.example.com.", dns.TypeA)
	ext.Id = 0x4242
	ext.RecursionDesired = true
	ext.Response = true
	ext.Rcode = dns.RcodeSuccess
	ext.Compress = true
	ext.Answer = []dns.RR{
		&dns.CNAME{Hdr: dns.RR_Header{Name: "www.example.com.", Rrtype: dns.TypeCNAME, Class: dns.ClassINET, Ttl: 300}, Target: "web.example.com."},
		&dns.A{Hdr: dns.RR_Header{Name: "web.example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 300}, A: net.ParseIP("192.0.2.80")},
	}
	ext.Ns = []dns.RR{
		&dns.NS{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 600}, Ns: "ns1.example.com."},
	}
	ext.Extra = []dns.RR{
		&dns.AAAA{Hdr: dns.RR_Header{Name: "ns1.example.com.", Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: 600}, AAAA: net.ParseIP("2001:db8::53")},
	}

	wire, err := ext.Pack()
	if err != nil {
		t.Fatal(err)
	}
	msg, err := DecodeMessage(wire)
	if err != nil {
		t.Fatal(err)
	}

	if msg.ID != 0x4242 || !msg.Response || !msg.RecursionDesired {
		t.Fatalf("header mismatch: %+v", msg.Header)
	}
	if len(msg.Question) != 1 || !equalNames(msg.Question[0].Name, "www.example.com") {
		t.Fatalf("question mismatch: %+v", msg.Question)
	}
	target, ok := msg.cnameFor("www.example.com")
	if !ok || !equalNames(target, "web.example.com") {
		t.Fatalf("cname mismatch: %q %v", target, ok)
	}
	addrs := msg.addrAnswers("web.example.com")
	if len(addrs) != 1 || addrs[0] != netip.MustParseAddr("192.0.2.80") {
		t.Fatalf("answer mismatch: %v", addrs)
	}
	hosts := msg.referralHosts("www.example.com")
	if len(hosts) != 1 || hosts[0] != "ns1.example.com" {
		t.Fatalf("authority mismatch: %v", hosts)
	}
	glue := msg.glueFor("ns1.example.com")
	if len(glue) != 1 || glue[0] != netip.MustParseAddr("2001:db8::53") {
		t.Fatalf("glue mismatch: %v", glue)
	}
}

func TestInteropEncodeForExternalDecoder(t *testing.T) {
	m := &Msg{
		Header: Header{ID: 0x5151, Response: true, Authoritative: true},
	}
	m.SetQuestion("example.com", TypeMX)
	m.Answer = []*Record{
		{Name: "example.com", Class: ClassINET, TTL: 3600, Data: &MX{Preference: 10, Mx: "mail.example.com"}},
		{Name: "example.com", Class: ClassINET, TTL: 3600, Data: &TXT{Txt: []string{"v=spf1 -all"}}},
	}
	m.Ns = []*Record{
		{Name: "example.com", Class: ClassINET, TTL: 3600, Data: &SOA{
			Ns: "ns1.example.com", Mbox: "hostmaster.example.com",
			Serial: 1, Refresh: 7200, Retry: 3600, Expire: 1209600, Minttl: 300,
		}},
	}

	wire, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	ext := new(dns.Msg)
	if err = ext.Unpack(wire); err != nil {
		t.Fatalf("external decoder rejected our message: %v", err)
	}

	if ext.Id != 0x5151 || !ext.Response || !ext.Authoritative {
		t.Fatalf("header mismatch: %+v", ext.MsgHdr)
	}
	if len(ext.Answer) != 2 || len(ext.Ns) != 1 {
		t.Fatalf("section counts: %d/%d", len(ext.Answer), len(ext.Ns))
	}
	mx, ok := ext.Answer[0].(*dns.MX)
	if !ok || mx.Preference != 10 || mx.Mx != "mail.example.com." {
		t.Fatalf("MX mismatch: %v", ext.Answer[0])
	}
	txt, ok := ext.Answer[1].(*dns.TXT)
	if !ok || len(txt.Txt) != 1 || txt.Txt[0] != "v=spf1 -all" {
		t.Fatalf("TXT mismatch: %v", ext.Answer[1])
	}
	soa, ok := ext.Ns[0].(*dns.SOA)
	if !ok || soa.Serial != 1 || soa.Ns != "ns1.example.com." {
		t.Fatalf("SOA mismatch: %v", ext.Ns[0])
	}
}
