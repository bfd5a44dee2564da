package recursor

import (
	"context"
	"net"
	"net/netip"
)

// net.Resolver-style lookup helpers over the engine

func (r *Recursor) lookupAddrs(ctx context.Context, addrs []netip.Addr, host string, qtype uint16) ([]netip.Addr, error) {
	msg, _, err := r.Resolve(ctx, host, qtype)
	if msg != nil {
		for _, rr := range msg.Answer {
			if addr := addrFromRecord(rr); addr.IsValid() {
				addrs = append(addrs, addr)
			}
		}
	}
	return addrs, err
}

// LookupNetIP resolves host to addresses; network is "ip", "ip4" or "ip6".
func (r *Recursor) LookupNetIP(ctx context.Context, network, host string) (addrs []netip.Addr, err error) {
	if network == "ip" || network == "ip4" {
		addrs, err = r.lookupAddrs(ctx, addrs, host, TypeA)
	}
	if network == "ip" || network == "ip6" {
		addrs, err = r.lookupAddrs(ctx, addrs, host, TypeAAAA)
	}
	if len(addrs) > 0 {
		err = nil
	}
	return
}

// LookupIP is LookupNetIP returning net.IP values.
func (r *Recursor) LookupIP(ctx context.Context, network, host string) (ips []net.IP, err error) {
	var addrs []netip.Addr
	if addrs, err = r.LookupNetIP(ctx, network, host); err == nil {
		for _, addr := range addrs {
			ips = append(ips, addr.AsSlice())
		}
	}
	return
}

// LookupHost resolves host to address strings.
func (r *Recursor) LookupHost(ctx context.Context, host string) (out []string, err error) {
	var addrs []netip.Addr
	if addrs, err = r.LookupNetIP(ctx, "ip", host); err == nil {
		for _, addr := range addrs {
			out = append(out, addr.String())
		}
	}
	return
}

// LookupNS returns the nameservers for name.
func (r *Recursor) LookupNS(ctx context.Context, name string) (nslist []*net.NS, err error) {
	var msg *Msg
	if msg, _, err = r.Resolve(ctx, name, TypeNS); err == nil {
		for _, rr := range msg.Answer {
			if ns, ok := rr.Data.(*NS); ok {
				nslist = append(nslist, &net.NS{Host: ns.Ns + "."})
			}
		}
	}
	return
}

// LookupTXT returns the TXT strings for name, one entry per record with the
// record's character strings concatenated.
func (r *Recursor) LookupTXT(ctx context.Context, name string) (txts []string, err error) {
	var msg *Msg
	if msg, _, err = r.Resolve(ctx, name, TypeTXT); err == nil {
		for _, rr := range msg.Answer {
			if txt, ok := rr.Data.(*TXT); ok {
				var s string
				for _, part := range txt.Txt {
					s += part
				}
				txts = append(txts, s)
			}
		}
	}
	return
}
