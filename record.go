package recursor

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// RData is the type-specific payload of a resource record. The set of
// implementations is closed: the codec decodes the types it knows and falls
// back to Opaque for everything else, so unknown records round-trip verbatim.
// Adding a record type means adding one implementation and one case in
// readRecord; the resolution engine is unaffected.
type RData interface {
	// Rtype returns the wire type code of the payload.
	Rtype() uint16
	encode(w *wireWriter) error
	String() string
}

// Record is one resource record from the answer, authority or additional
// section. Records are value objects; nothing in this package mutates one
// after it has been decoded or constructed.
type Record struct {
	Name  string
	Class uint16
	TTL   uint32
	Data  RData
}

// Type returns the wire type code of the record's payload.
func (rr *Record) Type() uint16 {
	return rr.Data.Rtype()
}

func (rr *Record) String() string {
	return fmt.Sprintf("%s.\t%d\tIN\t%s\t%s", rr.Name, rr.TTL, TypeToString(rr.Type()), rr.Data.String())
}

// A is an IPv4 address record.
type A struct {
	A netip.Addr
}

func (rd *A) Rtype() uint16 { return TypeA }

func (rd *A) encode(w *wireWriter) error {
	b := rd.A.As4()
	w.writeBytes(b[:])
	return nil
}

func (rd *A) String() string { return rd.A.String() }

// AAAA is an IPv6 address record.
type AAAA struct {
	AAAA netip.Addr
}

func (rd *AAAA) Rtype() uint16 { return TypeAAAA }

func (rd *AAAA) encode(w *wireWriter) error {
	b := rd.AAAA.As16()
	w.writeBytes(b[:])
	return nil
}

func (rd *AAAA) String() string { return rd.AAAA.String() }

// NS names a nameserver for the owner zone.
type NS struct {
	Ns string
}

func (rd *NS) Rtype() uint16 { return TypeNS }

func (rd *NS) encode(w *wireWriter) error {
	return w.writeName(rd.Ns)
}

func (rd *NS) String() string { return rd.Ns + "." }

// CNAME aliases the owner name to Target.
type CNAME struct {
	Target string
}

func (rd *CNAME) Rtype() uint16 { return TypeCNAME }

func (rd *CNAME) encode(w *wireWriter) error {
	return w.writeName(rd.Target)
}

func (rd *CNAME) String() string { return rd.Target + "." }

// MX names a mail exchange with its preference.
type MX struct {
	Preference uint16
	Mx         string
}

func (rd *MX) Rtype() uint16 { return TypeMX }

func (rd *MX) encode(w *wireWriter) error {
	w.writeU16(rd.Preference)
	return w.writeName(rd.Mx)
}

func (rd *MX) String() string {
	return strconv.Itoa(int(rd.Preference)) + " " + rd.Mx + "."
}

// SOA is the start-of-authority record for a zone.
type SOA struct {
	Ns      string
	Mbox    string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minttl  uint32
}

func (rd *SOA) Rtype() uint16 { return TypeSOA }

func (rd *SOA) encode(w *wireWriter) (err error) {
	if err = w.writeName(rd.Ns); err == nil {
		if err = w.writeName(rd.Mbox); err == nil {
			w.writeU32(rd.Serial)
			w.writeU32(rd.Refresh)
			w.writeU32(rd.Retry)
			w.writeU32(rd.Expire)
			w.writeU32(rd.Minttl)
		}
	}
	return
}

func (rd *SOA) String() string {
	return fmt.Sprintf("%s. %s. %d %d %d %d %d",
		rd.Ns, rd.Mbox, rd.Serial, rd.Refresh, rd.Retry, rd.Expire, rd.Minttl)
}

// TXT holds the character strings of a TXT record.
type TXT struct {
	Txt []string
}

func (rd *TXT) Rtype() uint16 { return TypeTXT }

func (rd *TXT) encode(w *wireWriter) error {
	for _, s := range rd.Txt {
		if len(s) > 255 {
			return errMalformed("txt string exceeds 255 octets")
		}
		w.writeU8(byte(len(s)))
		w.writeBytes([]byte(s))
	}
	return nil
}

func (rd *TXT) String() string {
	var sb strings.Builder
	for i, s := range rd.Txt {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Quote(s))
	}
	return sb.String()
}

// Opaque carries the raw payload of a record type the codec does not model.
type Opaque struct {
	Type uint16
	Data []byte
}

func (rd *Opaque) Rtype() uint16 { return rd.Type }

func (rd *Opaque) encode(w *wireWriter) error {
	w.writeBytes(rd.Data)
	return nil
}

func (rd *Opaque) String() string {
	return fmt.Sprintf("\\# %d %x", len(rd.Data), rd.Data)
}

func (r *wireReader) readRecord() (rr *Record, err error) {
	rr = &Record{}
	if rr.Name, err = r.readName(); err != nil {
		return nil, err
	}
	var rrtype, rdlen uint16
	if rrtype, err = r.readU16(); err != nil {
		return nil, err
	}
	if rr.Class, err = r.readU16(); err != nil {
		return nil, err
	}
	if rr.TTL, err = r.readU32(); err != nil {
		return nil, err
	}
	if rdlen, err = r.readU16(); err != nil {
		return nil, err
	}
	rdend := r.pos + int(rdlen)
	if rdend > len(r.buf) {
		return nil, errMalformed("rdata runs past end of buffer")
	}
	if rr.Data, err = r.readRData(rrtype, rdlen, rdend); err != nil {
		return nil, err
	}
	if r.pos != rdend {
		return nil, errMalformed("rdata length does not match contents")
	}
	return rr, nil
}

func (r *wireReader) readRData(rrtype, rdlen uint16, rdend int) (RData, error) {
	switch rrtype {
	case TypeA:
		if rdlen != 4 {
			return nil, errMalformed("bad A rdata length")
		}
		b, err := r.readBytes(4)
		if err != nil {
			return nil, err
		}
		return &A{A: netip.AddrFrom4([4]byte(b))}, nil
	case TypeAAAA:
		if rdlen != 16 {
			return nil, errMalformed("bad AAAA rdata length")
		}
		b, err := r.readBytes(16)
		if err != nil {
			return nil, err
		}
		return &AAAA{AAAA: netip.AddrFrom16([16]byte(b))}, nil
	case TypeNS:
		name, err := r.readName()
		if err != nil {
			return nil, err
		}
		return &NS{Ns: name}, nil
	case TypeCNAME:
		name, err := r.readName()
		if err != nil {
			return nil, err
		}
		return &CNAME{Target: name}, nil
	case TypeMX:
		pref, err := r.readU16()
		if err != nil {
			return nil, err
		}
		name, err := r.readName()
		if err != nil {
			return nil, err
		}
		return &MX{Preference: pref, Mx: name}, nil
	case TypeSOA:
		return r.readSOA()
	case TypeTXT:
		rd := &TXT{}
		for r.pos < rdend {
			ln, err := r.readU8()
			if err != nil {
				return nil, err
			}
			if r.pos+int(ln) > rdend {
				return nil, errMalformed("txt string runs past rdata")
			}
			b, err := r.readBytes(int(ln))
			if err != nil {
				return nil, err
			}
			rd.Txt = append(rd.Txt, string(b))
		}
		return rd, nil
	default:
		b, err := r.readBytes(int(rdlen))
		if err != nil {
			return nil, err
		}
		return &Opaque{Type: rrtype, Data: b}, nil
	}
}

func (r *wireReader) readSOA() (rd *SOA, err error) {
	rd = &SOA{}
	if rd.Ns, err = r.readName(); err != nil {
		return nil, err
	}
	if rd.Mbox, err = r.readName(); err != nil {
		return nil, err
	}
	if rd.Serial, err = r.readU32(); err != nil {
		return nil, err
	}
	if rd.Refresh, err = r.readU32(); err != nil {
		return nil, err
	}
	if rd.Retry, err = r.readU32(); err != nil {
		return nil, err
	}
	if rd.Expire, err = r.readU32(); err != nil {
		return nil, err
	}
	rd.Minttl, err = r.readU32()
	return
}

func (rr *Record) encode(w *wireWriter) (err error) {
	if err = w.writeName(rr.Name); err != nil {
		return err
	}
	w.writeU16(rr.Type())
	w.writeU16(rr.Class)
	w.writeU32(rr.TTL)
	pos := len(w.buf)
	w.writeU16(0) // rdata length, patched below
	if err = rr.Data.encode(w); err == nil {
		w.setU16(pos, uint16(len(w.buf)-pos-2)) // #nosec G115
	}
	return
}
