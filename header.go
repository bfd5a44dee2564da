package recursor

// Record type codes understood by the codec. Anything else decodes into Opaque.
const (
	TypeA     uint16 = 1
	TypeNS    uint16 = 2
	TypeCNAME uint16 = 5
	TypeSOA   uint16 = 6
	TypeMX    uint16 = 15
	TypeTXT   uint16 = 16
	TypeAAAA  uint16 = 28
)

// ClassINET is the only class this resolver queries for.
const ClassINET uint16 = 1

// Response codes.
const (
	RcodeNoError  = 0
	RcodeFormErr  = 1
	RcodeServFail = 2
	RcodeNXDomain = 3
	RcodeNotImp   = 4
	RcodeRefused  = 5
)

// RcodeToString maps response codes to their presentation names.
var RcodeToString = map[int]string{
	RcodeNoError:  "NOERROR",
	RcodeFormErr:  "FORMERR",
	RcodeServFail: "SERVFAIL",
	RcodeNXDomain: "NXDOMAIN",
	RcodeNotImp:   "NOTIMP",
	RcodeRefused:  "REFUSED",
}

const headerLen = 12

// header flag bits, high octet first
const (
	flagQR = 1 << 15
	flagAA = 1 << 10
	flagTC = 1 << 9
	flagRD = 1 << 8
	flagRA = 1 << 7
)

// Header is the fixed part of a DNS message. The four section counts are not
// stored here: they are derived from the section lengths on encode and only
// used to drive section parsing on decode.
type Header struct {
	ID                 uint16
	Response           bool
	Opcode             uint8
	Authoritative      bool
	Truncated          bool
	RecursionDesired   bool
	RecursionAvailable bool
	Rcode              int
}

type sectionCounts struct {
	qd, an, ns, ar uint16
}

func (r *wireReader) readHeader() (h Header, counts sectionCounts, err error) {
	if r.remaining() < headerLen {
		err = errMalformed("message shorter than header")
		return
	}
	h.ID, _ = r.readU16()
	var flags uint16
	flags, _ = r.readU16()
	h.Response = flags&flagQR != 0
	h.Opcode = uint8(flags >> 11 & 0xF)
	h.Authoritative = flags&flagAA != 0
	h.Truncated = flags&flagTC != 0
	h.RecursionDesired = flags&flagRD != 0
	h.RecursionAvailable = flags&flagRA != 0
	h.Rcode = int(flags & 0xF)
	counts.qd, _ = r.readU16()
	counts.an, _ = r.readU16()
	counts.ns, _ = r.readU16()
	counts.ar, _ = r.readU16()
	return
}

func (h *Header) encode(w *wireWriter, counts sectionCounts) {
	w.writeU16(h.ID)
	var flags uint16
	if h.Response {
		flags |= flagQR
	}
	flags |= uint16(h.Opcode&0xF) << 11
	if h.Authoritative {
		flags |= flagAA
	}
	if h.Truncated {
		flags |= flagTC
	}
	if h.RecursionDesired {
		flags |= flagRD
	}
	if h.RecursionAvailable {
		flags |= flagRA
	}
	flags |= uint16(h.Rcode & 0xF) // #nosec G115
	w.writeU16(flags)
	w.writeU16(counts.qd)
	w.writeU16(counts.an)
	w.writeU16(counts.ns)
	w.writeU16(counts.ar)
}
