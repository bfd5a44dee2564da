package recursor

import (
	"encoding/binary"
	"strings"
)

const (
	// MaxMsgSize is the maximum size of a plain UDP DNS datagram.
	MaxMsgSize = 512

	maxLabelLen = 63  // octets per label
	maxNameLen  = 255 // octets per encoded name, including length bytes and the root
	maxPtrJumps = 5   // compression pointer hops allowed per name
)

// wireReader decodes the DNS wire format from a single datagram. Compression
// pointers may reference any strictly earlier offset in the same buffer, so
// the reader keeps the whole datagram.
type wireReader struct {
	buf []byte
	pos int
}

func (r *wireReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *wireReader) readU8() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errMalformed("end of buffer")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *wireReader) readU16() (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, errMalformed("end of buffer")
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *wireReader) readU32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, errMalformed("end of buffer")
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *wireReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, errMalformed("end of buffer")
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:])
	r.pos += n
	return b, nil
}

// readName decodes a domain name starting at the current position, following
// compression pointers. A pointer must reference a strictly earlier offset
// than the position it was read from, which rules out self and forward
// references; the jump count is capped as well so a hostile datagram cannot
// keep the reader busy. Label case is preserved.
func (r *wireReader) readName() (string, error) {
	var sb strings.Builder
	pos := r.pos
	jumped := false
	jumps := 0
	encoded := 1 // the terminating zero octet
	for {
		if pos >= len(r.buf) {
			return "", errMalformed("name runs past end of buffer")
		}
		ln := int(r.buf[pos])
		switch {
		case ln&0xC0 == 0xC0:
			if jumps >= maxPtrJumps {
				return "", errMalformed("too many compression pointer jumps")
			}
			if pos+1 >= len(r.buf) {
				return "", errMalformed("truncated compression pointer")
			}
			target := (ln&0x3F)<<8 | int(r.buf[pos+1])
			if target >= pos {
				return "", errMalformed("compression pointer does not point backward")
			}
			if !jumped {
				r.pos = pos + 2
				jumped = true
			}
			pos = target
			jumps++
		case ln&0xC0 != 0:
			return "", errMalformed("reserved label type")
		case ln == 0:
			if !jumped {
				r.pos = pos + 1
			}
			return sb.String(), nil
		default:
			pos++
			if pos+ln > len(r.buf) {
				return "", errMalformed("label runs past end of buffer")
			}
			if encoded += ln + 1; encoded > maxNameLen {
				return "", errMalformed("name exceeds 255 octets")
			}
			if sb.Len() > 0 {
				sb.WriteByte('.')
			}
			sb.Write(r.buf[pos : pos+ln])
			pos += ln
		}
	}
}

// wireWriter builds a DNS datagram. Names already written are remembered so
// later occurrences of the same name or suffix can be replaced by a backward
// compression pointer.
type wireWriter struct {
	buf   []byte
	names map[string]int
}

func (w *wireWriter) writeU8(v byte) {
	w.buf = append(w.buf, v)
}

func (w *wireWriter) writeU16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *wireWriter) writeU32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *wireWriter) writeBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *wireWriter) setU16(pos int, v uint16) {
	binary.BigEndian.PutUint16(w.buf[pos:], v)
}

// writeName encodes a domain name, compressing suffixes already present in
// the buffer. Compression pointers can only address the first 0x4000 octets,
// so offsets beyond that are written in full and not remembered.
func (w *wireWriter) writeName(name string) error {
	labels := splitName(name)
	encoded := 1
	for _, label := range labels {
		if len(label) > maxLabelLen {
			return errMalformed("label exceeds 63 octets")
		}
		encoded += len(label) + 1
	}
	if encoded > maxNameLen {
		return errMalformed("name exceeds 255 octets")
	}
	for i, label := range labels {
		suffix := strings.ToLower(strings.Join(labels[i:], "."))
		if off, ok := w.names[suffix]; ok {
			w.writeU16(0xC000 | uint16(off)) // #nosec G115 -- off < 0x4000
			return nil
		}
		if off := len(w.buf); off < 0x4000 {
			if w.names == nil {
				w.names = make(map[string]int)
			}
			w.names[suffix] = off
		}
		w.writeU8(byte(len(label)))
		w.writeBytes([]byte(label))
	}
	w.writeU8(0)
	return nil
}

// splitName splits a dotted name into labels, tolerating a trailing dot and
// treating "" and "." as the root name.
func splitName(name string) (labels []string) {
	for label := range strings.SplitSeq(name, ".") {
		if label != "" {
			labels = append(labels, label)
		}
	}
	return
}
