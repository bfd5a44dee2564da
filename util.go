package recursor

import (
	"strconv"
	"strings"
)

var typeNames = map[uint16]string{
	TypeA:     "A",
	TypeNS:    "NS",
	TypeCNAME: "CNAME",
	TypeSOA:   "SOA",
	TypeMX:    "MX",
	TypeTXT:   "TXT",
	TypeAAAA:  "AAAA",
}

// TypeToString returns the presentation name of a record type code, or the
// number itself for types the record model does not know.
func TypeToString(qtype uint16) string {
	if s, ok := typeNames[qtype]; ok {
		return s
	}
	return strconv.Itoa(int(qtype))
}

// canonicalName lowercases a name and strips any trailing dot. The codec
// preserves label case on the wire; comparisons go through this form.
func canonicalName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

func equalNames(a, b string) bool {
	return canonicalName(a) == canonicalName(b)
}

// nameInZone reports whether name is inside zone, where the root zone
// contains everything.
func nameInZone(name, zone string) bool {
	name = canonicalName(name)
	zone = canonicalName(zone)
	if zone == "" {
		return true
	}
	return name == zone || strings.HasSuffix(name, "."+zone)
}
