package recursor

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadNameRejectsForwardPointer(t *testing.T) {
	// pointer at offset 2 referencing offset 4, ahead of itself
	buf := []byte{0, 0, 0xC0, 0x04, 0, 0}
	r := &wireReader{buf: buf, pos: 2}
	if _, err := r.readName(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestReadNameRejectsSelfPointer(t *testing.T) {
	buf := []byte{0, 0, 0xC0, 0x02}
	r := &wireReader{buf: buf, pos: 2}
	if _, err := r.readName(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestReadNamePointerJumpLimit(t *testing.T) {
	// root label at 0, then pointers each referencing the previous one
	buf := []byte{
		0x00,       // 0: root
		0xC0, 0x00, // 1
		0xC0, 0x01, // 3
		0xC0, 0x03, // 5
		0xC0, 0x05, // 7
		0xC0, 0x07, // 9
		0xC0, 0x09, // 11
	}

	// five jumps land on the root label and succeed
	r := &wireReader{buf: buf, pos: 9}
	name, err := r.readName()
	if err != nil {
		t.Fatalf("five jumps: %v", err)
	}
	if name != "" {
		t.Fatalf("expected root name, got %q", name)
	}

	// six jumps exceed the cap
	r = &wireReader{buf: buf, pos: 11}
	if _, err = r.readName(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestReadNameAdvancesPastPointer(t *testing.T) {
	var w wireWriter
	if err := w.writeName("example.com"); err != nil {
		t.Fatal(err)
	}
	start := len(w.buf)
	if err := w.writeName("www.example.com"); err != nil {
		t.Fatal(err)
	}
	w.writeU16(0xBEEF)

	r := &wireReader{buf: w.buf, pos: start}
	name, err := r.readName()
	if err != nil {
		t.Fatal(err)
	}
	if name != "www.example.com" {
		t.Fatalf("got %q", name)
	}
	// the reader must resume directly after the compressed name
	v, err := r.readU16()
	if err != nil || v != 0xBEEF {
		t.Fatalf("reader at wrong position: %x %v", v, err)
	}
}

func TestReadNameRejectsOverlongName(t *testing.T) {
	var buf []byte
	for range 5 {
		buf = append(buf, maxLabelLen)
		buf = append(buf, bytes.Repeat([]byte{'a'}, maxLabelLen)...)
	}
	buf = append(buf, 0)
	r := &wireReader{buf: buf}
	if _, err := r.readName(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestReadNameRejectsReservedLabelType(t *testing.T) {
	r := &wireReader{buf: []byte{0x80, 0x01, 0x00}}
	if _, err := r.readName(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestWriteNameRejectsLongLabel(t *testing.T) {
	var w wireWriter
	if err := w.writeName(strings.Repeat("a", maxLabelLen+1) + ".com"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestWriteNameRejectsLongName(t *testing.T) {
	labels := make([]string, 0, 5)
	for range 5 {
		labels = append(labels, strings.Repeat("a", maxLabelLen))
	}
	var w wireWriter
	if err := w.writeName(strings.Join(labels, ".")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestWriteNameCompression(t *testing.T) {
	var w wireWriter
	if err := w.writeName("example.com"); err != nil {
		t.Fatal(err)
	}
	full := len(w.buf)
	if err := w.writeName("www.example.com"); err != nil {
		t.Fatal(err)
	}
	// "www" plus a two octet pointer to the earlier suffix
	if want := full + 4 + 2; len(w.buf) != want {
		t.Fatalf("expected %d octets, got %d", want, len(w.buf))
	}

	r := &wireReader{buf: w.buf}
	for _, want := range []string{"example.com", "www.example.com"} {
		name, err := r.readName()
		if err != nil {
			t.Fatal(err)
		}
		if name != want {
			t.Fatalf("got %q, want %q", name, want)
		}
	}
}

func TestWriteNameCompressionIsCaseInsensitive(t *testing.T) {
	var w wireWriter
	if err := w.writeName("example.com"); err != nil {
		t.Fatal(err)
	}
	full := len(w.buf)
	if err := w.writeName("EXAMPLE.COM"); err != nil {
		t.Fatal(err)
	}
	if len(w.buf) != full+2 {
		t.Fatalf("expected a bare pointer, got %d extra octets", len(w.buf)-full)
	}
}

func TestNameCasePreserved(t *testing.T) {
	var w wireWriter
	if err := w.writeName("WwW.ExAmPlE.CoM"); err != nil {
		t.Fatal(err)
	}
	r := &wireReader{buf: w.buf}
	name, err := r.readName()
	if err != nil {
		t.Fatal(err)
	}
	if name != "WwW.ExAmPlE.CoM" {
		t.Fatalf("case not preserved: %q", name)
	}
}

func TestSplitName(t *testing.T) {
	for _, tc := range []struct {
		name string
		want int
	}{
		{"", 0},
		{".", 0},
		{"com", 1},
		{"example.com", 2},
		{"example.com.", 2},
	} {
		if got := splitName(tc.name); len(got) != tc.want {
			t.Errorf("splitName(%q) = %v", tc.name, got)
		}
	}
}
