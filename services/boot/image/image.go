// Package image turns firmware files into word segments for the flash writer.
//
// Intel HEX input is parsed with gohex; raw binaries are placed at a given
// address. Segments are widened to word boundaries and the padding is filled
// with the erased value so programming it leaves flash untouched.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"bootcode-go/drivers/iap"

	"github.com/marcinbor85/gohex"
)

const erased = 0xFF

var (
	ErrEmpty         = errors.New("image: no data")
	ErrOutOfRange    = errors.New("image: segment outside application region")
	ErrNoVectorTable = errors.New("image: no vector table at application start")
)

// Segment is a run of words starting at a word-aligned address.
type Segment struct {
	Address uint32
	Words   []uint32
}

// End is the first address past the segment.
func (s Segment) End() uint32 { return s.Address + uint32(len(s.Words))*iap.WordSize }

// ParseHex reads an Intel HEX file. Segments come back sorted by address;
// data sharing a word is merged.
func ParseHex(r io.Reader) ([]Segment, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	var (
		out  []Segment
		buf  []byte
		base uint32
	)
	flush := func() {
		if buf != nil {
			out = append(out, Segment{Address: base, Words: words(buf)})
		}
	}
	for _, ds := range mem.GetDataSegments() {
		if len(ds.Data) == 0 {
			continue
		}
		start := ds.Address &^ (iap.WordSize - 1)
		if buf == nil || start > base+uint32(len(buf)) {
			flush()
			base, buf = start, nil
		}
		end := ds.Address + uint32(len(ds.Data))
		for base+uint32(len(buf)) < end {
			buf = append(buf, erased)
		}
		copy(buf[ds.Address-base:], ds.Data)
	}
	flush()
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

// FromBinary places raw bytes at addr.
func FromBinary(addr uint32, data []byte) Segment {
	start := addr &^ (iap.WordSize - 1)
	buf := make([]byte, addr-start, int(addr-start)+len(data)+iap.WordSize)
	for i := range buf {
		buf[i] = erased
	}
	buf = append(buf, data...)
	return Segment{Address: start, Words: words(buf)}
}

// words packs little-endian words, padding the tail with erased bytes.
func words(b []byte) []uint32 {
	for len(b)%iap.WordSize != 0 {
		b = append(b, erased)
	}
	w := make([]uint32, len(b)/iap.WordSize)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[i*iap.WordSize:])
	}
	return w
}

// Check verifies every segment lies inside the application region. With
// requireHeader the image must also provide both header words at AppStart.
func Check(segs []Segment, l iap.Layout, requireHeader bool) error {
	if len(segs) == 0 {
		return ErrEmpty
	}
	for _, s := range segs {
		if len(s.Words) == 0 {
			continue
		}
		if s.Address < l.AppStart || s.End() > l.AppEnd() || s.End() < s.Address {
			return fmt.Errorf("%w: %#08x-%#08x", ErrOutOfRange, s.Address, s.End())
		}
	}
	if requireHeader {
		if _, ok := Header(segs, l); !ok {
			return ErrNoVectorTable
		}
	}
	return nil
}

// Header returns the stack pointer and entry words the image will place at
// AppStart, so the image can be judged before anything is erased.
func Header(segs []Segment, l iap.Layout) (iap.Header, bool) {
	sp, ok1 := wordAt(segs, l.AppStart)
	entry, ok2 := wordAt(segs, l.AppStart+iap.WordSize)
	if !ok1 || !ok2 {
		return iap.Header{}, false
	}
	return iap.Header{StackPointer: sp, Entry: entry}, true
}

func wordAt(segs []Segment, addr uint32) (uint32, bool) {
	for _, s := range segs {
		if addr >= s.Address && addr < s.End() {
			return s.Words[(addr-s.Address)/iap.WordSize], true
		}
	}
	return 0, false
}

// Size is the number of words across all segments.
func Size(segs []Segment) int {
	n := 0
	for _, s := range segs {
		n += len(s.Words)
	}
	return n
}
