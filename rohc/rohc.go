// Package rohc models the effect of robust header compression on the
// data path. No real compression runs: a profile simply removes a fixed
// number of overhead bytes behind the first payload byte on the way
// down, and reinserts the same number of zero placeholder bytes on the
// way up. The first byte is the upper layer's own header and is always
// preserved verbatim.
package rohc

import (
	"errors"
	"fmt"
)

// ErrOverheadMismatch indicates a compressed overhead larger than the
// protocol overhead it is meant to replace.
var ErrOverheadMismatch = errors.New("compressed overhead exceeds protocol overhead")

// ErrNegativeOverhead indicates a negative overhead byte count.
var ErrNegativeOverhead = errors.New("negative overhead byte count")

// Profile describes one fixed-delta compression profile: SDUs carry
// protocolOverhead bytes of lower-protocol headers behind their first
// byte, and the compressed form carries compressedOverhead of them.
type Profile struct {
	protocolOverhead   int
	compressedOverhead int
}

// NewProfile creates a compression profile. The compressed overhead
// must not exceed the protocol overhead and neither may be negative.
func NewProfile(protocolOverhead, compressedOverhead int) (*Profile, error) {
	if protocolOverhead < 0 || compressedOverhead < 0 {
		return nil, fmt.Errorf("%w: protocol %d, compressed %d",
			ErrNegativeOverhead, protocolOverhead, compressedOverhead)
	}
	if compressedOverhead > protocolOverhead {
		return nil, fmt.Errorf("%w: %d > %d",
			ErrOverheadMismatch, compressedOverhead, protocolOverhead)
	}
	return &Profile{
		protocolOverhead:   protocolOverhead,
		compressedOverhead: compressedOverhead,
	}, nil
}

// Delta returns the number of bytes removed from (and reinserted into)
// each SDU.
func (p *Profile) Delta() int {
	return p.protocolOverhead - p.compressedOverhead
}

// Compress returns a copy of sdu with Delta() bytes removed immediately
// after the first byte. SDUs too short to carry the full overhead lose
// whatever is there; the operation is total and never fails.
func (p *Profile) Compress(sdu []byte) []byte {
	if len(sdu) == 0 {
		return nil
	}

	drop := p.Delta()
	if drop > len(sdu)-1 {
		drop = len(sdu) - 1
	}

	out := make([]byte, 0, len(sdu)-drop)
	out = append(out, sdu[0])
	return append(out, sdu[1+drop:]...)
}

// Decompress returns a copy of payload with Delta() zero placeholder
// bytes reinserted immediately after the first byte. The placeholders
// stand in for the removed lower-protocol headers; their original
// contents are not restored.
func (p *Profile) Decompress(payload []byte) []byte {
	if len(payload) == 0 {
		return nil
	}

	out := make([]byte, 0, len(payload)+p.Delta())
	out = append(out, payload[0])
	out = append(out, make([]byte, p.Delta())...)
	return append(out, payload[1:]...)
}
