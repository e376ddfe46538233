// Package wire implements the on-the-wire PDU layout of the convergence
// layer: the data PDU header carrying the sequence number, and the
// reserved integrity footer.
//
// The header is bit-exact. Byte 0 starts with the data/control
// discriminator bit, followed by reserved bits padding the byte(s) in
// front of the SN field:
//
//	12-bit SN (2-byte header):  [D:1][R:3][SN:12]
//	18-bit SN (3-byte header):  [D:1][R:5][SN:18]
//
// Bit order is big endian. Reserved bits are zero on serialization and
// ignored on parse.
//
// Example:
//
//	hdr := &wire.Header{Data: true, SN: 42}
//	buf, err := hdr.Serialize(count.SNSize12)
//	if err != nil {
//	    log.Fatal(err)
//	}
package wire

import (
	"errors"
	"fmt"

	"github.com/opd-ai/pdcp/count"
)

// FooterLength is the size in bytes of the trailing footer reserved for
// integrity protection. No MAC is computed; the bytes are always zero.
const FooterLength = 4

// ErrInvalidSNSize indicates an SN width other than 12 or 18 bits.
var ErrInvalidSNSize = errors.New("invalid SN size")

// ErrHeaderTooShort indicates a buffer smaller than the configured
// header length.
var ErrHeaderTooShort = errors.New("header too short")

// ErrFooterTooShort indicates a PDU too small to carry the integrity
// footer.
var ErrFooterTooShort = errors.New("PDU too short for footer")

// ErrSNRange indicates a sequence number that does not fit the
// configured field width.
var ErrSNRange = errors.New("sequence number out of field range")

// Header is the parsed form of a PDU header.
type Header struct {
	// Data is the data/control discriminator bit; true marks a data
	// PDU. Control PDUs are not modeled beyond this bit.
	Data bool
	// SN is the sequence number carried in the low bits of the header.
	SN uint32
}

// HeaderLength returns the header size in bytes for the given SN width:
// 2 bytes for 12-bit SNs, 3 bytes for 18-bit SNs, 0 for an invalid
// width.
func HeaderLength(size count.SNSize) int {
	switch size {
	case count.SNSize12:
		return 2
	case count.SNSize18:
		return 3
	default:
		return 0
	}
}

// Serialize converts the header to its wire form for the given SN
// width.
func (h *Header) Serialize(size count.SNSize) ([]byte, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSNSize, size)
	}
	if h.SN > size.Mask() {
		return nil, fmt.Errorf("%w: SN %d exceeds %d-bit field", ErrSNRange, h.SN, size)
	}

	var d byte
	if h.Data {
		d = 0x80
	}

	switch size {
	case count.SNSize12:
		return []byte{d | byte(h.SN>>8), byte(h.SN)}, nil
	default: // count.SNSize18
		return []byte{d | byte(h.SN>>16), byte(h.SN >> 8), byte(h.SN)}, nil
	}
}

// ParseHeader converts the leading bytes of a PDU to a Header. The
// buffer may extend past the header; only HeaderLength(size) bytes are
// read.
func ParseHeader(data []byte, size count.SNSize) (*Header, error) {
	hdrLen := HeaderLength(size)
	if hdrLen == 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSNSize, size)
	}
	if len(data) < hdrLen {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrHeaderTooShort, len(data), hdrLen)
	}

	h := &Header{Data: data[0]&0x80 != 0}
	switch size {
	case count.SNSize12:
		h.SN = uint32(data[0])<<8 | uint32(data[1])
	default: // count.SNSize18
		h.SN = uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
	}
	h.SN &= size.Mask()

	return h, nil
}

// AppendFooter appends the zero integrity footer to a serialized PDU.
func AppendFooter(pdu []byte) []byte {
	var footer [FooterLength]byte
	return append(pdu, footer[:]...)
}

// StripFooter removes the trailing integrity footer from a PDU. The
// footer bytes are not inspected; the layer only reserves the space.
func StripFooter(pdu []byte) ([]byte, error) {
	if len(pdu) < FooterLength {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrFooterTooShort, len(pdu), FooterLength)
	}
	return pdu[:len(pdu)-FooterLength], nil
}
