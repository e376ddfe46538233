package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxSDUSize is the largest SDU the convergence layer accepts from
	// the upper layer (9000 bytes, the NR PDCP SDU cap).
	MaxSDUSize = 9000

	// MaxHeaderSize is the largest PDU header the layer produces
	// (3 bytes, the 18-bit SN variant; see wire.HeaderLength).
	MaxHeaderSize = 3

	// FooterOverhead is the space reserved for integrity protection at
	// the end of a PDU (see wire.FooterLength).
	FooterOverhead = 4

	// MaxPDUSize is the absolute maximum for any PDU handed to or
	// received from the lower layer: a maximum SDU plus the largest
	// header and the reserved footer.
	MaxPDUSize = MaxSDUSize + MaxHeaderSize + FooterOverhead
)

var (
	// ErrSDUEmpty indicates an empty SDU was provided.
	ErrSDUEmpty = errors.New("empty SDU")

	// ErrSDUTooLarge indicates an SDU exceeds MaxSDUSize.
	ErrSDUTooLarge = errors.New("SDU too large")

	// ErrPDUTooLarge indicates a PDU exceeds MaxPDUSize.
	ErrPDUTooLarge = errors.New("PDU too large")
)

// ValidateSDUSize validates an upper-layer SDU against MaxSDUSize.
// Returns an error with context including the actual and maximum sizes.
func ValidateSDUSize(sdu []byte) error {
	if len(sdu) == 0 {
		return ErrSDUEmpty
	}
	if len(sdu) > MaxSDUSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrSDUTooLarge, len(sdu), MaxSDUSize)
	}
	return nil
}

// ValidatePDUSize validates a lower-layer PDU against MaxPDUSize.
// Returns an error with context including the actual and maximum sizes.
func ValidatePDUSize(pdu []byte) error {
	if len(pdu) > MaxPDUSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPDUTooLarge, len(pdu), MaxPDUSize)
	}
	return nil
}
