// Package limits provides centralized packet size constants and validation functions
// for the convergence layer. This package ensures consistent size enforcement across
// both directions of the data path.
//
// # Size Hierarchy
//
// The package defines a small hierarchy of limits covering the two packet shapes the
// layer handles:
//
//   - MaxSDUSize (9000 bytes): The largest upper-layer SDU a bearer accepts, matching
//     the NR PDCP SDU cap. Anything larger is dropped at the transmit boundary before
//     a sequence number is consumed.
//
//   - MaxHeaderSize (3 bytes): The largest PDU header the layer produces, which is the
//     18-bit sequence number variant.
//
//   - FooterOverhead (4 bytes): The space reserved at the tail of every data PDU for
//     integrity protection when the bearer enables it.
//
//   - MaxPDUSize: The absolute maximum for any PDU crossing the lower-layer boundary,
//     derived as MaxSDUSize plus the largest header and the reserved footer.
//
// # Validation Functions
//
// Each validation function checks for empty input and size limit violations:
//
//	err := limits.ValidateSDUSize(sdu)
//	if err != nil {
//	    // Handle validation error (ErrSDUEmpty or ErrSDUTooLarge)
//	}
//
// # Consistency
//
// MaxHeaderSize and FooterOverhead mirror the wire package's header and footer
// layouts. The wire package does not import limits, so the constants are restated
// here and verified equal by test.
package limits
