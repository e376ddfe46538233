// Package count implements the 32-bit COUNT arithmetic shared by the
// transmit and receive pipelines of a convergence entity.
//
// A COUNT is the full ordering identifier of an SDU. Only its low-order
// SN bits travel on the wire; the high-order HFN bits are reconstructed
// by the receiver from a sliding window anchored at the first COUNT not
// yet delivered to the upper layer.
//
// Example:
//
//	c, ok := count.Resolve(sn, deliv, count.SNSize12)
//	if !ok {
//	    // PDU is from outside the representable COUNT range, drop it
//	}
package count

// SNSize is the configured width of the on-wire sequence number field
// in bits. Only the 12 and 18 bit variants exist.
type SNSize uint8

const (
	// SNSize12 selects 12-bit sequence numbers (2-byte PDU header).
	SNSize12 SNSize = 12
	// SNSize18 selects 18-bit sequence numbers (3-byte PDU header).
	SNSize18 SNSize = 18
)

// Valid reports whether s is one of the two recognized SN widths.
func (s SNSize) Valid() bool {
	return s == SNSize12 || s == SNSize18
}

// Mask returns the bit mask covering an SN field of this width.
func (s SNSize) Mask() uint32 {
	return 1<<uint32(s) - 1
}

// Window returns the half-width of the HFN resolution window,
// 2^(SNSize-1) sequence numbers.
func (s SNSize) Window() uint32 {
	return 1 << (uint32(s) - 1)
}

// MaxHFN returns the largest hyper frame number representable alongside
// an SN of this width in a 32-bit COUNT.
func (s SNSize) MaxHFN() uint32 {
	return 1<<(32-uint32(s)) - 1
}

// Value is a full 32-bit COUNT: the HFN in the high (32 - SNSize) bits
// and the SN in the low SNSize bits.
type Value uint32

// Compose builds a COUNT from its HFN and SN parts. Bits of either part
// outside their field width are discarded.
func Compose(hfn, sn uint32, size SNSize) Value {
	return Value(hfn&size.MaxHFN())<<uint32(size) | Value(sn&size.Mask())
}

// SN extracts the sequence number part of the COUNT.
func (v Value) SN(size SNSize) uint32 {
	return uint32(v) & size.Mask()
}

// HFN extracts the hyper frame number part of the COUNT.
func (v Value) HFN(size SNSize) uint32 {
	return uint32(v) >> uint32(size)
}

// Resolve maps a received SN to a full COUNT using the sliding window
// centered on the SN part of deliv, the first COUNT not yet delivered.
//
// An SN more than a window half-width below SN(deliv) is taken to be
// from the next hyper frame; one at or beyond a half-width above is
// taken to be from the previous hyper frame; anything else shares
// deliv's hyper frame. The second return value is false when the
// implied COUNT would fall outside the 32-bit COUNT space (before
// COUNT 0 or past the final hyper frame); such PDUs cannot be valid
// and are discarded as stale by the caller.
func Resolve(sn uint32, deliv Value, size SNSize) (Value, bool) {
	sn &= size.Mask()

	hfn := int64(deliv.HFN(size))
	switch {
	case int64(sn) < int64(deliv.SN(size))-int64(size.Window()):
		hfn++
	case int64(sn) >= int64(deliv.SN(size))+int64(size.Window()):
		hfn--
	}

	if hfn < 0 || hfn > int64(size.MaxHFN()) {
		return 0, false
	}
	return Compose(uint32(hfn), sn, size), true
}
