package pdcp

import "time"

// FrameMeta is opaque per-frame metadata supplied by the upper layer and
// forwarded unchanged to lower-layer sinks for their own scheduling
// decisions. It never crosses the wire.
type FrameMeta struct {
	Kind   string
	Number uint64
}

// LowerLayerSink is one underlying transport channel below the
// convergence layer. Send hands over a built PDU together with its
// remaining time-to-live (zero means unlimited) and the frame metadata.
// Discard advises the channel to drop a not-yet-transmitted PDU,
// identified by its serialized header; it is best-effort and may be
// ignored.
//
// Neither method may block: all fan-out completes before the entity call
// that triggered it returns.
type LowerLayerSink interface {
	Send(pdu []byte, ttl time.Duration, meta FrameMeta)
	Discard(header []byte)
}

// DeliveryHandler receives reassembled SDUs from the convergence layer.
// peer identifies the remote end of the bearer the SDU originated from.
type DeliveryHandler interface {
	DeliverSDU(sdu []byte, peer uint32)
}

// DeliveryHandlerFunc adapts a plain function to the DeliveryHandler
// interface.
type DeliveryHandlerFunc func(sdu []byte, peer uint32)

// DeliverSDU calls f(sdu, peer).
func (f DeliveryHandlerFunc) DeliverSDU(sdu []byte, peer uint32) {
	f(sdu, peer)
}
