package pdcp

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/pdcp/limits"
	"github.com/opd-ai/pdcp/trace"
	"github.com/opd-ai/pdcp/wire"
)

// TransmitOptions carries the optional per-SDU transmit parameters.
// The zero value selects the configured defaults.
type TransmitOptions struct {
	// TTL overrides the configured DataTTL for this SDU: a positive
	// value replaces it, zero keeps the configured value, a negative
	// value disables the discard timer for this SDU.
	TTL time.Duration

	// Meta is forwarded unchanged to the lower-layer sinks.
	Meta FrameMeta
}

// Transmit accepts one SDU from the upper layer, assigns it the next
// COUNT, applies header-compression emulation, builds the PDU and hands
// it to the registered lower-layer sinks. An empty SDU is a no-op and
// consumes no sequence number. Oversized SDUs are dropped; nothing is
// raised to the caller.
func (e *Entity) Transmit(sdu []byte, opts TransmitOptions) {
	e.mu.Lock()

	if len(sdu) == 0 {
		e.mu.Unlock()
		e.log.WithField("function", "Transmit").Debug("Empty SDU ignored")
		return
	}
	if err := limits.ValidateSDUSize(sdu); err != nil {
		e.stats.TxDropped++
		e.mu.Unlock()
		e.log.WithFields(logrus.Fields{
			"function":  "Transmit",
			"sdu_bytes": len(sdu),
			"error":     err,
		}).Warn("SDU dropped at transmit boundary")
		return
	}

	cnt := e.tx.next
	sn := cnt.SN(e.config.SNSize)
	e.tx.next++
	e.stats.TxSDUs++

	header := wire.Header{Data: true, SN: sn}
	pdu, err := header.Serialize(e.config.SNSize)
	if err != nil {
		// Unreachable with a validated configuration.
		e.stats.TxDropped++
		e.mu.Unlock()
		e.log.WithFields(logrus.Fields{
			"function": "Transmit",
			"sn":       sn,
			"error":    err,
		}).Error("Header serialization failed")
		return
	}
	headerCopy := append([]byte(nil), pdu...)

	pdu = append(pdu, e.profile.Compress(sdu)...)
	if e.config.IntegrityProtection {
		pdu = wire.AppendFooter(pdu)
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = e.config.DataTTL
	}
	if ttl < 0 {
		ttl = 0
	}
	e.tx.pending = append(e.tx.pending, &pendingSDU{
		sn:        sn,
		header:    headerCopy,
		remaining: ttl,
		noExpiry:  ttl == 0,
	})

	var targets []LowerLayerSink
	switch {
	case len(e.sinks) == 0:
		e.stats.TxDropped++
	case e.config.PacketDuplication:
		targets = append(targets, e.sinks...)
	default:
		targets = append(targets, e.sinks[0])
	}
	e.stats.TxPDUs += uint64(len(targets))

	tracer := e.tracer
	event := trace.Event{
		Key: trace.PacketKey{
			Dir:    trace.DirectionTx,
			Cell:   e.config.CellID,
			UE:     e.config.UEID,
			Bearer: e.config.BearerID,
			Count:  uint32(cnt),
		},
		Size: len(pdu),
		At:   e.now,
	}
	e.mu.Unlock()

	if len(targets) == 0 {
		e.log.WithFields(logrus.Fields{
			"function": "Transmit",
			"count":    uint32(cnt),
		}).Warn("No lower-layer sink registered, PDU dropped")
		return
	}

	e.log.WithFields(logrus.Fields{
		"function":  "Transmit",
		"count":     uint32(cnt),
		"sn":        sn,
		"pdu_bytes": len(pdu),
		"sinks":     len(targets),
	}).Debug("PDU handed to lower layer")

	if tracer != nil {
		tracer.Record(event)
	}
	for _, sink := range targets {
		sink.Send(pdu, ttl, opts.Meta)
	}
}

// ConfirmDelivery retires the oldest pending-discard entry carrying sn
// after the lower layer reports a completed hand-off. The entry is
// removed without firing any discard advisory. Returns whether an entry
// was retired.
func (e *Entity) ConfirmDelivery(sn uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, p := range e.tx.pending {
		if p.sn != sn {
			continue
		}
		e.tx.pending = append(e.tx.pending[:i], e.tx.pending[i+1:]...)
		e.stats.TxConfirmed++
		e.log.WithFields(logrus.Fields{
			"function": "ConfirmDelivery",
			"sn":       sn,
		}).Debug("Pending entry retired")
		return true
	}
	return false
}

// PendingCount reports the number of transmitted SDUs still awaiting
// discard-timer expiry or confirmed hand-off.
func (e *Entity) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tx.pending)
}
