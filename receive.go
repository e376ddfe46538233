package pdcp

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/pdcp/count"
	"github.com/opd-ai/pdcp/limits"
	"github.com/opd-ai/pdcp/trace"
	"github.com/opd-ai/pdcp/wire"
)

// Receive consumes one PDU from the lower layer. Malformed PDUs (wrong
// length for the configured header, or missing footer when integrity
// protection is on) are rejected with a parse error. Every other anomaly
// self-corrects silently: duplicate, stale and control PDUs are dropped
// and nil is returned.
//
// Accepted SDUs are delivered to the registered handler either
// immediately (out-of-order mode) or in COUNT order through the
// reordering buffer, with gaps released by the reordering timer.
func (e *Entity) Receive(pdu []byte) error {
	e.mu.Lock()
	e.stats.RxPDUs++

	if err := limits.ValidatePDUSize(pdu); err != nil {
		e.stats.RxMalformed++
		e.mu.Unlock()
		return fmt.Errorf("receive: %w", err)
	}

	body := pdu
	if e.config.IntegrityProtection {
		stripped, err := wire.StripFooter(pdu)
		if err != nil {
			e.stats.RxMalformed++
			e.mu.Unlock()
			return fmt.Errorf("receive: %w", err)
		}
		body = stripped
	}

	header, err := wire.ParseHeader(body, e.config.SNSize)
	if err != nil {
		e.stats.RxMalformed++
		e.mu.Unlock()
		return fmt.Errorf("receive: %w", err)
	}
	if !header.Data {
		e.stats.RxControl++
		e.mu.Unlock()
		e.log.WithFields(logrus.Fields{
			"function": "Receive",
			"sn":       header.SN,
		}).Debug("Control PDU dropped")
		return nil
	}

	cnt, ok := count.Resolve(header.SN, e.rx.deliv, e.config.SNSize)
	if !ok {
		e.stats.RxStale++
		e.mu.Unlock()
		e.log.WithFields(logrus.Fields{
			"function": "Receive",
			"sn":       header.SN,
		}).Debug("COUNT resolution out of range, PDU dropped")
		return nil
	}
	if _, dup := e.rx.accepted[cnt]; dup {
		e.stats.RxDuplicates++
		e.mu.Unlock()
		e.log.WithFields(logrus.Fields{
			"function": "Receive",
			"count":    uint32(cnt),
		}).Debug("Duplicate PDU dropped")
		return nil
	}
	if cnt < e.rx.deliv {
		e.stats.RxStale++
		e.mu.Unlock()
		e.log.WithFields(logrus.Fields{
			"function": "Receive",
			"count":    uint32(cnt),
		}).Debug("Stale PDU below receive window dropped")
		return nil
	}

	e.rx.accepted[cnt] = struct{}{}
	if cnt >= e.rx.next {
		e.rx.next = cnt + 1
	}

	sdu := e.profile.Decompress(body[wire.HeaderLength(e.config.SNSize):])

	var deliveries [][]byte
	if e.config.OutOfOrderDelivery {
		// Immediate hand-off; the reordering machinery stays idle. The
		// window base still advances past contiguously received COUNTs
		// so HFN resolution keeps tracking the sender across SN wraps.
		deliveries = append(deliveries, sdu)
		for {
			if _, seen := e.rx.accepted[e.rx.deliv]; !seen {
				break
			}
			delete(e.rx.accepted, e.rx.deliv)
			e.rx.deliv++
		}
	} else {
		if cnt == e.rx.deliv {
			deliveries = append(deliveries, sdu)
			delete(e.rx.accepted, cnt)
			e.rx.deliv++
			deliveries = append(deliveries, e.drainContiguous()...)
		} else {
			e.rx.buffer.insert(cnt, sdu)
			e.stats.RxBuffered++
		}

		if e.rx.state == ReorderingWaiting && e.rx.deliv >= e.rx.trigger {
			e.rx.state = ReorderingIdle
		}
		if e.rx.state == ReorderingIdle && e.rx.deliv < e.rx.next {
			e.rx.trigger = e.rx.next
			e.rx.remaining = e.config.ReorderingTimer
			e.rx.state = ReorderingWaiting
		}
	}
	e.stats.RxDelivered += uint64(len(deliveries))

	handler := e.handler
	tracer := e.tracer
	peer := e.config.PeerID
	event := trace.Event{
		Key: trace.PacketKey{
			Dir:    trace.DirectionRx,
			Cell:   e.config.CellID,
			UE:     e.config.UEID,
			Bearer: e.config.BearerID,
			Count:  uint32(cnt),
		},
		Size: len(pdu),
		At:   e.now,
	}
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"function":  "Receive",
		"count":     uint32(cnt),
		"sn":        header.SN,
		"delivered": len(deliveries),
	}).Debug("PDU accepted")

	if tracer != nil {
		tracer.Record(event)
	}
	if handler != nil {
		for _, d := range deliveries {
			handler.DeliverSDU(d, peer)
		}
	}
	return nil
}

// drainContiguous delivers buffered entries starting exactly at the
// delivery edge, advancing it past each one. Caller holds the lock.
func (e *Entity) drainContiguous() [][]byte {
	var out [][]byte
	for {
		sdu, ok := e.rx.buffer.take(e.rx.deliv)
		if !ok {
			return out
		}
		delete(e.rx.accepted, e.rx.deliv)
		out = append(out, sdu)
		e.rx.deliv++
	}
}
