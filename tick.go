package pdcp

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Tick advances the entity's timers by delta, the elapsed time since the
// previous invocation. The host simulation calls it synchronously along
// the same loop that drives Transmit and Receive; the guarantees hold
// for any interleaving within a time step as long as deltas are monotone
// and accurate.
//
// Expired discard entries fire every registered sink's Discard advisory
// in assignment order. A reordering-timer expiry releases buffered SDUs
// below the trigger COUNT, advances the delivery edge and restarts the
// timer only if a gap remains.
func (e *Entity) Tick(delta time.Duration) {
	if delta < 0 {
		e.log.WithFields(logrus.Fields{
			"function": "Tick",
			"delta":    delta,
		}).Warn("Negative tick delta ignored")
		return
	}

	e.mu.Lock()
	e.now += delta

	var expired []*pendingSDU
	kept := e.tx.pending[:0]
	for _, p := range e.tx.pending {
		if p.noExpiry {
			kept = append(kept, p)
			continue
		}
		p.remaining -= delta
		if p.remaining <= 0 {
			expired = append(expired, p)
		} else {
			kept = append(kept, p)
		}
	}
	e.tx.pending = kept
	e.stats.TxDiscards += uint64(len(expired))

	var deliveries [][]byte
	var reorderFired bool
	if e.rx.state == ReorderingWaiting {
		e.rx.remaining -= delta
		if e.rx.remaining <= 0 {
			reorderFired = true
			e.stats.RxTimerExpiries++

			for _, entry := range e.rx.buffer.popBelow(e.rx.trigger) {
				delete(e.rx.accepted, entry.cnt)
				deliveries = append(deliveries, entry.sdu)
			}
			if e.rx.deliv < e.rx.trigger {
				e.rx.deliv = e.rx.trigger
			}
			deliveries = append(deliveries, e.drainContiguous()...)

			if e.rx.deliv < e.rx.next {
				e.rx.trigger = e.rx.next
				e.rx.remaining = e.config.ReorderingTimer
			} else {
				e.rx.state = ReorderingIdle
			}
		}
	}
	e.stats.RxDelivered += uint64(len(deliveries))

	sinks := append([]LowerLayerSink(nil), e.sinks...)
	handler := e.handler
	peer := e.config.PeerID
	trigger := e.rx.trigger
	e.mu.Unlock()

	if len(expired) > 0 {
		e.log.WithFields(logrus.Fields{
			"function": "Tick",
			"expired":  len(expired),
		}).Debug("Discard timers expired")
		for _, p := range expired {
			for _, sink := range sinks {
				sink.Discard(p.header)
			}
		}
	}

	if reorderFired {
		e.log.WithFields(logrus.Fields{
			"function":  "Tick",
			"trigger":   uint32(trigger),
			"delivered": len(deliveries),
		}).Debug("Reordering timer expired")
		if handler != nil {
			for _, d := range deliveries {
				handler.DeliverSDU(d, peer)
			}
		}
	}
}
