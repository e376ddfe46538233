package pdcp

// Stats is a snapshot of one entity's packet accounting.
type Stats struct {
	// TxSDUs counts SDUs that consumed a sequence number.
	TxSDUs uint64
	// TxPDUs counts PDU copies handed to lower-layer sinks, including
	// duplication fan-out.
	TxPDUs uint64
	// TxDropped counts SDUs dropped before reaching any sink: oversized
	// input or no registered sink.
	TxDropped uint64
	// TxDiscards counts pending SDUs expired by the discard timer.
	TxDiscards uint64
	// TxConfirmed counts pending SDUs retired by ConfirmDelivery.
	TxConfirmed uint64

	// RxPDUs counts PDUs offered by the lower layer.
	RxPDUs uint64
	// RxDelivered counts SDUs released for delivery to the upper layer.
	RxDelivered uint64
	// RxDuplicates counts PDUs rejected as already-accepted COUNTs.
	RxDuplicates uint64
	// RxStale counts PDUs rejected below the receive window or with an
	// unresolvable hyper frame number.
	RxStale uint64
	// RxControl counts control PDUs dropped.
	RxControl uint64
	// RxMalformed counts PDUs rejected with a parse error.
	RxMalformed uint64
	// RxBuffered counts PDUs parked in the reordering buffer.
	RxBuffered uint64
	// RxTimerExpiries counts reordering-timer expirations.
	RxTimerExpiries uint64
}

// Stats returns a snapshot of the entity's counters.
func (e *Entity) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
