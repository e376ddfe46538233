// Package pdcp implements a per-bearer packet-convergence protocol layer
// for a simulated cellular data path.
//
// An Entity sits between an upper routing layer and one or more lower
// transport channels. On the send side it assigns monotonic COUNT
// identifiers, emulates header compression, builds PDUs and runs a
// per-SDU discard timer; on the receive side it resolves the hyper frame
// number through a sliding window, rejects duplicate and stale PDUs and
// delivers SDUs in COUNT order within a bounded reordering delay.
//
// Example:
//
//	config := pdcp.NewConfig()
//	config.BearerID = 1
//
//	entity, err := pdcp.New(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	entity.SetDeliveryHandler(pdcp.DeliveryHandlerFunc(func(sdu []byte, peer uint32) {
//	    fmt.Printf("SDU from peer %d: %d bytes\n", peer, len(sdu))
//	}))
//	entity.RegisterSink(channel)
//
//	entity.Transmit(sdu, pdcp.TransmitOptions{})
//
//	// The surrounding simulation drives all timers.
//	entity.Tick(10 * time.Millisecond)
package pdcp

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/pdcp/count"
	"github.com/opd-ai/pdcp/rohc"
	"github.com/opd-ai/pdcp/trace"
)

// ReorderingState represents the state of the receive-side reordering
// timer.
type ReorderingState uint8

const (
	// ReorderingIdle indicates no reordering timer is running.
	ReorderingIdle ReorderingState = iota
	// ReorderingWaiting indicates the reordering timer is counting down
	// toward the COUNT that armed it.
	ReorderingWaiting
)

// Entity is a single convergence-layer instance serving one bearer.
// All methods are safe for concurrent use; every callback (sink sends,
// discard advisories, upper-layer deliveries) fires after internal state
// mutation completes, so handlers may call back into the entity.
type Entity struct {
	mu      sync.Mutex
	config  Config
	log     *logrus.Entry
	profile *rohc.Profile

	sinks   []LowerLayerSink
	handler DeliveryHandler
	tracer  trace.Tracer

	// Simulated clock, the sum of all Tick deltas.
	now time.Duration

	tx    txState
	rx    rxState
	stats Stats
}

// txState is the send half of the entity.
type txState struct {
	// next is the next COUNT to assign, monotonic across SN wraps.
	next count.Value
	// pending holds one entry per transmitted SDU still awaiting
	// discard-timer expiry or confirmed hand-off, in assignment order.
	pending []*pendingSDU
}

// pendingSDU is the discard-timer entry for one transmitted SDU.
type pendingSDU struct {
	sn        uint32
	header    []byte
	remaining time.Duration
	noExpiry  bool
}

// rxState is the receive half of the entity.
type rxState struct {
	// next is the highest COUNT accepted so far plus one.
	next count.Value
	// deliv is the COUNT of the first SDU not yet delivered, the left
	// edge of the receive window. Never exceeds next.
	deliv count.Value
	// trigger is the COUNT that armed the running reordering timer.
	trigger count.Value

	state     ReorderingState
	remaining time.Duration

	// accepted tracks COUNTs received but not yet delivered; entries
	// below deliv are pruned as deliv advances, the stale check covers
	// them from then on.
	accepted map[count.Value]struct{}
	buffer   reorderBuffer
}

// New creates a convergence entity with the given configuration. A nil
// config selects NewConfig() defaults. The configuration is copied;
// later changes to it do not affect the entity.
func New(config *Config) (*Entity, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	profile, err := rohc.NewProfile(config.ProtocolOverhead, config.CompressedOverhead)
	if err != nil {
		return nil, fmt.Errorf("compression profile: %w", err)
	}

	e := &Entity{
		config:  *config,
		profile: profile,
		log: logrus.WithFields(logrus.Fields{
			"cell_id":   config.CellID,
			"ue_id":     config.UEID,
			"bearer_id": config.BearerID,
		}),
	}
	e.rx.accepted = make(map[count.Value]struct{})

	e.log.WithFields(logrus.Fields{
		"function":     "New",
		"sn_size":      uint8(config.SNSize),
		"data_ttl":     config.DataTTL,
		"reorder_time": config.ReorderingTimer,
		"out_of_order": config.OutOfOrderDelivery,
		"duplication":  config.PacketDuplication,
	}).Info("Convergence entity created")

	return e, nil
}

// RegisterSink adds a lower-layer channel below this entity. With packet
// duplication enabled every sink receives a copy of each PDU; otherwise
// only the first registered sink is used. Discard advisories always go
// to every sink.
func (e *Entity) RegisterSink(sink LowerLayerSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, sink)
}

// SetDeliveryHandler installs the upper-layer callback for received
// SDUs. A nil handler silently drops deliveries.
func (e *Entity) SetDeliveryHandler(handler DeliveryHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = handler
}

// SetTracer installs a packet bookkeeping collector. A nil tracer
// disables tracing.
func (e *Entity) SetTracer(tracer trace.Tracer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracer = tracer
}

// ReorderingState reports the current receive-side timer state.
func (e *Entity) ReorderingState() ReorderingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rx.state
}

// Now reports the entity's simulated clock, the sum of all Tick deltas
// since creation.
func (e *Entity) Now() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// Window reports the receive window edges: deliv is the COUNT of the
// first SDU not yet delivered, next the lowest COUNT never yet accepted.
// Both are non-decreasing and deliv never exceeds next.
func (e *Entity) Window() (deliv, next count.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rx.deliv, e.rx.next
}
