// Package trace collects per-packet bookkeeping events from convergence
// entities.
//
// Events are keyed by the full packet identity (direction, cell, UE,
// bearer, COUNT) as a composite struct key, so lookups never build or
// parse strings. A Recorder keeps the latest event per key in memory and
// mirrors each one to the log, stamped with a per-run UUID so records
// from concurrent simulation runs stay distinguishable.
package trace

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Direction tells which pipeline produced a packet event.
type Direction uint8

const (
	// DirectionTx marks a PDU handed to the lower layer.
	DirectionTx Direction = iota
	// DirectionRx marks a PDU accepted from the lower layer.
	DirectionRx
)

// String returns the short wire-log form of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionTx:
		return "tx"
	case DirectionRx:
		return "rx"
	default:
		return "unknown"
	}
}

// PacketKey identifies one packet event uniquely within a run.
type PacketKey struct {
	Dir    Direction
	Cell   uint32
	UE     uint32
	Bearer uint32
	Count  uint32
}

// Event is one recorded packet observation.
type Event struct {
	Key PacketKey
	// Size is the PDU length in bytes as seen at the recording point.
	Size int
	// At is the entity's simulated clock when the event occurred.
	At time.Duration
}

// Tracer consumes packet events. Implementations must not call back
// into the entity that produced the event.
type Tracer interface {
	Record(event Event)
}

// Recorder is an in-memory Tracer. The latest event per key wins;
// repeated observations of the same key (retransmissions, duplicated
// channels) overwrite earlier ones.
type Recorder struct {
	mu     sync.Mutex
	runID  string
	events map[PacketKey]Event
	log    *logrus.Entry
}

// NewRecorder creates an empty Recorder with a fresh run identifier.
func NewRecorder() *Recorder {
	runID := uuid.NewString()
	return &Recorder{
		runID:  runID,
		events: make(map[PacketKey]Event),
		log:    logrus.WithField("run_id", runID),
	}
}

// RunID returns the UUID stamped on every log line of this recorder.
func (r *Recorder) RunID() string {
	return r.runID
}

// Record stores the event and mirrors it to the log.
func (r *Recorder) Record(event Event) {
	r.mu.Lock()
	r.events[event.Key] = event
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"function":  "Record",
		"direction": event.Key.Dir.String(),
		"cell_id":   event.Key.Cell,
		"ue_id":     event.Key.UE,
		"bearer_id": event.Key.Bearer,
		"count":     event.Key.Count,
		"size":      event.Size,
		"at":        event.At,
	}).Debug("Packet event recorded")
}

// Lookup returns the event recorded under key.
func (r *Recorder) Lookup(key PacketKey) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[key]
	return event, ok
}

// Events returns all recorded events ordered by time, direction and
// COUNT.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	out := make([]Event, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].At != out[j].At {
			return out[i].At < out[j].At
		}
		if out[i].Key.Dir != out[j].Key.Dir {
			return out[i].Key.Dir < out[j].Key.Dir
		}
		return out[i].Key.Count < out[j].Key.Count
	})
	return out
}

// Len reports the number of distinct packet keys recorded.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
