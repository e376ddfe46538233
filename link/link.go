// Package link emulates the lower-layer channel that carries convergence
// PDUs between two entity endpoints. A Channel applies configurable
// impairments (fixed delay, random jitter, loss, duplication) to every PDU
// it accepts, holds survivors in flight, and hands them to a Receiver as
// simulated time advances through Step.
//
// Channels are deterministic: two channels built with the same Config and
// fed the same traffic apply identical impairments, which keeps simulation
// runs reproducible. A Channel honors discard advisories by removing
// not-yet-delivered PDUs from its queue, mirroring how a radio link drops
// frames the upper layer no longer wants.
package link

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/pdcp"
)

var (
	// ErrNilReceiver is returned when a channel is created without a receiver.
	ErrNilReceiver = errors.New("channel receiver must not be nil")

	// ErrNegativeDelay is returned when delay or jitter is negative.
	ErrNegativeDelay = errors.New("delay and jitter must not be negative")

	// ErrRateOutOfRange is returned when a probability falls outside [0, 1].
	ErrRateOutOfRange = errors.New("rate must be between 0 and 1")
)

// Receiver consumes PDUs that survive the channel. *pdcp.Entity satisfies it.
type Receiver interface {
	Receive(pdu []byte) error
}

// Config controls the impairments a Channel applies.
type Config struct {
	// Delay is the fixed one-way latency added to every PDU.
	Delay time.Duration

	// Jitter bounds the random extra latency added per PDU. Zero disables
	// jitter, so delivery order matches send order.
	Jitter time.Duration

	// LossRate is the probability in [0, 1] that a PDU vanishes in transit.
	LossRate float64

	// DupRate is the probability in [0, 1] that a PDU is queued a second
	// time. The copy draws its own jitter and travels independently.
	DupRate float64

	// Seed initializes the channel's random source. Channels with the same
	// seed, configuration and traffic behave identically.
	Seed int64
}

// NewConfig returns the configuration of a perfect channel: no delay, no
// jitter, no loss and no duplication.
func NewConfig() *Config {
	return &Config{}
}

// Validate reports whether the configuration describes a usable channel.
func (c *Config) Validate() error {
	if c.Delay < 0 || c.Jitter < 0 {
		return fmt.Errorf("%w: delay %v jitter %v", ErrNegativeDelay, c.Delay, c.Jitter)
	}
	if c.LossRate < 0 || c.LossRate > 1 {
		return fmt.Errorf("%w: loss rate %v", ErrRateOutOfRange, c.LossRate)
	}
	if c.DupRate < 0 || c.DupRate > 1 {
		return fmt.Errorf("%w: duplication rate %v", ErrRateOutOfRange, c.DupRate)
	}
	return nil
}

// Stats counts channel activity. Retrieve a consistent copy with
// Channel.Stats.
type Stats struct {
	// Sent counts PDUs offered by the sending entity.
	Sent uint64

	// Delivered counts PDUs handed to the receiver, whether or not the
	// receiver accepted them.
	Delivered uint64

	// Lost counts PDUs removed by the loss process.
	Lost uint64

	// Duplicated counts extra copies queued by the duplication process.
	Duplicated uint64

	// Expired counts PDUs whose transit time exceeded their time budget.
	Expired uint64

	// Advisories counts discard advisories observed.
	Advisories uint64

	// AdvisoryDrops counts queued PDUs removed by advisories.
	AdvisoryDrops uint64

	// Rejected counts deliveries the receiver refused.
	Rejected uint64
}

// inFlight is a PDU waiting out its transit delay.
type inFlight struct {
	seq  uint64
	pdu  []byte
	meta pdcp.FrameMeta
	due  time.Duration
}

// Channel is a simulated unidirectional link. It implements
// pdcp.LowerLayerSink on the sending side and feeds a Receiver on the
// other, so a pair of channels forms a full duplex path between entities.
type Channel struct {
	mu       sync.Mutex
	config   Config
	rng      *rand.Rand
	log      *logrus.Entry
	receiver Receiver
	now      time.Duration
	seq      uint64
	queue    []*inFlight
	stats    Stats
}

// NewChannel creates a channel that delivers surviving PDUs to receiver.
// A nil config selects the perfect channel from NewConfig.
func NewChannel(receiver Receiver, config *Config) (*Channel, error) {
	if receiver == nil {
		return nil, ErrNilReceiver
	}
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Channel{
		config:   *config,
		rng:      rand.New(rand.NewSource(config.Seed)),
		log:      logrus.WithField("seed", config.Seed),
		receiver: receiver,
	}

	c.log.WithFields(logrus.Fields{
		"function":  "NewChannel",
		"delay":     config.Delay,
		"jitter":    config.Jitter,
		"loss_rate": config.LossRate,
		"dup_rate":  config.DupRate,
	}).Debug("Channel created")

	return c, nil
}

// Send accepts a PDU from the sending entity. The loss process may drop it
// outright; otherwise it is queued until its transit delay elapses. A PDU
// whose transit would outlast a positive ttl is aged out immediately, the
// way a radio discards frames it cannot serve in time.
func (c *Channel) Send(pdu []byte, ttl time.Duration, meta pdcp.FrameMeta) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Sent++
	if c.config.LossRate > 0 && c.rng.Float64() < c.config.LossRate {
		c.stats.Lost++
		c.log.WithFields(logrus.Fields{
			"function": "Send",
			"size":     len(pdu),
			"kind":     meta.Kind,
			"number":   meta.Number,
		}).Debug("PDU lost in transit")
		return
	}

	c.enqueue(pdu, ttl, meta)
	if c.config.DupRate > 0 && c.rng.Float64() < c.config.DupRate {
		c.stats.Duplicated++
		c.enqueue(pdu, ttl, meta)
	}
}

// enqueue draws a transit time for one copy of pdu and queues it.
// The caller holds the lock.
func (c *Channel) enqueue(pdu []byte, ttl time.Duration, meta pdcp.FrameMeta) {
	transit := c.config.Delay
	if c.config.Jitter > 0 {
		transit += time.Duration(c.rng.Int63n(int64(c.config.Jitter)))
	}
	if ttl > 0 && transit > ttl {
		c.stats.Expired++
		c.log.WithFields(logrus.Fields{
			"function": "enqueue",
			"transit":  transit,
			"ttl":      ttl,
		}).Debug("PDU aged out before transmission")
		return
	}

	c.seq++
	c.queue = append(c.queue, &inFlight{
		seq:  c.seq,
		pdu:  append([]byte(nil), pdu...),
		meta: meta,
		due:  c.now + transit,
	})
}

// Discard removes queued PDUs whose bytes begin with header. The sending
// entity issues these advisories when a discard timer expires, and the
// channel obliges for any copy still waiting to be delivered. Copies
// already handed to the receiver are beyond recall.
func (c *Channel) Discard(header []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Advisories++
	dropped := 0
	kept := c.queue[:0]
	for _, f := range c.queue {
		if bytes.HasPrefix(f.pdu, header) {
			dropped++
			continue
		}
		kept = append(kept, f)
	}
	c.queue = kept
	c.stats.AdvisoryDrops += uint64(dropped)

	if dropped > 0 {
		c.log.WithFields(logrus.Fields{
			"function": "Discard",
			"dropped":  dropped,
		}).Debug("Advisory removed queued PDUs")
	}
}

// Step advances the channel clock by delta and delivers every PDU whose
// transit has elapsed, ordered by arrival time with ties broken by send
// order. Negative deltas are ignored.
func (c *Channel) Step(delta time.Duration) {
	c.mu.Lock()
	if delta < 0 {
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{
			"function": "Step",
			"delta":    delta,
		}).Warn("Ignoring negative step")
		return
	}
	c.now += delta

	var due []*inFlight
	kept := c.queue[:0]
	for _, f := range c.queue {
		if f.due <= c.now {
			due = append(due, f)
			continue
		}
		kept = append(kept, f)
	}
	c.queue = kept
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	c.stats.Delivered += uint64(len(due))
	receiver := c.receiver
	c.mu.Unlock()

	var rejected uint64
	for _, f := range due {
		if err := receiver.Receive(f.pdu); err != nil {
			rejected++
			c.log.WithFields(logrus.Fields{
				"function": "Step",
				"error":    err,
			}).Debug("Receiver refused PDU")
		}
	}
	if rejected > 0 {
		c.mu.Lock()
		c.stats.Rejected += rejected
		c.mu.Unlock()
	}
}

// Pending returns the number of PDUs still in flight.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Now returns the channel's accumulated simulated time.
func (c *Channel) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Stats returns a snapshot of the channel's counters.
func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
