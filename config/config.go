// Package config loads simulation scenarios from TOML files and turns them
// into the entity and channel configurations the simulator wires together.
//
// A scenario names its pacing and one or more bearers. Each bearer carries
// its convergence settings, a traffic description, and the set of lower
// layer links its PDUs travel over:
//
//	name = "duplicated-voice"
//	ticks = 400
//	tick_interval = "5ms"
//
//	[[bearers]]
//	ue_id = 7
//	bearer_id = 1
//	sn_size = 12
//	data_ttl = "150ms"
//	reordering_timer = "35ms"
//	duplication = true
//	packets = 100
//	packet_size = 160
//	packet_interval = "20ms"
//	kind = "voice"
//
//	[[bearers.links]]
//	delay = "10ms"
//	jitter = "5ms"
//	loss_rate = 0.05
//	seed = 42
//
// Durations are TOML strings in Go's time.ParseDuration syntax. Omitted
// fields keep their zero values except where Load documents a default.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/opd-ai/pdcp"
	"github.com/opd-ai/pdcp/count"
	"github.com/opd-ai/pdcp/limits"
	"github.com/opd-ai/pdcp/link"
)

var (
	// ErrNoBearers is returned when a scenario defines no bearers.
	ErrNoBearers = errors.New("scenario needs at least one bearer")

	// ErrInvalidPacing is returned when ticks or intervals are negative.
	ErrInvalidPacing = errors.New("pacing values must not be negative")
)

// Duration accepts TOML strings like "35ms" or "1.5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Scenario describes one simulation run: global pacing plus the bearers it
// drives.
type Scenario struct {
	// Name labels the run in logs and reports.
	Name string `toml:"name"`

	// Ticks is the number of simulation steps to run. Defaults to 1000.
	Ticks int `toml:"ticks"`

	// TickInterval is the simulated time each step advances. Defaults to 1ms.
	TickInterval Duration `toml:"tick_interval"`

	Bearers []Bearer `toml:"bearers"`
}

// Bearer holds the convergence settings for one radio bearer together with
// the traffic that exercises it. The protocol fields map one to one onto
// pdcp.Config, so their zero values keep that package's meaning: a zero
// data_ttl waits for explicit delivery confirmation, and zero overheads
// disable header compression.
type Bearer struct {
	CellID   uint32 `toml:"cell_id"`
	UEID     uint32 `toml:"ue_id"`
	BearerID uint32 `toml:"bearer_id"`
	PeerID   uint32 `toml:"peer_id"`

	// SNSize is the sequence number width in bits, 12 or 18. Defaults to 12.
	SNSize uint8 `toml:"sn_size"`

	DataTTL         Duration `toml:"data_ttl"`
	ReorderingTimer Duration `toml:"reordering_timer"`

	OutOfOrder  bool `toml:"out_of_order"`
	Duplication bool `toml:"duplication"`
	Integrity   bool `toml:"integrity"`

	ProtocolOverhead   int `toml:"protocol_overhead"`
	CompressedOverhead int `toml:"compressed_overhead"`

	// Packets is the number of SDUs the traffic source generates.
	// Defaults to 100.
	Packets int `toml:"packets"`

	// PacketSize is the SDU length in bytes. Defaults to 160.
	PacketSize int `toml:"packet_size"`

	// PacketInterval is the simulated time between SDUs. Zero sends one
	// SDU per tick.
	PacketInterval Duration `toml:"packet_interval"`

	// Kind labels the traffic in frame metadata and traces. Defaults to
	// "data".
	Kind string `toml:"kind"`

	// Links lists the lower layer channels carrying this bearer's PDUs.
	// An empty list gets one perfect channel.
	Links []Link `toml:"links"`
}

// Link describes the impairments of one lower layer channel.
type Link struct {
	Delay    Duration `toml:"delay"`
	Jitter   Duration `toml:"jitter"`
	LossRate float64  `toml:"loss_rate"`
	DupRate  float64  `toml:"dup_rate"`
	Seed     int64    `toml:"seed"`
}

// Load reads a scenario from path, fills in defaults and validates it.
func Load(path string) (*Scenario, error) {
	var s Scenario
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// applyDefaults fills the documented defaults for omitted fields.
func (s *Scenario) applyDefaults() {
	if s.Ticks == 0 {
		s.Ticks = 1000
	}
	if s.TickInterval.Duration == 0 {
		s.TickInterval.Duration = time.Millisecond
	}
	for i := range s.Bearers {
		b := &s.Bearers[i]
		if b.SNSize == 0 {
			b.SNSize = 12
		}
		if b.Packets == 0 {
			b.Packets = 100
		}
		if b.PacketSize == 0 {
			b.PacketSize = 160
		}
		if b.Kind == "" {
			b.Kind = "data"
		}
		if len(b.Links) == 0 {
			b.Links = []Link{{}}
		}
	}
}

// Validate reports whether the scenario can be wired into a simulation.
func (s *Scenario) Validate() error {
	if s.Ticks < 0 || s.TickInterval.Duration < 0 {
		return fmt.Errorf("%w: ticks %d tick_interval %v", ErrInvalidPacing, s.Ticks, s.TickInterval.Duration)
	}
	if len(s.Bearers) == 0 {
		return ErrNoBearers
	}
	for i := range s.Bearers {
		b := &s.Bearers[i]
		if b.Packets < 0 || b.PacketInterval.Duration < 0 {
			return fmt.Errorf("bearer %d: %w: packets %d packet_interval %v",
				i, ErrInvalidPacing, b.Packets, b.PacketInterval.Duration)
		}
		if b.PacketSize > limits.MaxSDUSize {
			return fmt.Errorf("bearer %d: packet_size %d: %w", i, b.PacketSize, limits.ErrSDUTooLarge)
		}
		if err := b.EntityConfig().Validate(); err != nil {
			return fmt.Errorf("bearer %d: %w", i, err)
		}
		for j := range b.Links {
			if err := b.Links[j].ChannelConfig().Validate(); err != nil {
				return fmt.Errorf("bearer %d link %d: %w", i, j, err)
			}
		}
	}
	return nil
}

// EntityConfig converts the bearer's protocol fields into an entity
// configuration.
func (b *Bearer) EntityConfig() *pdcp.Config {
	return &pdcp.Config{
		SNSize:              count.SNSize(b.SNSize),
		DataTTL:             b.DataTTL.Duration,
		ReorderingTimer:     b.ReorderingTimer.Duration,
		OutOfOrderDelivery:  b.OutOfOrder,
		PacketDuplication:   b.Duplication,
		IntegrityProtection: b.Integrity,
		ProtocolOverhead:    b.ProtocolOverhead,
		CompressedOverhead:  b.CompressedOverhead,
		CellID:              b.CellID,
		UEID:                b.UEID,
		BearerID:            b.BearerID,
		PeerID:              b.PeerID,
	}
}

// ChannelConfig converts the link description into a channel configuration.
func (l *Link) ChannelConfig() *link.Config {
	return &link.Config{
		Delay:    l.Delay.Duration,
		Jitter:   l.Jitter.Duration,
		LossRate: l.LossRate,
		DupRate:  l.DupRate,
		Seed:     l.Seed,
	}
}
