package pdcp

import (
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/pdcp/count"
	"github.com/opd-ai/pdcp/rohc"
)

// ErrInvalidSNSize indicates a sequence number width other than 12 or 18 bits.
var ErrInvalidSNSize = errors.New("SN size must be 12 or 18 bits")

// ErrNegativeDuration indicates a negative timer value in the configuration.
var ErrNegativeDuration = errors.New("timer duration cannot be negative")

// Config contains configuration options for creating a convergence entity.
// One entity serves one bearer; the identity fields feed logging, tracing
// and the delivery callback and have no protocol effect.
type Config struct {
	// SNSize is the on-wire sequence number width, 12 or 18 bits.
	SNSize count.SNSize

	// DataTTL is the discard-timer value applied to every transmitted
	// SDU unless overridden per call. Zero disables expiry: pending
	// entries then live until retired by ConfirmDelivery.
	DataTTL time.Duration

	// ReorderingTimer is the starting value of the receive-side
	// reordering timer.
	ReorderingTimer time.Duration

	// OutOfOrderDelivery hands received SDUs to the upper layer
	// immediately instead of reordering them.
	OutOfOrderDelivery bool

	// PacketDuplication sends every PDU to all registered sinks instead
	// of only the first.
	PacketDuplication bool

	// IntegrityProtection appends the reserved footer to every data PDU
	// and requires it on receive.
	IntegrityProtection bool

	// ProtocolOverhead is the upper-layer header size in bytes that the
	// compression emulation operates on.
	ProtocolOverhead int

	// CompressedOverhead is the header size in bytes remaining after
	// compression. Must not exceed ProtocolOverhead.
	CompressedOverhead int

	// Identity of the bearer this entity serves.
	CellID   uint32
	UEID     uint32
	BearerID uint32

	// PeerID identifies the remote end of the bearer and is passed to
	// the delivery handler with every SDU.
	PeerID uint32
}

// NewConfig creates a new default Config: 12-bit sequence numbers, a
// 150ms discard timer, a 35ms reordering timer and the classic 40-byte
// IPv4/UDP/RTP header compressed to 3 bytes.
func NewConfig() *Config {
	return &Config{
		SNSize:             count.SNSize12,
		DataTTL:            150 * time.Millisecond,
		ReorderingTimer:    35 * time.Millisecond,
		ProtocolOverhead:   40,
		CompressedOverhead: 3,
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if !c.SNSize.Valid() {
		return fmt.Errorf("%w: got %d", ErrInvalidSNSize, c.SNSize)
	}
	if c.DataTTL < 0 {
		return fmt.Errorf("%w: DataTTL %v", ErrNegativeDuration, c.DataTTL)
	}
	if c.ReorderingTimer < 0 {
		return fmt.Errorf("%w: ReorderingTimer %v", ErrNegativeDuration, c.ReorderingTimer)
	}
	if _, err := rohc.NewProfile(c.ProtocolOverhead, c.CompressedOverhead); err != nil {
		return fmt.Errorf("compression profile: %w", err)
	}
	return nil
}
