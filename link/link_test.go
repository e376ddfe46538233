package link

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/pdcp"
)

// recordingReceiver collects every PDU the channel delivers.
type recordingReceiver struct {
	mu   sync.Mutex
	pdus [][]byte
}

func (r *recordingReceiver) Receive(pdu []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pdus = append(r.pdus, append([]byte(nil), pdu...))
	return nil
}

func (r *recordingReceiver) received() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.pdus))
	copy(out, r.pdus)
	return out
}

// failingReceiver refuses every delivery.
type failingReceiver struct{}

func (failingReceiver) Receive(pdu []byte) error {
	return errors.New("refused")
}

// collector counts SDUs an entity hands to the upper layer.
type collector struct {
	mu   sync.Mutex
	sdus [][]byte
}

func (c *collector) DeliverSDU(sdu []byte, peer uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sdus = append(c.sdus, append([]byte(nil), sdu...))
}

func (c *collector) delivered() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sdus))
	copy(out, c.sdus)
	return out
}

func TestNewChannelValidation(t *testing.T) {
	rec := &recordingReceiver{}

	tests := []struct {
		name     string
		receiver Receiver
		config   *Config
		wantErr  error
	}{
		{"nil receiver", nil, nil, ErrNilReceiver},
		{"nil config uses defaults", rec, nil, nil},
		{"negative delay", rec, &Config{Delay: -time.Millisecond}, ErrNegativeDelay},
		{"negative jitter", rec, &Config{Jitter: -time.Millisecond}, ErrNegativeDelay},
		{"loss rate above one", rec, &Config{LossRate: 1.5}, ErrRateOutOfRange},
		{"negative loss rate", rec, &Config{LossRate: -0.1}, ErrRateOutOfRange},
		{"duplication rate above one", rec, &Config{DupRate: 2}, ErrRateOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewChannel(tt.receiver, tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, c)
		})
	}
}

func TestPerfectChannelPreservesOrder(t *testing.T) {
	rec := &recordingReceiver{}
	c, err := NewChannel(rec, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		c.Send([]byte{byte(i)}, 0, pdcp.FrameMeta{})
	}
	c.Step(0)

	got := rec.received()
	require.Len(t, got, 10)
	for i, pdu := range got {
		assert.Equal(t, []byte{byte(i)}, pdu)
	}

	stats := c.Stats()
	assert.Equal(t, uint64(10), stats.Sent)
	assert.Equal(t, uint64(10), stats.Delivered)
	assert.Zero(t, stats.Lost)
	assert.Zero(t, stats.Duplicated)
}

func TestDelayHoldsDelivery(t *testing.T) {
	rec := &recordingReceiver{}
	c, err := NewChannel(rec, &Config{Delay: 10 * time.Millisecond})
	require.NoError(t, err)

	c.Send([]byte{0x01}, 0, pdcp.FrameMeta{})
	assert.Equal(t, 1, c.Pending())

	c.Step(9 * time.Millisecond)
	assert.Empty(t, rec.received())
	assert.Equal(t, 1, c.Pending())

	c.Step(1 * time.Millisecond)
	assert.Len(t, rec.received(), 1)
	assert.Zero(t, c.Pending())
}

func TestFullLossDropsEverything(t *testing.T) {
	rec := &recordingReceiver{}
	c, err := NewChannel(rec, &Config{LossRate: 1})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		c.Send([]byte{byte(i)}, 0, pdcp.FrameMeta{})
	}
	c.Step(time.Second)

	assert.Empty(t, rec.received())
	stats := c.Stats()
	assert.Equal(t, uint64(5), stats.Sent)
	assert.Equal(t, uint64(5), stats.Lost)
	assert.Zero(t, stats.Delivered)
}

func TestDuplicationQueuesSecondCopy(t *testing.T) {
	rec := &recordingReceiver{}
	c, err := NewChannel(rec, &Config{DupRate: 1})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c.Send([]byte{byte(i)}, 0, pdcp.FrameMeta{})
	}
	c.Step(0)

	assert.Len(t, rec.received(), 6)
	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.Sent)
	assert.Equal(t, uint64(3), stats.Duplicated)
	assert.Equal(t, uint64(6), stats.Delivered)
}

func TestJitterStaysWithinBound(t *testing.T) {
	rec := &recordingReceiver{}
	c, err := NewChannel(rec, &Config{
		Delay:  5 * time.Millisecond,
		Jitter: 10 * time.Millisecond,
		Seed:   1,
	})
	require.NoError(t, err)

	sent := make(map[byte]bool)
	for i := 0; i < 20; i++ {
		c.Send([]byte{byte(i)}, 0, pdcp.FrameMeta{})
		sent[byte(i)] = true
	}

	// Transit is bounded by delay plus jitter, so nothing arrives before
	// the fixed delay and everything has arrived once the bound elapses.
	c.Step(4 * time.Millisecond)
	assert.Empty(t, rec.received())

	c.Step(11 * time.Millisecond)
	got := rec.received()
	require.Len(t, got, 20)
	for _, pdu := range got {
		assert.True(t, sent[pdu[0]], "delivered PDU %#x was never sent", pdu[0])
	}
}

func TestTimeBudgetAgesOutSlowPDU(t *testing.T) {
	rec := &recordingReceiver{}
	c, err := NewChannel(rec, &Config{Delay: 20 * time.Millisecond})
	require.NoError(t, err)

	c.Send([]byte{0x01}, 10*time.Millisecond, pdcp.FrameMeta{})
	c.Send([]byte{0x02}, 0, pdcp.FrameMeta{})
	c.Send([]byte{0x03}, 30*time.Millisecond, pdcp.FrameMeta{})
	c.Send([]byte{0x04}, 20*time.Millisecond, pdcp.FrameMeta{})

	c.Step(20 * time.Millisecond)

	got := rec.received()
	require.Len(t, got, 3)
	assert.Equal(t, []byte{0x02}, got[0])
	assert.Equal(t, []byte{0x03}, got[1])
	assert.Equal(t, []byte{0x04}, got[2])

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Expired)
}

func TestDiscardAdvisoryRemovesQueued(t *testing.T) {
	rec := &recordingReceiver{}
	c, err := NewChannel(rec, &Config{Delay: 50 * time.Millisecond})
	require.NoError(t, err)

	c.Send([]byte{0x80, 0x00, 0xAA}, 0, pdcp.FrameMeta{})
	c.Send([]byte{0x80, 0x01, 0xBB}, 0, pdcp.FrameMeta{})
	require.Equal(t, 2, c.Pending())

	c.Discard([]byte{0x80, 0x00})
	assert.Equal(t, 1, c.Pending())

	c.Step(50 * time.Millisecond)
	got := rec.received()
	require.Len(t, got, 1)
	assert.Equal(t, []byte{0x80, 0x01, 0xBB}, got[0])

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Advisories)
	assert.Equal(t, uint64(1), stats.AdvisoryDrops)
}

func TestAdvisoryRemovesDuplicateCopies(t *testing.T) {
	rec := &recordingReceiver{}
	c, err := NewChannel(rec, &Config{Delay: 50 * time.Millisecond, DupRate: 1})
	require.NoError(t, err)

	c.Send([]byte{0x80, 0x00, 0xAA}, 0, pdcp.FrameMeta{})
	require.Equal(t, 2, c.Pending())

	c.Discard([]byte{0x80, 0x00})
	assert.Zero(t, c.Pending())
	assert.Equal(t, uint64(2), c.Stats().AdvisoryDrops)
}

func TestSameSeedSameFate(t *testing.T) {
	config := &Config{
		Delay:    5 * time.Millisecond,
		Jitter:   20 * time.Millisecond,
		LossRate: 0.5,
		DupRate:  0.2,
		Seed:     7,
	}

	recA := &recordingReceiver{}
	recB := &recordingReceiver{}
	a, err := NewChannel(recA, config)
	require.NoError(t, err)
	b, err := NewChannel(recB, config)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		pdu := []byte{byte(i >> 8), byte(i), 0xEE}
		a.Send(pdu, 0, pdcp.FrameMeta{})
		b.Send(pdu, 0, pdcp.FrameMeta{})
	}
	a.Step(time.Second)
	b.Step(time.Second)

	assert.Equal(t, recA.received(), recB.received())
	assert.Equal(t, a.Stats(), b.Stats())
}

func TestRefusedDeliveriesAreCounted(t *testing.T) {
	c, err := NewChannel(failingReceiver{}, nil)
	require.NoError(t, err)

	c.Send([]byte{0x01}, 0, pdcp.FrameMeta{})
	c.Send([]byte{0x02}, 0, pdcp.FrameMeta{})
	c.Step(0)

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Delivered)
	assert.Equal(t, uint64(2), stats.Rejected)
}

func TestNegativeStepIgnored(t *testing.T) {
	rec := &recordingReceiver{}
	c, err := NewChannel(rec, nil)
	require.NoError(t, err)

	c.Send([]byte{0x01}, 0, pdcp.FrameMeta{})
	c.Step(-time.Millisecond)

	assert.Zero(t, c.Now())
	assert.Equal(t, 1, c.Pending())
}

// TestDuplicatedBearerOverImpairedLinks runs a full transmit path: one
// sending entity duplicating onto a lossy jittered channel and a clean
// slow channel, both feeding one receiving entity. Every SDU survives via
// the clean channel, so the receiver must deliver the complete sequence in
// order while absorbing the duplicates and early arrivals from the fast
// channel.
func TestDuplicatedBearerOverImpairedLinks(t *testing.T) {
	rxConfig := pdcp.NewConfig()
	rxConfig.DataTTL = 0
	rxConfig.ReorderingTimer = 50 * time.Millisecond
	rxConfig.ProtocolOverhead = 0
	rxConfig.CompressedOverhead = 0
	rxConfig.PeerID = 7

	rx, err := pdcp.New(rxConfig)
	require.NoError(t, err)
	sink := &collector{}
	rx.SetDeliveryHandler(sink)

	fast, err := NewChannel(rx, &Config{
		Delay:    5 * time.Millisecond,
		Jitter:   10 * time.Millisecond,
		LossRate: 0.5,
		Seed:     42,
	})
	require.NoError(t, err)
	slow, err := NewChannel(rx, &Config{Delay: 30 * time.Millisecond})
	require.NoError(t, err)

	txConfig := pdcp.NewConfig()
	txConfig.DataTTL = 0
	txConfig.ReorderingTimer = 50 * time.Millisecond
	txConfig.ProtocolOverhead = 0
	txConfig.CompressedOverhead = 0
	txConfig.PacketDuplication = true

	tx, err := pdcp.New(txConfig)
	require.NoError(t, err)
	tx.RegisterSink(fast)
	tx.RegisterSink(slow)

	const n = 50
	for i := 0; i < n; i++ {
		sdu := make([]byte, 4)
		binary.BigEndian.PutUint32(sdu, uint32(i))
		tx.Transmit(sdu, pdcp.TransmitOptions{})
	}

	step := 5 * time.Millisecond
	for i := 0; i < 60; i++ {
		fast.Step(step)
		slow.Step(step)
		rx.Tick(step)
	}

	got := sink.delivered()
	require.Len(t, got, n)
	for i, sdu := range got {
		assert.Equal(t, uint32(i), binary.BigEndian.Uint32(sdu))
	}

	assert.Zero(t, fast.Pending())
	assert.Zero(t, slow.Pending())
	assert.Equal(t, uint64(n), slow.Stats().Delivered)

	stats := rx.Stats()
	assert.Equal(t, uint64(n), stats.RxDelivered)
	assert.Zero(t, stats.RxMalformed)
	assert.Zero(t, stats.RxTimerExpiries)
	// Arrivals beyond one copy per COUNT are rejected as duplicates or,
	// once the window moved past them, as stale.
	assert.Equal(t, stats.RxPDUs-n, stats.RxDuplicates+stats.RxStale)
	assert.GreaterOrEqual(t, stats.RxPDUs, uint64(n))
	assert.LessOrEqual(t, stats.RxPDUs, uint64(2*n))
}
