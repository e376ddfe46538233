package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/pdcp"
	"github.com/opd-ai/pdcp/config"
	"github.com/opd-ai/pdcp/link"
	"github.com/opd-ai/pdcp/trace"
)

// Settings hold the process-level knobs read from PDCPSIM_ environment
// variables.
type Settings struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON     bool   `envconfig:"LOG_JSON" default:"false"`
	Scenario    string `envconfig:"SCENARIO" default:"scenario.toml"`
	SettleTicks int    `envconfig:"SETTLE_TICKS" default:"200"`
}

func main() {
	scenario := flag.String("scenario", "", "Scenario file path (overrides PDCPSIM_SCENARIO)")
	flag.Parse()

	settings, err := loadSettings()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load settings")
	}
	if *scenario != "" {
		settings.Scenario = *scenario
	}

	if err := configureLogging(settings); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	if err := run(settings); err != nil {
		logrus.WithError(err).Fatal("Simulation failed")
	}
}

// loadSettings reads process settings from the environment.
func loadSettings() (*Settings, error) {
	var s Settings
	if err := envconfig.Process("pdcpsim", &s); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if s.SettleTicks < 0 {
		return nil, fmt.Errorf("settle ticks must not be negative: %d", s.SettleTicks)
	}
	return &s, nil
}

// configureLogging applies the log level and format from settings to the
// global logrus logger.
func configureLogging(settings *Settings) error {
	level, err := logrus.ParseLevel(settings.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logrus.SetLevel(level)
	if settings.LogJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// run loads the scenario, wires its bearers and drives the simulated clock
// to completion.
func run(settings *Settings) error {
	scenario, err := config.Load(settings.Scenario)
	if err != nil {
		return err
	}

	recorder := trace.NewRecorder()
	log := logrus.WithFields(logrus.Fields{
		"run_id":   recorder.RunID(),
		"scenario": scenario.Name,
	})
	log.WithFields(logrus.Fields{
		"bearers": len(scenario.Bearers),
		"ticks":   scenario.Ticks,
	}).Info("Simulation starting")

	bearers := make([]*bearerRun, 0, len(scenario.Bearers))
	for i := range scenario.Bearers {
		br, err := newBearerRun(&scenario.Bearers[i], scenario.TickInterval.Duration, recorder)
		if err != nil {
			return fmt.Errorf("bearer %d: %w", i, err)
		}
		bearers = append(bearers, br)
	}

	interval := scenario.TickInterval.Duration
	for tick := 0; tick < scenario.Ticks; tick++ {
		at := time.Duration(tick) * interval
		for _, br := range bearers {
			br.pump(at)
			br.step(interval)
		}
	}

	// Traffic has stopped; let in-flight PDUs land and timers settle.
	for i := 0; i < settings.SettleTicks; i++ {
		for _, br := range bearers {
			br.step(interval)
		}
	}

	for _, br := range bearers {
		br.report(log)
	}
	log.WithField("trace_events", recorder.Len()).Info("Simulation complete")
	return nil
}

// bearerRun wires one bearer end to end: the sending entity fanning out to
// its channels, the receiving entity behind them, and the traffic source
// that drives it.
type bearerRun struct {
	spec      *config.Bearer
	tx        *pdcp.Entity
	rx        *pdcp.Entity
	channels  []*link.Channel
	delivered *sduCounter
	interval  time.Duration
	sent      int
	nextSend  time.Duration
}

// newBearerRun builds both entities for spec and the channels between them.
func newBearerRun(spec *config.Bearer, tickInterval time.Duration, recorder *trace.Recorder) (*bearerRun, error) {
	rx, err := pdcp.New(spec.EntityConfig())
	if err != nil {
		return nil, fmt.Errorf("receive entity: %w", err)
	}
	counter := &sduCounter{}
	rx.SetDeliveryHandler(counter)
	rx.SetTracer(recorder)

	tx, err := pdcp.New(spec.EntityConfig())
	if err != nil {
		return nil, fmt.Errorf("transmit entity: %w", err)
	}
	tx.SetTracer(recorder)

	channels := make([]*link.Channel, 0, len(spec.Links))
	for i := range spec.Links {
		ch, err := link.NewChannel(rx, spec.Links[i].ChannelConfig())
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		tx.RegisterSink(ch)
		channels = append(channels, ch)
	}

	interval := spec.PacketInterval.Duration
	if interval == 0 {
		interval = tickInterval
	}

	return &bearerRun{
		spec:      spec,
		tx:        tx,
		rx:        rx,
		channels:  channels,
		delivered: counter,
		interval:  interval,
	}, nil
}

// pump transmits every SDU that is due by simulated time at.
func (r *bearerRun) pump(at time.Duration) {
	for r.sent < r.spec.Packets && at >= r.nextSend {
		r.tx.Transmit(r.payload(r.sent), pdcp.TransmitOptions{
			Meta: pdcp.FrameMeta{Kind: r.spec.Kind, Number: uint64(r.sent)},
		})
		r.sent++
		r.nextSend += r.interval
	}
}

// step advances the bearer's channels and both entities by delta.
func (r *bearerRun) step(delta time.Duration) {
	for _, ch := range r.channels {
		ch.Step(delta)
	}
	r.tx.Tick(delta)
	r.rx.Tick(delta)
}

// payload builds the i-th SDU: a sequence marker followed by zero filler.
func (r *bearerRun) payload(i int) []byte {
	sdu := make([]byte, r.spec.PacketSize)
	if len(sdu) >= 4 {
		binary.BigEndian.PutUint32(sdu, uint32(i))
	}
	return sdu
}

// report logs the bearer's final accounting.
func (r *bearerRun) report(log *logrus.Entry) {
	txStats := r.tx.Stats()
	rxStats := r.rx.Stats()

	var lost, advisoryDrops uint64
	for _, ch := range r.channels {
		s := ch.Stats()
		lost += s.Lost
		advisoryDrops += s.AdvisoryDrops
	}

	log.WithFields(logrus.Fields{
		"bearer_id":      r.spec.BearerID,
		"kind":           r.spec.Kind,
		"sdus_sent":      txStats.TxSDUs,
		"pdus_sent":      txStats.TxPDUs,
		"discards":       txStats.TxDiscards,
		"delivered":      r.delivered.total(),
		"duplicates":     rxStats.RxDuplicates,
		"stale":          rxStats.RxStale,
		"timer_fires":    rxStats.RxTimerExpiries,
		"link_losses":    lost,
		"advisory_drops": advisoryDrops,
	}).Info("Bearer finished")
}

// sduCounter counts SDUs the receiving entity hands to the upper layer.
type sduCounter struct {
	mu    sync.Mutex
	count uint64
}

func (c *sduCounter) DeliverSDU(sdu []byte, peer uint32) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *sduCounter) total() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
