// Package device owns the main loop: a single-threaded cooperative
// scheduler that decides, once per tick, whether to flush the buffered log
// to the collector or to take the next sample.
package device

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/radmon/internal/alert"
	"codeberg.org/mutker/radmon/internal/clock"
	"codeberg.org/mutker/radmon/internal/errors"
	"codeberg.org/mutker/radmon/internal/logger"
	"codeberg.org/mutker/radmon/internal/logstore"
	"codeberg.org/mutker/radmon/internal/sampling"
	"codeberg.org/mutker/radmon/internal/telemetry"
	"codeberg.org/mutker/radmon/internal/uploader"
)

const ErrClockNotSynced = errors.ErrorCode("device_clock_not_synced")

// State is the mutable per-boot bookkeeping, passed explicitly through the
// loop instead of living in package globals.
type State struct {
	Pending    int // readings buffered since the last upload pass
	LastSample time.Time
	LastPass   time.Time
	Latest     sampling.Reading
	Alerts     alert.State
}

// Snapshot is a read-only copy of the state for the status endpoint.
type Snapshot struct {
	Latest     sampling.Reading
	Pending    int
	LastSample time.Time
	LastPass   time.Time
	LastAlert  time.Time
}

type Params struct {
	Clock             clock.Clock
	Aggregator        *sampling.Aggregator
	Store             *logstore.Store
	Uploader          *uploader.Uploader
	Evaluator         *alert.Evaluator
	Archive           telemetry.Archiver
	Tick              time.Duration
	Window            time.Duration
	TransmitThreshold int
}

type Device struct {
	clock             clock.Clock
	agg               *sampling.Aggregator
	store             *logstore.Store
	uploader          *uploader.Uploader
	evaluator         *alert.Evaluator
	archive           telemetry.Archiver
	tickInterval      time.Duration
	window            time.Duration
	transmitThreshold int

	mu    sync.RWMutex
	state State
}

func New(p Params) *Device {
	return &Device{
		clock:             p.Clock,
		agg:               p.Aggregator,
		store:             p.Store,
		uploader:          p.Uploader,
		evaluator:         p.Evaluator,
		archive:           p.Archive,
		tickInterval:      p.Tick,
		window:            p.Window,
		transmitThreshold: p.TransmitThreshold,
	}
}

// Run drives the scheduler until the context is cancelled or a fatal error
// demands a device restart. A clock that never synchronized is fatal up
// front: nothing useful can be recorded without a time base.
func (d *Device) Run(ctx context.Context) error {
	errFactory := errors.New()

	if !d.clock.Synced() {
		return errFactory.Wrap(errors.ErrFatalRestart, errFactory.New(ErrClockNotSynced))
	}

	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.tick(ctx, d.clock.Now()); err != nil {
				return err
			}
		}
	}
}

// tick runs one scheduler decision. The two branches are mutually
// exclusive: a tick that triggers an upload pass does not also sample,
// so a window's pulses simply accumulate until the next tick.
func (d *Device) tick(ctx context.Context, now time.Time) error {
	if d.pending() >= d.transmitThreshold {
		return d.upload(ctx, now)
	}

	if d.windowElapsed(now) {
		d.sample(ctx, now)
	}

	return nil
}

func (d *Device) upload(ctx context.Context, now time.Time) error {
	lines, err := d.store.Lines()
	if err != nil {
		logger.Error().Err(err).Msg("failed to read log store for upload")
	}

	if err := d.uploader.Flush(ctx, lines); err != nil {
		// Flush only fails fatally (link timeout); rejected batches are
		// swallowed inside the pass.
		return err
	}

	// The store is cleared whether or not every batch was accepted;
	// rejected records are gone.
	if err := d.store.Truncate(); err != nil {
		logger.Error().Err(err).Msg("failed to truncate log store after upload")
	}

	d.mu.Lock()
	d.state.Pending = 0
	d.state.LastPass = now
	d.mu.Unlock()

	return nil
}

func (d *Device) sample(ctx context.Context, now time.Time) {
	r := d.agg.Sample(now)

	appended, err := d.store.Append(r)
	if err != nil {
		logger.Error().Err(err).Msg("failed to append reading")
	}

	if err := d.archive.Record(ctx, r); err != nil {
		logger.Warn().Err(err).Msg("failed to archive reading")
	}

	// The loop is the only writer, so the alert state can be worked on as
	// a copy while the notifier blocks, then written back.
	d.mu.Lock()
	if appended {
		d.state.Pending++
	}
	d.state.LastSample = now
	d.state.Latest = r
	alerts := d.state.Alerts
	d.mu.Unlock()

	d.evaluator.Check(ctx, &alerts, r, now)

	d.mu.Lock()
	d.state.Alerts = alerts
	d.mu.Unlock()

	logger.Debug().
		Uint64("counts", r.Counts).
		Float64("rate", r.Rate).
		Float64("dose", r.Dose).
		Float64("case_temp", r.CaseTemp).
		Float64("cpu_temp", r.CPUTemp).
		Int("pending", d.pending()).
		Msg("sampled window")
}

func (d *Device) pending() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.Pending
}

func (d *Device) windowElapsed(now time.Time) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.LastSample.IsZero() || now.Sub(d.state.LastSample) >= d.window
}

// Snapshot returns a copy of the loop state for diagnostics.
func (d *Device) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Snapshot{
		Latest:     d.state.Latest,
		Pending:    d.state.Pending,
		LastSample: d.state.LastSample,
		LastPass:   d.state.LastPass,
		LastAlert:  d.state.Alerts.LastAlert,
	}
}
