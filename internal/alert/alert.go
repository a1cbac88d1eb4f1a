// Package alert checks derived readings against fixed thresholds and
// dispatches rate-limited out-of-band notifications.
package alert

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/radmon/internal/logger"
	"codeberg.org/mutker/radmon/internal/sampling"
)

// Event identifiers sent to the notification channel.
const (
	EventAbnormalRadiation = "radiation_abnormal"
	EventHighTemperature   = "temperature_high"
)

// Notifier dispatches one outbound notification. Implementations decide the
// transport; failures are reported but never retried here.
type Notifier interface {
	Notify(ctx context.Context, event, value string) error
}

// State carries the rate-limiting bookkeeping across windows. A single
// timestamp is shared by both channels, which is deliberately conservative:
// a temperature alert also silences the radiation channel for one cooldown.
type State struct {
	LastAlert time.Time
}

// Fired reports whether an alert has ever been dispatched.
func (s *State) Fired() bool {
	return !s.LastAlert.IsZero()
}

type Evaluator struct {
	notifier  Notifier
	doseLimit float64
	tempLimit float64
	cooldown  time.Duration
}

func NewEvaluator(notifier Notifier, doseLimit, tempLimit float64, cooldown time.Duration) *Evaluator {
	return &Evaluator{
		notifier:  notifier,
		doseLimit: doseLimit,
		tempLimit: tempLimit,
		cooldown:  cooldown,
	}
}

// Check runs both threshold checks for one reading. Dispatch failures are
// logged and dropped; the sampling loop must not stall on the notifier.
func (e *Evaluator) Check(ctx context.Context, st *State, r sampling.Reading, now time.Time) {
	if r.Dose >= e.doseLimit {
		e.dispatch(ctx, st, EventAbnormalRadiation, r.Dose, now)
	}

	if r.CaseTemp >= e.tempLimit {
		e.dispatch(ctx, st, EventHighTemperature, r.CaseTemp, now)
	}
}

func (e *Evaluator) dispatch(ctx context.Context, st *State, event string, value float64, now time.Time) {
	if st.Fired() && now.Sub(st.LastAlert) < e.cooldown {
		logger.Debug().
			Str("event", event).
			Time("last_alert", st.LastAlert).
			Msg("alert suppressed by cooldown")
		return
	}

	payload := fmt.Sprintf("%.2f", value)
	if err := e.notifier.Notify(ctx, event, payload); err != nil {
		logger.Error().Err(err).Str("event", event).Msg("alert dispatch failed")
		return
	}

	st.LastAlert = now
	logger.Info().Str("event", event).Str("value", payload).Msg("alert dispatched")
}
