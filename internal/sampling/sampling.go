// Package sampling turns accumulated pulse counts and sensor reads into
// one immutable Reading per sampling window.
package sampling

import (
	"time"

	"codeberg.org/mutker/radmon/internal/logger"
	"codeberg.org/mutker/radmon/internal/pulse"
)

// Reading is one sampling window's snapshot. It is written to the local
// log, archived, and checked against alert thresholds, then discarded.
type Reading struct {
	At       time.Time
	Counts   uint64
	Rate     float64 // counts normalized to the measurement period (CPM)
	Dose     float64 // rate scaled by the tube calibration factor, µSv/h
	CaseTemp float64
	CPUTemp  float64
}

// TempSensor is a temperature channel that may fail per-cycle; on failure
// it returns its last good value alongside the error.
type TempSensor interface {
	Read() (float64, error)
}

type Aggregator struct {
	counter    *pulse.Counter
	caseSensor TempSensor
	dieSensor  TempSensor
	window     time.Duration
	period     time.Duration
	tubeFactor float64
}

// NewAggregator builds an aggregator for a fixed window length. The
// measurement period equals the window in the stock configuration, making
// rate == counts; they are kept separate so a shorter window can still
// report per-minute rates.
func NewAggregator(counter *pulse.Counter, caseSensor, dieSensor TempSensor, window, period time.Duration, tubeFactor float64) *Aggregator {
	return &Aggregator{
		counter:    counter,
		caseSensor: caseSensor,
		dieSensor:  dieSensor,
		window:     window,
		period:     period,
		tubeFactor: tubeFactor,
	}
}

// Sample drains the pulse counter and polls both temperature channels.
// Sensor failures are logged and tolerated; the stale value already comes
// back from the sensor itself.
func (a *Aggregator) Sample(now time.Time) Reading {
	counts := a.counter.ReadAndReset()

	rate := float64(counts) * (float64(a.period) / float64(a.window))

	caseTemp, err := a.caseSensor.Read()
	if err != nil {
		logger.Warn().Err(err).Msg("case probe read failed, keeping previous value")
	}

	cpuTemp, err := a.dieSensor.Read()
	if err != nil {
		logger.Warn().Err(err).Msg("die sensor read failed, keeping previous value")
	}

	return Reading{
		At:       now,
		Counts:   counts,
		Rate:     rate,
		Dose:     rate * a.tubeFactor,
		CaseTemp: caseTemp,
		CPUTemp:  cpuTemp,
	}
}
