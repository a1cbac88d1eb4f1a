package sampling

import (
	"errors"
	"testing"
	"time"

	"codeberg.org/mutker/radmon/internal/pulse"
	"github.com/stretchr/testify/assert"
)

type stubSensor struct {
	value float64
	err   error
}

func (s *stubSensor) Read() (float64, error) {
	return s.value, s.err
}

func TestSampleRateEqualsCounts(t *testing.T) {
	counter := &pulse.Counter{}
	agg := NewAggregator(counter, &stubSensor{value: 21.0}, &stubSensor{value: 38.5},
		time.Minute, time.Minute, 0.0057)

	for _, counts := range []int{0, 1, 17, 120} {
		for i := 0; i < counts; i++ {
			counter.Pulse()
		}

		r := agg.Sample(time.Now())
		assert.Equal(t, uint64(counts), r.Counts)
		assert.InDelta(t, float64(counts), r.Rate, 1e-9, "rate equals counts when window and period match")
		assert.InDelta(t, float64(counts)*0.0057, r.Dose, 1e-9)
	}
}

func TestSampleScalesShortWindow(t *testing.T) {
	counter := &pulse.Counter{}
	agg := NewAggregator(counter, &stubSensor{}, &stubSensor{},
		30*time.Second, time.Minute, 1.0)

	for i := 0; i < 10; i++ {
		counter.Pulse()
	}

	r := agg.Sample(time.Now())
	assert.InDelta(t, 20.0, r.Rate, 1e-9, "half-minute window doubles to a per-minute rate")
}

func TestSampleDrainsCounter(t *testing.T) {
	counter := &pulse.Counter{}
	agg := NewAggregator(counter, &stubSensor{}, &stubSensor{}, time.Minute, time.Minute, 1.0)

	counter.Pulse()
	counter.Pulse()

	first := agg.Sample(time.Now())
	second := agg.Sample(time.Now())

	assert.Equal(t, uint64(2), first.Counts)
	assert.Equal(t, uint64(0), second.Counts, "window boundary resets the tally")
}

func TestSampleToleratesSensorFailure(t *testing.T) {
	counter := &pulse.Counter{}
	failing := &stubSensor{value: 19.5, err: errors.New("crc mismatch")}
	agg := NewAggregator(counter, failing, &stubSensor{value: 40.0}, time.Minute, time.Minute, 1.0)

	r := agg.Sample(time.Now())
	assert.InDelta(t, 19.5, r.CaseTemp, 1e-9, "stale value from the sensor is used as-is")
	assert.InDelta(t, 40.0, r.CPUTemp, 1e-9)
}

func TestSampleTimestamp(t *testing.T) {
	counter := &pulse.Counter{}
	agg := NewAggregator(counter, &stubSensor{}, &stubSensor{}, time.Minute, time.Minute, 1.0)

	at := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	r := agg.Sample(at)
	assert.True(t, r.At.Equal(at))
}
