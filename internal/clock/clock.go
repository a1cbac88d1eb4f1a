// Package clock abstracts the device's notion of synchronized wall-clock
// time. Readings are only persisted with timestamps from a synchronized
// clock; before sync the time base is meaningless and writes are skipped.
package clock

import "time"

type Clock interface {
	Now() time.Time
	// Synced reports whether the wall clock has been set from a trusted
	// source since boot.
	Synced() bool
}

// System is the host implementation. Boards without a battery-backed RTC
// boot with the epoch (or a build date) until NTP sets the clock, so any
// time before the validity floor is treated as unsynchronized.
type System struct{}

var validityFloor = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

func (System) Now() time.Time {
	return time.Now()
}

func (System) Synced() bool {
	return time.Now().After(validityFloor)
}
