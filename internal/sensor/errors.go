package sensor

import "codeberg.org/mutker/radmon/internal/errors"

const (
	ErrBusFault      = errors.ErrorCode("sensor_bus_fault")
	ErrNoPresence    = errors.ErrorCode("sensor_no_presence")
	ErrCRCMismatch   = errors.ErrorCode("sensor_crc_mismatch")
	ErrBadFamilyCode = errors.ErrorCode("sensor_bad_family_code")
	ErrReadFailed    = errors.ErrorCode("sensor_read_failed")
)
