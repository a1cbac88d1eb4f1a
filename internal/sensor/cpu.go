package sensor

import (
	"os"
	"strconv"
	"strings"

	"codeberg.org/mutker/radmon/internal/errors"
)

const defaultThermalZone = "/sys/class/thermal/thermal_zone0/temp"

// CPUTemp reads the SoC's on-die temperature from the kernel thermal zone.
type CPUTemp struct {
	path string
	last float64
}

func NewCPUTemp() *CPUTemp {
	return &CPUTemp{path: defaultThermalZone}
}

// NewCPUTempAt reads from an explicit thermal zone path.
func NewCPUTempAt(path string) *CPUTemp {
	return &CPUTemp{path: path}
}

// Read returns the die temperature in °C. On failure the last good value is
// returned with the error; the caller logs and keeps going.
func (c *CPUTemp) Read() (float64, error) {
	errFactory := errors.New()

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return c.last, errFactory.Wrap(ErrReadFailed, err)
	}

	milli, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return c.last, errFactory.Wrap(ErrReadFailed, err)
	}

	c.last = float64(milli) / 1000.0

	return c.last, nil
}

// Disabled is a temperature channel that is not fitted; it always reads
// zero so the reading keeps its shape.
type Disabled struct{}

func (Disabled) Read() (float64, error) { return 0, nil }
