package pulse

import (
	"context"

	"codeberg.org/mutker/radmon/internal/errors"
	"codeberg.org/mutker/radmon/internal/logger"
	"go.bug.st/serial"
)

const (
	ErrOpenPort = errors.ErrorCode("pulse_open_port_failed")
	ErrReadPort = errors.ErrorCode("pulse_read_port_failed")
)

// SerialSource counts pulses from a detector board that emits one byte per
// event on a serial line. It stands in for the edge-triggered interrupt of
// a directly wired tube.
type SerialSource struct {
	port    serial.Port
	counter *Counter
}

func OpenSerial(name string, baud int, counter *Counter) (*SerialSource, error) {
	errFactory := errors.New()

	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenPort, err)
	}

	return &SerialSource{
		port:    port,
		counter: counter,
	}, nil
}

// Run reads the port until the context is cancelled or the port fails.
// Every received byte increments the counter; nothing else happens on this
// goroutine so a burst of events cannot back up behind I/O.
func (s *SerialSource) Run(ctx context.Context) {
	buf := make([]byte, 64)

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := s.port.Read(buf)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn().Err(err).Msg("pulse source read failed, stopping")
			}
			return
		}

		for i := 0; i < n; i++ {
			s.counter.Pulse()
		}
	}
}

// Close releases the port, unblocking a pending Run read.
func (s *SerialSource) Close() error {
	return s.port.Close()
}
