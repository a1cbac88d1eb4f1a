package telemetry

import (
	"context"

	"codeberg.org/mutker/radmon/internal/sampling"
)

// Archiver keeps a local copy of every reading. The upload log is
// truncated after each pass whether or not the collector accepted the
// batches; the archive is the only place history survives on-device.
type Archiver interface {
	Record(ctx context.Context, r sampling.Reading) error
	Close() error
}
