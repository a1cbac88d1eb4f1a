// Package uploader flushes the buffered reading log to the remote
// collector in fixed-size batches, bringing the network link up only for
// the duration of a pass.
package uploader

import (
	"context"
	"time"

	"codeberg.org/mutker/radmon/internal/errors"
	"codeberg.org/mutker/radmon/internal/logger"
	"github.com/google/uuid"
)

// Poster is satisfied by Client; split out so tests can count batches
// without a server.
type Poster interface {
	PostBatch(ctx context.Context, lines []string) error
}

type Uploader struct {
	link        Link
	poster      Poster
	batchSize   int
	batchDelay  time.Duration
	linkTimeout time.Duration
}

func New(link Link, poster Poster, batchSize int, batchDelay, linkTimeout time.Duration) (*Uploader, error) {
	errFactory := errors.New()

	if batchSize <= 0 {
		return nil, errFactory.New(ErrInvalidConfig)
	}

	return &Uploader{
		link:        link,
		poster:      poster,
		batchSize:   batchSize,
		batchDelay:  batchDelay,
		linkTimeout: linkTimeout,
	}, nil
}

// Flush runs one upload pass: link up, one POST per batch with the
// configured pause in between, link down. A batch that is rejected is
// logged and skipped; there is no retry within a pass. Failure to bring
// the link up within the timeout is fatal for the device.
func (u *Uploader) Flush(ctx context.Context, lines []string) error {
	errFactory := errors.New()

	if len(lines) == 0 {
		return nil
	}

	pass := uuid.NewString()

	upCtx, cancel := context.WithTimeout(ctx, u.linkTimeout)
	defer cancel()
	if err := u.link.Up(upCtx); err != nil {
		return errFactory.Wrap(errors.ErrFatalRestart, err)
	}
	defer u.link.Down()

	batches := Partition(lines, u.batchSize)
	logger.Info().
		Str("pass", pass).
		Int("records", len(lines)).
		Int("batches", len(batches)).
		Msg("starting upload pass")

	for i, batch := range batches {
		if i > 0 {
			// Collector rate limit: fixed pause between bulk calls.
			select {
			case <-ctx.Done():
				return errFactory.Wrap(errors.ErrFatalRestart, ctx.Err())
			case <-time.After(u.batchDelay):
			}
		}

		if err := u.poster.PostBatch(ctx, batch); err != nil {
			logger.Error().
				Err(err).
				Str("pass", pass).
				Int("batch", i).
				Int("records", len(batch)).
				Msg("batch rejected, continuing pass")
			continue
		}

		logger.Debug().
			Str("pass", pass).
			Int("batch", i).
			Int("records", len(batch)).
			Msg("batch accepted")
	}

	logger.Info().Str("pass", pass).Msg("upload pass finished")

	return nil
}

// Partition splits lines into ordered batches of at most size records.
// The concatenation of all batches equals the input; nothing is reordered
// or deduplicated.
func Partition(lines []string, size int) [][]string {
	if len(lines) == 0 {
		return nil
	}

	batches := make([][]string, 0, (len(lines)+size-1)/size)
	for start := 0; start < len(lines); start += size {
		end := start + size
		if end > len(lines) {
			end = len(lines)
		}
		batches = append(batches, lines[start:end])
	}

	return batches
}
