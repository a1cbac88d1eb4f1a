// Package logstore is the append-only buffer between the sampling loop and
// the batch uploader: one line-delimited JSON record per reading, in a
// single file that is truncated after every upload pass.
package logstore

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"codeberg.org/mutker/radmon/internal/clock"
	"codeberg.org/mutker/radmon/internal/errors"
	"codeberg.org/mutker/radmon/internal/logger"
	"codeberg.org/mutker/radmon/internal/sampling"
)

const (
	ErrStorageInit   = errors.ErrorCode("logstore_storage_init_failed")
	ErrAppendFailed  = errors.ErrorCode("logstore_append_failed")
	ErrReadFailed    = errors.ErrorCode("logstore_read_failed")
	ErrTruncate      = errors.ErrorCode("logstore_truncate_failed")
	ErrClockNotReady = errors.ErrorCode("logstore_clock_not_synced")
)

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644

	// TimeLayout is the created_at format of every stored record.
	TimeLayout = "2006-01-02 15:04:05 -0700"
)

// record is the wire shape of one stored line. The collector's channel
// fields are positional, so the reading's values map onto field1..field4.
type record struct {
	CreatedAt string `json:"created_at"`
	Field1    string `json:"field1"` // rate (CPM)
	Field2    string `json:"field2"` // dose estimate (µSv/h)
	Field3    string `json:"field3"` // case temperature (°C)
	Field4    string `json:"field4"` // die temperature (°C)
}

type Store struct {
	path  string
	clock clock.Clock
}

// New prepares a store at path. A failure to create the directory is
// reported but still returns a usable store: the boot sequence logs the
// problem and attempts the loop anyway, and each append fails on its own.
func New(path string, clk clock.Clock) (*Store, error) {
	errFactory := errors.New()

	s := &Store{
		path:  path,
		clock: clk,
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return s, errFactory.Wrap(ErrStorageInit, err)
	}

	return s, nil
}

// Append serializes one reading and appends it as a single line. If the
// clock has not been synchronized the reading is dropped: a record with a
// bogus timestamp is worse than a gap. Returns whether a line was written.
func (s *Store) Append(r sampling.Reading) (bool, error) {
	errFactory := errors.New()

	if !s.clock.Synced() {
		logger.Warn().Msg("clock not synchronized, dropping reading")
		return false, nil
	}

	line, err := json.Marshal(record{
		CreatedAt: r.At.Format(TimeLayout),
		Field1:    formatValue(r.Rate),
		Field2:    formatValue(r.Dose),
		Field3:    formatValue(r.CaseTemp),
		Field4:    formatValue(r.CPUTemp),
	})
	if err != nil {
		return false, errFactory.Wrap(ErrAppendFailed, err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, defaultFilePerm)
	if err != nil {
		return false, errFactory.Wrap(ErrAppendFailed, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return false, errFactory.Wrap(ErrAppendFailed, err)
	}

	return true, nil
}

// Lines reads the full store sequentially. A trailing fragment without a
// newline (a torn write from a power loss) is dropped, not surfaced.
func (s *Store) Lines() ([]string, error) {
	errFactory := errors.New()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errFactory.Wrap(ErrReadFailed, err)
	}
	defer f.Close()

	var (
		lines   []string
		partial string
	)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if partial != "" {
			lines = append(lines, partial)
		}
		partial = scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		return nil, errFactory.Wrap(ErrReadFailed, err)
	}

	if partial != "" && s.endsWithNewline() {
		lines = append(lines, partial)
	} else if partial != "" {
		logger.Warn().Msg("dropping torn trailing record from log store")
	}

	return lines, nil
}

// Truncate empties the store. Called unconditionally after an upload pass.
func (s *Store) Truncate() error {
	errFactory := errors.New()

	if err := os.Truncate(s.path, 0); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(ErrTruncate, err)
	}

	return nil
}

// Count returns the number of complete records currently buffered.
func (s *Store) Count() (int, error) {
	lines, err := s.Lines()
	if err != nil {
		return 0, err
	}

	return len(lines), nil
}

func (s *Store) endsWithNewline() bool {
	f, err := os.Open(s.path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}

	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, info.Size()-1); err != nil {
		return false
	}

	return buf[0] == '\n'
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
