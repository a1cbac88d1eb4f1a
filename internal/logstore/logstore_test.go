package logstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/radmon/internal/sampling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now    time.Time
	synced bool
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Synced() bool   { return c.synced }

func newTestStore(t *testing.T, synced bool) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.log")
	s, err := New(path, &fakeClock{now: time.Now(), synced: synced})
	require.NoError(t, err)
	return s
}

func TestAppendRoundTrip(t *testing.T) {
	s := newTestStore(t, true)

	at := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.FixedZone("", 2*60*60))
	appended, err := s.Append(sampling.Reading{
		At:       at,
		Rate:     23,
		Dose:     0.13,
		CaseTemp: 21.5,
		CPUTemp:  38.25,
	})
	require.NoError(t, err)
	require.True(t, appended)

	lines, err := s.Lines()
	require.NoError(t, err)
	require.Len(t, lines, 1)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "2026-03-14 09:26:53 +0200", got["created_at"])
	assert.Equal(t, "23.00", got["field1"])
	assert.Equal(t, "0.13", got["field2"])
	assert.Equal(t, "21.50", got["field3"])
	assert.Equal(t, "38.25", got["field4"])
}

func TestAppendPreservesOrder(t *testing.T) {
	s := newTestStore(t, true)

	base := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.Append(sampling.Reading{At: base.Add(time.Duration(i) * time.Minute), Rate: float64(i)})
		require.NoError(t, err)
	}

	lines, err := s.Lines()
	require.NoError(t, err)
	require.Len(t, lines, 5)

	for i, line := range lines {
		var got map[string]string
		require.NoError(t, json.Unmarshal([]byte(line), &got))
		assert.Equal(t, base.Add(time.Duration(i)*time.Minute).Format(TimeLayout), got["created_at"])
	}
}

func TestAppendSkippedWhenClockNotSynced(t *testing.T) {
	s := newTestStore(t, false)

	appended, err := s.Append(sampling.Reading{At: time.Now(), Rate: 12})
	require.NoError(t, err)
	assert.False(t, appended, "unsynchronized clock drops the reading")

	count, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTruncate(t *testing.T) {
	s := newTestStore(t, true)

	for i := 0; i < 3; i++ {
		_, err := s.Append(sampling.Reading{At: time.Now(), Rate: float64(i)})
		require.NoError(t, err)
	}

	require.NoError(t, s.Truncate())

	lines, err := s.Lines()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestTruncateMissingFile(t *testing.T) {
	s := newTestStore(t, true)
	assert.NoError(t, s.Truncate(), "truncating an empty store is a no-op")
}

func TestLinesDropsTornTrailingRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.log")
	s, err := New(path, &fakeClock{synced: true})
	require.NoError(t, err)

	content := `{"created_at":"2026-03-14 09:00:00 +0000","field1":"1.00","field2":"0.01","field3":"20.00","field4":"40.00"}
{"created_at":"2026-03-14 09:01:00 +0000","field1":"2.00","field2":"0.02","field3":"20.00","field4":"40.00"}
{"created_at":"2026-03-14 09:0`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lines, err := s.Lines()
	require.NoError(t, err)
	assert.Len(t, lines, 2, "the torn fragment is ignored")
}

func TestLinesMissingFile(t *testing.T) {
	s := newTestStore(t, true)

	lines, err := s.Lines()
	require.NoError(t, err)
	assert.Empty(t, lines)
}
