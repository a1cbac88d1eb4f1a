package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/radmon/internal/device"
	"codeberg.org/mutker/radmon/internal/sampling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snap device.Snapshot
}

func (f *fakeSource) Snapshot() device.Snapshot { return f.snap }

func TestStatusEndpoint(t *testing.T) {
	at := time.Date(2026, time.March, 14, 9, 26, 0, 0, time.UTC)
	src := &fakeSource{snap: device.Snapshot{
		Latest: sampling.Reading{
			At:       at,
			Counts:   23,
			Rate:     23,
			Dose:     0.13,
			CaseTemp: 21.5,
			CPUTemp:  38.25,
		},
		Pending:    17,
		LastSample: at,
	}}

	srv := httptest.NewServer(New("127.0.0.1:0", src).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.EqualValues(t, 23, got["counts"])
	assert.EqualValues(t, 17, got["pending"])
	assert.Equal(t, "2026-03-14 09:26:00 +0000", got["sampled_at"])
	assert.NotContains(t, got, "last_upload", "zero times are omitted")
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(New("127.0.0.1:0", &fakeSource{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(New("127.0.0.1:0", &fakeSource{}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
