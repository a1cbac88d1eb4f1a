package telemetry_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/radmon/internal/sampling"
	"codeberg.org/mutker/radmon/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func TestDisabledArchiveIsNoop(t *testing.T) {
	archive, err := telemetry.NewService(telemetry.Config{Enabled: false})
	require.NoError(t, err)
	defer archive.Close()

	err = archive.Record(context.Background(), sampling.Reading{At: time.Now()})
	assert.NoError(t, err)
}

func TestEnabledArchiveRequiresPath(t *testing.T) {
	_, err := telemetry.NewService(telemetry.Config{Enabled: true})
	require.Error(t, err)
}

func TestRecordAndQueryBack(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	archive, err := telemetry.NewService(telemetry.Config{Enabled: true, DBPath: dbPath})
	require.NoError(t, err)

	at := time.Date(2026, time.March, 14, 9, 26, 0, 0, time.UTC)
	err = archive.Record(context.Background(), sampling.Reading{
		At:       at,
		Counts:   23,
		Rate:     23,
		Dose:     0.1311,
		CaseTemp: 21.5,
		CPUTemp:  38.25,
	})
	require.NoError(t, err)
	require.NoError(t, archive.Close())

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var (
		counts                        int
		rate, dose, caseTemp, cpuTemp float64
	)
	row := db.QueryRow(`SELECT counts, rate, dose, case_temp, cpu_temp FROM readings WHERE timestamp = ?`, at.Unix())
	require.NoError(t, row.Scan(&counts, &rate, &dose, &caseTemp, &cpuTemp))

	assert.Equal(t, 23, counts)
	assert.InDelta(t, 23.0, rate, 1e-9)
	assert.InDelta(t, 0.1311, dose, 1e-9)
	assert.InDelta(t, 21.5, caseTemp, 1e-9)
	assert.InDelta(t, 38.25, cpuTemp, 1e-9)
}

func TestRecordRejectsZeroTimestamp(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	archive, err := telemetry.NewService(telemetry.Config{Enabled: true, DBPath: dbPath})
	require.NoError(t, err)
	defer archive.Close()

	err = archive.Record(context.Background(), sampling.Reading{})
	assert.Error(t, err)
}
