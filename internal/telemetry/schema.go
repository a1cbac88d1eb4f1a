package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/radmon/internal/errors"
)

func initSchema(db *sql.DB) error {
	errFactory := errors.New()

	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS readings (
            timestamp INTEGER PRIMARY KEY,
            counts INTEGER,
            rate REAL,
            dose REAL,
            case_temp REAL,
            cpu_temp REAL
        )
    `)
	if err != nil {
		return errFactory.Wrap(ErrStorageInit, err)
	}

	return nil
}
