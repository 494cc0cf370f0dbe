package history

import (
	"database/sql"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/logger"
)

const (
	SchemaVersion = 1

	// SQL statements derived from schema
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS samples (
	       id                           INTEGER PRIMARY KEY AUTOINCREMENT,
	       time                         INTEGER NOT NULL CHECK (typeof(time) = 'integer'),
	       current_temp                 REAL NOT NULL,
	       desired_temp                 REAL NOT NULL,
	       outside_temp                 REAL NOT NULL,
	       outside_temp_collection_time INTEGER NOT NULL,
	       heater_is_on                 INTEGER NOT NULL CHECK (heater_is_on IN (0, 1)),
	       wind_dir                     REAL NOT NULL DEFAULT 0,
	       wind_speed                   REAL NOT NULL DEFAULT 0,
	       gust                         REAL NOT NULL DEFAULT 0,
	       pressure                     REAL NOT NULL DEFAULT 0,
	       humidity                     REAL NOT NULL DEFAULT 0,
	       outside_humidity             REAL NOT NULL DEFAULT 0,
	       main_weather                 TEXT NOT NULL DEFAULT '[]'
	   );
	   CREATE INDEX IF NOT EXISTS samples_time ON samples (time);`

	insertSampleSQL = `
    INSERT INTO samples (
        time,
        current_temp, desired_temp,
        outside_temp, outside_temp_collection_time,
        heater_is_on,
        wind_dir, wind_speed, gust, pressure,
        humidity, outside_humidity, main_weather
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectSamplesSQL = `
    SELECT
        time,
        current_temp, desired_temp,
        outside_temp, outside_temp_collection_time,
        heater_is_on,
        wind_dir, wind_speed, gust, pressure,
        humidity, outside_humidity, main_weather
    FROM samples
    ORDER BY id`
)

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				if !errors.Is(err, sql.ErrTxDone) {
					log.Debug().Err(err).Msg("Failed to rollback transaction")
				}
			}
		}
	}()

	log.Debug().Str("sql", createTablesSQL).Msg("Executing SQL statement")
	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the current schema version, 0 for an empty database
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}
