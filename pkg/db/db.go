// Package db pkg/db/db.go provides SQLite database functionality for Hello Farm
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dateLayout = "2006-01-02"

	// SQL statements for database initialization.
	createTablesSQL = `
	-- Monitored farm plots
	CREATE TABLE IF NOT EXISTS plots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name_english TEXT UNIQUE NOT NULL,
		name_telugu TEXT NOT NULL,
		crop_type_english TEXT NOT NULL,
		crop_type_telugu TEXT NOT NULL,
		size_acres REAL NOT NULL,
		center_latitude REAL NOT NULL,
		center_longitude REAL NOT NULL,
		irrigation_frequency_days INTEGER NOT NULL,
		last_irrigated TIMESTAMP,
		notes TEXT,
		boundary_corners TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Irrigation log
	CREATE TABLE IF NOT EXISTS irrigation_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plot_id INTEGER NOT NULL,
		irrigated_date TIMESTAMP NOT NULL,
		ndvi_reading REAL,
		notes TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (plot_id) REFERENCES plots(id) ON DELETE CASCADE
	);

	-- Satellite observation history, append-only
	CREATE TABLE IF NOT EXISTS satellite_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plot_id INTEGER NOT NULL,
		check_date TIMESTAMP NOT NULL,
		satellite_source TEXT NOT NULL,
		ndvi_value REAL NOT NULL,
		cloud_cover_percent REAL,
		health_score REAL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (plot_id) REFERENCES plots(id) ON DELETE CASCADE
	);

	-- Tracks which image dates were already notified; the UNIQUE
	-- constraint enforces notify-once per (plot, image date)
	CREATE TABLE IF NOT EXISTS satellite_notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plot_id INTEGER NOT NULL,
		satellite_date TEXT NOT NULL,
		satellite_name TEXT,
		ndvi REAL,
		sent_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(plot_id, satellite_date),
		FOREIGN KEY (plot_id) REFERENCES plots(id) ON DELETE CASCADE
	);

	-- Indexes for better query performance
	CREATE INDEX IF NOT EXISTS idx_satellite_history_plot_time
		ON satellite_history(plot_id, check_date);
	CREATE INDEX IF NOT EXISTS idx_irrigation_log_plot_time
		ON irrigation_log(plot_id, irrigated_date);
	CREATE INDEX IF NOT EXISTS idx_notifications_plot_date
		ON satellite_notifications(plot_id, satellite_date);

	PRAGMA foreign_keys=ON;
	`
)

// DB represents the database connection and operations.
type DB struct {
	*sql.DB
}

// New creates a new database connection and initializes the schema.
func New(dbPath string) (Service, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToEnableWAL, err)
	}

	db := &DB{sqlDB}
	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	return db, nil
}

// initSchema creates the database tables if they don't exist.
func (db *DB) initSchema() error {
	_, err := db.Exec(createTablesSQL)

	return err
}

// AddPlot inserts a new plot. When at least three boundary corners are
// provided, the plot center is recomputed from them.
func (db *DB) AddPlot(plot *Plot) (int64, error) {
	if len(plot.Corners) >= 3 {
		var latSum, lonSum float64
		for _, c := range plot.Corners {
			latSum += c.Lat
			lonSum += c.Lon
		}

		plot.Latitude = latSum / float64(len(plot.Corners))
		plot.Longitude = lonSum / float64(len(plot.Corners))
	}

	var cornersJSON any
	if len(plot.Corners) > 0 {
		data, err := json.Marshal(plot.Corners)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal corners: %w", err)
		}

		cornersJSON = string(data)
	}

	result, err := db.Exec(`
        INSERT INTO plots (
            name_english, name_telugu, crop_type_english, crop_type_telugu,
            size_acres, center_latitude, center_longitude,
            irrigation_frequency_days, notes, boundary_corners
        )
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, plot.NameEnglish, plot.NameTelugu, plot.CropEnglish, plot.CropTelugu,
		plot.SizeAcres, plot.Latitude, plot.Longitude,
		plot.IrrigationFrequencyDays, plot.Notes, cornersJSON)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return 0, fmt.Errorf("%w: %s", ErrPlotExists, plot.NameEnglish)
		}

		return 0, fmt.Errorf("%w plot: %w", ErrFailedToInsert, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	plot.ID = id

	return id, nil
}

const plotColumns = `
    id, name_english, name_telugu, crop_type_english, crop_type_telugu,
    size_acres, center_latitude, center_longitude, irrigation_frequency_days,
    last_irrigated, notes, boundary_corners, created_at
`

func scanPlot(row *sql.Row) (*Plot, error) {
	var p Plot

	var lastIrrigated sql.NullTime

	var notes, corners sql.NullString

	err := row.Scan(&p.ID, &p.NameEnglish, &p.NameTelugu, &p.CropEnglish, &p.CropTelugu,
		&p.SizeAcres, &p.Latitude, &p.Longitude, &p.IrrigationFrequencyDays,
		&lastIrrigated, &notes, &corners, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	finishPlot(&p, lastIrrigated, notes, corners)

	return &p, nil
}

func finishPlot(p *Plot, lastIrrigated sql.NullTime, notes, corners sql.NullString) {
	if lastIrrigated.Valid {
		t := lastIrrigated.Time
		p.LastIrrigated = &t
	}

	if notes.Valid {
		p.Notes = notes.String
	}

	if corners.Valid && corners.String != "" {
		if err := json.Unmarshal([]byte(corners.String), &p.Corners); err != nil {
			log.Printf("failed to decode corners for plot %s: %v", p.NameEnglish, err)
		}
	}
}

// GetPlot looks a plot up by its English or Telugu name, case-insensitively.
func (db *DB) GetPlot(name string) (*Plot, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM plots
        WHERE LOWER(name_english) = LOWER(?) OR LOWER(name_telugu) = LOWER(?)
    `, plotColumns)

	plot, err := scanPlot(db.QueryRow(query, name, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlotNotFound, name)
	}

	if err != nil {
		return nil, fmt.Errorf("%w plot: %w", ErrFailedToQuery, err)
	}

	return plot, nil
}

// GetPlotByID looks a plot up by row id.
func (db *DB) GetPlotByID(id int64) (*Plot, error) {
	query := fmt.Sprintf("SELECT %s FROM plots WHERE id = ?", plotColumns)

	plot, err := scanPlot(db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrPlotNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("%w plot: %w", ErrFailedToQuery, err)
	}

	return plot, nil
}

// ListPlots returns all plots ordered by id.
func (db *DB) ListPlots() ([]Plot, error) {
	query := fmt.Sprintf("SELECT %s FROM plots ORDER BY id", plotColumns)

	rows, err := db.Query(query) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w plots: %w", ErrFailedToQuery, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}(rows)

	var plots []Plot

	for rows.Next() {
		var p Plot

		var lastIrrigated sql.NullTime

		var notes, corners sql.NullString

		if err := rows.Scan(&p.ID, &p.NameEnglish, &p.NameTelugu, &p.CropEnglish, &p.CropTelugu,
			&p.SizeAcres, &p.Latitude, &p.Longitude, &p.IrrigationFrequencyDays,
			&lastIrrigated, &notes, &corners, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w plot row: %w", ErrFailedToScan, err)
		}

		finishPlot(&p, lastIrrigated, notes, corners)
		plots = append(plots, p)
	}

	return plots, nil
}

// DeletePlot removes a plot and its dependent rows. Returns false when
// no plot matched the name.
func (db *DB) DeletePlot(name string) (bool, error) {
	plot, err := db.GetPlot(name)
	if errors.Is(err, ErrPlotNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}
	defer rollbackOnError(tx, &err)

	for _, stmt := range []string{
		"DELETE FROM satellite_history WHERE plot_id = ?",
		"DELETE FROM satellite_notifications WHERE plot_id = ?",
		"DELETE FROM irrigation_log WHERE plot_id = ?",
		"DELETE FROM plots WHERE id = ?",
	} {
		if _, err = tx.Exec(stmt, plot.ID); err != nil {
			return false, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return true, nil
}

func rollbackOnError(tx *sql.Tx, err *error) {
	if *err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("Error rolling back transaction: %v", rbErr)
		}
	}
}

// LogIrrigation records an irrigation event and updates the plot's
// last-irrigated timestamp in one transaction.
func (db *DB) LogIrrigation(plotID int64, date time.Time, ndvi *float64, notes string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}
	defer rollbackOnError(tx, &err)

	if _, err = tx.Exec(
		"UPDATE plots SET last_irrigated = ? WHERE id = ?", date, plotID,
	); err != nil {
		return fmt.Errorf("failed to update last irrigated: %w", err)
	}

	if _, err = tx.Exec(`
        INSERT INTO irrigation_log (plot_id, irrigated_date, ndvi_reading, notes)
        VALUES (?, ?, ?, ?)
    `, plotID, date, ndvi, notes); err != nil {
		return fmt.Errorf("%w irrigation entry: %w", ErrFailedToInsert, err)
	}

	return tx.Commit()
}

// IrrigationDue returns the plots at or past their irrigation cadence.
// A plot never irrigated is treated as overdue by its full cadence.
func (db *DB) IrrigationDue(now time.Time) ([]IrrigationStatus, error) {
	plots, err := db.ListPlots()
	if err != nil {
		return nil, err
	}

	var due []IrrigationStatus

	for i := range plots {
		p := &plots[i]

		daysOverdue := p.IrrigationFrequencyDays
		if p.LastIrrigated != nil {
			daysSince := int(now.Sub(*p.LastIrrigated).Hours() / 24)
			daysOverdue = daysSince - p.IrrigationFrequencyDays
		}

		if daysOverdue >= 0 {
			due = append(due, IrrigationStatus{
				PlotID:        p.ID,
				NameEnglish:   p.NameEnglish,
				NameTelugu:    p.NameTelugu,
				CropEnglish:   p.CropEnglish,
				DaysOverdue:   daysOverdue,
				LastIrrigated: p.LastIrrigated,
			})
		}
	}

	return due, nil
}

// AddSatelliteReading appends one observation to a plot's history.
func (db *DB) AddSatelliteReading(reading *SatelliteReading) error {
	_, err := db.Exec(`
        INSERT INTO satellite_history (
            plot_id, check_date, satellite_source, ndvi_value,
            cloud_cover_percent, health_score
        )
        VALUES (?, ?, ?, ?, ?, ?)
    `, reading.PlotID, reading.CheckDate, reading.Source,
		reading.NDVI, reading.CloudCover, reading.HealthScore)
	if err != nil {
		return fmt.Errorf("%w satellite reading: %w", ErrFailedToInsert, err)
	}

	return nil
}

// GetSatelliteHistory returns a plot's readings from the last N days,
// newest first.
func (db *DB) GetSatelliteHistory(plotID int64, days int, now time.Time) ([]SatelliteReading, error) {
	cutoff := now.AddDate(0, 0, -days)

	rows, err := db.Query(`
        SELECT id, plot_id, check_date, satellite_source, ndvi_value,
               cloud_cover_percent, health_score
        FROM satellite_history
        WHERE plot_id = ? AND check_date >= ?
        ORDER BY check_date DESC
    `, plotID, cutoff) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w satellite history: %w", ErrFailedToQuery, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}(rows)

	var history []SatelliteReading

	for rows.Next() {
		var r SatelliteReading

		var cloud, health sql.NullFloat64

		if err := rows.Scan(&r.ID, &r.PlotID, &r.CheckDate, &r.Source,
			&r.NDVI, &cloud, &health); err != nil {
			return nil, fmt.Errorf("%w history row: %w", ErrFailedToScan, err)
		}

		r.CloudCover = cloud.Float64
		r.HealthScore = health.Float64
		history = append(history, r)
	}

	return history, nil
}

// GetIrrigationLog returns the plot's irrigation entries within the
// last days, newest first.
func (db *DB) GetIrrigationLog(plotID int64, days int, now time.Time) ([]IrrigationEntry, error) {
	cutoff := now.AddDate(0, 0, -days)

	rows, err := db.Query(`
        SELECT id, plot_id, irrigated_date, ndvi_reading, notes, created_at
        FROM irrigation_log
        WHERE plot_id = ? AND irrigated_date >= ?
        ORDER BY irrigated_date DESC
    `, plotID, cutoff) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w irrigation log: %w", ErrFailedToQuery, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}(rows)

	var entries []IrrigationEntry

	for rows.Next() {
		var e IrrigationEntry

		var ndvi sql.NullFloat64

		var notes sql.NullString

		if err := rows.Scan(&e.ID, &e.PlotID, &e.Date, &ndvi, &notes, &e.Recorded); err != nil {
			return nil, fmt.Errorf("%w irrigation row: %w", ErrFailedToScan, err)
		}

		if ndvi.Valid {
			v := ndvi.Float64
			e.NDVI = &v
		}

		e.Notes = notes.String
		entries = append(entries, e)
	}

	return entries, nil
}

// HasNotificationForDate reports whether this (plot, image date) was
// already notified. Checked before every notification attempt.
func (db *DB) HasNotificationForDate(plotID int64, dateKey string) (bool, error) {
	var count int

	err := db.QueryRow(`
        SELECT COUNT(*) FROM satellite_notifications
        WHERE plot_id = ? AND satellite_date = ?
    `, plotID, dateKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w notification check: %w", ErrFailedToQuery, err)
	}

	return count > 0, nil
}

// RecordNotification marks a (plot, image date) as notified. Replaying
// the same key is harmless.
func (db *DB) RecordNotification(record *NotificationRecord) error {
	_, err := db.Exec(`
        INSERT OR REPLACE INTO satellite_notifications
            (plot_id, satellite_date, satellite_name, ndvi)
        VALUES (?, ?, ?, ?)
    `, record.PlotID, record.DateKey, record.Satellite, record.NDVI)
	if err != nil {
		return fmt.Errorf("%w notification record: %w", ErrFailedToInsert, err)
	}

	return nil
}

// LastNotification returns the most recently sent notification for a
// plot, or nil when none exists.
func (db *DB) LastNotification(plotID int64) (*NotificationRecord, error) {
	var r NotificationRecord

	r.PlotID = plotID

	err := db.QueryRow(`
        SELECT satellite_date, satellite_name, ndvi, sent_at
        FROM satellite_notifications
        WHERE plot_id = ?
        ORDER BY sent_at DESC, id DESC
        LIMIT 1
    `, plotID).Scan(&r.DateKey, &r.Satellite, &r.NDVI, &r.SentAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w last notification: %w", ErrFailedToQuery, err)
	}

	return &r, nil
}
