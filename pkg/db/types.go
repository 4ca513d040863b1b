package db

import "time"

// Corner is one surveyed boundary point of a plot.
type Corner struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Plot represents a monitored farm plot.
type Plot struct {
	ID                      int64      `json:"id"`
	NameEnglish             string     `json:"name_english"`
	NameTelugu              string     `json:"name_telugu"`
	CropEnglish             string     `json:"crop_type_english"`
	CropTelugu              string     `json:"crop_type_telugu"`
	SizeAcres               float64    `json:"size_acres"`
	Latitude                float64    `json:"center_latitude"`
	Longitude               float64    `json:"center_longitude"`
	IrrigationFrequencyDays int        `json:"irrigation_frequency_days"`
	LastIrrigated           *time.Time `json:"last_irrigated,omitempty"`
	Notes                   string     `json:"notes,omitempty"`
	Corners                 []Corner   `json:"corners,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

// SatelliteReading is one appended row of a plot's observation history.
// Multiple satellites may report the same date; there is no uniqueness
// constraint on (plot, date).
type SatelliteReading struct {
	ID          int64     `json:"id"`
	PlotID      int64     `json:"plot_id"`
	CheckDate   time.Time `json:"check_date"`
	Source      string    `json:"satellite_source"`
	NDVI        float64   `json:"ndvi_value"`
	CloudCover  float64   `json:"cloud_cover_percent"`
	HealthScore float64   `json:"health_score"`
}

// NotificationRecord marks a (plot, observation date) as notified. The
// UNIQUE(plot_id, satellite_date) constraint is what makes notification
// sends idempotent across polling cycles.
type NotificationRecord struct {
	PlotID    int64     `json:"plot_id"`
	DateKey   string    `json:"satellite_date"` // YYYY-MM-DD of the image
	Satellite string    `json:"satellite_name"`
	NDVI      float64   `json:"ndvi"`
	SentAt    time.Time `json:"sent_at"`
}

// IrrigationEntry is one row of the irrigation log.
type IrrigationEntry struct {
	ID       int64     `json:"id"`
	PlotID   int64     `json:"plot_id"`
	Date     time.Time `json:"irrigated_date"`
	NDVI     *float64  `json:"ndvi_reading,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	Recorded time.Time `json:"created_at"`
}

// IrrigationStatus reports how overdue a plot's irrigation is.
type IrrigationStatus struct {
	PlotID        int64      `json:"plot_id"`
	NameEnglish   string     `json:"name"`
	NameTelugu    string     `json:"name_telugu"`
	CropEnglish   string     `json:"crop"`
	DaysOverdue   int        `json:"days_overdue"`
	LastIrrigated *time.Time `json:"last_irrigated,omitempty"`
}
