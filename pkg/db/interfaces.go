// Package db pkg/db/interfaces.go
package db

import (
	"time"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/pvss39/hellofarm/pkg/db Service

// Service represents all database operations.
type Service interface {
	Close() error

	// Plot operations.

	AddPlot(plot *Plot) (int64, error)
	GetPlot(name string) (*Plot, error)
	GetPlotByID(id int64) (*Plot, error)
	ListPlots() ([]Plot, error)
	DeletePlot(name string) (bool, error)

	// Irrigation operations.

	LogIrrigation(plotID int64, date time.Time, ndvi *float64, notes string) error
	IrrigationDue(now time.Time) ([]IrrigationStatus, error)
	GetIrrigationLog(plotID int64, days int, now time.Time) ([]IrrigationEntry, error)

	// Observation history operations.

	AddSatelliteReading(reading *SatelliteReading) error
	GetSatelliteHistory(plotID int64, days int, now time.Time) ([]SatelliteReading, error)

	// Notification de-duplication operations.

	HasNotificationForDate(plotID int64, dateKey string) (bool, error)
	RecordNotification(record *NotificationRecord) error
	LastNotification(plotID int64) (*NotificationRecord, error)
}
