package satellite

import "time"

const dateLayout = "2006-01-02"

// Observation is a normalized satellite reading for one plot on one date.
// NDVI is clamped to [0,1]; a missing image is represented by the absence
// of an Observation, never by a zero value.
type Observation struct {
	Satellite   string    `json:"satellite"`    // catalog name
	DisplayName string    `json:"display_name"` // provider-reported spacecraft name
	Date        time.Time `json:"date"`         // acquisition date
	NDVI        float64   `json:"ndvi"`
	CloudCover  float64   `json:"cloud_cover_percent"`
	ResolutionM int       `json:"resolution_m"`
	HealthScore int       `json:"health_score"`
	AgeDays     int       `json:"age_days"`
	Score       float64   `json:"score"`
	Confidence  float64   `json:"confidence"`
	Source      string    `json:"source"` // provider key that produced it
}

// DateKey returns the acquisition date as YYYY-MM-DD. It is the
// de-duplication key for the notification store.
func (o *Observation) DateKey() string {
	return o.Date.Format(dateLayout)
}

// Pass is a predicted satellite overpass. Ephemeral, computed on demand.
type Pass struct {
	Satellite   string    `json:"satellite"`
	PassDate    time.Time `json:"pass_date"`
	DaysUntil   int       `json:"days_until"`
	ResolutionM int       `json:"resolution_m"`
	Priority    int       `json:"priority"`
	HasProvider bool      `json:"has_provider"`
}

// Selection describes why a satellite was chosen for a target date.
type Selection struct {
	Satellite      string    `json:"satellite"`
	Operator       string    `json:"operator"`
	Score          int       `json:"score"`
	PassDate       time.Time `json:"pass_date"`
	DaysFromTarget int       `json:"days_from_target"`
	ResolutionM    int       `json:"resolution_m"`
	HasProvider    bool      `json:"has_provider"`
	Reason         string    `json:"reason"`
}
