package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pvss39/hellofarm/pkg/notify"
	"github.com/pvss39/hellofarm/pkg/provider"
	"github.com/pvss39/hellofarm/pkg/weather"
)

type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

// ServerConfig is the top-level configuration for the service.
type ServerConfig struct {
	ListenAddr        string                 `json:"listen_addr"`
	DBPath            string                 `json:"db_path"`
	Timezone          string                 `json:"timezone,omitempty"` // e.g. "Asia/Kolkata"
	SatelliteInterval Duration               `json:"satellite_interval,omitempty"`
	MorningHour       int                    `json:"morning_hour,omitempty"`
	WeeklyHour        int                    `json:"weekly_hour,omitempty"`
	BackfillDays      int                    `json:"backfill_days,omitempty"`
	LookbackDays      int                    `json:"lookback_days,omitempty"`
	TrendWindowDays   int                    `json:"trend_window_days,omitempty"`
	MaxCloudPercent   float64                `json:"max_cloud_percent,omitempty"`
	Imagery           provider.ImageryConfig `json:"imagery"`
	Weather           weather.Config         `json:"weather"`
	Webhooks          []notify.WebhookConfig `json:"webhooks,omitempty"`
}

// Validate fills defaults and rejects values the service cannot run
// with.
func (c *ServerConfig) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8090"
	}

	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	if c.MorningHour < 0 || c.MorningHour > 23 {
		return fmt.Errorf("morning_hour out of range: %d", c.MorningHour)
	}

	if c.WeeklyHour < 0 || c.WeeklyHour > 23 {
		return fmt.Errorf("weekly_hour out of range: %d", c.WeeklyHour)
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}

	return nil
}

// ApplyEnv overlays secrets from the environment so they stay out of
// the config file. Run godotenv.Load first to pick up a local .env.
func (c *ServerConfig) ApplyEnv() {
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		c.Weather.APIKey = v
	}

	if v := os.Getenv("IMAGERY_BASE_URL"); v != "" {
		c.Imagery.BaseURL = v
		c.Imagery.Enabled = true
	}

	if v := os.Getenv("IMAGERY_API_KEY"); v != "" {
		c.Imagery.APIKey = v
	}
}

// Location resolves the configured time zone, defaulting to UTC.
func (c *ServerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}
