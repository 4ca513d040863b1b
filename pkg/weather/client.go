// Package weather fetches current conditions and short forecasts from
// an OpenWeather-compatible API. Jobs consume it opportunistically; a
// failed fetch degrades to the last good reading instead of failing
// the job.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrWeatherRequest = errors.New("weather request failed")
	ErrNotConfigured  = errors.New("weather API key not configured")
)

// IrrigationSkipRainMM is the expected rainfall above which irrigation
// should be skipped for the day.
const IrrigationSkipRainMM = 5.0

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

type Config struct {
	APIKey  string        `json:"api_key"`
	BaseURL string        `json:"base_url,omitempty"`
	Timeout time.Duration `json:"-"`
}

// Current is one observed weather state at a location.
type Current struct {
	TempCelsius     float64   `json:"temp_celsius"`
	HumidityPercent int       `json:"humidity_percent"`
	RainfallMM      float64   `json:"rainfall_mm"`
	Conditions      string    `json:"conditions"`
	Description     string    `json:"description"`
	FetchedAt       time.Time `json:"fetched_at"`
	Stale           bool      `json:"stale,omitempty"` // served from cache after a failed fetch
}

// ForecastDay is one day of the short-range forecast.
type ForecastDay struct {
	Date            string  `json:"date"`
	TempHigh        float64 `json:"temp_high"`
	TempLow         float64 `json:"temp_low"`
	RainfallMM      float64 `json:"rainfall_mm"`
	Conditions      string  `json:"conditions"`
	HumidityPercent int     `json:"humidity_percent"`
}

// Client calls the weather API and keeps the last good reading per
// location as a fallback.
type Client struct {
	cfg    Config
	client *http.Client

	mu    sync.RWMutex
	cache map[string]Current
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  make(map[string]Current),
	}
}

// Available reports whether the client has an API key to call with.
func (c *Client) Available() bool {
	return c.cfg.APIKey != ""
}

type openWeatherCurrent struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// CurrentWeather returns the conditions at (lat, lon). On a fetch
// failure it returns the cached reading for that location marked
// stale, or an error when nothing was ever fetched.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (*Current, error) {
	if !c.Available() {
		return nil, ErrNotConfigured
	}

	key := cacheKey(lat, lon)

	var raw openWeatherCurrent
	if err := c.get(ctx, "/weather", lat, lon, &raw); err != nil {
		c.mu.RLock()
		cached, ok := c.cache[key]
		c.mu.RUnlock()

		if ok {
			log.Printf("Weather fetch failed, serving cached reading: %v", err)

			cached.Stale = true

			return &cached, nil
		}

		return nil, err
	}

	current := Current{
		TempCelsius:     raw.Main.Temp,
		HumidityPercent: raw.Main.Humidity,
		RainfallMM:      raw.Rain.OneHour,
		FetchedAt:       time.Now().UTC(),
	}

	if len(raw.Weather) > 0 {
		current.Conditions = raw.Weather[0].Main
		current.Description = raw.Weather[0].Description
	}

	c.mu.Lock()
	c.cache[key] = current
	c.mu.Unlock()

	return &current, nil
}

type openWeatherForecast struct {
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			TempMax  float64 `json:"temp_max"`
			TempMin  float64 `json:"temp_min"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Rain struct {
			ThreeHour float64 `json:"3h"`
		} `json:"rain"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
	} `json:"list"`
}

// Forecast returns up to three days of forecast, one entry per
// calendar day, taking the first slot the API reports for each day.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) ([]ForecastDay, error) {
	if !c.Available() {
		return nil, ErrNotConfigured
	}

	var raw openWeatherForecast
	if err := c.get(ctx, "/forecast", lat, lon, &raw); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)

	var days []ForecastDay

	for _, item := range raw.List {
		if len(days) == 3 {
			break
		}

		date, _, ok := strings.Cut(item.DtTxt, " ")
		if !ok || seen[date] {
			continue
		}

		seen[date] = true

		day := ForecastDay{
			Date:            date,
			TempHigh:        item.Main.TempMax,
			TempLow:         item.Main.TempMin,
			RainfallMM:      item.Rain.ThreeHour,
			HumidityPercent: item.Main.Humidity,
		}

		if len(item.Weather) > 0 {
			day.Conditions = item.Weather[0].Main
		}

		days = append(days, day)
	}

	return days, nil
}

// ShouldIrrigate decides whether watering makes sense today given the
// current conditions. Heavy expected rain skips the irrigation
// reminder.
func ShouldIrrigate(current *Current) (bool, string) {
	if current == nil {
		return true, "Unable to determine. Proceed with caution."
	}

	if current.RainfallMM > IrrigationSkipRainMM {
		return false, fmt.Sprintf("Rain expected: %.0fmm. Skip irrigation.", current.RainfallMM)
	}

	return true, "Weather suitable for irrigation."
}

func (c *Client) get(ctx context.Context, path string, lat, lon float64, out any) error {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWeatherRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s: %s", ErrWeatherRequest, resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode weather response: %w", err)
	}

	return nil
}

func cacheKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lon, 'f', 4, 64)
}
