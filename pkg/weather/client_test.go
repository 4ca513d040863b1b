package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const currentFixture = `{
  "main": {"temp": 31.2, "humidity": 64},
  "rain": {"1h": 2.5},
  "weather": [{"main": "Rain", "description": "light rain"}]
}`

const forecastFixture = `{
  "list": [
    {"dt_txt": "2024-06-15 09:00:00", "main": {"temp_max": 33, "temp_min": 26, "humidity": 60},
     "weather": [{"main": "Clouds"}]},
    {"dt_txt": "2024-06-15 12:00:00", "main": {"temp_max": 35, "temp_min": 27, "humidity": 55},
     "weather": [{"main": "Clear"}]},
    {"dt_txt": "2024-06-16 09:00:00", "main": {"temp_max": 32, "temp_min": 25, "humidity": 70},
     "rain": {"3h": 4.1}, "weather": [{"main": "Rain"}]},
    {"dt_txt": "2024-06-17 09:00:00", "main": {"temp_max": 30, "temp_min": 24, "humidity": 75},
     "weather": [{"main": "Rain"}]},
    {"dt_txt": "2024-06-18 09:00:00", "main": {"temp_max": 31, "temp_min": 24, "humidity": 65},
     "weather": [{"main": "Clear"}]}
  ]
}`

func TestCurrentWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(currentFixture))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})

	current, err := client.CurrentWeather(context.Background(), 16.25, 80.64)
	require.NoError(t, err)

	assert.InDelta(t, 31.2, current.TempCelsius, 0.001)
	assert.Equal(t, 64, current.HumidityPercent)
	assert.InDelta(t, 2.5, current.RainfallMM, 0.001)
	assert.Equal(t, "Rain", current.Conditions)
	assert.False(t, current.Stale)
}

func TestCurrentWeatherServesCacheOnFailure(t *testing.T) {
	healthy := true

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !healthy {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			return
		}

		_, _ = w.Write([]byte(currentFixture))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})

	_, err := client.CurrentWeather(context.Background(), 16.25, 80.64)
	require.NoError(t, err)

	healthy = false

	cached, err := client.CurrentWeather(context.Background(), 16.25, 80.64)
	require.NoError(t, err)
	assert.True(t, cached.Stale)
	assert.InDelta(t, 31.2, cached.TempCelsius, 0.001)

	// A location never fetched has nothing to fall back on.
	_, err = client.CurrentWeather(context.Background(), 17.0, 81.0)
	assert.ErrorIs(t, err, ErrWeatherRequest)
}

func TestForecastOneEntryPerDay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		_, _ = w.Write([]byte(forecastFixture))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})

	days, err := client.Forecast(context.Background(), 16.25, 80.64)
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, "2024-06-15", days[0].Date)
	assert.Equal(t, "Clouds", days[0].Conditions, "first slot of the day wins")
	assert.Equal(t, "2024-06-16", days[1].Date)
	assert.InDelta(t, 4.1, days[1].RainfallMM, 0.001)
	assert.Equal(t, "2024-06-17", days[2].Date)
}

func TestNotConfigured(t *testing.T) {
	client := NewClient(Config{})
	assert.False(t, client.Available())

	_, err := client.CurrentWeather(context.Background(), 16.25, 80.64)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = client.Forecast(context.Background(), 16.25, 80.64)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestShouldIrrigate(t *testing.T) {
	tests := []struct {
		name    string
		current *Current
		want    bool
	}{
		{"no_rain", &Current{RainfallMM: 0}, true},
		{"light_rain", &Current{RainfallMM: 3}, true},
		{"heavy_rain", &Current{RainfallMM: 8}, false},
		{"boundary_exactly_5mm", &Current{RainfallMM: 5}, true},
		{"unknown", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ShouldIrrigate(tt.current)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, reason)
		})
	}
}
