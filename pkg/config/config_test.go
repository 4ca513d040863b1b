package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "listen_addr": ":8090",
  "db_path": "/var/lib/hellofarm/farm.db",
  "timezone": "Asia/Kolkata",
  "satellite_interval": "6h",
  "morning_hour": 7,
  "weekly_hour": 8,
  "imagery": {
    "enabled": true,
    "base_url": "http://localhost:8000"
  },
  "webhooks": [
    {
      "enabled": true,
      "url": "http://gateway.local/send",
      "cooldown": "15m",
      "recipients": ["+919000000001"]
    }
  ]
}`

func TestLoadAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hellofarm.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	var cfg ServerConfig
	require.NoError(t, LoadAndValidate(path, &cfg))

	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/hellofarm/farm.db", cfg.DBPath)
	assert.Equal(t, 6*time.Hour, time.Duration(cfg.SatelliteInterval))
	assert.True(t, cfg.Imagery.Enabled)

	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, 15*time.Minute, cfg.Webhooks[0].Cooldown)
	assert.Equal(t, []string{"+919000000001"}, cfg.Webhooks[0].Recipients)

	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestLoadFileMissing(t *testing.T) {
	var cfg ServerConfig

	err := LoadFile(filepath.Join(t.TempDir(), "missing.json"), &cfg)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServerConfig
		wantErr bool
	}{
		{"valid_minimal", ServerConfig{DBPath: "farm.db"}, false},
		{"missing_db_path", ServerConfig{}, true},
		{"bad_morning_hour", ServerConfig{DBPath: "farm.db", MorningHour: 25}, true},
		{"bad_timezone", ServerConfig{DBPath: "farm.db", Timezone: "Mars/Olympus"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, ":8090", tt.cfg.ListenAddr, "default listen addr filled in")
			}
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration

	require.NoError(t, json.Unmarshal([]byte(`"90s"`), &d))
	assert.Equal(t, 90*time.Second, time.Duration(d))

	require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
	assert.Equal(t, time.Second, time.Duration(d))

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "owm-key")
	t.Setenv("IMAGERY_BASE_URL", "http://imagery.local")
	t.Setenv("IMAGERY_API_KEY", "img-key")

	var cfg ServerConfig

	cfg.ApplyEnv()

	assert.Equal(t, "owm-key", cfg.Weather.APIKey)
	assert.Equal(t, "http://imagery.local", cfg.Imagery.BaseURL)
	assert.True(t, cfg.Imagery.Enabled)
	assert.Equal(t, "img-key", cfg.Imagery.APIKey)
}
