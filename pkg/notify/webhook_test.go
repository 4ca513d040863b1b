package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvss39/hellofarm/pkg/db"
	"github.com/pvss39/hellofarm/pkg/satellite"
)

func testMessage() *Message {
	plot := &db.Plot{ID: 7, NameEnglish: "East Field", NameTelugu: "తూర్పు పొలం"}
	obs := &satellite.Observation{
		Satellite:   "Sentinel-2A",
		Date:        time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC),
		NDVI:        0.55,
		CloudCover:  12,
		HealthScore: 75,
		AgeDays:     4,
	}

	return SatelliteReport(plot, obs, "స్థిరంగా ఉంది", "stable", "➡️")
}

func TestWebhookSend(t *testing.T) {
	var got webhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(WebhookConfig{
		Enabled:    true,
		URL:        server.URL,
		Headers:    []Header{{Key: "X-Api-Key", Value: "secret"}},
		Recipients: []string{"+919000000001"},
	})

	err := notifier.Send(context.Background(), testMessage())
	require.NoError(t, err)

	assert.Equal(t, []string{"+919000000001"}, got.Recipients)
	assert.Equal(t, KindSatelliteReport, got.Kind)
	assert.Equal(t, int64(7), got.PlotID)
	assert.Contains(t, got.Body, "తూర్పు పొలం")
	assert.Contains(t, got.Body, "East Field")
	assert.Contains(t, got.Body, "NDVI: 0.550")
	assert.NotEmpty(t, got.Timestamp)
}

func TestWebhookCooldown(t *testing.T) {
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(WebhookConfig{
		Enabled:  true,
		URL:      server.URL,
		Cooldown: time.Minute,
	})

	require.NoError(t, notifier.Send(context.Background(), testMessage()))

	err := notifier.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, errWebhookCooldown)
	assert.Equal(t, 1, calls)

	// A different plot is a different stream, no suppression.
	other := testMessage()
	other.PlotID = 8
	require.NoError(t, notifier.Send(context.Background(), other))
	assert.Equal(t, 2, calls)
}

func TestWebhookDisabled(t *testing.T) {
	notifier := NewWebhookNotifier(WebhookConfig{Enabled: false})

	err := notifier.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, errWebhookDisabled)
}

func TestWebhookNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(WebhookConfig{Enabled: true, URL: server.URL})

	err := notifier.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, errWebhookStatus)
}

func TestWebhookTemplate(t *testing.T) {
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(WebhookConfig{
		Enabled:  true,
		URL:      server.URL,
		Template: `{"text": {{json .message.Body}}, "kind": "{{.message.Kind}}"}`,
	})

	require.NoError(t, notifier.Send(context.Background(), testMessage()))
	assert.Equal(t, "satellite_report", got["kind"])
	assert.Contains(t, got["text"], "Sentinel-2A")
}

func TestWebhookConfigCooldownJSON(t *testing.T) {
	var cfg WebhookConfig

	raw := `{"enabled": true, "url": "http://gateway.local", "cooldown": "30m"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Cooldown)
}
