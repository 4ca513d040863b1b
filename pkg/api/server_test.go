package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvss39/hellofarm/pkg/db"
	"github.com/pvss39/hellofarm/pkg/monitor"
	"github.com/pvss39/hellofarm/pkg/notify"
	"github.com/pvss39/hellofarm/pkg/provider"
	"github.com/pvss39/hellofarm/pkg/satellite"
)

// newTestServer wires a full stack over a real store with the
// deterministic synthetic provider filling the imagery slot.
func newTestServer(t *testing.T) (*httptest.Server, db.Service) {
	t.Helper()

	store, err := db.New(filepath.Join(t.TempDir(), "farm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	catalog := satellite.DefaultCatalog()
	fetcher := provider.NewFetcher(catalog, map[string]provider.Provider{
		"imagery": provider.NewSynthetic(catalog),
	}, 50)

	engine := monitor.NewEngine(store, fetcher, satellite.NewSelector(catalog), nil,
		[]notify.Notifier{notify.NewConsoleNotifier()}, monitor.Config{})

	server := httptest.NewServer(NewAPIServer(store, engine, catalog).Router())
	t.Cleanup(server.Close)

	return server, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func addTestPlot(t *testing.T, server *httptest.Server) db.Plot {
	t.Helper()

	resp := postJSON(t, server.URL+"/api/plots", db.Plot{
		NameEnglish:             "East Field",
		NameTelugu:              "తూర్పు పొలం",
		CropEnglish:             "Jowar",
		IrrigationFrequencyDays: 7,
		Latitude:                16.25,
		Longitude:               80.64,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decodeBody[db.Plot](t, resp)
}

func TestPlotEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	created := addTestPlot(t, server)
	assert.Greater(t, created.ID, int64(0))

	// Duplicate name conflicts.
	resp := postJSON(t, server.URL+"/api/plots", db.Plot{
		NameEnglish: "East Field", IrrigationFrequencyDays: 7,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Missing name rejected.
	resp = postJSON(t, server.URL+"/api/plots", db.Plot{IrrigationFrequencyDays: 7})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Lookup by name.
	resp, err := http.Get(server.URL + "/api/plots/East Field")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[db.Plot](t, resp)
	assert.Equal(t, "Jowar", got.CropEnglish)

	resp, err = http.Get(server.URL + "/api/plots/Nowhere")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Listing.
	resp, err = http.Get(server.URL + "/api/plots")
	require.NoError(t, err)

	plots := decodeBody[[]db.Plot](t, resp)
	assert.Len(t, plots, 1)
}

func TestStatusEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	addTestPlot(t, server)

	resp, err := http.Get(server.URL + "/api/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := decodeBody[SystemStatus](t, resp)
	assert.Equal(t, "hellofarm", status.Service)
	assert.Equal(t, 1, status.PlotCount)
	assert.Equal(t, 4, status.Satellites)
	assert.True(t, status.Providers["imagery"])
}

func TestScheduleAndSatellites(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/satellites")
	require.NoError(t, err)

	sats := decodeBody[[]satellite.Descriptor](t, resp)
	require.Len(t, sats, 4)
	assert.Equal(t, "Sentinel-2A", sats[0].Name, "sorted by priority")

	resp, err = http.Get(server.URL + "/api/schedule?days=20")
	require.NoError(t, err)

	passes := decodeBody[[]satellite.Pass](t, resp)
	require.NotEmpty(t, passes)

	for i := 1; i < len(passes); i++ {
		assert.GreaterOrEqual(t, passes[i].DaysUntil, passes[i-1].DaysUntil)
	}

	for _, p := range passes {
		assert.True(t, p.HasProvider)
	}
}

func TestSelectBestEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	// 2024-01-13 is a Sentinel-2A pass day.
	resp, err := http.Get(server.URL + "/api/select-best?date=2024-01-13")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	selection := decodeBody[satellite.Selection](t, resp)
	assert.Equal(t, "Sentinel-2A", selection.Satellite)
	assert.Equal(t, 0, selection.DaysFromTarget)
	assert.Contains(t, selection.Reason, "today")

	resp, err = http.Get(server.URL + "/api/select-best?date=13-01-2024")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestTriggerSatelliteIsIdempotent(t *testing.T) {
	server, _ := newTestServer(t)
	addTestPlot(t, server)

	resp := postJSON(t, server.URL+"/api/trigger/satellite", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	first := decodeBody[struct {
		Results []monitor.CheckResult `json:"results"`
	}](t, resp)
	require.Len(t, first.Results, 1)
	assert.True(t, first.Results[0].Notified)

	// Same observation date on the second run: skipped, not re-sent.
	resp = postJSON(t, server.URL+"/api/trigger/satellite", nil)
	second := decodeBody[struct {
		Results []monitor.CheckResult `json:"results"`
	}](t, resp)
	require.Len(t, second.Results, 1)
	assert.True(t, second.Results[0].Skipped)
	assert.False(t, second.Results[0].Notified)
}

func TestTriggerUnknownJob(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/trigger/lunar", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestIrrigationEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	created := addTestPlot(t, server)

	resp := postJSON(t, server.URL+"/api/plots/East Field/irrigation",
		irrigationRequest{Date: "2024-06-13", Notes: "canal release"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	plot, err := store.GetPlotByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, plot.LastIrrigated)
	assert.Equal(t, "2024-06-13", plot.LastIrrigated.Format("2006-01-02"))

	// The log endpoint reads it back. Default window is 90 days, so
	// ask for a window reaching back to the logged date.
	days := int(time.Since(*plot.LastIrrigated).Hours()/24) + 2

	logResp, err := http.Get(server.URL + "/api/plots/East Field/irrigation?days=" + strconv.Itoa(days))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, logResp.StatusCode)

	entries := decodeBody[[]db.IrrigationEntry](t, logResp)
	require.Len(t, entries, 1)
	assert.Equal(t, "canal release", entries[0].Notes)
}

func TestHistoryEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	created := addTestPlot(t, server)

	require.NoError(t, store.AddSatelliteReading(&db.SatelliteReading{
		PlotID:      created.ID,
		CheckDate:   time.Now().AddDate(0, 0, -2),
		Source:      "Sentinel-2A",
		NDVI:        0.52,
		HealthScore: 72,
	}))

	resp, err := http.Get(server.URL + "/api/plots/East Field/history?days=30")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	history := decodeBody[[]db.SatelliteReading](t, resp)
	require.Len(t, history, 1)
	assert.InDelta(t, 0.52, history[0].NDVI, 0.001)
}

func TestLiveFeed(t *testing.T) {
	server, _ := newTestServer(t)
	addTestPlot(t, server)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/live"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp := postJSON(t, server.URL+"/api/trigger/satellite", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var result monitor.CheckResult
	require.NoError(t, conn.ReadJSON(&result))

	assert.Equal(t, "East Field", result.Plot)
	assert.True(t, result.Notified)
}
