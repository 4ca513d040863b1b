package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pvss39/hellofarm/pkg/satellite"
)

const (
	defaultImageryTimeout = 25 * time.Second
	defaultBufferMeters   = 100
	defaultRatePerSecond  = 2
)

// ImageryConfig configures the HTTP client for the remote imagery
// processor service.
type ImageryConfig struct {
	Enabled           bool          `json:"enabled"`
	BaseURL           string        `json:"base_url"`
	APIKey            string        `json:"api_key,omitempty"`
	Timeout           time.Duration `json:"-"`
	RequestsPerSecond float64       `json:"requests_per_second,omitempty"`
	BufferMeters      int           `json:"buffer_meters,omitempty"`
}

// ImageryClient talks to the imagery processor over HTTP. The processor
// owns the earth-observation catalog access; this client sends it plot
// geometry plus band names and gets back band means and cloud cover.
type ImageryClient struct {
	cfg     ImageryConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewImageryClient creates an imagery provider from config, applying
// defaults for timeout, rate limit and point buffer.
func NewImageryClient(cfg ImageryConfig) *ImageryClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultImageryTimeout
	}

	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRatePerSecond
	}

	if cfg.BufferMeters <= 0 {
		cfg.BufferMeters = defaultBufferMeters
	}

	return &ImageryClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

func (c *ImageryClient) Name() string { return "imagery" }

// Available reports whether the client is configured to make requests.
func (c *ImageryClient) Available() bool {
	return c.cfg.Enabled && c.cfg.BaseURL != ""
}

type imageryGeometry struct {
	Type         string        `json:"type"`
	Coordinates  [][][]float64 `json:"coordinates,omitempty"`
	Point        []float64     `json:"point,omitempty"`
	BufferMeters int           `json:"buffer_meters,omitempty"`
}

type observationRequest struct {
	Collection      string          `json:"collection"`
	NIRBand         string          `json:"nir_band"`
	RedBand         string          `json:"red_band"`
	CloudProperty   string          `json:"cloud_property"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	MaxCloudPercent float64         `json:"max_cloud_percent"`
	Geometry        imageryGeometry `json:"geometry"`
}

type observationResponse struct {
	Found             bool    `json:"found"`
	Date              string  `json:"date"`
	SpacecraftName    string  `json:"spacecraft_name"`
	NIRMean           float64 `json:"nir_mean"`
	RedMean           float64 `json:"red_mean"`
	CloudCoverPercent float64 `json:"cloud_cover_percent"`
}

// FetchObservation posts the plot geometry and band selection to the
// processor and maps the response into a normalized observation. NDVI
// is computed locally from the returned band means.
func (c *ImageryClient) FetchObservation(ctx context.Context, req Request) (*satellite.Observation, error) {
	if !c.Available() {
		return nil, ErrProviderUnavailable
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	payload := observationRequest{
		Collection:      req.Satellite.Collection,
		NIRBand:         req.Satellite.NIRBand,
		RedBand:         req.Satellite.RedBand,
		CloudProperty:   req.Satellite.CloudProperty,
		StartDate:       req.Start.Format("2006-01-02"),
		EndDate:         req.End.Format("2006-01-02"),
		MaxCloudPercent: req.MaxCloud,
		Geometry:        plotGeometry(req, c.cfg.BufferMeters),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal observation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.cfg.BaseURL+"/observations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build observation request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderRequest, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoObservation
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: %s", ErrProviderRequest, resp.Status, string(data))
	}

	var out observationResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode observation response: %w", err)
	}

	if !out.Found {
		return nil, ErrNoObservation
	}

	date, err := time.Parse("2006-01-02", out.Date)
	if err != nil {
		return nil, fmt.Errorf("parse observation date %q: %w", out.Date, err)
	}

	display := out.SpacecraftName
	if display == "" {
		display = req.Satellite.Name
	}

	return &satellite.Observation{
		Satellite:   req.Satellite.Name,
		DisplayName: display,
		Date:        date,
		NDVI:        satellite.CalculateNDVI(out.NIRMean, out.RedMean),
		CloudCover:  out.CloudCoverPercent,
		ResolutionM: req.Satellite.ResolutionM,
		Source:      c.Name(),
	}, nil
}

// plotGeometry builds a polygon from the plot boundary when at least
// three corners are recorded, otherwise a buffered center point.
func plotGeometry(req Request, bufferMeters int) imageryGeometry {
	corners := req.Plot.Corners
	if len(corners) < 3 {
		return imageryGeometry{
			Type:         "point",
			Point:        []float64{req.Plot.Longitude, req.Plot.Latitude},
			BufferMeters: bufferMeters,
		}
	}

	ring := make([][]float64, 0, len(corners)+1)
	for _, c := range corners {
		ring = append(ring, []float64{c.Lon, c.Lat})
	}

	// Close the ring.
	ring = append(ring, []float64{corners[0].Lon, corners[0].Lat})

	return imageryGeometry{
		Type:        "polygon",
		Coordinates: [][][]float64{ring},
	}
}
