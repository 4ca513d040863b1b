// Package satellite pkg/satellite/catalog.go provides the satellite catalog,
// overpass prediction, and observation selection for Hello Farm.
package satellite

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrEmptyCatalog      = errors.New("satellite catalog is empty")
	ErrUnknownSatellite  = errors.New("unknown satellite")
	ErrInvalidDescriptor = errors.New("invalid satellite descriptor")
)

// Descriptor holds the static reference data for one imaging satellite.
// Descriptors are defined at process start and never mutated.
type Descriptor struct {
	Name          string    `json:"name"`
	Operator      string    `json:"operator"`
	ResolutionM   int       `json:"resolution_m"`
	RevisitDays   int       `json:"revisit_days"`
	SwathKM       int       `json:"swath_km"`
	Collection    string    `json:"collection"`
	NIRBand       string    `json:"nir_band"`
	RedBand       string    `json:"red_band"`
	CloudProperty string    `json:"cloud_property"`
	Epoch         time.Time `json:"epoch"`
	Priority      int       `json:"priority"` // lower = preferred tie-break
	Provider      string    `json:"provider"`
}

// Catalog is an immutable, validated set of satellite descriptors.
type Catalog struct {
	sats   []Descriptor
	byName map[string]Descriptor
}

// NewCatalog validates the descriptors and builds a catalog from them.
func NewCatalog(descriptors []Descriptor) (*Catalog, error) {
	if len(descriptors) == 0 {
		return nil, ErrEmptyCatalog
	}

	byName := make(map[string]Descriptor, len(descriptors))

	for i := range descriptors {
		d := &descriptors[i]

		if d.Name == "" {
			return nil, fmt.Errorf("%w: missing name", ErrInvalidDescriptor)
		}

		if d.RevisitDays <= 0 {
			return nil, fmt.Errorf("%w: %s revisit_days must be > 0", ErrInvalidDescriptor, d.Name)
		}

		if d.ResolutionM <= 0 {
			return nil, fmt.Errorf("%w: %s resolution_m must be > 0", ErrInvalidDescriptor, d.Name)
		}

		if d.Epoch.IsZero() {
			return nil, fmt.Errorf("%w: %s missing epoch", ErrInvalidDescriptor, d.Name)
		}

		byName[d.Name] = *d
	}

	return &Catalog{sats: descriptors, byName: byName}, nil
}

// Get returns the descriptor for a satellite by name.
func (c *Catalog) Get(name string) (Descriptor, error) {
	d, ok := c.byName[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownSatellite, name)
	}

	return d, nil
}

// All returns the descriptors sorted by priority.
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.sats))
	copy(out, c.sats)

	sort.Slice(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})

	return out
}

// Len returns the number of cataloged satellites.
func (c *Catalog) Len() int {
	return len(c.sats)
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}

	return t
}

// DefaultCatalog returns the built-in four-satellite catalog:
// Sentinel-2A/2B (ESA, 10m, 10-day revisit) and Landsat-8/9
// (NASA/USGS, 30m, 16-day revisit). Epochs are known overpass
// dates for the monitored region.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Descriptor{
		{
			Name:          "Sentinel-2A",
			Operator:      "ESA (Copernicus)",
			ResolutionM:   10,
			RevisitDays:   10,
			SwathKM:       290,
			Collection:    "COPERNICUS/S2_SR_HARMONIZED",
			NIRBand:       "B8",
			RedBand:       "B4",
			CloudProperty: "CLOUDY_PIXEL_PERCENTAGE",
			Epoch:         mustDate("2024-01-03"),
			Priority:      1,
			Provider:      "imagery",
		},
		{
			Name:          "Sentinel-2B",
			Operator:      "ESA (Copernicus)",
			ResolutionM:   10,
			RevisitDays:   10,
			SwathKM:       290,
			Collection:    "COPERNICUS/S2_SR_HARMONIZED",
			NIRBand:       "B8",
			RedBand:       "B4",
			CloudProperty: "CLOUDY_PIXEL_PERCENTAGE",
			Epoch:         mustDate("2024-01-08"), // offset 5 days from 2A
			Priority:      2,
			Provider:      "imagery",
		},
		{
			Name:          "Landsat-8",
			Operator:      "NASA / USGS",
			ResolutionM:   30,
			RevisitDays:   16,
			SwathKM:       185,
			Collection:    "LANDSAT/LC08/C02/T1_L2",
			NIRBand:       "SR_B5",
			RedBand:       "SR_B4",
			CloudProperty: "CLOUD_COVER",
			Epoch:         mustDate("2024-01-05"),
			Priority:      3,
			Provider:      "imagery",
		},
		{
			Name:          "Landsat-9",
			Operator:      "NASA / USGS",
			ResolutionM:   30,
			RevisitDays:   16,
			SwathKM:       185,
			Collection:    "LANDSAT/LC09/C02/T1_L2",
			NIRBand:       "SR_B5",
			RedBand:       "SR_B4",
			CloudProperty: "CLOUD_COVER",
			Epoch:         mustDate("2024-01-13"), // offset 8 days from L8
			Priority:      4,
			Provider:      "imagery",
		},
	})
	if err != nil {
		panic(err) // built-in catalog must validate
	}

	return c
}
