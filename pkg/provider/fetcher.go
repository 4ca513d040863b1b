package provider

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/pvss39/hellofarm/pkg/db"
	"github.com/pvss39/hellofarm/pkg/satellite"
)

// DefaultMaxCloudPercent is the cloud cover ceiling above which an
// observation is discarded before scoring.
const DefaultMaxCloudPercent = 50.0

// Fetcher collects candidate observations for a plot across every
// catalog satellite whose provider is configured and available.
type Fetcher struct {
	catalog   *satellite.Catalog
	providers map[string]Provider
	maxCloud  float64
}

// NewFetcher builds a fetcher over the given provider set, keyed by
// the provider name each catalog descriptor references.
func NewFetcher(catalog *satellite.Catalog, providers map[string]Provider, maxCloud float64) *Fetcher {
	if maxCloud <= 0 {
		maxCloud = DefaultMaxCloudPercent
	}

	return &Fetcher{
		catalog:   catalog,
		providers: providers,
		maxCloud:  maxCloud,
	}
}

// Availability reports which provider names are currently usable.
// The selector consumes this map when scoring upcoming passes.
func (f *Fetcher) Availability() map[string]bool {
	avail := make(map[string]bool, len(f.providers))
	for name, p := range f.providers {
		avail[name] = p.Available()
	}

	return avail
}

// Candidates fetches the freshest usable observation per satellite
// within the lookback window ending at now. A provider error or a
// too-cloudy reading drops that satellite from the candidate set; it
// never fails the whole fetch.
func (f *Fetcher) Candidates(ctx context.Context, plot *db.Plot, now time.Time, lookbackDays int) []satellite.Observation {
	start := now.AddDate(0, 0, -lookbackDays)

	var candidates []satellite.Observation

	for _, desc := range f.catalog.All() {
		p, ok := f.providers[desc.Provider]
		if !ok || !p.Available() {
			continue
		}

		obs, err := p.FetchObservation(ctx, Request{
			Plot:      plot,
			Satellite: desc,
			Start:     start,
			End:       now,
			MaxCloud:  f.maxCloud,
		})
		if err != nil {
			if !errors.Is(err, ErrNoObservation) {
				log.Printf("Fetch from %s for plot %s failed: %v", desc.Name, plot.NameEnglish, err)
			}

			continue
		}

		if obs.CloudCover > f.maxCloud {
			log.Printf("Skipping %s observation for plot %s: %.0f%% cloud cover",
				desc.Name, plot.NameEnglish, obs.CloudCover)
			continue
		}

		obs.AgeDays = ageDays(obs.Date, now)
		obs.HealthScore = satellite.HealthScore(obs.NDVI)

		candidates = append(candidates, *obs)
	}

	return candidates
}

func ageDays(date, now time.Time) int {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	age := int(n.Sub(d).Hours() / 24)
	if age < 0 {
		age = 0
	}

	return age
}
