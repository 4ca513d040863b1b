package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/pvss39/hellofarm/pkg/satellite"
)

// Synthetic generates deterministic observations without any network
// access. The same plot, satellite and date always produce the same
// reading, so trend classification behaves consistently across runs.
// Used when no imagery provider is configured.
type Synthetic struct {
	catalog   *satellite.Catalog
	predictor *satellite.Predictor
}

func NewSynthetic(catalog *satellite.Catalog) *Synthetic {
	return &Synthetic{
		catalog:   catalog,
		predictor: satellite.NewPredictor(catalog),
	}
}

func (s *Synthetic) Name() string { return "synthetic" }

func (s *Synthetic) Available() bool { return true }

// FetchObservation returns a reading for the most recent pass of the
// requested satellite on or before req.End, or ErrNoObservation when
// that pass falls before req.Start.
func (s *Synthetic) FetchObservation(_ context.Context, req Request) (*satellite.Observation, error) {
	desc, err := s.catalog.Get(req.Satellite.Name)
	if err != nil {
		return nil, err
	}

	end := time.Date(req.End.Year(), req.End.Month(), req.End.Day(), 0, 0, 0, 0, time.UTC)

	next, err := s.predictor.PredictNextPass(desc.Name, end)
	if err != nil {
		return nil, err
	}

	lastPass := next
	if next.After(end) {
		lastPass = next.AddDate(0, 0, -desc.RevisitDays)
	}

	if lastPass.Before(req.Start) {
		return nil, ErrNoObservation
	}

	ndvi, cloud := syntheticReading(req.Plot.NameEnglish, desc.Name, lastPass)

	return &satellite.Observation{
		Satellite:   desc.Name,
		DisplayName: desc.Name,
		Date:        lastPass,
		NDVI:        ndvi,
		CloudCover:  cloud,
		ResolutionM: desc.ResolutionM,
		Source:      s.Name(),
	}, nil
}

// syntheticReading derives an NDVI and cloud cover from a hash of the
// plot, satellite and date, with a mild seasonal component.
func syntheticReading(plot, sat string, date time.Time) (ndvi, cloud float64) {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%s", plot, sat, date.Format("2006-01-02"))
	sum := h.Sum32()

	base := 0.40 + float64(sum%30)/100
	seasonal := 0.08 * math.Sin(2*math.Pi*float64(date.YearDay())/365)
	noise := float64(int((sum>>8)%11)-5) / 100

	ndvi = satellite.ClampNDVI(base + seasonal + noise)
	if ndvi < 0.15 {
		ndvi = 0.15
	}
	if ndvi > 0.85 {
		ndvi = 0.85
	}

	cloud = float64((sum >> 16) % 40)

	return ndvi, cloud
}
