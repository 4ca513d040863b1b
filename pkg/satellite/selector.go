package satellite

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var ErrNoObservations = errors.New("no observation available")

// Scoring weights for live observation selection. Recency dominates
// because vegetation state changes week to week; cloud-free fraction
// matters because cloudy pixels corrupt NDVI; resolution is a minor
// tiebreak at plot scale.
const (
	recencyWeight    = 0.5
	cloudFreeWeight  = 0.3
	resolutionWeight = 0.2

	// DefaultPassWindowDays is the accepted distance from the target
	// date when selecting a satellite from the schedule alone.
	DefaultPassWindowDays = 3
)

// Selector picks the best satellite for a target date, or the best live
// observation among fetched candidates.
type Selector struct {
	catalog   *Catalog
	predictor *Predictor
}

// NewSelector creates a selector over the given catalog.
func NewSelector(catalog *Catalog) *Selector {
	return &Selector{
		catalog:   catalog,
		predictor: NewPredictor(catalog),
	}
}

// BestSatellite selects the best satellite for a target date from the pass
// schedule alone, without live imagery. Candidates are satellites with a
// pass within windowDays of the target; each is scored on provider
// availability, resolution, distance from target, and priority. When no
// satellite passes inside the window, the soonest upcoming pass is
// returned instead and the reason string says so.
func (s *Selector) BestSatellite(target time.Time, windowDays int, providers map[string]bool) (*Selection, error) {
	if s.catalog.Len() == 0 {
		return nil, ErrEmptyCatalog
	}

	if windowDays <= 0 {
		windowDays = DefaultPassWindowDays
	}

	var candidates []Selection

	for _, d := range s.catalog.All() {
		passDate, distance, err := s.predictor.ClosestPass(d.Name, target)
		if err != nil {
			return nil, err
		}

		if distance > windowDays {
			continue
		}

		hasProvider := providers[d.Provider]

		score := 0
		if hasProvider {
			score += 100
		}

		score += int(40 / (float64(d.ResolutionM) / 10)) // 10m = +40, 30m = +13
		score -= distance * 10
		score -= d.Priority

		candidates = append(candidates, Selection{
			Satellite:      d.Name,
			Operator:       d.Operator,
			Score:          score,
			PassDate:       passDate,
			DaysFromTarget: distance,
			ResolutionM:    d.ResolutionM,
			HasProvider:    hasProvider,
		})
	}

	if len(candidates) == 0 {
		return s.soonestPass(target, windowDays, providers)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	best := candidates[0]
	best.Reason = selectionReason(&best)

	return &best, nil
}

func (s *Selector) soonestPass(target time.Time, windowDays int, providers map[string]bool) (*Selection, error) {
	passes := s.predictor.Schedule(windowDays*3, target, providers)
	if len(passes) == 0 {
		return nil, ErrEmptyCatalog
	}

	p := passes[0]
	d, err := s.catalog.Get(p.Satellite)
	if err != nil {
		return nil, err
	}

	return &Selection{
		Satellite:      p.Satellite,
		Operator:       d.Operator,
		PassDate:       p.PassDate,
		DaysFromTarget: p.DaysUntil,
		ResolutionM:    p.ResolutionM,
		HasProvider:    p.HasProvider,
		Reason:         "no satellite in window, selected soonest pass",
	}, nil
}

func selectionReason(sel *Selection) string {
	reason := ""
	if sel.HasProvider {
		reason = "provider configured, "
	}

	if sel.DaysFromTarget == 0 {
		return fmt.Sprintf("%s%dm resolution, passes today", reason, sel.ResolutionM)
	}

	return fmt.Sprintf("%s%dm resolution, %dd from target", reason, sel.ResolutionM, sel.DaysFromTarget)
}

// ScoreObservation fills in the Score and Confidence fields of an
// observation: 50% recency, 30% cloud-free fraction, 20% resolution.
func ScoreObservation(o *Observation) {
	recency := math.Max(0, 100-float64(o.AgeDays)*10)
	cloudFree := 100 - o.CloudCover
	resolution := (10 / float64(o.ResolutionM)) * 100

	o.Score = recency*recencyWeight + cloudFree*cloudFreeWeight + resolution*resolutionWeight
	o.Confidence = math.Min(1.0, o.Score/100)
}

// BestObservation scores all candidates and returns the one with the
// maximum score. Ties are broken deterministically by catalog priority
// rank, then by candidate order. Zero candidates is not a fatal error;
// callers fall back to a secondary provider or skip the cycle.
func (s *Selector) BestObservation(candidates []Observation) (*Observation, error) {
	if len(candidates) == 0 {
		return nil, ErrNoObservations
	}

	best := -1

	for i := range candidates {
		ScoreObservation(&candidates[i])

		if best < 0 {
			best = i
			continue
		}

		if candidates[i].Score > candidates[best].Score {
			best = i
		} else if candidates[i].Score == candidates[best].Score &&
			s.priorityOf(candidates[i].Satellite) < s.priorityOf(candidates[best].Satellite) {
			best = i
		}
	}

	chosen := candidates[best]

	return &chosen, nil
}

func (s *Selector) priorityOf(name string) int {
	d, err := s.catalog.Get(name)
	if err != nil {
		return math.MaxInt32
	}

	return d.Priority
}

// Predictor exposes the selector's underlying pass predictor.
func (s *Selector) Predictor() *Predictor {
	return s.predictor
}
