package satellite

import (
	"sort"
	"time"
)

// Predictor computes overpass dates from a satellite's reference epoch and
// revisit period. The model is a fixed circular revisit cycle over the
// plot's ground location; no orbital mechanics.
type Predictor struct {
	catalog *Catalog
}

// NewPredictor creates a predictor over the given catalog.
func NewPredictor(catalog *Catalog) *Predictor {
	return &Predictor{catalog: catalog}
}

// dateOnly truncates a time to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}

// mod is the always-positive modulus, so reference dates before the
// epoch still land on the cycle.
func mod(a, n int) int {
	return ((a % n) + n) % n
}

// PredictNextPass returns the next overpass on or after from. If from is
// itself a pass day, it is returned unchanged.
func (p *Predictor) PredictNextPass(name string, from time.Time) (time.Time, error) {
	d, err := p.catalog.Get(name)
	if err != nil {
		return time.Time{}, err
	}

	ref := dateOnly(from)
	daysSinceLast := mod(daysBetween(d.Epoch, ref), d.RevisitDays)

	if daysSinceLast == 0 {
		return ref, nil
	}

	return ref.AddDate(0, 0, d.RevisitDays-daysSinceLast), nil
}

// ClosestPass returns the predicted pass nearest to the target date,
// forward or backward, and its absolute distance in days. The distance is
// the full modular distance, so it is never more than half the revisit
// period.
func (p *Predictor) ClosestPass(name string, target time.Time) (time.Time, int, error) {
	d, err := p.catalog.Get(name)
	if err != nil {
		return time.Time{}, 0, err
	}

	ref := dateOnly(target)
	daysSinceLast := mod(daysBetween(d.Epoch, ref), d.RevisitDays)
	daysUntilNext := mod(d.RevisitDays-daysSinceLast, d.RevisitDays)

	if daysSinceLast <= daysUntilNext {
		return ref.AddDate(0, 0, -daysSinceLast), daysSinceLast, nil
	}

	return ref.AddDate(0, 0, daysUntilNext), daysUntilNext, nil
}

// Schedule lists every predicted pass for all cataloged satellites within
// daysAhead of from, sorted by (days-until, priority). providers reports
// which provider keys are configured; it may be nil.
func (p *Predictor) Schedule(daysAhead int, from time.Time, providers map[string]bool) []Pass {
	ref := dateOnly(from)
	end := ref.AddDate(0, 0, daysAhead)

	var passes []Pass

	for _, d := range p.catalog.All() {
		next, err := p.PredictNextPass(d.Name, ref)
		if err != nil {
			continue
		}

		for !next.After(end) {
			passes = append(passes, Pass{
				Satellite:   d.Name,
				PassDate:    next,
				DaysUntil:   daysBetween(ref, next),
				ResolutionM: d.ResolutionM,
				Priority:    d.Priority,
				HasProvider: providers[d.Provider],
			})

			next = next.AddDate(0, 0, d.RevisitDays)
		}
	}

	sort.Slice(passes, func(i, j int) bool {
		if passes[i].DaysUntil != passes[j].DaysUntil {
			return passes[i].DaysUntil < passes[j].DaysUntil
		}

		return passes[i].Priority < passes[j].Priority
	})

	return passes
}
