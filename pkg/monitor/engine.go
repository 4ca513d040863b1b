package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pvss39/hellofarm/pkg/db"
	"github.com/pvss39/hellofarm/pkg/notify"
	"github.com/pvss39/hellofarm/pkg/provider"
	"github.com/pvss39/hellofarm/pkg/satellite"
	"github.com/pvss39/hellofarm/pkg/weather"
)

var ErrAllNotifiersFailed = errors.New("no notifier accepted the message")

const (
	// DefaultLookbackDays is the observation window for routine checks.
	DefaultLookbackDays = 7

	// DefaultTrendWindowDays is how far back trend comparison reaches.
	DefaultTrendWindowDays = 30
)

// Config holds the tunable knobs of the check engine.
type Config struct {
	LookbackDays    int `json:"lookback_days"`
	TrendWindowDays int `json:"trend_window_days"`
}

// Engine ties the fetch, select, classify and notify steps together.
// One CheckPlot call is one full pipeline run for one plot.
type Engine struct {
	store     db.Service
	fetcher   *provider.Fetcher
	selector  *satellite.Selector
	weather   *weather.Client // may be nil
	notifiers []notify.Notifier
	cfg       Config
	publish   func(CheckResult)
}

// CheckResult reports what one pipeline run did for a plot.
type CheckResult struct {
	Plot        string                 `json:"plot"`
	Observation *satellite.Observation `json:"observation,omitempty"`
	Trend       Trend                  `json:"trend,omitempty"`
	Notified    bool                   `json:"notified"`
	Skipped     bool                   `json:"skipped"` // already notified for this date
}

func NewEngine(store db.Service, fetcher *provider.Fetcher, selector *satellite.Selector,
	wc *weather.Client, notifiers []notify.Notifier, cfg Config) *Engine {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}

	if cfg.TrendWindowDays <= 0 {
		cfg.TrendWindowDays = DefaultTrendWindowDays
	}

	return &Engine{
		store:     store,
		fetcher:   fetcher,
		selector:  selector,
		weather:   wc,
		notifiers: notifiers,
		cfg:       cfg,
	}
}

// SetPublisher registers a sink that receives every check result,
// used by the live feed. Call before the scheduler starts.
func (e *Engine) SetPublisher(fn func(CheckResult)) {
	e.publish = fn
}

// Availability exposes the provider availability map for pass scoring.
func (e *Engine) Availability() map[string]bool {
	return e.fetcher.Availability()
}

// CheckPlot fetches candidates for one plot, picks the best
// observation, classifies the trend and notifies. A date already
// notified is skipped without touching the channels, which makes
// re-runs idempotent.
func (e *Engine) CheckPlot(ctx context.Context, plot *db.Plot, now time.Time) (*CheckResult, error) {
	return e.checkPlot(ctx, plot, now, e.cfg.LookbackDays)
}

func (e *Engine) checkPlot(ctx context.Context, plot *db.Plot, now time.Time, lookbackDays int) (*CheckResult, error) {
	result := &CheckResult{Plot: plot.NameEnglish}

	candidates := e.fetcher.Candidates(ctx, plot, now, lookbackDays)
	if len(candidates) == 0 {
		log.Printf("No imagery found for plot %s", plot.NameEnglish)
		return e.emit(result), nil
	}

	best, err := e.selector.BestObservation(candidates)
	if err != nil {
		return nil, fmt.Errorf("select observation for plot %s: %w", plot.NameEnglish, err)
	}

	result.Observation = best

	sent, err := e.store.HasNotificationForDate(plot.ID, best.DateKey())
	if err != nil {
		return nil, err
	}

	if sent {
		log.Printf("Already notified plot %s for %s", plot.NameEnglish, best.DateKey())

		result.Skipped = true

		return e.emit(result), nil
	}

	history, err := e.store.GetSatelliteHistory(plot.ID, e.cfg.TrendWindowDays, now)
	if err != nil {
		return nil, err
	}

	trend := ClassifyTrend(best.NDVI, history)
	result.Trend = trend

	log.Printf("New data for plot %s from %s (%s): NDVI %.3f, health %d, trend %s",
		plot.NameEnglish, best.Satellite, best.DateKey(), best.NDVI, best.HealthScore, trend)

	msg := notify.SatelliteReport(plot, best, trend.Telugu(), trend.English(), trend.Emoji())
	if err := e.broadcast(ctx, msg); err != nil {
		return nil, err
	}

	result.Notified = true

	if err := e.store.AddSatelliteReading(&db.SatelliteReading{
		PlotID:      plot.ID,
		CheckDate:   best.Date,
		Source:      best.Satellite,
		NDVI:        best.NDVI,
		CloudCover:  best.CloudCover,
		HealthScore: float64(best.HealthScore),
	}); err != nil {
		return nil, err
	}

	if err := e.store.RecordNotification(&db.NotificationRecord{
		PlotID:    plot.ID,
		DateKey:   best.DateKey(),
		Satellite: best.Satellite,
		NDVI:      best.NDVI,
	}); err != nil {
		return nil, err
	}

	return e.emit(result), nil
}

func (e *Engine) emit(result *CheckResult) *CheckResult {
	if e.publish != nil {
		e.publish(*result)
	}

	return result
}

// CheckAll runs the pipeline for every plot. A failing plot is logged
// and skipped; the sweep continues.
func (e *Engine) CheckAll(ctx context.Context, now time.Time) []CheckResult {
	return e.checkAll(ctx, now, e.cfg.LookbackDays)
}

// Backfill runs a sweep with a wide lookback window. Used once at
// startup so a service that was down for a while catches up on missed
// passes.
func (e *Engine) Backfill(ctx context.Context, now time.Time, lookbackDays int) []CheckResult {
	if lookbackDays <= 0 {
		lookbackDays = DefaultTrendWindowDays
	}

	return e.checkAll(ctx, now, lookbackDays)
}

func (e *Engine) checkAll(ctx context.Context, now time.Time, lookbackDays int) []CheckResult {
	plots, err := e.store.ListPlots()
	if err != nil {
		log.Printf("Failed to list plots: %v", err)
		return nil
	}

	results := make([]CheckResult, 0, len(plots))

	for i := range plots {
		plot := &plots[i]

		log.Printf("Checking %s...", plot.NameEnglish)

		result, err := e.checkPlot(ctx, plot, now, lookbackDays)
		if err != nil {
			log.Printf("Check failed for plot %s: %v", plot.NameEnglish, err)
			continue
		}

		results = append(results, *result)
	}

	return results
}

// MorningUpdate sends the daily irrigation and weather briefing. The
// weather part is best effort and the heavy-rain heuristic downgrades
// irrigation reminders to avoid watering ahead of a storm.
func (e *Engine) MorningUpdate(ctx context.Context, now time.Time) error {
	plots, err := e.store.ListPlots()
	if err != nil {
		return err
	}

	if len(plots) == 0 {
		log.Printf("No plots in database, skipping morning update")
		return nil
	}

	due, err := e.store.IrrigationDue(now)
	if err != nil {
		return err
	}

	var snapshot *notify.WeatherSnapshot

	if e.weather != nil && e.weather.Available() {
		current, werr := e.weather.CurrentWeather(ctx, plots[0].Latitude, plots[0].Longitude)
		if werr != nil {
			log.Printf("Weather fetch error: %v", werr)
		} else {
			snapshot = &notify.WeatherSnapshot{
				Conditions:  current.Conditions,
				TempCelsius: current.TempCelsius,
				RainfallMM:  current.RainfallMM,
			}

			if ok, reason := weather.ShouldIrrigate(current); !ok {
				log.Printf("Suppressing irrigation reminders: %s", reason)

				due = nil
			}
		}
	}

	return e.broadcast(ctx, notify.MorningUpdate(due, snapshot))
}

// WeeklySummary sends the Sunday recap comparing each plot's newest
// reading against the one before it.
func (e *Engine) WeeklySummary(ctx context.Context, now time.Time) error {
	plots, err := e.store.ListPlots()
	if err != nil {
		return err
	}

	if len(plots) == 0 {
		log.Printf("No plots, skipping weekly summary")
		return nil
	}

	lines := make([]notify.WeeklyLine, 0, len(plots))

	for i := range plots {
		plot := &plots[i]

		line := notify.WeeklyLine{
			NameEnglish: plot.NameEnglish,
			NameTelugu:  plot.NameTelugu,
		}

		history, herr := e.store.GetSatelliteHistory(plot.ID, 7, now)
		if herr != nil {
			log.Printf("History fetch failed for plot %s: %v", plot.NameEnglish, herr)
		} else if len(history) >= 2 {
			trend := ClassifyTrend(history[0].NDVI, history[1:])
			line.TrendEN = trend.English()
			line.Emoji = trend.Emoji()
			line.HasData = true
		}

		lines = append(lines, line)
	}

	return e.broadcast(ctx, notify.WeeklySummary(lines))
}

// broadcast sends through every enabled notifier. Partial delivery
// counts as success; total failure surfaces so the caller can retry
// on the next run.
func (e *Engine) broadcast(ctx context.Context, msg *notify.Message) error {
	delivered := 0

	for _, n := range e.notifiers {
		if !n.IsEnabled() {
			continue
		}

		if err := n.Send(ctx, msg); err != nil {
			log.Printf("Notifier send failed: %v", err)
			continue
		}

		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("%w: %s", ErrAllNotifiersFailed, msg.Title)
	}

	return nil
}
