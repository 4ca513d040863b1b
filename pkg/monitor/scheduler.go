package monitor

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	defaultSatelliteInterval = 6 * time.Hour
	defaultMorningHour       = 7
	defaultWeeklyHour        = 8
	defaultBackfillDays      = 30

	// missedRunGrace is how long after a scheduled time a freshly
	// started process will still run the job it missed while down.
	missedRunGrace = 2 * time.Hour
)

// SchedulerConfig controls when the recurring jobs fire. Hours are in
// the scheduler's Location (the farm's local time zone).
type SchedulerConfig struct {
	SatelliteInterval time.Duration  `json:"-"`
	MorningHour       int            `json:"morning_hour"`
	WeeklyWeekday     time.Weekday   `json:"weekly_weekday"`
	WeeklyHour        int            `json:"weekly_hour"`
	BackfillDays      int            `json:"backfill_days"`
	Location          *time.Location `json:"-"`
}

// Scheduler drives the engine's recurring jobs: a startup backfill, a
// fixed-interval satellite sweep, the daily morning update and the
// weekly summary.
type Scheduler struct {
	engine *Engine
	cfg    SchedulerConfig
}

func NewScheduler(engine *Engine, cfg SchedulerConfig) *Scheduler {
	if cfg.SatelliteInterval <= 0 {
		cfg.SatelliteInterval = defaultSatelliteInterval
	}

	if cfg.MorningHour <= 0 {
		cfg.MorningHour = defaultMorningHour
	}

	if cfg.WeeklyHour <= 0 {
		cfg.WeeklyHour = defaultWeeklyHour
	}

	if cfg.BackfillDays <= 0 {
		cfg.BackfillDays = defaultBackfillDays
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Scheduler{engine: engine, cfg: cfg}
}

// Run blocks until ctx is canceled. The backfill sweep happens once
// before the loops start so a service that was down catches up on
// missed passes immediately.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("Running startup backfill (%d days lookback)", s.cfg.BackfillDays)
	s.engine.Backfill(ctx, time.Now(), s.cfg.BackfillDays)

	var wg sync.WaitGroup

	wg.Add(3)

	go func() {
		defer wg.Done()
		s.satelliteLoop(ctx)
	}()

	go func() {
		defer wg.Done()
		s.dailyLoop(ctx, "morning update", s.engine.MorningUpdate)
	}()

	go func() {
		defer wg.Done()
		s.weeklyLoop(ctx)
	}()

	wg.Wait()
}

func (s *Scheduler) satelliteLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SatelliteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.engine.CheckAll(ctx, time.Now())
		}
	}
}

func (s *Scheduler) dailyLoop(ctx context.Context, name string, job func(context.Context, time.Time) error) {
	now := time.Now().In(s.cfg.Location)
	if missedRun(now, nextDaily(now, s.cfg.MorningHour), 24*time.Hour) {
		log.Printf("Running %s missed while down (within grace window)", name)

		if err := job(ctx, time.Now()); err != nil {
			log.Printf("%s failed: %v", name, err)
		}
	}

	for {
		next := nextDaily(time.Now().In(s.cfg.Location), s.cfg.MorningHour)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := job(ctx, time.Now()); err != nil {
				log.Printf("%s failed: %v", name, err)
			}
		}
	}
}

func (s *Scheduler) weeklyLoop(ctx context.Context) {
	now := time.Now().In(s.cfg.Location)
	if missedRun(now, nextWeekly(now, s.cfg.WeeklyWeekday, s.cfg.WeeklyHour), 7*24*time.Hour) {
		log.Printf("Running weekly summary missed while down (within grace window)")

		if err := s.engine.WeeklySummary(ctx, time.Now()); err != nil {
			log.Printf("weekly summary failed: %v", err)
		}
	}

	for {
		next := nextWeekly(time.Now().In(s.cfg.Location), s.cfg.WeeklyWeekday, s.cfg.WeeklyHour)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := s.engine.WeeklySummary(ctx, time.Now()); err != nil {
				log.Printf("weekly summary failed: %v", err)
			}
		}
	}
}

// missedRun reports whether the previous scheduled occurrence (the one
// period before next) falls within the grace window behind now. Used
// once at startup so a short outage does not skip a whole run.
func missedRun(now, next time.Time, period time.Duration) bool {
	return now.Sub(next.Add(-period)) <= missedRunGrace
}

// nextDaily returns the next occurrence of hour:00 strictly after now.
func nextDaily(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// nextWeekly returns the next weekday at hour:00 strictly after now.
func nextWeekly(now time.Time, weekday time.Weekday, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())

	days := (int(weekday) - int(next.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)

	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}

	return next
}
