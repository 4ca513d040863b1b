package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/pvss39/hellofarm/pkg/db"
	"github.com/pvss39/hellofarm/pkg/satellite"
)

// MessageKind identifies the scheduled job a message came from.
type MessageKind string

const (
	KindSatelliteReport MessageKind = "satellite_report"
	KindMorningUpdate   MessageKind = "morning_update"
	KindWeeklySummary   MessageKind = "weekly_summary"
)

// Message is one farmer-facing notification. Body carries the Telugu
// text first, then the English text, separated by a divider, so the
// delivery channel can forward it verbatim.
type Message struct {
	Kind      MessageKind    `json:"kind"`
	PlotID    int64          `json:"plot_id,omitempty"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// Key identifies the message stream for cooldown purposes. Reports for
// different plots never suppress each other.
func (m *Message) Key() string {
	return fmt.Sprintf("%s/%d", m.Kind, m.PlotID)
}

const bilingualDivider = "\n---\n\n"

// SatelliteReport builds the bilingual plot health report for one
// observation. Trend wording comes from the caller in both languages
// along with its emoji.
func SatelliteReport(plot *db.Plot, obs *satellite.Observation, trendTE, trendEN, emoji string) *Message {
	dateKey := obs.DateKey()

	var te strings.Builder
	fmt.Fprintf(&te, "🛰️ %s నివేదిక\n\n", obs.Satellite)
	fmt.Fprintf(&te, "%s:\n", plot.NameTelugu)
	fmt.Fprintf(&te, "%s ఆరోగ్యం: %d/100 (%s)\n", emoji, obs.HealthScore, trendTE)
	fmt.Fprintf(&te, "📸 NDVI: %.3f\n", obs.NDVI)
	fmt.Fprintf(&te, "📅 తేదీ: %s (%d రోజుల క్రితం)\n", dateKey, obs.AgeDays)
	fmt.Fprintf(&te, "☁️ మేఘాలు: %.0f%%\n", obs.CloudCover)

	var en strings.Builder
	fmt.Fprintf(&en, "🛰️ %s Report\n\n", obs.Satellite)
	fmt.Fprintf(&en, "%s:\n", plot.NameEnglish)
	fmt.Fprintf(&en, "%s Health: %d/100 (%s)\n", emoji, obs.HealthScore, trendEN)
	fmt.Fprintf(&en, "📸 NDVI: %.3f\n", obs.NDVI)
	fmt.Fprintf(&en, "📅 Date: %s (%d days ago)\n", dateKey, obs.AgeDays)
	fmt.Fprintf(&en, "☁️ Clouds: %.0f%%", obs.CloudCover)

	return &Message{
		Kind:   KindSatelliteReport,
		PlotID: plot.ID,
		Title:  fmt.Sprintf("%s report for %s", obs.Satellite, plot.NameEnglish),
		Body:   te.String() + bilingualDivider + en.String(),
		Details: map[string]any{
			"satellite":    obs.Satellite,
			"date":         dateKey,
			"ndvi":         obs.NDVI,
			"health_score": obs.HealthScore,
			"trend":        trendEN,
		},
	}
}

// WeatherSnapshot is the slice of weather state the morning update
// mentions.
type WeatherSnapshot struct {
	Conditions  string
	TempCelsius float64
	RainfallMM  float64
}

// MorningUpdate builds the daily irrigation and weather briefing.
// weather may be nil when the weather fetch failed; the update still
// goes out without it.
func MorningUpdate(due []db.IrrigationStatus, weather *WeatherSnapshot) *Message {
	var te, en strings.Builder

	te.WriteString("శుభోదయం! 🌅\n\n")
	en.WriteString("Good morning! 🌅\n\n")

	if len(due) > 0 {
		te.WriteString("💧 ఈరోజు నీరు పోయాల్సిన పొలాలు:\n")
		en.WriteString("💧 Plots needing water today:\n")

		for _, p := range due {
			fmt.Fprintf(&te, "  • %s (%dd overdue)\n", p.NameTelugu, p.DaysOverdue)
			fmt.Fprintf(&en, "  • %s — %d days overdue\n", p.NameEnglish, p.DaysOverdue)
		}
	} else {
		te.WriteString("✅ అన్ని పొలాలు బాగున్నాయి\n")
		en.WriteString("✅ All plots are on schedule\n")
	}

	te.WriteString("\n")
	en.WriteString("\n")

	if weather != nil {
		fmt.Fprintf(&te, "☀️ వాతావరణం: %s, %.0f°C\n", weather.Conditions, weather.TempCelsius)
		fmt.Fprintf(&en, "☀️ Weather: %s, %.0f°C\n", weather.Conditions, weather.TempCelsius)

		if weather.RainfallMM > 0 {
			fmt.Fprintf(&te, "🌧️ వర్షం: %.0fmm\n", weather.RainfallMM)
			fmt.Fprintf(&en, "🌧️ Rainfall: %.0fmm\n", weather.RainfallMM)
		}
	}

	return &Message{
		Kind:  KindMorningUpdate,
		Title: "Morning update " + time.Now().UTC().Format("2006-01-02"),
		Body:  te.String() + bilingualDivider + en.String(),
	}
}

// WeeklyLine is one plot's entry in the weekly summary.
type WeeklyLine struct {
	NameEnglish string
	NameTelugu  string
	TrendEN     string
	Emoji       string
	HasData     bool
}

// WeeklySummary builds the Sunday recap across all plots.
func WeeklySummary(lines []WeeklyLine) *Message {
	var te, en strings.Builder

	te.WriteString("📊 వారపు సారాంశం 📊\n\n")
	en.WriteString("📊 Weekly Summary 📊\n\n")

	for _, l := range lines {
		if l.HasData {
			fmt.Fprintf(&te, "%s %s: %s\n", l.Emoji, l.NameTelugu, l.TrendEN)
			fmt.Fprintf(&en, "%s %s: %s\n", l.Emoji, l.NameEnglish, l.TrendEN)
		} else {
			fmt.Fprintf(&te, "📊 %s: పోలిక లేదు\n", l.NameTelugu)
			fmt.Fprintf(&en, "📊 %s: not enough data yet\n", l.NameEnglish)
		}
	}

	return &Message{
		Kind:  KindWeeklySummary,
		Title: "Weekly summary " + time.Now().UTC().Format("2006-01-02"),
		Body:  te.String() + bilingualDivider + en.String(),
	}
}
