// Package monitor runs the observation checks and scheduled jobs that
// turn satellite readings into farmer notifications.
package monitor

import (
	"github.com/pvss39/hellofarm/pkg/db"
)

// Trend classifies an NDVI reading against the previous one.
type Trend string

const (
	// TrendBaseline marks the first reading for a plot, with nothing
	// to compare against.
	TrendBaseline  Trend = "checked"
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// trendDelta is the NDVI change beyond which a reading counts as a
// real shift rather than noise. The comparison is exclusive: a change
// of exactly this much is still stable.
const trendDelta = 0.05

// ClassifyTrend compares the current NDVI against the most recent
// historical reading. History is expected newest-first, as the store
// returns it.
func ClassifyTrend(currentNDVI float64, history []db.SatelliteReading) Trend {
	if len(history) == 0 {
		return TrendBaseline
	}

	delta := currentNDVI - history[0].NDVI

	switch {
	case delta > trendDelta:
		return TrendImproving
	case delta < -trendDelta:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func (t Trend) English() string {
	return string(t)
}

func (t Trend) Telugu() string {
	switch t {
	case TrendImproving:
		return "మెరుగుపడింది"
	case TrendDeclining:
		return "తగ్గింది"
	case TrendStable:
		return "స్థిరంగా ఉంది"
	default:
		return "తనిఖీ చేయబడింది"
	}
}

func (t Trend) Emoji() string {
	switch t {
	case TrendImproving:
		return "📈"
	case TrendDeclining:
		return "📉"
	case TrendStable:
		return "➡️"
	default:
		return "📊"
	}
}
