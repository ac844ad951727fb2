// Package analytics derives the extrapolated daily consumption and alert
// classification for an industry from its reading history. Everything here
// is pure; it runs synchronously on every new snapshot.
package analytics

import (
	"sort"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
)

const msPerDay = 86_400_000

const (
	criticalPercent = 90
	warningPercent  = 70
)

// Analyze computes the daily rate from the two most recent readings of the
// industry and classifies it against the allowed daily consumption.
//
// The guards all collapse to a zero rate: fewer than two readings,
// non-positive elapsed time between the two most recent (clock skew or a
// duplicate timestamp), and a negative delta (counter rollback or reset).
// The rate is clamped to zero before the percentage step.
func Analyze(industry domain.Industry, readings []domain.Reading) domain.Consumption {
	rate := ratePerDay(readings)
	if rate < 0 {
		rate = 0
	}
	percent := 0.0
	if industry.AllowedDailyConsumption > 0 {
		percent = clamp(rate/industry.AllowedDailyConsumption*100, 0, 100)
	}
	return domain.Consumption{
		RatePerDay: rate,
		Percent:    percent,
		Level:      Classify(percent),
	}
}

// AnalyzeSnapshot computes the consumption of every industry in a snapshot,
// keyed by industry id.
func AnalyzeSnapshot(snap *domain.Snapshot) map[string]domain.Consumption {
	out := make(map[string]domain.Consumption, len(snap.Industries))
	for _, ind := range snap.Industries {
		out[ind.ID] = Analyze(ind, snap.ReadingsForIndustry(ind.ID))
	}
	return out
}

// ratePerDay is the raw, unclamped delta over elapsed days. The store does
// not guarantee ordering, so the history is sorted here before use.
func ratePerDay(readings []domain.Reading) float64 {
	if len(readings) < 2 {
		return 0
	}
	sorted := append([]domain.Reading(nil), readings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	current, previous := sorted[0], sorted[1]
	elapsedMs := current.Timestamp.UnixMilli() - previous.Timestamp.UnixMilli()
	if elapsedMs <= 0 {
		return 0
	}
	elapsedDays := float64(elapsedMs) / msPerDay
	return (current.Value - previous.Value) / elapsedDays
}

// Classify maps a usage percentage to an alert level. Boundary values
// belong to the higher band.
func Classify(percent float64) domain.AlertLevel {
	switch {
	case percent >= criticalPercent:
		return domain.AlertCritical
	case percent >= warningPercent:
		return domain.AlertWarning
	default:
		return domain.AlertNormal
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
