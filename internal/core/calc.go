package core

import (
	"time"

	"herdcore/pkg/domain"
)

// DefaultGainWindowDays is the trailing window used for average daily gain.
const DefaultGainWindowDays = 30

// animalUnitValue converts a live weight into animal units, falling back to
// the species constant when no weight is known.
func animalUnitValue(sp domain.Species, weightKg float64, hasWeight bool) float64 {
	if !hasWeight || sp.ReferenceWeightKg <= 0 {
		return sp.FallbackAnimalUnit
	}
	return weightKg / sp.ReferenceWeightKg
}

// averageDailyGain uses the earliest and latest observation inside
// [asOf-windowDays, asOf]. ws must be sorted by date.
func averageDailyGain(ws []domain.Weighing, windowDays int, asOf time.Time) (float64, bool) {
	if windowDays <= 0 {
		windowDays = DefaultGainWindowDays
	}
	end := domain.Day(asOf)
	start := domain.AddDays(end, -windowDays)
	var first, last *domain.Weighing
	for i := range ws {
		d := ws[i].Date
		if d.Before(start) || d.After(end) {
			continue
		}
		if first == nil {
			first = &ws[i]
		}
		last = &ws[i]
	}
	if first == nil || first == last {
		return 0, false
	}
	days := domain.DaysBetween(first.Date, last.Date)
	if days <= 0 {
		return 0, false
	}
	return (last.WeightKg - first.WeightKg) / float64(days), true
}

// percentage returns num/den*100, or 0 when den is 0.
func percentage(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// ratio returns num/den, or 0 when den is not positive.
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}
