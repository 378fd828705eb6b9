package core

import (
	"context"
	"time"

	"herdcore/pkg/domain"
)

// WeighingDetails holds optional weighing metadata.
type WeighingDetails struct {
	Equipment string
	Notes     string
}

// RecordWeighing appends a weight observation. Observations may arrive out
// of date order.
func (s *Service) RecordWeighing(ctx context.Context, animalID string, date time.Time, weightKg float64, details WeighingDetails) (domain.Weighing, Result, error) {
	var created domain.Weighing
	op := operation{name: "record_weighing", entity: domain.EntityWeighing, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		a, ok := tx.Snapshot().FindAnimal(animalID)
		if !ok {
			return "", domain.NotFoundError{Entity: domain.EntityAnimal, ID: animalID}
		}
		if weightKg <= 0 {
			return "", domain.Invalid("weight_kg", "must be positive")
		}
		day := domain.Day(date)
		if date.IsZero() {
			day = s.today()
		}
		if day.After(s.today()) {
			return "", domain.Invalid("date", "%s is in the future", day.Format(time.DateOnly))
		}
		if day.Before(a.BirthDate) {
			return "", domain.Invalid("date", "precedes birth date")
		}
		var err error
		created, err = tx.CreateWeighing(domain.Weighing{
			AnimalID:  animalID,
			Date:      day,
			WeightKg:  weightKg,
			Equipment: details.Equipment,
			Notes:     details.Notes,
		})
		return created.ID, err
	})
	return created, res, err
}

// AverageDailyGain returns kg/day between the earliest and latest
// observations in [asOf-windowDays, asOf]. A zero window uses
// DefaultGainWindowDays and a zero asOf uses today.
func (s *Service) AverageDailyGain(ctx context.Context, animalID string, windowDays int, asOf time.Time) (float64, bool, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	var (
		gain float64
		ok   bool
	)
	err := s.read(ctx, "average_daily_gain", func(h *herd) error {
		if _, err := h.animal(animalID); err != nil {
			return err
		}
		gain, ok = h.averageDailyGain(animalID, windowDays, asOf)
		return nil
	})
	return gain, ok, err
}

// GroupAverageDailyGain averages the gain of current active members that
// have one. Members without a value are left out of the mean.
func (s *Service) GroupAverageDailyGain(ctx context.Context, groupID string, windowDays int, asOf time.Time) (float64, bool, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	var (
		gain float64
		ok   bool
	)
	err := s.read(ctx, "group_average_daily_gain", func(h *herd) error {
		if _, err := h.group(groupID); err != nil {
			return err
		}
		gain, ok = groupGain(h, groupID, windowDays, asOf)
		return nil
	})
	return gain, ok, err
}

func groupGain(h *herd, groupID string, windowDays int, asOf time.Time) (float64, bool) {
	var gains []float64
	for _, a := range h.members(groupID) {
		if g, ok := h.averageDailyGain(a.ID, windowDays, asOf); ok {
			gains = append(gains, g)
		}
	}
	return mean(gains)
}

// GroupAverageWeight averages the current weight of members that have been
// weighed.
func (s *Service) GroupAverageWeight(ctx context.Context, groupID string) (float64, bool, error) {
	var (
		avg float64
		ok  bool
	)
	err := s.read(ctx, "group_average_weight", func(h *herd) error {
		if _, err := h.group(groupID); err != nil {
			return err
		}
		avg, ok = groupWeight(h, groupID)
		return nil
	})
	return avg, ok, err
}

func groupWeight(h *herd, groupID string) (float64, bool) {
	var weights []float64
	for _, a := range h.members(groupID) {
		if w, ok := h.currentWeight(a.ID); ok {
			weights = append(weights, w)
		}
	}
	return mean(weights)
}

// GainSincePrevious returns the daily gain between a weighing and the
// animal's latest observation dated strictly before it.
func (s *Service) GainSincePrevious(ctx context.Context, weighingID string) (float64, bool, error) {
	var (
		gain float64
		ok   bool
	)
	err := s.read(ctx, "gain_since_previous", func(h *herd) error {
		w, found := h.view.FindWeighing(weighingID)
		if !found {
			return domain.NotFoundError{Entity: domain.EntityWeighing, ID: weighingID}
		}
		var prev *domain.Weighing
		for _, candidate := range h.weighings[w.AnimalID] {
			if candidate.Date.Before(w.Date) {
				c := candidate
				prev = &c
			}
		}
		if prev == nil {
			return nil
		}
		gain = (w.WeightKg - prev.WeightKg) / float64(domain.DaysBetween(prev.Date, w.Date))
		ok = true
		return nil
	})
	return gain, ok, err
}

// WeighingHistory returns the animal's observations ordered by date.
func (s *Service) WeighingHistory(ctx context.Context, animalID string) ([]domain.Weighing, error) {
	var out []domain.Weighing
	err := s.read(ctx, "weighing_history", func(h *herd) error {
		if _, err := h.animal(animalID); err != nil {
			return err
		}
		out = append(out, h.weighings[animalID]...)
		return nil
	})
	return out, err
}
