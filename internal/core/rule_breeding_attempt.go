package core

import (
	"context"
	"fmt"

	"herdcore/pkg/domain"
)

// BreedingAttemptIntegrityRule blocks commits that leave a female with more
// than one attempt awaiting an outcome.
func BreedingAttemptIntegrityRule() domain.Rule {
	return breedingAttemptIntegrityRule{}
}

type breedingAttemptIntegrityRule struct{}

func (breedingAttemptIntegrityRule) Name() string { return "breeding_attempt_integrity" }

func (breedingAttemptIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if !touches(changes, domain.EntityBreedingAttempt) {
		return res, nil
	}
	open := make(map[string]int)
	for _, attempt := range view.ListBreedingAttempts() {
		if !attempt.Open() {
			continue
		}
		open[attempt.AnimalID]++
		if open[attempt.AnimalID] == 2 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "breeding_attempt_integrity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("animal %s has more than one open breeding attempt", attempt.AnimalID),
				Entity:   domain.EntityBreedingAttempt,
				EntityID: attempt.ID,
			})
		}
	}
	return res, nil
}
