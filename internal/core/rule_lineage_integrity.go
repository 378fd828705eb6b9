package core

import (
	"context"
	"fmt"

	"herdcore/pkg/domain"
)

// LineageIntegrityRule checks the parents of created or updated animals.
func LineageIntegrityRule() domain.Rule {
	return lineageIntegrityRule{}
}

type lineageIntegrityRule struct{}

func (lineageIntegrityRule) Name() string { return "lineage_integrity" }

func (lineageIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityAnimal || change.After == nil {
			continue
		}
		child, ok := change.After.(domain.Animal)
		if !ok {
			continue
		}
		checkParent := func(role string, id *string, sex domain.Sex) {
			if id == nil || *id == "" {
				return
			}
			if *id == child.ID {
				res.Violations = append(res.Violations, lineageViolation(child.ID, fmt.Sprintf("animal %s references itself as %s", child.ID, role)))
				return
			}
			parent, ok := view.FindAnimal(*id)
			if !ok {
				res.Violations = append(res.Violations, lineageViolation(child.ID, fmt.Sprintf("animal %s references missing %s %s", child.ID, role, *id)))
				return
			}
			if parent.Sex != sex {
				res.Violations = append(res.Violations, lineageViolation(child.ID, fmt.Sprintf("animal %s %s %s is %s", child.ID, role, parent.ID, parent.Sex)))
			}
			if parent.Species != child.Species {
				res.Violations = append(res.Violations, lineageViolation(child.ID, fmt.Sprintf("animal %s %s %s has mismatched species", child.ID, role, parent.ID)))
			}
		}
		checkParent("father", child.FatherID, domain.SexMale)
		checkParent("mother", child.MotherID, domain.SexFemale)
	}
	return res, nil
}

func lineageViolation(entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "lineage_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityAnimal,
		EntityID: entityID,
	}
}
