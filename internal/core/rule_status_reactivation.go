package core

import (
	"context"
	"fmt"

	"herdcore/pkg/domain"
)

// StatusReactivationRule warns when an animal returns to active from a
// sold, dead or discarded status. The change is allowed so records can be
// corrected.
func StatusReactivationRule() domain.Rule {
	return statusReactivationRule{}
}

type statusReactivationRule struct{}

func (statusReactivationRule) Name() string { return "status_reactivation" }

func (statusReactivationRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityAnimal || change.Action != domain.ActionUpdate {
			continue
		}
		before, okBefore := change.Before.(domain.Animal)
		after, okAfter := change.After.(domain.Animal)
		if !okBefore || !okAfter {
			continue
		}
		if before.Status != domain.StatusActive && after.Status == domain.StatusActive {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "status_reactivation",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("animal %s reactivated from %s", after.ID, before.Status),
				Entity:   domain.EntityAnimal,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
