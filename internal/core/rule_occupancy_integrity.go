package core

import (
	"context"
	"fmt"

	"herdcore/pkg/domain"
)

// OccupancyIntegrityRule blocks commits that leave a subject with two open
// records, an exclusive container with two occupants, or an exit date before
// its entry.
func OccupancyIntegrityRule() domain.Rule {
	return occupancyIntegrityRule{}
}

type occupancyIntegrityRule struct{}

func (occupancyIntegrityRule) Name() string { return "occupancy_integrity" }

func (occupancyIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if !touches(changes, domain.EntityOccupancy) {
		return res, nil
	}
	type key struct {
		relation domain.RelationKind
		id       string
	}
	subjects := make(map[key]int)
	containers := make(map[key]int)
	for _, rec := range view.ListOccupancy() {
		if rec.ExitDate != nil {
			if rec.ExitDate.Before(rec.EntryDate) {
				res.Violations = append(res.Violations, occupancyViolation(rec.ID, fmt.Sprintf("record %s exits before it enters", rec.ID)))
			}
			continue
		}
		rel, ok := domain.RelationFor(rec.Relation)
		if !ok {
			res.Violations = append(res.Violations, occupancyViolation(rec.ID, fmt.Sprintf("record %s has unknown relation %q", rec.ID, rec.Relation)))
			continue
		}
		subjects[key{rel.Kind, rec.SubjectID}]++
		if subjects[key{rel.Kind, rec.SubjectID}] == 2 {
			res.Violations = append(res.Violations, occupancyViolation(rec.ID, fmt.Sprintf("%s %s has more than one open %s record", rel.Subject, rec.SubjectID, rel.Kind)))
		}
		if rel.ExclusiveContainer {
			containers[key{rel.Kind, rec.ContainerID}]++
			if containers[key{rel.Kind, rec.ContainerID}] == 2 {
				res.Violations = append(res.Violations, occupancyViolation(rec.ID, fmt.Sprintf("%s %s hosts more than one %s", rel.Container, rec.ContainerID, rel.Subject)))
			}
		}
	}
	return res, nil
}

func occupancyViolation(recordID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "occupancy_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityOccupancy,
		EntityID: recordID,
	}
}
