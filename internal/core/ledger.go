package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"herdcore/pkg/domain"
)

// OccupancyMove describes an open request against the ledger.
type OccupancyMove struct {
	SubjectID   string
	ContainerID string
	Date        time.Time
	Reason      string
}

// participant is the ledger's view of a subject or container.
type participant struct {
	propertyID string
	blocked    string
}

func resolveParticipant(view TransactionView, entity domain.EntityType, id string) (participant, error) {
	notFound := domain.NotFoundError{Entity: entity, ID: id}
	switch entity {
	case domain.EntityAnimal:
		a, ok := view.FindAnimal(id)
		if !ok {
			return participant{}, notFound
		}
		p := participant{propertyID: a.PropertyID}
		if a.Status != domain.StatusActive {
			p.blocked = fmt.Sprintf("animal is %s", a.Status)
		}
		return p, nil
	case domain.EntityGroup:
		g, ok := view.FindGroup(id)
		if !ok {
			return participant{}, notFound
		}
		p := participant{propertyID: g.PropertyID}
		if !g.Active {
			p.blocked = "group is inactive"
		}
		return p, nil
	case domain.EntityArea:
		a, ok := view.FindArea(id)
		if !ok {
			return participant{}, notFound
		}
		p := participant{propertyID: a.PropertyID}
		if a.Status != domain.AreaAvailable && a.Status != domain.AreaOccupied {
			p.blocked = fmt.Sprintf("area is %s", a.Status)
		}
		return p, nil
	}
	return participant{}, domain.ConfigurationError{Reason: fmt.Sprintf("entity %q cannot take part in occupancy", entity)}
}

func findOpenRecord(view TransactionView, rel domain.OccupancyRelation, subjectID string) (domain.OccupancyRecord, bool) {
	for _, rec := range view.ListOccupancy() {
		if rec.Relation == rel.Kind && rec.SubjectID == subjectID && rec.Open() {
			return rec, true
		}
	}
	return domain.OccupancyRecord{}, false
}

func openInContainer(view TransactionView, rel domain.OccupancyRelation, containerID string) []domain.OccupancyRecord {
	var out []domain.OccupancyRecord
	for _, rec := range view.ListOccupancy() {
		if rec.Relation == rel.Kind && rec.ContainerID == containerID && rec.Open() {
			out = append(out, rec)
		}
	}
	return out
}

// openOccupancy closes the subject's current record (if any) and opens a new
// one inside the caller's transaction.
func openOccupancy(tx Transaction, rel domain.OccupancyRelation, move OccupancyMove, actor string, today time.Time) (domain.OccupancyRecord, error) {
	if move.SubjectID == "" || move.ContainerID == "" {
		return domain.OccupancyRecord{}, domain.Invalid("subject_id", "subject and container are required")
	}
	entry := domain.Day(move.Date)
	if move.Date.IsZero() {
		entry = today
	}
	if entry.After(today) {
		return domain.OccupancyRecord{}, domain.Invalid("entry_date", "%s is in the future", entry.Format(time.DateOnly))
	}
	view := tx.Snapshot()
	subject, err := resolveParticipant(view, rel.Subject, move.SubjectID)
	if err != nil {
		return domain.OccupancyRecord{}, err
	}
	container, err := resolveParticipant(view, rel.Container, move.ContainerID)
	if err != nil {
		return domain.OccupancyRecord{}, err
	}
	if subject.blocked != "" {
		return domain.OccupancyRecord{}, domain.ConflictError{Entity: rel.Subject, ID: move.SubjectID, Reason: subject.blocked}
	}
	if container.blocked != "" {
		return domain.OccupancyRecord{}, domain.ConflictError{Entity: rel.Container, ID: move.ContainerID, Reason: container.blocked}
	}
	if subject.propertyID != container.propertyID {
		return domain.OccupancyRecord{}, domain.Invalid("container_id", "%s %s belongs to a different property", rel.Container, move.ContainerID)
	}

	current, hasCurrent := findOpenRecord(view, rel, move.SubjectID)
	if hasCurrent {
		if current.ContainerID == move.ContainerID {
			return domain.OccupancyRecord{}, domain.ConflictError{Entity: rel.Subject, ID: move.SubjectID, Reason: fmt.Sprintf("already in %s %s", rel.Container, move.ContainerID)}
		}
		if entry.Before(current.EntryDate) {
			return domain.OccupancyRecord{}, domain.Invalid("entry_date", "precedes entry %s into current %s", current.EntryDate.Format(time.DateOnly), rel.Container)
		}
	}
	if rel.ExclusiveContainer {
		for _, rec := range openInContainer(view, rel, move.ContainerID) {
			if rec.SubjectID != move.SubjectID {
				return domain.OccupancyRecord{}, domain.ConflictError{Entity: rel.Container, ID: move.ContainerID, Reason: fmt.Sprintf("occupied by %s %s", rel.Subject, rec.SubjectID)}
			}
		}
	}

	if hasCurrent {
		if _, err := closeRecord(tx, rel, current, entry, move.Reason); err != nil {
			return domain.OccupancyRecord{}, err
		}
	}
	rec, err := tx.CreateOccupancy(domain.OccupancyRecord{
		Relation:    rel.Kind,
		SubjectID:   move.SubjectID,
		ContainerID: move.ContainerID,
		EntryDate:   entry,
		EntryReason: move.Reason,
		Actor:       actor,
	})
	if err != nil {
		return domain.OccupancyRecord{}, err
	}
	if rel.Container == domain.EntityArea {
		if _, err := tx.UpdateArea(move.ContainerID, func(a *domain.Area) error {
			a.Status = domain.AreaOccupied
			return nil
		}); err != nil {
			return domain.OccupancyRecord{}, err
		}
	}
	return rec, nil
}

// closeOccupancy closes the subject's open record.
func closeOccupancy(tx Transaction, rel domain.OccupancyRelation, subjectID string, exit time.Time, reason string, today time.Time) (domain.OccupancyRecord, error) {
	current, ok := findOpenRecord(tx.Snapshot(), rel, subjectID)
	if !ok {
		return domain.OccupancyRecord{}, domain.NotFoundError{Entity: domain.EntityOccupancy, ID: fmt.Sprintf("%s:%s", rel.Kind, subjectID)}
	}
	day := domain.Day(exit)
	if exit.IsZero() {
		day = today
	}
	if day.After(today) {
		return domain.OccupancyRecord{}, domain.Invalid("exit_date", "%s is in the future", day.Format(time.DateOnly))
	}
	return closeRecord(tx, rel, current, day, reason)
}

func closeRecord(tx Transaction, rel domain.OccupancyRelation, rec domain.OccupancyRecord, exit time.Time, reason string) (domain.OccupancyRecord, error) {
	if exit.Before(rec.EntryDate) {
		return domain.OccupancyRecord{}, domain.Invalid("exit_date", "precedes entry date %s", rec.EntryDate.Format(time.DateOnly))
	}
	closed, err := tx.UpdateOccupancy(rec.ID, func(r *domain.OccupancyRecord) error {
		if !r.Open() {
			return domain.ConflictError{Entity: domain.EntityOccupancy, ID: r.ID, Reason: "already closed"}
		}
		r.ExitDate = &exit
		r.ExitReason = reason
		return nil
	})
	if err != nil {
		return domain.OccupancyRecord{}, err
	}
	if rel.Container == domain.EntityArea {
		if _, err := tx.UpdateArea(rec.ContainerID, func(a *domain.Area) error {
			if a.Status == domain.AreaOccupied {
				a.Status = domain.AreaAvailable
			}
			return nil
		}); err != nil {
			return domain.OccupancyRecord{}, err
		}
	}
	return closed, nil
}

// OpenOccupancy moves a subject into a container, closing its current record
// in the same transaction.
func (s *Service) OpenOccupancy(ctx context.Context, rel domain.OccupancyRelation, move OccupancyMove) (domain.OccupancyRecord, Result, error) {
	var rec domain.OccupancyRecord
	op := operation{name: "open_" + string(rel.Kind), entity: domain.EntityOccupancy, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		var err error
		rec, err = openOccupancy(tx, rel, move, ActorFrom(ctx), s.today())
		return rec.ID, err
	})
	return rec, res, err
}

// CloseOccupancy ends the subject's open record.
func (s *Service) CloseOccupancy(ctx context.Context, rel domain.OccupancyRelation, subjectID string, exit time.Time, reason string) (domain.OccupancyRecord, Result, error) {
	var rec domain.OccupancyRecord
	op := operation{name: "close_" + string(rel.Kind), entity: domain.EntityOccupancy, action: domain.ActionUpdate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		var err error
		rec, err = closeOccupancy(tx, rel, subjectID, exit, reason, s.today())
		return rec.ID, err
	})
	return rec, res, err
}

// MoveAnimalToGroup places an animal in a group.
func (s *Service) MoveAnimalToGroup(ctx context.Context, animalID, groupID string, date time.Time, reason string) (domain.OccupancyRecord, Result, error) {
	return s.OpenOccupancy(ctx, domain.RelationAnimalGroup, OccupancyMove{SubjectID: animalID, ContainerID: groupID, Date: date, Reason: reason})
}

// RemoveAnimalFromGroup ends an animal's group membership.
func (s *Service) RemoveAnimalFromGroup(ctx context.Context, animalID string, date time.Time, reason string) (domain.OccupancyRecord, Result, error) {
	return s.CloseOccupancy(ctx, domain.RelationAnimalGroup, animalID, date, reason)
}

// MoveGroupToArea places a group in an area.
func (s *Service) MoveGroupToArea(ctx context.Context, groupID, areaID string, date time.Time, reason string) (domain.OccupancyRecord, Result, error) {
	return s.OpenOccupancy(ctx, domain.RelationGroupArea, OccupancyMove{SubjectID: groupID, ContainerID: areaID, Date: date, Reason: reason})
}

// ReleaseArea takes a group out of its area.
func (s *Service) ReleaseArea(ctx context.Context, groupID string, date time.Time, reason string) (domain.OccupancyRecord, Result, error) {
	return s.CloseOccupancy(ctx, domain.RelationGroupArea, groupID, date, reason)
}

// CurrentContainer returns the container holding the subject, if any.
func (s *Service) CurrentContainer(ctx context.Context, rel domain.OccupancyRelation, subjectID string) (string, bool, error) {
	var (
		container string
		found     bool
	)
	err := s.read(ctx, "current_container", func(h *herd) error {
		if _, err := resolveParticipant(h.view, rel.Subject, subjectID); err != nil {
			return err
		}
		rec, ok := h.openRecord(rel, subjectID)
		container, found = rec.ContainerID, ok
		return nil
	})
	return container, found, err
}

// CurrentOccupants lists the subjects currently in a container.
func (s *Service) CurrentOccupants(ctx context.Context, rel domain.OccupancyRelation, containerID string) ([]string, error) {
	var out []string
	err := s.read(ctx, "current_occupants", func(h *herd) error {
		if _, err := resolveParticipant(h.view, rel.Container, containerID); err != nil {
			return err
		}
		for _, rec := range h.occupants(rel, containerID) {
			out = append(out, rec.SubjectID)
		}
		sort.Strings(out)
		return nil
	})
	return out, err
}

// DurationOfCurrentOccupancy returns days since the open record's entry, or 0.
func (s *Service) DurationOfCurrentOccupancy(ctx context.Context, rel domain.OccupancyRelation, subjectID string, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	var days int
	err := s.read(ctx, "current_occupancy_duration", func(h *herd) error {
		if _, err := resolveParticipant(h.view, rel.Subject, subjectID); err != nil {
			return err
		}
		if rec, ok := h.openRecord(rel, subjectID); ok {
			days = max(domain.DaysBetween(rec.EntryDate, asOf), 0)
		}
		return nil
	})
	return days, err
}

// TotalDuration returns (exit or asOf) minus entry for one record.
func (s *Service) TotalDuration(ctx context.Context, recordID string, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	var days int
	err := s.read(ctx, "occupancy_total_duration", func(h *herd) error {
		rec, ok := h.view.FindOccupancy(recordID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityOccupancy, ID: recordID}
		}
		end := asOf
		if rec.ExitDate != nil {
			end = *rec.ExitDate
		}
		days = max(domain.DaysBetween(rec.EntryDate, end), 0)
		return nil
	})
	return days, err
}

// OccupancyHistory returns every record for the subject ordered by entry date.
func (s *Service) OccupancyHistory(ctx context.Context, rel domain.OccupancyRelation, subjectID string) ([]domain.OccupancyRecord, error) {
	var out []domain.OccupancyRecord
	err := s.read(ctx, "occupancy_history", func(h *herd) error {
		for _, rec := range h.view.ListOccupancy() {
			if rec.Relation == rel.Kind && rec.SubjectID == subjectID {
				out = append(out, rec)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].EntryDate.Equal(out[j].EntryDate) {
				return out[i].EntryDate.Before(out[j].EntryDate)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}
