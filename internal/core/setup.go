package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"herdcore/pkg/domain"
)

// CreateProperty registers an active property.
func (s *Service) CreateProperty(ctx context.Context, property domain.Property) (domain.Property, Result, error) {
	var created domain.Property
	op := operation{name: "create_property", entity: domain.EntityProperty, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		property.Name = strings.TrimSpace(property.Name)
		if property.Name == "" {
			return "", domain.Invalid("name", "is required")
		}
		if property.TotalAreaHa < 0 {
			return "", domain.Invalid("total_area_ha", "must not be negative")
		}
		property.Active = true
		var err error
		created, err = tx.CreateProperty(property)
		return created.ID, err
	})
	return created, res, err
}

// GetProperty returns one property.
func (s *Service) GetProperty(ctx context.Context, propertyID string) (domain.Property, error) {
	var p domain.Property
	err := s.read(ctx, "get_property", func(h *herd) error {
		var err error
		p, err = h.property(propertyID)
		return err
	})
	return p, err
}

// ListProperties returns every property ordered by name.
func (s *Service) ListProperties(ctx context.Context) ([]domain.Property, error) {
	var out []domain.Property
	err := s.read(ctx, "list_properties", func(h *herd) error {
		out = h.view.ListProperties()
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

// CreateGroup registers an active group. Names are unique per property.
func (s *Service) CreateGroup(ctx context.Context, group domain.Group) (domain.Group, Result, error) {
	var created domain.Group
	op := operation{name: "create_group", entity: domain.EntityGroup, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		view := tx.Snapshot()
		if _, ok := view.FindProperty(group.PropertyID); !ok {
			return "", domain.NotFoundError{Entity: domain.EntityProperty, ID: group.PropertyID}
		}
		group.Name = strings.TrimSpace(group.Name)
		if group.Name == "" {
			return "", domain.Invalid("name", "is required")
		}
		for _, other := range view.ListGroups() {
			if other.PropertyID == group.PropertyID && other.Name == group.Name {
				return "", domain.ConflictError{Entity: domain.EntityGroup, ID: other.ID, Reason: fmt.Sprintf("name %q already used on property", group.Name)}
			}
		}
		group.Active = true
		var err error
		created, err = tx.CreateGroup(group)
		return created.ID, err
	})
	return created, res, err
}

// SetGroupActive toggles a group. Deactivating requires the group to be
// empty and outside any area.
func (s *Service) SetGroupActive(ctx context.Context, groupID string, active bool) (domain.Group, Result, error) {
	var updated domain.Group
	op := operation{name: "set_group_active", entity: domain.EntityGroup, action: domain.ActionUpdate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		view := tx.Snapshot()
		if _, ok := view.FindGroup(groupID); !ok {
			return groupID, domain.NotFoundError{Entity: domain.EntityGroup, ID: groupID}
		}
		if !active {
			if members := openInContainer(view, domain.RelationAnimalGroup, groupID); len(members) > 0 {
				return groupID, domain.ConflictError{Entity: domain.EntityGroup, ID: groupID, Reason: fmt.Sprintf("%d animals still in group", len(members))}
			}
			if _, inArea := findOpenRecord(view, domain.RelationGroupArea, groupID); inArea {
				return groupID, domain.ConflictError{Entity: domain.EntityGroup, ID: groupID, Reason: "group still occupies an area"}
			}
		}
		var err error
		updated, err = tx.UpdateGroup(groupID, func(g *domain.Group) error {
			g.Active = active
			return nil
		})
		return groupID, err
	})
	return updated, res, err
}

// ListGroups returns the groups of a property ordered by name.
func (s *Service) ListGroups(ctx context.Context, propertyID string) ([]domain.Group, error) {
	var out []domain.Group
	err := s.read(ctx, "list_groups", func(h *herd) error {
		if _, err := h.property(propertyID); err != nil {
			return err
		}
		for _, g := range h.view.ListGroups() {
			if g.PropertyID == propertyID {
				out = append(out, g)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

// CreateArea registers an area. Kind defaults to paddock and status to
// available; occupied is only ever set by the ledger.
func (s *Service) CreateArea(ctx context.Context, area domain.Area) (domain.Area, Result, error) {
	var created domain.Area
	op := operation{name: "create_area", entity: domain.EntityArea, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		if _, ok := tx.Snapshot().FindProperty(area.PropertyID); !ok {
			return "", domain.NotFoundError{Entity: domain.EntityProperty, ID: area.PropertyID}
		}
		area.Name = strings.TrimSpace(area.Name)
		if area.Name == "" {
			return "", domain.Invalid("name", "is required")
		}
		if area.SizeHa < 0 {
			return "", domain.Invalid("size_ha", "must not be negative")
		}
		if area.Kind == "" {
			area.Kind = domain.AreaPaddock
		}
		if !validAreaKind(area.Kind) {
			return "", domain.Invalid("kind", "unknown area kind %q", area.Kind)
		}
		switch area.Status {
		case "":
			area.Status = domain.AreaAvailable
		case domain.AreaOccupied:
			return "", domain.Invalid("status", "occupied is derived from occupancy")
		default:
			if !validAreaStatus(area.Status) {
				return "", domain.Invalid("status", "unknown area status %q", area.Status)
			}
		}
		var err error
		created, err = tx.CreateArea(area)
		return created.ID, err
	})
	return created, res, err
}

// SetAreaStatus marks an unoccupied area as available, resting, degraded or
// under renovation.
func (s *Service) SetAreaStatus(ctx context.Context, areaID string, status domain.AreaStatus) (domain.Area, Result, error) {
	var updated domain.Area
	op := operation{name: "set_area_status", entity: domain.EntityArea, action: domain.ActionUpdate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		if status == domain.AreaOccupied || !validAreaStatus(status) {
			return areaID, domain.Invalid("status", "cannot set area status to %q", status)
		}
		view := tx.Snapshot()
		if _, ok := view.FindArea(areaID); !ok {
			return areaID, domain.NotFoundError{Entity: domain.EntityArea, ID: areaID}
		}
		if hosted := openInContainer(view, domain.RelationGroupArea, areaID); len(hosted) > 0 {
			return areaID, domain.ConflictError{Entity: domain.EntityArea, ID: areaID, Reason: "area is occupied by group " + hosted[0].SubjectID}
		}
		var err error
		updated, err = tx.UpdateArea(areaID, func(a *domain.Area) error {
			a.Status = status
			return nil
		})
		return areaID, err
	})
	return updated, res, err
}

// ListAreas returns the areas of a property ordered by name.
func (s *Service) ListAreas(ctx context.Context, propertyID string) ([]domain.Area, error) {
	var out []domain.Area
	err := s.read(ctx, "list_areas", func(h *herd) error {
		if _, err := h.property(propertyID); err != nil {
			return err
		}
		for _, a := range h.view.ListAreas() {
			if a.PropertyID == propertyID {
				out = append(out, a)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func validAreaKind(k domain.AreaKind) bool {
	switch k {
	case domain.AreaPaddock, domain.AreaPen, domain.AreaCorral, domain.AreaSorting, domain.AreaInfirmary:
		return true
	}
	return false
}

func validAreaStatus(st domain.AreaStatus) bool {
	switch st {
	case domain.AreaAvailable, domain.AreaOccupied, domain.AreaResting, domain.AreaDegraded, domain.AreaUnderRenovation:
		return true
	}
	return false
}

// CreateBreedingSeason registers a season over groups of one property.
func (s *Service) CreateBreedingSeason(ctx context.Context, season domain.BreedingSeason) (domain.BreedingSeason, Result, error) {
	var created domain.BreedingSeason
	op := operation{name: "create_breeding_season", entity: domain.EntityBreedingSeason, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		view := tx.Snapshot()
		if _, ok := view.FindProperty(season.PropertyID); !ok {
			return "", domain.NotFoundError{Entity: domain.EntityProperty, ID: season.PropertyID}
		}
		season.Name = strings.TrimSpace(season.Name)
		if season.Name == "" {
			return "", domain.Invalid("name", "is required")
		}
		if season.Start.IsZero() || season.End.IsZero() {
			return "", domain.Invalid("start", "start and end dates are required")
		}
		season.Start, season.End = domain.Day(season.Start), domain.Day(season.End)
		if season.End.Before(season.Start) {
			return "", domain.Invalid("end", "precedes start")
		}
		seen := make(map[string]bool, len(season.GroupIDs))
		groups := make([]string, 0, len(season.GroupIDs))
		for _, id := range season.GroupIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			g, ok := view.FindGroup(id)
			if !ok {
				return "", domain.NotFoundError{Entity: domain.EntityGroup, ID: id}
			}
			if g.PropertyID != season.PropertyID {
				return "", domain.Invalid("group_ids", "group %s belongs to a different property", id)
			}
			groups = append(groups, id)
		}
		season.GroupIDs = groups
		season.Active = true
		var err error
		created, err = tx.CreateBreedingSeason(season)
		return created.ID, err
	})
	return created, res, err
}

// CloseBreedingSeason marks a season inactive.
func (s *Service) CloseBreedingSeason(ctx context.Context, seasonID string) (domain.BreedingSeason, Result, error) {
	var updated domain.BreedingSeason
	op := operation{name: "close_breeding_season", entity: domain.EntityBreedingSeason, action: domain.ActionUpdate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateBreedingSeason(seasonID, func(bs *domain.BreedingSeason) error {
			bs.Active = false
			return nil
		})
		return seasonID, err
	})
	return updated, res, err
}

// CreateProtocol registers a fixed-time insemination protocol.
func (s *Service) CreateProtocol(ctx context.Context, protocol domain.FixedTimeProtocol) (domain.FixedTimeProtocol, Result, error) {
	var created domain.FixedTimeProtocol
	op := operation{name: "create_protocol", entity: domain.EntityProtocol, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		if _, ok := tx.Snapshot().FindProperty(protocol.PropertyID); !ok {
			return "", domain.NotFoundError{Entity: domain.EntityProperty, ID: protocol.PropertyID}
		}
		protocol.Name = strings.TrimSpace(protocol.Name)
		if protocol.Name == "" {
			return "", domain.Invalid("name", "is required")
		}
		if protocol.DurationDays <= 0 {
			return "", domain.Invalid("duration_days", "must be positive")
		}
		protocol.Active = true
		var err error
		created, err = tx.CreateProtocol(protocol)
		return created.ID, err
	})
	return created, res, err
}

// seasonCovers reports whether day falls within the season's dates.
func seasonCovers(season domain.BreedingSeason, day time.Time) bool {
	return !day.Before(season.Start) && !day.After(season.End)
}
