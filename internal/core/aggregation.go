package core

import (
	"context"
	"time"

	"herdcore/pkg/domain"
)

// Viewer is the read-only slice of a store the aggregator needs. Reporting
// callers get an Aggregator, never write access.
type Viewer interface {
	View(ctx context.Context, fn func(TransactionView) error) error
}

// Aggregator computes stocking and reproduction figures from committed
// history. Nothing is cached; every call recomputes.
type Aggregator struct {
	store   Viewer
	catalog *domain.SpeciesCatalog
	clock   Clock
}

// NewAggregator binds an aggregator to a store view and species catalog.
func NewAggregator(store Viewer, catalog *domain.SpeciesCatalog, clock Clock) *Aggregator {
	if clock == nil {
		clock = systemClock
	}
	return &Aggregator{store: store, catalog: catalog, clock: clock}
}

func (a *Aggregator) read(ctx context.Context, fn func(h *herd) error) error {
	return a.store.View(ctx, func(view TransactionView) error {
		return fn(newHerd(view, a.catalog))
	})
}

// GroupAnimalUnitTotal sums the animal units of the group's active members.
func (a *Aggregator) GroupAnimalUnitTotal(ctx context.Context, groupID string) (float64, error) {
	var total float64
	err := a.read(ctx, func(h *herd) error {
		if _, err := h.group(groupID); err != nil {
			return err
		}
		var err error
		total, err = h.groupAnimalUnits(groupID)
		return err
	})
	return total, err
}

// PropertyStockingRate divides the animal units of active groups by the
// property's total hectares. A property without area reports 0.
func (a *Aggregator) PropertyStockingRate(ctx context.Context, propertyID string) (float64, error) {
	var rate float64
	err := a.read(ctx, func(h *herd) error {
		p, err := h.property(propertyID)
		if err != nil {
			return err
		}
		units, err := propertyAnimalUnits(h, propertyID)
		if err != nil {
			return err
		}
		rate = ratio(units, p.TotalAreaHa)
		return nil
	})
	return rate, err
}

func propertyAnimalUnits(h *herd, propertyID string) (float64, error) {
	var total float64
	for _, g := range h.view.ListGroups() {
		if g.PropertyID != propertyID || !g.Active {
			continue
		}
		units, err := h.groupAnimalUnits(g.ID)
		if err != nil {
			return 0, err
		}
		total += units
	}
	return total, nil
}

// AreaStockingRate divides the occupying group's animal units by the area's
// hectares, or 0 when nothing occupies it.
func (a *Aggregator) AreaStockingRate(ctx context.Context, areaID string) (float64, error) {
	var rate float64
	err := a.read(ctx, func(h *herd) error {
		area, err := h.area(areaID)
		if err != nil {
			return err
		}
		var units float64
		for _, rec := range h.occupants(domain.RelationGroupArea, areaID) {
			u, err := h.groupAnimalUnits(rec.SubjectID)
			if err != nil {
				return err
			}
			units += u
		}
		rate = ratio(units, area.SizeHa)
		return nil
	})
	return rate, err
}

// SeasonReport summarises one breeding season.
type SeasonReport struct {
	SeasonID      string
	Name          string
	Start         time.Time
	End           time.Time
	Females       int
	Inseminations int
	Diagnosed     int
	Positive      int
	Negative      int
	Inconclusive  int
	PregnancyRate float64
	Births        int
	LiveBirths    int
	Offspring     int
	BirthRate     float64
}

// PregnancyRate is positive diagnoses on the season's inseminations over the
// active females currently in its groups, as a percentage. No females yields 0.
func (a *Aggregator) PregnancyRate(ctx context.Context, seasonID string) (float64, error) {
	report, err := a.SeasonReport(ctx, seasonID)
	return report.PregnancyRate, err
}

// BirthRate is live births from the season's attempts over its positive
// diagnoses, as a percentage.
func (a *Aggregator) BirthRate(ctx context.Context, seasonID string) (float64, error) {
	report, err := a.SeasonReport(ctx, seasonID)
	return report.BirthRate, err
}

// SeasonReport counts the season's females, inseminations, diagnoses and
// births.
func (a *Aggregator) SeasonReport(ctx context.Context, seasonID string) (SeasonReport, error) {
	var report SeasonReport
	err := a.read(ctx, func(h *herd) error {
		season, err := h.season(seasonID)
		if err != nil {
			return err
		}
		report = seasonReport(h, season)
		return nil
	})
	return report, err
}

func seasonReport(h *herd, season domain.BreedingSeason) SeasonReport {
	report := SeasonReport{SeasonID: season.ID, Name: season.Name, Start: season.Start, End: season.End}
	females := make(map[string]bool)
	for _, groupID := range season.GroupIDs {
		for _, animal := range h.members(groupID) {
			if animal.Sex == domain.SexFemale {
				females[animal.ID] = true
			}
		}
	}
	report.Females = len(females)

	for _, ins := range h.view.ListInseminations() {
		if ins.SeasonID == nil || *ins.SeasonID != season.ID {
			continue
		}
		report.Inseminations++
		att, ok := h.attemptFor(ins.ID)
		if !ok {
			continue
		}
		if d, ok := h.view.FindDiagnosis(att.DiagnosisID); ok {
			report.Diagnosed++
			switch d.Result {
			case domain.DiagnosisPositive:
				report.Positive++
			case domain.DiagnosisNegative:
				report.Negative++
			default:
				report.Inconclusive++
			}
		}
		if b, ok := h.view.FindBirth(att.BirthID); ok {
			report.Births++
			if b.Outcome == domain.BirthLive {
				report.LiveBirths++
				report.Offspring += b.OffspringCount
			}
		}
	}
	report.PregnancyRate = percentage(report.Positive, report.Females)
	report.BirthRate = percentage(report.LiveBirths, report.Positive)
	return report
}

// GroupStatistics describes a group's current composition.
type GroupStatistics struct {
	GroupID             string
	Name                string
	AreaID              string
	Head                int
	AnimalUnits         float64
	AverageWeightKg     float64
	HasAverageWeight    bool
	AverageDailyGain    float64
	HasAverageDailyGain bool
	ByCategory          map[string]int
	BySex               map[domain.Sex]int
}

// GroupStatistics reports head count, animal units, mean weight and mean
// daily gain (window ending asOf) for a group.
func (a *Aggregator) GroupStatistics(ctx context.Context, groupID string, asOf time.Time) (GroupStatistics, error) {
	if asOf.IsZero() {
		asOf = domain.Day(a.clock.Now())
	}
	var stats GroupStatistics
	err := a.read(ctx, func(h *herd) error {
		g, err := h.group(groupID)
		if err != nil {
			return err
		}
		stats = GroupStatistics{
			GroupID:    g.ID,
			Name:       g.Name,
			ByCategory: make(map[string]int),
			BySex:      make(map[domain.Sex]int),
		}
		if rec, ok := h.openRecord(domain.RelationGroupArea, g.ID); ok {
			stats.AreaID = rec.ContainerID
		}
		members := h.members(g.ID)
		stats.Head = len(members)
		for _, animal := range members {
			stats.ByCategory[animal.Category]++
			stats.BySex[animal.Sex]++
		}
		if stats.AnimalUnits, err = h.groupAnimalUnits(g.ID); err != nil {
			return err
		}
		stats.AverageWeightKg, stats.HasAverageWeight = groupWeight(h, g.ID)
		stats.AverageDailyGain, stats.HasAverageDailyGain = groupGain(h, g.ID, DefaultGainWindowDays, asOf)
		return nil
	})
	return stats, err
}

// PropertyDashboard is the property-level overview.
type PropertyDashboard struct {
	PropertyID     string
	Name           string
	TotalAreaHa    float64
	Animals        int
	Groups         int
	Areas          int
	AreaHa         float64
	OccupiedAreaHa float64
	AnimalUnits    float64
	StockingRate   float64
	Pregnant       int
	BySpecies      map[domain.SpeciesKind]int
	ByCategory     map[string]int
	BySex          map[domain.Sex]int
}

// PropertyDashboard counts active animals, groups and areas and computes the
// property's stocking rate.
func (a *Aggregator) PropertyDashboard(ctx context.Context, propertyID string) (PropertyDashboard, error) {
	var dash PropertyDashboard
	err := a.read(ctx, func(h *herd) error {
		p, err := h.property(propertyID)
		if err != nil {
			return err
		}
		dash = PropertyDashboard{
			PropertyID:  p.ID,
			Name:        p.Name,
			TotalAreaHa: p.TotalAreaHa,
			BySpecies:   make(map[domain.SpeciesKind]int),
			ByCategory:  make(map[string]int),
			BySex:       make(map[domain.Sex]int),
		}
		for _, animal := range h.view.ListAnimals() {
			if animal.PropertyID != p.ID || animal.Status != domain.StatusActive {
				continue
			}
			dash.Animals++
			dash.BySpecies[animal.Species]++
			dash.ByCategory[animal.Category]++
			dash.BySex[animal.Sex]++
			if breedingStateOf(h, animal.ID).Kind == domain.BreedingConfirmed {
				dash.Pregnant++
			}
		}
		for _, g := range h.view.ListGroups() {
			if g.PropertyID == p.ID && g.Active {
				dash.Groups++
			}
		}
		for _, area := range h.view.ListAreas() {
			if area.PropertyID != p.ID {
				continue
			}
			dash.Areas++
			dash.AreaHa += area.SizeHa
			if len(h.occupants(domain.RelationGroupArea, area.ID)) > 0 {
				dash.OccupiedAreaHa += area.SizeHa
			}
		}
		if dash.AnimalUnits, err = propertyAnimalUnits(h, p.ID); err != nil {
			return err
		}
		dash.StockingRate = ratio(dash.AnimalUnits, p.TotalAreaHa)
		return nil
	})
	return dash, err
}

// ReproductionStats summarises breeding events on a property in a date range.
type ReproductionStats struct {
	From           time.Time
	To             time.Time
	Inseminations  int
	ByMethod       map[domain.InseminationMethod]int
	Diagnoses      int
	Positive       int
	Negative       int
	Inconclusive   int
	ConceptionRate float64
	Births         int
	LiveBirths     int
	Abortions      int
	Stillbirths    int
	Offspring      int
}

// ReproductionStats counts inseminations, diagnoses and births dated within
// [from, to] for females of the property. ConceptionRate is positive over
// diagnosed, as a percentage.
func (a *Aggregator) ReproductionStats(ctx context.Context, propertyID string, from, to time.Time) (ReproductionStats, error) {
	from, to = domain.Day(from), domain.Day(to)
	if to.Before(from) {
		return ReproductionStats{}, domain.Invalid("to", "precedes from")
	}
	within := func(d time.Time) bool { return !d.Before(from) && !d.After(to) }
	stats := ReproductionStats{From: from, To: to, ByMethod: make(map[domain.InseminationMethod]int)}
	err := a.read(ctx, func(h *herd) error {
		if _, err := h.property(propertyID); err != nil {
			return err
		}
		onProperty := func(animalID string) bool {
			animal, ok := h.view.FindAnimal(animalID)
			return ok && animal.PropertyID == propertyID
		}
		for _, ins := range h.view.ListInseminations() {
			if !within(ins.Date) || !onProperty(ins.AnimalID) {
				continue
			}
			stats.Inseminations++
			stats.ByMethod[ins.Method]++
		}
		for _, d := range h.view.ListDiagnoses() {
			ins, ok := h.view.FindInsemination(d.InseminationID)
			if !ok || !within(d.Date) || !onProperty(ins.AnimalID) {
				continue
			}
			stats.Diagnoses++
			switch d.Result {
			case domain.DiagnosisPositive:
				stats.Positive++
			case domain.DiagnosisNegative:
				stats.Negative++
			default:
				stats.Inconclusive++
			}
		}
		for _, b := range h.view.ListBirths() {
			if !within(b.Date) || !onProperty(b.MotherID) {
				continue
			}
			stats.Births++
			switch b.Outcome {
			case domain.BirthLive:
				stats.LiveBirths++
				stats.Offspring += b.OffspringCount
			case domain.BirthAbortion:
				stats.Abortions++
			case domain.BirthStillborn:
				stats.Stillbirths++
			}
		}
		stats.ConceptionRate = percentage(stats.Positive, stats.Diagnoses)
		return nil
	})
	return stats, err
}

// SeasonReport delegates to the aggregator.
func (s *Service) SeasonReport(ctx context.Context, seasonID string) (SeasonReport, error) {
	return s.agg.SeasonReport(ctx, seasonID)
}

// ReproductionStats delegates to the aggregator.
func (s *Service) ReproductionStats(ctx context.Context, propertyID string, from, to time.Time) (ReproductionStats, error) {
	return s.agg.ReproductionStats(ctx, propertyID, from, to)
}
