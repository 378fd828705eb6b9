package core_test

import (
	"context"
	"testing"
	"time"

	"herdcore/internal/core"
	"herdcore/internal/reference"
	"herdcore/pkg/domain"
)

var today = domain.Date(2024, time.December, 31)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	svc      *core.Service
	property domain.Property
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithEngine(t, nil)
}

func newFixtureWithEngine(t *testing.T, engine *domain.RulesEngine, opts ...core.Option) *fixture {
	t.Helper()
	opts = append([]core.Option{core.WithClock(core.ClockFunc(func() time.Time { return today.Add(9 * time.Hour) }))}, opts...)
	svc := core.NewInMemoryService(reference.MustDefault(), engine, opts...)
	ctx := core.WithActor(context.Background(), "rancher")
	property, _, err := svc.CreateProperty(ctx, domain.Property{Name: "Santa Luzia", TotalAreaHa: 100})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return &fixture{t: t, ctx: ctx, svc: svc, property: property}
}

func (f *fixture) group(name string) domain.Group {
	f.t.Helper()
	g, _, err := f.svc.CreateGroup(f.ctx, domain.Group{PropertyID: f.property.ID, Name: name})
	if err != nil {
		f.t.Fatalf("create group %s: %v", name, err)
	}
	return g
}

func (f *fixture) area(name string, sizeHa float64) domain.Area {
	f.t.Helper()
	a, _, err := f.svc.CreateArea(f.ctx, domain.Area{PropertyID: f.property.ID, Name: name, SizeHa: sizeHa})
	if err != nil {
		f.t.Fatalf("create area %s: %v", name, err)
	}
	return a
}

func (f *fixture) cow(tag string) domain.Animal {
	f.t.Helper()
	return f.register(core.AnimalDraft{Tag: tag, Sex: domain.SexFemale, Category: "cow"})
}

func (f *fixture) bull(tag string) domain.Animal {
	f.t.Helper()
	return f.register(core.AnimalDraft{Tag: tag, Sex: domain.SexMale, Category: "bull"})
}

// register fills a bovine born 2020-01-01 on the fixture property.
func (f *fixture) register(draft core.AnimalDraft) domain.Animal {
	f.t.Helper()
	if draft.PropertyID == "" {
		draft.PropertyID = f.property.ID
	}
	if draft.Species == "" {
		draft.Species = domain.SpeciesBovine
	}
	if draft.BirthDate.IsZero() {
		draft.BirthDate = domain.Date(2020, time.January, 1)
	}
	a, _, err := f.svc.RegisterAnimal(f.ctx, draft)
	if err != nil {
		f.t.Fatalf("register %s: %v", draft.Tag, err)
	}
	return a
}

func (f *fixture) weigh(animalID string, date time.Time, kg float64) domain.Weighing {
	f.t.Helper()
	w, _, err := f.svc.RecordWeighing(f.ctx, animalID, date, kg, core.WeighingDetails{})
	if err != nil {
		f.t.Fatalf("weigh %s: %v", animalID, err)
	}
	return w
}

func (f *fixture) join(animalID, groupID string, date time.Time) {
	f.t.Helper()
	if _, _, err := f.svc.MoveAnimalToGroup(f.ctx, animalID, groupID, date, "management"); err != nil {
		f.t.Fatalf("move %s to %s: %v", animalID, groupID, err)
	}
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
