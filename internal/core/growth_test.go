package core_test

import (
	"errors"
	"testing"
	"time"

	"herdcore/internal/core"
	"herdcore/pkg/domain"
)

func TestAverageDailyGainWindow(t *testing.T) {
	f := newFixture(t)
	steer := f.register(core.AnimalDraft{Tag: "BR-050", Sex: domain.SexMale, Category: "young_bull"})
	f.weigh(steer.ID, domain.Date(2024, time.June, 1), 100)
	f.weigh(steer.ID, domain.Date(2024, time.July, 1), 130)

	gain, ok, err := f.svc.AverageDailyGain(f.ctx, steer.ID, 30, domain.Date(2024, time.July, 1))
	if err != nil || !ok || !approx(gain, 1.0) {
		t.Fatalf("expected 1.0 kg/day, got %v ok=%v err=%v", gain, ok, err)
	}
	if _, ok, _ = f.svc.AverageDailyGain(f.ctx, steer.ID, 30, domain.Date(2024, time.July, 15)); ok {
		t.Fatalf("expected none with a single observation in range")
	}
	if _, ok, _ = f.svc.AverageDailyGain(f.ctx, steer.ID, 0, domain.Date(2024, time.May, 1)); ok {
		t.Fatalf("expected none with no observations in range")
	}
}

func TestAverageDailyGainUsesWindowEndpoints(t *testing.T) {
	f := newFixture(t)
	steer := f.register(core.AnimalDraft{Tag: "BR-051", Sex: domain.SexMale, Category: "young_bull"})
	f.weigh(steer.ID, domain.Date(2024, time.May, 1), 80)
	f.weigh(steer.ID, domain.Date(2024, time.July, 1), 130)
	f.weigh(steer.ID, domain.Date(2024, time.June, 11), 120)

	gain, ok, err := f.svc.AverageDailyGain(f.ctx, steer.ID, 30, domain.Date(2024, time.July, 1))
	if err != nil || !ok || !approx(gain, 0.5) {
		t.Fatalf("expected 0.5 kg/day inside the window, got %v ok=%v err=%v", gain, ok, err)
	}
}

func TestGroupAverageDailyGainSkipsAnimalsWithoutValue(t *testing.T) {
	f := newFixture(t)
	herd := f.group("Feedlot")
	a := f.register(core.AnimalDraft{Tag: "A", Sex: domain.SexMale, Category: "young_bull", GroupID: herd.ID})
	b := f.register(core.AnimalDraft{Tag: "B", Sex: domain.SexMale, Category: "young_bull", GroupID: herd.ID})
	c := f.register(core.AnimalDraft{Tag: "C", Sex: domain.SexMale, Category: "young_bull", GroupID: herd.ID})
	asOf := domain.Date(2024, time.July, 1)

	f.weigh(a.ID, domain.Date(2024, time.June, 1), 300)
	f.weigh(a.ID, asOf, 330)
	f.weigh(b.ID, asOf, 280)
	f.weigh(c.ID, domain.Date(2024, time.June, 11), 250)
	f.weigh(c.ID, asOf, 260)

	gain, ok, err := f.svc.GroupAverageDailyGain(f.ctx, herd.ID, 30, asOf)
	if err != nil || !ok || !approx(gain, 0.75) {
		t.Fatalf("expected mean 0.75, got %v ok=%v err=%v", gain, ok, err)
	}
	avg, ok, _ := f.svc.GroupAverageWeight(f.ctx, herd.ID)
	if !ok || !approx(avg, (330.0+280+260)/3) {
		t.Fatalf("unexpected average weight %v ok=%v", avg, ok)
	}

	empty := f.group("Empty")
	if _, ok, err := f.svc.GroupAverageDailyGain(f.ctx, empty.ID, 30, asOf); err != nil || ok {
		t.Fatalf("expected none for empty group, got ok=%v err=%v", ok, err)
	}
}

func TestGainSincePrevious(t *testing.T) {
	f := newFixture(t)
	steer := f.register(core.AnimalDraft{Tag: "BR-052", Sex: domain.SexMale, Category: "young_bull"})
	first := f.weigh(steer.ID, domain.Date(2024, time.June, 1), 100)
	second := f.weigh(steer.ID, domain.Date(2024, time.June, 11), 120)

	gain, ok, err := f.svc.GainSincePrevious(f.ctx, second.ID)
	if err != nil || !ok || !approx(gain, 2.0) {
		t.Fatalf("expected 2 kg/day, got %v ok=%v err=%v", gain, ok, err)
	}
	if _, ok, _ := f.svc.GainSincePrevious(f.ctx, first.ID); ok {
		t.Fatalf("first weighing has no previous")
	}
	history, _ := f.svc.WeighingHistory(f.ctx, steer.ID)
	if len(history) != 2 || history[0].ID != first.ID {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestRecordWeighingValidation(t *testing.T) {
	f := newFixture(t)
	cow := f.cow("BR-001")
	cases := []struct {
		name string
		id   string
		date time.Time
		kg   float64
		want error
	}{
		{"zero weight", cow.ID, domain.Date(2024, time.June, 1), 0, domain.ErrValidation},
		{"future date", cow.ID, domain.Date(2025, time.June, 1), 400, domain.ErrValidation},
		{"before birth", cow.ID, domain.Date(2019, time.June, 1), 400, domain.ErrValidation},
		{"unknown animal", "ghost", domain.Date(2024, time.June, 1), 400, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := f.svc.RecordWeighing(f.ctx, tc.id, tc.date, tc.kg, core.WeighingDetails{}); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
