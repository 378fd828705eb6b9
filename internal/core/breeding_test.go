package core_test

import (
	"errors"
	"testing"
	"time"

	"herdcore/internal/core"
	"herdcore/pkg/domain"
)

func (f *fixture) inseminate(animalID string, date time.Time, sireID, seasonID string) domain.Insemination {
	f.t.Helper()
	ins, _, err := f.svc.RecordInsemination(f.ctx, core.InseminationDraft{
		AnimalID: animalID,
		Date:     date,
		Method:   domain.MethodArtificial,
		SireID:   sireID,
		SeasonID: seasonID,
	})
	if err != nil {
		f.t.Fatalf("inseminate %s: %v", animalID, err)
	}
	return ins
}

func (f *fixture) diagnose(inseminationID string, date time.Time, result domain.DiagnosisResult) domain.GestationDiagnosis {
	f.t.Helper()
	d, _, err := f.svc.RecordDiagnosis(f.ctx, inseminationID, date, result, "ultrasound")
	if err != nil {
		f.t.Fatalf("diagnose %s: %v", inseminationID, err)
	}
	return d
}

func TestBreedingCycleFromInseminationToBirth(t *testing.T) {
	f := newFixture(t)
	herd := f.group("Breeding herd")
	sire := f.bull("BR-900")
	cow := f.register(core.AnimalDraft{Tag: "BR-001", Sex: domain.SexFemale, Category: "cow", BreedID: "nelore", GroupID: herd.ID})

	ins := f.inseminate(cow.ID, domain.Date(2024, time.January, 1), sire.ID, "")
	due, err := f.svc.PredictedDiagnosisDate(f.ctx, ins.ID)
	if err != nil || !due.Equal(domain.Date(2024, time.February, 5)) {
		t.Fatalf("expected diagnosis due 2024-02-05, got %s err=%v", due, err)
	}
	state, _ := f.svc.BreedingState(f.ctx, cow.ID)
	if state.Kind != domain.BreedingOpen || state.InseminationID != ins.ID {
		t.Fatalf("expected open state, got %+v", state)
	}

	diag := f.diagnose(ins.ID, due, domain.DiagnosisPositive)
	pregnant, err := f.svc.IsPregnant(f.ctx, cow.ID)
	if err != nil || !pregnant {
		t.Fatalf("expected pregnant, got %v err=%v", pregnant, err)
	}
	birthDue, ok, err := f.svc.PredictedBirthDate(f.ctx, diag.ID)
	if err != nil || !ok || !birthDue.Equal(domain.Date(2024, time.October, 12)) {
		t.Fatalf("expected birth due 2024-10-12, got %s ok=%v err=%v", birthDue, ok, err)
	}
	pending, err := f.svc.PendingBirths(f.ctx, f.property.ID, domain.Date(2024, time.October, 1), 0)
	if err != nil || len(pending) != 1 || pending[0].AnimalID != cow.ID {
		t.Fatalf("expected one pending birth, got %+v err=%v", pending, err)
	}

	birth, _, err := f.svc.RecordBirth(f.ctx, core.BirthDraft{
		MotherID:      cow.ID,
		Date:          birthDue,
		Outcome:       domain.BirthLive,
		Offspring:     []core.OffspringDraft{{Tag: "BR-001-C1", Sex: domain.SexFemale, Category: "heifer_calf"}},
		BirthWeightKg: 32,
	})
	if err != nil {
		t.Fatalf("record birth: %v", err)
	}
	if birth.OffspringCount != 1 || len(birth.OffspringIDs) != 1 || birth.Difficulty != domain.DifficultyNormal {
		t.Fatalf("unexpected birth %+v", birth)
	}
	calf, err := f.svc.GetAnimal(f.ctx, birth.OffspringIDs[0])
	if err != nil {
		t.Fatalf("get calf: %v", err)
	}
	if !calf.BirthDate.Equal(birth.Date) || calf.Species != cow.Species {
		t.Fatalf("calf must share birth date and species, got %+v", calf)
	}
	if *calf.MotherID != cow.ID || *calf.FatherID != sire.ID || calf.BreedID != "nelore" {
		t.Fatalf("unexpected calf lineage %+v", calf)
	}
	if group, ok, _ := f.svc.CurrentGroup(f.ctx, calf.ID); !ok || group != herd.ID {
		t.Fatalf("expected calf in mother's group, got %q", group)
	}

	state, _ = f.svc.BreedingState(f.ctx, cow.ID)
	if state.Kind != domain.BreedingClosed || state.BirthID != birth.ID || state.CloseReason != domain.CloseBirth {
		t.Fatalf("expected closed by birth, got %+v", state)
	}
	if pregnant, _ = f.svc.IsPregnant(f.ctx, cow.ID); pregnant {
		t.Fatalf("expected not pregnant after birth")
	}
}

func TestInseminationKeepsCallerCalendarDay(t *testing.T) {
	f := newFixture(t)
	sire := f.bull("BR-900")
	cow := f.cow("BR-001")
	eat := time.FixedZone("EAT", 3*60*60)

	ins := f.inseminate(cow.ID, time.Date(2024, time.January, 1, 0, 0, 0, 0, eat), sire.ID, "")
	if !ins.Date.Equal(domain.Date(2024, time.January, 1)) {
		t.Fatalf("expected insemination on 2024-01-01, got %s", ins.Date.Format(time.DateOnly))
	}
	diag := f.diagnose(ins.ID, time.Date(2024, time.February, 5, 0, 0, 0, 0, eat), domain.DiagnosisPositive)
	if !diag.Date.Equal(domain.Date(2024, time.February, 5)) {
		t.Fatalf("expected diagnosis on 2024-02-05, got %s", diag.Date.Format(time.DateOnly))
	}
	due, ok, err := f.svc.PredictedBirthDate(f.ctx, diag.ID)
	if err != nil || !ok || !due.Equal(domain.Date(2024, time.October, 12)) {
		t.Fatalf("expected birth due 2024-10-12, got %s ok=%v err=%v", due.Format(time.DateOnly), ok, err)
	}
}

func TestInseminationRequiresFemale(t *testing.T) {
	f := newFixture(t)
	bull := f.bull("BR-900")
	_, _, err := f.svc.RecordInsemination(f.ctx, core.InseminationDraft{AnimalID: bull.ID, Date: domain.Date(2024, time.January, 1), Method: domain.MethodNatural})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInseminationValidation(t *testing.T) {
	f := newFixture(t)
	cow := f.cow("BR-001")
	other := f.cow("BR-002")
	ram := f.register(core.AnimalDraft{Tag: "OV-9", Species: domain.SpeciesOvine, Sex: domain.SexMale, Category: "ram"})
	season, _, err := f.svc.CreateBreedingSeason(f.ctx, domain.BreedingSeason{PropertyID: f.property.ID, Name: "2024", Start: domain.Date(2024, time.January, 1), End: domain.Date(2024, time.March, 31)})
	if err != nil {
		t.Fatalf("create season: %v", err)
	}
	cases := []struct {
		name  string
		draft core.InseminationDraft
		want  error
	}{
		{"unknown method", core.InseminationDraft{AnimalID: cow.ID, Method: "cloning"}, domain.ErrValidation},
		{"sire of other species", core.InseminationDraft{AnimalID: cow.ID, Method: domain.MethodNatural, SireID: ram.ID}, domain.ErrValidation},
		{"female sire", core.InseminationDraft{AnimalID: cow.ID, Method: domain.MethodNatural, SireID: other.ID}, domain.ErrValidation},
		{"outside season", core.InseminationDraft{AnimalID: cow.ID, Method: domain.MethodArtificial, SeasonID: season.ID, Date: domain.Date(2024, time.May, 1)}, domain.ErrValidation},
		{"unknown season", core.InseminationDraft{AnimalID: cow.ID, Method: domain.MethodArtificial, SeasonID: "nope"}, domain.ErrNotFound},
		{"protocol without fixed time", core.InseminationDraft{AnimalID: cow.ID, Method: domain.MethodArtificial, ProtocolID: "p"}, domain.ErrValidation},
		{"future date", core.InseminationDraft{AnimalID: cow.ID, Method: domain.MethodArtificial, Date: domain.Date(2025, time.March, 1)}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := f.svc.RecordInsemination(f.ctx, tc.draft); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	protocol, _, err := f.svc.CreateProtocol(f.ctx, domain.FixedTimeProtocol{PropertyID: f.property.ID, Name: "D0-D9-D11", DurationDays: 11})
	if err != nil {
		t.Fatalf("create protocol: %v", err)
	}
	if _, _, err := f.svc.RecordInsemination(f.ctx, core.InseminationDraft{AnimalID: cow.ID, Method: domain.MethodFixedTimeArtificial, ProtocolID: protocol.ID, SeasonID: season.ID, Date: domain.Date(2024, time.February, 1)}); err != nil {
		t.Fatalf("fixed-time insemination: %v", err)
	}
}

func TestReinseminationSupersedesUndiagnosedAttempt(t *testing.T) {
	f := newFixture(t)
	cow := f.cow("BR-001")
	first := f.inseminate(cow.ID, domain.Date(2024, time.January, 1), "", "")
	second := f.inseminate(cow.ID, domain.Date(2024, time.January, 22), "", "")

	state, _ := f.svc.BreedingState(f.ctx, cow.ID)
	if state.Kind != domain.BreedingOpen || state.InseminationID != second.ID {
		t.Fatalf("expected open attempt for second insemination, got %+v", state)
	}
	if _, _, err := f.svc.RecordDiagnosis(f.ctx, first.ID, domain.Date(2024, time.February, 10), domain.DiagnosisPositive, ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict diagnosing a superseded attempt, got %v", err)
	}
	if _, _, err := f.svc.RecordInsemination(f.ctx, core.InseminationDraft{AnimalID: cow.ID, Date: domain.Date(2024, time.January, 10), Method: domain.MethodNatural}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for an insemination older than the open one, got %v", err)
	}
}

func TestConfirmedPregnancyBlocksInsemination(t *testing.T) {
	f := newFixture(t)
	cow := f.cow("BR-001")
	ins := f.inseminate(cow.ID, domain.Date(2024, time.January, 1), "", "")
	f.diagnose(ins.ID, domain.Date(2024, time.February, 5), domain.DiagnosisPositive)

	_, _, err := f.svc.RecordInsemination(f.ctx, core.InseminationDraft{AnimalID: cow.ID, Date: domain.Date(2024, time.March, 1), Method: domain.MethodNatural})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, _, err := f.svc.RecordDiagnosis(f.ctx, ins.ID, domain.Date(2024, time.March, 5), domain.DiagnosisPositive, ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on second diagnosis, got %v", err)
	}
}

func TestNegativeDiagnosisClosesAttempt(t *testing.T) {
	f := newFixture(t)
	cow := f.cow("BR-001")
	ins := f.inseminate(cow.ID, domain.Date(2024, time.January, 1), "", "")
	if _, _, err := f.svc.RecordDiagnosis(f.ctx, ins.ID, domain.Date(2023, time.December, 1), domain.DiagnosisNegative, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for diagnosis before insemination, got %v", err)
	}
	diag := f.diagnose(ins.ID, domain.Date(2024, time.February, 5), domain.DiagnosisNegative)

	state, _ := f.svc.BreedingState(f.ctx, cow.ID)
	if state.Kind != domain.BreedingClosed || state.CloseReason != domain.CloseNegative || state.DiagnosisID != diag.ID {
		t.Fatalf("expected closed by negative result, got %+v", state)
	}
	if _, ok, err := f.svc.PredictedBirthDate(f.ctx, diag.ID); err != nil || ok {
		t.Fatalf("negative diagnosis has no predicted birth, ok=%v err=%v", ok, err)
	}
	f.inseminate(cow.ID, domain.Date(2024, time.February, 20), "", "")
}

func TestRecordBirthOffspringRules(t *testing.T) {
	f := newFixture(t)
	cow := f.cow("BR-001")
	day := domain.Date(2024, time.October, 12)

	if _, _, err := f.svc.RecordBirth(f.ctx, core.BirthDraft{
		MotherID:  cow.ID,
		Date:      day,
		Outcome:   domain.BirthAbortion,
		Offspring: []core.OffspringDraft{{Tag: "X", Sex: domain.SexMale, Category: "bull_calf"}},
	}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for offspring of an abortion, got %v", err)
	}

	wrongDay := f.register(core.AnimalDraft{Tag: "C-1", Sex: domain.SexMale, Category: "bull_calf", BirthDate: domain.Date(2024, time.October, 11)})
	if _, _, err := f.svc.RecordBirth(f.ctx, core.BirthDraft{MotherID: cow.ID, Date: day, Outcome: domain.BirthLive, OffspringIDs: []string{wrongDay.ID}}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for mismatched birth date, got %v", err)
	}

	kid := f.register(core.AnimalDraft{Tag: "GT-1", Species: domain.SpeciesCaprine, Sex: domain.SexMale, Category: "buckling", BirthDate: day})
	if _, _, err := f.svc.RecordBirth(f.ctx, core.BirthDraft{MotherID: cow.ID, Date: day, Outcome: domain.BirthLive, OffspringIDs: []string{kid.ID}}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for mismatched species, got %v", err)
	}

	calf := f.register(core.AnimalDraft{Tag: "C-2", Sex: domain.SexFemale, Category: "heifer_calf", BirthDate: day, MotherID: cow.ID})
	birth, _, err := f.svc.RecordBirth(f.ctx, core.BirthDraft{MotherID: cow.ID, Date: day, Outcome: domain.BirthLive, OffspringIDs: []string{calf.ID}})
	if err != nil {
		t.Fatalf("record birth: %v", err)
	}
	if birth.OffspringCount != 1 {
		t.Fatalf("expected offspring count 1, got %d", birth.OffspringCount)
	}

	twin := f.cow("BR-002")
	if _, _, err := f.svc.RecordBirth(f.ctx, core.BirthDraft{MotherID: twin.ID, Date: day, Outcome: domain.BirthLive, OffspringIDs: []string{calf.ID}}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for reused offspring, got %v", err)
	}
}

func TestPendingDiagnoses(t *testing.T) {
	f := newFixture(t)
	cow := f.cow("BR-001")
	ins := f.inseminate(cow.ID, domain.Date(2024, time.November, 1), "", "")

	pending, err := f.svc.PendingDiagnoses(f.ctx, f.property.ID, domain.Date(2024, time.December, 1))
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected nothing due yet, got %+v err=%v", pending, err)
	}
	pending, _ = f.svc.PendingDiagnoses(f.ctx, f.property.ID, domain.Date(2024, time.December, 10))
	if len(pending) != 1 || pending[0].InseminationID != ins.ID || !pending[0].DueOn.Equal(domain.Date(2024, time.December, 6)) {
		t.Fatalf("expected diagnosis due 2024-12-06, got %+v", pending)
	}
}
