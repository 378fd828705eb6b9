package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"herdcore/internal/config"
	"herdcore/internal/core"
	"herdcore/internal/reference"
	"herdcore/pkg/domain"
)

type seeded struct {
	dbPath     string
	propertyID string
	seasonID   string
}

// seedStore writes a small herd into a fresh sqlite file.
func seedStore(t *testing.T) seeded {
	t.Helper()
	ctx := core.WithActor(context.Background(), "seed")
	path := filepath.Join(t.TempDir(), "herd.db")
	store, err := core.OpenPersistentStore(ctx, config.Storage{Driver: config.StorageSQLite, SQLitePath: path}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.(io.Closer).Close() }()
	svc := core.NewService(store, reference.MustDefault())

	property, _, err := svc.CreateProperty(ctx, domain.Property{Name: "Santa Luzia", TotalAreaHa: 120})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	group, _, err := svc.CreateGroup(ctx, domain.Group{PropertyID: property.ID, Name: "Matrizes"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	season, _, err := svc.CreateBreedingSeason(ctx, domain.BreedingSeason{
		PropertyID: property.ID,
		Name:       "2024",
		Start:      domain.Date(2024, time.January, 1),
		End:        domain.Date(2024, time.March, 31),
		GroupIDs:   []string{group.ID},
	})
	if err != nil {
		t.Fatalf("create season: %v", err)
	}
	for _, tag := range []string{"BR-001", "BR-002"} {
		cow, _, err := svc.RegisterAnimal(ctx, core.AnimalDraft{
			PropertyID: property.ID,
			Species:    domain.SpeciesBovine,
			Tag:        tag,
			Sex:        domain.SexFemale,
			Category:   "cow",
			BirthDate:  domain.Date(2020, time.January, 1),
			GroupID:    group.ID,
		})
		if err != nil {
			t.Fatalf("register %s: %v", tag, err)
		}
		if tag != "BR-001" {
			continue
		}
		if _, _, err := svc.RecordInsemination(ctx, core.InseminationDraft{
			AnimalID: cow.ID,
			Date:     domain.Date(2024, time.January, 10),
			Method:   domain.MethodArtificial,
			SeasonID: season.ID,
		}); err != nil {
			t.Fatalf("inseminate %s: %v", tag, err)
		}
	}
	return seeded{dbPath: path, propertyID: property.ID, seasonID: season.ID}
}

func useStore(t *testing.T, dbPath, archiveRoot string) {
	t.Helper()
	t.Setenv("HERDCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("HERDCORE_SQLITE_PATH", dbPath)
	t.Setenv("HERDCORE_BLOB_DRIVER", "fs")
	t.Setenv("HERDCORE_BLOB_FS_ROOT", archiveRoot)
	t.Setenv("HERDCORE_LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(append([]string{"--env-file", ""}, args...), &out)
	return out.String(), err
}

func TestSpeciesCommand(t *testing.T) {
	useStore(t, filepath.Join(t.TempDir(), "unused.db"), t.TempDir())
	out, err := run(t, "species", "--breeds")
	if err != nil {
		t.Fatalf("species: %v", err)
	}
	for _, want := range []string{"bovine", "285 d", "+35 d", "nelore"} {
		if !strings.Contains(out, want) {
			t.Fatalf("species output missing %q:\n%s", want, out)
		}
	}
}

func TestReportCommands(t *testing.T) {
	s := seedStore(t)
	useStore(t, s.dbPath, t.TempDir())

	out, err := run(t, "report", "property", s.propertyID)
	if err != nil {
		t.Fatalf("report property: %v", err)
	}
	for _, want := range []string{"Santa Luzia", "Active animals", "AU/ha"} {
		if !strings.Contains(out, want) {
			t.Fatalf("property report missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "report", "season", s.seasonID)
	if err != nil {
		t.Fatalf("report season: %v", err)
	}
	if !strings.Contains(out, "Inseminations") || !strings.Contains(out, "2024-01-01 to 2024-03-31") {
		t.Fatalf("season report unexpected:\n%s", out)
	}

	if _, err := run(t, "report", "property", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown property, got %v", err)
	}
}

func TestPendingCommand(t *testing.T) {
	s := seedStore(t)
	useStore(t, s.dbPath, t.TempDir())

	out, err := run(t, "pending", "diagnoses", s.propertyID, "--as-of", "2024-03-01")
	if err != nil {
		t.Fatalf("pending diagnoses: %v", err)
	}
	if !strings.Contains(out, "BR-001") || !strings.Contains(out, "2024-02-14") {
		t.Fatalf("pending diagnoses unexpected:\n%s", out)
	}
	if strings.Contains(out, "BR-002") {
		t.Fatalf("uninseminated cow listed:\n%s", out)
	}

	out, err = run(t, "pending", "diagnoses", s.propertyID, "--as-of", "2024-01-20")
	if err != nil {
		t.Fatalf("pending diagnoses early: %v", err)
	}
	if strings.Contains(out, "BR-001") {
		t.Fatalf("diagnosis listed before it is due:\n%s", out)
	}

	if _, err := run(t, "pending", "weanings", s.propertyID); err == nil {
		t.Fatalf("expected error for unknown pending list")
	}
	if _, err := run(t, "pending", "births", s.propertyID, "--as-of", "not-a-date"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for bad date, got %v", err)
	}
}

func TestArchiveCommands(t *testing.T) {
	s := seedStore(t)
	archiveRoot := t.TempDir()
	useStore(t, s.dbPath, archiveRoot)

	out, err := run(t, "archive", "now")
	if err != nil {
		t.Fatalf("archive now: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "archived" {
		t.Fatalf("archive now output unexpected: %q", out)
	}
	id := strings.TrimSuffix(fields[1], ":")

	out, err = run(t, "archive", "list")
	if err != nil {
		t.Fatalf("archive list: %v", err)
	}
	if !strings.Contains(out, id) {
		t.Fatalf("archive list missing %s:\n%s", id, out)
	}

	if _, err := run(t, "archive", "restore", id); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("restore into populated store should conflict, got %v", err)
	}

	useStore(t, filepath.Join(t.TempDir(), "restored.db"), archiveRoot)
	out, err = run(t, "archive", "restore")
	if err != nil {
		t.Fatalf("archive restore: %v", err)
	}
	if !strings.Contains(out, "restored "+id) {
		t.Fatalf("restore output unexpected: %q", out)
	}
	out, err = run(t, "report", "property", s.propertyID)
	if err != nil {
		t.Fatalf("report on restored store: %v", err)
	}
	if !strings.Contains(out, "Santa Luzia") {
		t.Fatalf("restored report unexpected:\n%s", out)
	}
}

func TestArchiveScheduleRejectsBadSpec(t *testing.T) {
	s := seedStore(t)
	useStore(t, s.dbPath, t.TempDir())
	if _, err := run(t, "archive", "schedule", "--cron", "every tuesday"); err == nil {
		t.Fatalf("expected error for bad cron spec")
	}
}
