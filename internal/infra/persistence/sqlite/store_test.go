package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"herdcore/internal/infra/persistence/memory"
	"herdcore/pkg/domain"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		p, err := tx.CreateProperty(domain.Property{Name: "Fazenda Boa Vista", TotalAreaHa: 120})
		if err != nil {
			return err
		}
		_, err = tx.CreateAnimal(domain.Animal{PropertyID: p.ID, Tag: "BR-001", Species: domain.SpeciesBovine, Sex: domain.SexFemale, Status: domain.StatusActive})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	snapshot := reloaded.ExportState()
	if len(snapshot.Animals) != 1 || len(snapshot.Properties) != 1 {
		t.Fatalf("expected animal and property restored, got %+v", snapshot)
	}
	var buckets int
	if err := reloaded.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&buckets); err != nil {
		t.Fatalf("count buckets: %v", err)
	}
	if buckets != 12 {
		t.Fatalf("expected 12 buckets, got %d", buckets)
	}
}

func TestSQLiteStoreSkipsPersistOnFailure(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	boom := errors.New("boom")
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var rows int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected no persisted buckets, got %d", rows)
	}
}

func TestSQLiteStoreRejectsCorruptPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, err := store.DB().Exec(`INSERT INTO state(bucket,payload) VALUES('animals', 'not-json')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = store.Close()
	if _, err := NewStore(path, nil); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSQLiteStoreDefaultPath(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	store, err := NewStore("", nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if store.Path() != defaultPath {
		t.Fatalf("expected default path, got %s", store.Path())
	}
}

func TestSQLiteStoreRestoreWritesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restore.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	snapshot := memory.Snapshot{Properties: map[string]domain.Property{
		"p1": {Base: domain.Base{ID: "p1"}, Name: "Restored", Active: true},
	}}
	if err := store.Restore(context.Background(), snapshot); err != nil {
		t.Fatalf("restore: %v", err)
	}
	_ = store.Close()

	reloaded, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer func() { _ = reloaded.Close() }()
	if got := reloaded.ExportState(); got.BucketLen("properties") != 1 || got.Properties["p1"].Name != "Restored" {
		t.Fatalf("restored state not persisted: %+v", got.Properties)
	}
}

func TestSQLiteStoreRollsBackMemoryWhenWriteFails(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	ctx := context.Background()
	var property domain.Property
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		property, err = tx.CreateProperty(domain.Property{Name: "Fazenda Boa Vista", TotalAreaHa: 120})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := store.ExportState()

	if err := store.DB().Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		a, err := tx.CreateAnimal(domain.Animal{PropertyID: property.ID, Tag: "BR-001", Species: domain.SpeciesBovine, Sex: domain.SexFemale, Status: domain.StatusActive})
		if err != nil {
			return err
		}
		_, err = tx.CreateOccupancy(domain.OccupancyRecord{Relation: domain.RelationKindAnimalGroup, SubjectID: a.ID, ContainerID: "g1", EntryDate: domain.Date(2024, 1, 1)})
		return err
	}); err == nil {
		t.Fatalf("expected write failure on closed database")
	}
	after := store.ExportState()
	if after.BucketLen("animals") != 0 || after.BucketLen("occupancy") != 0 {
		t.Fatalf("failed write left changes in memory: animals=%d occupancy=%d", after.BucketLen("animals"), after.BucketLen("occupancy"))
	}
	if after.BucketLen("properties") != before.BucketLen("properties") {
		t.Fatalf("committed state lost: %+v", after.Properties)
	}

	if err := store.Restore(ctx, memory.Snapshot{}); err == nil {
		t.Fatalf("expected restore failure on closed database")
	}
	final := store.ExportState()
	if final.BucketLen("properties") != 1 {
		t.Fatalf("failed restore replaced the working state")
	}
}
