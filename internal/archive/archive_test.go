package archive

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"herdcore/internal/blob"
	"herdcore/internal/core"
	"herdcore/internal/infra/persistence/memory"
	"herdcore/internal/reference"
	"herdcore/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	svc := core.NewInMemoryService(reference.MustDefault(), nil,
		core.WithClock(core.ClockFunc(func() time.Time { return time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC) })))
	ctx := context.Background()
	prop, _, err := svc.CreateProperty(ctx, domain.Property{Name: "Santa Luzia", TotalAreaHa: 80})
	if err != nil {
		t.Fatalf("property: %v", err)
	}
	group, _, err := svc.CreateGroup(ctx, domain.Group{PropertyID: prop.ID, Name: "Matrizes"})
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	cow, _, err := svc.RegisterAnimal(ctx, core.AnimalDraft{
		PropertyID: prop.ID, Tag: "BR-001", Species: domain.SpeciesBovine, Sex: domain.SexFemale,
		BirthDate: domain.Date(2020, time.March, 1), Category: "cow", GroupID: group.ID,
	})
	if err != nil {
		t.Fatalf("animal: %v", err)
	}
	if _, _, err := svc.RecordWeighing(ctx, cow.ID, domain.Date(2024, time.May, 1), 430, core.WeighingDetails{}); err != nil {
		t.Fatalf("weighing: %v", err)
	}
	return svc.Store().(*memory.Store)
}

func TestArchiveAndRestoreRoundTrip(t *testing.T) {
	backends := map[string]blob.Store{
		"memory": blob.NewMemory(),
		"s3":     blob.NewFakeS3ForTests(),
	}
	fsStore, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	backends["fs"] = fsStore

	for name, store := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := seededStore(t)
			clock := &stepClock{now: time.Date(2024, time.June, 2, 3, 0, 0, 0, time.UTC)}
			archiver := New(store, WithClock(clock), WithPrefix("/herd/"))

			m, err := archiver.Archive(ctx, src)
			if err != nil {
				t.Fatalf("archive: %v", err)
			}
			if len(m.Buckets) != len(memory.Buckets) || m.Records != 5 {
				t.Fatalf("unexpected manifest %+v", m)
			}
			if m.Buckets["animals"].Key != "herd/"+m.ID+"/animals.json" {
				t.Fatalf("unexpected key %s", m.Buckets["animals"].Key)
			}

			dst := memory.NewStore(nil)
			restored, err := archiver.Restore(ctx, dst, "")
			if err != nil {
				t.Fatalf("restore: %v", err)
			}
			if restored.ID != m.ID {
				t.Fatalf("expected latest archive %s, got %s", m.ID, restored.ID)
			}
			if diff := cmp.Diff(src.ExportState(), dst.ExportState()); diff != "" {
				t.Fatalf("restored state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListNewestFirstAndSkipsIncomplete(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	clock := &stepClock{now: time.Date(2024, time.June, 2, 3, 0, 0, 0, time.UTC)}
	archiver := New(store, WithClock(clock))
	src := seededStore(t)

	first, err := archiver.Archive(ctx, src)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := archiver.Archive(ctx, src)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if _, err := store.Put(ctx, DefaultPrefix+"/20990101T000000.000000000Z/animals.json", bytes.NewReader([]byte("{}")), blob.PutOptions{}); err != nil {
		t.Fatalf("put partial: %v", err)
	}

	list, err := archiver.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := []string{list[0].ID, list[1].ID}
	if diff := cmp.Diff([]string{second.ID, first.ID}, got); diff != "" || len(list) != 2 {
		t.Fatalf("unexpected archives (-want +got):\n%s", diff)
	}
	if m, err := archiver.Get(ctx, first.ID); err != nil || m.Records != first.Records {
		t.Fatalf("get: %+v %v", m, err)
	}
	if _, err := archiver.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRestoreGuards(t *testing.T) {
	ctx := context.Background()
	archiver := New(blob.NewMemory())
	if _, err := archiver.Restore(ctx, memory.NewStore(nil), ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found without archives, got %v", err)
	}
	src := seededStore(t)
	if _, err := archiver.Archive(ctx, src); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := archiver.Restore(ctx, src, ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict restoring into populated store, got %v", err)
	}
}

func TestRestoreDetectsTamperedBucket(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	archiver := New(store)
	m, err := archiver.Archive(ctx, seededStore(t))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	key := m.Buckets["animals"].Key
	if _, err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Put(ctx, key, bytes.NewReader([]byte("{}")), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := archiver.Restore(ctx, memory.NewStore(nil), m.ID); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}

func TestArchiveFailsOnTakenKey(t *testing.T) {
	ctx := context.Background()
	fixed := core.ClockFunc(func() time.Time { return time.Date(2024, time.June, 2, 3, 0, 0, 0, time.UTC) })
	archiver := New(blob.NewMemory(), WithClock(fixed))
	src := seededStore(t)
	if _, err := archiver.Archive(ctx, src); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := archiver.Archive(ctx, src); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected exists error, got %v", err)
	}
}
