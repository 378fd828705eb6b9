// Package archive copies store snapshots into a blob store and restores them.
// An archive is one JSON object per bucket under <prefix>/<id>/ plus a
// manifest written last, so archives without a manifest are ignored.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"herdcore/internal/blob"
	"herdcore/internal/core"
	"herdcore/internal/infra/persistence/memory"
	"herdcore/pkg/domain"
)

const (
	// DefaultPrefix is the key prefix archives are written under.
	DefaultPrefix = "snapshots"

	manifestName    = "manifest.json"
	contentType     = "application/json"
	idLayout        = "20060102T150405.000000000Z"
	maxParallelism  = 4
	entityArchive   = domain.EntityType("archive")
	metadataBucket  = "bucket"
	metadataArchive = "archive"
)

// Source exposes the committed state of a store.
type Source interface {
	ExportState() memory.Snapshot
}

// Target is a store that can be restored in place.
type Target interface {
	Source
	Restore(ctx context.Context, snapshot memory.Snapshot) error
}

// BucketEntry describes one uploaded bucket.
type BucketEntry struct {
	Key     string `json:"key"`
	Size    int64  `json:"size"`
	ETag    string `json:"etag,omitempty"`
	Records int    `json:"records"`
}

// Manifest lists the buckets of a complete archive.
type Manifest struct {
	ID        string                 `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
	Records   int                    `json:"records"`
	Buckets   map[string]BucketEntry `json:"buckets"`
}

// Size sums the uploaded bucket sizes.
func (m Manifest) Size() int64 {
	var total int64
	for _, b := range m.Buckets {
		total += b.Size
	}
	return total
}

// Archiver writes and reads archives.
type Archiver struct {
	store  blob.Store
	prefix string
	clock  core.Clock
	logger core.Logger
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(a *Archiver) {
		if p := strings.Trim(prefix, "/"); p != "" {
			a.prefix = p
		}
	}
}

// WithClock sets the clock used to name archives.
func WithClock(clock core.Clock) Option {
	return func(a *Archiver) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithLogger sets the archive logger.
func WithLogger(logger core.Logger) Option {
	return func(a *Archiver) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New returns an Archiver writing to store.
func New(store blob.Store, opts ...Option) *Archiver {
	a := &Archiver{
		store:  store,
		prefix: DefaultPrefix,
		clock:  core.ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Archiver) key(id, name string) string {
	return path.Join(a.prefix, id, name)
}

// Archive uploads every bucket of src concurrently and then the manifest.
func (a *Archiver) Archive(ctx context.Context, src Source) (Manifest, error) {
	snapshot := src.ExportState()
	now := a.clock.Now().UTC()
	manifest := Manifest{
		ID:        now.Format(idLayout),
		CreatedAt: now,
		Buckets:   make(map[string]BucketEntry, len(memory.Buckets)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelism)
	for _, name := range memory.Buckets {
		g.Go(func() error {
			target, _ := snapshot.Bucket(name)
			data, err := json.Marshal(target)
			if err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
			key := a.key(manifest.ID, name+".json")
			info, err := a.store.Put(gctx, key, bytes.NewReader(data), blob.PutOptions{
				ContentType: contentType,
				Metadata:    map[string]string{metadataBucket: name, metadataArchive: manifest.ID},
			})
			if err != nil {
				return fmt.Errorf("upload %s: %w", name, err)
			}
			entry := BucketEntry{Key: key, Size: info.Size, ETag: info.ETag, Records: snapshot.BucketLen(name)}
			mu.Lock()
			manifest.Buckets[name] = entry
			manifest.Records += entry.Records
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("archive incomplete", "archive", manifest.ID, "error", err)
		return Manifest{}, err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := a.store.Put(ctx, a.key(manifest.ID, manifestName), bytes.NewReader(data), blob.PutOptions{ContentType: contentType}); err != nil {
		return Manifest{}, fmt.Errorf("upload manifest: %w", err)
	}
	a.logger.Info("archive written", "archive", manifest.ID, "records", manifest.Records, "bytes", manifest.Size())
	return manifest, nil
}

// List returns complete archives, newest first.
func (a *Archiver) List(ctx context.Context) ([]Manifest, error) {
	infos, err := a.store.List(ctx, a.prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	var out []Manifest
	for _, info := range infos {
		if path.Base(info.Key) != manifestName {
			continue
		}
		m, err := a.readManifest(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Get returns the manifest of one archive.
func (a *Archiver) Get(ctx context.Context, id string) (Manifest, error) {
	m, err := a.readManifest(ctx, a.key(id, manifestName))
	if errors.Is(err, blob.ErrNotFound) {
		return Manifest{}, domain.NotFoundError{Entity: entityArchive, ID: id}
	}
	return m, err
}

// Latest returns the newest complete archive.
func (a *Archiver) Latest(ctx context.Context) (Manifest, error) {
	all, err := a.List(ctx)
	if err != nil {
		return Manifest{}, err
	}
	if len(all) == 0 {
		return Manifest{}, domain.NotFoundError{Entity: entityArchive, ID: "latest"}
	}
	return all[0], nil
}

// Restore loads archive id (the latest when empty) into dst. dst must hold
// no records.
func (a *Archiver) Restore(ctx context.Context, dst Target, id string) (Manifest, error) {
	if n := dst.ExportState().Len(); n > 0 {
		return Manifest{}, domain.ConflictError{Entity: entityArchive, ID: id, Reason: fmt.Sprintf("target store already holds %d records", n)}
	}
	var (
		manifest Manifest
		err      error
	)
	if id == "" {
		manifest, err = a.Latest(ctx)
	} else {
		manifest, err = a.Get(ctx, id)
	}
	if err != nil {
		return Manifest{}, err
	}

	var snapshot memory.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelism)
	for name, entry := range manifest.Buckets {
		target, ok := snapshot.Bucket(name)
		if !ok {
			return Manifest{}, fmt.Errorf("archive %s: unknown bucket %q", manifest.ID, name)
		}
		g.Go(func() error {
			_, rc, err := a.store.Get(gctx, entry.Key)
			if err != nil {
				return fmt.Errorf("download %s: %w", name, err)
			}
			defer func() { _ = rc.Close() }()
			data, err := io.ReadAll(rc)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			if int64(len(data)) != entry.Size {
				return fmt.Errorf("bucket %s: size %d does not match manifest %d", name, len(data), entry.Size)
			}
			return json.Unmarshal(data, target)
		})
	}
	if err := g.Wait(); err != nil {
		return Manifest{}, err
	}
	for name, entry := range manifest.Buckets {
		if got := snapshot.BucketLen(name); got != entry.Records {
			return Manifest{}, fmt.Errorf("bucket %s: %d records, manifest lists %d", name, got, entry.Records)
		}
	}
	if err := dst.Restore(ctx, snapshot); err != nil {
		return Manifest{}, fmt.Errorf("restore %s: %w", manifest.ID, err)
	}
	a.logger.Info("archive restored", "archive", manifest.ID, "records", manifest.Records)
	return manifest, nil
}

func (a *Archiver) readManifest(ctx context.Context, key string) (Manifest, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Manifest{}, err
	}
	defer func() { _ = rc.Close() }()
	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", key, err)
	}
	return m, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
