// Package memory provides an in-memory implementation of the herd persistence
// store used for tests, ephemeral environments and as the working set of the
// snapshotting SQL backends.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"herdcore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

// Store provides an in-memory transactional store for the herd domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// Restore replaces the working state with snapshot.
func (s *Store) Restore(_ context.Context, snapshot Snapshot) error {
	s.ImportState(snapshot)
	return nil
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *domain.RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used to stamp records.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc replaces the record timestamp provider.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// RunInTransaction executes fn against a cloned working state. The clone
// replaces the committed state only when fn succeeds and no rule blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []domain.Change
	now     time.Time
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TransactionView {
	return newTransactionView(&tx.state)
}

type record[T any] interface {
	*T
	Record() *domain.Base
}

func insert[T any, P record[T]](tx *transaction, table map[string]T, entity domain.EntityType, rec T, clone func(T) T) (T, error) {
	var zero T
	base := P(&rec).Record()
	if base.ID == "" {
		base.ID = tx.store.newID()
	}
	if _, exists := table[base.ID]; exists {
		return zero, domain.ConflictError{Entity: entity, ID: base.ID, Reason: "already exists"}
	}
	base.CreatedAt = tx.now
	base.UpdatedAt = tx.now
	table[base.ID] = clone(rec)
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionCreate, After: clone(rec)})
	return clone(rec), nil
}

func update[T any, P record[T]](tx *transaction, table map[string]T, entity domain.EntityType, id string, mutator func(*T) error, clone func(T) T) (T, error) {
	var zero T
	stored, ok := table[id]
	if !ok {
		return zero, domain.NotFoundError{Entity: entity, ID: id}
	}
	before := clone(stored)
	current := clone(stored)
	if err := mutator(&current); err != nil {
		return zero, err
	}
	base := P(&current).Record()
	base.ID = id
	base.CreatedAt = P(&before).Record().CreatedAt
	base.UpdatedAt = tx.now
	table[id] = clone(current)
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionUpdate, Before: before, After: clone(current)})
	return clone(current), nil
}

func find[T any](table map[string]T, id string, clone func(T) T) (T, bool) {
	v, ok := table[id]
	if !ok {
		var zero T
		return zero, false
	}
	return clone(v), true
}

// list returns clones ordered by creation time, then ID.
func list[T any, P record[T]](table map[string]T, clone func(T) T) []T {
	out := make([]T, 0, len(table))
	for _, v := range table {
		out = append(out, clone(v))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := P(&out[i]).Record(), P(&out[j]).Record()
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}
