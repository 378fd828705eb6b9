package core

import (
	"context"
	"errors"
	"time"

	"herdcore/internal/infra/persistence/memory"
	"herdcore/pkg/domain"
)

type (
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
	// Result aliases domain.Result.
	Result = domain.Result
)

// Service exposes the transactional herd operations: registry, occupancy
// ledger, growth tracking and breeding cycle.
type Service struct {
	store   PersistentStore
	catalog *domain.SpeciesCatalog
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	agg     *Aggregator
}

type serviceOptions struct {
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// Option customises a Service.
type Option func(*serviceOptions)

// WithClock overrides the clock used for "today".
func WithClock(clock Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger installs a structured logger.
func WithLogger(logger Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder installs an operation metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithTracer installs a span tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithAuditRecorder installs an audit sink for mutating operations.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(o *serviceOptions) {
		if rec != nil {
			o.audit = rec
		}
	}
}

// NewService constructs a service backed by store and the species catalog.
func NewService(store PersistentStore, catalog *domain.SpeciesCatalog, opts ...Option) *Service {
	o := serviceOptions{
		clock:   systemClock,
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:   store,
		catalog: catalog,
		clock:   o.clock,
		logger:  o.logger,
		metrics: o.metrics,
		tracer:  o.tracer,
		audit:   o.audit,
		agg:     NewAggregator(store, catalog, o.clock),
	}
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine installs the default rule set.
func NewInMemoryService(catalog *domain.SpeciesCatalog, engine *domain.RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), catalog, opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// Catalog returns the species reference in use.
func (s *Service) Catalog() *domain.SpeciesCatalog { return s.catalog }

// Aggregator returns the read-only aggregation engine bound to the same store.
func (s *Service) Aggregator() *Aggregator { return s.agg }

func (s *Service) today() time.Time { return domain.Day(s.clock.Now()) }

type operation struct {
	name   string
	entity domain.EntityType
	action domain.Action
}

// run executes fn in one store transaction and reports the outcome to the
// tracer, metrics, audit and logger. fn returns the primary entity ID.
func (s *Service) run(ctx context.Context, op operation, fn func(tx Transaction) (string, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op.name)
	started := time.Now()
	var entityID string
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		id, err := fn(tx)
		entityID = id
		return err
	})
	elapsed := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op.name, err == nil, elapsed)

	entry := AuditEntry{
		Operation: op.name,
		Entity:    op.entity,
		Action:    op.action,
		EntityID:  entityID,
		Actor:     ActorFrom(ctx),
		Status:    AuditStatusSuccess,
		Duration:  elapsed,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)

	for _, v := range res.Violations {
		if v.Severity != domain.SeverityBlock {
			s.logger.Warn("rule violation", "operation", op.name, "rule", v.Rule, "entity", v.Entity, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	switch {
	case err == nil:
		s.logger.Debug("operation committed", "operation", op.name, "entity_id", entityID, "duration", elapsed)
	case isExpected(err):
		s.logger.Info("operation rejected", "operation", op.name, "error", err)
	default:
		s.logger.Error("operation failed", "operation", op.name, "error", err)
	}
	return res, err
}

// read executes fn against a committed snapshot with tracing and metrics.
func (s *Service) read(ctx context.Context, name string, fn func(h *herd) error) error {
	ctx, span := s.tracer.Start(ctx, name)
	started := time.Now()
	err := s.store.View(ctx, func(view TransactionView) error {
		return fn(newHerd(view, s.catalog))
	})
	span.End(err)
	s.metrics.Observe(ctx, name, err == nil, time.Since(started))
	return err
}

func isExpected(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict)
}
