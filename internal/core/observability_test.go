package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"herdcore/internal/reference"
	"herdcore/pkg/domain"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

type logLine struct {
	level string
	msg   string
	kv    []any
}

type captureLogger struct {
	lines []logLine
}

func (c *captureLogger) Debug(msg string, kv ...any) { c.add("debug", msg, kv) }
func (c *captureLogger) Info(msg string, kv ...any)  { c.add("info", msg, kv) }
func (c *captureLogger) Warn(msg string, kv ...any)  { c.add("warn", msg, kv) }
func (c *captureLogger) Error(msg string, kv ...any) { c.add("error", msg, kv) }

func (c *captureLogger) add(level, msg string, kv []any) {
	c.lines = append(c.lines, logLine{level: level, msg: msg, kv: kv})
}

func (c *captureLogger) count(level, msg string) int {
	n := 0
	for _, l := range c.lines {
		if l.level == level && l.msg == msg {
			n++
		}
	}
	return n
}

func fixedClock() Clock {
	return ClockFunc(func() time.Time { return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC) })
}

func TestServiceReportsOperationOutcomes(t *testing.T) {
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	logger := &captureLogger{}
	tracer := NewJSONTracer(nil)
	svc := NewInMemoryService(reference.MustDefault(), nil,
		WithClock(fixedClock()),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithLogger(logger),
		WithTracer(tracer),
	)
	ctx := WithActor(context.Background(), "vet")

	prop, _, err := svc.CreateProperty(ctx, domain.Property{Name: "Boa Vista", TotalAreaHa: 40})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	if _, _, err := svc.CreateProperty(ctx, domain.Property{Name: "  "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.ListGroups(ctx, prop.ID); err != nil {
		t.Fatalf("list groups: %v", err)
	}

	if !audit.has("create_property", AuditStatusSuccess) || !audit.has("create_property", AuditStatusError) {
		t.Fatalf("expected success and error audit entries, got %+v", audit.entries)
	}
	if len(audit.entries) != 2 {
		t.Fatalf("reads must not be audited, got %d entries", len(audit.entries))
	}
	if got := audit.entries[0]; got.Actor != "vet" || got.EntityID != prop.ID || got.Entity != domain.EntityProperty {
		t.Fatalf("unexpected audit entry %+v", got)
	}
	want := []metricsCall{{"create_property", true}, {"create_property", false}, {"list_groups", true}}
	if len(metrics.calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, metrics.calls)
	}
	for i := range want {
		if metrics.calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, metrics.calls)
		}
	}
	if logger.count("info", "operation rejected") != 1 || logger.count("debug", "operation committed") != 1 {
		t.Fatalf("unexpected log lines %+v", logger.lines)
	}

	entries := tracer.Entries()
	if len(entries) != 3 || entries[1].Status != "error" || entries[0].Actor != "vet" {
		t.Fatalf("unexpected spans %+v", entries)
	}
}

func TestServiceLogsWarningViolations(t *testing.T) {
	logger := &captureLogger{}
	svc := NewInMemoryService(reference.MustDefault(), nil, WithClock(fixedClock()), WithLogger(logger))
	ctx := context.Background()
	prop, _, _ := svc.CreateProperty(ctx, domain.Property{Name: "Boa Vista"})
	cow, _, err := svc.RegisterAnimal(ctx, AnimalDraft{
		PropertyID: prop.ID, Tag: "C1", Species: "bovine", Sex: "female",
		BirthDate: domain.Date(2021, time.January, 1), Category: "cow",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	day := domain.Date(2024, time.February, 1)
	if _, _, err := svc.ChangeAnimalStatus(ctx, cow.ID, domain.StatusSold, day, StatusDetails{}); err != nil {
		t.Fatalf("sell: %v", err)
	}
	_, res, err := svc.ChangeAnimalStatus(ctx, cow.ID, domain.StatusActive, day, StatusDetails{})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if len(res.Violations) != 1 || res.HasBlocking() {
		t.Fatalf("expected a single warning, got %+v", res.Violations)
	}
	if logger.count("warn", "rule violation") != 1 {
		t.Fatalf("expected one warning, got %+v", logger.lines)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "record_weighing", true, 3*time.Millisecond)
	rec.Observe(ctx, "record_weighing", false, time.Millisecond)
	rec.Observe(ctx, "record_weighing", true, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("record_weighing", "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("record_weighing", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.duration, "herdcore_operation_duration_seconds"); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if _, err := NewPrometheusMetricsRecorder(nil); err != nil {
		t.Fatalf("nil registerer: %v", err)
	}
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(WithActor(context.Background(), "vet"), "record_birth")
	span.End(errors.New("boom"))
	_, span = tracer.Start(context.Background(), "record_weighing")
	span.End(nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	var first JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Operation != "record_birth" || first.Status != "error" || first.Error != "boom" || first.Actor != "vet" {
		t.Fatalf("unexpected entry %+v", first)
	}
	if got := tracer.Entries(); len(got) != 2 || got[1].Status != "success" {
		t.Fatalf("unexpected retained entries %+v", got)
	}
}

func TestLoggerAuditRecorder(t *testing.T) {
	logger := &captureLogger{}
	LoggerAuditRecorder{Logger: logger}.Record(context.Background(), AuditEntry{Operation: "create_group", Status: AuditStatusSuccess})
	LoggerAuditRecorder{}.Record(context.Background(), AuditEntry{Operation: "ignored"})
	if logger.count("info", "audit") != 1 {
		t.Fatalf("expected one audit line, got %+v", logger.lines)
	}
}
