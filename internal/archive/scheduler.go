package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTimeout bounds one scheduled archive run.
const DefaultTimeout = 2 * time.Minute

// Scheduler runs Archive on a cron spec. Overlapping runs are skipped.
type Scheduler struct {
	cron     *cron.Cron
	archiver *Archiver
	source   Source
	timeout  time.Duration

	mu      sync.Mutex
	last    Manifest
	lastErr error
	runs    int
}

// NewScheduler parses spec (standard five fields or descriptors such as
// @daily) in UTC.
func NewScheduler(archiver *Archiver, source Source, spec string, timeout time.Duration) (*Scheduler, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Scheduler{archiver: archiver, source: source, timeout: timeout}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("archive schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running in the background.
func (s *Scheduler) Start() {
	s.archiver.logger.Info("archive scheduler started", "next", s.Next())
	s.cron.Start()
}

// Stop halts the schedule and waits for a running archive or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.archiver.logger.Info("archive scheduler stopped", "runs", s.Runs())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now().UTC())
}

// Last returns the outcome of the most recent run.
func (s *Scheduler) Last() (Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

// Runs counts completed runs.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	m, err := s.archiver.Archive(ctx, s.source)
	if err != nil {
		s.archiver.logger.Error("scheduled archive failed", "error", err)
	}
	s.mu.Lock()
	s.last, s.lastErr = m, err
	s.runs++
	s.mu.Unlock()
}
