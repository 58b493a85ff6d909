package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"retrieval-engine/internal/domain"
)

// Supervisor enforces per-stage time budgets against a shared deadline
// clock started at request entry. A stage that runs past its budget is
// abandoned: its in-flight call is cancelled cooperatively and a result
// arriving afterwards is discarded. The supervisor never retries and
// never fails the request for a slow optional stage.
type Supervisor struct {
	start       time.Time
	totalBudget time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	reports []StageReport
}

func NewSupervisor(totalBudget time.Duration, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		start:       time.Now(),
		totalBudget: totalBudget,
		logger:      logger,
	}
}

// Elapsed returns time spent since request entry.
func (s *Supervisor) Elapsed() time.Duration {
	return time.Since(s.start)
}

// OverBudget reports whether cumulative pipeline latency already exceeds
// the total budget. Used by the disable_rerank_when_slow policy.
func (s *Supervisor) OverBudget() bool {
	return s.Elapsed() > s.totalBudget
}

// Reports returns the recorded stage outcomes in execution order.
func (s *Supervisor) Reports() []StageReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StageReport, len(s.reports))
	copy(out, s.reports)
	return out
}

func (s *Supervisor) record(rep StageReport) {
	s.mu.Lock()
	s.reports = append(s.reports, rep)
	s.mu.Unlock()
	if rep.Skipped {
		s.logger.Warn("stage_skipped",
			slog.String("stage", rep.Name),
			slog.String("reason", rep.Reason),
			slog.Int64("duration_ms", rep.DurationMS))
	}
}

// RecordSkip registers a stage that never ran (not in plan, gated off).
func (s *Supervisor) RecordSkip(name, reason string) {
	s.record(StageReport{Name: name, Skipped: true, Reason: reason})
}

// RunStage executes fn under the stage budget. On deadline exceedance or
// upstream failure it returns the zero value with a skip report; the
// pipeline continues with whatever signals completed. The function's
// result travels through a channel so a late completion can never race
// with the caller.
func RunStage[T any](ctx context.Context, s *Supervisor, name string, budget time.Duration, fn func(context.Context) (T, error)) (T, StageReport) {
	start := time.Now()
	stageCtx, cancel := context.WithTimeout(ctx, budget)

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer cancel()
		v, err := fn(stageCtx)
		done <- outcome{value: v, err: err}
	}()

	var zero T
	var rep StageReport
	select {
	case out := <-done:
		rep = StageReport{Name: name, DurationMS: time.Since(start).Milliseconds()}
		if out.err != nil {
			rep.Skipped = true
			if errors.Is(out.err, context.DeadlineExceeded) {
				rep.Reason = domain.SkipBudgetExceeded
			} else {
				rep.Reason = domain.SkipUpstreamUnavailable
			}
			s.record(rep)
			return zero, rep
		}
		s.record(rep)
		return out.value, rep
	case <-stageCtx.Done():
		rep = StageReport{
			Name:       name,
			DurationMS: time.Since(start).Milliseconds(),
			Skipped:    true,
			Reason:     domain.SkipBudgetExceeded,
		}
		if errors.Is(stageCtx.Err(), context.Canceled) {
			rep.Reason = domain.SkipUpstreamUnavailable
		}
		s.record(rep)
		return zero, rep
	}
}
