package retrieval_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"retrieval-engine/internal/domain"
	"retrieval-engine/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRunStage_CompletesWithinBudget(t *testing.T) {
	sup := retrieval.NewSupervisor(250*time.Millisecond, testLogger())

	value, rep := retrieval.RunStage(context.Background(), sup, "lexical", 100*time.Millisecond,
		func(ctx context.Context) (int, error) {
			return 42, nil
		})

	assert.Equal(t, 42, value)
	assert.False(t, rep.Skipped)
	assert.Equal(t, "lexical", rep.Name)
}

func TestRunStage_SkipsOnDeadline(t *testing.T) {
	sup := retrieval.NewSupervisor(250*time.Millisecond, testLogger())

	value, rep := retrieval.RunStage(context.Background(), sup, "graph_traversal", 10*time.Millisecond,
		func(ctx context.Context) (*domain.GraphTraversal, error) {
			select {
			case <-time.After(500 * time.Millisecond):
				return &domain.GraphTraversal{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})

	assert.Nil(t, value, "abandoned stage must yield the zero value")
	assert.True(t, rep.Skipped)
	assert.Equal(t, domain.SkipBudgetExceeded, rep.Reason)
}

func TestRunStage_SkipsOnUpstreamError(t *testing.T) {
	sup := retrieval.NewSupervisor(250*time.Millisecond, testLogger())

	value, rep := retrieval.RunStage(context.Background(), sup, "vector", 100*time.Millisecond,
		func(ctx context.Context) ([]domain.Candidate, error) {
			return nil, errors.New("connection refused")
		})

	assert.Nil(t, value)
	assert.True(t, rep.Skipped)
	assert.Equal(t, domain.SkipUpstreamUnavailable, rep.Reason)
}

func TestRunStage_LateResultIgnored(t *testing.T) {
	sup := retrieval.NewSupervisor(250*time.Millisecond, testLogger())
	finished := make(chan struct{})

	value, rep := retrieval.RunStage(context.Background(), sup, "vector", 10*time.Millisecond,
		func(ctx context.Context) ([]domain.Candidate, error) {
			defer close(finished)
			// Ignore cancellation to simulate a retriever that cannot be
			// interrupted mid-call.
			time.Sleep(50 * time.Millisecond)
			return []domain.Candidate{{ID: "late"}}, nil
		})

	assert.Nil(t, value)
	assert.True(t, rep.Skipped)

	// The goroutine still drains without racing the caller.
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("stage goroutine leaked")
	}
}

func TestSupervisor_RecordsReportsInOrder(t *testing.T) {
	sup := retrieval.NewSupervisor(250*time.Millisecond, testLogger())

	_, _ = retrieval.RunStage(context.Background(), sup, "lexical", 100*time.Millisecond,
		func(ctx context.Context) (int, error) { return 1, nil })
	sup.RecordSkip("vector", domain.SkipNotInPlan)
	sup.RecordSkip("rerank", domain.SkipBelowMinK)

	reports := sup.Reports()
	require.Len(t, reports, 3)
	assert.Equal(t, "lexical", reports[0].Name)
	assert.False(t, reports[0].Skipped)
	assert.Equal(t, "vector", reports[1].Name)
	assert.Equal(t, domain.SkipNotInPlan, reports[1].Reason)
	assert.Equal(t, "rerank", reports[2].Name)
	assert.Equal(t, domain.SkipBelowMinK, reports[2].Reason)
}

func TestSupervisor_OverBudget(t *testing.T) {
	sup := retrieval.NewSupervisor(1*time.Millisecond, testLogger())
	time.Sleep(5 * time.Millisecond)
	assert.True(t, sup.OverBudget())

	relaxed := retrieval.NewSupervisor(time.Minute, testLogger())
	assert.False(t, relaxed.OverBudget())
}
