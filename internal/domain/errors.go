package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned when a request is missing its workspace ID
// or has an empty query. It is rejected before any retriever runs.
var ErrInvalidQuery = errors.New("invalid query")

// ConfigurationError marks an invalid retrieval configuration entry.
// It is fatal at startup and never produced per request.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Skip reasons recorded by the budget supervisor when an optional stage
// does not contribute to the result. These are absorbed locally and never
// surfaced as user-facing errors.
const (
	SkipBudgetExceeded      = "budget_exceeded"
	SkipUpstreamUnavailable = "upstream_unavailable"
	SkipNotInPlan           = "not_in_plan"
	SkipPipelineSlow        = "pipeline_over_budget"
	SkipBelowMinK           = "below_min_k"
	SkipFastPath            = "identifier_fast_path"
)
