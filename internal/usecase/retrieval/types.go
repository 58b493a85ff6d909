package retrieval

import (
	"retrieval-engine/internal/domain"
)

// Mode selects which signal families a request exercises.
type Mode string

const (
	// ModeKnowledge is lexical-led: no embedding, no graph traversal.
	ModeKnowledge Mode = "knowledge"
	// ModeNeural is vector-led.
	ModeNeural Mode = "neural"
	// ModeHybrid fuses every enabled signal. This is the "auto" default.
	ModeHybrid Mode = "hybrid"
)

// Intent is the coarse query intent that keys the graph relationship
// allowlist and gates the profile signal.
type Intent string

const (
	IntentOwnership  Intent = "ownership"
	IntentDependency Intent = "dependency"
	IntentAlignment  Intent = "alignment"
	IntentGeneral    Intent = "general"
)

// Query is the immutable per-request input.
type Query struct {
	WorkspaceID      string
	Text             string
	TopK             int
	Mode             Mode // empty means auto
	IncludeRationale bool
}

// FastPathMatch records a literal identifier recognized in the query text.
type FastPathMatch struct {
	Kind     string
	RawValue string
}

// RoutingPlan is the immutable output of the router, consumed by every
// downstream stage.
type RoutingPlan struct {
	Mode      Mode
	SizeClass domain.SizeClass
	Intent    Intent
	Weights   Weights

	FastPath *FastPathMatch

	LexicalEnabled bool
	VectorEnabled  bool
	GraphEnabled   bool
	ProfileEnabled bool

	TopKLexical int
	TopKVector  int
	TopKFused   int

	// RerankMinK is the gate for the cross-encoder pass; zero disables it.
	RerankMinK int
}

// StageReport records the outcome of one budget-supervised stage.
type StageReport struct {
	Name       string
	DurationMS int64
	Skipped    bool
	// Reason is one of the domain.Skip* constants when Skipped is true.
	Reason string
}

// GraphRationale captures the entities, edges, and evidence chunks that
// produced a graph boost, surfaced only when graph bias influenced the
// ranking.
type GraphRationale struct {
	Entities         []domain.GraphEntity
	Edges            []domain.GraphEdge
	EvidenceChunkIDs []string
}

// Rationale explains how a ranking was produced. Built only when the
// caller asked for it; a stage skipped on budget is always reported,
// never silently omitted.
type Rationale struct {
	RouterMode         Mode
	RouterScope        domain.SizeClass
	Stages             []StageReport
	ContributionShares map[domain.SourceType]float64
	Graph              *GraphRationale
	// Note carries a human-readable explanation when the result list is
	// empty (for example, all retrievers skipped).
	Note string
}
