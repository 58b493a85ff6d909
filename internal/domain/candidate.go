package domain

import "time"

// SourceType identifies the kind of retrievable content a candidate points at.
type SourceType string

const (
	SourceChunk       SourceType = "chunk"
	SourceObservation SourceType = "observation"
	SourceSummary     SourceType = "summary"
	SourceProfile     SourceType = "profile"
)

// Signal identifies one retrieval signal contributing to a fused score.
type Signal string

const (
	SignalVector     Signal = "vector"
	SignalLexical    Signal = "lexical"
	SignalGraph      Signal = "graph"
	SignalRecency    Signal = "recency"
	SignalImportance Signal = "importance"
	SignalProfile    Signal = "profile"
)

// CandidateKey is the identity under which candidates from different
// signals are unioned before fusion.
type CandidateKey struct {
	ID         string
	SourceType SourceType
}

// Candidate is a unit of retrievable content surfaced by one or more
// signals during a single request. Candidates are request-scoped and
// never persisted.
type Candidate struct {
	ID         string
	DocumentID string
	SourceType SourceType
	Title      string
	Labels     []string
	OccurredAt time.Time

	// Signals holds the per-signal scores accumulated for this candidate.
	// A signal absent from the map contributes zero to fusion.
	Signals map[Signal]float64

	// FastPathMatch marks candidates surfaced by the identifier fast path.
	// Used as the first tie-break key during fusion.
	FastPathMatch bool
}

// Key returns the union identity of the candidate.
func (c *Candidate) Key() CandidateKey {
	return CandidateKey{ID: c.ID, SourceType: c.SourceType}
}

// SetSignal records a signal score, allocating the map lazily.
func (c *Candidate) SetSignal(s Signal, v float64) {
	if c.Signals == nil {
		c.Signals = make(map[Signal]float64, 6)
	}
	c.Signals[s] = v
}

// FusedResult is a candidate plus its combined score and the per-signal
// contribution breakdown that produced it.
type FusedResult struct {
	Candidate     Candidate
	Score         float64
	Contributions map[Signal]float64
}
