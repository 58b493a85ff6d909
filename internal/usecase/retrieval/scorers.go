package retrieval

import (
	"math"
	"time"

	"retrieval-engine/internal/domain"
)

// MergeCandidates unions per-signal candidate lists by (ID, sourceType),
// combining signal maps. Metadata from the first occurrence wins except
// for empty fields, which later occurrences may fill in.
func MergeCandidates(lists ...[]domain.Candidate) []domain.Candidate {
	byKey := make(map[domain.CandidateKey]*domain.Candidate)
	order := make([]domain.CandidateKey, 0)
	for _, list := range lists {
		for i := range list {
			c := list[i]
			key := c.Key()
			existing, ok := byKey[key]
			if !ok {
				clone := c
				byKey[key] = &clone
				order = append(order, key)
				continue
			}
			for sig, v := range c.Signals {
				existing.SetSignal(sig, v)
			}
			if existing.Title == "" {
				existing.Title = c.Title
			}
			if existing.DocumentID == "" {
				existing.DocumentID = c.DocumentID
			}
			if existing.OccurredAt.IsZero() {
				existing.OccurredAt = c.OccurredAt
			}
			if len(existing.Labels) == 0 {
				existing.Labels = c.Labels
			}
			existing.FastPathMatch = existing.FastPathMatch || c.FastPathMatch
		}
	}
	merged := make([]domain.Candidate, 0, len(order))
	for _, key := range order {
		merged = append(merged, *byKey[key])
	}
	return merged
}

// ApplyRecency computes exp(-ageDays/halfLife) for every candidate with
// a known occurrence time, clamped to [0,1]. Candidates without a
// timestamp get no recency signal rather than an implicit penalty.
func ApplyRecency(candidates []domain.Candidate, cfg RecencyConfig, now time.Time) {
	for i := range candidates {
		c := &candidates[i]
		if c.OccurredAt.IsZero() {
			continue
		}
		ageDays := now.Sub(c.OccurredAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		halfLife := cfg.HalfLifeDays(c.SourceType)
		decay := math.Exp(-ageDays / halfLife)
		if decay > 1 {
			decay = 1
		}
		c.SetSignal(domain.SignalRecency, decay)
	}
}

// ApplyImportance sums the configured boosts for every candidate label
// and records the total as the importance signal. The sum is fused as
// its own term, never pre-mixed into another signal.
func ApplyImportance(candidates []domain.Candidate, cfg ImportanceConfig) {
	for i := range candidates {
		c := &candidates[i]
		var total float64
		for _, label := range c.Labels {
			total += cfg.Boosts[label]
		}
		if total > 0 {
			c.SetSignal(domain.SignalImportance, total)
		}
	}
}

// ApplyGraphBoost maps traversal evidence onto already-fetched
// candidates: a chunk backed by graph evidence receives the hop factor
// of its closest evidence as the graph signal. A skipped or empty
// traversal contributes zero boost.
func ApplyGraphBoost(candidates []domain.Candidate, traversal *domain.GraphTraversal, hopFactors []float64) {
	if traversal == nil || len(traversal.Evidence) == 0 {
		return
	}
	bestByChunk := make(map[string]float64, len(traversal.Evidence))
	for _, ev := range traversal.Evidence {
		if ev.Hop < 1 || ev.Hop > len(hopFactors) {
			continue
		}
		factor := hopFactors[ev.Hop-1]
		if factor > bestByChunk[ev.ChunkID] {
			bestByChunk[ev.ChunkID] = factor
		}
	}
	for i := range candidates {
		c := &candidates[i]
		if boost, ok := bestByChunk[c.ID]; ok && boost > 0 {
			c.SetSignal(domain.SignalGraph, boost)
		}
	}
}

// GraphInfluenced reports whether any candidate in the final results
// carries a graph contribution, which gates the graph section of the
// rationale.
func GraphInfluenced(results []domain.FusedResult) bool {
	for _, r := range results {
		if r.Contributions[domain.SignalGraph] > 0 {
			return true
		}
	}
	return false
}
