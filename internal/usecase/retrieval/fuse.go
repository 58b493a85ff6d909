package retrieval

import (
	"sort"

	"retrieval-engine/internal/domain"
)

// Fuse combines per-signal scores into one ranked list using the active
// weight vector:
//
//	score = wv*vector + wl*lexical + wg*graph + wr*recency + wi*importance + wp*profile
//
// A missing signal contributes zero: it is neither penalized nor
// imputed. Candidates with no signal contribution at all are dropped.
// Ties break on identifier fast-path presence, then document recency,
// then candidate ID lexical order, which makes the output fully
// deterministic for identical inputs. Fuse is pure: no I/O, no
// randomness, no shared state.
func Fuse(candidates []domain.Candidate, w Weights, topK int) []domain.FusedResult {
	results := make([]domain.FusedResult, 0, len(candidates))
	for _, c := range candidates {
		// Fixed summation order: float addition is not associative, and
		// the fused score must be identical across runs.
		terms := []struct {
			signal domain.Signal
			value  float64
		}{
			{domain.SignalVector, w.Vector * c.Signals[domain.SignalVector]},
			{domain.SignalLexical, w.Lexical * c.Signals[domain.SignalLexical]},
			{domain.SignalGraph, w.Graph * c.Signals[domain.SignalGraph]},
			{domain.SignalRecency, w.Recency * c.Signals[domain.SignalRecency]},
			{domain.SignalImportance, w.Importance * c.Signals[domain.SignalImportance]},
			{domain.SignalProfile, w.Profile * c.Signals[domain.SignalProfile]},
		}
		var score float64
		contributions := make(map[domain.Signal]float64, len(terms))
		for _, t := range terms {
			if t.value == 0 {
				continue
			}
			score += t.value
			contributions[t.signal] = t.value
		}
		// A candidate whose signals all zero out contributes nothing and
		// is excluded, same as one that was never scored.
		if len(contributions) == 0 {
			continue
		}
		results = append(results, domain.FusedResult{
			Candidate:     c,
			Score:         score,
			Contributions: contributions,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Candidate.FastPathMatch != b.Candidate.FastPathMatch {
			return a.Candidate.FastPathMatch
		}
		if !a.Candidate.OccurredAt.Equal(b.Candidate.OccurredAt) {
			return a.Candidate.OccurredAt.After(b.Candidate.OccurredAt)
		}
		return a.Candidate.ID < b.Candidate.ID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
