package retrieval

import (
	"retrieval-engine/internal/domain"
)

// BuildRationale assembles the explanation object for a completed
// request: router decisions, per-stage latency, contribution shares by
// source type, and the graph elements that influenced ranking. Pure
// aggregation over data the pipeline already produced.
func BuildRationale(plan RoutingPlan, stages []StageReport, traversal *domain.GraphTraversal, results []domain.FusedResult) *Rationale {
	rationale := &Rationale{
		RouterMode:         plan.Mode,
		RouterScope:        plan.SizeClass,
		Stages:             stages,
		ContributionShares: contributionShares(results),
	}

	if traversal != nil && GraphInfluenced(results) {
		graph := &GraphRationale{
			Entities: traversal.Entities,
			Edges:    traversal.Edges,
		}
		seen := make(map[string]bool, len(traversal.Evidence))
		for _, ev := range traversal.Evidence {
			if !seen[ev.ChunkID] {
				seen[ev.ChunkID] = true
				graph.EvidenceChunkIDs = append(graph.EvidenceChunkIDs, ev.ChunkID)
			}
		}
		rationale.Graph = graph
	}

	if len(results) == 0 {
		if allFetchStagesSkipped(stages) {
			rationale.Note = "all retrieval stages were skipped; no signals were available"
		} else {
			rationale.Note = "no candidates matched the query"
		}
	}
	return rationale
}

// contributionShares computes the share of total fused score mass per
// source type across the final ranking.
func contributionShares(results []domain.FusedResult) map[domain.SourceType]float64 {
	shares := make(map[domain.SourceType]float64)
	var total float64
	for _, r := range results {
		if r.Score <= 0 {
			continue
		}
		shares[r.Candidate.SourceType] += r.Score
		total += r.Score
	}
	if total == 0 {
		return map[domain.SourceType]float64{}
	}
	for t := range shares {
		shares[t] /= total
	}
	return shares
}

func allFetchStagesSkipped(stages []StageReport) bool {
	any := false
	for _, s := range stages {
		switch s.Name {
		case "lexical", "vector", "graph_traversal", "profile", "embed":
			any = true
			if !s.Skipped {
				return false
			}
		}
	}
	return any
}
