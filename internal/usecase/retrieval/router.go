package retrieval

import (
	"strings"

	"retrieval-engine/internal/domain"
)

// sizeRank orders size classes for threshold comparisons.
var sizeRank = map[domain.SizeClass]int{
	domain.SizeXSSM: 0,
	domain.SizeMD:   1,
	domain.SizeLGXL: 2,
}

// Router decides which mode and which signals a request exercises.
// It performs no I/O; the plan it emits is immutable.
type Router struct {
	matcher *FastPathMatcher
}

func NewRouter(matcher *FastPathMatcher) *Router {
	return &Router{matcher: matcher}
}

// Route builds the routing plan for a query given the workspace size
// class and the active configuration.
func (r *Router) Route(q Query, sizeClass domain.SizeClass, cfg *Config) RoutingPlan {
	weights := cfg.Presets[sizeClass]
	plan := RoutingPlan{
		SizeClass:   sizeClass,
		Intent:      detectIntent(q.Text),
		Weights:     weights,
		TopKLexical: cfg.TopK.Lexical,
		TopKVector:  cfg.TopK.Vector,
		TopKFused:   cfg.TopK.Fused,
		RerankMinK:  cfg.Rerank.MinK,
	}
	if sizeClass == domain.SizeLGXL {
		plan.TopKVector = cfg.TopK.VectorLarge
	}
	if q.TopK > 0 && q.TopK < plan.TopKFused {
		plan.TopKFused = q.TopK
	}

	// Identifier fast path: lexical only, capped fetch, rerank disabled.
	if match := r.matcher.Match(q.Text); match != nil {
		plan.Mode = ModeKnowledge
		plan.FastPath = match
		plan.LexicalEnabled = true
		plan.TopKLexical = cfg.TopK.LexicalIdentifiers
		if plan.TopKFused > cfg.TopK.LexicalIdentifiers {
			plan.TopKFused = cfg.TopK.LexicalIdentifiers
		}
		plan.RerankMinK = cfg.Rerank.MinKIdentifiers
		return plan
	}

	mode := q.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	plan.Mode = mode

	switch mode {
	case ModeKnowledge:
		plan.LexicalEnabled = true
	case ModeNeural:
		plan.VectorEnabled = true
	default:
		plan.LexicalEnabled = true
		plan.VectorEnabled = true
		plan.GraphEnabled = graphAllowed(sizeClass, cfg)
	}

	// Profile similarity only fires when the intent implies ownership or
	// domain affiliation, and needs the query embedding.
	if plan.VectorEnabled && (plan.Intent == IntentOwnership || plan.Intent == IntentAlignment) {
		plan.ProfileEnabled = true
	}
	return plan
}

func graphAllowed(sizeClass domain.SizeClass, cfg *Config) bool {
	if !cfg.Graph.Enabled {
		return false
	}
	return sizeRank[sizeClass] >= sizeRank[cfg.GraphMinSizeClass]
}

var intentMarkers = []struct {
	intent  Intent
	markers []string
}{
	{IntentOwnership, []string{"who owns", "who maintains", "owner of", "responsible for", "who wrote", "maintainer"}},
	{IntentDependency, []string{"depends on", "dependency", "dependencies", "imports", "uses ", "required by", "calls "}},
	{IntentAlignment, []string{"related to", "similar to", "aligned with", "connected to", "part of"}},
}

// detectIntent applies ordered keyword heuristics to the lowered query.
func detectIntent(text string) Intent {
	lowered := strings.ToLower(text)
	for _, group := range intentMarkers {
		for _, marker := range group.markers {
			if strings.Contains(lowered, marker) {
				return group.intent
			}
		}
	}
	return IntentGeneral
}
