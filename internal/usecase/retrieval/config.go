package retrieval

import (
	"fmt"
	"time"

	"retrieval-engine/internal/domain"
)

// Weights are the linear fusion coefficients for the six retrieval
// signals. They are not a probability distribution: they need not sum
// to 1, but each must be >= 0.
type Weights struct {
	Vector     float64 `yaml:"wv"`
	Lexical    float64 `yaml:"wl"`
	Graph      float64 `yaml:"wg"`
	Recency    float64 `yaml:"wr"`
	Importance float64 `yaml:"wi"`
	Profile    float64 `yaml:"wp"`
}

// Validate checks that every coefficient is non-negative.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"wv", w.Vector}, {"wl", w.Lexical}, {"wg", w.Graph},
		{"wr", w.Recency}, {"wi", w.Importance}, {"wp", w.Profile},
	} {
		if f.value < 0 {
			return &domain.ConfigurationError{Field: "weights." + f.name, Reason: fmt.Sprintf("must be >= 0, got %f", f.value)}
		}
	}
	return nil
}

// BudgetsMS holds the per-stage time budgets in milliseconds. A stage
// that exceeds its budget is skipped, not retried, and the skip is
// recorded in the rationale. Fusion itself has no budget: it operates on
// already-fetched candidates.
type BudgetsMS struct {
	Embed          int `yaml:"embed"`
	Lexical        int `yaml:"lexical"`
	Vector         int `yaml:"vector"`
	GraphTraversal int `yaml:"graph_traversal"`
	Profile        int `yaml:"profile"`
	Rerank         int `yaml:"rerank"`
	Hydrate        int `yaml:"hydrate"`
	// Total is the overall pipeline budget used by the
	// disable_rerank_when_slow policy.
	Total int `yaml:"total"`
}

// Duration converts a millisecond budget entry to a time.Duration.
func budgetDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Validate checks that every budget entry is positive.
func (b BudgetsMS) Validate() error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"embed", b.Embed}, {"lexical", b.Lexical}, {"vector", b.Vector},
		{"graph_traversal", b.GraphTraversal}, {"profile", b.Profile},
		{"rerank", b.Rerank}, {"hydrate", b.Hydrate}, {"total", b.Total},
	} {
		if f.value <= 0 {
			return &domain.ConfigurationError{Field: "budgets_ms." + f.name, Reason: fmt.Sprintf("must be positive, got %d", f.value)}
		}
	}
	return nil
}

// TopKConfig holds the first-stage and fused candidate caps.
type TopKConfig struct {
	Lexical int `yaml:"lexical"`
	// LexicalIdentifiers caps the lexical fetch on the identifier fast
	// path.
	LexicalIdentifiers int `yaml:"lexical_identifiers"`
	Vector             int `yaml:"vector"`
	// VectorLarge replaces Vector for LG/XL workspaces.
	VectorLarge int `yaml:"vector_large"`
	Fused       int `yaml:"fused"`
}

// Validate checks that every topK entry is positive.
func (t TopKConfig) Validate() error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"lexical", t.Lexical}, {"lexical_identifiers", t.LexicalIdentifiers},
		{"vector", t.Vector}, {"vector_large", t.VectorLarge}, {"fused", t.Fused},
	} {
		if f.value <= 0 {
			return &domain.ConfigurationError{Field: "topk." + f.name, Reason: fmt.Sprintf("must be positive, got %d", f.value)}
		}
	}
	return nil
}

// RerankConfig holds settings for the cross-encoder second pass.
type RerankConfig struct {
	Enabled bool `yaml:"enabled"`
	// MinK is the minimum fused candidate count required to invoke the
	// reranker at all.
	MinK int `yaml:"min_k"`
	// MinKIdentifiers is MinK on the identifier fast path. Zero disables
	// reranking there entirely.
	MinKIdentifiers int `yaml:"min_k_identifiers"`
	// TopN is the number of results returned after reranking.
	TopN int `yaml:"top_n"`
	// Threshold is the per-workspace calibrated pass/fail cutoff for
	// surfacing low-confidence results. Computed offline (mean of a
	// labeled borderline set minus one standard deviation) and supplied
	// via configuration, never recomputed per request. Zero disables the
	// cutoff.
	Threshold float64 `yaml:"threshold"`
	// CacheSnippets enables the LRU cache of candidate texts used to
	// avoid repeated hydration before reranking. The cache is a pure
	// performance optimization: a miss hydrates directly and must yield
	// an identical result.
	CacheSnippets bool `yaml:"cache_snippets"`
	// DisableWhenSlow skips reranking when cumulative pipeline latency
	// already exceeds the total budget at the rerank stage.
	DisableWhenSlow bool `yaml:"disable_rerank_when_slow"`
}

// Validate checks the rerank gate parameters.
func (r RerankConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.MinK < 0 {
		return &domain.ConfigurationError{Field: "rerank.min_k", Reason: fmt.Sprintf("must be >= 0, got %d", r.MinK)}
	}
	if r.MinKIdentifiers < 0 {
		return &domain.ConfigurationError{Field: "rerank.min_k_identifiers", Reason: fmt.Sprintf("must be >= 0, got %d", r.MinKIdentifiers)}
	}
	if r.TopN <= 0 {
		return &domain.ConfigurationError{Field: "rerank.top_n", Reason: fmt.Sprintf("must be positive, got %d", r.TopN)}
	}
	if r.Threshold < 0 {
		return &domain.ConfigurationError{Field: "rerank.threshold", Reason: fmt.Sprintf("must be >= 0, got %f", r.Threshold)}
	}
	return nil
}

// RecencyConfig holds the exponential-decay half-lives per source type,
// in days. recency = exp(-ageDays / halfLifeDays), clamped to [0,1].
type RecencyConfig struct {
	ChunkHalfLifeDays       float64 `yaml:"chunk_half_life_days"`
	ObservationHalfLifeDays float64 `yaml:"observation_half_life_days"`
	SummaryHalfLifeDays     float64 `yaml:"summary_half_life_days"`
}

// HalfLifeDays returns the decay constant for a source type. Profiles
// reuse the summary half-life: both are slow-moving derived artifacts.
func (r RecencyConfig) HalfLifeDays(t domain.SourceType) float64 {
	switch t {
	case domain.SourceChunk:
		return r.ChunkHalfLifeDays
	case domain.SourceObservation:
		return r.ObservationHalfLifeDays
	default:
		return r.SummaryHalfLifeDays
	}
}

// Validate checks that every half-life is positive.
func (r RecencyConfig) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"chunk_half_life_days", r.ChunkHalfLifeDays},
		{"observation_half_life_days", r.ObservationHalfLifeDays},
		{"summary_half_life_days", r.SummaryHalfLifeDays},
	} {
		if f.value <= 0 {
			return &domain.ConfigurationError{Field: "recency." + f.name, Reason: fmt.Sprintf("must be positive, got %f", f.value)}
		}
	}
	return nil
}

// GraphBiasConfig holds settings for the relationship-bias signal.
type GraphBiasConfig struct {
	Enabled bool `yaml:"enabled"`
	MaxHops int  `yaml:"max_hops"`
	// HopFactors discounts boosts by traversal distance; index 0 is hop 1.
	HopFactors []float64 `yaml:"hop_factors"`
	// IntentAllowlist maps a detected query intent to the relationship
	// types the traversal may follow.
	IntentAllowlist map[string][]string `yaml:"intent_allowlist"`
	// MaxSeeds caps the number of query terms used to seed the traversal.
	MaxSeeds int `yaml:"max_seeds"`
}

// Validate checks hop bounds and factors.
func (g GraphBiasConfig) Validate() error {
	if !g.Enabled {
		return nil
	}
	if g.MaxHops < 1 || g.MaxHops > 2 {
		return &domain.ConfigurationError{Field: "graph.max_hops", Reason: fmt.Sprintf("must be 1 or 2, got %d", g.MaxHops)}
	}
	if len(g.HopFactors) < g.MaxHops {
		return &domain.ConfigurationError{Field: "graph.hop_factors", Reason: fmt.Sprintf("need %d factors, got %d", g.MaxHops, len(g.HopFactors))}
	}
	for i, f := range g.HopFactors {
		if f <= 0 || f > 1 {
			return &domain.ConfigurationError{Field: "graph.hop_factors", Reason: fmt.Sprintf("factor %d must be in (0,1], got %f", i+1, f)}
		}
	}
	if g.MaxSeeds <= 0 {
		return &domain.ConfigurationError{Field: "graph.max_seeds", Reason: fmt.Sprintf("must be positive, got %d", g.MaxSeeds)}
	}
	return nil
}

// ImportanceConfig maps source/type/label keys to additive boosts. The
// boosts for a candidate are summed, and the sum is fused as its own
// signal term rather than pre-mixed into another signal.
type ImportanceConfig struct {
	Boosts map[string]float64 `yaml:"boosts"`
}

// Validate checks that boosts are non-negative.
func (i ImportanceConfig) Validate() error {
	for label, boost := range i.Boosts {
		if boost < 0 {
			return &domain.ConfigurationError{Field: "importance.boosts." + label, Reason: fmt.Sprintf("must be >= 0, got %f", boost)}
		}
	}
	return nil
}

// FastPathConfig holds the ordered identifier patterns. Patterns are
// tried in order; the first match wins.
type FastPathConfig struct {
	Patterns []string `yaml:"patterns"`
}

// Config holds every tunable parameter of the retrieval
// pipeline. It is loaded and validated at startup, swapped atomically on
// reload, and read-only during request handling.
type Config struct {
	// Presets selects the weight vector by workspace size class.
	Presets map[domain.SizeClass]Weights `yaml:"presets"`

	Budgets    BudgetsMS        `yaml:"budgets_ms"`
	TopK       TopKConfig       `yaml:"topk"`
	Rerank     RerankConfig     `yaml:"rerank"`
	Recency    RecencyConfig    `yaml:"recency"`
	Graph      GraphBiasConfig  `yaml:"graph"`
	Importance ImportanceConfig `yaml:"importance"`
	FastPath   FastPathConfig   `yaml:"fast_path"`

	// GraphMinSizeClass disables graph bias below this class: very small
	// workspaces lack the entity coverage to make traversal useful.
	GraphMinSizeClass domain.SizeClass `yaml:"graph_min_size_class"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Presets: map[domain.SizeClass]Weights{
			domain.SizeXSSM: {Vector: 0.40, Lexical: 0.35, Graph: 0.00, Recency: 0.15, Importance: 0.05, Profile: 0.05},
			domain.SizeMD:   {Vector: 0.40, Lexical: 0.25, Graph: 0.15, Recency: 0.10, Importance: 0.05, Profile: 0.05},
			domain.SizeLGXL: {Vector: 0.35, Lexical: 0.20, Graph: 0.20, Recency: 0.10, Importance: 0.05, Profile: 0.10},
		},
		Budgets: BudgetsMS{
			Embed:          40,
			Lexical:        40,
			Vector:         60,
			GraphTraversal: 15,
			Profile:        20,
			Rerank:         30,
			Hydrate:        20,
			Total:          250,
		},
		TopK: TopKConfig{
			Lexical:            50,
			LexicalIdentifiers: 20,
			Vector:             100,
			VectorLarge:        150,
			Fused:              50,
		},
		Rerank: RerankConfig{
			Enabled:         true,
			MinK:            30,
			MinKIdentifiers: 0,
			TopN:            10,
			CacheSnippets:   true,
			DisableWhenSlow: true,
		},
		Recency: RecencyConfig{
			ChunkHalfLifeDays:       45,
			ObservationHalfLifeDays: 14,
			SummaryHalfLifeDays:     90,
		},
		Graph: GraphBiasConfig{
			Enabled:    true,
			MaxHops:    2,
			HopFactors: []float64{1.0, 0.6},
			IntentAllowlist: map[string][]string{
				"ownership":  {"owns", "maintains", "authored"},
				"dependency": {"depends_on", "imports", "calls"},
				"alignment":  {"relates_to", "similar_to", "part_of"},
			},
			MaxSeeds: 5,
		},
		Importance: ImportanceConfig{
			Boosts: map[string]float64{
				"incident":      0.08,
				"decision":      0.05,
				"fix_reference": 0.03,
			},
		},
		FastPath: FastPathConfig{
			Patterns: []string{
				`^#(\d+)$`,
				`^([A-Z][A-Z0-9]+-\d+)$`,
				`^([\w.-]+/[\w.-]+(?::[\w./-]+)?)$`,
			},
		},
		GraphMinSizeClass: domain.SizeMD,
	}
}

// RerankTimeout returns the rerank budget as a duration.
func (c Config) RerankTimeout() time.Duration {
	return budgetDuration(c.Budgets.Rerank)
}

// TotalBudget returns the overall pipeline budget as a duration.
func (c Config) TotalBudget() time.Duration {
	return budgetDuration(c.Budgets.Total)
}

// StageBudget returns the budget for a named fetch stage.
func (c Config) StageBudget(stage string) time.Duration {
	switch stage {
	case "embed":
		return budgetDuration(c.Budgets.Embed)
	case "lexical":
		return budgetDuration(c.Budgets.Lexical)
	case "vector":
		return budgetDuration(c.Budgets.Vector)
	case "graph_traversal":
		return budgetDuration(c.Budgets.GraphTraversal)
	case "profile":
		return budgetDuration(c.Budgets.Profile)
	case "rerank":
		return budgetDuration(c.Budgets.Rerank)
	case "hydrate":
		return budgetDuration(c.Budgets.Hydrate)
	default:
		return budgetDuration(c.Budgets.Total)
	}
}

// Validate checks the whole configuration. Any failure here is fatal at
// startup and must never occur per request.
func (c Config) Validate() error {
	if len(c.Presets) == 0 {
		return &domain.ConfigurationError{Field: "presets", Reason: "at least one size-class preset is required"}
	}
	for class, w := range c.Presets {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("preset %s: %w", class, err)
		}
	}
	for _, class := range []domain.SizeClass{domain.SizeXSSM, domain.SizeMD, domain.SizeLGXL} {
		if _, ok := c.Presets[class]; !ok {
			return &domain.ConfigurationError{Field: "presets", Reason: fmt.Sprintf("missing preset for size class %s", class)}
		}
	}
	if err := c.Budgets.Validate(); err != nil {
		return err
	}
	if err := c.TopK.Validate(); err != nil {
		return err
	}
	if err := c.Rerank.Validate(); err != nil {
		return err
	}
	if err := c.Recency.Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	if err := c.Importance.Validate(); err != nil {
		return err
	}
	if len(c.FastPath.Patterns) == 0 {
		return &domain.ConfigurationError{Field: "fast_path.patterns", Reason: "at least one identifier pattern is required"}
	}
	return nil
}

// Snapshot pairs a validated configuration with its compiled fast-path
// matcher. Snapshots are immutable; reloads build a fresh one and swap
// it atomically so no request observes a half-updated configuration.
type Snapshot struct {
	Config  *Config
	Matcher *FastPathMatcher
}

// NewSnapshot validates the configuration and compiles its identifier
// patterns. Any failure is a startup-time configuration error.
func NewSnapshot(cfg Config) (*Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	matcher, err := NewFastPathMatcher(cfg.FastPath)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "fast_path.patterns", Reason: err.Error()}
	}
	return &Snapshot{Config: &cfg, Matcher: matcher}, nil
}
