package retrieval

import (
	"fmt"
	"regexp"
	"strings"
)

// Identifier kinds produced by the fast-path matcher, by pattern order.
var fastPathKinds = []string{"issue", "ticket", "repo_path"}

// FastPathMatcher recognizes literal identifiers in query text and lets
// the router short-circuit the full pipeline. Matching is pure: no I/O,
// no state beyond the compiled patterns.
type FastPathMatcher struct {
	patterns []*regexp.Regexp
	kinds    []string
}

// NewFastPathMatcher compiles the ordered pattern list from the
// configuration. Pattern order is significant: the first match wins.
func NewFastPathMatcher(cfg FastPathConfig) (*FastPathMatcher, error) {
	m := &FastPathMatcher{
		patterns: make([]*regexp.Regexp, 0, len(cfg.Patterns)),
		kinds:    make([]string, 0, len(cfg.Patterns)),
	}
	for i, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid fast path pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, re)
		kind := "identifier"
		if i < len(fastPathKinds) {
			kind = fastPathKinds[i]
		}
		m.kinds = append(m.kinds, kind)
	}
	return m, nil
}

// Match applies the ordered patterns to the trimmed query text. Returns
// nil when no pattern matches.
func (m *FastPathMatcher) Match(text string) *FastPathMatch {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	for i, re := range m.patterns {
		if loc := re.FindStringSubmatch(trimmed); loc != nil {
			value := trimmed
			if len(loc) > 1 && loc[1] != "" {
				value = loc[1]
			}
			return &FastPathMatch{Kind: m.kinds[i], RawValue: value}
		}
	}
	return nil
}
