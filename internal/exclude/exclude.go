// Package exclude evaluates root-relative paths against glob exclusion
// patterns.
package exclude

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher is a pure predicate over root-relative paths ('/' separated).
// Patterns support '*' (single segment), '**' (any number of segments) and
// literal segments; matching is case-sensitive. A path is excluded when it
// matches any pattern.
type Matcher struct {
	patterns []string
}

// NewMatcher compiles the given patterns. A pattern that names a bare
// directory (no wildcard, no trailing separator) also excludes the
// directory's entire subtree, at the root or anywhere below it.
func NewMatcher(patterns []string) (*Matcher, error) {
	expanded := expand(patterns)
	for _, p := range expanded {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("exclude: invalid pattern %q", p)
		}
	}
	return &Matcher{patterns: expanded}, nil
}

func expand(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p)
		bareDir := !strings.Contains(p, "*") && !strings.HasSuffix(p, "/") && !strings.HasSuffix(p, `\`)
		if bareDir {
			out = append(out, p+"/**", "**/"+strings.TrimPrefix(p, "./")+"/**")
		}
	}
	return out
}

// Match reports whether rel matches any configured pattern.
func (m *Matcher) Match(rel string) bool {
	for _, p := range m.patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
