package sls

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// TargetPolicy restricts which project/logstore pairs may be queried. An
// empty policy allows everything.
type TargetPolicy struct {
	patterns []string
}

// NewTargetPolicy validates patterns of the form "project/logstore", where
// either side may use doublestar globs.
func NewTargetPolicy(patterns []string) (*TargetPolicy, error) {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid target pattern %q", pattern)
		}
	}
	return &TargetPolicy{patterns: patterns}, nil
}

// Allows reports whether project/logstore matches at least one pattern.
func (p *TargetPolicy) Allows(project, logstore string) bool {
	if p == nil || len(p.patterns) == 0 {
		return true
	}
	target := project + "/" + logstore
	for _, pattern := range p.patterns {
		if matched, err := doublestar.Match(pattern, target); err == nil && matched {
			return true
		}
	}
	return false
}
