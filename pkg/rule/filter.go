package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// FilterConfig specifies include and exclude patterns for rule filtering.
type FilterConfig struct {
	Include []string // Regex patterns - only matching rules included
	Exclude []string // Regex patterns - matching rules excluded
}

// ParsePatterns splits a comma-separated string into individual patterns.
// Patterns are trimmed of whitespace.
func ParsePatterns(patterns string) []string {
	if patterns == "" {
		return []string{}
	}

	parts := strings.Split(patterns, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Filter applies include and exclude patterns to rule IDs.
// Include is applied first, then exclude; empty include keeps everything.
// Patterns are unanchored regular expressions.
func Filter(rules []*types.RuleSource, config FilterConfig) ([]*types.RuleSource, error) {
	if len(rules) == 0 {
		return rules, nil
	}

	includeRegexes, err := compilePatterns(config.Include)
	if err != nil {
		return nil, err
	}
	excludeRegexes, err := compilePatterns(config.Exclude)
	if err != nil {
		return nil, err
	}

	filtered := rules
	if len(includeRegexes) > 0 {
		filtered = keep(filtered, includeRegexes, true)
	}
	if len(excludeRegexes) > 0 {
		filtered = keep(filtered, excludeRegexes, false)
	}
	return filtered, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	regexes := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		regexes = append(regexes, re)
	}
	return regexes, nil
}

// keep returns the rules whose ID matching any regex equals want.
func keep(rules []*types.RuleSource, regexes []*regexp.Regexp, want bool) []*types.RuleSource {
	result := make([]*types.RuleSource, 0, len(rules))
	for _, r := range rules {
		if matchesAny(r.ID, regexes) == want {
			result = append(result, r)
		}
	}
	return result
}

func matchesAny(id string, regexes []*regexp.Regexp) bool {
	for _, re := range regexes {
		if re.MatchString(id) {
			return true
		}
	}
	return false
}
