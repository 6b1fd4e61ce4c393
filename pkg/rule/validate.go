package rule

import (
	"fmt"
	"strings"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// ValidateRuleSource checks the fields a rule source needs before it is
// handed to the scanner. The rule text itself is not parsed; syntax errors
// are reported by the scanner.
func ValidateRuleSource(r *types.RuleSource) error {
	if r == nil {
		return fmt.Errorf("rule source is nil")
	}
	if r.ID == "" {
		return fmt.Errorf("rule ID is required")
	}
	if strings.TrimSpace(r.Source) == "" {
		return fmt.Errorf("rule %s is empty", r.ID)
	}
	if strings.IndexByte(r.Source, 0) >= 0 {
		return fmt.Errorf("rule %s contains a NUL byte", r.ID)
	}
	return nil
}

// ValidateRuleset checks ruleset consistency and required fields.
// knownRuleIDs is a map of valid rule IDs for reference checking.
// Returns error if ruleset is invalid.
func ValidateRuleset(rs *types.Ruleset, knownRuleIDs map[string]bool) error {
	if rs == nil {
		return fmt.Errorf("ruleset is nil")
	}

	if rs.ID == "" {
		return fmt.Errorf("ruleset ID is required")
	}
	if rs.Name == "" {
		return fmt.Errorf("ruleset name is required")
	}
	if len(rs.RuleIDs) == 0 {
		return fmt.Errorf("ruleset %s must reference at least one rule", rs.ID)
	}

	if knownRuleIDs != nil {
		for _, ruleID := range rs.RuleIDs {
			if !knownRuleIDs[ruleID] {
				return fmt.Errorf("ruleset %s references unknown rule ID: %s", rs.ID, ruleID)
			}
		}
	}

	seen := make(map[string]bool)
	for _, ruleID := range rs.RuleIDs {
		if seen[ruleID] {
			return fmt.Errorf("ruleset %s contains duplicate rule ID: %s", rs.ID, ruleID)
		}
		seen[ruleID] = true
	}

	return nil
}

// SelectRuleset returns the rules named by rs, in the order rs lists them.
func SelectRuleset(rules []*types.RuleSource, rs *types.Ruleset) ([]*types.RuleSource, error) {
	byID := make(map[string]*types.RuleSource, len(rules))
	known := make(map[string]bool, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
		known[r.ID] = true
	}
	if err := ValidateRuleset(rs, known); err != nil {
		return nil, err
	}

	selected := make([]*types.RuleSource, 0, len(rs.RuleIDs))
	for _, id := range rs.RuleIDs {
		selected = append(selected, byID[id])
	}
	return selected, nil
}
