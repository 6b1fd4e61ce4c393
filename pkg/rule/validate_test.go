package rule

import (
	"strings"
	"testing"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

func TestValidateRuleSource_Valid(t *testing.T) {
	r := &types.RuleSource{
		ID:     "eicar",
		Source: "rule eicar { condition: true }",
	}

	if err := ValidateRuleSource(r); err != nil {
		t.Errorf("ValidateRuleSource failed for valid rule: %v", err)
	}
}

func TestValidateRuleSource_Nil(t *testing.T) {
	err := ValidateRuleSource(nil)
	if err == nil {
		t.Fatal("expected error for nil rule source")
	}
	if !strings.Contains(err.Error(), "nil") {
		t.Errorf("expected 'nil' in error message, got: %v", err)
	}
}

func TestValidateRuleSource_MissingID(t *testing.T) {
	err := ValidateRuleSource(&types.RuleSource{Source: "rule a { condition: true }"})
	if err == nil {
		t.Fatal("expected error for missing ID")
	}
	if !strings.Contains(err.Error(), "ID") {
		t.Errorf("expected 'ID' in error message, got: %v", err)
	}
}

func TestValidateRuleSource_Blank(t *testing.T) {
	err := ValidateRuleSource(&types.RuleSource{ID: "blank", Source: " \n\t"})
	if err == nil {
		t.Fatal("expected error for blank source")
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Errorf("expected 'empty' in error message, got: %v", err)
	}
}

func TestValidateRuleSource_NulByte(t *testing.T) {
	err := ValidateRuleSource(&types.RuleSource{ID: "nul", Source: "rule a {\x00}"})
	if err == nil {
		t.Fatal("expected error for NUL byte")
	}
}

func TestValidateRuleSource_SyntaxIsNotChecked(t *testing.T) {
	// The scanner reports syntax errors; validation only looks at shape.
	r := &types.RuleSource{ID: "broken", Source: "rule {{{"}
	if err := ValidateRuleSource(r); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSelectRuleset(t *testing.T) {
	rules := sampleRules()
	rs := &types.Ruleset{
		ID:      "picked",
		Name:    "Picked",
		RuleIDs: []string{"pe_executable", "apt_lazarus_loader"},
	}

	selected, err := SelectRuleset(rules, rs)
	if err != nil {
		t.Fatalf("SelectRuleset failed: %v", err)
	}
	got := ruleIDs(selected)
	if len(got) != 2 || got[0] != "pe_executable" || got[1] != "apt_lazarus_loader" {
		t.Errorf("expected ruleset order, got %v", got)
	}
}

func TestSelectRuleset_UnknownRule(t *testing.T) {
	rs := &types.Ruleset{ID: "bad", Name: "Bad", RuleIDs: []string{"missing"}}

	if _, err := SelectRuleset(sampleRules(), rs); err == nil {
		t.Error("expected error for unknown rule ID")
	}
}

func TestValidateRuleset_Valid(t *testing.T) {
	ruleset := &types.Ruleset{
		ID:      "triage",
		Name:    "Triage",
		RuleIDs: []string{"pe_executable", "elf_executable"},
	}

	knownRules := map[string]bool{
		"pe_executable":  true,
		"elf_executable": true,
	}

	err := ValidateRuleset(ruleset, knownRules)
	if err != nil {
		t.Errorf("ValidateRuleset failed for valid ruleset: %v", err)
	}
}

func TestValidateRuleset_NilRuleset(t *testing.T) {
	err := ValidateRuleset(nil, nil)
	if err == nil {
		t.Error("expected error for nil ruleset")
	}
	if !strings.Contains(err.Error(), "nil") {
		t.Errorf("expected 'nil' in error message, got: %v", err)
	}
}

func TestValidateRuleset_MissingID(t *testing.T) {
	ruleset := &types.Ruleset{
		Name:    "Triage",
		RuleIDs: []string{"pe_executable"},
	}

	err := ValidateRuleset(ruleset, nil)
	if err == nil {
		t.Error("expected error for missing ID")
	}
	if !strings.Contains(err.Error(), "ID") {
		t.Errorf("expected 'ID' in error message, got: %v", err)
	}
}

func TestValidateRuleset_MissingName(t *testing.T) {
	ruleset := &types.Ruleset{
		ID:      "triage",
		RuleIDs: []string{"pe_executable"},
	}

	err := ValidateRuleset(ruleset, nil)
	if err == nil {
		t.Error("expected error for missing name")
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("expected 'name' in error message, got: %v", err)
	}
}

func TestValidateRuleset_EmptyRuleIDs(t *testing.T) {
	ruleset := &types.Ruleset{
		ID:      "triage",
		Name:    "Triage",
		RuleIDs: []string{},
	}

	err := ValidateRuleset(ruleset, nil)
	if err == nil {
		t.Error("expected error for empty RuleIDs")
	}
	if !strings.Contains(err.Error(), "rule") {
		t.Errorf("expected 'rule' in error message, got: %v", err)
	}
}

func TestValidateRuleset_UnknownRuleID(t *testing.T) {
	ruleset := &types.Ruleset{
		ID:      "triage",
		Name:    "Triage",
		RuleIDs: []string{"pe_executable", "no_such_rule"},
	}

	knownRules := map[string]bool{
		"pe_executable": true,
	}

	err := ValidateRuleset(ruleset, knownRules)
	if err == nil {
		t.Error("expected error for unknown rule ID")
	}
	if !strings.Contains(err.Error(), "unknown") {
		t.Errorf("expected 'unknown' in error message, got: %v", err)
	}
}

func TestValidateRuleset_NilKnownRules(t *testing.T) {
	// Nil knownRuleIDs map should skip reference checking
	ruleset := &types.Ruleset{
		ID:      "triage",
		Name:    "Triage",
		RuleIDs: []string{"pe_executable", "no_such_rule"},
	}

	err := ValidateRuleset(ruleset, nil)
	if err != nil {
		t.Errorf("ValidateRuleset should skip reference check with nil map: %v", err)
	}
}

func TestValidateRuleset_DuplicateRuleIDs(t *testing.T) {
	ruleset := &types.Ruleset{
		ID:      "triage",
		Name:    "Triage",
		RuleIDs: []string{"pe_executable", "elf_executable", "pe_executable"},
	}

	knownRules := map[string]bool{
		"pe_executable":  true,
		"elf_executable": true,
	}

	err := ValidateRuleset(ruleset, knownRules)
	if err == nil {
		t.Error("expected error for duplicate rule IDs")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected 'duplicate' in error message, got: %v", err)
	}
}

func TestValidateRuleset_AllRulesValid(t *testing.T) {
	// Test that all referenced rule IDs are valid
	ruleset := &types.Ruleset{
		ID:      "triage",
		Name:    "Triage",
		RuleIDs: []string{"pe_executable", "elf_executable", "eicar"},
	}

	knownRules := map[string]bool{
		"pe_executable":  true,
		"elf_executable": true,
		"eicar":          true,
	}

	err := ValidateRuleset(ruleset, knownRules)
	if err != nil {
		t.Errorf("ValidateRuleset failed for valid ruleset: %v", err)
	}
}
