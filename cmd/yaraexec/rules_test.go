package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetRulesFlags(t *testing.T) {
	t.Helper()
	rulesPath = ""
	rulesRuleset = ""
	outputFormat = "table"
}

func TestRunRulesList_Table(t *testing.T) {
	resetRulesFlags(t)
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runRulesList(cmd, nil))

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "eicar")
	assert.Contains(t, output, "php_webshell")
}

func TestRunRulesList_JSON(t *testing.T) {
	resetRulesFlags(t)
	outputFormat = "json"
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runRulesList(cmd, nil))

	var rules []struct {
		ID     string `json:"id"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rules))
	require.NotEmpty(t, rules)
	for _, r := range rules {
		assert.NotEmpty(t, r.ID)
		assert.Contains(t, r.Source, "rule ")
	}
}

func TestRunRulesList_Ruleset(t *testing.T) {
	resetRulesFlags(t)
	rulesRuleset = "executables"
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runRulesList(cmd, nil))

	output := buf.String()
	assert.Contains(t, output, "pe_executable")
	assert.Contains(t, output, "elf_executable")
	assert.NotContains(t, output, "php_webshell")
}

func TestRunRulesList_UnknownFormat(t *testing.T) {
	resetRulesFlags(t)
	outputFormat = "xml"
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runRulesList(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestRunRulesetsList(t *testing.T) {
	resetRulesFlags(t)
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runRulesetsList(cmd, nil))

	output := buf.String()
	assert.Contains(t, output, "default")
	assert.Contains(t, output, "executables")
	assert.Contains(t, output, "web")
}

func TestLoadRules_PathAndFilters(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha.yar"), []byte("rule alpha { condition: true }"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beta.yar"), []byte("rule beta { condition: true }"), 0644))

	rules, err := loadRules(dir, "", "", "")
	require.NoError(t, err)
	require.Len(t, rules, 2)

	rules, err = loadRules(dir, "", "", "^beta$")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "alpha", rules[0].ID)

	_, err = loadRules(dir, "", "[", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filtering rules")
}

func TestLoadRules_RulesetFile(t *testing.T) {
	dir := t.TempDir()
	rsPath := filepath.Join(dir, "mine.yml")
	require.NoError(t, os.WriteFile(rsPath, []byte(`rulesets:
  - id: mine
    name: Mine
    include_rule_ids:
      - eicar
`), 0644))

	rules, err := loadRules("", rsPath, "", "")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "eicar", rules[0].ID)
}

func TestLoadRules_UnknownRuleset(t *testing.T) {
	_, err := loadRules("", "nope", "", "")
	assert.Error(t, err)
}

func TestRunRulesPurgeCache(t *testing.T) {
	resetConfig(t)
	dir := t.TempDir()
	cfg.Set(keyRuleCache, dir)

	stale := filepath.Join(dir, strings.Repeat("ab", 28)+".yar")
	require.NoError(t, os.WriteFile(stale, []byte("rule stale { condition: true }"), 0600))

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	require.NoError(t, runRulesPurgeCache(cmd, nil))

	assert.Contains(t, buf.String(), "Removed 1 cached rule files from "+dir)
	assert.NoFileExists(t, stale)
}

func TestRunRulesPurgeCache_NotConfigured(t *testing.T) {
	resetConfig(t)
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runRulesPurgeCache(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rule cache configured")
}
