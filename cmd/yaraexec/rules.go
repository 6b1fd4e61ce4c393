package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/yaraexec/pkg/matcher"
	"github.com/praetorian-inc/yaraexec/pkg/rule"
	"github.com/praetorian-inc/yaraexec/pkg/types"
)

var (
	rulesPath    string
	rulesRuleset string
	outputFormat string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage YARA rules",
	Long:  "Commands for listing rule sources and rulesets",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available rules",
	Long:  "Display the rule sources that a scan would use, with their IDs and origin",
	RunE:  runRulesList,
}

var rulesetsListCmd = &cobra.Command{
	Use:   "rulesets",
	Short: "List builtin rulesets",
	RunE:  runRulesetsList,
}

var rulesPurgeCacheCmd = &cobra.Command{
	Use:   "purge-cache",
	Short: "Remove cached rule files",
	Long:  "Delete the content-addressed rule files in the --rule-cache directory",
	RunE:  runRulesPurgeCache,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesetsListCmd)
	rulesCmd.AddCommand(rulesPurgeCacheCmd)
	rulesListCmd.Flags().StringVar(&rulesPath, "rules", "", "Path to a rule file or directory")
	rulesListCmd.Flags().StringVar(&rulesRuleset, "ruleset", "", "Builtin ruleset ID or ruleset YAML file")
	rulesListCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json")
	rulesetsListCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json")
}

func runRulesList(cmd *cobra.Command, args []string) error {
	rules, err := loadRules(rulesPath, rulesRuleset, "", "")
	if err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		return writeJSON(cmd, rules)
	case "table":
		return outputRulesTable(cmd, rules)
	default:
		return fmt.Errorf("unknown output format: %s", outputFormat)
	}
}

func runRulesPurgeCache(cmd *cobra.Command, args []string) error {
	dir := cfg.GetString(keyRuleCache)
	if dir == "" {
		return fmt.Errorf("no rule cache configured (set --rule-cache or yara.rule-cache)")
	}

	cache, err := matcher.NewRuleCache(dir)
	if err != nil {
		return fmt.Errorf("opening rule cache: %w", err)
	}
	n, err := cache.Purge()
	if err != nil {
		return fmt.Errorf("purging rule cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached rule files from %s\n", n, cache.Dir())
	return nil
}

func runRulesetsList(cmd *cobra.Command, args []string) error {
	rulesets, err := rule.NewLoader().LoadBuiltinRulesets()
	if err != nil {
		return fmt.Errorf("loading builtin rulesets: %w", err)
	}

	switch outputFormat {
	case "json":
		return writeJSON(cmd, rulesets)
	case "table":
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintf(w, "ID\tName\tRules\n")
		fmt.Fprintf(w, "--\t----\t-----\n")
		for _, rs := range rulesets {
			fmt.Fprintf(w, "%s\t%s\t%s\n", rs.ID, rs.Name, strings.Join(rs.RuleIDs, ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", outputFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// loadRules loads rule sources from path (builtin when empty), narrows them
// to a ruleset when one is named, then applies include/exclude patterns.
func loadRules(path, ruleset, include, exclude string) ([]*types.RuleSource, error) {
	loader := rule.NewLoader()

	var rules []*types.RuleSource
	var err error
	if path != "" {
		rules, err = loader.LoadPath(path)
		if err != nil {
			return nil, fmt.Errorf("loading rules from %s: %w", path, err)
		}
	} else {
		rules, err = loader.LoadBuiltinRules()
		if err != nil {
			return nil, fmt.Errorf("loading builtin rules: %w", err)
		}
	}

	if ruleset != "" {
		rs, err := resolveRuleset(loader, ruleset)
		if err != nil {
			return nil, err
		}
		rules, err = rule.SelectRuleset(rules, rs)
		if err != nil {
			return nil, fmt.Errorf("selecting ruleset %s: %w", rs.ID, err)
		}
	}

	if include != "" || exclude != "" {
		rules, err = rule.Filter(rules, rule.FilterConfig{
			Include: rule.ParsePatterns(include),
			Exclude: rule.ParsePatterns(exclude),
		})
		if err != nil {
			return nil, fmt.Errorf("filtering rules: %w", err)
		}
	}

	return rules, nil
}

// resolveRuleset treats name as a YAML file when one exists at that path,
// and as a builtin ruleset ID otherwise.
func resolveRuleset(loader *rule.Loader, name string) (*types.Ruleset, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".yml" || ext == ".yaml" {
		if _, err := os.Stat(name); err == nil {
			rs, err := loader.LoadRulesetFile(name)
			if err != nil {
				return nil, fmt.Errorf("loading ruleset %s: %w", name, err)
			}
			return rs, nil
		}
	}
	return loader.FindBuiltinRuleset(name)
}

func writeJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputRulesTable(cmd *cobra.Command, rules []*types.RuleSource) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "ID\tPath\tSize\n")
	fmt.Fprintf(w, "--\t----\t----\n")

	for _, r := range rules {
		fmt.Fprintf(w, "%s\t%s\t%d\n", r.ID, r.Path, len(r.Source))
	}

	return nil
}
