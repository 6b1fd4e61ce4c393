package rule

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// Extensions recognised as rule source files.
var Extensions = []string{".yar", ".yara"}

// Loader reads rule sources and rulesets.
type Loader struct {
	rules    fs.FS // holds rules/*.yar
	rulesets fs.FS // holds rulesets/*.yml
}

// NewLoader creates a loader backed by the embedded built-in rules.
func NewLoader() *Loader {
	return &Loader{
		rules:    builtinRulesFS,
		rulesets: builtinRulesetsFS,
	}
}

// NewLoaderWithFS creates a loader whose built-in rules and rulesets come
// from fsys, laid out as rules/ and rulesets/.
func NewLoaderWithFS(fsys fs.FS) *Loader {
	return &Loader{
		rules:    fsys,
		rulesets: fsys,
	}
}

// LoadRuleSource builds a rule source from raw text. The ID is the file
// stem of path.
func (l *Loader) LoadRuleSource(path string, data []byte) (*types.RuleSource, error) {
	r := &types.RuleSource{
		ID:     ruleID(path),
		Path:   path,
		Source: string(data),
	}
	if err := ValidateRuleSource(r); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadRuleFile loads a single rule source file.
func (l *Loader) LoadRuleFile(path string) (*types.RuleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return l.LoadRuleSource(path, data)
}

// LoadPath loads a rule file, or every rule file below a directory.
// Directory results are sorted by path so the rule document is stable.
func (l *Loader) LoadPath(path string) ([]*types.RuleSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		r, err := l.LoadRuleFile(path)
		if err != nil {
			return nil, err
		}
		return []*types.RuleSource{r}, nil
	}

	var paths []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isRuleFile(p) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no rule files (%s) found in %s", strings.Join(Extensions, ", "), path)
	}
	sort.Strings(paths)

	rules := make([]*types.RuleSource, 0, len(paths))
	for _, p := range paths {
		r, err := l.LoadRuleFile(p)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// LoadBuiltinRules loads all built-in rule sources, sorted by ID.
func (l *Loader) LoadBuiltinRules() ([]*types.RuleSource, error) {
	var rules []*types.RuleSource

	err := fs.WalkDir(l.rules, "rules", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isRuleFile(path) {
			return nil
		}

		data, err := fs.ReadFile(l.rules, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		r, err := l.LoadRuleSource(path, data)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		rules = append(rules, r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

// LoadRuleset loads a ruleset from YAML bytes.
// Returns error if YAML is invalid or multiple rulesets are present.
func (l *Loader) LoadRuleset(data []byte) (*types.Ruleset, error) {
	var yamlFile yamlRulesetsFile
	if err := yaml.Unmarshal(data, &yamlFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(yamlFile.Rulesets) == 0 {
		return nil, fmt.Errorf("no rulesets found in YAML")
	}
	if len(yamlFile.Rulesets) > 1 {
		return nil, fmt.Errorf("expected single ruleset, found %d", len(yamlFile.Rulesets))
	}

	return convertYAMLRuleset(yamlFile.Rulesets[0]), nil
}

// LoadRulesetFile loads a ruleset from a YAML file path.
func (l *Loader) LoadRulesetFile(path string) (*types.Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return l.LoadRuleset(data)
}

// LoadBuiltinRulesets loads all built-in rulesets.
func (l *Loader) LoadBuiltinRulesets() ([]*types.Ruleset, error) {
	var rulesets []*types.Ruleset

	err := fs.WalkDir(l.rulesets, "rulesets", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yml" {
			return nil
		}

		data, err := fs.ReadFile(l.rulesets, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var yamlFile yamlRulesetsFile
		if err := yaml.Unmarshal(data, &yamlFile); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for _, yrs := range yamlFile.Rulesets {
			rulesets = append(rulesets, convertYAMLRuleset(yrs))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rulesets, nil
}

// FindBuiltinRuleset returns the built-in ruleset with the given ID.
func (l *Loader) FindBuiltinRuleset(id string) (*types.Ruleset, error) {
	rulesets, err := l.LoadBuiltinRulesets()
	if err != nil {
		return nil, err
	}
	for _, rs := range rulesets {
		if rs.ID == id {
			return rs, nil
		}
	}
	return nil, fmt.Errorf("unknown ruleset: %s", id)
}

// Sources extracts rule text in order, ready to hand to a matcher.
func Sources(rules []*types.RuleSource) []string {
	sources := make([]string, len(rules))
	for i, r := range rules {
		sources[i] = r.Source
	}
	return sources
}

func convertYAMLRuleset(yrs yamlRuleset) *types.Ruleset {
	return &types.Ruleset{
		ID:          yrs.ID,
		Name:        yrs.Name,
		Description: yrs.Description,
		RuleIDs:     yrs.RuleIDs,
	}
}

func ruleID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isRuleFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
