// Package yaraexec scans content with YARA rules by running the yara
// executable as a subprocess.
//
// Each scan writes the rule text and the item to temporary files, runs
// "yara <flags...> <rule-file> <item-file>", and turns every line yara
// prints into a Match. The temporary files are removed before the call
// returns.
//
// # Basic Usage
//
// Create a scanner with builtin rules and scan content:
//
//	scanner, err := yaraexec.NewScanner()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	matches, err := scanner.ScanString(ctx, content)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, match := range matches {
//	    fmt.Printf("Matched %s\n", match.Rule)
//	}
//
// # Custom Invocation
//
// Point at a specific yara build and pass extra flags:
//
//	scanner, err := yaraexec.NewScanner(
//	    yaraexec.WithPath("/opt/yara/bin/"),
//	    yaraexec.WithFlag("-s"),
//	)
package yaraexec

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/praetorian-inc/yaraexec/pkg/matcher"
	"github.com/praetorian-inc/yaraexec/pkg/rule"
	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// Re-export commonly used types for convenience.
// Users can import just "github.com/praetorian-inc/yaraexec" without subpackages.
type (
	// Match is one line of scanner output: the rule name and its tokens.
	Match = types.Match

	// RuleSource is a named piece of rule text.
	RuleSource = types.RuleSource

	// Config locates the yara executable and holds its flags.
	Config = matcher.Config

	// Runner executes the scanner process.
	Runner = matcher.Runner

	// ScanExecutionError reports a scanner that exited unsuccessfully.
	ScanExecutionError = matcher.ScanExecutionError

	// IOError reports a temporary file that could not be created, written or removed.
	IOError = matcher.IOError
)

// DefaultConfig returns the default invocation: "yara -w" from PATH.
func DefaultConfig() Config {
	return matcher.DefaultConfig()
}

// ParseOutput splits scanner output into match records.
func ParseOutput(output string) []*Match {
	return matcher.ParseOutput(output)
}

// MatchItem runs one scan of item against rules with cfg.
func MatchItem(ctx context.Context, cfg Config, rules []string, item []byte) ([]*Match, error) {
	return matcher.New(cfg).Match(ctx, rules, item)
}

// Scanner scans content against a fixed set of rules.
type Scanner struct {
	matcher *matcher.Exec
	rules   []*RuleSource
	sources []string
}

// scannerConfig holds scanner configuration.
type scannerConfig struct {
	rules        []*RuleSource
	config       Config
	ruleCacheDir string
	tempDir      string
	logger       *zap.Logger
	runner       Runner
}

// Option configures a Scanner.
type Option func(*scannerConfig)

// WithRules uses custom rules instead of builtin rules.
func WithRules(rules []*RuleSource) Option {
	return func(c *scannerConfig) {
		c.rules = rules
	}
}

// WithFlags replaces the scanner flags.
func WithFlags(flags ...string) Option {
	return func(c *scannerConfig) {
		c.config = c.config.WithFlags(flags...)
	}
}

// WithFlag appends one scanner flag after the existing ones.
func WithFlag(flag string) Option {
	return func(c *scannerConfig) {
		c.config = c.config.WithFlag(flag)
	}
}

// WithPath sets the prefix prepended to the executable name, such as
// "/opt/yara/bin/". An empty path resolves yara through PATH.
func WithPath(path string) Option {
	return func(c *scannerConfig) {
		c.config = c.config.WithPath(path)
	}
}

// WithRuleCacheDir keeps rule files in dir, keyed by their content,
// instead of writing the rules for every scan.
func WithRuleCacheDir(dir string) Option {
	return func(c *scannerConfig) {
		c.ruleCacheDir = dir
	}
}

// WithTempDir places temporary files in dir.
func WithTempDir(dir string) Option {
	return func(c *scannerConfig) {
		c.tempDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *scannerConfig) {
		c.logger = logger
	}
}

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(c *scannerConfig) {
		c.runner = r
	}
}

// NewScanner creates a new scanner with the given options.
//
// By default, the scanner:
//   - Uses all builtin rules
//   - Runs "yara -w" from PATH
//   - Writes the rules for every scan (no rule cache)
func NewScanner(opts ...Option) (*Scanner, error) {
	config := &scannerConfig{
		config: matcher.DefaultConfig(),
	}

	for _, opt := range opts {
		opt(config)
	}

	if config.rules == nil {
		rules, err := LoadBuiltinRules()
		if err != nil {
			return nil, fmt.Errorf("loading builtin rules: %w", err)
		}
		config.rules = rules
	}

	var mopts []matcher.Option
	if config.logger != nil {
		mopts = append(mopts, matcher.WithLogger(config.logger))
	}
	if config.runner != nil {
		mopts = append(mopts, matcher.WithRunner(config.runner))
	}
	if config.tempDir != "" {
		mopts = append(mopts, matcher.WithTempDir(config.tempDir))
	}
	if config.ruleCacheDir != "" {
		cache, err := matcher.NewRuleCache(config.ruleCacheDir)
		if err != nil {
			return nil, fmt.Errorf("creating rule cache: %w", err)
		}
		mopts = append(mopts, matcher.WithRuleCache(cache))
	}

	return &Scanner{
		matcher: matcher.New(config.config, mopts...),
		rules:   config.rules,
		sources: rule.Sources(config.rules),
	}, nil
}

// ScanString scans a string with the scanner's rules.
func (s *Scanner) ScanString(ctx context.Context, content string) ([]*Match, error) {
	return s.ScanBytes(ctx, []byte(content))
}

// ScanBytes scans raw bytes with the scanner's rules.
func (s *Scanner) ScanBytes(ctx context.Context, content []byte) ([]*Match, error) {
	return s.matcher.Match(ctx, s.sources, content)
}

// ScanFile reads and scans a file.
func (s *Scanner) ScanFile(ctx context.Context, path string) ([]*Match, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return s.ScanBytes(ctx, content)
}

// Match scans item against rules instead of the scanner's own.
func (s *Scanner) Match(ctx context.Context, rules []string, item []byte) ([]*Match, error) {
	return s.matcher.Match(ctx, rules, item)
}

// Config returns the scanner invocation.
func (s *Scanner) Config() Config {
	return s.matcher.Config()
}

// RuleCount returns the number of rules loaded.
func (s *Scanner) RuleCount() int {
	return len(s.rules)
}

// Rules returns a copy of the loaded rules.
func (s *Scanner) Rules() []*RuleSource {
	rules := make([]*RuleSource, len(s.rules))
	copy(rules, s.rules)
	return rules
}

// LoadRules loads rules from a .yar/.yara file or a directory of them.
//
// Example:
//
//	rules, err := yaraexec.LoadRules("/path/to/rules")
//	if err != nil {
//	    return err
//	}
//	scanner, err := yaraexec.NewScanner(yaraexec.WithRules(rules))
func LoadRules(path string) ([]*RuleSource, error) {
	return rule.NewLoader().LoadPath(path)
}

// LoadBuiltinRules returns all builtin rules.
func LoadBuiltinRules() ([]*RuleSource, error) {
	return rule.NewLoader().LoadBuiltinRules()
}
