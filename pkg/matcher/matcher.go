package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// Matcher scans a single item against a set of rule sources.
type Matcher interface {
	// Match returns one record per rule the scanner reported, in the order
	// the scanner printed them. An item with no matches yields an empty slice.
	Match(ctx context.Context, rules []string, item []byte) ([]*types.Match, error)
}

// Exec is a Matcher that runs the yara executable once per call.
//
// Every call writes the rule document and the item to their own temporary
// files, runs "<path>yara <flags...> <rule-file> <item-file>", and removes
// both files before returning, whether or not the scan succeeded. Exec holds
// no mutable state and is safe for concurrent use.
type Exec struct {
	config  Config
	runner  Runner
	tempDir string
	cache   *RuleCache
	logger  *zap.Logger
}

var _ Matcher = (*Exec)(nil)

// New creates an Exec matcher for cfg.
func New(cfg Config, opts ...Option) *Exec {
	e := &Exec{
		config: cfg,
		runner: ExecRunner{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the invocation config.
func (e *Exec) Config() Config {
	return e.config
}

// Match implements Matcher.
func (e *Exec) Match(ctx context.Context, rules []string, item []byte) ([]*types.Match, error) {
	result, err := e.MatchDetailed(ctx, rules, item)
	if err != nil {
		return nil, err
	}
	return result.Matches, nil
}

// MatchDetailed is Match with run details attached.
//
// A non-zero exit returns a *ScanExecutionError and no matches. A failure
// handling the temporary files returns an *IOError. If the scan succeeded
// but a temporary file could not be removed, the IOError is returned in
// place of the result.
func (e *Exec) MatchDetailed(ctx context.Context, rules []string, item []byte) (result *MatchResult, err error) {
	var owned []string
	defer func() {
		rmErr := removeAll(owned)
		if rmErr == nil {
			return
		}
		if err == nil {
			result, err = nil, rmErr
			return
		}
		e.logger.Warn("removing temp files after failed scan", zap.Error(rmErr))
	}()

	ruleFile, err := e.ruleFile(types.JoinRules(rules))
	if err != nil {
		return nil, err
	}
	if e.cache == nil {
		owned = append(owned, ruleFile)
	}

	itemFile, err := writeTemp(e.tempDir, item)
	if err != nil {
		return nil, err
	}
	owned = append(owned, itemFile)

	name := e.config.Command()
	args := e.config.Args(ruleFile, itemFile)
	command := append([]string{name}, args...)

	e.logger.Debug("running scanner",
		zap.Strings("command", command),
		zap.Int("rules", len(rules)),
		zap.Int("item_bytes", len(item)))

	start := time.Now()
	stdout, stderr, runErr := e.runner.Run(ctx, name, args)
	elapsed := time.Since(start)

	if runErr != nil {
		return nil, executionError(ctx, command, stdout, stderr, runErr)
	}

	matches := ParseOutput(string(stdout))
	warnings := strings.TrimSpace(string(stderr))
	e.logger.Debug("scanner finished",
		zap.Int("matches", len(matches)),
		zap.Duration("duration", elapsed))
	if warnings != "" {
		e.logger.Warn("scanner reported warnings",
			zap.Strings("command", command),
			zap.String("warnings", warnings))
	}

	return &MatchResult{
		Matches:  matches,
		Warnings: warnings,
		Command:  command,
		Duration: elapsed,
	}, nil
}

func (e *Exec) ruleFile(document string) (string, error) {
	if e.cache != nil {
		return e.cache.Path(document)
	}
	return writeTemp(e.tempDir, []byte(document))
}

func executionError(ctx context.Context, command []string, stdout, stderr []byte, err error) *ScanExecutionError {
	exitCode := -1
	var exited interface{ ExitCode() int }
	if errors.As(err, &exited) {
		exitCode = exited.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}

	diag := stderr
	if len(strings.TrimSpace(string(diag))) == 0 {
		diag = stdout
	}

	return &ScanExecutionError{
		Command:  command,
		ExitCode: exitCode,
		Output:   string(diag),
		Err:      err,
	}
}
