package matcher

import "go.uber.org/zap"

// Option configures an Exec matcher.
type Option func(*Exec)

// WithRunner replaces the process runner. Tests use this to stand in for
// the real executable.
func WithRunner(r Runner) Option {
	return func(e *Exec) {
		e.runner = r
	}
}

// WithTempDir places rule and item files in dir instead of os.TempDir.
func WithTempDir(dir string) Option {
	return func(e *Exec) {
		e.tempDir = dir
	}
}

// WithRuleCache reuses content-addressed rule files from cache instead of
// writing the rule document on every call.
func WithRuleCache(cache *RuleCache) Option {
	return func(e *Exec) {
		e.cache = cache
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Exec) {
		if logger != nil {
			e.logger = logger
		}
	}
}
