package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/praetorian-inc/yaraexec/pkg/matcher"
)

// Configuration keys. Each is settable from the config file, the named
// environment variable, or (for path and rule cache) a flag.
const (
	keyYaraPath  = "yara.path"
	keyYaraFlags = "yara.flags"
	keyRuleCache = "yara.rule-cache"
)

var (
	cfg     = viper.New()
	cfgFile string

	extraFlags     []string
	noDefaultFlags bool

	// runner replaces the process runner when set; tests use it.
	runner matcher.Runner
)

func addScannerFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (YAML)")
	flags.String("yara-path", "", "Directory prefix of the yara executable (including trailing separator)")
	flags.String("rule-cache", "", "Directory for content-addressed rule files (disabled when empty)")
	flags.StringArrayVar(&extraFlags, "flag", nil, "Extra yara flag, appended after the defaults (repeatable)")
	flags.BoolVar(&noDefaultFlags, "no-default-flags", false, "Do not pass the built-in default yara flags (configured flags are kept)")

	// Errors only occur for unknown flag names.
	_ = cfg.BindPFlag(keyYaraPath, flags.Lookup("yara-path"))
	_ = cfg.BindPFlag(keyRuleCache, flags.Lookup("rule-cache"))
	bindEnv(cfg)
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv(keyYaraPath, "YARAEXEC_PATH")
	_ = v.BindEnv(keyYaraFlags, "YARAEXEC_FLAGS")
	_ = v.BindEnv(keyRuleCache, "YARAEXEC_RULE_CACHE")
}

// initConfig reads the config file, if one was given.
func initConfig() error {
	if cfgFile == "" {
		return nil
	}
	cfg.SetConfigFile(cfgFile)
	if err := cfg.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", cfgFile, err)
	}
	return nil
}

// matcherConfig resolves the scanner invocation: configured flags, else the
// defaults unless disabled, plus repeated --flag values.
func matcherConfig() matcher.Config {
	var flags []string
	switch {
	case cfg.IsSet(keyYaraFlags):
		flags = cfg.GetStringSlice(keyYaraFlags)
	case !noDefaultFlags:
		flags = matcher.DefaultConfig().Flags()
	}

	c := matcher.NewConfig(cfg.GetString(keyYaraPath), flags...)
	for _, f := range extraFlags {
		c = c.WithFlag(f)
	}
	return c
}

// newMatcher builds the matcher from the resolved configuration.
func newMatcher() (*matcher.Exec, error) {
	opts := []matcher.Option{matcher.WithLogger(logger)}
	if runner != nil {
		opts = append(opts, matcher.WithRunner(runner))
	}

	if dir := cfg.GetString(keyRuleCache); dir != "" {
		cache, err := matcher.NewRuleCache(dir)
		if err != nil {
			return nil, fmt.Errorf("opening rule cache: %w", err)
		}
		opts = append(opts, matcher.WithRuleCache(cache))
	}

	mc := matcherConfig()
	logger.Debug("matcher configured",
		zap.String("command", mc.Command()),
		zap.Strings("flags", mc.Flags()))
	return matcher.New(mc, opts...), nil
}
