package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetConfig clears scanner configuration state shared across commands.
func resetConfig(t *testing.T) {
	t.Helper()
	prevCfg, prevFlags, prevNoDefault, prevFile := cfg, extraFlags, noDefaultFlags, cfgFile
	cfg = viper.New()
	bindEnv(cfg)
	extraFlags = nil
	noDefaultFlags = false
	cfgFile = ""
	t.Cleanup(func() {
		cfg, extraFlags, noDefaultFlags, cfgFile = prevCfg, prevFlags, prevNoDefault, prevFile
	})
}

func TestMatcherConfig_Defaults(t *testing.T) {
	resetConfig(t)

	c := matcherConfig()
	assert.Equal(t, "yara", c.Command())
	assert.Equal(t, []string{"-w"}, c.Flags())
}

func TestMatcherConfig_ExtraFlagsAppend(t *testing.T) {
	resetConfig(t)
	extraFlags = []string{"-s", "-s"}

	c := matcherConfig()
	assert.Equal(t, []string{"-w", "-s", "-s"}, c.Flags())
}

func TestMatcherConfig_NoDefaultFlags(t *testing.T) {
	resetConfig(t)
	noDefaultFlags = true
	extraFlags = []string{"-m"}

	c := matcherConfig()
	assert.Equal(t, []string{"-m"}, c.Flags())
}

func TestMatcherConfig_NoDefaultFlagsKeepsConfiguredFlags(t *testing.T) {
	resetConfig(t)
	t.Setenv("YARAEXEC_FLAGS", "-f")
	noDefaultFlags = true
	extraFlags = []string{"-m"}

	c := matcherConfig()
	assert.Equal(t, []string{"-f", "-m"}, c.Flags())
}

func TestMatcherConfig_Environment(t *testing.T) {
	resetConfig(t)
	t.Setenv("YARAEXEC_PATH", "/opt/yara/bin/")
	t.Setenv("YARAEXEC_FLAGS", "-w -f")

	c := matcherConfig()
	assert.Equal(t, "/opt/yara/bin/yara", c.Command())
	assert.Equal(t, []string{"-w", "-f"}, c.Flags())
}

func TestInitConfig_File(t *testing.T) {
	resetConfig(t)
	path := filepath.Join(t.TempDir(), "yaraexec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("yara:\n  path: /usr/local/bin/\n  flags: [\"-s\"]\n"), 0644))
	cfgFile = path

	require.NoError(t, initConfig())

	c := matcherConfig()
	assert.Equal(t, "/usr/local/bin/yara", c.Command())
	assert.Equal(t, []string{"-s"}, c.Flags())
}

func TestInitConfig_MissingFile(t *testing.T) {
	resetConfig(t)
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")

	err := initConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestNewMatcher_RuleCache(t *testing.T) {
	resetConfig(t)
	dir := filepath.Join(t.TempDir(), "cache")
	cfg.Set(keyRuleCache, dir)

	m, err := newMatcher()
	require.NoError(t, err)
	assert.Equal(t, "yara", m.Config().Command())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
