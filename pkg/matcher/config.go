package matcher

import "slices"

// Executable is the scanner binary name appended to the path prefix.
const Executable = "yara"

// DefaultFlag makes the scanner suppress warnings.
const DefaultFlag = "-w"

// Config describes how the scanner is invoked: an ordered list of flags
// and a path prefix that, concatenated with Executable, names the binary.
// An empty prefix resolves the binary through PATH.
//
// Config is a value. WithFlags, WithFlag and WithPath return modified
// copies and never alter the receiver, so a Config can be shared freely
// between goroutines.
type Config struct {
	flags []string
	path  string
}

// NewConfig returns a Config with the given path prefix and flags.
func NewConfig(path string, flags ...string) Config {
	return Config{flags: slices.Clone(flags), path: path}
}

// DefaultConfig returns a Config that runs "yara -w" from PATH.
func DefaultConfig() Config {
	return NewConfig("", DefaultFlag)
}

// Flags returns a copy of the configured flags.
func (c Config) Flags() []string {
	return slices.Clone(c.flags)
}

// Path returns the executable path prefix.
func (c Config) Path() string {
	return c.path
}

// WithFlags returns a copy of c whose flags are replaced wholesale.
func (c Config) WithFlags(flags ...string) Config {
	c.flags = slices.Clone(flags)
	return c
}

// WithFlag returns a copy of c with flag appended. Duplicates are kept.
func (c Config) WithFlag(flag string) Config {
	flags := make([]string, 0, len(c.flags)+1)
	flags = append(flags, c.flags...)
	c.flags = append(flags, flag)
	return c
}

// WithPath returns a copy of c with the path prefix replaced.
func (c Config) WithPath(path string) Config {
	c.path = path
	return c
}

// Command returns the executable to run: the path prefix followed by "yara".
func (c Config) Command() string {
	return c.path + Executable
}

// Args builds the argument vector: flags, then the rule file, then the item file.
func (c Config) Args(ruleFile, itemFile string) []string {
	args := make([]string, 0, len(c.flags)+2)
	args = append(args, c.flags...)
	return append(args, ruleFile, itemFile)
}
