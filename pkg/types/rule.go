package types

import "strings"

// RuleSource is one rule source file as handed to the scanner.
// The source text is opaque; it is never parsed here.
type RuleSource struct {
	ID     string `json:"id"`             // file stem, e.g. "eicar"
	Path   string `json:"path,omitempty"` // origin on disk or in the embedded FS
	Source string `json:"source"`
}

// Ruleset groups rule sources by ID.
type Ruleset struct {
	ID          string
	Name        string
	Description string
	RuleIDs     []string
}

// JoinRules concatenates rule sources with newline separators into the
// single rule document written for one scan.
func JoinRules(rules []string) string {
	return strings.Join(rules, "\n")
}
