package matcher

import (
	"strings"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// ParseOutput converts scanner stdout into match records, one per
// non-blank line, in output order. Each line is split on single spaces;
// the first token is the rule identifier and all tokens are kept as Raw.
// It never fails: lines with a single token, or odd spacing, are passed
// through as-is.
func ParseOutput(output string) []*types.Match {
	matches := []*types.Match{}

	output = strings.TrimSpace(output)
	if output == "" {
		return matches
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		raw := strings.Split(line, " ")
		matches = append(matches, &types.Match{
			Rule: raw[0],
			Raw:  raw,
		})
	}

	return matches
}
