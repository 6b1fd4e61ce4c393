package matcher

import (
	"time"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// MatchResult carries matches together with details of the run that
// produced them.
type MatchResult struct {
	Matches  []*types.Match // in scanner output order
	Warnings string         // stderr of a successful run, trimmed
	Command  []string       // executable followed by its arguments
	Duration time.Duration  // wall time of the subprocess
}
