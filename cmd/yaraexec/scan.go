package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/yaraexec/pkg/enum"
	"github.com/praetorian-inc/yaraexec/pkg/scanner"
	"github.com/praetorian-inc/yaraexec/pkg/store"
	"github.com/praetorian-inc/yaraexec/pkg/types"
)

var (
	scanRulesPath       string
	scanRulesInclude    string
	scanRulesExclude    string
	scanRuleset         string
	scanOutputPath      string
	scanOutputFormat    string
	scanColor           string
	scanGit             bool
	scanRevision        string
	scanMaxFileSize     int64
	scanIncludeHidden   bool
	scanExtractArchives bool
	scanIncremental     bool
	scanWorkers         int
)

var scanCmd = &cobra.Command{
	Use:   "scan <target>...",
	Short: "Scan targets with YARA rules",
	Long: `Scan files, directories, or git repositories with YARA rules, one yara
process per item. Items with identical content across targets are scanned once.`,
	Args: cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanRulesPath, "rules", "", "Path to a rule file or directory (builtin rules when empty)")
	scanCmd.Flags().StringVar(&scanRulesInclude, "rules-include", "", "Include rules whose ID matches regex pattern (comma-separated)")
	scanCmd.Flags().StringVar(&scanRulesExclude, "rules-exclude", "", "Exclude rules whose ID matches regex pattern (comma-separated)")
	scanCmd.Flags().StringVar(&scanRuleset, "ruleset", "", "Builtin ruleset ID or ruleset YAML file")
	scanCmd.Flags().StringVar(&scanOutputPath, "output", "yaraexec.db", "Output datastore path (:memory: for none)")
	scanCmd.Flags().StringVar(&scanOutputFormat, "format", "human", "Output format: human, json, sarif")
	scanCmd.Flags().StringVar(&scanColor, "color", "auto", "Color output: auto, always, never")
	scanCmd.Flags().BoolVar(&scanGit, "git", false, "Treat target as a git repository and scan the tree at --revision")
	scanCmd.Flags().StringVar(&scanRevision, "revision", "HEAD", "Git revision to scan with --git")
	scanCmd.Flags().Int64Var(&scanMaxFileSize, "max-file-size", 10*1024*1024, "Maximum item size to scan (bytes, 0 for no limit)")
	scanCmd.Flags().BoolVar(&scanIncludeHidden, "include-hidden", false, "Include hidden files and directories")
	scanCmd.Flags().BoolVar(&scanExtractArchives, "extract-archives", false, "Also scan the members of zip and 7z archives")
	scanCmd.Flags().BoolVar(&scanIncremental, "incremental", false, "Skip items already recorded in the datastore")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", runtime.NumCPU(), "Number of concurrent yara processes")
}

// scanStats counts scan outcomes across workers.
type scanStats struct {
	items   atomic.Int64
	matched atomic.Int64
	matches atomic.Int64
	skipped atomic.Int64
}

func runScan(cmd *cobra.Command, args []string) error {
	for _, target := range args {
		if _, err := os.Stat(target); err != nil {
			return fmt.Errorf("target does not exist: %s", target)
		}
	}
	if scanWorkers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	switch scanOutputFormat {
	case "human", "json", "sarif":
	default:
		return fmt.Errorf("unknown output format: %s", scanOutputFormat)
	}

	rules, err := loadRules(scanRulesPath, scanRuleset, scanRulesInclude, scanRulesExclude)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	if len(rules) == 0 {
		return fmt.Errorf("no rules selected")
	}

	m, err := newMatcher()
	if err != nil {
		return err
	}

	s, err := store.New(store.Config{Path: scanOutputPath})
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer s.Close()

	core, err := scanner.NewCore(m, rules,
		scanner.WithStore(s),
		scanner.WithIncremental(scanIncremental),
		scanner.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating scanner: %w", err)
	}
	defer core.Close()

	enumerator := createEnumerator(args)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("scan started",
		zap.String("scan_id", core.ScanID()),
		zap.Strings("targets", args),
		zap.Int("rules", len(rules)),
		zap.Int("workers", scanWorkers))

	stats, err := scanTarget(ctx, core, enumerator, scanWorkers)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	logger.Info("scan finished",
		zap.String("scan_id", core.ScanID()),
		zap.Int64("items", stats.items.Load()),
		zap.Int64("matches", stats.matches.Load()))

	// Summary goes to stderr for json/sarif to keep stdout machine-readable.
	summary := cmd.OutOrStdout()
	if scanOutputFormat != "human" {
		summary = cmd.ErrOrStderr()
	}
	fmt.Fprintf(summary, "Scan complete: %d items, %d matched, %d matches", stats.items.Load(), stats.matched.Load(), stats.matches.Load())
	if scanIncremental {
		fmt.Fprintf(summary, " (%d items skipped)", stats.skipped.Load())
	}
	fmt.Fprintf(summary, "\n")
	if scanOutputPath != store.MemoryPath {
		fmt.Fprintf(summary, "Results stored in: %s\n", scanOutputPath)
	}

	results, err := s.GetResults()
	if err != nil {
		return fmt.Errorf("retrieving results: %w", err)
	}

	switch scanOutputFormat {
	case "json":
		return writeJSON(cmd, results)
	case "sarif":
		return outputSARIF(cmd, results)
	default:
		enabled, err := colorEnabled(scanColor, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
		outputResultsHuman(cmd.OutOrStdout(), newStyles(enabled), results)
		return nil
	}
}

// scanTarget enumerates items and scans them on a bounded pool of workers,
// one yara process per item. The first error stops enumeration.
func scanTarget(ctx context.Context, core *scanner.Core, enumerator enum.Enumerator, workers int) (*scanStats, error) {
	stats := &scanStats{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	enumErr := enumerator.Enumerate(gctx, func(content []byte, id types.ItemID, prov types.Provenance) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			result, err := core.ScanItem(gctx, content, prov)
			if err != nil {
				return err
			}
			stats.items.Add(1)
			if result.Skipped {
				stats.skipped.Add(1)
			}
			if n := len(result.Matches); n > 0 {
				stats.matched.Add(1)
				stats.matches.Add(int64(n))
			}
			return nil
		})
		return nil
	})

	// A worker error cancels gctx, which surfaces from Enumerate as a
	// context error; report the worker's error instead.
	if err := g.Wait(); err != nil {
		return stats, err
	}
	if enumErr != nil {
		return stats, enumErr
	}
	return stats, nil
}

// createEnumerator returns the enumerator for targets, deduplicating items
// by ItemID across targets when there is more than one.
func createEnumerator(targets []string) enum.Enumerator {
	if len(targets) == 1 {
		return targetEnumerator(targets[0])
	}
	enumerators := make([]enum.Enumerator, 0, len(targets))
	for _, target := range targets {
		enumerators = append(enumerators, targetEnumerator(target))
	}
	return enum.NewCombinedEnumerator(enumerators...)
}

func targetEnumerator(target string) enum.Enumerator {
	config := enum.Config{
		Root:            target,
		IncludeHidden:   scanIncludeHidden,
		MaxFileSize:     scanMaxFileSize,
		FollowSymlinks:  false,
		ExtractArchives: scanExtractArchives,
	}

	if scanGit {
		e := enum.NewGitEnumerator(config)
		e.Revision = scanRevision
		return e
	}

	return enum.NewFilesystemEnumerator(config)
}
