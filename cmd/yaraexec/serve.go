package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/yaraexec/pkg/scanner"
	"github.com/praetorian-inc/yaraexec/pkg/serve"
)

var (
	serveRulesPath string
	serveRuleset   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming NDJSON match server",
	Long: `Run as a long-lived server that accepts match requests on stdin and
writes results to stdout, one JSON object per line.

Rules are loaded once at startup and used for every request that does not
carry its own. The server exits when stdin closes, a close request
arrives, or SIGTERM is received.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveRulesPath, "rules", "", "Path to a rule file or directory (builtin rules when empty)")
	serveCmd.Flags().StringVar(&serveRuleset, "ruleset", "", "Builtin ruleset ID or ruleset YAML file")
}

func runServe(cmd *cobra.Command, args []string) error {
	rules, err := loadRules(serveRulesPath, serveRuleset, "", "")
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	m, err := newMatcher()
	if err != nil {
		return err
	}

	core, err := scanner.NewCore(m, rules, scanner.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating scanner: %w", err)
	}
	defer core.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving", zap.String("scan_id", core.ScanID()), zap.Int("rules", len(rules)))

	srv := serve.NewServer(core, cmd.InOrStdin(), cmd.OutOrStdout())
	srv.SetLogger(logger)
	return srv.Run(ctx)
}
