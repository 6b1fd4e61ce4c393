package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/praetorian-inc/yaraexec/pkg/sarif"
	"github.com/praetorian-inc/yaraexec/pkg/store"
	"github.com/praetorian-inc/yaraexec/pkg/types"
)

var (
	reportDatastore string
	reportFormat    string
	reportColor     string
)

// styles holds color formatters for human output
type styles struct {
	itemHeading *color.Color
	id          *color.Color
	ruleName    *color.Color
	heading     *color.Color
	match       *color.Color
	metadata    *color.Color
}

// newStyles creates color formatters for report output
// enabled=false respects --color=never and the NO_COLOR env var
func newStyles(enabled bool) *styles {
	s := &styles{
		itemHeading: color.New(color.Bold, color.FgHiWhite),
		id:          color.New(color.FgHiGreen),
		ruleName:    color.New(color.Bold, color.FgHiBlue),
		heading:     color.New(color.Bold),
		match:       color.New(color.FgYellow),
		metadata:    color.New(color.FgHiBlue),
	}

	for _, c := range []*color.Color{s.itemHeading, s.id, s.ruleName, s.heading, s.match, s.metadata} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return s
}

// colorEnabled resolves a --color mode against the output writer.
func colorEnabled(mode string, out io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		f, ok := out.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("unknown color mode: %s", mode)
	}
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a report from scan results",
	Long:  "Read matched items from a datastore and output a report",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDatastore, "datastore", "yaraexec.db", "Path to datastore file")
	reportCmd.Flags().StringVar(&reportFormat, "format", "human", "Output format: human, json, sarif")
	reportCmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportDatastore == store.MemoryPath {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if _, err := os.Stat(reportDatastore); err != nil {
		return fmt.Errorf("datastore not found: %s", reportDatastore)
	}

	s, err := store.New(store.Config{Path: reportDatastore})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer s.Close()

	results, err := s.GetResults()
	if err != nil {
		return fmt.Errorf("retrieving results: %w", err)
	}

	switch reportFormat {
	case "json":
		return writeJSON(cmd, results)
	case "sarif":
		return outputSARIF(cmd, results)
	case "human":
		scans, err := s.GetScans()
		if err != nil {
			return fmt.Errorf("retrieving scans: %w", err)
		}
		enabled, err := colorEnabled(reportColor, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		st := newStyles(enabled)
		outputScansHuman(cmd.OutOrStdout(), st, scans)
		outputResultsHuman(cmd.OutOrStdout(), st, results)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", reportFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func outputSARIF(cmd *cobra.Command, results []*types.ItemResult) error {
	jsonBytes, err := sarif.FromResults(results).ToJSON()
	if err != nil {
		return fmt.Errorf("serializing SARIF: %w", err)
	}
	if _, err := cmd.OutOrStdout().Write(append(jsonBytes, '\n')); err != nil {
		return fmt.Errorf("writing SARIF output: %w", err)
	}
	return nil
}

func outputScansHuman(out io.Writer, s *styles, scans []store.Scan) {
	for _, scan := range scans {
		fmt.Fprintf(out, "%s %s %s %s\n",
			s.heading.Sprint("Scan"),
			s.id.Sprint(scan.ID),
			s.heading.Sprint("started"),
			s.metadata.Sprint(scan.StartedAt.Format("2006-01-02 15:04:05 MST")))
		if len(scan.Command) > 0 {
			fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Command:"), strings.Join(scan.Command, " "))
		}
	}
	if len(scans) > 0 {
		fmt.Fprintln(out)
	}
}

// outputResultsHuman prints each matched item with its paths and the
// scanner's raw output lines.
func outputResultsHuman(out io.Writer, s *styles, results []*types.ItemResult) {
	if len(results) == 0 {
		fmt.Fprintf(out, "No matches.\n")
		return
	}

	total := len(results)
	for i, r := range results {
		fmt.Fprintf(out, "%s (%s %s)\n",
			s.itemHeading.Sprintf("Item %d/%d", i+1, total),
			s.heading.Sprint("id"),
			s.id.Sprint(r.ItemID.Hex()))

		for _, path := range r.Paths {
			fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Path:"), s.metadata.Sprint(path))
		}
		fmt.Fprintf(out, "%s %d bytes\n", s.heading.Sprint("Size:"), r.Size)

		names := make([]string, 0, len(r.Matches))
		for _, id := range r.RuleIDs() {
			names = append(names, s.ruleName.Sprint(id))
		}
		fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Rules:"), strings.Join(names, ", "))

		for _, m := range r.Matches {
			fmt.Fprintf(out, "    %s\n", s.match.Sprint(strings.Join(m.Raw, " ")))
		}
		fmt.Fprintf(out, "\n")
	}
}
