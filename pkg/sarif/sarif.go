package sarif

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// SARIF 2.1.0 constants
const (
	SchemaURI   = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	Version     = "2.1.0"
	ToolName    = "yaraexec"
	ToolVersion = "0.1.0"
)

// Report is the top-level SARIF report structure
type Report struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Run  `json:"runs"`
}

// Run represents a single invocation of the tool
type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

// Tool describes the analysis tool
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver contains tool metadata
type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Rules   []Rule `json:"rules,omitempty"`
}

// Rule represents a YARA rule
type Rule struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	ShortDescription ShortDescription `json:"shortDescription"`
}

// ShortDescription contains rule description text
type ShortDescription struct {
	Text string `json:"text"`
}

// Result represents a single match
type Result struct {
	RuleID     string      `json:"ruleId"`
	RuleIndex  int         `json:"ruleIndex"`
	Level      string      `json:"level"`
	Message    Message     `json:"message"`
	Locations  []Location  `json:"locations"`
	Properties *Properties `json:"properties,omitempty"`
}

// Properties carries the scanner's raw output tokens for a match.
type Properties struct {
	Raw    []string `json:"raw"`
	ItemID string   `json:"itemId,omitempty"`
	ScanID string   `json:"scanId,omitempty"`
}

// Message contains the result message
type Message struct {
	Text string `json:"text"`
}

// Location describes where a result was found
type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

// PhysicalLocation specifies the artifact. The scanner reports whole-item
// matches only, so no region is given.
type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
}

// ArtifactLocation identifies the file
type ArtifactLocation struct {
	URI string `json:"uri"`
}

// NewReport creates a new SARIF report with initialized structure
func NewReport() *Report {
	return &Report{
		Schema:  SchemaURI,
		Version: Version,
		Runs: []Run{
			{
				Tool: Tool{
					Driver: Driver{
						Name:    ToolName,
						Version: ToolVersion,
						Rules:   []Rule{},
					},
				},
				Results: []Result{},
			},
		},
	}
}

// AddRule adds a rule to the report and returns its index. Adding an ID
// that is already present returns the existing index.
func (r *Report) AddRule(id, description string) int {
	rules := r.Runs[0].Tool.Driver.Rules
	for i, existing := range rules {
		if existing.ID == id {
			return i
		}
	}

	if description == "" {
		description = "YARA rule " + id
	}
	r.Runs[0].Tool.Driver.Rules = append(rules, Rule{
		ID:               id,
		Name:             id,
		ShortDescription: ShortDescription{Text: description},
	})
	return len(r.Runs[0].Tool.Driver.Rules) - 1
}

// AddResult adds a match result located at filePath to the report,
// registering the match's rule if needed.
func (r *Report) AddResult(match *types.Match, filePath string, props *Properties) {
	index := r.AddRule(match.Rule, "")

	if props == nil {
		props = &Properties{}
	}
	props.Raw = match.Raw

	result := Result{
		RuleID:    match.Rule,
		RuleIndex: index,
		Level:     "warning",
		Message: Message{
			Text: "Matched YARA rule " + match.Rule,
		},
		Locations: []Location{
			{
				PhysicalLocation: PhysicalLocation{
					ArtifactLocation: ArtifactLocation{
						URI: formatFileURI(filePath),
					},
				},
			},
		},
		Properties: props,
	}

	r.Runs[0].Results = append(r.Runs[0].Results, result)
}

// FromResults builds a report with one result per match per item path.
// Items with no recorded path are reported under their item ID.
func FromResults(results []*types.ItemResult) *Report {
	report := NewReport()
	for _, item := range results {
		paths := item.Paths
		if len(paths) == 0 {
			paths = []string{item.ItemID.Hex()}
		}
		for _, path := range paths {
			for _, m := range item.Matches {
				report.AddResult(m, path, &Properties{
					ItemID: item.ItemID.Hex(),
					ScanID: item.ScanID,
				})
			}
		}
	}
	return report
}

// ToJSON serializes the report to JSON bytes
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// formatFileURI converts a file path to SARIF URI format
// Absolute paths get file:// prefix, relative paths stay as-is
func formatFileURI(path string) string {
	if filepath.IsAbs(path) {
		// Normalize path separators for URI format
		path = filepath.ToSlash(path)
		// Ensure path starts with /
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return "file://" + path
	}
	// Relative paths stay as-is
	return filepath.ToSlash(path)
}
