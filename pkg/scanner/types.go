package scanner

import (
	"encoding/base64"
	"fmt"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// ContentItem represents a content item to scan
type ContentItem struct {
	Source        string            `json:"source"`                   // e.g. "upload:1", "mail:attachment"
	Content       string            `json:"content,omitempty"`        // raw content
	ContentBase64 string            `json:"content_base64,omitempty"` // binary content, takes precedence over Content
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Bytes returns the item's content, decoding ContentBase64 when set.
func (c ContentItem) Bytes() ([]byte, error) {
	if c.ContentBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(c.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("decoding content_base64: %w", err)
		}
		return data, nil
	}
	return []byte(c.Content), nil
}

// ScanResult represents scan results for a single item
type ScanResult struct {
	Source  string         `json:"source"`
	ItemID  types.ItemID   `json:"item_id"`
	Matches []*types.Match `json:"matches"`
	// Skipped is set when the item was already in the store and its
	// recorded matches were returned without running the scanner.
	Skipped bool `json:"skipped,omitempty"`
	// Metadata echoes the request item's metadata.
	Metadata map[string]string `json:"metadata,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// BatchScanResult represents batch scan results
type BatchScanResult struct {
	Results []ScanResult `json:"results"`
	Total   int          `json:"total"`  // matches across all items
	Failed  int          `json:"failed"` // items whose scan returned an error
}
