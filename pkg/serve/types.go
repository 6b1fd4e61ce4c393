package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/yaraexec/pkg/scanner"
)

// Request types.
const (
	TypeReady      = "ready"
	TypeMatch      = "match"
	TypeMatchBatch = "match_batch"
	TypeClose      = "close"
	TypeDecode     = "decode"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "match" | "match_batch" | "close"
	Payload json.RawMessage `json:"payload"`
}

// MatchPayload is the payload for "match" requests. Rules replaces the
// server's default rule set when present.
type MatchPayload struct {
	Rules []string `json:"rules,omitempty"`
	scanner.ContentItem
}

// MatchBatchPayload is the payload for "match_batch" requests
type MatchBatchPayload struct {
	Rules []string              `json:"rules,omitempty"`
	Items []scanner.ContentItem `json:"items"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"` // "ready" | "match" | "match_batch" | "decode" | request type on error
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version string `json:"version"`
	ScanID  string `json:"scan_id"`
	Rules   int    `json:"rules"`
}
