package types

// ItemResult is the stored outcome of scanning one item.
type ItemResult struct {
	ScanID  string   `json:"scan_id,omitempty"`
	ItemID  ItemID   `json:"item_id"`
	Size    int64    `json:"size"`
	Paths   []string `json:"paths,omitempty"`
	Matches []*Match `json:"matches"`
}

// RuleIDs returns the distinct rule identifiers across matches, in first-seen order.
func (r *ItemResult) RuleIDs() []string {
	seen := make(map[string]bool, len(r.Matches))
	var ids []string
	for _, m := range r.Matches {
		if seen[m.Rule] {
			continue
		}
		seen[m.Rule] = true
		ids = append(ids, m.Rule)
	}
	return ids
}
