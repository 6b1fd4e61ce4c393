package explore

import (
	"sort"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// facetID identifies a facet category.
type facetID int

const (
	facetRule facetID = iota
	facetExtension
	facetScan
)

// facetDef defines a facet category.
type facetDef struct {
	ID    facetID
	Label string
}

var facetDefs = []facetDef{
	{facetRule, "Rule"},
	{facetExtension, "Extension"},
	{facetScan, "Scan"},
}

// facetValue is a single selectable value within a facet.
type facetValue struct {
	FacetID  facetID
	Value    string
	Count    int
	Selected bool
}

// facetState holds the complete filter state.
type facetState struct {
	Values map[facetID][]*facetValue
}

func newFacetState() *facetState {
	return &facetState{
		Values: make(map[facetID][]*facetValue),
	}
}

// buildFacets builds facet values from item rows.
func buildFacets(items []*itemRow) *facetState {
	fs := newFacetState()

	rules := make(map[string]int)
	extensions := make(map[string]int)
	scans := make(map[string]int)

	for _, it := range items {
		for _, id := range it.RuleIDs {
			rules[id]++
		}
		extensions[it.Extension]++
		if it.ScanID != "" {
			scans[it.ScanID]++
		}
	}

	fs.Values[facetRule] = mapToFacetValues(facetRule, rules)
	fs.Values[facetExtension] = mapToFacetValues(facetExtension, extensions)
	fs.Values[facetScan] = mapToFacetValues(facetScan, scans)

	return fs
}

func mapToFacetValues(id facetID, counts map[string]int) []*facetValue {
	values := make([]*facetValue, 0, len(counts))
	for v, c := range counts {
		values = append(values, &facetValue{FacetID: id, Value: v, Count: c})
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].Value < values[j].Value
	})
	return values
}

// selectedValues returns the set of selected values for a facet.
func (fs *facetState) selectedValues(id facetID) map[string]bool {
	selected := make(map[string]bool)
	for _, v := range fs.Values[id] {
		if v.Selected {
			selected[v.Value] = true
		}
	}
	return selected
}

// hasActiveFilters returns true if any facet has selections.
func (fs *facetState) hasActiveFilters() bool {
	for _, values := range fs.Values {
		for _, v := range values {
			if v.Selected {
				return true
			}
		}
	}
	return false
}

// resetAll deselects all facet values.
func (fs *facetState) resetAll() {
	for _, values := range fs.Values {
		for _, v := range values {
			v.Selected = false
		}
	}
}

// matchesItem returns true if an item passes all active filters.
// Within a facet: OR (union). Across facets: AND (intersection).
func (fs *facetState) matchesItem(it *itemRow) bool {
	for _, def := range facetDefs {
		selected := fs.selectedValues(def.ID)
		if len(selected) == 0 {
			continue
		}

		switch def.ID {
		case facetRule:
			found := false
			for _, id := range it.RuleIDs {
				if selected[id] {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case facetExtension:
			if !selected[it.Extension] {
				return false
			}
		case facetScan:
			if !selected[it.ScanID] {
				return false
			}
		}
	}
	return true
}

// updateCounts recounts facet values over the items that pass the filters.
func (fs *facetState) updateCounts(items []*itemRow) {
	for _, values := range fs.Values {
		for _, v := range values {
			v.Count = 0
		}
	}

	for _, it := range items {
		if !fs.matchesItem(it) {
			continue
		}
		for _, v := range fs.Values[facetRule] {
			for _, id := range it.RuleIDs {
				if v.Value == id {
					v.Count++
					break
				}
			}
		}
		for _, v := range fs.Values[facetExtension] {
			if v.Value == it.Extension {
				v.Count++
			}
		}
		for _, v := range fs.Values[facetScan] {
			if v.Value == it.ScanID {
				v.Count++
			}
		}
	}
}

// itemRow is the denormalized view model for a matched item in the TUI.
type itemRow struct {
	ItemID    types.ItemID
	ScanID    string
	Size      int64
	Path      string // first known path, or the item ID when none is recorded
	Paths     []string
	Extension string
	RuleIDs   []string
	Matches   []*types.Match
}
