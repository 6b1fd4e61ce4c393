package explore

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// filterPane is the left-side faceted search tree.
type filterPane struct {
	facets    *facetState
	collapsed map[facetID]bool
	cursor    int          // flat index across all visible entries
	entries   []filterEntry // flattened tree
	width     int
	height    int
	offset    int
	focused   bool
}

// filterEntry is one line of the tree: a facet header, or one of its
// values when ValueIdx >= 0.
type filterEntry struct {
	FacetID  facetID
	Label    string
	ValueIdx int
}

func (e filterEntry) isHeader() bool { return e.ValueIdx < 0 }

func newFilterPane(facets *facetState) filterPane {
	fp := filterPane{
		facets:    facets,
		collapsed: make(map[facetID]bool),
	}
	fp.rebuild()
	return fp
}

// rebuild flattens the facet tree, skipping empty facets and the values of
// collapsed ones.
func (fp *filterPane) rebuild() {
	fp.entries = fp.entries[:0]
	for _, def := range facetDefs {
		values := fp.facets.Values[def.ID]
		if len(values) == 0 {
			continue
		}
		fp.entries = append(fp.entries, filterEntry{FacetID: def.ID, Label: def.Label, ValueIdx: -1})
		if fp.collapsed[def.ID] {
			continue
		}
		for i, v := range values {
			fp.entries = append(fp.entries, filterEntry{FacetID: def.ID, Label: v.Value, ValueIdx: i})
		}
	}
	if fp.cursor >= len(fp.entries) {
		fp.cursor = max(0, len(fp.entries)-1)
	}
}

func (fp filterPane) Update(msg tea.Msg) (filterPane, tea.Cmd) {
	if !fp.focused {
		return fp, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return fp, nil
	}

	switch {
	case key.Matches(keyMsg, defaultKeys.Up):
		fp.cursor = max(fp.cursor-1, 0)
	case key.Matches(keyMsg, defaultKeys.Down):
		fp.cursor = min(fp.cursor+1, max(0, len(fp.entries)-1))
	case key.Matches(keyMsg, defaultKeys.Home):
		fp.cursor = 0
	case key.Matches(keyMsg, defaultKeys.End):
		fp.cursor = max(0, len(fp.entries)-1)
	case key.Matches(keyMsg, defaultKeys.PageDown):
		fp.cursor = min(fp.cursor+fp.visibleRows(), max(0, len(fp.entries)-1))
	case key.Matches(keyMsg, defaultKeys.PageUp):
		fp.cursor = max(fp.cursor-fp.visibleRows(), 0)
	case key.Matches(keyMsg, defaultKeys.ToggleFilter):
		fp.toggleCurrent()
	case key.Matches(keyMsg, defaultKeys.ResetFilter):
		fp.facets.resetAll()
	}
	fp.offset = scrollOffset(fp.cursor, fp.offset, fp.visibleRows())

	return fp, nil
}

// toggleCurrent collapses or expands a header, or flips a value's selection.
func (fp *filterPane) toggleCurrent() {
	if fp.cursor < 0 || fp.cursor >= len(fp.entries) {
		return
	}
	entry := fp.entries[fp.cursor]
	if entry.isHeader() {
		fp.collapsed[entry.FacetID] = !fp.collapsed[entry.FacetID]
		fp.rebuild()
		for i, e := range fp.entries {
			if e.isHeader() && e.FacetID == entry.FacetID {
				fp.cursor = i
				break
			}
		}
		return
	}
	values := fp.facets.Values[entry.FacetID]
	if entry.ValueIdx < len(values) {
		values[entry.ValueIdx].Selected = !values[entry.ValueIdx].Selected
	}
}

func (fp filterPane) View() string {
	if fp.width <= 0 || fp.height <= 0 {
		return ""
	}

	innerWidth := fp.width - 2
	visibleEnd := min(fp.offset+fp.visibleRows(), len(fp.entries))
	lines := make([]string, 0, fp.visibleRows())

	for i := fp.offset; i < visibleEnd; i++ {
		entry := fp.entries[i]

		var line string
		if entry.isHeader() {
			arrow := "▾"
			if fp.collapsed[entry.FacetID] {
				arrow = "▸"
			}
			line = facetLabelStyle.Render(fmt.Sprintf(" %s %s", arrow, entry.Label))
		} else {
			v := fp.facets.Values[entry.FacetID][entry.ValueIdx]
			label := truncateString(entry.Label, fp.width-12)
			count := facetCountStyle.Render(fmt.Sprintf("(%d)", v.Count))
			if v.Selected {
				line = fmt.Sprintf("   %s %s %s", facetSelectedStyle.Render("+"), facetSelectedStyle.Render(label), count)
			} else {
				line = fmt.Sprintf("     %s %s", label, count)
			}
		}

		if i == fp.cursor && fp.focused {
			line = selectedRowStyle.Width(innerWidth).Render(stripANSI(line))
		}
		lines = append(lines, padRight(line, innerWidth))
	}

	return renderPane(" Filters ", fillLines(lines, fp.visibleRows(), innerWidth), fp.width, fp.height, fp.focused)
}

func (fp filterPane) visibleRows() int {
	return max(1, fp.height-4) // title + border
}

func (fp *filterPane) setSize(w, h int) {
	fp.width = w
	fp.height = h
}

// renderPane draws body inside a titled, bordered box.
func renderPane(title, body string, width, height int, focused bool) string {
	borderStyle := inactiveBorderStyle
	if focused {
		borderStyle = activeBorderStyle
	}
	content := borderStyle.
		Width(width - 2).
		Height(height - 3).
		Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content)
}

// fillLines pads lines with blank rows up to rows and joins them.
func fillLines(lines []string, rows, width int) string {
	for len(lines) < rows {
		lines = append(lines, strings.Repeat(" ", max(0, width)))
	}
	return strings.Join(lines, "\n")
}
