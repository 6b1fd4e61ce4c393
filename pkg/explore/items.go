package explore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// sortField defines which column to sort by.
type sortField int

const (
	sortByPath sortField = iota
	sortByRules
	sortByMatches
	sortBySize
	sortFieldCount // sentinel
)

var sortFieldNames = [sortFieldCount]string{
	"Path", "Rules", "Matches", "Size",
}

// itemsPane is the top-right table of matched items.
type itemsPane struct {
	rows    []*itemRow // filtered rows
	total   int
	cursor  int
	offset  int
	width   int
	height  int
	focused bool
	sortBy  sortField
	sortAsc bool
}

func newItemsPane(rows []*itemRow) itemsPane {
	ip := itemsPane{
		rows:    append([]*itemRow(nil), rows...),
		total:   len(rows),
		sortAsc: true,
	}
	ip.sort()
	return ip
}

func (ip *itemsPane) setFilteredRows(rows []*itemRow) {
	ip.rows = append(ip.rows[:0], rows...)
	ip.sort()
	if ip.cursor >= len(ip.rows) {
		ip.cursor = max(0, len(ip.rows)-1)
	}
	ip.offset = scrollOffset(ip.cursor, ip.offset, ip.visibleRows())
}

func (ip itemsPane) selectedItem() *itemRow {
	if ip.cursor < 0 || ip.cursor >= len(ip.rows) {
		return nil
	}
	return ip.rows[ip.cursor]
}

func (ip itemsPane) Update(msg tea.Msg) (itemsPane, tea.Cmd) {
	if !ip.focused {
		return ip, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return ip, nil
	}

	last := max(0, len(ip.rows)-1)
	switch {
	case key.Matches(keyMsg, defaultKeys.Up):
		ip.cursor = max(ip.cursor-1, 0)
	case key.Matches(keyMsg, defaultKeys.Down):
		ip.cursor = min(ip.cursor+1, last)
	case key.Matches(keyMsg, defaultKeys.Home):
		ip.cursor = 0
	case key.Matches(keyMsg, defaultKeys.End):
		ip.cursor = last
	case key.Matches(keyMsg, defaultKeys.PageDown):
		ip.cursor = min(ip.cursor+ip.visibleRows(), last)
	case key.Matches(keyMsg, defaultKeys.PageUp):
		ip.cursor = max(ip.cursor-ip.visibleRows(), 0)
	case key.Matches(keyMsg, defaultKeys.SortNext):
		ip.sortBy = (ip.sortBy + 1) % sortFieldCount
		ip.sort()
	case key.Matches(keyMsg, defaultKeys.SortReverse):
		ip.sortAsc = !ip.sortAsc
		ip.sort()
	}
	ip.offset = scrollOffset(ip.cursor, ip.offset, ip.visibleRows())

	return ip, nil
}

// sort orders rows by the current field, ties broken by path.
func (ip *itemsPane) sort() {
	less := func(a, b *itemRow) bool {
		switch ip.sortBy {
		case sortByRules:
			if x, y := strings.Join(a.RuleIDs, ","), strings.Join(b.RuleIDs, ","); x != y {
				return x < y
			}
		case sortByMatches:
			if len(a.Matches) != len(b.Matches) {
				return len(a.Matches) < len(b.Matches)
			}
		case sortBySize:
			if a.Size != b.Size {
				return a.Size < b.Size
			}
		}
		return a.Path < b.Path
	}
	sort.SliceStable(ip.rows, func(i, j int) bool {
		if ip.sortAsc {
			return less(ip.rows[i], ip.rows[j])
		}
		return less(ip.rows[j], ip.rows[i])
	})
}

func (ip itemsPane) View() string {
	if ip.width <= 0 || ip.height <= 0 {
		return ""
	}

	contentWidth := ip.width - 4
	colMatches := 8
	colSize := 10
	colRules := min(30, contentWidth/3)
	colPath := max(10, contentWidth-colRules-colMatches-colSize-4)

	indicator := func(f sortField) string {
		if ip.sortBy != f {
			return ""
		}
		if ip.sortAsc {
			return " ^"
		}
		return " v"
	}

	lines := make([]string, 0, ip.visibleRows()+2)
	header := fmt.Sprintf(" %-*s %-*s %*s %*s",
		colPath, "Path"+indicator(sortByPath),
		colRules, "Rules"+indicator(sortByRules),
		colMatches, "Matches"+indicator(sortByMatches),
		colSize, "Size"+indicator(sortBySize),
	)
	lines = append(lines, headerRowStyle.Width(contentWidth).Render(truncateString(header, contentWidth)))
	lines = append(lines, strings.Repeat("─", max(0, contentWidth)))

	visibleEnd := min(ip.offset+ip.visibleRows(), len(ip.rows))
	for i := ip.offset; i < visibleEnd; i++ {
		row := ip.rows[i]
		line := fmt.Sprintf(" %-*s %-*s %*d %*s",
			colPath, truncateLeft(row.Path, colPath),
			colRules, truncateString(strings.Join(row.RuleIDs, ", "), colRules),
			colMatches, len(row.Matches),
			colSize, formatSize(row.Size),
		)
		if i == ip.cursor && ip.focused {
			line = selectedRowStyle.Width(contentWidth).Render(stripANSI(line))
		}
		lines = append(lines, padRight(line, contentWidth))
	}

	title := fmt.Sprintf(" Items (%d/%d) [sort: %s] ", len(ip.rows), ip.total, sortFieldNames[ip.sortBy])
	return renderPane(title, fillLines(lines, ip.visibleRows()+2, contentWidth), ip.width, ip.height, ip.focused)
}

func (ip itemsPane) visibleRows() int {
	return max(1, ip.height-6) // title + border + header + separator
}

func (ip *itemsPane) setSize(w, h int) {
	ip.width = w
	ip.height = h
}

// truncateLeft keeps the end of a path, which is usually the informative part.
func truncateLeft(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[len(s)-maxLen:]
	}
	return "..." + s[len(s)-maxLen+3:]
}
