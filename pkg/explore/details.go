package explore

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/praetorian-inc/yaraexec/pkg/store"
	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// detailsPane shows the selected item and its scanner output.
type detailsPane struct {
	item        *itemRow
	scans       map[string]store.Scan
	matchCursor int
	width       int
	height      int
	offset      int
	focused     bool
}

func newDetailsPane(scans map[string]store.Scan) detailsPane {
	return detailsPane{scans: scans}
}

func (dp *detailsPane) setItem(it *itemRow) {
	dp.item = it
	dp.matchCursor = 0
	dp.offset = 0
}

func (dp detailsPane) selectedMatch() *types.Match {
	if dp.item == nil || dp.matchCursor < 0 || dp.matchCursor >= len(dp.item.Matches) {
		return nil
	}
	return dp.item.Matches[dp.matchCursor]
}

func (dp detailsPane) Update(msg tea.Msg) (detailsPane, tea.Cmd) {
	if !dp.focused {
		return dp, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return dp, nil
	}

	switch {
	case key.Matches(keyMsg, defaultKeys.Up):
		dp.offset = max(dp.offset-1, 0)
	case key.Matches(keyMsg, defaultKeys.Down):
		dp.offset++
	case key.Matches(keyMsg, defaultKeys.Left):
		if dp.matchCursor > 0 {
			dp.matchCursor--
		}
	case key.Matches(keyMsg, defaultKeys.Right):
		if dp.item != nil && dp.matchCursor < len(dp.item.Matches)-1 {
			dp.matchCursor++
		}
	case key.Matches(keyMsg, defaultKeys.Home):
		dp.offset = 0
	case key.Matches(keyMsg, defaultKeys.PageDown):
		dp.offset += dp.visibleRows()
	case key.Matches(keyMsg, defaultKeys.PageUp):
		dp.offset = max(0, dp.offset-dp.visibleRows())
	}

	return dp, nil
}

// lines renders the pane content before scrolling.
func (dp detailsPane) lines(width int) []string {
	if dp.item == nil {
		return []string{"  No item selected"}
	}
	it := dp.item

	field := func(label, value string) string {
		return fmt.Sprintf("  %s %s", fieldLabelStyle.Render(label), fieldValueStyle.Render(value))
	}

	lines := []string{field("Item:", it.ItemID.Hex())}
	if scan, ok := dp.scans[it.ScanID]; ok {
		lines = append(lines, field("Scan:", fmt.Sprintf("%s (%s)", scan.ID, scan.StartedAt.Format("2006-01-02 15:04:05"))))
		if len(scan.Command) > 0 {
			lines = append(lines, field("Command:", strings.Join(scan.Command, " ")))
		}
	} else if it.ScanID != "" {
		lines = append(lines, field("Scan:", it.ScanID))
	}
	lines = append(lines, field("Size:", fmt.Sprintf("%s (%d bytes)", formatSize(it.Size), it.Size)))
	for _, p := range it.Paths {
		lines = append(lines, field("Path:", p))
	}

	lines = append(lines, "")
	if len(it.Matches) == 0 {
		return append(lines, "  No matches")
	}

	lines = append(lines, "  "+headerRowStyle.Render(fmt.Sprintf("Match %d/%d (h/l to navigate)", dp.matchCursor+1, len(it.Matches))))
	lines = append(lines, "  "+strings.Repeat("─", max(0, min(40, width-4))))

	m := dp.selectedMatch()
	lines = append(lines, fmt.Sprintf("  %s %s", fieldLabelStyle.Render("Rule:"), ruleStyle.Render(m.Rule)))
	lines = append(lines, fmt.Sprintf("  %s", fieldLabelStyle.Render("Output:")))
	lines = append(lines, "    "+rawStyle.Render(truncateString(strings.Join(m.Raw, " "), width-6)))
	for i, tok := range m.Raw[min(1, len(m.Raw)):] {
		lines = append(lines, fmt.Sprintf("    %s %s", fieldLabelStyle.Render(fmt.Sprintf("[%d]", i+1)), truncateString(tok, width-12)))
	}

	return lines
}

func (dp detailsPane) View() string {
	if dp.width <= 0 || dp.height <= 0 {
		return ""
	}

	contentWidth := dp.width - 4
	lines := dp.lines(contentWidth)

	offset := min(dp.offset, max(0, len(lines)-1))
	visible := lines[offset:]
	if len(visible) > dp.visibleRows() {
		visible = visible[:dp.visibleRows()]
	}

	out := make([]string, 0, dp.visibleRows())
	for _, line := range visible {
		out = append(out, padRight(line, contentWidth))
	}

	return renderPane(" Details ", fillLines(out, dp.visibleRows(), contentWidth), dp.width, dp.height, dp.focused)
}

func (dp detailsPane) visibleRows() int {
	return max(1, dp.height-4)
}

func (dp *detailsPane) setSize(w, h int) {
	dp.width = w
	dp.height = h
}
