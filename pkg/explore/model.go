package explore

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// focusedPane tracks which pane has keyboard focus.
type focusedPane int

const (
	paneFilters focusedPane = iota
	paneItems
	paneDetails
)

// overlay tracks which modal overlay is active.
type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayText
)

// pagerFinishedMsg is sent when an external pager process exits.
type pagerFinishedMsg struct{ err error }

// Model is the root Bubble Tea model for the explore TUI.
type Model struct {
	data    *exploreData
	filters filterPane
	items   itemsPane
	details detailsPane

	focus         focusedPane
	activeOverlay overlay
	showFilters   bool

	// Overlay state, shared by help and text views
	overlayTitle   string
	overlayContent string
	overlayOffset  int

	width  int
	height int
	err    error
}

// New creates a new Model by loading results from the datastore at path.
func New(datastorePath string) (Model, error) {
	data, err := loadData(datastorePath)
	if err != nil {
		return Model{}, err
	}
	return newModel(data), nil
}

func newModel(data *exploreData) Model {
	m := Model{
		data:        data,
		filters:     newFilterPane(buildFacets(data.items)),
		items:       newItemsPane(data.items),
		details:     newDetailsPane(data.scans),
		showFilters: true,
	}
	m.setFocus(paneItems)
	m.details.setItem(m.items.selectedItem())
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle("yaraexec explore")
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case pagerFinishedMsg:
		m.err = msg.err
		return m, nil

	case tea.MouseMsg:
		if m.activeOverlay != overlayNone {
			return m, nil
		}
		if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		m.handleMouseClick(msg.X, msg.Y)
		return m, nil

	case tea.KeyMsg:
		if m.activeOverlay != overlayNone {
			m.updateOverlay(msg)
			return m, nil
		}

		switch {
		case key.Matches(msg, defaultKeys.ForceQuit), key.Matches(msg, defaultKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, defaultKeys.ToggleHelp):
			m.showOverlay(" Help (q to close) ", helpText)
			m.activeOverlay = overlayHelp
			return m, nil
		case key.Matches(msg, defaultKeys.ToggleFilters):
			m.showFilters = !m.showFilters
			if !m.showFilters && m.focus == paneFilters {
				m.setFocus(paneItems)
			}
			return m, nil
		case key.Matches(msg, defaultKeys.FocusFilters):
			if m.showFilters {
				m.setFocus(paneFilters)
			}
			return m, nil
		case key.Matches(msg, defaultKeys.FocusItems):
			m.setFocus(paneItems)
			return m, nil
		case key.Matches(msg, defaultKeys.FocusDetails):
			m.setFocus(paneDetails)
			return m, nil
		case key.Matches(msg, defaultKeys.OpenSource) && m.focus != paneFilters:
			return m, m.openItem()
		}

		var cmd tea.Cmd
		switch m.focus {
		case paneFilters:
			m.filters, cmd = m.filters.Update(msg)
			m.applyFilters()
		case paneItems:
			prev := m.items.selectedItem()
			m.items, cmd = m.items.Update(msg)
			if it := m.items.selectedItem(); it != prev {
				m.details.setItem(it)
			}
		case paneDetails:
			m.details, cmd = m.details.Update(msg)
		}
		return m, cmd
	}

	return m, nil
}

func (m *Model) updateOverlay(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, defaultKeys.Quit),
		key.Matches(msg, defaultKeys.ForceQuit),
		msg.String() == "esc",
		m.activeOverlay == overlayHelp && key.Matches(msg, defaultKeys.ToggleHelp),
		m.activeOverlay == overlayText && key.Matches(msg, defaultKeys.OpenSource):
		m.activeOverlay = overlayNone
	case key.Matches(msg, defaultKeys.Down):
		m.overlayOffset++
	case key.Matches(msg, defaultKeys.Up):
		m.overlayOffset = max(0, m.overlayOffset-1)
	case key.Matches(msg, defaultKeys.PageDown):
		m.overlayOffset += m.height / 2
	case key.Matches(msg, defaultKeys.PageUp):
		m.overlayOffset = max(0, m.overlayOffset-m.height/2)
	}
}

func (m *Model) showOverlay(title, content string) {
	m.overlayTitle = title
	m.overlayContent = content
	m.overlayOffset = 0
	m.activeOverlay = overlayText
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.activeOverlay != overlayNone {
		return m.renderOverlay()
	}

	contentHeight := m.height - 2 // status bar + padding
	itemsHeight := contentHeight * 40 / 100
	detailsHeight := contentHeight - itemsHeight

	dataWidth := m.width
	if m.showFilters {
		dataWidth = m.width - m.filtersWidth()
	}
	m.items.setSize(dataWidth, itemsHeight)
	m.details.setSize(dataWidth, detailsHeight)
	main := lipgloss.JoinVertical(lipgloss.Left, m.items.View(), m.details.View())

	if m.showFilters {
		m.filters.setSize(m.filtersWidth(), contentHeight)
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.filters.View(), main)
	}

	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m Model) filtersWidth() int {
	return min(m.width*30/100, 50)
}

func (m Model) renderStatusBar() string {
	left := statusBarStyle.Render(fmt.Sprintf(" %d items | %d shown", len(m.data.items), len(m.items.rows)))
	if m.err != nil {
		left += statusBarStyle.Render(" | " + m.err.Error())
	}

	pairs := [][2]string{
		{"j/k", "nav"}, {"i/d", "focus"}, {"s/S", "sort"},
		{"o", "open"}, {"F7", "filters"}, {"?", "help"},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, helpKeyStyle.Render(p[0])+":"+helpDescStyle.Render(p[1]))
	}
	right := strings.Join(parts, "  ")

	gap := max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderOverlay() string {
	width := m.width * 80 / 100
	height := m.height * 80 / 100

	lines := strings.Split(m.overlayContent, "\n")
	offset := min(m.overlayOffset, max(0, len(lines)-1))
	end := min(offset+max(1, height-4), len(lines))

	box := modalStyle.
		Width(width - 4).
		Height(height - 2).
		Render(strings.Join(lines[offset:end], "\n"))
	view := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(m.overlayTitle), box)

	hPad := (m.width - lipgloss.Width(view)) / 2
	vPad := (m.height - lipgloss.Height(view)) / 2
	return strings.Repeat("\n", max(0, vPad)) +
		lipgloss.NewStyle().PaddingLeft(max(0, hPad)).Render(view)
}

func (m *Model) setFocus(p focusedPane) {
	m.filters.focused = p == paneFilters
	m.items.focused = p == paneItems
	m.details.focused = p == paneDetails
	m.focus = p
}

func (m *Model) handleMouseClick(x, y int) {
	contentHeight := m.height - 2
	itemsHeight := contentHeight * 40 / 100
	left := 0
	if m.showFilters {
		left = m.filtersWidth()
	}

	switch {
	case y >= contentHeight:
		return
	case x < left:
		m.setFocus(paneFilters)
		if idx := y - 2 + m.filters.offset; y >= 2 && idx < len(m.filters.entries) {
			m.filters.cursor = idx
			m.filters.toggleCurrent()
			m.applyFilters()
		}
	case y < itemsHeight:
		m.setFocus(paneItems)
		if idx := y - 4 + m.items.offset; y >= 4 && idx < len(m.items.rows) {
			m.items.cursor = idx
			m.details.setItem(m.items.selectedItem())
		}
	default:
		m.setFocus(paneDetails)
	}
}

func (m *Model) applyFilters() {
	var filtered []*itemRow
	for _, it := range m.data.items {
		if m.filters.facets.matchesItem(it) {
			filtered = append(filtered, it)
		}
	}
	m.items.setFilteredRows(filtered)
	m.filters.facets.updateCounts(m.data.items)
	m.details.setItem(m.items.selectedItem())
}

// openItem pages the selected item's file when it exists on disk, and
// otherwise shows the scanner output in an overlay.
func (m *Model) openItem() tea.Cmd {
	it := m.items.selectedItem()
	if it == nil {
		return nil
	}

	for _, p := range it.Paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return openInPager(p)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Item %s is not available on disk.\n\n", it.ItemID.Hex())
	for _, p := range it.Paths {
		fmt.Fprintf(&b, "  %s\n", p)
	}
	b.WriteString("\nScanner output:\n")
	for _, match := range it.Matches {
		fmt.Fprintf(&b, "  %s\n", strings.Join(match.Raw, " "))
	}
	m.showOverlay(" Item (q to close) ", b.String())
	return nil
}

func openInPager(path string) tea.Cmd {
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}
	c := exec.Command(pager, path)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return pagerFinishedMsg{err: err}
	})
}

// Close releases resources held by the model.
func (m *Model) Close() error {
	if m.data != nil {
		return m.data.close()
	}
	return nil
}

const helpText = `yaraexec explore - matched item browser

NAVIGATION
  j/k or Up/Down    Move cursor up/down
  h/l or Left/Right Previous/next match in details
  Ctrl+f/Ctrl+b     Page down/up
  g/G               Jump to top/bottom

FOCUS
  F1                Focus filters pane
  i                 Focus items pane
  d                 Focus details pane
  F7                Toggle filters pane visibility

FILTERS
  x or Space        Toggle filter value, or collapse a facet
  Ctrl+r            Reset all filters

VIEWS
  s                 Cycle sort column
  S                 Reverse sort order
  o                 Open item in $PAGER, or show scanner output
  ?                 Toggle this help screen

QUIT
  q                 Quit
  Ctrl+c            Force quit
`
