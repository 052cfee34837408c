// Package tui renders a terminal inspector over a module environment.
// It uses bubbletea: key and window messages update the Inspector model and
// View renders the module table, the selected module's details and the
// recent log history.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/commonenv/internal/logging"
	"github.com/kingrea/commonenv/internal/module"
)

const (
	defaultTableHeight = 12
	historyLines       = 6
	rootLabel          = "(root)"
)

// SnapshotFunc returns the current module entries.
type SnapshotFunc func() []module.Entry

// HistoryFunc returns recent log entries.
type HistoryFunc func() []logging.Entry

// InspectorOption customizes Inspector construction.
type InspectorOption func(*Inspector)

// WithHistory shows the tail of the log history under the table.
func WithHistory(history HistoryFunc) InspectorOption {
	return func(i *Inspector) {
		i.history = history
	}
}

// WithTitle overrides the header text.
func WithTitle(title string) InspectorOption {
	return func(i *Inspector) {
		if strings.TrimSpace(title) != "" {
			i.title = title
		}
	}
}

// Inspector is the bubbletea model for the module inspector.
type Inspector struct {
	snapshot SnapshotFunc
	history  HistoryFunc
	title    string

	table    table.Model
	entries  []module.Entry
	width    int
	quitting bool
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	headStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	stateColors = map[module.State]lipgloss.Color{
		module.StateUnregistered: lipgloss.Color("#888888"),
		module.StateRegistered:   lipgloss.Color("#AAAAAA"),
		module.StateLoaded:       lipgloss.Color("#F2C14E"),
		module.StateInvoked:      lipgloss.Color("#5FD068"),
		module.StateFailed:       lipgloss.Color("#FF6B6B"),
	}
)

// NewInspector builds an inspector over snapshot.
func NewInspector(snapshot SnapshotFunc, opts ...InspectorOption) *Inspector {
	i := &Inspector{snapshot: snapshot, title: "⬡ COMMONENV"}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	columns := []table.Column{
		{Title: "Module", Width: 28},
		{Title: "State", Width: 12},
		{Title: "Deps", Width: 6},
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#5B8DEF"))
	i.table = table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(defaultTableHeight),
		table.WithStyles(styles),
	)
	i.refresh()
	return i
}

// Run starts the inspector program and blocks until it exits.
func Run(i *Inspector) error {
	_, err := tea.NewProgram(i, tea.WithAltScreen()).Run()
	return err
}

func (i *Inspector) refresh() {
	if i.snapshot == nil {
		return
	}
	i.entries = i.snapshot()
	rows := make([]table.Row, 0, len(i.entries))
	for _, entry := range i.entries {
		rows = append(rows, table.Row{
			displayID(entry.ID),
			entry.State.String(),
			fmt.Sprintf("%d", len(entry.Dependencies)),
		})
	}
	i.table.SetRows(rows)
	if cursor := i.table.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		i.table.SetCursor(len(rows) - 1)
	}
}

// Selected returns the entry under the cursor.
func (i *Inspector) Selected() (module.Entry, bool) {
	cursor := i.table.Cursor()
	if cursor < 0 || cursor >= len(i.entries) {
		return module.Entry{}, false
	}
	return i.entries[cursor], true
}

func (i *Inspector) Init() tea.Cmd {
	return nil
}

func (i *Inspector) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		i.width = msg.Width
		if height := msg.Height - 16; height > 3 {
			i.table.SetHeight(height)
		}
		return i, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			i.quitting = true
			return i, tea.Quit
		case "r":
			i.refresh()
			return i, nil
		}
	}
	var cmd tea.Cmd
	i.table, cmd = i.table.Update(msg)
	return i, cmd
}

func (i *Inspector) View() string {
	if i.quitting {
		return ""
	}
	sections := []string{
		titleStyle.Render(i.title),
		boxStyle.Render(i.table.View()),
		i.renderDetail(),
	}
	if logs := i.renderHistory(); logs != "" {
		sections = append(sections, logs)
	}
	sections = append(sections, footerStyle.Render("↑/↓ select · r refresh · q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (i *Inspector) renderDetail() string {
	entry, ok := i.Selected()
	if !ok {
		return boxStyle.Render(mutedStyle.Render("No modules registered."))
	}
	state := lipgloss.NewStyle().Bold(true).Foreground(stateColors[entry.State]).Render(entry.State.String())
	lines := []string{
		headStyle.Render(displayID(entry.ID)) + "  " + state,
	}
	if len(entry.Dependencies) == 0 {
		lines = append(lines, mutedStyle.Render("no dependencies"))
	} else {
		lines = append(lines, mutedStyle.Render("deps: "+strings.Join(entry.Dependencies, ", ")))
	}
	if entry.Err != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(stateColors[module.StateFailed]).Render("error: "+entry.Err.Error()))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (i *Inspector) renderHistory() string {
	if i.history == nil {
		return ""
	}
	entries := i.history()
	if len(entries) == 0 {
		return ""
	}
	if len(entries) > historyLines {
		entries = entries[len(entries)-historyLines:]
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Module
		if name == "" {
			name = "-"
		}
		lines = append(lines, fmt.Sprintf("%s %-5s %s %s",
			entry.Time.Format("15:04:05"),
			strings.ToUpper(entry.Level.String()),
			name,
			entry.Message,
		))
	}
	return boxStyle.Render(headStyle.Render("LOG") + "\n" + mutedStyle.Render(strings.Join(lines, "\n")))
}

func displayID(id string) string {
	if id == module.RootID {
		return rootLabel
	}
	return id
}
