package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fieldops/toolgate/internal/audit"
)

const (
	pollInterval = 2 * time.Second
	maxRows      = 50
)

// Model is the main BubbleTea model for the watch TUI. It polls the
// invocation log and renders the most recent entries newest first.
type Model struct {
	store *audit.Store

	width  int
	height int

	entries []audit.Entry
	tbl     table.Model
	theme   Theme

	lastPoll  time.Time
	lastError string
}

type pollMsg []audit.Entry
type tickMsg time.Time
type errMsg error

// New creates a watch model over an open invocation store.
func New(store *audit.Store) *Model {
	theme := NewDefaultTheme()

	tbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "ST", Width: 3},
			{Title: "Tool", Width: 20},
			{Title: "Outcome", Width: 14},
			{Title: "Agent", Width: 16},
			{Title: "Duration", Width: 10},
			{Title: "When", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(maxRows/2),
	)

	return &Model{
		store: store,
		tbl:   tbl,
		theme: theme,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.poll(),
		tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.tbl, cmd = m.tbl.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.height > 10 {
			m.tbl.SetHeight(m.height - 8)
		}

	case tickMsg:
		return m, tea.Batch(
			m.poll(),
			tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		)

	case pollMsg:
		m.entries = msg
		m.lastPoll = time.Now()
		m.lastError = ""
		m.tbl.SetRows(m.rows())

	case errMsg:
		m.lastError = msg.Error()
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing watch..."
	}

	title := m.theme.Title.Render("toolgate watch")
	status := m.theme.Dim.Render(fmt.Sprintf(" %d invocations • polled %s", len(m.entries), m.lastPoll.Format("15:04:05")))

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.OutcomeFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := m.theme.Dim.Render(" [q] Quit • [↑/↓] Scroll")

	parts := []string{
		lipgloss.JoinHorizontal(lipgloss.Center, title, status),
		m.theme.Border.Render(m.tbl.View()),
	}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
		defer cancel()
		entries, err := m.store.Recent(ctx, maxRows)
		if err != nil {
			return errMsg(err)
		}
		return pollMsg(entries)
	}
}

func (m Model) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.entries))
	for _, e := range m.entries {
		rows = append(rows, table.Row{
			outcomeGlyph(e.Outcome),
			e.Tool,
			e.Outcome,
			e.AgentID,
			fmt.Sprintf("%dms", e.DurationMs),
			e.CreatedAt.Local().Format("15:04:05"),
		})
	}
	return rows
}

func outcomeGlyph(outcome string) string {
	switch outcome {
	case audit.OutcomeOK:
		return "✓"
	case audit.OutcomeUnauthorized:
		return "✗"
	case audit.OutcomeExecError:
		return "!"
	default:
		return "·"
	}
}

// Run starts the TUI event loop and blocks until the user quits.
func Run(store *audit.Store) error {
	p := tea.NewProgram(New(store))
	_, err := p.Run()
	return err
}
