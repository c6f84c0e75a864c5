// internal/monitor/model.go
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dstanton/oanda-tradebot/internal/broker"
)

const refreshInterval = 5 * time.Second

// keyMap is the monitor's key bindings.
type keyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type snapshotMsg struct {
	snap *Snapshot
}

type fetchErrMsg struct {
	err error
}

type tickMsg time.Time

// Model is the bubbletea model for the account monitor.
type Model struct {
	reader  AccountReader
	account string

	keys    keyMap
	spinner spinner.Model

	snap    *Snapshot
	err     error
	loading bool
	width   int

	titleStyle   lipgloss.Style
	headerStyle  lipgloss.Style
	profitStyle  lipgloss.Style
	lossStyle    lipgloss.Style
	mutedStyle   lipgloss.Style
	errorStyle   lipgloss.Style
	sectionStyle lipgloss.Style
}

// NewModel builds the monitor over an account reader.
func NewModel(reader AccountReader, account string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Model{
		reader:  reader,
		account: account,
		keys:    defaultKeyMap(),
		spinner: s,
		loading: true,

		titleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true),
		headerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true),
		profitStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		lossStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		mutedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		sectionStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1),
	}
}

// Init starts the spinner, the first fetch and the refresh ticker.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(), tick())
}

// Update handles key presses, fetch results and refresh ticks.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			return m, m.fetch()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case snapshotMsg:
		m.snap = msg.snap
		m.err = nil
		m.loading = false

	case fetchErrMsg:
		m.err = msg.err
		m.loading = false

	case tickMsg:
		cmds := []tea.Cmd{tick()}
		if !m.loading {
			m.loading = true
			cmds = append(cmds, m.fetch())
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the account summary and trade tables.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.titleStyle.Render(fmt.Sprintf("OANDA Account Monitor  %s", m.account)))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(m.errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	if m.snap == nil {
		b.WriteString(m.spinner.View() + " Loading account data...\n")
		b.WriteString(m.helpLine())
		return b.String()
	}

	b.WriteString(m.sectionStyle.Render(m.renderSummary()))
	b.WriteString("\n")
	b.WriteString(m.headerStyle.Render(fmt.Sprintf("Open Trades (%d)", len(m.snap.Open))))
	b.WriteString("\n")
	b.WriteString(m.renderTrades(m.snap.Open, true))
	b.WriteString("\n")
	b.WriteString(m.headerStyle.Render(fmt.Sprintf("Recently Closed (%d)", len(m.snap.Closed))))
	b.WriteString("\n")
	b.WriteString(m.renderTrades(m.snap.Closed, false))
	b.WriteString("\n")

	status := fmt.Sprintf("Last update %s", m.snap.FetchedAt.Format("15:04:05"))
	if m.loading {
		status = m.spinner.View() + " refreshing"
	}
	b.WriteString(m.mutedStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(m.helpLine())

	return b.String()
}

func (m *Model) helpLine() string {
	return m.mutedStyle.Render("r refresh • q quit")
}

func (m *Model) renderSummary() string {
	s := m.snap.Summary
	return fmt.Sprintf(
		"Balance: %.2f %s   NAV: %.2f   Realized P/L: %s   Unrealized P/L: %s   Open: %d",
		s.Balance, s.Currency, s.NAV,
		m.pnl(s.PL), m.pnl(s.UnrealizedPL),
		s.OpenTradeCount,
	)
}

func (m *Model) renderTrades(trades []broker.Trade, open bool) string {
	if len(trades) == 0 {
		return m.mutedStyle.Render("  none") + "\n"
	}

	var b strings.Builder
	for _, t := range trades {
		pl := t.RealizedPL
		when := t.CloseTime
		if open {
			pl = t.UnrealizedPL
			when = t.OpenTime
		}
		b.WriteString(fmt.Sprintf("  %-10s %8.0f units @ %-10.5f  %s  %s\n",
			t.Instrument, t.InitialUnits, t.Price,
			m.pnl(pl),
			m.mutedStyle.Render(when.Format("Jan 02 15:04")),
		))
	}
	return b.String()
}

func (m *Model) pnl(v float64) string {
	text := fmt.Sprintf("%+.2f", v)
	if v < 0 {
		return m.lossStyle.Render(text)
	}
	return m.profitStyle.Render(text)
}

func (m *Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		snap, err := Fetch(ctx, m.reader)
		if err != nil {
			return fetchErrMsg{err: err}
		}
		return snapshotMsg{snap: snap}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
