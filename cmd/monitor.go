// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Chris Toffer

package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/chr15toffer/GrundfosCU300/pkg/cu300"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for monitoring and controlling the pump",
	Long: `Monitor the pump via an interactive terminal UI.

The TUI polls the device periodically and displays decoded measurements,
connection state, and exchange statistics. A failed poll keeps the last
values on screen, marked stale, until the connection recovers.

Keys:
  s         start pump (REMOTE+START)
  x         stop pump
  up/down   adjust reference setpoint by 5%
  enter     write reference setpoint
  r         force reconnect
  q         quit`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 5*time.Second, "Poll interval")
	rootCmd.AddCommand(monitorCmd)
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("25")).Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	staleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type monitorTickMsg time.Time

type monitorActionMsg struct {
	action string
	err    error
}

type monitorModel struct {
	coord  *cu300.Coordinator
	engine *cu300.Engine

	connInfo  string
	reference int
	snap      cu300.Snapshot

	log      []string
	maxLog   int
	vp       viewport.Model
	width    int
	height   int
	ready    bool
	quitting bool
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	engine, err := newEngine()
	if err != nil {
		return err
	}
	coord := cu300.NewCoordinator(engine, monitorInterval, logger)
	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer coord.Stop()

	m := monitorModel{
		coord:     coord,
		engine:    engine,
		connInfo:  connectionInfo(),
		reference: 50,
		maxLog:    200,
	}
	m.logf("connected via %s", m.connInfo)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (m monitorModel) Init() tea.Cmd {
	return monitorTick()
}

func monitorTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := m.height - 16
		if logHeight < 3 {
			logHeight = 3
		}
		if !m.ready {
			m.vp = viewport.New(m.width-4, logHeight)
			m.ready = true
		} else {
			m.vp.Width = m.width - 4
			m.vp.Height = logHeight
		}
		m.refreshLog()
		return m, nil

	case monitorTickMsg:
		m.snap = m.coord.Snapshot()
		return m, monitorTick()

	case monitorActionMsg:
		if msg.err != nil {
			m.logf("%s failed: %v", msg.action, msg.err)
		} else {
			m.logf("%s ok", msg.action)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "s":
			m.logf("starting pump...")
			return m, m.action("start", func(ctx context.Context) error {
				return m.coord.StartPump(ctx)
			})
		case "x":
			m.logf("stopping pump...")
			return m, m.action("stop", func(ctx context.Context) error {
				return m.coord.StopPump(ctx)
			})
		case "up":
			if m.reference <= 95 {
				m.reference += 5
			}
			return m, nil
		case "down":
			if m.reference >= 5 {
				m.reference -= 5
			}
			return m, nil
		case "enter":
			ref := m.reference
			m.logf("setting reference to %d%%...", ref)
			return m, m.action("set reference", func(ctx context.Context) error {
				return m.coord.SetReference(ctx, ref)
			})
		case "r":
			m.logf("reconnecting...")
			return m, m.action("reconnect", func(ctx context.Context) error {
				return m.engine.Reconnect(ctx)
			})
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *monitorModel) action(name string, f func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return monitorActionMsg{action: name, err: f(ctx)}
	}
}

func (m *monitorModel) logf(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	m.log = append(m.log, line)
	if len(m.log) > m.maxLog {
		m.log = m.log[len(m.log)-m.maxLog:]
	}
	m.refreshLog()
}

func (m *monitorModel) refreshLog() {
	if !m.ready {
		return
	}
	m.vp.SetContent(strings.Join(m.log, "\n"))
	m.vp.GotoBottom()
}

func (m monitorModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("CU300 Monitor"))
	b.WriteString("  " + labelStyle.Render(m.connInfo))
	b.WriteString("\n\n")

	state := m.snap.State.String()
	switch m.snap.State {
	case cu300.StateConnected:
		state = okStyle.Render(state)
	case cu300.StateReconnecting, cu300.StateConnecting:
		state = staleStyle.Render(state)
	default:
		state = errStyle.Render(state)
	}
	b.WriteString(labelStyle.Render("State: ") + state)

	if m.snap.Available {
		b.WriteString(okStyle.Render("   data fresh"))
	} else if m.snap.Values != nil {
		b.WriteString(staleStyle.Render("   data STALE"))
	}
	if !m.snap.LastUpdate.IsZero() {
		b.WriteString(labelStyle.Render(fmt.Sprintf("   updated %s", m.snap.LastUpdate.Format("15:04:05"))))
	}
	b.WriteString("\n\n")

	b.WriteString(boxStyle.Render(m.valuesView()))
	b.WriteString("\n")

	stats := m.engine.Statistics().Snapshot()
	b.WriteString(labelStyle.Render(fmt.Sprintf(
		"exchanges=%d (%.2f/s) replies=%d crc_err=%d timeouts=%d reconnects=%d",
		stats.Exchanges, m.engine.Statistics().ExchangeRate(),
		stats.ValidReplies, stats.CRCErrors, stats.Timeouts, stats.Reconnects)))
	b.WriteString("\n\n")

	if m.ready {
		b.WriteString(m.vp.View())
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render(fmt.Sprintf(
		"ref setpoint: %d%%   [s]tart [x]stop [↑/↓] ref [enter] write [r]econnect [q]uit", m.reference)))
	return b.String()
}

func (m monitorModel) valuesView() string {
	if m.snap.Values == nil {
		return "no data yet"
	}
	names := make([]string, 0, len(m.snap.Values))
	for name := range m.snap.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%-12s %10.2f", name, m.snap.Values[name])
	}
	if m.snap.LastError != nil {
		b.WriteString("\n" + errStyle.Render(fmt.Sprintf("last error: %v", m.snap.LastError)))
	}
	return b.String()
}
