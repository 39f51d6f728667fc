// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Thermoquad/novaprobe/internal/logging"
	"github.com/Thermoquad/novaprobe/pkg/health"
	"github.com/Thermoquad/novaprobe/pkg/report"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of sender and receiver status",
	Long: `Run the full sweep repeatedly and show the sender, every receiver and the
check results in a terminal dashboard.

Keys:
  r      sweep now
  ↑/↓    scroll receivers
  q      quit`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", time.Minute, "Time between sweeps")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	// stderr output would corrupt the dashboard, keep only the file sink
	l, err := logging.New(cfg.Logging, io.Discard)
	if err != nil {
		return err
	}
	logger = l

	m := newMonitorModel(func() (*report.Snapshot, error) { return sweep(ctx) }, monitorInterval)
	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
	return err
}

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for alarms, false for information
}

// Monitor model
type monitorModel struct {
	sweepFn   func() (*report.Snapshot, error)
	interval  time.Duration
	snapshot  *report.Snapshot
	sweeping  bool
	lastErr   error
	spinner   spinner.Model
	receivers table.Model
	eventLog  []eventLogEntry
	maxEvents int
	width     int
	height    int
	quitting  bool
}

// Messages
type sweepStartMsg struct{}
type sweepDoneMsg struct {
	snapshot *report.Snapshot
	err      error
}

func newMonitorModel(sweepFn func() (*report.Snapshot, error), interval time.Duration) monitorModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "LAN", Width: 4},
			{Title: "#", Width: 4},
			{Title: "Model", Width: 18},
			{Title: "Firmware", Width: 10},
			{Title: "Bright", Width: 7},
			{Title: "Display", Width: 8},
			{Title: "Temp", Width: 7},
			{Title: "Volt", Width: 6},
			{Title: "Modules", Width: 16},
		}),
		table.WithHeight(8),
		table.WithFocused(true),
	)

	return monitorModel{
		sweepFn:   sweepFn,
		interval:  interval,
		sweeping:  true,
		spinner:   s,
		receivers: t,
		maxEvents: 100,
		width:     80,
		height:    24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.sweepCmd(),
		tea.EnterAltScreen,
	)
}

func (m monitorModel) sweepCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.sweepFn()
		return sweepDoneMsg{snapshot: snap, err: err}
	}
}

func (m monitorModel) scheduleCmd() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return sweepStartMsg{}
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if !m.sweeping {
				m.sweeping = true
				return m, m.sweepCmd()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.receivers.SetHeight(max(3, m.height-24))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sweepStartMsg:
		if m.sweeping {
			return m, nil
		}
		m.sweeping = true
		return m, m.sweepCmd()

	case sweepDoneMsg:
		m.sweeping = false
		m.lastErr = msg.err
		if msg.err != nil {
			m.addEvent(fmt.Sprintf("sweep failed: %v", msg.err), true)
		} else {
			m.applySnapshot(msg.snapshot)
		}
		return m, m.scheduleCmd()
	}

	var cmd tea.Cmd
	m.receivers, cmd = m.receivers.Update(msg)
	return m, cmd
}

func (m *monitorModel) addEvent(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxEvents {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxEvents:]
	}
}

// applySnapshot replaces the shown sweep and logs checks whose severity changed
func (m *monitorModel) applySnapshot(snap *report.Snapshot) {
	previous := map[string]health.Severity{}
	if m.snapshot != nil {
		for _, r := range m.snapshot.Results {
			previous[r.Check] = r.Severity
		}
	}
	for _, r := range snap.Results {
		if prev, ok := previous[r.Check]; ok && prev == r.Severity {
			continue
		}
		m.addEvent(fmt.Sprintf("%s %s: %s", r.Check, r.Severity, r.Message), r.Alarm())
	}
	m.snapshot = snap

	rows := make([]table.Row, 0, snap.ReceiverCount())
	for _, r := range snap.Receivers() {
		brightness := r.Brightness.String()
		if b, ok := r.Brightness.Get(); ok {
			brightness = fmt.Sprintf("%d%%", b.Percent)
		}
		temp, volt := "-", "-"
		if mon, ok := r.Monitoring.Get(); ok && mon.CardPresent {
			temp, volt = mon.Temperature.String(), mon.Voltage.String()
		}
		rows = append(rows, table.Row{
			fmt.Sprint(r.LAN + 1),
			fmt.Sprint(r.Index + 1),
			r.Model.String(),
			r.Firmware.String(),
			brightness,
			r.Kill.String(),
			temp,
			volt,
			moduleSummary(r),
		})
	}
	m.receivers.SetRows(rows)
}

func moduleSummary(r report.Receiver) string {
	reports, ok := r.Modules.Get()
	if !ok {
		return "N/A"
	}
	bad := 0
	for _, mod := range reports {
		if mod.Status.Faulty() {
			bad++
		}
	}
	if bad == 0 {
		return fmt.Sprintf("%d OK", len(reports))
	}
	return fmt.Sprintf("%d/%d faulty", bad, len(reports))
}

func severityStyle(s health.Severity) lipgloss.Style {
	color := "10"
	switch s {
	case health.Warning:
		color = "11"
	case health.Critical:
		color = "9"
	case health.Unknown:
		color = "13"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("NOVAPROBE - MONITOR"))
	s.WriteString("\n")
	status := fmt.Sprintf("Every %v | 'r' to sweep now | 'q' to quit", m.interval)
	if m.sweeping {
		status = m.spinner.View() + " sweeping... | " + status
	}
	s.WriteString(headerStyle.Render(status))
	s.WriteString("\n\n")

	if m.snapshot == nil {
		if m.lastErr != nil {
			s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %v", m.lastErr)))
		} else {
			s.WriteString(infoStyle.Render("⏳ Waiting for the first sweep..."))
		}
		s.WriteString("\n")
		return s.String()
	}
	snap := m.snapshot

	// Sender
	sender := strings.Builder{}
	severity := snap.Severity()
	sender.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Status:"), severityStyle(severity).Render(severity.String()),
		labelStyle.Render("Port:"), valueStyle.Render(snap.Port),
		labelStyle.Render("Swept:"), valueStyle.Render(snap.Taken.Format("15:04:05")+" ("+snap.Duration.Round(time.Millisecond).String()+")"),
	))
	sender.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s",
		labelStyle.Render("Sender:"), valueStyle.Render(snap.Sender.Model.String()),
		labelStyle.Render("Firmware:"), valueStyle.Render(snap.Sender.Firmware.String()),
		labelStyle.Render("DVI:"), valueStyle.Render(snap.Sender.DVI.String()),
		labelStyle.Render("Lux:"), valueStyle.Render(snap.Brightness.Lux.String()),
	))
	s.WriteString(boxStyle.Render(sender.String()))
	s.WriteString("\n")

	// Checks
	checks := strings.Builder{}
	for i, r := range snap.Results {
		if i > 0 {
			checks.WriteString("\n")
		}
		checks.WriteString(fmt.Sprintf("%s %s %s",
			labelStyle.Render(fmt.Sprintf("%-12s", r.Check)),
			severityStyle(r.Severity).Render(fmt.Sprintf("%-8s", r.Severity)),
			r.Message,
		))
	}
	s.WriteString(boxStyle.Render(checks.String()))
	s.WriteString("\n")

	// Receivers
	s.WriteString(labelStyle.Render(fmt.Sprintf("Receivers (%d):", snap.ReceiverCount())))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.receivers.View()))
	s.WriteString("\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	logContent := strings.Builder{}
	start := max(0, len(m.eventLog)-5)
	for i := start; i < len(m.eventLog); i++ {
		entry := m.eventLog[i]
		timestamp := entry.timestamp.Format("01/02/06 15:04:05")
		if entry.isError {
			logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
		} else {
			logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), infoStyle.Render("ℹ "+entry.message)))
		}
	}
	s.WriteString(boxStyle.Width(max(20, m.width-4)).Render(strings.TrimRight(logContent.String(), "\n")))

	return s.String()
}
