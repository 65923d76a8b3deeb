package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"homebin/internal/buildstate"
	"homebin/internal/util"
)

const (
	refreshInterval = 5 * time.Second
	recentLogLines  = 5
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#777777", Dark: "#888888"})
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2BD97C"))
)

type tickMsg time.Time

type snapshotMsg struct {
	status    buildstate.Status
	resources buildstate.Resources
	recent    []string
}

type dashboardModel struct {
	mon      *buildstate.Monitor
	spinner  spinner.Model
	progress progress.Model
	width    int

	status    buildstate.Status
	resources buildstate.Resources
	recent    []string
	hasData   bool
}

func newDashboardModel(mon *buildstate.Monitor) dashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})

	p := progress.New(progress.WithScaledGradient("#5A56E0", "#2BD97C"))

	return dashboardModel{mon: mon, spinner: s, progress: p}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// snapshot gathers everything the view needs off the Update goroutine.
func (m dashboardModel) snapshot() tea.Msg {
	res, _ := buildstate.ReadResources(0)
	return snapshotMsg{
		status:    m.mon.Snapshot(time.Now()),
		resources: res,
		recent:    m.mon.TailLines(recentLogLines),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.snapshot, tick())
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := msg.Width - 10
		if barWidth < 20 {
			barWidth = 20
		}
		if barWidth > 50 {
			barWidth = 50
		}
		m.progress.Width = barWidth
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.snapshot, tick())

	case snapshotMsg:
		m.status = msg.status
		m.resources = msg.resources
		m.recent = msg.recent
		m.hasData = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m dashboardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("LFS Build Monitor") + "\n\n")

	if !m.hasData {
		b.WriteString(m.spinner.View() + " Reading build state...\n")
		return b.String()
	}

	st := m.status
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Current Phase:"), st.Phase)
	fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render("Current Package:"), st.Package)
	fmt.Fprintf(&b, "%s %.1f%%\n\n", m.progress.ViewAs(st.Progress/100), st.Progress)

	if st.HasTime {
		fmt.Fprintf(&b, "%s %s\n",
			labelStyle.Render("Build Time:"), buildstate.FormatBuildTime(st.BuildTime))
		if est, ok := buildstate.EstimateRemaining(st.BuildTime, st.Progress); ok {
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Est. Remaining:"), est)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s %s   %s %s\n\n",
		labelStyle.Render("Errors:"), errStyle.Render(strconv.Itoa(st.Errors)),
		labelStyle.Render("Warnings:"), warnStyle.Render(strconv.Itoa(st.Warnings)))

	r := m.resources
	b.WriteString(labelStyle.Render("System Resources:") + "\n")
	fmt.Fprintf(&b, "  CPU: %.1f%%\n", r.CPUPercent)
	fmt.Fprintf(&b, "  Memory: %.1f%% (%s / %s)\n",
		r.MemoryPercent, util.FormatBytes(r.MemoryUsed), util.FormatBytes(r.MemoryTotal))
	fmt.Fprintf(&b, "  Disk: %.1f%% (%s / %s)\n\n",
		r.DiskPercent, util.FormatBytes(r.DiskUsed), util.FormatBytes(r.DiskTotal))

	if len(m.recent) > 0 {
		b.WriteString(labelStyle.Render("Recent Log Entries:") + "\n")
		for _, line := range m.recent {
			b.WriteString("  " + dimStyle.Render(line) + "\n")
		}
		b.WriteString("\n")
	}

	switch {
	case st.Complete():
		b.WriteString(okStyle.Render("BUILD COMPLETE ✓") + "\n")
	case st.Failed():
		b.WriteString(errStyle.Render("BUILD FAILED ✗") + "\n")
	default:
		b.WriteString(m.spinner.View() + " build in progress\n")
	}

	b.WriteString("\n" + dimStyle.Render("q: quit") + "\n")
	return b.String()
}
