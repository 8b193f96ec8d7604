package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/ftc10546/pushbot/pkg/telemetry"
)

const (
	headerHeight    = 2 // title + blank line
	legendHeight    = 2 // legend row + blank
	telemetryHeight = 2 // telemetry row + blank
	footerHeight    = 7 // log box height
	maxLogs         = 5 // number of log messages to show
	borderSize      = 2 // chart border
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	doneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// series is one charted line.
type series struct {
	name  string
	color string
}

// dashboardConfig wires a dashboard to its data sources. Nil channels are
// not watched.
type dashboardConfig struct {
	title    string
	subtitle string
	help     string
	series   []series
	minY     float64
	maxY     float64
	samples  <-chan map[string]float64
	frames   <-chan telemetry.Frame
	logs     <-chan string
	done     <-chan error
	onKey    func(key string) // keys other than quit
}

// dashboard charts live values with the latest telemetry and log lines.
type dashboard struct {
	cfg   dashboardConfig
	chart *streamlinechart.Model

	width    int // terminal width
	height   int // terminal height
	frame    telemetry.Frame
	logs     []string
	finished bool
	result   error
	quitting bool
}

// Messages from the data sources
type sampleMsg map[string]float64
type frameMsg telemetry.Frame
type logMsg string
type doneMsg struct{ err error }

func waitForSample(ch <-chan map[string]float64) tea.Cmd {
	return func() tea.Msg {
		return sampleMsg(<-ch)
	}
}

func waitForFrame(ch <-chan telemetry.Frame) tea.Cmd {
	return func() tea.Msg {
		return frameMsg(<-ch)
	}
}

func waitForLog(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ch)
	}
}

func waitForDone(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: <-ch}
	}
}

func newDashboard(cfg dashboardConfig) dashboard {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(cfg.minY, cfg.maxY),
	)
	for _, s := range cfg.series {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(s.color))
		chart.SetDataSetStyles(s.name, runes.ThinLineStyle, style)
	}
	return dashboard{cfg: cfg, chart: &chart}
}

func (m *dashboard) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *dashboard) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - telemetryHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m dashboard) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.cfg.samples != nil {
		cmds = append(cmds, waitForSample(m.cfg.samples))
	}
	if m.cfg.frames != nil {
		cmds = append(cmds, waitForFrame(m.cfg.frames))
	}
	if m.cfg.logs != nil {
		cmds = append(cmds, waitForLog(m.cfg.logs))
	}
	if m.cfg.done != nil {
		cmds = append(cmds, waitForDone(m.cfg.done))
	}
	return tea.Batch(cmds...)
}

func (m dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		default:
			if m.cfg.onKey != nil {
				m.cfg.onKey(key)
			}
		}

	case sampleMsg:
		for _, s := range m.cfg.series {
			if v, ok := msg[s.name]; ok {
				m.chart.PushDataSet(s.name, v)
			}
		}
		m.chart.DrawAll()
		return m, waitForSample(m.cfg.samples)

	case frameMsg:
		m.frame = telemetry.Frame(msg)
		return m, waitForFrame(m.cfg.frames)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.cfg.logs)

	case doneMsg:
		m.finished = true
		m.result = msg.err
		return m, nil
	}

	return m, nil
}

func (m dashboard) View() string {
	if m.quitting {
		return m.cfg.title + " stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render(m.cfg.title))
	if m.cfg.subtitle != "" {
		sb.WriteString(" - " + m.cfg.subtitle)
	}
	switch {
	case m.finished && m.result != nil:
		sb.WriteString("  " + failStyle.Render("FAILED"))
	case m.finished:
		sb.WriteString("  " + doneStyle.Render("DONE"))
	}
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(m.renderLegend())
	sb.WriteString("\n")

	// Telemetry
	sb.WriteString(renderFrame(m.frame))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logText string
	if len(m.logs) == 0 {
		logText = statusStyle.Render(m.cfg.help)
	} else {
		logText = strings.Join(m.logs, "\n")
	}
	if m.result != nil {
		logText += "\n" + failStyle.Render(m.result.Error())
	}
	sb.WriteString(logStyle.Render(logText))
	sb.WriteString("\n")

	return sb.String()
}

func (m dashboard) renderLegend() string {
	var items []string
	for _, s := range m.cfg.series {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(s.color)).Bold(true)
		item := colorStyle.Render("━━") + " " + s.name
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func renderFrame(f telemetry.Frame) string {
	if len(f.Fields) == 0 {
		return statusStyle.Render("no telemetry yet")
	}
	items := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		items = append(items, keyStyle.Render(field.Key+":")+" "+field.Value)
	}
	return strings.Join(items, "  ")
}
