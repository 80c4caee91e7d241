package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/websocket"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/cobot/pkg/api"
	"github.com/gwillem/cobot/pkg/dobot"
	"github.com/gwillem/cobot/pkg/operation"
)

type WatchCommand struct {
	URL    string        `long:"url" default:"ws://localhost:3102/api/v1/cobot/events" description:"Events URL of a running service"`
	Sample time.Duration `long:"sample" default:"500ms" description:"Chart sample interval"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of transitions to show
	borderSize   = 2 // chart border
	modeDataSet  = "mode"
)

// State colors
var stateColors = map[operation.State]string{
	operation.Idle:     "46",  // green
	operation.Moving:   "226", // yellow
	operation.Picked:   "51",  // cyan
	operation.Scanning: "208", // orange
	operation.Placed:   "201", // magenta
	operation.Error:    "196", // red
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func stateStyle(s operation.State) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(stateColors[s]))
}

type watchModel struct {
	url      string
	sample   time.Duration
	updates  <-chan operation.Status
	errc     <-chan error
	chart    *streamlinechart.Model
	status   operation.Status
	seen     bool
	width    int
	height   int
	logs     []string
	err      error
	quitting bool
}

type statusMsg operation.Status
type disconnectedMsg struct{ err error }
type sampleMsg time.Time

// subscribe reads status messages from ws until the connection fails.
func subscribe(ws *websocket.Conn) (<-chan operation.Status, <-chan error) {
	updates := make(chan operation.Status, 16)
	errc := make(chan error, 1)
	go func() {
		defer close(updates)
		for {
			var st operation.Status
			if err := websocket.JSON.Receive(ws, &st); err != nil {
				errc <- err
				return
			}
			updates <- st
		}
	}()
	return updates, errc
}

func waitForStatus(updates <-chan operation.Status, errc <-chan error) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return disconnectedMsg{err: <-errc}
		}
		return statusMsg(st)
	}
}

func (m *watchModel) addLog(msg string) {
	m.logs = append(m.logs, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg))
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *watchModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(40, m.width-borderSize-2)
	height = max(10, m.height-headerHeight-legendHeight-footerHeight-borderSize)
	return width, height
}

func newWatchModel(url string, sample time.Duration, updates <-chan operation.Status, errc <-chan error) watchModel {
	// MG400 modes run from 1 (init) to 11 (collision)
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-1, 12),
	)
	chart.SetDataSetStyles(modeDataSet, runes.ThinLineStyle, lipgloss.NewStyle().Foreground(lipgloss.Color("12")))

	return watchModel{
		url:     url,
		sample:  sample,
		updates: updates,
		errc:    errc,
		chart:   &chart,
		status:  operation.Status{Mode: dobot.ModeUnknown},
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.sample, func(t time.Time) tea.Msg { return sampleMsg(t) })
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		waitForStatus(m.updates, m.errc),
		m.tick(),
	)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case statusMsg:
		st := operation.Status(msg)
		if !m.seen || st.State != m.status.State || st.Error != m.status.Error {
			line := string(st.State)
			if st.Operation != "" {
				line += " after " + st.Operation
			}
			if st.Error != "" {
				line += ": " + st.Error
			}
			m.addLog(line)
		}
		m.status = st
		m.seen = true
		return m, waitForStatus(m.updates, m.errc)

	case sampleMsg:
		// Sample at a fixed rate so the chart scrolls while nothing changes
		m.chart.PushDataSet(modeDataSet, float64(m.status.Mode))
		m.chart.DrawAll()
		return m, m.tick()

	case disconnectedMsg:
		m.err = msg.err
		m.addLog(fmt.Sprintf("connection lost: %v", msg.err))
		return m, nil
	}

	return m, nil
}

func (m watchModel) View() string {
	if m.quitting {
		return "Watch stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("cobot watch"))
	sb.WriteString(" ")
	switch {
	case m.err != nil:
		sb.WriteString(stateStyle(operation.Error).Render("disconnected"))
	case m.seen:
		sb.WriteString(stateStyle(m.status.State).Render(string(m.status.State)))
		sb.WriteString(fmt.Sprintf("  mode %d (%s)", int(m.status.Mode), m.status.Mode))
	default:
		sb.WriteString(statusStyle.Render("waiting for " + m.url))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(20, m.width-4))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	items := []string{lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true).Render("━━") + " robot mode"}
	for _, s := range []operation.State{operation.Idle, operation.Moving, operation.Picked, operation.Scanning, operation.Placed, operation.Error} {
		items = append(items, stateStyle(s).Render("■")+" "+strings.ToLower(string(s)))
	}
	return strings.Join(items, "  ")
}

func (c *WatchCommand) Execute(args []string) error {
	if !strings.Contains(c.URL, api.Prefix) {
		c.URL = strings.TrimSuffix(c.URL, "/") + api.Prefix + "/events"
	}
	origin := "http://" + strings.TrimPrefix(strings.TrimPrefix(c.URL, "ws://"), "wss://")
	ws, err := websocket.Dial(c.URL, "", origin)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.URL, err)
	}
	defer ws.Close()

	updates, errc := subscribe(ws)
	p := tea.NewProgram(newWatchModel(c.URL, c.Sample, updates, errc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run watch: %w", err)
	}
	return nil
}
