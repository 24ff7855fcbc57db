package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/wlseat/internal/seat"
)

// Update is one delivered event together with the seat state after it
type Update struct {
	At       time.Time
	Line     string
	Snapshot seat.Snapshot
}

// UpdateMsg carries an Update into the program
type UpdateMsg Update

// FeedClosedMsg is sent once the update channel is closed
type FeedClosedMsg struct{}

// WaitForUpdate reads the next update from feed
func WaitForUpdate(feed <-chan Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-feed
		if !ok {
			return FeedClosedMsg{}
		}
		return UpdateMsg(u)
	}
}

type keyMap struct {
	Pause  key.Binding
	Clear  key.Binding
	Top    key.Binding
	Bottom key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Clear, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Pause, k.Clear}, {k.Top, k.Bottom}, {k.Help, k.Quit}}
}

var defaultKeys = keyMap{
	Pause:  key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause")),
	Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// MonitorModel is the full-screen live view of a seat
type MonitorModel struct {
	title string
	feed  <-chan Update

	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	ready    bool

	windowWidth  int
	windowHeight int

	lines    []string
	maxLines int
	paused   bool
	skipped  int
	closed   bool

	snapshot seat.Snapshot
	seen     bool

	headerStyle lipgloss.Style
	statusStyle lipgloss.Style
}

// NewMonitorModel creates a monitor reading from feed
func NewMonitorModel(title string, feed <-chan Update) *MonitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &MonitorModel{
		title:    title,
		feed:     feed,
		spinner:  s,
		help:     help.New(),
		keys:     defaultKeys,
		maxLines: 1000,

		headerStyle: TitleStyle,
		statusStyle: StatusBarStyle,
	}
}

func (m *MonitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, WaitForUpdate(m.feed))
}

func (m *MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.help.Width = msg.Width
		height := max(msg.Height-m.chromeHeight(), 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if !m.paused && m.skipped > 0 {
				m.addLine(fmt.Sprintf("… %d event%s skipped while paused", m.skipped, pluralize(m.skipped)))
				m.skipped = 0
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.lines = m.lines[:0]
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case UpdateMsg:
		m.snapshot = msg.Snapshot
		m.seen = true
		if m.paused {
			m.skipped++
		} else if msg.Line != "" {
			m.addLine(formatLine(msg.At, msg.Line))
			m.refresh()
		}
		return m, WaitForUpdate(m.feed)

	case FeedClosedMsg:
		m.closed = true
		m.addLine(FormatWarning("seat closed"))
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// chromeHeight is the number of lines around the viewport
func (m *MonitorModel) chromeHeight() int {
	return lipgloss.Height(m.renderHeader()) + 2
}

func (m *MonitorModel) addLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > m.maxLines {
		m.lines = m.lines[len(m.lines)-m.maxLines:]
	}
}

func (m *MonitorModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderLines())
	m.viewport.GotoBottom()
}

func (m *MonitorModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *MonitorModel) renderHeader() string {
	title := m.headerStyle.Width(m.windowWidth).Render(fmt.Sprintf("WLSEAT · %s", m.title))
	if !m.seen {
		waiting := m.statusStyle.Width(m.windowWidth).Render(m.spinner.View() + " Waiting for seat events\n")
		return title + "\n" + waiting
	}
	return title + "\n" + m.statusStyle.Width(m.windowWidth).Render(RenderSnapshot(m.snapshot))
}

func (m *MonitorModel) renderStatusBar() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d events", len(m.lines)))
	if m.paused {
		parts = append(parts, WarningStyle.Render("paused"))
	}
	parts = append(parts, m.help.View(m.keys))

	return MutedStyle.
		Width(m.windowWidth).
		Padding(0, 1).
		Render(strings.Join(parts, " │ "))
}

func (m *MonitorModel) renderLines() string {
	if len(m.lines) == 0 {
		return MutedStyle.Italic(true).Render("  Waiting for events...")
	}
	return strings.Join(m.lines, "\n")
}

// Lines returns the formatted event lines currently kept
func (m *MonitorModel) Lines() []string {
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

func formatLine(at time.Time, line string) string {
	return fmt.Sprintf("  %s %s", SubtleStyle.Render(at.Format("15:04:05.000")), eventStyle(line).Render(line))
}

// eventStyle colours a line by the device it came from
func eventStyle(line string) lipgloss.Style {
	switch {
	case strings.HasPrefix(line, "key "):
		return TextStyle
	case strings.HasPrefix(line, "touch"):
		return InfoStyle
	case strings.Contains(line, " enter "), strings.Contains(line, " leave "):
		return SuccessStyle
	default:
		return SubtleStyle
	}
}

// RenderSnapshot formats seat state on two status lines. The marker is
// filled while any device of the seat has a focus.
func RenderSnapshot(s seat.Snapshot) string {
	name := s.Name
	if name == "" {
		name = "seat"
	}
	caps := s.Capabilities.String()

	focused := s.KeyboardFocus != 0 || s.PointerFocus != 0 || s.TouchFocus != 0
	first := FormatFocus(focused, fmt.Sprintf("%s [%s] │ serial %d │ keyboard %s │ pointer %s │ touch %s",
		name, caps, s.Serial, s.KeyboardFocus, s.PointerFocus, s.TouchFocus))

	second := fmt.Sprintf("keymap %q mods %s │ pointer %.1f,%.1f buttons %#x │ cursor serial %d │ %d touch point%s",
		s.Keymap, s.Modifiers, s.Pointer.X, s.Pointer.Y, s.Buttons, s.CursorSerial,
		len(s.TouchPoints), pluralize(len(s.TouchPoints)))
	return first + "\n" + second
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
