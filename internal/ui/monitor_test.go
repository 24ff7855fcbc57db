package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlseat/internal/keymap"
	"github.com/bnema/wlseat/internal/seat"
)

func sizedMonitor(t *testing.T, feed chan Update) *MonitorModel {
	t.Helper()
	m := NewMonitorModel("seat0", feed)
	_, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	require.True(t, m.ready)
	return m
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWaitForUpdate(t *testing.T) {
	feed := make(chan Update, 1)
	feed <- Update{Line: "pointer enter serial=1 window#1"}
	msg := WaitForUpdate(feed)()
	assert.Equal(t, UpdateMsg{Line: "pointer enter serial=1 window#1"}, msg)

	close(feed)
	assert.Equal(t, FeedClosedMsg{}, WaitForUpdate(feed)())
}

func TestMonitorUpdates(t *testing.T) {
	t.Run("lines and snapshot", func(t *testing.T) {
		m := sizedMonitor(t, make(chan Update))
		snap := seat.Snapshot{Name: "seat0", Capabilities: seat.CapKeyboard | seat.CapPointer, KeyboardFocus: 1}
		_, cmd := m.Update(UpdateMsg{At: time.Now(), Line: "key pressed code=30 sym=a", Snapshot: snap})
		assert.NotNil(t, cmd, "keeps listening")

		require.Len(t, m.Lines(), 1)
		assert.Contains(t, m.Lines()[0], "code=30")
		assert.Contains(t, m.View(), "pointer|keyboard")
		assert.Contains(t, m.View(), "keyboard window#1")
	})

	t.Run("pause counts skipped events", func(t *testing.T) {
		m := sizedMonitor(t, make(chan Update))
		m.Update(keyMsg("p"))
		m.Update(UpdateMsg{Line: "a"})
		m.Update(UpdateMsg{Line: "b"})
		assert.Empty(t, m.Lines())
		assert.Contains(t, m.View(), "paused")

		m.Update(keyMsg("p"))
		require.Len(t, m.Lines(), 1)
		assert.Contains(t, m.Lines()[0], "2 events skipped")
	})

	t.Run("clear", func(t *testing.T) {
		m := sizedMonitor(t, make(chan Update))
		m.Update(UpdateMsg{Line: "a"})
		m.Update(keyMsg("c"))
		assert.Empty(t, m.Lines())
	})

	t.Run("line limit", func(t *testing.T) {
		m := sizedMonitor(t, make(chan Update))
		m.maxLines = 3
		for _, l := range []string{"1", "2", "3", "4"} {
			m.Update(UpdateMsg{Line: "line " + l})
		}
		lines := m.Lines()
		require.Len(t, lines, 3)
		assert.Contains(t, lines[0], "line 2")
	})

	t.Run("feed closed", func(t *testing.T) {
		m := sizedMonitor(t, make(chan Update))
		_, cmd := m.Update(FeedClosedMsg{})
		assert.Nil(t, cmd)
		assert.True(t, m.closed)
		assert.Contains(t, strings.Join(m.Lines(), "\n"), IconWarning+" seat closed")
	})

	t.Run("quit", func(t *testing.T) {
		m := sizedMonitor(t, make(chan Update))
		_, cmd := m.Update(keyMsg("q"))
		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())
	})
}

func TestMonitorViewBeforeSize(t *testing.T) {
	m := NewMonitorModel("seat0", make(chan Update))
	assert.Contains(t, m.View(), "Initializing")
}

func TestRenderSnapshot(t *testing.T) {
	out := RenderSnapshot(seat.Snapshot{
		Name:         "seat0",
		Capabilities: seat.CapTouch,
		Serial:       42,
		PointerFocus: 2,
		Keymap:       "us (built-in)",
		Modifiers:    keymap.ModShift | keymap.ModCtrl,
		Pointer:      seat.Point{X: 1.5, Y: 2},
		Buttons:      1,
		TouchPoints:  []seat.TouchPoint{{ID: 1}},
	})
	assert.True(t, strings.HasPrefix(out, FocusedIndicator+" seat0 [touch]"), "pointer focus fills the marker")
	assert.Contains(t, out, "serial 42")
	assert.Contains(t, out, "pointer window#2")
	assert.Contains(t, out, `keymap "us (built-in)" mods shift+ctrl`)
	assert.Contains(t, out, "1 touch point")
	assert.NotContains(t, out, "touch points")

	empty := RenderSnapshot(seat.Snapshot{})
	assert.True(t, strings.HasPrefix(empty, UnfocusedIndicator+" seat [none]"))
	assert.Contains(t, empty, "keyboard none")
}
