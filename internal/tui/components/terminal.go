package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultScrollback is the number of entries a Terminal keeps.
const DefaultScrollback = 5000

// Terminal is a scrolling log of DataMsg entries.
type Terminal struct {
	viewport   viewport.Model
	formatter  *DataFormatter
	entries    []DataMsg
	scrollback int
	follow     bool
}

func NewTerminal(width, height int, mode DisplayMode) *Terminal {
	return &Terminal{
		viewport:   viewport.New(width, height),
		formatter:  NewDataFormatter(mode),
		scrollback: DefaultScrollback,
		follow:     true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	t.viewport.Width = width
	t.viewport.Height = height
	t.render()
}

func (t *Terminal) Width() int { return t.viewport.Width }

// Add appends msg, dropping the oldest entries past the scrollback limit.
func (t *Terminal) Add(msg DataMsg) {
	t.entries = append(t.entries, msg)
	if over := len(t.entries) - t.scrollback; over > 0 {
		t.entries = append(t.entries[:0:0], t.entries[over:]...)
	}
	t.render()
}

// Resolve updates the status of the TX entry with the result's ID.
func (t *Terminal) Resolve(res WriteResultMsg) bool {
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := &t.entries[i]
		if e.Direction != TX || e.ID != res.ID {
			continue
		}
		switch {
		case res.Err != nil:
			e.Status = WriteFailed
		case res.N < len(e.Data):
			e.Status = WriteShort
		default:
			e.Status = WriteDone
		}
		t.render()
		return true
	}
	return false
}

func (t *Terminal) Entries() []DataMsg { return t.entries }

func (t *Terminal) Clear() {
	t.entries = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex()        { t.formatter.ToggleHex(); t.render() }
func (t *Terminal) ToggleASCII()      { t.formatter.ToggleASCII(); t.render() }
func (t *Terminal) ToggleTimestamps() { t.formatter.ToggleTimestamps(); t.render() }
func (t *Terminal) ToggleIndicators() { t.formatter.ToggleIndicators(); t.render() }

func (t *Terminal) GetDisplayMode() DisplayMode { return t.formatter.GetDisplayMode() }

// Following reports whether new data scrolls the view to the bottom.
func (t *Terminal) Following() bool { return t.follow }

func (t *Terminal) render() {
	t.viewport.SetContent(strings.Join(t.formatter.FormatMessages(t.entries), "\n"))
	if t.follow {
		t.viewport.GotoBottom()
	}
}

// Update handles resizing and mouse wheel scrolling. Key messages are left
// to the caller's bindings.
func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		t.follow = t.viewport.AtBottom()
		return cmd
	}
	return nil
}

func (t *Terminal) ScrollUp()   { t.viewport.HalfViewUp(); t.follow = t.viewport.AtBottom() }
func (t *Terminal) ScrollDown() { t.viewport.HalfViewDown(); t.follow = t.viewport.AtBottom() }
func (t *Terminal) GotoTop()    { t.viewport.GotoTop(); t.follow = t.viewport.AtBottom() }

func (t *Terminal) GotoBottom() {
	t.viewport.GotoBottom()
	t.follow = true
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
