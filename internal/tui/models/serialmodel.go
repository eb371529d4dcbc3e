package models

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/components"
	tea "github.com/charmbracelet/bubbletea"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// ConnectionStatusMsg reports that the port opened (Err nil) or failed.
type ConnectionStatusMsg struct {
	Err error
}

// NoteMsg is an informational line for the terminal.
type NoteMsg struct {
	Text string
}

// Reader is the read side of a serial.Port.
type Reader interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

// SignalSource is the modem line side of a serial.Port.
type SignalSource interface {
	GetModemSignals() (serial.ModemSignals, error)
	WaitForSignalChangeContext(ctx context.Context, mask serial.SignalMask) (serial.ModemSignals, serial.SignalMask, error)
}

// Session owns the port behind a TUI and the goroutines feeding it.
type Session struct {
	path   string
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	port      serial.Port
	connected bool
	ready     bool
	inputMode InputMode
	nextID    int
}

func NewSession(path string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{path: path, ctx: ctx, cancel: cancel}
}

func (s *Session) Path() string             { return s.path }
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) Port() serial.Port {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

func (s *Session) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Session) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Session) InputMode() InputMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputMode
}

func (s *Session) SetInputMode(mode InputMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputMode = mode
}

// NextID hands out ids for TX entries.
func (s *Session) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// Connect opens the port in the background and, on success, starts the
// read and signal pumps. Every outcome is delivered through emit.
func (s *Session) Connect(open func() (serial.Port, error), emit func(tea.Msg)) {
	go func() {
		port, err := open()
		if err != nil {
			emit(ConnectionStatusMsg{Err: err})
			return
		}

		s.mu.Lock()
		if s.ctx.Err() != nil {
			s.mu.Unlock()
			port.Close()
			return
		}
		s.port = port
		s.mu.Unlock()

		emit(ConnectionStatusMsg{})
		go ReadLoop(s.ctx, port, emit)
		go WatchSignals(s.ctx, port, emit)
	}()
}

// Write sends data and reports the result for entry id.
func (s *Session) Write(id int, data []byte) tea.Cmd {
	port := s.Port()
	return func() tea.Msg {
		if port == nil {
			return components.WriteResultMsg{ID: id, Err: fmt.Errorf("port not connected")}
		}
		n, err := port.WriteContext(s.ctx, data)
		return components.WriteResultMsg{ID: id, N: n, Err: err}
	}
}

// ToggleRTS flips RTS and reports the new line state.
func (s *Session) ToggleRTS() tea.Cmd {
	return s.toggle("RTS", serial.Port.GetRTS, serial.Port.SetRTS)
}

// ToggleDTR flips DTR and reports the new line state.
func (s *Session) ToggleDTR() tea.Cmd {
	return s.toggle("DTR", serial.Port.GetDTR, serial.Port.SetDTR)
}

func (s *Session) toggle(name string, get func(serial.Port) (bool, error), set func(serial.Port, bool) error) tea.Cmd {
	port := s.Port()
	return func() tea.Msg {
		if port == nil {
			return NoteMsg{Text: name + ": port not connected"}
		}
		level, err := get(port)
		if err == nil {
			err = set(port, !level)
		}
		if err != nil {
			return NoteMsg{Text: fmt.Sprintf("%s: %v", name, err)}
		}
		signals, err := port.GetModemSignals()
		if err != nil {
			return NoteMsg{Text: fmt.Sprintf("%s set %s", name, onOff(!level))}
		}
		return components.SignalsMsg{Signals: signals}
	}
}

// SendBreak holds a break for d.
func (s *Session) SendBreak(d time.Duration) tea.Cmd {
	port := s.Port()
	return func() tea.Msg {
		if port == nil {
			return NoteMsg{Text: "break: port not connected"}
		}
		if err := port.SendBreak(d); err != nil {
			return NoteMsg{Text: fmt.Sprintf("break: %v", err)}
		}
		return NoteMsg{Text: fmt.Sprintf("sent %s break", d)}
	}
}

// Close stops the pumps and closes the port.
func (s *Session) Close() {
	s.cancel()

	s.mu.Lock()
	port := s.port
	s.port = nil
	s.connected = false
	s.mu.Unlock()

	if port != nil {
		port.Close()
	}
}

// ReadLoop forwards everything read from r as RX messages until ctx ends
// or a read fails. A failure is reported once as a ConnectionStatusMsg.
func ReadLoop(ctx context.Context, r Reader, emit func(tea.Msg)) {
	buf := make([]byte, 4096)
	for {
		n, err := r.ReadContext(ctx, buf)
		if n > 0 {
			emit(components.DataMsg{
				Timestamp: time.Now(),
				Data:      append([]byte(nil), buf[:n]...),
				Direction: components.RX,
			})
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			emit(ConnectionStatusMsg{Err: err})
			return
		}
	}
}

// WatchSignals reports the modem lines once and then on every input line
// change. Ports without modem lines (pseudo-terminals) are skipped quietly.
func WatchSignals(ctx context.Context, src SignalSource, emit func(tea.Msg)) {
	signals, err := src.GetModemSignals()
	if err != nil {
		return
	}
	emit(components.SignalsMsg{Signals: signals})

	for {
		signals, changed, err := src.WaitForSignalChangeContext(ctx, serial.SignalAll)
		if err != nil {
			return
		}
		emit(components.SignalsMsg{Signals: signals, Changed: changed})
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
