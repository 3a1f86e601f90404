// Package session ties a terminal, the command panels and the stored
// preferences together into the state a user works with: connected or
// not, which port, which font.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"i4.energy/across/atkit/panels"
	"i4.energy/across/atkit/settings"
	"i4.energy/across/atkit/terminal"
)

// ErrDisconnected is returned by panel operations and Disconnect while no
// port is connected.
var ErrDisconnected = errors.New("no serial port connected")

// DialerFunc creates the Dialer used for a set of connection parameters.
type DialerFunc func(terminal.ConnectionParams) terminal.Dialer

// Config holds what a Session needs. Only Store is required.
type Config struct {
	Store  *settings.Store
	Logger *slog.Logger
	// Dialer defaults to opening a real serial port.
	Dialer       DialerFunc
	PollInterval time.Duration
	LogLimit     int
	// OnEvent receives every terminal event after the session has acted
	// on it. It is called from the terminal's poll goroutine.
	OnEvent func(terminal.Event)
}

// Session is the composition root of the toolkit.
type Session struct {
	ID     string
	Panels *panels.Set

	logger   *slog.Logger
	terminal *terminal.Terminal
	store    *settings.Store
	dialer   DialerFunc
	onEvent  func(terminal.Event)

	mu        sync.Mutex
	connected bool
	params    terminal.ConnectionParams
	settings  settings.Settings
	lastErr   error
}

// New loads the stored settings and builds a disconnected session.
func New(config Config) (*Session, error) {
	if config.Store == nil {
		return nil, errors.New("session: settings store is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	st, err := config.Store.Load()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := &Session{
		ID:       id,
		logger:   logger.With("session", id),
		store:    config.Store,
		dialer:   config.Dialer,
		onEvent:  config.OnEvent,
		settings: st,
	}
	if s.dialer == nil {
		s.dialer = func(p terminal.ConnectionParams) terminal.Dialer {
			return terminal.SerialDialer{Params: p, Logger: s.logger}
		}
	}

	termConfig, err := terminal.NewConfigBuilder().
		WithPollInterval(config.PollInterval).
		WithLogLimit(config.LogLimit).
		WithLogger(s.logger.With("component", "terminal")).
		WithHandler(s.handleEvent).
		Build()
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s.terminal = terminal.New(termConfig)
	s.Panels = panels.NewSet(s)
	return s, nil
}

// Connect opens the port described by params. On success the parameters
// are remembered as the last used connection.
func (s *Session) Connect(ctx context.Context, params terminal.ConnectionParams) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return terminal.ErrAlreadyConnected
	}
	s.mu.Unlock()

	if err := params.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	if err := s.terminal.Connect(ctx, s.dialer(params)); err != nil {
		s.logger.Error("Failed to connect", "port", params.Port, "error", err)
		return err
	}

	s.mu.Lock()
	if !s.terminal.Connected() {
		// the first read already failed
		err := s.lostLinkErr()
		s.mu.Unlock()
		return err
	}
	s.connected = true
	s.params = params
	s.settings.LastConnection = &params
	st := s.settings
	s.mu.Unlock()

	s.logger.Info("Connected", "params", params.String())
	if err := s.store.Save(st); err != nil {
		s.logger.Warn("Failed to remember connection", "error", err)
	}
	return nil
}

// lostLinkErr explains a link that closed on its own. The event carrying
// the cause may not have been handled yet. Callers hold s.mu.
func (s *Session) lostLinkErr() error {
	if s.lastErr != nil {
		return s.lastErr
	}
	return fmt.Errorf("%w: link closed while connecting", terminal.ErrCommunication)
}

// Disconnect closes the port.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrDisconnected
	}
	s.connected = false
	s.mu.Unlock()

	err := s.terminal.Disconnect()
	if errors.Is(err, terminal.ErrNotConnected) {
		// the link failed while we were getting here
		return nil
	}
	return err
}

// Close disconnects if needed. It is safe to call on a disconnected session.
func (s *Session) Close() error {
	if !s.Connected() {
		return nil
	}
	return s.Disconnect()
}

// Connected reports whether a port is open. Panels only work while it is.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Params returns the parameters of the current or last connection.
func (s *Session) Params() terminal.ConnectionParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// LastConnection returns the parameters remembered from an earlier run.
func (s *Session) LastConnection() (terminal.ConnectionParams, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings.LastConnection == nil {
		return terminal.ConnectionParams{}, false
	}
	return *s.settings.LastConnection, true
}

// Err returns the error that last tore the connection down, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Ready fails with ErrDisconnected while no port is open.
func (s *Session) Ready() error {
	if !s.Connected() {
		return ErrDisconnected
	}
	return nil
}

// Send forwards a command to the terminal. Panels call it; so can anything
// that wants to send a raw command.
func (s *Session) Send(command string) error {
	if !s.Connected() {
		return ErrDisconnected
	}
	return s.terminal.Send(command)
}

// Log returns the terminal log.
func (s *Session) Log() string {
	return s.terminal.Log()
}

// ClearLog empties the terminal log.
func (s *Session) ClearLog() {
	s.terminal.Clear()
}

// Font returns the stored terminal font, if one was chosen.
func (s *Session) Font() (settings.Font, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings.TerminalFont == nil {
		return settings.Font{}, false
	}
	return *s.settings.TerminalFont, true
}

// SetFont stores the terminal font.
func (s *Session) SetFont(font settings.Font) error {
	s.mu.Lock()
	s.settings.TerminalFont = &font
	st := s.settings
	s.mu.Unlock()

	if err := s.store.Save(st); err != nil {
		return err
	}
	s.logger.Info("Terminal font saved", "font", font.String())
	return nil
}

func (s *Session) handleEvent(ev terminal.Event) {
	if ev.Kind == terminal.EventConnectionError {
		s.mu.Lock()
		s.connected = false
		s.lastErr = ev.Err
		s.mu.Unlock()
		s.logger.Error("Connection closed after communication error", "error", ev.Err)
	}
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
