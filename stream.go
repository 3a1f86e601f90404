package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"i4.energy/across/atkit/terminal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// stream is a live terminal over WebSocket. Every text message a client
// sends is written to the device; device output goes to every client.
type stream struct {
	logger *slog.Logger
	sender interface{ Send(string) error }

	mu      sync.Mutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	conn *websocket.Conn
	out  chan string
}

func newStream(sender interface{ Send(string) error }, logger *slog.Logger) *stream {
	return &stream{
		logger:  logger,
		sender:  sender,
		clients: make(map[*streamClient]struct{}),
	}
}

func (s *stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := &streamClient{conn: conn, out: make(chan string, 64)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("Stream client connected", "remote", r.RemoteAddr)

	go s.write(c)
	s.read(c)

	s.mu.Lock()
	delete(s.clients, c)
	close(c.out)
	s.mu.Unlock()
	conn.Close()
	s.logger.Info("Stream client disconnected", "remote", r.RemoteAddr)
}

// read sends every message of c as a command until the connection ends.
func (s *stream) read(c *streamClient) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		command := strings.TrimSpace(string(msg))
		if command == "" {
			continue
		}
		if err := s.sender.Send(command); err != nil {
			s.enqueue(c, fmt.Sprintf("\nError: %v\n", err))
		}
	}
}

// write is the only goroutine writing to c.
func (s *stream) write(c *streamClient) {
	for text := range c.out {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			c.conn.Close()
			return
		}
	}
}

// publish hands a terminal event to every client. Clients that fall too far
// behind miss output.
func (s *stream) publish(ev terminal.Event) {
	var text string
	switch ev.Kind {
	case terminal.EventData, terminal.EventCommand:
		text = ev.Data
	case terminal.EventConnectionError:
		text = fmt.Sprintf("\nSerial Port Error: %v\n", ev.Err)
	default:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.enqueueLocked(c, text)
	}
}

func (s *stream) enqueue(c *streamClient, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(c, text)
}

func (s *stream) enqueueLocked(c *streamClient, text string) {
	select {
	case c.out <- text:
	default:
		s.logger.Debug("Stream client too slow, output dropped")
	}
}
