package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"i4.energy/across/atkit/session"
	"i4.energy/across/atkit/terminal"
)

// Server handles incoming HTTP requests for sending commands through the
// configured session
type Server struct {
	Logger  *slog.Logger
	Session *session.Session
	// Metrics is served on /metrics when set
	Metrics *prometheus.Registry
	// Stream is served on /stream when set
	Stream http.Handler
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("GET /log", s.handleLog)
	mux.HandleFunc("DELETE /log", s.handleClearLog)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Metrics, promhttp.HandlerOpts{}))
	}
	if s.Stream != nil {
		mux.Handle("GET /stream", s.Stream)
	}
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// handleCommand writes the posted command to the device
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	type CommandRequest struct {
		Command string `json:"command"`
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	command := strings.TrimSpace(req.Command)
	if command == "" {
		s.sendError(w, "the 'command' field is required", http.StatusBadRequest)
		return
	}

	if err := s.Session.Send(command); err != nil {
		if errors.Is(err, session.ErrDisconnected) {
			s.sendError(w, err.Error(), http.StatusConflict)
			return
		}
		s.Logger.Error("Failed to send command", "error", err, "command", command)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("Command sent", "command", command)
	w.WriteHeader(http.StatusOK)
}

// handleLog returns the terminal log as plain text
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, s.Session.Log())
}

// handleClearLog empties the terminal log
func (s *Server) handleClearLog(w http.ResponseWriter, r *http.Request) {
	s.Session.ClearLog()
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect and accept commands over HTTP",
		Long: `serve opens the serial port and accepts commands over HTTP:

  POST   /command   {"command": "AT+CGSN"}
  GET    /log       the terminal log as plain text
  DELETE /log       clear the log
  GET    /stream    live terminal over WebSocket
  GET    /metrics   Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "Bind address for the HTTP server")
	return cmd
}

// serve runs the HTTP server until the command's context is done.
func (a *app) serve(cmd *cobra.Command) error {
	registry := prometheus.NewRegistry()
	m := newMetrics(registry)
	live := newStream(a.session, a.logger.With("component", "stream"))
	a.watch(func(ev terminal.Event) {
		m.observe(ev)
		live.publish(ev)
		if ev.Kind == terminal.EventConnectionError {
			a.logger.Error("Serial port lost, commands are refused until restart", "error", ev.Err)
		}
	})
	defer a.watch(nil)

	if err := a.connect(cmd); err != nil {
		return err
	}
	m.connected.Set(1)

	httpServer := &http.Server{
		Addr: a.config.BindAddress,
		Handler: &Server{
			Logger:  a.logger.With("component", "server"),
			Session: a.session,
			Metrics: registry,
			Stream:  live,
		},
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-cmd.Context().Done():
		a.logger.Info("Received shutdown signal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shut down http server: %w", err)
	}
	return nil
}
