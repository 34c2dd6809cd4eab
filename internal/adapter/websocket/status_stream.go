// Package websocket streams overlay controller status to browser and CLI clients.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/metrics"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 30 * time.Second
	pongDeadline  = 60 * time.Second
	statusTimeout = 2 * time.Second
	maxReadBytes  = 512
)

type statusSource interface {
	Status(ctx context.Context) (domain.OverlayStatus, error)
}

// StatusStream pushes the controller status to each connected client whenever it changes.
type StatusStream struct {
	source     statusSource
	clock      clockwork.Clock
	interval   time.Duration
	maxClients int
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients int
	closed  bool
	closing chan struct{}
	wg      sync.WaitGroup
}

// NewStatusStream creates a stream that polls source every interval.
func NewStatusStream(source statusSource, clock clockwork.Clock, interval time.Duration, maxClients int, checkOrigin func(*http.Request) bool) *StatusStream {
	return &StatusStream{
		source:     source,
		clock:      clock,
		interval:   interval,
		maxClients: maxClients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		closing: make(chan struct{}),
	}
}

func (s *StatusStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.acquire() {
		http.Error(w, "too many status clients", http.StatusServiceUnavailable)
		return
	}
	defer s.release()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Debug("Status stream upgrade failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	metrics.StatusStreamClients.Inc()
	defer metrics.StatusStreamClients.Dec()

	slog.Debug("Status client connected", "remote_addr", r.RemoteAddr)
	s.serve(conn)
	slog.Debug("Status client disconnected", "remote_addr", r.RemoteAddr)
}

func (s *StatusStream) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.clients >= s.maxClients {
		return false
	}
	s.clients++
	s.wg.Add(1)
	return true
}

func (s *StatusStream) release() {
	s.mu.Lock()
	s.clients--
	s.mu.Unlock()
	s.wg.Done()
}

// Clients returns the number of connected clients.
func (s *StatusStream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients
}

// Close sends a close frame to every client and waits for their handlers to return.
func (s *StatusStream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.closing)
	s.mu.Unlock()

	s.wg.Wait()
}

// serve is the connection's only writer.
func (s *StatusStream) serve(conn *websocket.Conn) {
	readDone := make(chan struct{})
	go readPump(conn, s.clock, readDone)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	pinger := s.clock.NewTicker(pingInterval)
	defer pinger.Stop()

	var (
		last    domain.OverlayStatus
		started bool
	)
	push := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
		status, err := s.source.Status(ctx)
		cancel()
		if err != nil {
			slog.Warn("Status unavailable for stream", "error", err)
			return true
		}
		if started && status == last {
			return true
		}

		payload, err := json.Marshal(status)
		if err != nil {
			slog.Error("Failed to encode status", "error", err)
			return false
		}
		s.setWriteDeadline(conn)
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return false
		}
		last, started = status, true
		return true
	}

	if !push() {
		return
	}
	for {
		select {
		case <-ticker.Chan():
			if !push() {
				return
			}
		case <-pinger.Chan():
			s.setWriteDeadline(conn)
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		case <-s.closing:
			s.setWriteDeadline(conn)
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteMessage(websocket.CloseMessage, msg)
			return
		}
	}
}

func (s *StatusStream) setWriteDeadline(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(s.clock.Now().Add(writeDeadline))
}

// readPump discards client messages and keeps the read deadline alive on pongs.
func readPump(conn *websocket.Conn, clock clockwork.Clock, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxReadBytes)
	_ = conn.SetReadDeadline(clock.Now().Add(pongDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(clock.Now().Add(pongDeadline))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
