// Package feed serves a live event stream of store activity over WebSocket.
//
// Clients connected to /ws receive a stats message on connect and every
// message broadcast afterwards. /api/stats returns the current per-version
// document counts and /health reports the number of connected clients.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/store"
)

// MessageType names the kind of a broadcast message.
type MessageType string

const (
	// MessageTypeSeed reports a fixture file written to the store.
	MessageTypeSeed MessageType = "seed"

	// MessageTypeStats carries per-version document counts.
	MessageTypeStats MessageType = "stats"
)

// Message is one broadcast event.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// StatsFunc reports the current store statistics.
type StatsFunc func(ctx context.Context) (store.Stats, error)

// Config holds server configuration.
type Config struct {
	// Addr to listen on. ":0" picks a free port.
	Addr string

	// Stats, if set, is served on /api/stats and sent to new clients.
	Stats StatsFunc

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:   ":8080",
		Logger: zap.NewNop(),
	}
}

// sendQueue is how many encoded messages a client may fall behind by
// before further messages to it are dropped.
const sendQueue = 32

// client is one WebSocket connection and the messages waiting for it.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	stop sync.Once
}

// enqueue reports whether data was queued. A full queue drops data so one
// slow reader never holds up the rest.
func (c *client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Server accepts feed clients and fans messages out to them.
type Server struct {
	config   Config
	listener net.Listener
	srv      *http.Server

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a feed server. Call Start to begin listening.
func NewServer(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Addr == "" {
		config.Addr = DefaultConfig().Addr
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:  config,
		clients: make(map[*client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.config.Logger.Error("event feed failed", zap.Error(err))
		}
	}()
	s.config.Logger.Info("event feed listening", zap.String("addr", s.Addr()))
	return nil
}

// Stop disconnects every client and waits for the server to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.closed = true
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	s.cancel()
	for c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "feed stopping")
	}

	var err error
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := s.srv.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("failed to stop event feed: %w", shutdownErr)
		}
	}
	s.wg.Wait()
	return err
}

// Broadcast sends msg to every connected client.
func (s *Server) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.config.Logger.Warn("failed to encode feed message", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if !c.enqueue(data) {
			s.config.Logger.Debug("client behind, dropping message", zap.String("type", string(msg.Type)))
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.config.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendQueue), done: make(chan struct{})}

	// The stats snapshot is queued before the client can see broadcasts.
	if data, err := json.Marshal(s.statsMessage(r.Context())); err == nil {
		c.enqueue(data)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "feed stopping")
		return
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.config.Logger.Debug("feed client connected", zap.String("remote", r.RemoteAddr))

	s.wg.Add(1)
	go s.writeLoop(c)

	// Clients never send anything; reading only notices when they leave.
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			break
		}
	}
	s.drop(c)
}

func (s *Server) writeLoop(c *client) {
	defer s.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.drop(c)
				return
			}
		}
	}
}

// drop forgets c and closes its connection. It is safe to call twice.
func (s *Server) drop(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	c.stop.Do(func() { close(c.done) })
	if ok {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
		s.config.Logger.Debug("feed client disconnected")
	}
}

func (s *Server) statsMessage(ctx context.Context) Message {
	msg := Message{Type: MessageTypeStats, Timestamp: time.Now()}
	if s.config.Stats == nil {
		return msg
	}
	stats, err := s.config.Stats(ctx)
	if err != nil {
		s.config.Logger.Warn("failed to read store stats", zap.Error(err))
		return msg
	}
	msg.Data, _ = json.Marshal(NewStatsData(stats))
	return msg
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.config.Stats == nil {
		http.Error(w, "stats unavailable", http.StatusNotFound)
		return
	}
	stats, err := s.config.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(NewStatsData(stats))
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
