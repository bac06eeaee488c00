package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hmbacher/genius-gateway/internal/discovery"
	"github.com/hmbacher/genius-gateway/internal/logging"
	"github.com/hmbacher/genius-gateway/internal/socket"
	"go.uber.org/zap"
)

// DefaultMaxClients matches the gateway's event socket client limit.
const DefaultMaxClients = 16

// shutdownWait bounds how long Shutdown waits for client goroutines.
const shutdownWait = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Addr       string          // Listen address, e.g. ":8080"
	Path       string          // Event socket path (default /ws/events)
	Encoding   socket.Encoding // Used for clients that have not sent a frame yet
	CertPath   string          // With KeyPath, serve wss
	KeyPath    string
	MaxClients int      // 0 uses DefaultMaxClients
	Events     []string // Subscribable events; empty accepts any
}

// Server is a simulated gateway event socket. Clients subscribe to events
// and receive every emitted event they are subscribed to.
type Server struct {
	config    *Config
	tlsConfig *tls.Config
	codecs    map[int]socket.Codec // by websocket message type
	fallback  socket.Codec
	events    map[string]struct{}
	upgrader  websocket.Upgrader
	httpSrv   *http.Server
	listener  net.Listener
	nextID    atomic.Uint64

	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	clients map[string]*client
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	cfg := *config
	if cfg.Path == "" {
		cfg.Path = discovery.DefaultEventPath
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}

	text, err := socket.NewCodec(socket.EncodingText)
	if err != nil {
		return nil, err
	}
	binary, err := socket.NewCodec(socket.EncodingBinary)
	if err != nil {
		return nil, err
	}
	fallback := binary
	if cfg.Encoding == socket.EncodingText {
		fallback = text
	}

	var tlsConfig *tls.Config
	if cfg.CertPath != "" || cfg.KeyPath != "" {
		tlsConfig, err = NewTLSConfig(cfg.CertPath, cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:    &cfg,
		tlsConfig: tlsConfig,
		codecs: map[int]socket.Codec{
			websocket.TextMessage:   text,
			websocket.BinaryMessage: binary,
		},
		fallback: fallback,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
	if len(cfg.Events) > 0 {
		s.events = make(map[string]struct{}, len(cfg.Events))
		for _, e := range cfg.Events {
			s.events[e] = struct{}{}
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, s.handleWebSocket)
	s.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	return s, nil
}

// Listen binds the listen address. Start calls it when needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	if s.tlsConfig != nil {
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the event socket URL clients connect to.
func (s *Server) URL() string {
	scheme := "ws"
	if s.tlsConfig != nil {
		scheme = "wss"
	}
	host := s.config.Addr
	if addr := s.Addr(); addr != nil {
		host = addr.String()
	}
	return scheme + "://" + host + s.config.Path
}

// Start serves until ctx is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	logging.Info("Starting gateway simulator",
		zap.String("url", s.URL()),
		zap.Int("max_clients", s.config.MaxClients),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpSrv.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Emit sends {event, data} to every client subscribed to event and returns
// how many clients it reached.
func (s *Server) Emit(event string, data any) int {
	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		if c.subscribed(event) {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	env := socket.Envelope{Event: event, Data: data}
	sent := 0
	for _, c := range targets {
		if err := c.send(env); err != nil {
			logging.Warn("Failed to emit event to client",
				zap.String("client", c.id),
				zap.String("event", event),
				zap.Error(err),
			)
			_ = c.conn.Close()
			continue
		}
		sent++
	}

	logging.Debug("Event emitted",
		zap.String("event", event),
		zap.Int("subscribers", sent),
	)
	return sent
}

// Subscribers returns the number of clients subscribed to event.
func (s *Server) Subscribers(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.clients {
		if c.subscribed(event) {
			n++
		}
	}
	return n
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Shutdown stops accepting clients, closes the connected ones and waits for
// their goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down gateway simulator...")

	err := s.httpSrv.Shutdown(ctx)
	if s.listener != nil {
		// Not tracked by httpSrv when Serve never ran.
		_ = s.listener.Close()
	}

	// Upgraded connections are hijacked and not closed by http.Server.
	s.mu.Lock()
	s.closed = true
	for id, c := range s.clients {
		logging.Debug("Closing active connection", zap.String("client", id))
		_ = c.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return err
}

// accepts reports whether clients may subscribe to event.
func (s *Server) accepts(event string) bool {
	if socket.IsReserved(event) {
		return false
	}
	if s.events == nil {
		return true
	}
	_, ok := s.events[event]
	return ok
}
