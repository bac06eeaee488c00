package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hmbacher/genius-gateway/internal/logging"
	"github.com/hmbacher/genius-gateway/internal/socket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// client is one event socket connection.
type client struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn

	mu    sync.Mutex
	codec socket.Codec // encoding of the client's last frame
	subs  map[string]struct{}

	writeMu sync.Mutex
}

func (c *client) subscribed(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[event]
	return ok
}

func (c *client) send(env socket.Envelope) error {
	c.mu.Lock()
	codec := c.codec
	c.mu.Unlock()

	data, err := codec.Encode(env)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(codec.MessageType(), data); err != nil {
		return err
	}
	logging.LogSocketMessage(c.remoteAddr, "sent", codec.MessageType(), data)
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	full := len(s.clients) >= s.config.MaxClients
	s.mu.Unlock()
	if full {
		logging.Warn("Max clients reached, rejecting connection", zap.String("remote_addr", r.RemoteAddr))
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Failed to upgrade connection",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{
		id:         fmt.Sprintf("ws-%d", s.nextID.Add(1)),
		remoteAddr: r.RemoteAddr,
		conn:       conn,
		codec:      s.fallback,
		subs:       make(map[string]struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c.id] = c
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.handleConnection(c)
}

// handleConnection reads control frames until the client goes away.
func (s *Server) handleConnection(c *client) {
	logging.LogConnection(c.remoteAddr, "client_connected")

	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		_ = c.conn.Close()
		logging.LogConnection(c.remoteAddr, "client_disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debug("WebSocket connection error",
					zap.String("client", c.id),
					zap.Error(err),
				)
			}
			return
		}
		logging.LogSocketMessage(c.remoteAddr, "received", msgType, data)

		codec, ok := s.codecs[msgType]
		if !ok {
			continue
		}
		env, err := codec.Decode(data)
		if err != nil {
			logging.Warn("Invalid frame received",
				zap.String("client", c.id),
				zap.Error(err),
			)
			continue
		}

		c.mu.Lock()
		c.codec = codec
		c.mu.Unlock()

		s.handleEnvelope(c, env)
	}
}

func (s *Server) handleEnvelope(c *client, env socket.Envelope) {
	switch env.Event {
	case socket.EventSubscribe, socket.EventUnsubscribe:
		topic, _ := env.Data.(string)
		if topic == "" {
			logging.Warn("Subscription without event name", zap.String("client", c.id))
			return
		}
		if !s.accepts(topic) {
			logging.Warn("Subscription to unknown event ignored",
				zap.String("client", c.id),
				zap.String("event", topic),
			)
			return
		}

		c.mu.Lock()
		if env.Event == socket.EventSubscribe {
			c.subs[topic] = struct{}{}
		} else {
			delete(c.subs, topic)
		}
		c.mu.Unlock()

		logging.Debug("Client subscription changed",
			zap.String("client", c.id),
			zap.String("action", env.Event),
			zap.String("event", topic),
		)

	default:
		logging.Info("Client event received",
			zap.String("client", c.id),
			zap.String("event", env.Event),
			zap.Any("data", env.Data),
		)
	}
}
