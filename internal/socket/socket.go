package socket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hmbacher/genius-gateway/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	// DefaultLivenessWindow is the silence after which the gateway is
	// declared unresponsive.
	DefaultLivenessWindow = 2 * time.Second

	// DefaultReconnectDelay is the constant delay before every reconnect.
	DefaultReconnectDelay = 1 * time.Second

	// writeWait bounds a single frame write.
	writeWait = 5 * time.Second

	eventQueueSize = 64
)

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("socket already started")

	// ErrClosed is returned when using a socket after Close.
	ErrClosed = errors.New("socket closed")
)

type options struct {
	encoding       Encoding
	livenessWindow time.Duration
	reconnectDelay time.Duration
	dialer         Dialer
	registerer     prometheus.Registerer
}

// Option configures a Socket.
type Option func(*options)

// WithEncoding selects the wire encoding. The default is EncodingBinary.
func WithEncoding(enc Encoding) Option {
	return func(o *options) { o.encoding = enc }
}

// WithLivenessWindow overrides DefaultLivenessWindow.
func WithLivenessWindow(d time.Duration) Option {
	return func(o *options) { o.livenessWindow = d }
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(o *options) { o.reconnectDelay = d }
}

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithRegisterer registers the socket's Prometheus collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// Socket keeps one self-healing connection to a gateway event socket and
// multiplexes event subscriptions over it.
//
// Lifecycle events, inbound frames and both timers are handled on a single
// event-loop goroutine, so listeners run one at a time. On, Off and Send may
// be called from any goroutine, including from inside a listener.
type Socket struct {
	url      string
	codec    Codec
	dialer   Dialer
	registry *Registry
	status   *Status
	metrics  *metrics

	ctx     context.Context
	cancel  context.CancelFunc
	events  chan func()
	started atomic.Bool
	closed  atomic.Bool

	// Owned by the event loop.
	connID    uint64
	dialing   bool
	liveness  *timer
	reconnect *timer

	// connMu guards conn and is held for the duration of a write.
	connMu sync.Mutex
	conn   Conn
}

// New creates a socket for url. Nothing is dialed until Start.
func New(url string, opts ...Option) (*Socket, error) {
	o := options{
		encoding:       EncodingBinary,
		livenessWindow: DefaultLivenessWindow,
		reconnectDelay: DefaultReconnectDelay,
		dialer:         WebSocketDialer{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.livenessWindow <= 0 {
		return nil, fmt.Errorf("liveness window must be positive, got %s", o.livenessWindow)
	}
	if o.reconnectDelay <= 0 {
		return nil, fmt.Errorf("reconnect delay must be positive, got %s", o.reconnectDelay)
	}

	codec, err := NewCodec(o.encoding)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Socket{
		url:     url,
		codec:   codec,
		dialer:  o.dialer,
		status:  &Status{},
		metrics: newMetrics(o.registerer, url),
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan func(), eventQueueSize),
	}
	s.registry = NewRegistry(s.mirror)
	s.registry.onPanic = func(event string) {
		s.metrics.listenerPanics.WithLabelValues(event).Inc()
	}
	s.liveness = newTimer(o.livenessWindow, s.post, s.handleUnresponsive)
	s.reconnect = newTimer(o.reconnectDelay, s.post, s.attemptReconnect)

	return s, nil
}

// Start launches the event loop and performs the first connection attempt.
// Cancelling ctx closes the socket.
func (s *Socket) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	go s.loop(stop)

	s.post(s.connect)
	return nil
}

// Close tears the transport down: both timers are cancelled, the
// connection is closed and the event loop stops. Listeners are not notified.
func (s *Socket) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	s.cancel()

	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}

	s.status.set(false)
	s.metrics.connected.Set(0)
	logging.LogConnection(s.url, "shutdown")
	return nil
}

// URL returns the gateway endpoint.
func (s *Socket) URL() string { return s.url }

// Encoding returns the wire encoding fixed at construction.
func (s *Socket) Encoding() Encoding { return s.codec.Encoding() }

// Codec returns the socket's codec.
func (s *Socket) Codec() Codec { return s.codec }

// Status returns the observable connectivity state.
func (s *Socket) Status() *Status { return s.status }

// Connected reports whether the connection is currently open.
func (s *Socket) Connected() bool { return s.status.Connected() }

// On registers a listener for event. See Registry.On.
func (s *Socket) On(event string, fn Listener) (unsubscribe func()) {
	return s.registry.On(event, fn)
}

// Off removes every listener for event. See Registry.Off.
func (s *Socket) Off(event string) {
	s.registry.Off(event)
}

// Send encodes {event, data} and writes it if the connection is open.
// Otherwise the message is dropped with a warning; nothing is queued.
func (s *Socket) Send(event string, data any) {
	s.send(Envelope{Event: event, Data: data})
}

// Subscribe registers a typed listener. Payloads are converted to T with the
// socket's codec; payloads that do not convert are logged and skipped.
func Subscribe[T any](s *Socket, event string, fn func(T)) (unsubscribe func()) {
	return s.On(event, func(data any) {
		if v, ok := data.(T); ok {
			fn(v)
			return
		}
		var v T
		if err := s.codec.Convert(data, &v); err != nil {
			logging.Warn("Failed to convert event payload",
				zap.String("event", event),
				zap.Error(err),
			)
			return
		}
		fn(v)
	})
}

func (s *Socket) send(env Envelope) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		logging.Warn("WebSocket not open, cannot send message",
			zap.String("url", s.url),
			zap.String("event", env.Event),
		)
		s.metrics.framesDropped.WithLabelValues(dropDisconnected).Inc()
		return
	}
	s.write(env)
}

// mirror sends a registry control envelope. While disconnected it is
// skipped: the subscription is replayed when the next connection opens.
func (s *Socket) mirror(env Envelope) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		logging.Debug("Deferring control message until open",
			zap.String("event", env.Event),
			zap.Any("topic", env.Data),
		)
		return
	}
	s.write(env)
}

// write encodes and writes env. Callers hold connMu with a live conn.
func (s *Socket) write(env Envelope) {
	payload, err := s.codec.Encode(env)
	if err != nil {
		logging.Error("Failed to encode message",
			zap.String("event", env.Event),
			zap.Error(err),
		)
		s.metrics.framesDropped.WithLabelValues(dropEncode).Inc()
		return
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(s.codec.MessageType(), payload); err != nil {
		logging.Error("Failed to send WebSocket message",
			zap.String("url", s.url),
			zap.String("event", env.Event),
			zap.Error(err),
		)
		s.metrics.framesDropped.WithLabelValues(dropWrite).Inc()
		return
	}

	s.metrics.framesSent.Inc()
	logging.LogSocketMessage(s.url, "sent", s.codec.MessageType(), payload)
}

// post queues fn on the event loop. It reports false once the socket is closed.
func (s *Socket) post(fn func()) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Socket) loop(stop func() bool) {
	defer func() {
		stop()
		s.liveness.cancel()
		s.reconnect.cancel()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.events:
			if s.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

// connect starts a dial unless a connection is open or a dial is in flight.
func (s *Socket) connect() {
	if s.dialing || s.isOpen() {
		return
	}
	s.connID++
	id := s.connID
	s.dialing = true
	s.metrics.connectAttempts.Inc()

	go func() {
		conn, err := s.dialer.DialContext(s.ctx, s.url)
		if !s.post(func() { s.handleDialed(id, conn, err) }) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (s *Socket) isOpen() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn != nil
}

func (s *Socket) handleDialed(id uint64, conn Conn, err error) {
	if id != s.connID {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	s.dialing = false

	if err != nil {
		if s.closed.Load() {
			return
		}
		logging.Warn("WebSocket connection failed",
			zap.String("url", s.url),
			zap.Error(err),
		)
		s.registry.Dispatch(EventError, err)
		s.handleClosed(closeInfo(websocket.CloseAbnormalClosure))
		return
	}

	// Publishing the connection and resubscribing form one step with
	// respect to On, so every live topic is subscribed exactly once.
	published := s.registry.Replay(func() bool {
		s.connMu.Lock()
		defer s.connMu.Unlock()
		// Close swaps conn under connMu; a socket closed by now stays closed.
		if s.closed.Load() {
			return false
		}
		s.conn = conn
		return true
	})
	if !published {
		_ = conn.Close()
		return
	}

	s.status.set(true)
	s.metrics.connected.Set(1)
	if s.closed.Load() {
		// Close ran after the connection was published and has closed it.
		s.status.set(false)
		s.metrics.connected.Set(0)
		return
	}
	logging.LogConnection(s.url, "open")

	s.liveness.arm()
	go s.readLoop(id, conn)

	s.registry.Dispatch(EventOpen, nil)
}

func (s *Socket) readLoop(id uint64, conn Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			s.post(func() { s.handleReadError(id, err) })
			return
		}
		if !s.post(func() { s.handleFrame(id, msgType, data) }) {
			return
		}
	}
}

func (s *Socket) handleFrame(id uint64, msgType int, data []byte) {
	if id != s.connID {
		return
	}
	s.liveness.arm()
	s.metrics.framesReceived.Inc()
	logging.LogSocketMessage(s.url, "received", msgType, data)

	env, err := s.codec.Decode(data)
	if errors.Is(err, ErrNoEvent) {
		logging.Debug("Dropping frame without event", zap.Int("length", len(data)))
		s.metrics.framesDropped.WithLabelValues(dropNoEvent).Inc()
		return
	}
	if err != nil {
		logging.Warn("Failed to parse message",
			zap.String("url", s.url),
			zap.Error(err),
		)
		logging.LogRawBytes("Undecodable frame", data)
		s.metrics.framesDropped.WithLabelValues(dropDecode).Inc()
		return
	}
	if IsReserved(env.Event) {
		logging.Warn("Dropping frame for reserved event", zap.String("event", env.Event))
		s.metrics.framesDropped.WithLabelValues(dropReserved).Inc()
		return
	}

	s.registry.Dispatch(EventMessage, env)
	s.registry.Dispatch(env.Event, env.Data)
}

func (s *Socket) handleReadError(id uint64, err error) {
	if id != s.connID || !s.isOpen() {
		return
	}

	code := websocket.CloseAbnormalClosure
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		code = closeErr.Code
	} else {
		logging.Error("WebSocket error",
			zap.String("url", s.url),
			zap.Error(err),
		)
		s.registry.Dispatch(EventError, err)
	}
	s.handleClosed(closeInfo(code))
}

// handleClosed runs the close path shared by every disconnect.
func (s *Socket) handleClosed(info CloseInfo) {
	s.dropConn()
	s.liveness.cancel()

	logging.Info("Connection closed",
		zap.String("url", s.url),
		zap.String("reason", info.Reason),
	)
	s.registry.Dispatch(EventClose, info)
	s.scheduleReconnect()
}

func (s *Socket) handleUnresponsive() {
	logging.Warn("WebSocket appears unresponsive, reconnecting...",
		zap.String("url", s.url),
	)
	s.metrics.unresponsive.Inc()

	// The reader of the abandoned connection reports a close as well;
	// bumping the id turns that report into a no-op.
	s.connID++
	s.dropConn()
	s.liveness.cancel()
	s.reconnect.cancel()

	s.registry.Dispatch(EventClose, CloseInfo{Reason: ReasonUnresponsive})
	s.registry.Dispatch(EventUnresponsive, nil)
	s.scheduleReconnect()
}

// dropConn closes the current connection and marks the socket disconnected.
func (s *Socket) dropConn() {
	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.status.set(false)
	s.metrics.connected.Set(0)
}

func (s *Socket) scheduleReconnect() {
	s.reconnect.arm()
}

func (s *Socket) attemptReconnect() {
	if s.isOpen() || s.dialing {
		logging.Debug("Skipping reconnect, connection already open or dialing")
		return
	}
	logging.Info("Attempting WebSocket reconnection...", zap.String("url", s.url))
	s.metrics.reconnects.Inc()
	s.connect()
}
