package broadcaster

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"signalexecutor/src/model"
)

const pingFrame = "ping"

var (
	ErrStopped        = errors.New("broadcaster client stopped")
	ErrAlreadyRunning = errors.New("broadcaster client already running")
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Client keeps one websocket open to the broadcaster and feeds decoded frames to a Handler.
type Client struct {
	cfg     Config
	handler Handler
	dialer  *websocket.Dialer
	log     *logrus.Entry
	backoff *Backoff
	sleep   func(ctx context.Context, d time.Duration) bool

	state atomic.Int32

	mu      sync.Mutex
	conn    *websocket.Conn
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	writeMu sync.Mutex
}

type Option func(*Client)

func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) {
		c.log = l
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

func NewClient(cfg Config, handler Handler, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:     cfg,
		handler: handler,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: true,
			Proxy:             http.ProxyFromEnvironment,
		},
		log:     logrus.NewEntry(logrus.StandardLogger()).WithField("component", "broadcaster"),
		backoff: NewBackoff(cfg.InitialBackoff, cfg.MaxBackoff),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) State() State {
	return State(c.state.Load())
}

// setState never leaves StateStopped.
func (c *Client) setState(s State) {
	for {
		cur := c.state.Load()
		if State(cur) == StateStopped {
			return
		}
		if c.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Connect dials the broadcaster once. On success the backoff is reset and
// OnConnected is called.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	c.mu.Unlock()

	c.setState(StateConnecting)
	c.log.WithField("url", c.cfg.URL).Info("Connecting to broadcaster")

	header := http.Header{}
	if c.cfg.ClientID != "" {
		header.Set("X-Client-Id", c.cfg.ClientID)
	}

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("ws dial failed: %w", err)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrStopped
	}
	c.conn = conn
	c.mu.Unlock()

	c.setState(StateConnected)
	c.backoff.Reset()
	c.log.Info("Connected to broadcaster")
	c.handler.OnConnected(ctx)
	return nil
}

// Run connects and listens until ctx is cancelled or Stop is called. Connection
// losses are retried forever with backoff.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.running = true
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	defer func() {
		cancel()
		c.closeConn()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(done)
	}()

	// In-flight handlers finish even when the client is being stopped.
	handlerCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := c.Connect(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrStopped) {
				return nil
			}
			c.log.WithError(err).Warn("Broadcaster connect failed")
		} else {
			err := c.listen(ctx, handlerCtx)
			c.closeConn()
			c.setState(StateDisconnected)
			if ctx.Err() != nil {
				return nil
			}
			c.log.WithError(err).Warn("Broadcaster connection lost")
			c.handler.OnDisconnected(handlerCtx, err)
		}

		delay := c.backoff.Next()
		c.log.WithField("delay", delay.String()).Info("Reconnecting to broadcaster")
		if !c.sleep(ctx, delay) {
			return nil
		}
	}
}

// Stop cancels the heartbeat, closes the connection and waits for the read loop to exit.
// No handler is called after Stop returns.
func (c *Client) Stop() {
	c.mu.Lock()
	c.stopped = true
	cancel := c.cancel
	done := c.done
	conn := c.conn
	c.mu.Unlock()

	c.state.Store(int32(StateStopped))

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
	c.log.Info("Broadcaster client stopped")
}

func (c *Client) closeConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// listen reads frames until the connection fails. The heartbeat runs alongside
// and is joined before returning.
func (c *Client) listen(ctx, handlerCtx context.Context) error {
	conn := c.currentConn()
	if conn == nil {
		return errors.New("no connection")
	}

	hbCtx, hbCancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.heartbeat(hbCtx, ctx, conn)
	}()
	defer func() {
		hbCancel()
		wg.Wait()
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.dispatch(handlerCtx, frame)
	}
}

// heartbeat sends a literal ping every interval. When the parent ctx ends it closes
// the connection so the blocked read returns.
func (c *Client) heartbeat(hbCtx, parent context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-hbCtx.Done():
			if parent.Err() != nil {
				_ = conn.Close()
			}
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, []byte(pingFrame))
			c.writeMu.Unlock()
			if err != nil {
				c.log.WithError(err).Warn("Heartbeat failed, closing connection")
				_ = conn.Close()
				return
			}
			c.log.Debug("Sent ping")
		}
	}
}

func (c *Client) dispatch(ctx context.Context, frame []byte) {
	if IsPong(frame) {
		c.log.Debug("Received pong")
		return
	}

	in, err := Decode(frame)
	if err != nil {
		c.log.WithError(err).WithField("frame", truncate(frame, 256)).Error("Dropping undecodable frame")
		return
	}

	entry := c.log.WithFields(logrus.Fields{"type": in.Type(), "symbol": model.SymbolOf(in)})

	defer func() {
		if r := recover(); r != nil {
			entry.WithError(fmt.Errorf("%+v", r)).Error("Handler panic")
		}
	}()

	if !Route(ctx, c.handler, in) {
		entry.Warn("Unknown message type")
		return
	}
	entry.Debug("Frame dispatched")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
