// Package transport owns the single outbound WebSocket connection to the
// collection endpoint. Sends are serialized under one mutex and dropped,
// not queued, whenever the connection is not open.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/logger"
	"github.com/gorilla/websocket"
)

const (
	// closeGrace bounds the close handshake write, not regular sends.
	closeGrace      = time.Second
	handshakeWait   = 10 * time.Second
	readBufferSize  = 1024
	writeBufferSize = 16 * 1024
)

// Observer receives lifecycle notifications. Any field may be nil. Callbacks
// run outside the client's lock and may call back into the client.
type Observer struct {
	OnOpen    func()
	OnMessage func(msg []byte)
	OnClose   func(code int, reason string, remote bool)
	OnError   func(err error)
}

// Recorder receives counters about delivery. See the metrics package.
type Recorder interface {
	MessageSent(bytes int)
	MessageDropped()
	StateChanged(s State)
}

type nopRecorder struct{}

func (nopRecorder) MessageSent(int)    {}
func (nopRecorder) MessageDropped()    {}
func (nopRecorder) StateChanged(State) {}

// Option configures a Client.
type Option func(*Client)

// WithObserver installs lifecycle callbacks.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithRecorder installs a delivery recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithHeader sets extra handshake headers.
func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h }
}

// Client is a write-mostly WebSocket client.
type Client struct {
	endpoint string
	dialer   *websocket.Dialer
	header   http.Header
	observer Observer
	recorder Recorder
	log      logger.Logger

	// mu guards connection state and is never held across network I/O.
	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	readDone chan struct{}

	// writeMu serializes data frames, gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

// New returns a disconnected client for endpoint (ws:// or wss://).
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeWait,
			ReadBufferSize:   readBufferSize,
			WriteBufferSize:  writeBufferSize,
		},
		recorder: nopRecorder{},
		log:      logger.Component("transport").With("endpoint", endpoint),
		state:    StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the handshake in the background and returns immediately.
// Sends issued before the connection opens are dropped.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return errors.New().WithData(ErrAlreadyDialed, state.String())
	}
	c.setState(StateConnecting)
	c.mu.Unlock()

	c.log.Debug().Msg("Connecting")
	go c.dial(ctx)
	return nil
}

func (c *Client) dial(ctx context.Context) {
	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, c.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	if err != nil {
		if c.state == StateConnecting {
			c.setState(StateError)
		} else {
			c.setState(StateClosed)
		}
		c.mu.Unlock()

		dialErr := errors.New().Wrap(ErrDialFailed, err)
		c.log.ErrorWithCode(dialErr).Msg("Failed to connect")
		c.notifyError(dialErr)
		return
	}

	if c.state != StateConnecting {
		// Close was requested while the handshake was in flight
		c.setState(StateClosed)
		c.mu.Unlock()
		conn.Close()
		c.log.Debug().Msg("Connection closed before open")
		return
	}

	c.conn = conn
	c.readDone = make(chan struct{})
	c.setState(StateOpen)
	c.mu.Unlock()

	c.log.Info().Msg("Connected to server")
	if c.observer.OnOpen != nil {
		c.observer.OnOpen()
	}

	go c.readLoop(conn, c.readDone)
}

// readLoop drains inbound messages. They are logged and handed to the
// observer but never interpreted.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(conn, err)
			return
		}

		c.log.Debug().Int("bytes", len(msg)).Str("message", string(msg)).Msg("Received message")
		if c.observer.OnMessage != nil {
			c.observer.OnMessage(msg)
		}
	}
}

func (c *Client) handleReadError(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.state != StateOpen {
		// Local close in progress, Close reports it
		c.mu.Unlock()
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		c.setState(StateClosed)
		c.mu.Unlock()
		conn.Close()

		c.log.Info().
			Int("code", closeErr.Code).
			Str("reason", closeErr.Text).
			Msg("Disconnected from server")
		if c.observer.OnClose != nil {
			c.observer.OnClose(closeErr.Code, closeErr.Text, true)
		}
		return
	}

	c.setState(StateError)
	c.mu.Unlock()
	conn.Close()

	readErr := errors.New().Wrap(errors.ErrOperationFailed, err)
	c.log.Error().Err(err).Msg("Connection lost")
	c.notifyError(readErr)
}

// Send writes one text message. When the connection is not open the
// message is dropped, the drop is logged, and an ErrNotOpen error returned.
// A write blocked on a stalled peer is released by Close.
func (c *Client) Send(msg []byte) error {
	errFactory := errors.New()

	c.mu.Lock()
	if c.state != StateOpen {
		state := c.state
		c.mu.Unlock()

		c.recorder.MessageDropped()
		c.log.Warn().Str("state", state.String()).Msg("Connection is not open, dropping message")
		return errFactory.WithData(ErrNotOpen, state.String())
	}
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, msg)
	c.writeMu.Unlock()

	if err != nil {
		c.recorder.MessageDropped()
		writeErr := errFactory.Wrap(ErrWriteFailed, err)

		c.mu.Lock()
		if c.state != StateOpen || c.conn != conn {
			// Close tore the connection down under the write
			c.mu.Unlock()
			c.log.Debug().Err(err).Msg("Write interrupted by close, dropping message")
			return writeErr
		}
		c.setState(StateError)
		c.mu.Unlock()
		conn.Close()

		c.log.ErrorWithCode(writeErr).Msg("Failed to send message")
		c.notifyError(writeErr)
		return writeErr
	}

	c.recorder.MessageSent(len(msg))
	return nil
}

// SendJSON encodes v and sends it.
func (c *Client) SendJSON(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return errors.New().Wrap(ErrEncodeFailed, err)
	}
	return c.Send(msg)
}

// Close performs a normal close handshake and releases the connection.
// It is idempotent and safe in every state.
func (c *Client) Close() error {
	c.mu.Lock()
	switch c.state {
	case StateOpen:
		c.setState(StateClosing)
		conn, done := c.conn, c.readDone
		c.mu.Unlock()

		// The close frame is best effort. WriteControl may run alongside a
		// pending data write and gives up after closeGrace.
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace)); err != nil {
			c.log.Debug().Err(err).Msg("Failed to write close frame")
		}
		// Releases any Send blocked in a write as well as the read loop
		closeErr := conn.Close()

		c.mu.Lock()
		c.setState(StateClosed)
		c.mu.Unlock()

		<-done
		c.log.Info().Msg("Disconnected from server")
		if c.observer.OnClose != nil {
			c.observer.OnClose(websocket.CloseNormalClosure, "", false)
		}
		if closeErr != nil {
			return errors.New().Wrap(errors.ErrShutdownFailed, closeErr)
		}
		return nil

	case StateConnecting:
		// dial observes Closing and tears the connection down
		c.setState(StateClosing)
		c.mu.Unlock()
		return nil

	case StateDisconnected, StateError:
		c.setState(StateClosed)
		c.mu.Unlock()
		return nil

	default:
		c.mu.Unlock()
		return nil
	}
}

// setState must be called with mu held.
func (c *Client) setState(s State) {
	if c.state == s {
		return
	}
	c.log.Debug().Str("from", c.state.String()).Str("to", s.String()).Msg("State change")
	c.state = s
	c.recorder.StateChanged(s)
}

func (c *Client) notifyError(err error) {
	if c.observer.OnError != nil {
		c.observer.OnError(err)
	}
}
