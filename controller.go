package boardlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectionState is the lifecycle state of a Controller
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReading
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReading:
		return "reading"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// MarshalText lets states appear by name in JSON output
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// session is the per-connection state discarded on teardown
type session struct {
	id     uuid.UUID
	handle *PortHandle
	reader *Reader
	done   chan struct{}
	logger *zap.Logger
}

// Controller drives one board connection: it opens the port, runs the read
// loop, writes commands and owns the connection state.
//
// Listeners registered with Listen run on the read loop goroutine and must
// not call Disconnect.
type Controller struct {
	config    Config
	transport *TransportManager
	resolver  *Resolver
	logger    *zap.Logger
	logs      *LogRing
	bus       *EventBus
	writeSem  chan struct{}

	mu            sync.RWMutex
	state         ConnectionState
	lastErr       error
	device        *DeviceDescriptor
	session       *session
	connectCancel context.CancelFunc
	connectDone   chan struct{}
	connectGen    uint64
	history       []string
}

// New creates a disconnected Controller opening ports from backend
func New(backend Backend, opts ...Option) (*Controller, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidConfig)
	}
	config, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := config.Resolver
	if resolver == nil {
		resolver = defaultResolver
	}

	return &Controller{
		config:    config,
		transport: NewTransportManager(backend, config),
		resolver:  resolver,
		logger:    logger.Named("boardlink"),
		logs:      NewLogRing(config.LogCapacity),
		bus:       NewEventBus(),
		writeSem:  make(chan struct{}, 1),
	}, nil
}

// State returns the current connection state
func (c *Controller) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err returns the error that moved the controller into StateError
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Device returns the connected board, if any
func (c *Controller) Device() (DeviceDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.device == nil {
		return DeviceDescriptor{}, false
	}
	return *c.device, true
}

// Session returns the id of the live connection, or ""
func (c *Controller) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.id.String()
}

// Config returns the configuration the controller opens ports with
func (c *Controller) Config() Config {
	return c.config
}

// Logs returns the retained log entries, oldest first
func (c *Controller) Logs() []LogEntry {
	return c.logs.Entries()
}

// History returns the most recently sent commands, oldest first
func (c *Controller) History() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}

// Listen registers a callback for every event and returns its remover
func (c *Controller) Listen(fn func(Event)) func() {
	return c.bus.Listen(fn)
}

// Subscribe returns a buffered event channel and its unsubscribe function
func (c *Controller) Subscribe(buffer int) (<-chan Event, func()) {
	return c.bus.Subscribe(buffer)
}

// Connect selects and opens a port, then starts reading from it. It is
// valid from StateDisconnected and StateError; selection may block until
// ctx is done or Disconnect is called.
func (c *Controller) Connect(ctx context.Context, req PortRequest) error {
	c.mu.Lock()
	switch c.state {
	case StateConnecting, StateConnected, StateReading:
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: connect while %s", ErrInvalidState, state)
	}
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	c.connectCancel = cancel
	c.connectDone = done
	c.connectGen++
	gen := c.connectGen
	c.state = StateConnecting
	c.lastErr = nil
	c.mu.Unlock()

	c.publishState(StateConnecting, nil, "")
	c.log("", LogInfo, "Requesting serial port...")

	handle, err := c.transport.Open(cctx, req)

	c.mu.Lock()
	if c.connectGen != gen {
		// Disconnect ran while the port was being selected
		c.mu.Unlock()
		if handle != nil {
			_ = c.transport.Close(handle)
		}
		close(done)
		return fmt.Errorf("%w: disconnected while connecting", ErrSelectionCancelled)
	}
	c.connectCancel = nil
	c.connectDone = nil
	close(done)

	if err != nil {
		c.state = StateError
		c.lastErr = err
		c.mu.Unlock()

		if errors.Is(err, ErrSelectionCancelled) {
			c.logger.Warn("port selection cancelled", zap.Error(err))
			c.log("", LogWarning, fmt.Sprintf("Port selection cancelled: %v", err))
		} else {
			c.logger.Error("failed to open port", zap.Error(err))
			c.log("", LogError, fmt.Sprintf("Failed to open port: %v", err))
		}
		c.publishState(StateError, err, "")
		return err
	}

	reader, err := handle.Readable().GetReader()
	if err != nil {
		c.state = StateError
		c.lastErr = err
		c.mu.Unlock()

		_ = c.transport.Close(handle)
		c.logger.Error("failed to lock reader", zap.Error(err))
		c.log("", LogError, fmt.Sprintf("Failed to start reading: %v", err))
		c.publishState(StateError, err, "")
		return err
	}

	info := handle.Info()
	desc := c.resolver.Descriptor(info)
	id := uuid.New()
	sess := &session{
		id:     id,
		handle: handle,
		reader: reader,
		done:   make(chan struct{}),
		logger: c.logger.With(zap.String("session", id.String()), zap.String("port", info.Path)),
	}
	c.session = sess
	c.device = &desc
	c.state = StateConnected
	c.mu.Unlock()

	sess.logger.Info("connected",
		zap.String("device", desc.DisplayName),
		zap.String("vid", fmt.Sprintf("%04x", desc.VendorID)),
		zap.String("pid", fmt.Sprintf("%04x", desc.ProductID)),
		zap.Int("baud", c.config.BaudRate),
	)
	c.publishState(StateConnected, nil, id.String())
	c.log(id.String(), LogSuccess, fmt.Sprintf("Connected to %s (%s)", desc.DisplayName, desc.Path))

	c.mu.Lock()
	reading := c.session == sess
	if reading {
		c.state = StateReading
	}
	c.mu.Unlock()
	if reading {
		c.publishState(StateReading, nil, id.String())
	}

	go c.readLoop(sess)
	return nil
}

// readLoop decodes chunks until the reader is cancelled or fails
func (c *Controller) readLoop(sess *session) {
	defer close(sess.done)

	decoder := NewLineDecoder(c.config.MaxLineLength)
	id := sess.id.String()
	for {
		chunk, err := sess.reader.Read()
		if err != nil {
			c.endSession(sess, err)
			return
		}
		for _, text := range decoder.Decode(chunk) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			c.handleLine(id, text)
		}
	}
}

func (c *Controller) handleLine(id, text string) {
	line := ParseLine(text)
	c.log(id, LogData, text)
	if line.IsTelemetry() {
		c.bus.Publish(Event{Kind: EventTelemetry, Session: id, Line: line})
		return
	}
	c.bus.Publish(Event{Kind: EventRawLine, Session: id, Line: line})
}

// endSession tears down a session whose reader stopped on its own.
// Sessions already detached by Disconnect are left alone.
func (c *Controller) endSession(sess *session, cause error) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.device = nil
	next := StateDisconnected
	if !errors.Is(cause, io.EOF) {
		next = StateError
		c.lastErr = cause
	}
	c.state = next
	c.mu.Unlock()

	sess.reader.Release()
	if err := c.transport.Close(sess.handle); err != nil {
		sess.logger.Warn("close after read failure", zap.Error(err))
	}

	id := sess.id.String()
	if next == StateError {
		sess.logger.Error("read failed", zap.Error(cause))
		c.log(id, LogError, fmt.Sprintf("Connection lost: %v", cause))
		c.publishState(StateError, cause, id)
		return
	}
	sess.logger.Warn("device closed the stream")
	c.log(id, LogWarning, "Device closed the connection")
	c.publishState(StateDisconnected, nil, id)
}

// Disconnect cancels the reader, releases the writer, closes the port and
// returns to StateDisconnected. It is safe from any state and a no-op when
// already disconnected. During StateConnecting it cancels the selection and
// waits for it to give up the transport, so Connect may be called right after.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	if c.state == StateDisconnected && c.session == nil && c.connectCancel == nil {
		c.mu.Unlock()
		return nil
	}
	cancel, pending := c.connectCancel, c.connectDone
	sess := c.session
	c.connectCancel = nil
	c.connectDone = nil
	c.session = nil
	c.device = nil
	c.lastErr = nil
	c.connectGen++
	c.state = StateDisconnected
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// The abandoned selection still holds the transport until it unwinds
	if pending != nil {
		<-pending
	}

	var closeErr error
	id := ""
	if sess != nil {
		id = sess.id.String()
		sess.reader.Cancel()
		<-sess.done
		sess.reader.Release()
		closeErr = c.transport.Close(sess.handle)
		if closeErr != nil {
			sess.logger.Warn("close failed", zap.Error(closeErr))
		}
		sess.logger.Info("disconnected")
	}

	c.log(id, LogInfo, "Disconnected")
	c.publishState(StateDisconnected, nil, id)
	return closeErr
}

// SendCommand writes payload as one line. It is rejected with
// ErrNotConnected unless the controller is connected. Concurrent calls are
// written one after another, never interleaved.
func (c *Controller) SendCommand(ctx context.Context, payload string) error {
	sess, ok := c.writableSession()
	if !ok {
		c.logger.Warn("send rejected", zap.String("command", payload), zap.Stringer("state", c.State()))
		c.log("", LogError, fmt.Sprintf("Cannot send %q: not connected", payload))
		return ErrNotConnected
	}

	select {
	case c.writeSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.writeSem }()

	// The connection may have dropped while waiting for the previous write
	if cur, ok := c.writableSession(); !ok || cur != sess {
		c.log("", LogError, fmt.Sprintf("Cannot send %q: not connected", payload))
		return ErrNotConnected
	}

	id := sess.id.String()
	writer, err := sess.handle.Writable().GetWriter()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTransportWrite, err)
		sess.logger.Error("acquire writer", zap.Error(err))
		c.log(id, LogError, fmt.Sprintf("Failed to send %q: %v", payload, err))
		return err
	}
	defer writer.Release()

	if err := writer.Write(ctx, EncodeCommand(Command{Payload: payload})); err != nil {
		sess.logger.Error("write failed", zap.String("command", payload), zap.Error(err))
		c.log(id, LogError, fmt.Sprintf("Failed to send %q: %v", payload, err))
		return err
	}

	sess.logger.Debug("command sent", zap.String("command", payload))
	c.remember(payload)
	c.log(id, LogCommand, payload)
	return nil
}

func (c *Controller) writableSession() (*session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil || (c.state != StateConnected && c.state != StateReading) {
		return nil, false
	}
	return c.session, true
}

func (c *Controller) remember(payload string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config.HistorySize == 0 {
		return
	}
	c.history = append(c.history, payload)
	if over := len(c.history) - c.config.HistorySize; over > 0 {
		c.history = append(c.history[:0:0], c.history[over:]...)
	}
}

func (c *Controller) log(session string, kind LogKind, message string) {
	entry := c.logs.Append(kind, message)
	c.bus.Publish(Event{Kind: EventLog, Time: entry.Time, Session: session, Log: entry})
}

func (c *Controller) publishState(state ConnectionState, err error, session string) {
	c.bus.Publish(Event{Kind: EventState, Session: session, State: state, Err: err})
}
