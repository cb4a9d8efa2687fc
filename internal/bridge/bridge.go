// Package bridge relays a board connection over MQTT: telemetry, log
// entries and state changes are published as JSON, and payloads arriving on
// the command topic are sent to the board.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/allbin/go-boardlink"
)

// Publisher is the subset of mqtt.Client the bridge uses
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Board is the connection being bridged
type Board interface {
	Listen(fn func(boardlink.Event)) func()
	SendCommand(ctx context.Context, payload string) error
}

// Config controls topics and delivery
type Config struct {
	Topic   string // prefix; "<topic>/telemetry", "<topic>/log", "<topic>/state", "<topic>/command"
	QoS     byte
	Timeout time.Duration
	Logger  *zap.Logger
}

// Envelope wraps every published message
type Envelope struct {
	ID        string      `json:"id"`
	Session   string      `json:"session,omitempty"`
	Timestamp int64       `json:"timestamp"` // Unix nanoseconds
	Kind      string      `json:"kind"`
	Payload   interface{} `json:"payload"`
}

type statePayload struct {
	State boardlink.ConnectionState `json:"state"`
	Error string                    `json:"error,omitempty"`
}

// Bridge forwards between one board and one MQTT client
type Bridge struct {
	client Publisher
	board  Board
	cfg    Config
	log    *zap.Logger

	mu     sync.Mutex
	remove func()
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a bridge; call Start to begin relaying
func New(client Publisher, board Board, cfg Config) *Bridge {
	if cfg.Topic == "" {
		cfg.Topic = "boardlink"
	}
	cfg.Topic = strings.TrimSuffix(cfg.Topic, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		client: client,
		board:  board,
		cfg:    cfg,
		log:    logger.Named("bridge").With(zap.String("topic", cfg.Topic)),
	}
}

// Topic returns the full topic for suffix
func (b *Bridge) Topic(suffix string) string {
	return b.cfg.Topic + "/" + suffix
}

// Start subscribes to the command topic and begins publishing board events
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remove != nil {
		return fmt.Errorf("bridge already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	tok := b.client.Subscribe(b.Topic("command"), b.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		b.handleCommand(ctx, msg)
	})
	if err := b.wait(tok); err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", b.Topic("command"), err)
	}

	b.cancel = cancel
	b.remove = b.board.Listen(b.handleEvent)
	b.log.Info("bridge started")
	return nil
}

// Stop detaches from the board and unsubscribes from the command topic
func (b *Bridge) Stop() error {
	b.mu.Lock()
	remove, cancel := b.remove, b.cancel
	b.remove, b.cancel = nil, nil
	b.mu.Unlock()

	if remove == nil {
		return nil
	}
	remove()
	cancel()
	b.wg.Wait()

	if err := b.wait(b.client.Unsubscribe(b.Topic("command"))); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", b.Topic("command"), err)
	}
	b.log.Info("bridge stopped")
	return nil
}

func (b *Bridge) handleCommand(ctx context.Context, msg mqtt.Message) {
	payload := strings.TrimRight(string(msg.Payload()), "\r\n")
	if payload == "" {
		return
	}
	if err := b.board.SendCommand(ctx, payload); err != nil {
		b.log.Warn("forward command", zap.String("command", payload), zap.Error(err))
	}
}

// handleEvent runs on the board's read loop, so publishing never waits here
func (b *Bridge) handleEvent(e boardlink.Event) {
	var (
		suffix   string
		payload  interface{}
		retained bool
	)
	switch e.Kind {
	case boardlink.EventTelemetry:
		suffix, payload = "telemetry", e.Line.Frame
	case boardlink.EventLog:
		suffix, payload = "log", e.Log
	case boardlink.EventState:
		p := statePayload{State: e.State}
		if e.Err != nil {
			p.Error = e.Err.Error()
		}
		suffix, payload, retained = "state", p, true
	default:
		return
	}

	env := Envelope{
		ID:        uuid.NewString(),
		Session:   e.Session,
		Timestamp: e.Time.UnixNano(),
		Kind:      suffix,
		Payload:   payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		b.log.Error("encode envelope", zap.String("kind", suffix), zap.Error(err))
		return
	}

	// Publish copies its listener list, so events can still arrive after Stop
	b.mu.Lock()
	if b.remove == nil {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	topic := b.Topic(suffix)
	tok := b.client.Publish(topic, b.cfg.QoS, retained, body)
	go func() {
		defer b.wg.Done()
		if err := b.wait(tok); err != nil {
			b.log.Warn("publish failed", zap.String("to", topic), zap.Error(err))
		}
	}()
}

func (b *Bridge) wait(tok mqtt.Token) error {
	if !tok.WaitTimeout(b.cfg.Timeout) {
		return fmt.Errorf("timed out after %s", b.cfg.Timeout)
	}
	return tok.Error()
}

// Dial connects an MQTT client to broker
func Dial(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	if clientID == "" {
		clientID = "boardlink-" + uuid.NewString()[:8]
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetAutoReconnect(true).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if ok := token.WaitTimeout(timeout); !ok {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return client, nil
}
