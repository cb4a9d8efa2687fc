package boardlink

import (
	"time"

	"go.uber.org/zap"
)

// WriteMode represents the write synchronization mode
type WriteMode int

const (
	WriteModeBuffered WriteMode = iota // Default: kernel buffers writes
	WriteModeSynced                    // O_SYNC: writes block until hardware transmission
)

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlRTSCTS
)

func (f FlowControl) String() string {
	switch f {
	case FlowControlRTSCTS:
		return "RTS/CTS"
	default:
		return "None"
	}
}

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// String returns the single letter used in "8N1" style notation.
func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	default:
		return "N"
	}
}

const (
	DefaultBaudRate      = 9600
	DefaultLogCapacity   = 100
	DefaultHistorySize   = 10
	DefaultMaxLineLength = 4096

	maxReadTimeout = 25500 * time.Millisecond
)

// Config holds the configuration for a serial port and the controller driving it
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	FlowControl FlowControl
	ReadTimeout time.Duration // longest single poll for input, capped at 100ms
	WriteMode   WriteMode

	LogCapacity   int // entries kept in the log ring
	HistorySize   int // sent commands remembered for the UI
	MaxLineLength int // longest unterminated line held as carry-over

	Logger   *zap.Logger
	Resolver *Resolver
}

// Option is a functional option for configuring a port or controller
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults (9600 8N1, no flow control)
func DefaultConfig() Config {
	return Config{
		BaudRate:      DefaultBaudRate,
		DataBits:      8,
		StopBits:      1,
		Parity:        ParityNone,
		FlowControl:   FlowControlNone,
		ReadTimeout:   200 * time.Millisecond,
		WriteMode:     WriteModeBuffered,
		LogCapacity:   DefaultLogCapacity,
		HistorySize:   DefaultHistorySize,
		MaxLineLength: DefaultMaxLineLength,
	}
}

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...Option) (Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return Config{}, err
		}
	}
	return config, nil
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := getBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParityEven {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		c.FlowControl = fc
		return nil
	}
}

// WithReadTimeout sets how long a single poll waits for input.
// The timeout must be a multiple of 100ms between 0 and 25.5s; polls never
// wait longer than 100ms so a cancelled read returns promptly.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout > maxReadTimeout || timeout%(100*time.Millisecond) != 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithWriteMode sets the write synchronization mode
func WithWriteMode(mode WriteMode) Option {
	return func(c *Config) error {
		c.WriteMode = mode
		return nil
	}
}

// WithSyncWrite enables synchronous writes (O_SYNC) for guaranteed transmission
func WithSyncWrite() Option {
	return func(c *Config) error {
		c.WriteMode = WriteModeSynced
		return nil
	}
}

// WithLogCapacity sets how many log entries the controller retains
func WithLogCapacity(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return ErrInvalidConfig
		}
		c.LogCapacity = n
		return nil
	}
}

// WithHistorySize sets how many sent commands the controller remembers
func WithHistorySize(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return ErrInvalidConfig
		}
		c.HistorySize = n
		return nil
	}
}

// WithMaxLineLength bounds the carry-over held for an unterminated line
func WithMaxLineLength(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return ErrInvalidConfig
		}
		c.MaxLineLength = n
		return nil
	}
}

// WithLogger sets the operational logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithResolver sets the resolver used to name connected boards
func WithResolver(r *Resolver) Option {
	return func(c *Config) error {
		c.Resolver = r
		return nil
	}
}
