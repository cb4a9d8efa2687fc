package boardlink

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", config.BaudRate)
	}
	if config.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", config.DataBits)
	}
	if config.StopBits != 1 {
		t.Errorf("StopBits = %d, want 1", config.StopBits)
	}
	if config.Parity != ParityNone {
		t.Errorf("Parity = %v, want N", config.Parity)
	}
	if config.FlowControl != FlowControlNone {
		t.Errorf("FlowControl = %v, want None", config.FlowControl)
	}
	if config.LogCapacity != 100 {
		t.Errorf("LogCapacity = %d, want 100", config.LogCapacity)
	}
	if config.HistorySize != 10 {
		t.Errorf("HistorySize = %d, want 10", config.HistorySize)
	}
}

func TestFunctionalOptions(t *testing.T) {
	logger := zap.NewNop()
	resolver := NewResolver()

	config, err := NewConfig(
		WithBaudRate(115200),
		WithDataBits(7),
		WithStopBits(2),
		WithParity(ParityEven),
		WithFlowControl(FlowControlRTSCTS),
		WithSyncWrite(),
		WithLogCapacity(5),
		WithHistorySize(0),
		WithMaxLineLength(64),
		WithLogger(logger),
		WithResolver(resolver),
	)
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}

	if config.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", config.BaudRate)
	}
	if config.DataBits != 7 {
		t.Errorf("DataBits = %d, want 7", config.DataBits)
	}
	if config.StopBits != 2 {
		t.Errorf("StopBits = %d, want 2", config.StopBits)
	}
	if config.Parity != ParityEven {
		t.Errorf("Parity = %v, want E", config.Parity)
	}
	if config.FlowControl != FlowControlRTSCTS {
		t.Errorf("FlowControl = %v, want RTS/CTS", config.FlowControl)
	}
	if config.WriteMode != WriteModeSynced {
		t.Errorf("WriteMode = %v, want synced", config.WriteMode)
	}
	if config.LogCapacity != 5 || config.HistorySize != 0 || config.MaxLineLength != 64 {
		t.Errorf("capacities = %d/%d/%d, want 5/0/64", config.LogCapacity, config.HistorySize, config.MaxLineLength)
	}
	if config.Logger != logger || config.Resolver != resolver {
		t.Error("Logger or Resolver not applied")
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"baud 123456", WithBaudRate(123456), ErrInvalidBaudRate},
		{"data bits 9", WithDataBits(9), ErrInvalidConfig},
		{"data bits 4", WithDataBits(4), ErrInvalidConfig},
		{"stop bits 3", WithStopBits(3), ErrInvalidConfig},
		{"parity 7", WithParity(Parity(7)), ErrInvalidConfig},
		{"log capacity 0", WithLogCapacity(0), ErrInvalidConfig},
		{"history -1", WithHistorySize(-1), ErrInvalidConfig},
		{"line length 0", WithMaxLineLength(0), ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.opt)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewConfig() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (poll default)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"500ms (valid)", 500 * time.Millisecond, false},
		{"2500ms (valid)", 2500 * time.Millisecond, false},
		{"25500ms (max)", 25500 * time.Millisecond, false},
		{"150ms (not multiple of 100ms)", 150 * time.Millisecond, true},
		{"250ns (not multiple of 100ms)", 250 * time.Nanosecond, true},
		{"25600ms (exceeds max)", 25600 * time.Millisecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithReadTimeout(tt.timeout)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{ParityNone.String(), "N"},
		{ParityOdd.String(), "O"},
		{ParityEven.String(), "E"},
		{FlowControlNone.String(), "None"},
		{FlowControlRTSCTS.String(), "RTS/CTS"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}
