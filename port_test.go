package boardlink

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		input    int
		hasError bool
	}{
		{115200, false},
		{9600, false},
		{57600, false},
		{2000000, false},
		{123456, true},
		{0, true},
	}

	for _, test := range tests {
		result, err := getBaudRate(test.input)
		if test.hasError {
			if err != ErrInvalidBaudRate {
				t.Errorf("getBaudRate(%d) error = %v, want ErrInvalidBaudRate", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("getBaudRate(%d) unexpected error: %v", test.input, err)
		}
		if result == 0 {
			t.Errorf("getBaudRate(%d) = 0 for valid rate", test.input)
		}
	}
}

func TestClassifyOpenError(t *testing.T) {
	tests := []struct {
		errno error
		want  error
	}{
		{unix.ENOENT, ErrDeviceNotFound},
		{unix.ENODEV, ErrDeviceNotFound},
		{unix.EACCES, ErrPermissionDenied},
		{unix.EPERM, ErrPermissionDenied},
		{unix.EBUSY, ErrDeviceInUse},
		{unix.EIO, unix.EIO},
	}

	for _, tt := range tests {
		if got := classifyOpenError(tt.errno); !errors.Is(got, tt.want) {
			t.Errorf("classifyOpenError(%v) = %v, want %v", tt.errno, got, tt.want)
		}
	}
}

func TestOpenNonExistentDevice(t *testing.T) {
	port := newNativePort(PortInfo{Name: "nonexistent", Path: "/dev/nonexistent"})
	err := port.Open(DefaultConfig())
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Open() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestClosedPortOperations(t *testing.T) {
	port := newNativePort(PortInfo{Path: "/dev/nonexistent"})
	if err := port.Close(); err != nil {
		t.Fatalf("Close() on unopened port = %v, want nil", err)
	}
	if err := port.Close(); err != ErrPortClosed {
		t.Errorf("second Close() = %v, want ErrPortClosed", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := port.Read(ctx, make([]byte, 8)); err != ErrPortClosed {
		t.Errorf("Read() = %v, want ErrPortClosed", err)
	}
	if _, err := port.Write(ctx, []byte("x")); err != ErrPortClosed {
		t.Errorf("Write() = %v, want ErrPortClosed", err)
	}
	if err := port.Open(DefaultConfig()); err != ErrPortClosed {
		t.Errorf("Open() after Close = %v, want ErrPortClosed", err)
	}
}

func TestReadHonoursCancelledContext(t *testing.T) {
	port := newNativePort(PortInfo{Path: "/dev/nonexistent"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := port.Read(ctx, make([]byte, 8)); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() = %v, want context.Canceled", err)
	}
}

func TestPollIntervalCapped(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		want    time.Duration
	}{
		{0, defaultPollInterval},
		{50 * time.Millisecond, 50 * time.Millisecond},
		{100 * time.Millisecond, 100 * time.Millisecond},
		{200 * time.Millisecond, defaultPollInterval},
		{maxReadTimeout, defaultPollInterval},
	}

	for _, tt := range tests {
		port := newNativePort(PortInfo{Path: "/dev/nonexistent"})
		port.config.ReadTimeout = tt.timeout
		if got := port.pollInterval(); got != tt.want {
			t.Errorf("pollInterval() with ReadTimeout %v = %v, want %v", tt.timeout, got, tt.want)
		}
	}
}
