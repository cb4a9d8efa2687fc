package boardlink

import "errors"

// Connection lifecycle errors
var (
	ErrSelectionCancelled = errors.New("port selection cancelled")
	ErrOpenFailed         = errors.New("failed to open serial port")
	ErrTransportRead      = errors.New("serial read failed")
	ErrTransportWrite     = errors.New("serial write failed")
	ErrNotConnected       = errors.New("not connected to a device")
	ErrInvalidState       = errors.New("operation not valid in current connection state")
)

// Port ownership errors
var (
	ErrPortBusy     = errors.New("a port is already open")
	ErrPortClosed   = errors.New("serial port is closed")
	ErrReaderLocked = errors.New("readable stream is already locked to a reader")
	ErrWriterLocked = errors.New("writable stream is already locked to a writer")
	ErrLockReleased = errors.New("stream lock has been released")
)

// Device and configuration errors
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
)
