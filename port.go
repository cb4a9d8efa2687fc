package boardlink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// nativePort is a termios serial device opened through the unix package
type nativePort struct {
	mu     sync.RWMutex
	info   PortInfo
	fd     int
	config Config
	opened bool
	closed bool
}

// Ensure nativePort implements RawPort at compile time
var _ RawPort = (*nativePort)(nil)

const defaultPollInterval = 100 * time.Millisecond

func newNativePort(info PortInfo) *nativePort {
	return &nativePort{info: info, fd: -1}
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 2000000:
		return unix.B2000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// classifyOpenError maps errno values from open(2) onto the package sentinels
func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return ErrDeviceNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	case errors.Is(err, unix.EBUSY):
		return ErrDeviceInUse
	default:
		return err
	}
}

func (p *nativePort) Info() PortInfo {
	return p.info
}

// Open opens the device and applies config
func (p *nativePort) Open(config Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	if p.opened {
		return ErrDeviceInUse
	}

	// Non-blocking so a missing carrier cannot hang open(2); reads are poll driven
	flags := unix.O_RDWR | unix.O_NOCTTY | unix.O_NONBLOCK
	if config.WriteMode == WriteModeSynced {
		flags |= unix.O_SYNC
	}

	fd, err := unix.Open(p.info.Path, flags, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.info.Path, classifyOpenError(err))
	}

	// Exclusive mode: a second open(2) of the tty fails with EBUSY
	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd)
		return fmt.Errorf("lock %s: %w", p.info.Path, classifyOpenError(err))
	}

	if err := configurePort(fd, config); err != nil {
		unix.Close(fd)
		return err
	}

	p.fd = fd
	p.config = config
	p.opened = true
	return nil
}

// configurePort puts the tty in raw mode with the requested framing
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	baudRate, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag |= baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	}

	if config.FlowControl == FlowControlRTSCTS {
		termios.Cflag |= unix.CRTSCTS
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}

	// Discard anything the board printed before we were listening
	_ = unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)
	return nil
}

// pollInterval bounds how long a read waits before checking ctx again.
// Cancellation is only seen between polls, so the interval never exceeds
// defaultPollInterval.
func (p *nativePort) pollInterval() time.Duration {
	if p.config.ReadTimeout > 0 {
		return min(p.config.ReadTimeout, defaultPollInterval)
	}
	return defaultPollInterval
}

// Read blocks until data is available, ctx is done, or the device fails
func (p *nativePort) Read(ctx context.Context, buf []byte) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		n, ready, err := p.readOnce(buf)
		if err != nil {
			return n, err
		}
		if ready {
			return n, nil
		}
	}
}

// readOnce polls for one interval and reads whatever is available
func (p *nativePort) readOnce(buf []byte) (int, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || !p.opened {
		return 0, false, ErrPortClosed
	}

	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(p.pollInterval()/time.Millisecond))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}

	if fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 && fds[0].Revents&unix.POLLIN == 0 {
		return 0, false, fmt.Errorf("device %s hung up: %w", p.info.Path, unix.EIO)
	}

	read, err := unix.Read(p.fd, buf)
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return 0, false, nil
	case err != nil:
		return 0, false, err
	case read == 0:
		// Readable with nothing to read means the tty was hung up
		return 0, false, fmt.Errorf("device %s hung up: %w", p.info.Path, unix.EIO)
	}
	return read, true, nil
}

// Write writes all of data unless ctx is done or the device fails
func (p *nativePort) Write(ctx context.Context, data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || !p.opened {
		return 0, ErrPortClosed
	}

	written := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, err := unix.Write(p.fd, data[written:])
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLOUT}}
			if _, err := unix.Poll(fds, int(p.pollInterval()/time.Millisecond)); err != nil && !errors.Is(err, unix.EINTR) {
				return written, err
			}
			continue
		}
		if err != nil {
			return written, err
		}
		written += n
	}

	if p.config.WriteMode == WriteModeSynced {
		if err := unix.IoctlSetInt(p.fd, unix.TCSBRK, 1); err != nil {
			return written, fmt.Errorf("drain: %w", err)
		}
	}
	return written, nil
}

// Close closes the serial port
func (p *nativePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true

	if !p.opened {
		return nil
	}
	return unix.Close(p.fd)
}
