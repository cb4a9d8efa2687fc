package boardlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

const readChunkSize = 1024

// TransportManager owns at most one open port at a time
type TransportManager struct {
	mu      sync.Mutex
	backend Backend
	config  Config
	current *PortHandle
	opening bool
}

// NewTransportManager returns a manager opening ports from backend with config
func NewTransportManager(backend Backend, config Config) *TransportManager {
	return &TransportManager{backend: backend, config: config}
}

// Open selects a port through the backend and opens it.
// Selection may block on user interaction until ctx is done.
func (m *TransportManager) Open(ctx context.Context, req PortRequest) (*PortHandle, error) {
	m.mu.Lock()
	if m.current != nil || m.opening {
		m.mu.Unlock()
		return nil, ErrPortBusy
	}
	m.opening = true
	m.mu.Unlock()

	handle, err := m.open(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.opening = false
	if err != nil {
		return nil, err
	}
	m.current = handle
	return handle, nil
}

func (m *TransportManager) open(ctx context.Context, req PortRequest) (*PortHandle, error) {
	raw, err := m.backend.RequestPort(ctx, req)
	if err != nil {
		if errors.Is(err, ErrSelectionCancelled) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrSelectionCancelled, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	if err := raw.Open(m.config); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	// Cancelled while the device was opening
	if err := ctx.Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("%w: %w", ErrSelectionCancelled, err)
	}

	return newPortHandle(m, raw), nil
}

// Current returns the open handle, or nil
func (m *TransportManager) Current() *PortHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close releases any outstanding reader and writer on h, then closes its
// port. Closing an already closed or nil handle is a no-op.
func (m *TransportManager) Close(h *PortHandle) error {
	if h == nil {
		return nil
	}
	err := h.close()

	m.mu.Lock()
	if m.current == h {
		m.current = nil
	}
	m.mu.Unlock()
	return err
}

// PortHandle is an open port with its two stream halves
type PortHandle struct {
	manager  *TransportManager
	raw      RawPort
	readable *ReadableStream
	writable *WritableStream

	closeOnce sync.Once
	closeErr  error
}

func newPortHandle(m *TransportManager, raw RawPort) *PortHandle {
	return &PortHandle{
		manager:  m,
		raw:      raw,
		readable: &ReadableStream{raw: raw},
		writable: &WritableStream{raw: raw},
	}
}

// Info describes the opened port
func (h *PortHandle) Info() PortInfo {
	return h.raw.Info()
}

// Readable returns the device-to-host half
func (h *PortHandle) Readable() *ReadableStream {
	return h.readable
}

// Writable returns the host-to-device half
func (h *PortHandle) Writable() *WritableStream {
	return h.writable
}

// Close closes the handle through its manager
func (h *PortHandle) Close() error {
	return h.manager.Close(h)
}

func (h *PortHandle) close() error {
	h.closeOnce.Do(func() {
		// Locks must be gone before the port can close
		h.readable.shutdown()
		h.writable.shutdown()

		if err := h.raw.Close(); err != nil && !errors.Is(err, ErrPortClosed) {
			h.closeErr = fmt.Errorf("close %s: %w", h.raw.Info().Path, err)
		}
	})
	return h.closeErr
}

// ReadableStream hands out a single Reader at a time
type ReadableStream struct {
	mu     sync.Mutex
	raw    RawPort
	reader *Reader
	closed bool
}

// GetReader locks the stream. It fails with ErrReaderLocked while another
// reader is live.
func (s *ReadableStream) GetReader() (*Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrPortClosed
	}
	if s.reader != nil {
		return nil, ErrReaderLocked
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.reader = &Reader{
		stream: s,
		ctx:    ctx,
		cancel: cancel,
		buf:    make([]byte, readChunkSize),
	}
	return s.reader, nil
}

// Locked reports whether a reader is live
func (s *ReadableStream) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader != nil
}

func (s *ReadableStream) shutdown() {
	s.mu.Lock()
	s.closed = true
	r := s.reader
	s.mu.Unlock()

	if r != nil {
		r.Release()
	}
}

// Reader is the exclusive read guard of a ReadableStream.
// Read must be called from one goroutine; Cancel and Release may be called
// from any.
type Reader struct {
	stream *ReadableStream
	ctx    context.Context
	cancel context.CancelFunc
	buf    []byte

	mu       sync.Mutex
	released bool
}

// Read returns the next chunk from the device. It returns io.EOF once the
// reader is cancelled, the handle is closed or the device ends the stream,
// and an error wrapping ErrTransportRead when the device fails. After the
// caller's own Release it returns ErrLockReleased.
func (r *Reader) Read() ([]byte, error) {
	r.mu.Lock()
	released := r.released
	r.mu.Unlock()
	if released {
		r.stream.mu.Lock()
		closed := r.stream.closed
		r.stream.mu.Unlock()
		if closed {
			return nil, io.EOF
		}
		return nil, ErrLockReleased
	}

	for {
		if r.ctx.Err() != nil {
			return nil, io.EOF
		}

		n, err := r.stream.raw.Read(r.ctx, r.buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, r.buf[:n])
			return chunk, nil
		}
		switch {
		case err == nil:
			continue
		case r.ctx.Err() != nil, errors.Is(err, io.EOF):
			return nil, io.EOF
		default:
			return nil, fmt.Errorf("%w: %w", ErrTransportRead, err)
		}
	}
}

// Cancel interrupts an outstanding Read, which then returns io.EOF
func (r *Reader) Cancel() {
	r.cancel()
}

// Release cancels the reader and unlocks the stream. Safe to call repeatedly.
func (r *Reader) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	r.mu.Unlock()

	r.cancel()

	r.stream.mu.Lock()
	if r.stream.reader == r {
		r.stream.reader = nil
	}
	r.stream.mu.Unlock()
}

// WritableStream hands out a single Writer at a time
type WritableStream struct {
	mu     sync.Mutex
	raw    RawPort
	writer *Writer
	closed bool
}

// GetWriter locks the stream. It fails with ErrWriterLocked while another
// writer is live.
func (s *WritableStream) GetWriter() (*Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrPortClosed
	}
	if s.writer != nil {
		return nil, ErrWriterLocked
	}
	s.writer = &Writer{stream: s}
	return s.writer, nil
}

// Locked reports whether a writer is live
func (s *WritableStream) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer != nil
}

func (s *WritableStream) shutdown() {
	s.mu.Lock()
	s.closed = true
	w := s.writer
	s.mu.Unlock()

	if w != nil {
		w.Release()
	}
}

// Writer is the exclusive write guard of a WritableStream
type Writer struct {
	stream *WritableStream

	mu       sync.Mutex
	released bool
}

// Write writes all of p to the device
func (w *Writer) Write(ctx context.Context, p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released {
		return ErrLockReleased
	}

	n, err := w.stream.raw.Write(ctx, p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransportWrite, err)
	}
	if n < len(p) {
		return fmt.Errorf("%w: short write %d of %d bytes", ErrTransportWrite, n, len(p))
	}
	return nil
}

// Release unlocks the stream. Safe to call repeatedly.
func (w *Writer) Release() {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		return
	}
	w.released = true
	w.mu.Unlock()

	w.stream.mu.Lock()
	if w.stream.writer == w {
		w.stream.writer = nil
	}
	w.stream.mu.Unlock()
}
