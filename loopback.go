package boardlink

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LoopbackInfo is the identity reported by a default loopback device
var LoopbackInfo = PortInfo{
	Name:        "loopback",
	Path:        "loopback://0",
	Description: "Virtual loopback device",
	IsUSB:       true,
	VendorID:    0x2341,
	ProductID:   0x0043,
}

// LoopbackStats counts what the host did to a loopback device
type LoopbackStats struct {
	Requests int
	Opens    int
	Closes   int
}

type loopbackItem struct {
	data []byte
	err  error
}

// Loopback is an in-memory board. It is a Backend offering a single port;
// the device side is driven with Feed, Unplug and EndStream, and bytes the
// host wrote are read back with Written.
type Loopback struct {
	// Select, when set, runs during port selection and may block or fail
	Select func(ctx context.Context) error
	// Respond, when set, is called with each complete line the host writes;
	// the returned lines are sent back to the host
	Respond func(line string) []string
	// ChunkSize splits host writes into pieces of at most this many bytes
	ChunkSize int

	info     PortInfo
	incoming chan loopbackItem

	mu       sync.Mutex
	stats    LoopbackStats
	written  []byte
	lineBuf  string
	openErr  error
	writeErr error
}

// Ensure Loopback implements Backend at compile time
var _ Backend = (*Loopback)(nil)

// NewLoopback returns a loopback device; a zero info uses LoopbackInfo
func NewLoopback(info PortInfo) *Loopback {
	if info.Path == "" {
		info = LoopbackInfo
	}
	return &Loopback{
		info:     info,
		incoming: make(chan loopbackItem, 1024),
	}
}

// FailOpen makes subsequent opens fail with err; nil clears it
func (l *Loopback) FailOpen(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.openErr = err
}

// FailWrite makes subsequent writes fail with err; nil clears it
func (l *Loopback) FailWrite(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeErr = err
}

// Feed queues bytes for the host to read
func (l *Loopback) Feed(data []byte) {
	chunk := make([]byte, len(data))
	copy(chunk, data)
	l.incoming <- loopbackItem{data: chunk}
}

// FeedLine queues line followed by a newline
func (l *Loopback) FeedLine(line string) {
	l.Feed([]byte(line + "\n"))
}

// Unplug makes the next read fail with err, as a removed cable would
func (l *Loopback) Unplug(err error) {
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	l.incoming <- loopbackItem{err: err}
}

// EndStream makes the next read report end of stream
func (l *Loopback) EndStream() {
	l.incoming <- loopbackItem{err: io.EOF}
}

// Written returns every byte the host has written so far
func (l *Loopback) Written() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]byte, len(l.written))
	copy(out, l.written)
	return out
}

// Stats returns request, open and close counts
func (l *Loopback) Stats() LoopbackStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// RequestPort offers the loopback port when it matches req
func (l *Loopback) RequestPort(ctx context.Context, req PortRequest) (RawPort, error) {
	l.mu.Lock()
	l.stats.Requests++
	l.mu.Unlock()

	if l.Select != nil {
		if err := l.Select(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSelectionCancelled, err)
	}
	if !req.Accepts(l.info) {
		return nil, fmt.Errorf("%w: no matching serial port", ErrSelectionCancelled)
	}

	return &loopbackPort{dev: l, closed: make(chan struct{})}, nil
}

// handleWrite records host bytes and runs the responder on complete lines
func (l *Loopback) handleWrite(data []byte) {
	l.mu.Lock()
	l.written = append(l.written, data...)
	var lines []string
	lines, l.lineBuf = DecodeLines(data, l.lineBuf)
	respond := l.Respond
	l.mu.Unlock()

	if respond == nil {
		return
	}
	for _, line := range lines {
		for _, reply := range respond(line) {
			l.FeedLine(reply)
		}
	}
}

func (l *Loopback) drain() {
	for {
		select {
		case <-l.incoming:
		default:
			return
		}
	}
}

// RunTelemetry feeds a synthetic sensor line every interval until ctx is done
func (l *Loopback) RunTelemetry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.FeedLine(SyntheticTelemetry(tick))
		}
	}
}

// SyntheticTelemetry returns a plausible sensor line for step n
func SyntheticTelemetry(n int) string {
	phase := float64(n) / 10
	temp := 22 + 3*math.Sin(phase)
	humidity := 55 + 10*math.Cos(phase/2)
	return fmt.Sprintf("temp:%.1f,humidity:%.0f,uptime:%d", temp, humidity, n)
}

// SimulatedResponder answers a few commands the way simple firmware would
func SimulatedResponder(line string) []string {
	cmd := strings.TrimSpace(line)
	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "ping":
		return []string{"pong"}
	case "status":
		return []string{"status:ok,uptime:1"}
	default:
		return []string{"ack:" + cmd}
	}
}

type loopbackPort struct {
	dev *Loopback

	mu      sync.Mutex
	opened  bool
	closed  chan struct{}
	isShut  bool
	fault   error
	pending []byte
}

// Ensure loopbackPort implements RawPort at compile time
var _ RawPort = (*loopbackPort)(nil)

func (p *loopbackPort) Info() PortInfo {
	return p.dev.info
}

func (p *loopbackPort) Open(config Config) error {
	if _, err := getBaudRate(config.BaudRate); err != nil {
		return err
	}

	p.dev.mu.Lock()
	err := p.dev.openErr
	p.dev.mu.Unlock()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isShut {
		return ErrPortClosed
	}
	if p.opened {
		return ErrDeviceInUse
	}
	p.opened = true

	p.dev.mu.Lock()
	p.dev.stats.Opens++
	p.dev.mu.Unlock()

	// Output queued while nobody had the port open is dropped, as a tty
	// input flush would
	p.dev.drain()
	return nil
}

func (p *loopbackPort) Read(ctx context.Context, buf []byte) (int, error) {
	p.mu.Lock()
	if p.isShut || !p.opened {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if p.fault != nil {
		err := p.fault
		p.mu.Unlock()
		return 0, err
	}
	if len(p.pending) > 0 {
		n := copy(buf, p.pending)
		p.pending = p.pending[n:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-p.closed:
		return 0, ErrPortClosed
	case item := <-p.dev.incoming:
		if item.err != nil {
			p.mu.Lock()
			p.fault = item.err
			p.mu.Unlock()
			return 0, item.err
		}
		n := copy(buf, item.data)
		if n < len(item.data) {
			p.mu.Lock()
			p.pending = append(p.pending, item.data[n:]...)
			p.mu.Unlock()
		}
		return n, nil
	}
}

func (p *loopbackPort) Write(ctx context.Context, data []byte) (int, error) {
	written := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		p.mu.Lock()
		shut := p.isShut || !p.opened
		p.mu.Unlock()
		if shut {
			return written, ErrPortClosed
		}

		p.dev.mu.Lock()
		err := p.dev.writeErr
		size := p.dev.ChunkSize
		p.dev.mu.Unlock()
		if err != nil {
			return written, err
		}

		end := len(data)
		if size > 0 && written+size < end {
			end = written + size
		}
		p.dev.handleWrite(data[written:end])
		written = end
		runtime.Gosched()
	}
	return written, nil
}

func (p *loopbackPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isShut {
		return ErrPortClosed
	}
	p.isShut = true
	close(p.closed)

	if p.opened {
		p.dev.mu.Lock()
		p.dev.stats.Closes++
		p.dev.lineBuf = ""
		p.dev.mu.Unlock()
	}
	return nil
}
