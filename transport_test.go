package boardlink

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func openLoopback(t *testing.T) (*Loopback, *TransportManager, *PortHandle) {
	t.Helper()
	dev := NewLoopback(PortInfo{})
	m := NewTransportManager(dev, DefaultConfig())
	h, err := m.Open(context.Background(), PortRequest{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return dev, m, h
}

func TestTransportOpenSinglePort(t *testing.T) {
	dev, m, h := openLoopback(t)

	if m.Current() != h {
		t.Error("Current() is not the opened handle")
	}
	if _, err := m.Open(context.Background(), PortRequest{}); !errors.Is(err, ErrPortBusy) {
		t.Errorf("second Open() error = %v, want ErrPortBusy", err)
	}

	if err := m.Close(h); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(h); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
	if err := m.Close(nil); err != nil {
		t.Errorf("Close(nil) = %v, want nil", err)
	}
	if m.Current() != nil {
		t.Error("Current() not cleared after Close")
	}
	if s := dev.Stats(); s.Opens != 1 || s.Closes != 1 {
		t.Errorf("Stats() = %+v, want one open and one close", s)
	}

	h2, err := m.Open(context.Background(), PortRequest{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	_ = h2.Close()
}

func TestTransportOpenErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(dev *Loopback)
		req   PortRequest
		ctx   func() context.Context
		want  error
	}{
		{
			name:  "open rejected",
			setup: func(dev *Loopback) { dev.FailOpen(ErrPermissionDenied) },
			want:  ErrOpenFailed,
		},
		{
			name: "selection declined",
			setup: func(dev *Loopback) {
				dev.Select = func(context.Context) error { return ErrSelectionCancelled }
			},
			want: ErrSelectionCancelled,
		},
		{
			name: "no matching device",
			req:  PortRequest{Filters: []USBFilter{{VendorID: 0x0403}}},
			want: ErrSelectionCancelled,
		},
		{
			name: "context cancelled",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			want: ErrSelectionCancelled,
		},
		{
			name: "selector fails with other error",
			setup: func(dev *Loopback) {
				dev.Select = func(context.Context) error { return io.ErrClosedPipe }
			},
			want: ErrOpenFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := NewLoopback(PortInfo{})
			if tt.setup != nil {
				tt.setup(dev)
			}
			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}

			m := NewTransportManager(dev, DefaultConfig())
			if _, err := m.Open(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
			if m.Current() != nil {
				t.Error("Current() set after failed Open")
			}
		})
	}
}

func TestOpenFailedWrapsCause(t *testing.T) {
	dev := NewLoopback(PortInfo{})
	dev.FailOpen(ErrPermissionDenied)
	m := NewTransportManager(dev, DefaultConfig())

	_, err := m.Open(context.Background(), PortRequest{})
	if !errors.Is(err, ErrOpenFailed) || !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Open() error = %v, want ErrOpenFailed wrapping ErrPermissionDenied", err)
	}
}

func TestReaderExclusive(t *testing.T) {
	dev, _, h := openLoopback(t)
	defer h.Close()

	r, err := h.Readable().GetReader()
	if err != nil {
		t.Fatalf("GetReader failed: %v", err)
	}
	if _, err := h.Readable().GetReader(); !errors.Is(err, ErrReaderLocked) {
		t.Errorf("second GetReader() error = %v, want ErrReaderLocked", err)
	}

	dev.FeedLine("hello")
	chunk, err := r.Read()
	if err != nil || string(chunk) != "hello\n" {
		t.Errorf("Read() = %q, %v, want hello\\n", chunk, err)
	}

	r.Release()
	r.Release()
	if _, err := r.Read(); !errors.Is(err, ErrLockReleased) {
		t.Errorf("Read() after Release = %v, want ErrLockReleased", err)
	}
	if h.Readable().Locked() {
		t.Error("stream still locked after Release")
	}

	r2, err := h.Readable().GetReader()
	if err != nil {
		t.Fatalf("GetReader after Release failed: %v", err)
	}
	r2.Release()
}

func TestReaderCancelInterruptsRead(t *testing.T) {
	_, _, h := openLoopback(t)
	defer h.Close()

	r, err := h.Readable().GetReader()
	if err != nil {
		t.Fatalf("GetReader failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.Read()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	r.Cancel()

	select {
	case err := <-done:
		if err != io.EOF {
			t.Errorf("Read() after Cancel = %v, want io.EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read() did not return after Cancel")
	}
}

func TestReaderErrors(t *testing.T) {
	dev, _, h := openLoopback(t)
	defer h.Close()
	r, _ := h.Readable().GetReader()

	dev.Unplug(io.ErrUnexpectedEOF)
	if _, err := r.Read(); !errors.Is(err, ErrTransportRead) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Read() after unplug = %v, want ErrTransportRead", err)
	}

	dev2, _, h2 := openLoopback(t)
	defer h2.Close()
	r2, _ := h2.Readable().GetReader()
	dev2.EndStream()
	if _, err := r2.Read(); err != io.EOF {
		t.Errorf("Read() at end of stream = %v, want io.EOF", err)
	}
}

func TestWriterExclusive(t *testing.T) {
	dev, _, h := openLoopback(t)
	defer h.Close()

	w, err := h.Writable().GetWriter()
	if err != nil {
		t.Fatalf("GetWriter failed: %v", err)
	}
	if _, err := h.Writable().GetWriter(); !errors.Is(err, ErrWriterLocked) {
		t.Errorf("second GetWriter() error = %v, want ErrWriterLocked", err)
	}

	if err := w.Write(context.Background(), []byte("ping\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := string(dev.Written()); got != "ping\n" {
		t.Errorf("Written() = %q, want ping\\n", got)
	}

	w.Release()
	w.Release()
	if err := w.Write(context.Background(), []byte("x")); !errors.Is(err, ErrLockReleased) {
		t.Errorf("Write() after Release = %v, want ErrLockReleased", err)
	}

	dev.FailWrite(io.ErrClosedPipe)
	w2, _ := h.Writable().GetWriter()
	defer w2.Release()
	if err := w2.Write(context.Background(), []byte("x")); !errors.Is(err, ErrTransportWrite) {
		t.Errorf("Write() on failing device = %v, want ErrTransportWrite", err)
	}
}

func TestCloseReleasesOutstandingLocks(t *testing.T) {
	dev, m, h := openLoopback(t)

	r, _ := h.Readable().GetReader()
	w, _ := h.Writable().GetWriter()

	readDone := make(chan error, 1)
	go func() {
		_, err := r.Read()
		readDone <- err
	}()

	if err := m.Close(h); err != nil {
		t.Fatalf("Close with live locks failed: %v", err)
	}

	select {
	case err := <-readDone:
		if err != io.EOF {
			t.Errorf("pending Read() = %v, want io.EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pending Read() not interrupted by Close")
	}

	if err := w.Write(context.Background(), []byte("x")); !errors.Is(err, ErrLockReleased) {
		t.Errorf("Write() after Close = %v, want ErrLockReleased", err)
	}
	if _, err := h.Readable().GetReader(); !errors.Is(err, ErrPortClosed) {
		t.Errorf("GetReader() after Close = %v, want ErrPortClosed", err)
	}
	if _, err := h.Writable().GetWriter(); !errors.Is(err, ErrPortClosed) {
		t.Errorf("GetWriter() after Close = %v, want ErrPortClosed", err)
	}
	if s := dev.Stats(); s.Closes != 1 {
		t.Errorf("Closes = %d, want 1", s.Closes)
	}
}

func TestReadAfterRelease(t *testing.T) {
	tests := []struct {
		name    string
		release func(*TransportManager, *PortHandle, *Reader)
		want    error
	}{
		{"reader released", func(_ *TransportManager, _ *PortHandle, r *Reader) { r.Release() }, ErrLockReleased},
		{"handle closed", func(m *TransportManager, h *PortHandle, _ *Reader) { _ = m.Close(h) }, io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, m, h := openLoopback(t)
			defer h.Close()
			r, err := h.Readable().GetReader()
			if err != nil {
				t.Fatalf("GetReader failed: %v", err)
			}

			tt.release(m, h, r)
			if _, err := r.Read(); !errors.Is(err, tt.want) {
				t.Errorf("Read() = %v, want %v", err, tt.want)
			}
		})
	}
}
