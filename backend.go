package boardlink

import (
	"context"
	"fmt"
)

// PortInfo describes a selectable serial port and the USB metadata behind it
type PortInfo struct {
	Name         string
	Path         string
	Description  string
	IsUSB        bool
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
}

// USBFilter restricts selection to a vendor, and optionally a product.
// A zero ProductID matches every product of the vendor.
type USBFilter struct {
	VendorID  uint16
	ProductID uint16
}

// Matches reports whether info satisfies the filter
func (f USBFilter) Matches(info PortInfo) bool {
	if !info.IsUSB || info.VendorID != f.VendorID {
		return false
	}
	return f.ProductID == 0 || info.ProductID == f.ProductID
}

// PortRequest is what a caller asks the backend to select.
// Path pins a specific device; otherwise Filters narrow the candidates.
type PortRequest struct {
	Path    string
	Filters []USBFilter
}

// Accepts reports whether info is a candidate for the request
func (r PortRequest) Accepts(info PortInfo) bool {
	if r.Path != "" {
		return info.Path == r.Path
	}
	if len(r.Filters) == 0 {
		return true
	}
	for _, f := range r.Filters {
		if f.Matches(info) {
			return true
		}
	}
	return false
}

// RawPort is the byte-stream capability a backend hands out.
//
// Read blocks until at least one byte arrives, ctx is done, or the device
// fails; it returns io.EOF when the device ends the stream. Write returns
// only after all bytes are written or an error occurs. Close releases the
// device; it is only ever called once by PortHandle.
type RawPort interface {
	Info() PortInfo
	Open(config Config) error
	Read(ctx context.Context, buf []byte) (int, error)
	Write(ctx context.Context, data []byte) (int, error)
	Close() error
}

// Backend selects ports on behalf of the transport manager.
// RequestPort returns an error wrapping ErrSelectionCancelled when the user
// or OS declines to pick a device.
type Backend interface {
	RequestPort(ctx context.Context, req PortRequest) (RawPort, error)
}

// Selector lets an interactive front end choose among candidate ports
type Selector func(ctx context.Context, candidates []PortInfo) (PortInfo, error)

// FirstPort selects the only candidate, failing when the choice is ambiguous
func FirstPort(_ context.Context, candidates []PortInfo) (PortInfo, error) {
	switch len(candidates) {
	case 0:
		return PortInfo{}, fmt.Errorf("%w: no matching serial port", ErrSelectionCancelled)
	case 1:
		return candidates[0], nil
	default:
		return PortInfo{}, fmt.Errorf("%w: %d matching ports, specify one", ErrSelectionCancelled, len(candidates))
	}
}
