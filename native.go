package boardlink

import (
	"context"
	"fmt"
	"path/filepath"
)

// NativeBackend selects real serial devices attached to this machine.
// With no Selector the request must identify exactly one port.
type NativeBackend struct {
	Selector Selector
}

// Ensure NativeBackend implements Backend at compile time
var _ Backend = (*NativeBackend)(nil)

// RequestPort resolves req to a device path and returns an unopened port
func (b *NativeBackend) RequestPort(ctx context.Context, req PortRequest) (RawPort, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSelectionCancelled, err)
	}

	if req.Path != "" {
		info, err := GetPortInfo(req.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", req.Path, err)
		}
		return newNativePort(*info), nil
	}

	ports, err := ListPorts()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}

	var candidates []PortInfo
	for _, p := range ports {
		if req.Accepts(p) {
			candidates = append(candidates, p)
		}
	}

	selector := b.Selector
	if selector == nil {
		selector = FirstPort
	}
	chosen, err := selector(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if chosen.Name == "" {
		chosen.Name = filepath.Base(chosen.Path)
	}
	return newNativePort(chosen), nil
}
