// Package boardlink connects to microcontroller boards over USB serial and
// speaks their line-oriented telemetry protocol.
//
// A Controller owns one connection. It asks a Backend to select a port,
// opens it, and runs a read loop that splits the byte stream into lines.
// Lines shaped like "key:value,key:value" become telemetry frames; anything
// else is kept as free-form device output. Commands are written as single
// newline-terminated lines, one at a time.
//
// # Basic Usage
//
//	ctrl, err := boardlink.New(&boardlink.NativeBackend{},
//	    boardlink.WithBaudRate(115200),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctrl.Listen(func(e boardlink.Event) {
//	    if e.Kind == boardlink.EventTelemetry {
//	        fmt.Println(e.Line.Frame["temp"])
//	    }
//	})
//
//	err = ctrl.Connect(ctx, boardlink.PortRequest{Path: "/dev/ttyACM0"})
//	err = ctrl.SendCommand(ctx, "ping")
//	err = ctrl.Disconnect()
//
// # Port Selection
//
// A PortRequest either pins a device path or narrows candidates by USB
// vendor and product ID:
//
//	req := boardlink.PortRequest{
//	    Filters: []boardlink.USBFilter{{VendorID: 0x2341}},
//	}
//
// NativeBackend picks the only match unless a Selector is set, which lets
// an interactive front end choose. Declining to choose fails with
// ErrSelectionCancelled.
//
// # Connection States
//
//	Disconnected -> Connecting -> Connected -> Reading
//	Connecting   -> Error        (selection cancelled, open failed)
//	Reading      -> Error        (read failure, port torn down)
//	any          -> Disconnected (Disconnect)
//
// There is no automatic reconnection. After an error the caller decides
// whether to Connect again.
//
// # Testing Without Hardware
//
// Loopback is an in-memory Backend. The test feeds device output and
// inspects what the host wrote:
//
//	dev := boardlink.NewLoopback(boardlink.PortInfo{})
//	ctrl, _ := boardlink.New(dev)
//	_ = ctrl.Connect(ctx, boardlink.PortRequest{})
//	dev.FeedLine("temp:22.1")
//
// # Default Configuration
//
//   - BaudRate: 9600
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - FlowControl: None
//   - ReadTimeout: 200ms
//   - Log capacity: 100 entries
//   - Command history: 10 entries
package boardlink
