/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/allbin/go-boardlink"
	"github.com/spf13/cobra"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen [port]",
	Short: "Print telemetry and device output without a TUI",
	Long: `Connect to a board and print everything it sends until interrupted
(Ctrl+C) or the board goes away.

Each line is printed with a timestamp and its log kind. With --json every
event is written as one JSON object per line: telemetry frames, raw device
lines, log messages and state changes. With --output the same lines are
also appended to a file, so a capture can be resumed without overwriting it.

Example usage:
  boardlink listen /dev/ttyACM0
  boardlink listen --vid 2341 --json
  boardlink listen /dev/ttyUSB0 --baud 115200 --output capture.log
  boardlink listen --simulate --json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req, err := portRequest(cmd, optionalArg(args, 0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		outputPath, _ := cmd.Flags().GetString("output")

		if err := runListen(req, jsonMode, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	addRequestFlags(listenCmd)
	listenCmd.Flags().Bool("json", false, "Write one JSON object per event")
	listenCmd.Flags().StringP("output", "o", "", "Also append output to this file")
}

// eventRecord is the --json shape of an event
type eventRecord struct {
	Time    time.Time                `json:"time"`
	Session string                   `json:"session,omitempty"`
	Type    boardlink.EventKind      `json:"type"`
	Kind    string                   `json:"kind,omitempty"`
	Message string                   `json:"message,omitempty"`
	Text    string                   `json:"text,omitempty"`
	Frame   boardlink.TelemetryFrame `json:"frame,omitempty"`
	State   string                   `json:"state,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// eventPrinter writes controller events as text or JSON lines
type eventPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	jsonMode bool
	enc      *json.Encoder
	frames   int
	lines    int
	err      error
}

func newEventPrinter(w io.Writer, jsonMode bool) *eventPrinter {
	return &eventPrinter{w: w, jsonMode: jsonMode, enc: json.NewEncoder(w)}
}

// Handle prints e. In text mode only log entries are printed, since every
// device line already arrives as a data entry.
func (p *eventPrinter) Handle(e boardlink.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Kind {
	case boardlink.EventTelemetry:
		p.frames++
	case boardlink.EventRawLine:
		p.lines++
	}

	if p.err != nil {
		return
	}
	if !p.jsonMode {
		if e.Kind == boardlink.EventLog {
			_, p.err = fmt.Fprintf(p.w, "[%s] %-7s %s\n",
				e.Log.Time.Format("15:04:05.000"), e.Log.Kind, e.Log.Message)
		}
		return
	}

	rec := eventRecord{Time: e.Time, Session: e.Session, Type: e.Kind}
	switch e.Kind {
	case boardlink.EventLog:
		if e.Log.Kind == boardlink.LogData {
			// carried by the telemetry or raw_line event
			return
		}
		rec.Kind, rec.Message = e.Log.Kind.String(), e.Log.Message
	case boardlink.EventTelemetry:
		rec.Frame = e.Line.Frame
	case boardlink.EventRawLine:
		rec.Text = e.Line.Text
	case boardlink.EventState:
		rec.State = e.State.String()
		if e.Err != nil {
			rec.Error = e.Err.Error()
		}
	}
	p.err = p.enc.Encode(rec)
}

// Counts returns how many telemetry frames and raw lines were seen
func (p *eventPrinter) Counts() (frames, lines int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames, p.lines
}

// Err returns the first write error
func (p *eventPrinter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// sessionEnd returns a channel that receives once the controller leaves
// the reading state, carrying the error that ended the session
func sessionEnd(ctrl *boardlink.Controller) (<-chan error, func()) {
	done := make(chan error, 1)
	var once sync.Once
	var reading atomic.Bool
	remove := ctrl.Listen(func(e boardlink.Event) {
		if e.Kind != boardlink.EventState {
			return
		}
		switch e.State {
		case boardlink.StateReading:
			reading.Store(true)
		case boardlink.StateDisconnected, boardlink.StateError:
			if reading.Load() {
				once.Do(func() { done <- e.Err })
			}
		}
	})
	return done, remove
}

func runListen(req boardlink.PortRequest, jsonMode bool, outputPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var out io.Writer = os.Stdout
	if outputPath != "" {
		file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer file.Close()
		out = io.MultiWriter(os.Stdout, file)
	}

	b, err := newBoard(ctx, logger, nil)
	if err != nil {
		return err
	}

	printer := newEventPrinter(out, jsonMode)
	b.ctrl.Listen(printer.Handle)
	done, remove := sessionEnd(b.ctrl)
	defer remove()

	if err := b.ctrl.Connect(ctx, req); err != nil {
		return err
	}

	if d, ok := b.ctrl.Device(); ok && !jsonMode {
		fmt.Fprintf(os.Stderr, "Listening on %s (%s), press Ctrl+C to stop\n\n", d.DisplayName, d.Path)
	}

	start := time.Now()
	var cause error
	select {
	case <-ctx.Done():
		_ = b.ctrl.Disconnect()
	case cause = <-done:
	}

	if !jsonMode {
		frames, lines := printer.Counts()
		fmt.Fprintf(os.Stderr, "\n%d telemetry frames and %d other lines in %v\n",
			frames, lines, time.Since(start).Round(time.Millisecond))
	}
	if cause != nil {
		return cause
	}
	return printer.Err()
}
