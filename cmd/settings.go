/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultSimulateInterval = time.Second

func parseParity(s string) (boardlink.Parity, error) {
	switch strings.ToLower(s) {
	case "", "none", "n":
		return boardlink.ParityNone, nil
	case "odd", "o":
		return boardlink.ParityOdd, nil
	case "even", "e":
		return boardlink.ParityEven, nil
	default:
		return 0, fmt.Errorf("%w: unknown parity %q", boardlink.ErrInvalidConfig, s)
	}
}

func parseFlowControl(s string) (boardlink.FlowControl, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return boardlink.FlowControlNone, nil
	case "rtscts", "hardware":
		return boardlink.FlowControlRTSCTS, nil
	default:
		return 0, fmt.Errorf("%w: unknown flow control %q", boardlink.ErrInvalidConfig, s)
	}
}

// parseUSBID accepts "2341" or "0x2341"
func parseUSBID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid USB ID %q", boardlink.ErrInvalidConfig, s)
	}
	return uint16(v), nil
}

// newLogger builds the operational logger from log-level and log-format
func newLogger(w io.Writer) (*zap.Logger, error) {
	return logging.New(viper.GetString("log-level"), viper.GetString("log-format"), w)
}

// loadResolver returns the built-in board table extended by the boards catalog
func loadResolver() (*boardlink.Resolver, error) {
	resolver := boardlink.NewResolver()
	if path := viper.GetString("boards"); path != "" {
		if err := resolver.LoadCatalog(path); err != nil {
			return nil, err
		}
	}
	return resolver, nil
}

// controllerOptions maps the bound settings onto controller options
func controllerOptions(logger *zap.Logger, resolver *boardlink.Resolver) ([]boardlink.Option, error) {
	parity, err := parseParity(viper.GetString("parity"))
	if err != nil {
		return nil, err
	}
	flow, err := parseFlowControl(viper.GetString("flow-control"))
	if err != nil {
		return nil, err
	}

	opts := []boardlink.Option{
		boardlink.WithBaudRate(viper.GetInt("baud")),
		boardlink.WithDataBits(viper.GetInt("data-bits")),
		boardlink.WithStopBits(viper.GetInt("stop-bits")),
		boardlink.WithParity(parity),
		boardlink.WithFlowControl(flow),
		boardlink.WithLogger(logger),
		boardlink.WithResolver(resolver),
	}
	if timeout := viper.GetDuration("read-timeout"); timeout > 0 {
		opts = append(opts, boardlink.WithReadTimeout(timeout))
	}
	return opts, nil
}

// addRequestFlags adds the USB filter flags used to pick a port
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("vid", "", "Only consider ports with this USB vendor ID (hex)")
	cmd.Flags().String("pid", "", "Only consider ports with this USB product ID (hex, requires --vid)")
}

// portRequest builds a request from an optional path argument and the
// --vid/--pid flags
func portRequest(cmd *cobra.Command, path string) (boardlink.PortRequest, error) {
	if viper.GetBool("simulate") {
		// the virtual board is the only port
		return boardlink.PortRequest{}, nil
	}
	req := boardlink.PortRequest{Path: path}

	vidFlag, _ := cmd.Flags().GetString("vid")
	pidFlag, _ := cmd.Flags().GetString("pid")
	if vidFlag == "" {
		if pidFlag != "" {
			return req, fmt.Errorf("%w: --pid requires --vid", boardlink.ErrInvalidConfig)
		}
		return req, nil
	}

	vid, err := parseUSBID(vidFlag)
	if err != nil {
		return req, err
	}
	filter := boardlink.USBFilter{VendorID: vid}
	if pidFlag != "" {
		pid, err := parseUSBID(pidFlag)
		if err != nil {
			return req, err
		}
		filter.ProductID = pid
	}
	req.Filters = []boardlink.USBFilter{filter}
	return req, nil
}

// board is a controller with the backend it was built on
type board struct {
	ctrl     *boardlink.Controller
	logger   *zap.Logger
	loopback *boardlink.Loopback // set with --simulate
}

// newBoard builds a controller from the bound settings. With --simulate the
// backend is a virtual board that answers commands and emits telemetry
// until ctx is done; otherwise real ports are chosen with selector.
func newBoard(ctx context.Context, logger *zap.Logger, selector boardlink.Selector) (*board, error) {
	resolver, err := loadResolver()
	if err != nil {
		return nil, err
	}
	opts, err := controllerOptions(logger, resolver)
	if err != nil {
		return nil, err
	}

	var backend boardlink.Backend = &boardlink.NativeBackend{Selector: selector}
	var loop *boardlink.Loopback
	if viper.GetBool("simulate") {
		loop = boardlink.NewLoopback(boardlink.PortInfo{})
		loop.Respond = boardlink.SimulatedResponder
		backend = loop

		interval := viper.GetDuration("simulate-interval")
		if interval <= 0 {
			interval = defaultSimulateInterval
		}
		go loop.RunTelemetry(ctx, interval)
	}

	ctrl, err := boardlink.New(backend, opts...)
	if err != nil {
		return nil, err
	}
	return &board{ctrl: ctrl, logger: logger, loopback: loop}, nil
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
