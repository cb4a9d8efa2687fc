/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/bridge"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// bridgeCmd represents the bridge command
var bridgeCmd = &cobra.Command{
	Use:   "bridge [port]",
	Short: "Relay a board over MQTT",
	Long: `Connect to a board and relay it over MQTT until interrupted.

Published (JSON envelopes with id, session, timestamp, kind and payload):
  <topic>/telemetry   every telemetry frame
  <topic>/log         every log entry, including raw device lines
  <topic>/state       connection state changes (retained)

Subscribed:
  <topic>/command     each message is sent to the board as one command

Example usage:
  boardlink bridge /dev/ttyACM0 --mqtt.broker tcp://localhost:1883
  boardlink bridge --vid 2341 --mqtt.topic lab/bench1
  boardlink bridge --simulate`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req, err := portRequest(cmd, optionalArg(args, 0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		qos, _ := cmd.Flags().GetUint8("qos")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if err := runBridge(req, qos, timeout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(bridgeCmd)

	addRequestFlags(bridgeCmd)
	bridgeCmd.Flags().Uint8("qos", 0, "MQTT quality of service (0, 1 or 2)")
	bridgeCmd.Flags().Duration("timeout", 10*time.Second, "Timeout for connecting to the broker and for each publish")
}

func runBridge(req boardlink.PortRequest, qos byte, timeout time.Duration) error {
	if qos > 2 {
		return fmt.Errorf("%w: qos must be 0, 1 or 2", boardlink.ErrInvalidConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	broker := viper.GetString("mqtt.broker")
	client, err := bridge.Dial(broker, viper.GetString("mqtt.client-id"), timeout)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Info("connected to broker", zap.String("broker", broker))

	b, err := newBoard(ctx, logger, nil)
	if err != nil {
		return err
	}

	br := bridge.New(client, b.ctrl, bridge.Config{
		Topic:   viper.GetString("mqtt.topic"),
		QoS:     qos,
		Timeout: timeout,
		Logger:  logger,
	})
	if err := br.Start(ctx); err != nil {
		return err
	}
	defer br.Stop()

	done, remove := sessionEnd(b.ctrl)
	defer remove()

	if err := b.ctrl.Connect(ctx, req); err != nil {
		return err
	}
	if d, ok := b.ctrl.Device(); ok {
		fmt.Fprintf(os.Stderr, "Bridging %s (%s) to %s under %s, press Ctrl+C to stop\n",
			d.DisplayName, d.Path, broker, br.Topic("#"))
	}

	select {
	case <-ctx.Done():
		return b.ctrl.Disconnect()
	case err := <-done:
		return err
	}
}
