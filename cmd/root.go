/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "boardlink",
	Short: "Talk to microcontroller boards over USB serial",
	Long: `boardlink connects to microcontroller boards attached over USB serial,
decodes their "key:value,key:value" telemetry and sends line commands.

Settings are read from flags, BOARDLINK_* environment variables and
$HOME/.boardlink.yaml, in that order of precedence.

Example usage:
  boardlink list --table
  boardlink connect /dev/ttyACM0 --baud 115200
  boardlink listen --vid 2341 --json
  boardlink send ping /dev/ttyACM0 --wait 2s
  boardlink bridge /dev/ttyACM0 --mqtt.broker tcp://localhost:1883`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.boardlink.yaml)")

	flags.IntP("baud", "b", 9600, "Baud rate")
	flags.Int("data-bits", 8, "Data bits (5-8)")
	flags.Int("stop-bits", 1, "Stop bits (1 or 2)")
	flags.String("parity", "none", "Parity: none, odd, even")
	flags.String("flow-control", "none", "Flow control: none, rtscts")
	flags.Duration("read-timeout", 0, "Per-poll wait on the device, capped at 100ms (0 keeps the default)")
	flags.String("log-level", "warn", "Operational log level: debug, info, warn, error")
	flags.String("log-format", "console", "Operational log format: console, json")
	flags.String("boards", "", "YAML board catalog naming custom VID/PID pairs")
	flags.Bool("simulate", false, "Use a virtual board that emits synthetic telemetry")
	flags.Duration("simulate-interval", 0, "Telemetry interval of the virtual board (default 1s)")

	flags.String("mqtt.broker", "tcp://localhost:1883", "MQTT broker URL for the bridge command")
	flags.String("mqtt.topic", "boardlink", "MQTT topic prefix for the bridge command")
	flags.String("mqtt.client-id", "", "MQTT client ID (default boardlink-<session>)")

	for _, name := range []string{
		"baud", "data-bits", "stop-bits", "parity", "flow-control", "read-timeout",
		"log-level", "log-format", "boards", "simulate", "simulate-interval",
		"mqtt.broker", "mqtt.topic", "mqtt.client-id",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".boardlink")
	}

	viper.SetEnvPrefix("boardlink")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error: reading config: %v\n", err)
			os.Exit(1)
		}
	}
}
