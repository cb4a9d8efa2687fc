/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/allbin/go-boardlink"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <command|-> [port]",
	Short: "Send commands to a board",
	Long: `Send one or more newline-terminated commands to a board.

The command can be provided as:
- Command line argument: boardlink send ping /dev/ttyACM0
- From stdin, one command per line: printf 'ping\nstatus\n' | boardlink send - /dev/ttyACM0
- Interactively: boardlink send - /dev/ttyACM0 (prompts for input)

With --wait the connection is held open afterwards and whatever the board
answers is printed.

Example usage:
  boardlink send ping /dev/ttyACM0 --wait 2s
  boardlink send 6c65643d31 --hex --vid 2341
  boardlink send status --simulate --wait 500ms`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		req, err := portRequest(cmd, optionalArg(args, 1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		wait, _ := cmd.Flags().GetDuration("wait")

		var commands []string
		if args[0] == "-" {
			commands, err = readCommands(os.Stdin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
				os.Exit(1)
			}
		} else {
			commands = []string{args[0]}
		}

		if hexMode {
			for i, c := range commands {
				decoded, err := parseHexString(c)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
					os.Exit(1)
				}
				commands[i] = decoded
			}
		}

		if err := sendCommands(req, commands, timeout, wait); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	addRequestFlags(sendCmd)
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret commands as hexadecimal (e.g., '70696e67' for 'ping')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for writing each command")
	sendCmd.Flags().DurationP("wait", "w", 0, "Print board output for this long after sending")
}

// readCommands reads one command per line, prompting when r is a terminal
func readCommands(r *os.File) ([]string, error) {
	stat, err := r.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
		c := promptForData(r)
		if c == "" {
			return nil, fmt.Errorf("no command given")
		}
		return []string{c}, nil
	}
	return scanCommands(r)
}

func scanCommands(r io.Reader) ([]string, error) {
	var commands []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if c := strings.TrimSpace(scanner.Text()); c != "" {
			commands = append(commands, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("no command given")
	}
	return commands, nil
}

func promptForData(r io.Reader) string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter command to send: "))

	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

func parseHexString(hexStr string) (string, error) {
	hexStr = strings.ReplaceAll(hexStr, " ", "")
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")

	if len(hexStr)%2 != 0 {
		return "", fmt.Errorf("hex string must have even length")
	}

	var result strings.Builder
	for i := 0; i < len(hexStr); i += 2 {
		hexByte := hexStr[i : i+2]
		var b byte
		if _, err := fmt.Sscanf(hexByte, "%x", &b); err != nil {
			return "", fmt.Errorf("invalid hex byte '%s': %v", hexByte, err)
		}
		result.WriteByte(b)
	}

	return result.String(), nil
}

func sendCommands(req boardlink.PortRequest, commands []string, timeout, wait time.Duration) error {
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	b, err := newBoard(ctx, logger, nil)
	if err != nil {
		return err
	}

	if wait > 0 {
		b.ctrl.Listen(func(e boardlink.Event) {
			if e.Kind == boardlink.EventLog && e.Log.Kind == boardlink.LogData {
				fmt.Printf("%s %s\n", infoStyle.Render("↙"), e.Log.Message)
			}
		})
	}

	fmt.Printf("%s Opening serial port...\n", infoStyle.Render("⚡"))
	if err := b.ctrl.Connect(ctx, req); err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("✗"), err)
	}
	defer b.ctrl.Disconnect()

	if d, ok := b.ctrl.Device(); ok {
		fmt.Printf("%s Connected to %s (%s)\n", successStyle.Render("✓"), d.DisplayName, d.Path)
	}

	for _, c := range commands {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		err := b.ctrl.SendCommand(sctx, c)
		cancel()
		if err != nil {
			return fmt.Errorf("%s failed to send %q: %w", errorStyle.Render("✗"), c, err)
		}
		fmt.Printf("%s Sent %s\n", successStyle.Render("✓"), preview(c))
	}

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
		}
	}
	return nil
}

// preview quotes the first 50 characters of s with non-printables replaced
func preview(s string) string {
	if len(s) > 50 {
		s = s[:50] + "..."
	}
	return `"` + strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, s) + `"`
}
