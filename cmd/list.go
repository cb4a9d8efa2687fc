/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/allbin/go-boardlink"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports a board could be attached to.

USB ports are listed first and named after the board behind them when its
vendor and product ID are known. Extra boards can be named with a YAML
catalog passed as --boards.

Example usage:
  boardlink list
  boardlink list --table
  boardlink list --filter usb --boards ./boards.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := boardlink.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filtered := filterPorts(ports, filterType)
		if len(filtered) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		resolver, err := loadResolver()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if tableFormat {
			renderTable(filtered, resolver)
		} else {
			renderSimple(filtered)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []boardlink.PortInfo, filterType string) []boardlink.PortInfo {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []boardlink.PortInfo
	for _, port := range ports {
		name := strings.ToLower(port.Name)
		var keep bool
		switch filterType {
		case "usb":
			keep = port.IsUSB || strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
		case "standard":
			keep = strings.HasPrefix(name, "ttys")
		case "arm":
			keep = strings.HasPrefix(name, "ttyama")
		}
		if keep {
			filtered = append(filtered, port)
		}
	}
	return filtered
}

// renderTable renders the port list in a styled static table format
func renderTable(ports []boardlink.PortInfo, resolver *boardlink.Resolver) {
	fmt.Printf("Found %d serial port(s):\n\n", len(ports))

	portWidth := 15
	typeWidth := 16
	idWidth := 10
	boardWidth := 36

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("240"))

	cellStyle := lipgloss.NewStyle().
		PaddingRight(2)

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s",
		portWidth, "Port",
		typeWidth, "Type",
		idWidth, "VID:PID",
		boardWidth, "Board")
	fmt.Println(headerStyle.Render(header))

	for _, port := range ports {
		id := "-"
		if port.IsUSB {
			id = fmt.Sprintf("%04x:%04x", port.VendorID, port.ProductID)
		}
		row := fmt.Sprintf("%-*s %-*s %-*s %-*s",
			portWidth, port.Name,
			typeWidth, getPortType(port.Name),
			idWidth, id,
			boardWidth, resolver.Descriptor(port).DisplayName)
		fmt.Println(cellStyle.Render(row))
	}
}

// renderSimple renders the port list in simple text format
func renderSimple(ports []boardlink.PortInfo) {
	for _, port := range ports {
		fmt.Println(port.Path)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
