package components

import (
	"fmt"
	"strings"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// PortPicker lists candidate ports and tracks the highlighted one
type PortPicker struct {
	ports  []boardlink.PortInfo
	names  []string
	cursor int
}

// NewPortPicker names each candidate with resolver; a nil resolver uses
// the built-in board table
func NewPortPicker(ports []boardlink.PortInfo, resolver *boardlink.Resolver) *PortPicker {
	if resolver == nil {
		resolver = boardlink.NewResolver()
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = resolver.Descriptor(p).DisplayName
	}
	return &PortPicker{ports: ports, names: names}
}

func (p *PortPicker) Len() int {
	return len(p.ports)
}

func (p *PortPicker) Cursor() int {
	return p.cursor
}

func (p *PortPicker) Up() {
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p *PortPicker) Down() {
	if p.cursor < len(p.ports)-1 {
		p.cursor++
	}
}

// Selected returns the highlighted port
func (p *PortPicker) Selected() (boardlink.PortInfo, bool) {
	if len(p.ports) == 0 {
		return boardlink.PortInfo{}, false
	}
	return p.ports[p.cursor], true
}

func (p *PortPicker) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Select a serial port"))
	b.WriteString("\n\n")

	if len(p.ports) == 0 {
		b.WriteString(styles.MutedStyle.Render("No matching serial ports"))
		return b.String()
	}

	cursorStyle := lipgloss.NewStyle().Foreground(styles.Green).Bold(true)
	nameStyle := lipgloss.NewStyle().Foreground(styles.Text)
	for i, port := range p.ports {
		marker := "  "
		style := nameStyle
		if i == p.cursor {
			marker = cursorStyle.Render("▸ ")
			style = cursorStyle
		}
		line := fmt.Sprintf("%-16s %s", port.Path, p.names[i])
		if port.VendorID != 0 {
			line += styles.MutedStyle.Render(fmt.Sprintf("  %04x:%04x", port.VendorID, port.ProductID))
		}
		b.WriteString(marker + style.Render(line) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
