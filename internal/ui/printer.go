package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hmbacher/genius-gateway/internal/discovery"
	"github.com/hmbacher/genius-gateway/internal/packet"
)

// Field is one key/value line of a header or detail box.
type Field struct {
	Key   string
	Value string
}

// Printer writes styled, non-interactive output for one-shot commands.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = clampWidth(width)
	return p
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, fields ...Field) {
	p.Println(RenderHeader(title, command, fields, p.width))
}

// PrintPacket prints an interpreted packet with all decoded fields
func (p *Printer) PrintPacket(pkt packet.Packet) {
	p.Println(RenderPacket(pkt, p.width))
}

// PrintError prints an error box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting ...string) {
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

// PrintGateways prints discovery results, one gateway per line
func (p *Printer) PrintGateways(gateways []*discovery.Gateway) {
	if len(gateways) == 0 {
		p.Println(HelpStyle.Render("No gateways found."))
		return
	}
	for _, gw := range gateways {
		p.Println(fmt.Sprintf("  %s  %s  %s",
			ConnectedStyle.Render(gw.Name),
			DetailValueStyle.Render(gw.EventURL()),
			HexStyle.Render(gw.Hostname)))
	}
}

// RenderHeader renders a command header box
func RenderHeader(title, command string, fields []Field, width int) string {
	titleLine := HeaderTitleStyle.Render(strings.ToUpper(title))
	commandLine := HeaderCommandStyle.Render(command)
	content := lipgloss.JoinVertical(lipgloss.Left, titleLine, commandLine)

	if len(fields) > 0 {
		lines := make([]string, 0, len(fields))
		for _, f := range fields {
			lines = append(lines, HeaderParamKeyStyle.Render(f.Key+":")+" "+HeaderParamValueStyle.Render(f.Value))
		}
		dividerWidth := width - 6 // Account for border and padding
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		content = lipgloss.JoinVertical(lipgloss.Left,
			content,
			RenderHorizontalDivider(dividerWidth, "─"),
			strings.Join(lines, "\n"))
	}

	return BoxStyle(width, PrimaryColor).Render(content)
}

// PacketFields lists the decoded fields of pkt in display order
func PacketFields(pkt packet.Packet) []Field {
	fields := []Field{
		{"Type", pkt.Name()},
		{"Length", fmt.Sprintf("%d bytes", len(pkt.Data))},
	}
	if pkt.Type != nil && pkt.Type.Description != "" {
		fields = append(fields, Field{"Description", pkt.Type.Description})
	}
	if g := pkt.General; g != nil {
		fields = append(fields,
			Field{"Origin module", formatID(g.OriginID)},
			Field{"Sender module", formatID(g.SenderID)},
			Field{"Line", formatID(g.LineID)},
			Field{"Hops", fmt.Sprintf("%d", g.Hops)},
		)
	}
	switch info := pkt.Specific.(type) {
	case *packet.CommissioningInfo:
		fields = append(fields,
			Field{"New line", formatID(info.NewLineID)},
			Field{"Time", info.Time},
		)
	case *packet.AlarmStartInfo:
		fields = append(fields, Field{"Source detector", formatID(info.SourceDetectorID)})
	case *packet.AlarmStopInfo:
		fields = append(fields, Field{"Silenced by", formatID(info.SilencingDetectorID)})
	}
	return fields
}

func formatID(id uint32) string {
	if id == packet.GatewayID {
		return fmt.Sprintf("%08X (gateway)", id)
	}
	return fmt.Sprintf("%08X (%d)", id, id)
}

// RenderPacket renders a packet detail box colored by its class
func RenderPacket(pkt packet.Packet, width int) string {
	class := ""
	if pkt.Type != nil {
		class = pkt.Type.Class
	}
	nameStyle := PacketNameStyle(class)

	lines := []string{nameStyle.Render(pkt.Name()), ""}
	for _, f := range PacketFields(pkt)[1:] {
		lines = append(lines, DetailKeyStyle.Render(f.Key+":")+" "+DetailValueStyle.Render(f.Value))
	}
	lines = append(lines, "", HexStyle.Width(width-6).Render(pkt.Data.Hex()))

	color, ok := classColors[class]
	if !ok {
		color = MutedColor
	}
	return BoxStyle(width, color).Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error box with troubleshooting tips
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	lines := []string{ErrorTitleStyle.Render(FailureMarker + "  " + title)}
	if err != nil {
		lines = append(lines, "", ErrorMessageStyle.Render("Error: "+err.Error()))
	}
	if len(troubleshooting) > 0 {
		lines = append(lines, "", HelpStyle.Render("Troubleshooting:"))
		for _, tip := range troubleshooting {
			lines = append(lines, HelpStyle.Render("  • "+tip))
		}
	}
	return BoxStyle(width, ErrorColor).Padding(0, 1).Render(strings.Join(lines, "\n"))
}
