package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - connected
	ErrorColor   = lipgloss.Color("#FF5555") // Red - alarms, errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - silenced alarms, reconnecting
	InfoColor    = lipgloss.Color("#4FA3F7") // Blue - line tests
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 120 // Maximum content width before capping
	DefaultHeight    = 24
)

var (
	HeaderTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true).
				PaddingLeft(2)

	HeaderCommandStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	HeaderParamKeyStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	HeaderParamValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	ConnectedStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	DisconnectedStyle = lipgloss.NewStyle().
				Foreground(WarningColor).
				Bold(true)

	// AlarmBannerStyle is shown while the gateway reports an active alarm
	AlarmBannerStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(ErrorColor).
				Bold(true).
				Padding(0, 2)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	RowStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	HexStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	CountStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	DetailKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(16)

	DetailValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	HelpStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2)
)

// Connection markers
const (
	ConnectedMarker    = "●"
	DisconnectedMarker = "○"
	FailureMarker      = "✗"
)

// classColors maps packet descriptor classes to colors.
var classColors = map[string]lipgloss.Color{
	"type-comissioning":       PrimaryColor,
	"type-discovery-request":  MutedColor,
	"type-discovery-response": MutedColor,
	"type-linetest-start":     InfoColor,
	"type-linetest-stop":      InfoColor,
	"type-alarm-start":        ErrorColor,
	"type-alarm-stop":         WarningColor,
}

// PacketNameStyle returns the style for a packet descriptor class. Unknown
// classes and unclassified packets are rendered muted.
func PacketNameStyle(class string) lipgloss.Style {
	color, ok := classColors[class]
	if !ok {
		color = MutedColor
	}
	return lipgloss.NewStyle().Foreground(color).Bold(ok)
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _ := GetTerminalSize()
	return width
}

// GetTerminalSize returns the current terminal width and height
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, DefaultHeight
	}
	return clampWidth(width), height
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// BoxStyle returns the rounded border style used for headers and details
func BoxStyle(width int, color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(width - 2) // Account for border characters
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int, char string) string {
	if width < 0 {
		width = 0
	}
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat(char, width))
}
