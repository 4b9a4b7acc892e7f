package presentation

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#9CA0B0", Dark: "#696969"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BBBBBB"}

	AdditionColor  = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	DeletionColor  = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	ConflictColor  = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	HunkColor      = lipgloss.AdaptiveColor{Light: "#179299", Dark: "#94E2D5"}
	HeadColor      = lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"}
	BranchColor    = lipgloss.AdaptiveColor{Light: "#40A02B", Dark: "#A6E3A1"}
	RemoteColor    = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}
	TagColor       = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"}
	HighlightAddBg = lipgloss.AdaptiveColor{Light: "#C8F0D2", Dark: "#1F4D2C"}
	HighlightDelBg = lipgloss.AdaptiveColor{Light: "#F8D0D0", Dark: "#5C1F24"}
)

// laneColors cycles per graph column (Catppuccin accents).
var laneColors = []lipgloss.AdaptiveColor{
	{Light: "#1E66F5", Dark: "#89B4FA"}, // blue
	{Light: "#40A02B", Dark: "#A6E3A1"}, // green
	{Light: "#FE640B", Dark: "#FAB387"}, // peach
	{Light: "#8839EF", Dark: "#CBA6F7"}, // mauve
	{Light: "#179299", Dark: "#94E2D5"}, // teal
	{Light: "#D20F39", Dark: "#F38BA8"}, // red
	{Light: "#DF8E1D", Dark: "#F9E2AF"}, // yellow
}

var (
	MutedStyle     = lipgloss.NewStyle().Foreground(TextMutedColor)
	SecondaryStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor)
	BoldStyle      = lipgloss.NewStyle().Bold(true)

	AdditionStyle = lipgloss.NewStyle().Foreground(AdditionColor)
	DeletionStyle = lipgloss.NewStyle().Foreground(DeletionColor)
	ConflictStyle = lipgloss.NewStyle().Foreground(ConflictColor).Bold(true)
	HunkStyle     = lipgloss.NewStyle().Foreground(HunkColor)

	WordAddStyle = lipgloss.NewStyle().Foreground(AdditionColor).Background(HighlightAddBg).Bold(true)
	WordDelStyle = lipgloss.NewStyle().Foreground(DeletionColor).Background(HighlightDelBg).Bold(true)

	HeadRefStyle   = lipgloss.NewStyle().Foreground(HeadColor).Bold(true)
	BranchRefStyle = lipgloss.NewStyle().Foreground(BranchColor).Bold(true)
	RemoteRefStyle = lipgloss.NewStyle().Foreground(RemoteColor)
	TagRefStyle    = lipgloss.NewStyle().Foreground(TagColor).Bold(true)
)

// LaneStyle returns the style of graph column color.
func LaneStyle(color int) lipgloss.Style {
	if color < 0 {
		color = -color
	}
	return lipgloss.NewStyle().Foreground(laneColors[color%len(laneColors)])
}

// TruncateString truncates a string to fit within maxWidth, adding ellipsis if needed.
func TruncateString(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}

	var b strings.Builder
	for _, r := range s {
		if lipgloss.Width(b.String()+string(r)) > maxWidth-3 {
			break
		}
		b.WriteRune(r)
	}
	return b.String() + "..."
}
