package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleLabel   = lipgloss.NewStyle().Foreground(colorGray).Width(18)
	styleValue   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
)

var styleBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorCyan).
	Padding(0, 2)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconStar    = "★"
)

func printTitle(s string) {
	fmt.Println()
	fmt.Println(styleBox.Render(styleTitle.Render(s)))
	fmt.Println()
}

func printKV(label string, value any) {
	fmt.Printf("  %s %s\n", styleLabel.Render(label), styleValue.Render(fmt.Sprint(value)))
}

func printSuccess(format string, args ...any) {
	fmt.Printf("  %s %s\n", styleSuccess.Render(iconSuccess), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Printf("  %s %s\n", styleWarning.Render(iconWarning), fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Printf("  %s %s\n", styleError.Render(iconError), fmt.Sprintf(format, args...))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatSavings prints savings with one decimal, "+" prefixed when positive.
func formatSavings(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.1f%%", v)
	}
	return fmt.Sprintf("%.1f%%", v)
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}

var sparkLevels = []rune(" ▁▂▃▄▅▆▇█")

// sparkline renders relative heights (0-100) as one row of block glyphs.
func sparkline(heights []float64) string {
	var b strings.Builder
	top := len(sparkLevels) - 1
	for _, h := range heights {
		i := int(h / 100 * float64(top))
		if h > 0 && i == 0 {
			i = 1
		}
		if i > top {
			i = top
		}
		b.WriteRune(sparkLevels[i])
	}
	return b.String()
}
