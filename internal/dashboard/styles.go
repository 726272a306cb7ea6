package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fdwatch/fdwatch/internal/chart"
)

// Dashboard colors.
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorHealthy  = lipgloss.Color("#00CC88")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#D50505")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent    = lipgloss.Color("#2932E1")
	ColorAccentDim = lipgloss.Color("#066BFF")
)

// Utilization thresholds, percent.
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary).
			Padding(0, 2)

	ActiveTabStyle = TabStyle.
			Foreground(ColorTextPrimary).
			Background(ColorAccent).
			Bold(true)

	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(ColorAccentDim).
				Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	AliveStyle = lipgloss.NewStyle().
			Foreground(ColorHealthy)

	DeadStyle = lipgloss.NewStyle().
			Foreground(ColorCritical)

	ToastStyle = lipgloss.NewStyle().
			Foreground(ColorDarkBg).
			Background(ColorHealthy).
			Padding(0, 1)

	ToastErrorStyle = ToastStyle.
			Foreground(ColorTextPrimary).
			Background(ColorCritical)
)

// Status glyphs.
const (
	StatusAlive = "◉"
	StatusDead  = "◌"
)

// MetricColor maps a utilization percentage to a severity color.
func MetricColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalThreshold:
		return ColorCritical
	case percent >= WarningThreshold:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// PaletteColor is the chart palette entry for series index i.
func PaletteColor(i int) lipgloss.Color {
	return lipgloss.Color(chart.ColorAt(i))
}

// ProgressBar renders a bar of width cells filled to percent (0-100).
func ProgressBar(width int, percent float64, color lipgloss.Color) string {
	if width < 1 {
		width = 1
	}
	filled := clampInt(int(clampPercent(percent)/100*float64(width)), width)

	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("━", filled)) +
		MutedStyle.Render(strings.Repeat("─", width-filled))
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func clampInt(val, maxVal int) int {
	if val < 0 {
		return 0
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
