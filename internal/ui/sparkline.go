package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Eight levels, lowest first.
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// Utilization thresholds, percent.
const (
	WarnPercent     = 70.0
	CriticalPercent = 90.0
)

// RenderSparkline draws the most recent width samples as block characters,
// scaled between the min and max of what is shown. The color follows the
// last sample: green below 70%, amber below 90%, red above.
func RenderSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	data = lastN(data, width)

	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return renderSpark(data, lo, hi)
}

// RenderPercentSparkline is RenderSparkline on a fixed 0-100 scale, so a
// flat 5% line sits at the bottom instead of the middle.
func RenderPercentSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	return renderSpark(lastN(data, width), 0, 100)
}

func lastN(data []float64, n int) []float64 {
	if len(data) > n {
		return data[len(data)-n:]
	}
	return data
}

func renderSpark(data []float64, lo, hi float64) string {
	levels := len(sparklineBlockRunes)
	span := hi - lo

	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for _, v := range data {
		level := levels / 2
		if span > 0 {
			level = int((v - lo) / span * float64(levels-1))
			level = max(0, min(level, levels-1))
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}

	return lipgloss.NewStyle().Foreground(ThresholdColor(data[len(data)-1])).Render(sb.String())
}

// ThresholdColor maps a utilization percentage to a status color.
func ThresholdColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalPercent:
		return ColorError
	case percent >= WarnPercent:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
