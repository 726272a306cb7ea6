package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/fdwatch/fdwatch/internal/chart"
	"github.com/fdwatch/fdwatch/internal/ui"
)

const (
	ratioBarWidth = 10
	sparkWidth    = 20
)

func (m Model) renderPerformance(width int) string {
	snap := m.session.Metric()
	if snap == nil {
		if m.session.Polling() {
			return MutedStyle.Render("Loading performance data...")
		}
		return MutedStyle.Render("No performance data yet. Press r to refresh.")
	}

	var sections []string

	sections = append(sections, SectionTitleStyle.Render("Models"))
	if len(snap.Model) == 0 {
		sections = append(sections, MutedStyle.Render("  no model statistics reported"))
	} else {
		sections = append(sections, renderModelTable(snap.Model, width))
	}

	sections = append(sections, "", SectionTitleStyle.Render("Devices"))
	if len(snap.Device) == 0 {
		sections = append(sections, MutedStyle.Render("  no device statistics reported"))
	} else {
		sections = append(sections, m.renderDeviceTable(snap.Device, width))
	}

	if len(snap.Malformed) > 0 {
		sections = append(sections, "", DeadStyle.Render(
			fmt.Sprintf("could not decode: %s", strings.Join(snap.Malformed, ", "))))
	}

	return strings.Join(sections, "\n")
}

func renderModelTable(models []chart.ModelStats, width int) string {
	rows := make([][]string, 0, len(models))
	for _, md := range models {
		device := "-"
		if md.Device != nil {
			device = formatMillis(md.Device.Avg)
		}
		rows = append(rows, []string{
			md.Name,
			humanize.Comma(md.Host.Calls),
			formatMillis(md.Host.Avg),
			formatMillis(md.Host.Min),
			formatMillis(md.Host.Max),
			device,
			ProgressBar(ratioBarWidth, md.Host.Ratio, ColorAccentDim) + fmt.Sprintf(" %5.1f%%", md.Host.Ratio),
		})
	}

	return newStatTable(width).
		Headers("MODEL", "CALLS", "AVG", "MIN", "MAX", "DEVICE AVG", "SHARE").
		Rows(rows...).
		Render()
}

func (m Model) renderDeviceTable(devices []chart.DeviceStats, width int) string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		util := ProgressBar(ratioBarWidth, d.Utilization, MetricColor(d.Utilization)) +
			fmt.Sprintf(" %5.1f%%", d.Utilization)

		trend := ui.RenderPercentSparkline(m.history.Utilization(d.Name, sparkWidth), sparkWidth)
		if trend == "" {
			trend = MutedStyle.Render("-")
		}

		rows = append(rows, []string{
			d.Name,
			util,
			trend,
			formatMemory(d),
			formatPower(d),
			fmt.Sprintf("%5.1f%%", d.Ratio),
		})
	}

	return newStatTable(width).
		Headers("DEVICE", "UTIL", "TREND", "MEMORY", "POWER", "SHARE").
		Rows(rows...).
		Render()
}

func newStatTable(width int) *ltable.Table {
	return ltable.New().
		Border(lipgloss.HiddenBorder()).
		BorderHeader(false).
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return LabelStyle.Bold(true).PaddingRight(1)
			}
			return ValueStyle.PaddingRight(1)
		})
}

func formatMillis(ms float64) string {
	switch {
	case ms <= 0:
		return "0ms"
	case ms >= 1000:
		return fmt.Sprintf("%.2fs", ms/1000)
	case ms < 1:
		return fmt.Sprintf("%.0fµs", ms*1000)
	default:
		return fmt.Sprintf("%.1fms", ms)
	}
}

func formatMemory(d chart.DeviceStats) string {
	if d.MemoryTotal <= 0 {
		if d.MemoryUsed <= 0 {
			return "-"
		}
		return humanize.IBytes(uint64(d.MemoryUsed))
	}
	return fmt.Sprintf("%s / %s (%.0f%%)",
		humanize.IBytes(uint64(d.MemoryUsed)),
		humanize.IBytes(uint64(d.MemoryTotal)),
		d.MemoryRatio()*100)
}

func formatPower(d chart.DeviceStats) string {
	switch {
	case d.PowerLimit > 0:
		return fmt.Sprintf("%.0fW / %.0fW", d.PowerUsage, d.PowerLimit)
	case d.PowerUsage > 0:
		return fmt.Sprintf("%.0fW", d.PowerUsage)
	default:
		return "-"
	}
}
