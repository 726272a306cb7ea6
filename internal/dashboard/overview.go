package dashboard

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fdwatch/fdwatch/internal/chart"
)

const (
	pieBarWidth   = 24
	stepLabelSize = 10
	legendColumns = 3
)

func (m Model) renderOverview(width int) string {
	snap := m.session.Metric()
	if snap == nil {
		if m.session.Polling() {
			return MutedStyle.Render("Loading overview...")
		}
		return MutedStyle.Render("No performance data yet. Press r to refresh.")
	}

	left := renderPie("Host time by model", chart.ToPieSeries(snap.Model))
	right := renderPie("Time by device", chart.ToPieSeries(snap.Device))
	if dev := chart.DeviceTimingPie(snap.Model); len(dev) > 0 {
		right += "\n\n" + renderPie("Device time by model", dev)
	}

	colWidth := width / 2
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(colWidth).Render(left),
		lipgloss.NewStyle().Width(width-colWidth).Render(right),
	)

	if !m.expandOpen {
		return top + "\n\n" + MutedStyle.Render("Press e for per-step timing.")
	}
	return top + "\n\n" + m.renderSteps(width)
}

// renderPie draws a pie as a list of proportional bars. Proportions are the
// server's percentages and are not renormalised.
func renderPie(title string, series []chart.PieSegment) string {
	lines := []string{SectionTitleStyle.Render(title)}
	if len(series) == 0 {
		return lines[0] + "\n" + MutedStyle.Render("  nothing reported")
	}

	nameWidth := 0
	for _, s := range series {
		if w := lipgloss.Width(s.Name); w > nameWidth {
			nameWidth = w
		}
	}
	if nameWidth > 20 {
		nameWidth = 20
	}

	for i, s := range series {
		color := PaletteColor(i)
		name := lipgloss.NewStyle().Width(nameWidth).Render(truncate(s.Name, nameWidth))
		lines = append(lines, fmt.Sprintf("  %s %s %s %s",
			lipgloss.NewStyle().Foreground(color).Render("●"),
			name,
			ProgressBar(pieBarWidth, s.Proportion, color),
			LabelStyle.Render(fmt.Sprintf("%5.1f%% %s", s.Proportion, formatMillis(s.Value))),
		))
	}

	if sum := chart.ProportionSum(series); math.Abs(sum-100) > 1 {
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("  shares add up to %.1f%%", sum)))
	}
	return strings.Join(lines, "\n")
}

// renderSteps draws one horizontal stacked bar per step, scaled to the
// largest step total.
func (m Model) renderSteps(width int) string {
	title := SectionTitleStyle.Render(fmt.Sprintf("Per-step timing (%s, top %d)", m.device, m.topK))

	exp := m.session.Expanded()
	if exp == nil || m.expandedDevice != m.device {
		return title + "\n" + MutedStyle.Render("Loading step timing...")
	}

	series := chart.ToStackedSeries(exp)
	totals := chart.StepTotals(series)
	if len(series) == 0 || len(totals) == 0 {
		return title + "\n" + MutedStyle.Render("No step timing reported.")
	}

	peak := 0.0
	for _, t := range totals {
		peak = math.Max(peak, t)
	}

	barWidth := width - stepLabelSize - 14
	if barWidth < 10 {
		barWidth = 10
	}

	lines := []string{title}
	for step := range totals {
		label := fmt.Sprintf("%d", step)
		if step < len(exp.Steps) {
			label = exp.Steps[step]
		}
		label = lipgloss.NewStyle().Width(stepLabelSize).Render(truncate(label, stepLabelSize))
		lines = append(lines, fmt.Sprintf("%s %s %s",
			label,
			stackedBar(series, step, peak, barWidth),
			LabelStyle.Render(formatMillis(totals[step])),
		))
	}

	lines = append(lines, "", renderLegend(series))
	return strings.Join(lines, "\n")
}

func stackedBar(series []chart.StackedSeries, step int, peak float64, width int) string {
	if peak <= 0 {
		return MutedStyle.Render(strings.Repeat("─", width))
	}

	var b strings.Builder
	used := 0
	for _, s := range series {
		if step >= len(s.Values) || s.Values[step] <= 0 {
			continue
		}
		cells := int(math.Round(s.Values[step] / peak * float64(width)))
		if cells > width-used {
			cells = width - used
		}
		if cells <= 0 {
			continue
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render(strings.Repeat("█", cells)))
		used += cells
	}
	b.WriteString(strings.Repeat(" ", width-used))
	return b.String()
}

func renderLegend(series []chart.StackedSeries) string {
	var rows []string
	var row []string
	for _, s := range series {
		row = append(row, fmt.Sprintf("%s %s",
			lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("█"),
			lipgloss.NewStyle().Width(22).Render(truncate(s.Name, 22))))
		if len(row) == legendColumns {
			rows = append(rows, strings.Join(row, " "))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, strings.Join(row, " "))
	}
	return strings.Join(rows, "\n")
}
