package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/fdwatch/fdwatch/internal/errors"
)

// renderDashboard composes the full screen: header, tabs, the active
// view, the toast line and key hints.
func (m Model) renderDashboard() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.renderBody(width))
	b.WriteString("\n")
	b.WriteString(m.renderToast())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) bodyHeight() int {
	if m.height <= 0 {
		return 20
	}
	h := m.height - chromeTop - chromeBottom
	if h < 1 {
		return 1
	}
	return h
}

func (m Model) renderHeader(width int) string {
	s := m.session

	name := m.label
	if m.label != m.serverID {
		name = fmt.Sprintf("%s (%s)", m.label, m.serverID)
	}

	status := AliveStyle.Render(StatusAlive)
	if !s.Alive() {
		status = DeadStyle.Render(StatusDead + " unreachable")
	}

	parts := []string{status + " " + name}

	if updated := s.Updated(); !updated.IsZero() {
		parts = append(parts, "updated "+humanize.Time(updated))
	} else {
		parts = append(parts, "waiting for data")
	}
	parts = append(parts, "log "+humanize.Bytes(uint64(s.Log().Len())))
	if s.Polling() {
		parts = append(parts, "↻")
	}
	if err := s.LastError(); err != nil {
		parts = append(parts, DeadStyle.Render(truncate(errors.OneLine(err), width/2)))
	}

	return HeaderStyle.Width(width).Render(strings.Join(parts, "  "))
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(Modes))
	for i, mode := range Modes {
		label := fmt.Sprintf("%d %s", i+1, mode.Title())
		if mode == m.mode {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderBody(width int) string {
	height := m.bodyHeight()

	var body string
	switch m.mode {
	case ModeLog:
		body = m.renderLog()
	case ModePerformance:
		body = m.renderPerformance(width)
	case ModeConfig:
		body = m.renderConfig(width, height)
	case ModeOverview:
		body = m.renderOverview(width)
	}
	return lipgloss.NewStyle().Height(height).MaxHeight(height).Render(body)
}

func (m Model) renderLog() string {
	if m.session.Log().Empty() {
		return MutedStyle.Render("No log output yet.")
	}
	return m.logView.View()
}

func (m Model) renderToast() string {
	if m.toast.text == "" {
		return ""
	}
	if m.toast.isErr {
		return ToastErrorStyle.Render(m.toast.text)
	}
	return ToastStyle.Render(m.toast.text)
}

func (m Model) renderFooter() string {
	hints := []string{"1-4/tab views", "r refresh", "o open"}
	switch m.mode {
	case ModeLog:
		hints = append(hints, "↑↓ scroll", "G follow")
	case ModeConfig:
		hints = append(hints, "↑↓ select")
	case ModeOverview:
		hints = append(hints, "e steps", "d device", "+/- series")
	}
	hints = append(hints, "? help", "q quit")
	return FooterStyle.Render(strings.Join(hints, "  "))
}

// truncate shortens s to limit display cells, marking the cut.
func truncate(s string, limit int) string {
	if limit <= 1 || lipgloss.Width(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) > limit-1 {
		r = r[:limit-1]
	}
	return string(r) + "…"
}

func clipLines(s string, n int) string {
	if n < 1 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
