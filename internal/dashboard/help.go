package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorAccentDim).
			Bold(true).
			Width(12)
)

// renderHelpOverlay renders the key reference centered on screen.
func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(SectionTitleStyle.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")

	for _, binding := range m.keys.helpBindings() {
		h := binding.Help()
		b.WriteString(fmt.Sprintf("%s %s\n", helpKeyStyle.Render(h.Key), LabelStyle.Render(h.Desc)))
	}
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("Press ? or esc to close"))

	box := helpBoxStyle.Render(b.String())
	if m.width <= 0 || m.height <= 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
