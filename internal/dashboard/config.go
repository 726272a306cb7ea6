package dashboard

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"

	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/telemetry"
	"github.com/fdwatch/fdwatch/internal/ui"
)

var configColumns = []ui.TableColumn{
	{Title: "MODEL", Width: 28},
	{Title: "BACKEND", Width: 14},
	{Title: "MAX BATCH", Width: 10},
	{Title: "INSTANCES", Width: 10},
	{Title: "INPUTS", Width: 7},
	{Title: "OUTPUTS", Width: 7},
}

func newConfigTable() table.Model {
	t := ui.NewTable(configColumns, nil)
	t.SetHeight(configTableHeight(20))
	t.Focus()
	return t
}

func configRows(cfg *telemetry.ServerConfig) []table.Row {
	rows := make([]table.Row, 0, len(cfg.Models))
	for _, md := range cfg.Models {
		rows = append(rows, table.Row{
			md.Name,
			orDash(md.Backend),
			intOrDash(md.MaxBatch),
			intOrDash(md.Instances),
			intOrDash(md.Inputs),
			intOrDash(md.Outputs),
		})
	}
	return rows
}

// configTableHeight gives the table roughly half the body and leaves the
// rest for the raw document.
func configTableHeight(body int) int {
	h := body / 2
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) renderConfig(width, height int) string {
	cfg, err := m.session.Config()

	if cfg == nil {
		switch {
		case m.session.ConfigLoading():
			return MutedStyle.Render("Loading configuration...")
		case err != nil:
			return DeadStyle.Render("Couldn't load configuration: "+errors.OneLine(err)) + "\n" +
				MutedStyle.Render("Press r to retry.")
		default:
			return MutedStyle.Render("No configuration loaded. Press r to fetch it.")
		}
	}

	if cfg.Empty() {
		return MutedStyle.Render("The server reported an empty configuration.")
	}

	var out string
	if err != nil {
		out = DeadStyle.Render("Refresh failed, showing cached configuration: "+errors.OneLine(err)) + "\n"
	}

	if len(cfg.Models) > 0 {
		out += SectionTitleStyle.Render(fmt.Sprintf("Models (%d)", len(cfg.Models))) + "\n"
		out += m.configTable.View() + "\n\n"
	}

	doc, yerr := cfg.YAML()
	if yerr != nil {
		return out + DeadStyle.Render("Couldn't render configuration: "+yerr.Error())
	}

	used := lineCount(out)
	out += SectionTitleStyle.Render("Raw") + "\n"
	out += ValueStyle.Render(clipLines(doc, height-used-1))
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intOrDash(n int) string {
	if n <= 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func lineCount(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
