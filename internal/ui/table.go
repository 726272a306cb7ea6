package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a bubbles table with the shared styling. Height fits
// the rows; callers that scroll set it afterwards.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	s.Selected = s.Selected.
		Foreground(ColorPrimary).
		Background(ColorSecondary).
		Bold(false)

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table for plain CLI output.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View()
}

// ServerRow is one line of the `servers` listing.
type ServerRow struct {
	Alias   string
	ID      string
	Mode    string
	Status  string // "up", "down" or "" when not probed
	Detail  string // latency or error
	Default bool
}

// RenderServerTable renders configured servers with their probe result.
// The default server is marked with an asterisk.
func RenderServerTable(rows []ServerRow) string {
	if len(rows) == 0 {
		return "No servers configured"
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)

	var b strings.Builder
	b.WriteString(header.Render("  " + padRight("", 3) + padRight("ALIAS", 18) + padRight("ID", 26) + padRight("MODE", 12) + "STATUS"))
	b.WriteString("\n")

	for _, row := range rows {
		var icon, detail string
		switch row.Status {
		case "up":
			icon = SuccessStyle().Render(SymbolComplete)
			detail = MutedStyle().Render(row.Detail)
		case "down":
			icon = ErrorStyle().Render(SymbolFail)
			detail = ErrorStyle().Render(row.Detail)
		default:
			icon = MutedStyle().Render(SymbolPending)
			detail = MutedStyle().Render(row.Detail)
		}

		alias := row.Alias
		if row.Default {
			alias = lipgloss.NewStyle().Bold(true).Render(alias + " *")
		}

		b.WriteString("  " + padRight(icon, 3) + padRight(alias, 18) + padRight(row.ID, 26) + padRight(row.Mode, 12) + detail)
		b.WriteString("\n")
	}
	return b.String()
}

// padRight pads s to width visible cells.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s + " "
}
