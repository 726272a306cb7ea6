// Package ui holds the styled terminal output shared by fdwatch's one-shot
// commands and the dashboard: colors, status symbols, sparklines, tables
// and a line spinner for slow fetches.
//
// Colors are ANSI codes so output follows the terminal theme. Call
// DisableColors for --no-color or when stdout is not a terminal.
//
//	s := ui.StartSpinner("Fetching metrics", isTerminal)
//	err := s.Track(fetch)
package ui
