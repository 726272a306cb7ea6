package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorsAreANSI(t *testing.T) {
	colors := []lipgloss.Color{
		ColorSuccess, ColorError, ColorWarning, ColorInfo,
		ColorPrimary, ColorSecondary, ColorMuted,
	}
	seen := make(map[lipgloss.Color]bool)
	for _, c := range colors {
		assert.Regexp(t, `^[0-9]{1,2}$`, string(c))
		assert.False(t, seen[c], "color %s used twice", c)
		seen[c] = true
	}
}

func TestStylesRenderText(t *testing.T) {
	for name, style := range map[string]lipgloss.Style{
		"success": SuccessStyle(),
		"error":   ErrorStyle(),
		"warning": WarningStyle(),
		"info":    InfoStyle(),
		"muted":   MutedStyle(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, style.Render("text"), "text")
		})
	}
}

func TestDisableColors(t *testing.T) {
	orig := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(orig) })

	lipgloss.SetColorProfile(termenv.ANSI256)
	DisableColors()

	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile())
	assert.Equal(t, "plain", SuccessStyle().Render("plain"))
}

func TestPrintWarning(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stderr
	os.Stderr = w
	PrintWarning("server s1 has no alias")
	os.Stderr = orig
	require.NoError(t, w.Close())

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "server s1 has no alias")
	assert.Contains(t, buf.String(), SymbolWarning)
}
