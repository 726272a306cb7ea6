package dashboard

import (
	"fmt"
	"strings"
)

// Mode is the active view.
type Mode int

const (
	ModeLog Mode = iota
	ModePerformance
	ModeConfig
	ModeOverview
)

var modeNames = [...]string{"log", "performance", "config", "overview"}

// Modes lists every view in tab order.
var Modes = []Mode{ModeLog, ModePerformance, ModeConfig, ModeOverview}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Title is the tab label.
func (m Mode) Title() string {
	return strings.ToUpper(m.String())
}

// Next cycles forward through the views.
func (m Mode) Next() Mode {
	return Mode((int(m) + 1) % len(Modes))
}

// Prev cycles backward through the views.
func (m Mode) Prev() Mode {
	return Mode((int(m) + len(Modes) - 1) % len(Modes))
}

// ParseMode maps a name such as "performance" or "perf" to a Mode. An
// empty name is ModeLog.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "log", "logs":
		return ModeLog, nil
	case "performance", "perf":
		return ModePerformance, nil
	case "config", "configuration":
		return ModeConfig, nil
	case "overview":
		return ModeOverview, nil
	}
	return ModeLog, fmt.Errorf("unknown mode %q (want log, performance, config or overview)", s)
}
