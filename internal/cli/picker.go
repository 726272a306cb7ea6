package cli

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/huh"

	"github.com/fdwatch/fdwatch/internal/config"
	"github.com/fdwatch/fdwatch/internal/errors"
)

// serverChoice is one picker entry.
type serverChoice struct {
	ID      string
	Alias   string
	Label   string
	Running bool
}

// serverChoices merges the running ids with configured aliases. Running
// servers come first; configured servers that are not running are listed
// after them so they can still be picked.
func serverChoices(cfg *config.Config, running []string) []serverChoice {
	aliasFor := make(map[string]string)
	for _, alias := range cfg.ServerNames() {
		id := cfg.Servers[alias].ID
		if id == "" {
			id = alias
		}
		if _, ok := aliasFor[id]; !ok {
			aliasFor[id] = alias
		}
	}

	seen := make(map[string]bool)
	var out []serverChoice
	sorted := append([]string(nil), running...)
	sort.Strings(sorted)
	for _, id := range sorted {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, serverChoice{ID: id, Alias: aliasFor[id], Label: choiceLabel(id, aliasFor[id], true), Running: true})
	}

	for _, alias := range cfg.ServerNames() {
		id := cfg.Servers[alias].ID
		if id == "" {
			id = alias
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, serverChoice{ID: id, Alias: alias, Label: choiceLabel(id, alias, false)})
	}
	return out
}

func choiceLabel(id, alias string, running bool) string {
	label := id
	if alias != "" && alias != id {
		label = fmt.Sprintf("%s (%s)", alias, id)
	}
	if !running {
		label += " - not running"
	}
	return label
}

// pickServer asks the user to choose a server.
func pickServer(cfg *config.Config, running []string) (string, error) {
	choices := serverChoices(cfg, running)
	if len(choices) == 0 {
		return "", errors.New(errors.ErrConfig,
			"No servers are running",
			"Start a server through the serving API, or add one under 'servers' in .fdwatch.yaml")
	}
	if len(choices) == 1 {
		return choices[0].ID, nil
	}

	options := make([]huh.Option[string], len(choices))
	for i, c := range choices {
		options[i] = huh.NewOption(c.Label, c.ID)
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a server").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Server selection cancelled",
			"Pass the server id as an argument to skip the picker")
	}
	return selected, nil
}
