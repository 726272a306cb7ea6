package dashboard

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard key bindings.
type KeyMap struct {
	Log         key.Binding
	Performance key.Binding
	Config      key.Binding
	Overview    key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding

	Refresh key.Binding
	Open    key.Binding

	// Overview detail panel.
	Expand      key.Binding
	Device      key.Binding
	MoreSeries  key.Binding
	FewerSeries key.Binding

	Follow key.Binding
	Help   key.Binding
	Close  key.Binding
	Quit   key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Log:         key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "log view")),
	Performance: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "performance view")),
	Config:      key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "config view")),
	Overview:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "overview")),
	NextTab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	PrevTab:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous view")),

	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh now")),
	Open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open client in browser")),

	Expand:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "expand step chart (overview)")),
	Device:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "toggle cpu / gpu (overview)")),
	MoreSeries:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more series (overview)")),
	FewerSeries: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "fewer series (overview)")),

	Follow: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "follow log tail")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle this help")),
	Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close help")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// helpBindings is the order shown in the help overlay.
func (k KeyMap) helpBindings() []key.Binding {
	return []key.Binding{
		k.Log, k.Performance, k.Config, k.Overview, k.NextTab,
		k.Refresh, k.Open,
		k.Expand, k.Device, k.MoreSeries, k.FewerSeries,
		k.Follow, k.Help, k.Quit,
	}
}
