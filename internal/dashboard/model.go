package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"

	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/logger"
	"github.com/fdwatch/fdwatch/internal/telemetry"
)

// ToastDuration is how long a notification stays on screen.
const ToastDuration = 2 * time.Second

// MaxTopK bounds the series count requested for the stacked chart.
const MaxTopK = 20

// Layout rows outside the active view: header, tabs, blank line above the
// body, and the toast and footer lines below it.
const (
	chromeTop    = 3
	chromeBottom = 2
)

// Opener opens a URL outside the terminal.
type Opener func(url string) error

// Options configure New.
type Options struct {
	// ServerID is the id the API knows the server by.
	ServerID string

	// Label is shown in the header; defaults to ServerID.
	Label string

	Mode     Mode
	Interval time.Duration

	// Device and TopK seed the overview step chart.
	Device string
	TopK   int

	// Refresher runs every fetch. Required.
	Refresher *telemetry.Refresher

	// Open defaults to the system browser.
	Open Opener

	Logger logger.Logger
}

type tickMsg time.Time

type refreshMsg telemetry.Result

type configMsg telemetry.ConfigResult

// expandedMsg remembers the parameters it was requested with, so a result
// that was overtaken by a device or topK change can be recognised.
type expandedMsg struct {
	result telemetry.ExpandedResult
	device string
	topK   int
}

type openedMsg struct {
	url string
	err error
}

type toastClearMsg struct{ id int }

type toast struct {
	id    int
	text  string
	isErr bool
}

// Model is the bubbletea model for one server's dashboard.
type Model struct {
	serverID  string
	label     string
	session   *telemetry.Session
	refresher *telemetry.Refresher
	open      Opener
	log       logger.Logger
	keys      KeyMap

	// ctx is cancelled on Close so in-flight fetches return promptly.
	ctx    context.Context
	cancel context.CancelFunc

	mode     Mode
	interval time.Duration
	width    int
	height   int
	showHelp bool
	quitting bool

	toast    toast
	toastSeq int

	logView  viewport.Model
	logShown int

	configTable table.Model
	configShown *telemetry.ServerConfig

	history *History

	expandOpen     bool
	device         string
	topK           int
	expandedDevice string
}

// New creates a dashboard with a fresh session for opts.ServerID.
func New(opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = telemetry.DefaultInterval
	}
	if opts.Label == "" {
		opts.Label = opts.ServerID
	}
	if opts.Device == "" {
		opts.Device = "gpu"
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.TopK > MaxTopK {
		opts.TopK = MaxTopK
	}
	if opts.Open == nil {
		opts.Open = browser.OpenURL
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		serverID:    opts.ServerID,
		label:       opts.Label,
		session:     telemetry.NewSession(opts.ServerID),
		refresher:   opts.Refresher,
		open:        opts.Open,
		log:         opts.Logger,
		keys:        DefaultKeyMap,
		ctx:         ctx,
		cancel:      cancel,
		mode:        opts.Mode,
		interval:    opts.Interval,
		logView:     viewport.New(80, 20),
		configTable: newConfigTable(),
		history:     NewHistory(DefaultHistorySize),
		device:      opts.Device,
		topK:        opts.TopK,
	}
}

// Session exposes the session backing the dashboard.
func (m Model) Session() *telemetry.Session { return m.session }

// Mode returns the active view.
func (m Model) Mode() Mode { return m.mode }

// Init starts the refresh timer, the first poll and whatever the initial
// view needs.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.startRefresh(false),
		m.enterCmd(m.mode),
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tickMsg:
		if m.session.Closed() {
			return m, nil
		}
		cmds := []tea.Cmd{m.tickCmd(), m.startRefresh(false)}
		if m.mode == ModeOverview && m.expandOpen {
			cmds = append(cmds, m.startExpanded())
		}
		return m, tea.Batch(cmds...)

	case refreshMsg:
		return m.applyRefresh(telemetry.Result(msg))

	case configMsg:
		r := telemetry.ConfigResult(msg)
		if !m.session.ApplyConfig(r.Ticket, r.Config, r.Err) {
			m.log.Debug("dropped stale config result seq %d", r.Ticket.Seq)
			return m, nil
		}
		m.syncConfig()
		if r.Ticket.Explicit && r.Err != nil {
			cmd := m.showToast(fmt.Sprintf("%s config refresh failed: %s", m.serverID, errors.OneLine(r.Err)), true)
			return m, cmd
		}

	case expandedMsg:
		return m.applyExpanded(msg)

	case openedMsg:
		var cmd tea.Cmd
		if msg.err != nil {
			cmd = m.showToast(fmt.Sprintf("couldn't open %s: %s", msg.url, errors.OneLine(msg.err)), true)
		} else {
			cmd = m.showToast("opened "+msg.url, false)
		}
		return m, cmd

	case toastClearMsg:
		if msg.id == m.toast.id {
			m.toast = toast{}
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// Close tears the dashboard down: in-flight fetches are cancelled, the
// session drops its buffers and late results are ignored.
func (m *Model) Close() {
	if m.quitting {
		return
	}
	m.quitting = true
	m.cancel()
	m.session.Close()
	m.history.Clear()
	m.logView.SetContent("")
	m.logShown = 0
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys

	switch {
	case key.Matches(msg, k.Quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case m.showHelp:
		if key.Matches(msg, k.Close) {
			m.showHelp = false
		}
		return m, nil
	case key.Matches(msg, k.Log):
		return m.switchMode(ModeLog)
	case key.Matches(msg, k.Performance):
		return m.switchMode(ModePerformance)
	case key.Matches(msg, k.Config):
		return m.switchMode(ModeConfig)
	case key.Matches(msg, k.Overview):
		return m.switchMode(ModeOverview)
	case key.Matches(msg, k.NextTab):
		return m.switchMode(m.mode.Next())
	case key.Matches(msg, k.PrevTab):
		return m.switchMode(m.mode.Prev())
	case key.Matches(msg, k.Refresh):
		return m, m.refreshNow()
	case key.Matches(msg, k.Open):
		return m, m.openCmd()
	}

	switch m.mode {
	case ModeOverview:
		return m.handleOverviewKey(msg)
	case ModeLog:
		if key.Matches(msg, k.Follow) {
			m.logView.GotoBottom()
			return m, nil
		}
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	case ModeConfig:
		var cmd tea.Cmd
		m.configTable, cmd = m.configTable.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleOverviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	changed := false

	switch {
	case key.Matches(msg, k.Expand):
		m.expandOpen = !m.expandOpen
		changed = m.expandOpen
	case key.Matches(msg, k.Device):
		if m.device == "gpu" {
			m.device = "cpu"
		} else {
			m.device = "gpu"
		}
		changed = true
	case key.Matches(msg, k.MoreSeries):
		if m.topK < MaxTopK {
			m.topK++
			changed = true
		}
	case key.Matches(msg, k.FewerSeries):
		if m.topK > 1 {
			m.topK--
			changed = true
		}
	}

	if changed && m.expandOpen {
		return m, m.startExpanded()
	}
	return m, nil
}

// switchMode changes the view and starts whatever fetch the new view
// needs. Entering PERFORMANCE or OVERVIEW fetches the metric only when no
// snapshot exists yet; entering CONFIG fetches only when nothing is
// cached.
func (m Model) switchMode(next Mode) (tea.Model, tea.Cmd) {
	if next == m.mode {
		return m, nil
	}
	m.mode = next
	return m, m.enterCmd(next)
}

func (m Model) enterCmd(mode Mode) tea.Cmd {
	switch mode {
	case ModePerformance, ModeOverview:
		var cmds []tea.Cmd
		if m.session.Metric() == nil {
			cmds = append(cmds, m.startMetric())
		}
		if mode == ModeOverview && m.expandOpen {
			cmds = append(cmds, m.startExpanded())
		}
		return tea.Batch(cmds...)
	case ModeConfig:
		if m.session.NeedsConfig() {
			return m.startConfig(false)
		}
	}
	return nil
}

// refreshNow is the explicit refresh: the polling pair, plus the config
// or step chart when that view is showing.
func (m Model) refreshNow() tea.Cmd {
	cmds := []tea.Cmd{m.startRefresh(true)}
	switch {
	case m.mode == ModeConfig:
		cmds = append(cmds, m.startConfig(true))
	case m.mode == ModeOverview && m.expandOpen:
		cmds = append(cmds, m.startExpanded())
	}
	return tea.Batch(cmds...)
}

func (m Model) applyRefresh(r telemetry.Result) (tea.Model, tea.Cmd) {
	out := m.session.Apply(r)
	if !out.Applied {
		m.log.Debug("dropped stale %s result seq %d", r.Ticket.Kind, r.Ticket.Seq)
		return m, nil
	}

	if out.Chunk != "" {
		m.syncLog()
	}
	if out.MetricUpdated {
		m.history.Push(m.session.Metric())
	}

	var cmds []tea.Cmd
	if r.Ticket.Explicit {
		if out.Err != nil {
			cmds = append(cmds, m.showToast(fmt.Sprintf("%s refresh failed: %s", m.serverID, errors.OneLine(out.Err)), true))
		} else {
			cmds = append(cmds, m.showToast(fmt.Sprintf("%s updated log and performance data", m.serverID), false))
		}
	}
	if out.RunQueued {
		cmds = append(cmds, m.startRefresh(true))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) applyExpanded(msg expandedMsg) (tea.Model, tea.Cmd) {
	overtaken := msg.device != m.device || msg.topK != m.topK

	exp := msg.result.Expanded
	if overtaken {
		exp = nil
	}
	if !m.session.ApplyExpanded(msg.result.Ticket, exp, msg.result.Err) {
		return m, nil
	}
	if exp != nil && msg.result.Err == nil {
		m.expandedDevice = msg.device
	}
	if overtaken && m.expandOpen {
		return m, m.startExpanded()
	}
	return m, nil
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) startRefresh(explicit bool) tea.Cmd {
	t, ok := m.session.Begin(telemetry.KindRefresh, explicit)
	if !ok {
		return nil
	}
	ctx, r, id := m.ctx, m.refresher, m.serverID
	return func() tea.Msg {
		return refreshMsg(r.Run(ctx, id, t))
	}
}

func (m Model) startMetric() tea.Cmd {
	t, ok := m.session.Begin(telemetry.KindMetric, false)
	if !ok {
		return nil
	}
	ctx, r, id := m.ctx, m.refresher, m.serverID
	return func() tea.Msg {
		return refreshMsg(r.Run(ctx, id, t))
	}
}

func (m Model) startConfig(force bool) tea.Cmd {
	t, ok := m.session.BeginConfig(force)
	if !ok {
		return nil
	}
	ctx, r, id := m.ctx, m.refresher, m.serverID
	return func() tea.Msg {
		return configMsg(r.Config(ctx, id, t))
	}
}

func (m Model) startExpanded() tea.Cmd {
	t, ok := m.session.BeginExpanded()
	if !ok {
		return nil
	}
	ctx, r, id, device, topK := m.ctx, m.refresher, m.serverID, m.device, m.topK
	return func() tea.Msg {
		return expandedMsg{result: r.Expanded(ctx, id, t, device, topK), device: device, topK: topK}
	}
}

func (m Model) openCmd() tea.Cmd {
	url := m.refresher.Source.ClientURL(m.serverID)
	open := m.open
	return func() tea.Msg {
		return openedMsg{url: url, err: open(url)}
	}
}

func (m *Model) showToast(text string, isErr bool) tea.Cmd {
	m.toastSeq++
	m.toast = toast{id: m.toastSeq, text: text, isErr: isErr}
	id := m.toastSeq
	return tea.Tick(ToastDuration, func(time.Time) tea.Msg {
		return toastClearMsg{id: id}
	})
}

// syncLog pushes new log text into the viewport, staying on the tail
// unless the user has scrolled up.
func (m *Model) syncLog() {
	buf := m.session.Log()
	if buf.Len() == m.logShown {
		return
	}
	atBottom := m.logView.AtBottom()
	m.logView.SetContent(buf.Text())
	m.logShown = buf.Len()
	if atBottom {
		m.logView.GotoBottom()
	}
}

func (m *Model) syncConfig() {
	cfg, _ := m.session.Config()
	if cfg == nil || cfg == m.configShown {
		return
	}
	m.configShown = cfg
	m.configTable.SetRows(configRows(cfg))
	m.configTable.GotoTop()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	body := height - chromeTop - chromeBottom
	if body < 1 {
		body = 1
	}

	atBottom := m.logView.AtBottom()
	m.logView.Width = width
	m.logView.Height = body
	if atBottom {
		m.logView.GotoBottom()
	}

	m.configTable.SetWidth(width)
	m.configTable.SetHeight(configTableHeight(body))
}
