package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/fdwatch/fdwatch/internal/chart"
	"github.com/fdwatch/fdwatch/internal/config"
	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/ui"
)

// MetricsOptions holds the metrics command flags.
type MetricsOptions struct {
	JSON   bool
	Expand string // "", "cpu" or "gpu"
	TopK   int
}

// MetricsReport is the `metrics --json` payload.
type MetricsReport struct {
	Server    string                `json:"server"`
	Models    []ModelReport         `json:"models"`
	Devices   []DeviceReport        `json:"devices"`
	ModelPie  []chart.PieSegment    `json:"model_pie"`
	DevicePie []chart.PieSegment    `json:"device_pie"`
	Malformed []string              `json:"malformed,omitempty"`
	Steps     []string              `json:"steps,omitempty"`
	Stacked   []chart.StackedSeries `json:"stacked,omitempty"`
}

// ModelReport is one model's timings. Times are milliseconds.
type ModelReport struct {
	Name   string        `json:"name"`
	Host   TimingReport  `json:"host"`
	Device *TimingReport `json:"device,omitempty"`
}

// TimingReport mirrors chart.Timing.
type TimingReport struct {
	Calls int64   `json:"calls"`
	Total float64 `json:"total_ms"`
	Min   float64 `json:"min_ms"`
	Max   float64 `json:"max_ms"`
	Avg   float64 `json:"avg_ms"`
	Ratio float64 `json:"ratio"`
}

// DeviceReport is one device's usage.
type DeviceReport struct {
	Name        string  `json:"name"`
	TotalTime   float64 `json:"total_ms"`
	Ratio       float64 `json:"ratio"`
	Utilization float64 `json:"utilization"`
	MemoryUsed  float64 `json:"memory_used"`
	MemoryTotal float64 `json:"memory_total"`
	PowerUsage  float64 `json:"power_usage"`
	PowerLimit  float64 `json:"power_limit"`
	Energy      float64 `json:"energy"`
}

func metricsCommand(ctx context.Context, out io.Writer, opts WorkflowOptions, mopts MetricsOptions) error {
	if mopts.JSON {
		return jsonOrError(out, func() (any, error) {
			return fetchMetrics(ctx, opts, mopts)
		})
	}

	var report *MetricsReport
	spinner := ui.StartSpinner("Fetching metrics", stdoutIsTerminal())
	err := spinner.Track(func() (err error) {
		report, err = fetchMetrics(ctx, opts, mopts)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprint(out, renderMetricsReport(report))
	return nil
}

func fetchMetrics(ctx context.Context, opts WorkflowOptions, mopts MetricsOptions) (*MetricsReport, error) {
	if mopts.Expand != "" && !contains(config.ValidDevices, mopts.Expand) {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown device type '%s'", mopts.Expand),
			"Use --expand cpu or --expand gpu.")
	}

	opts.NeedServer = true
	w, err := SetupWorkflow(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	snap, err := w.Client.FetchMetric(ctx, w.Server.ID)
	if err != nil {
		return nil, err
	}
	report := newMetricsReport(w.Server.ID, snap)

	if mopts.Expand != "" {
		topK := mopts.TopK
		if topK <= 0 {
			topK = w.Config.Overview.TopK
		}
		exp, err := w.Client.FetchExpandedMetric(ctx, w.Server.ID, mopts.Expand, topK)
		if err != nil {
			return nil, err
		}
		if exp != nil {
			report.Steps = exp.Steps
		}
		report.Stacked = chart.ToStackedSeries(exp)
	}
	return report, nil
}

func newMetricsReport(serverID string, snap *chart.Snapshot) *MetricsReport {
	r := &MetricsReport{
		Server:  serverID,
		Models:  []ModelReport{},
		Devices: []DeviceReport{},
	}
	if snap == nil {
		r.ModelPie = chart.ToPieSeries[chart.ModelStats](nil)
		r.DevicePie = chart.ToPieSeries[chart.DeviceStats](nil)
		return r
	}

	for _, m := range snap.Model {
		mr := ModelReport{Name: m.Name, Host: timingReport(m.Host)}
		if m.Device != nil {
			d := timingReport(*m.Device)
			mr.Device = &d
		}
		r.Models = append(r.Models, mr)
	}
	for _, d := range snap.Device {
		r.Devices = append(r.Devices, DeviceReport(d))
	}
	r.ModelPie = chart.ToPieSeries(snap.Model)
	r.DevicePie = chart.ToPieSeries(snap.Device)
	r.Malformed = snap.Malformed
	return r
}

func timingReport(t chart.Timing) TimingReport {
	return TimingReport(t)
}

func renderMetricsReport(r *MetricsReport) string {
	var b strings.Builder

	b.WriteString(ui.InfoStyle().Bold(true).Render("Models"))
	b.WriteString("\n")
	if len(r.Models) == 0 {
		b.WriteString(ui.MutedStyle().Render("  no model data") + "\n")
	} else {
		rows := make([][]string, len(r.Models))
		for i, m := range r.Models {
			device := "-"
			if m.Device != nil {
				device = millis(m.Device.Avg)
			}
			rows[i] = []string{
				m.Name,
				humanize.Comma(m.Host.Calls),
				millis(m.Host.Avg),
				millis(m.Host.Min),
				millis(m.Host.Max),
				device,
				percent(m.Host.Ratio),
			}
		}
		b.WriteString(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "MODEL", Width: 24},
			{Title: "CALLS", Width: 10},
			{Title: "AVG", Width: 10},
			{Title: "MIN", Width: 10},
			{Title: "MAX", Width: 10},
			{Title: "DEVICE AVG", Width: 11},
			{Title: "SHARE", Width: 7},
		}, rows))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(ui.InfoStyle().Bold(true).Render("Devices"))
	b.WriteString("\n")
	if len(r.Devices) == 0 {
		b.WriteString(ui.MutedStyle().Render("  no device data") + "\n")
	} else {
		rows := make([][]string, len(r.Devices))
		for i, d := range r.Devices {
			rows[i] = []string{
				d.Name,
				percent(d.Utilization),
				memory(d.MemoryUsed, d.MemoryTotal),
				power(d.PowerUsage, d.PowerLimit),
				percent(d.Ratio),
			}
		}
		b.WriteString(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "DEVICE", Width: 16},
			{Title: "UTIL", Width: 7},
			{Title: "MEMORY", Width: 22},
			{Title: "POWER", Width: 14},
			{Title: "SHARE", Width: 7},
		}, rows))
		b.WriteString("\n")
	}

	for _, section := range r.Malformed {
		b.WriteString(ui.WarningStyle().Render(fmt.Sprintf("%s could not decode the %s section", ui.SymbolWarning, section)))
		b.WriteString("\n")
	}

	if len(r.Stacked) > 0 {
		b.WriteString("\n")
		b.WriteString(ui.InfoStyle().Bold(true).Render("Per-step timing"))
		b.WriteString("\n")
		rows := make([][]string, len(r.Stacked))
		for i, s := range r.Stacked {
			vals := make([]string, len(s.Values))
			for j, v := range s.Values {
				vals[j] = humanize.FtoaWithDigits(v, 2)
			}
			rows[i] = []string{s.Name, strings.Join(vals, " ")}
		}
		b.WriteString(ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "SERIES", Width: 24},
			{Title: "STEPS " + strings.Join(r.Steps, " "), Width: 48},
		}, rows))
		b.WriteString("\n")
	}
	return b.String()
}

func millis(v float64) string {
	return humanize.FtoaWithDigits(v, 2) + "ms"
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func memory(used, total float64) string {
	if total <= 0 {
		return "-"
	}
	return fmt.Sprintf("%s / %s", humanize.IBytes(uint64(used)), humanize.IBytes(uint64(total)))
}

func power(usage, limit float64) string {
	if limit <= 0 && usage <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0fW / %.0fW", usage, limit)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
