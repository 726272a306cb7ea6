package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Timing is call and latency statistics for one side (host or device) of a
// model. Times are milliseconds.
type Timing struct {
	Calls int64
	Total float64
	Min   float64
	Max   float64
	Avg   float64
	Ratio float64
}

// ModelStats is one entry of the model table.
type ModelStats struct {
	Name   string
	Host   Timing
	Device *Timing // nil when the server reports no device-side timing
}

// Segment maps the model's host timing to a pie segment.
func (m ModelStats) Segment() PieSegment {
	return PieSegment{Name: m.Name, Value: m.Host.Total, Proportion: m.Host.Ratio}
}

// DeviceStats is one accelerator (or the host CPU) in the device table.
type DeviceStats struct {
	Name        string
	TotalTime   float64
	Ratio       float64
	Utilization float64 // percent, 0-100
	MemoryUsed  float64 // bytes
	MemoryTotal float64 // bytes
	PowerUsage  float64 // watts
	PowerLimit  float64 // watts
	Energy      float64 // joules
}

// Segment maps the device to a pie segment.
func (d DeviceStats) Segment() PieSegment {
	return PieSegment{Name: d.Name, Value: d.TotalTime, Proportion: d.Ratio}
}

// MemoryRatio returns used/total memory in [0,1], or 0 when unknown.
func (d DeviceStats) MemoryRatio() float64 {
	if d.MemoryTotal <= 0 {
		return 0
	}
	return d.MemoryUsed / d.MemoryTotal
}

// Snapshot is one point-in-time measurement. It is replaced wholesale on
// every successful fetch.
type Snapshot struct {
	Model  []ModelStats
	Device []DeviceStats

	// Malformed lists sections that were present but could not be decoded.
	Malformed []string
}

// Empty reports whether the snapshot carries no entities at all.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Model) == 0 && len(s.Device) == 0)
}

// UnmarshalJSON decodes {"model": ..., "device": ...}. Each section may be
// null, a list of records carrying "name", or an object keyed by name.
// Section keys match case-insensitively, and "gpu" is accepted for device.
//
// An object section whose entries carry raw Triton counters
// ({"resnet": {"nv_inference_count": "12", ...}}) is folded the same way
// ParseExposition folds a scrape.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("metric payload is not an object: %w", err)
	}

	*s = Snapshot{}
	for key, section := range raw {
		switch strings.ToLower(key) {
		case "model", "models":
			if table, ok, err := tritonTable(section); ok {
				if err != nil {
					s.Malformed = append(s.Malformed, "model")
					continue
				}
				s.Model = append(s.Model, tritonModels(table)...)
				continue
			}
			models, err := decodeNamed(section, func(w *modelWire, name string) { w.Name = name })
			if err != nil {
				s.Malformed = append(s.Malformed, "model")
				continue
			}
			for _, w := range models {
				s.Model = append(s.Model, w.stats())
			}
		case "device", "devices", "gpu":
			if table, ok, err := tritonTable(section); ok {
				if err != nil {
					s.Malformed = append(s.Malformed, "device")
					continue
				}
				s.Device = append(s.Device, tritonDevices(table)...)
				continue
			}
			devices, err := decodeNamed(section, func(w *deviceWire, name string) { w.Name = name })
			if err != nil {
				s.Malformed = append(s.Malformed, "device")
				continue
			}
			for _, w := range devices {
				s.Device = append(s.Device, w.stats())
			}
		}
	}
	sort.Strings(s.Malformed)
	return nil
}

// tritonTable decodes an object of objects keyed by nv_* metric names. ok
// is false when the section has some other shape.
func tritonTable(data json.RawMessage) (table map[string]map[string]float64, ok bool, err error) {
	var rows map[string]map[string]json.RawMessage
	if json.Unmarshal(data, &rows) != nil {
		return nil, false, nil
	}

	table = make(map[string]map[string]float64, len(rows))
	for name, fields := range rows {
		row := make(map[string]float64, len(fields))
		for metric, raw := range fields {
			if !strings.HasPrefix(metric, "nv_") {
				continue
			}
			ok = true
			var v flexFloat
			if uerr := json.Unmarshal(raw, &v); uerr != nil && err == nil {
				err = fmt.Errorf("%s.%s: %w", name, metric, uerr)
			}
			row[metric] = float64(v)
		}
		table[name] = row
	}
	return table, ok, err
}

func tritonModels(table map[string]map[string]float64) []ModelStats {
	models := make(map[string]*modelCounters, len(table))
	for name, row := range table {
		mc := &modelCounters{}
		for metric, v := range row {
			mc.add(metric, v)
		}
		models[name] = mc
	}
	return buildModelTable(models)
}

func tritonDevices(table map[string]map[string]float64) []DeviceStats {
	devices := make(map[string]*DeviceStats, len(table))
	for name, row := range table {
		d := &DeviceStats{Name: name}
		for metric, v := range row {
			setGPUMetric(d, metric, v)
		}
		devices[name] = d
	}
	return buildDeviceTable(devices)
}

type timingWire struct {
	Calls     flexFloat `json:"calls"`
	TotalTime flexFloat `json:"total_time"`
	MinTime   flexFloat `json:"min_time"`
	MaxTime   flexFloat `json:"max_time"`
	AvgTime   flexFloat `json:"avg_time"`
	Ratio     flexFloat `json:"ratio"`
}

func (w timingWire) timing() Timing {
	return Timing{
		Calls: int64(w.Calls),
		Total: float64(w.TotalTime),
		Min:   float64(w.MinTime),
		Max:   float64(w.MaxTime),
		Avg:   float64(w.AvgTime),
		Ratio: float64(w.Ratio),
	}
}

// modelWire accepts host timing either flat on the record or under "host".
type modelWire struct {
	Name string `json:"name"`
	timingWire
	Host   *timingWire `json:"host"`
	Device *timingWire `json:"device"`
}

func (w modelWire) stats() ModelStats {
	m := ModelStats{Name: w.Name, Host: w.timingWire.timing()}
	if w.Host != nil {
		m.Host = w.Host.timing()
	}
	if w.Device != nil {
		d := w.Device.timing()
		m.Device = &d
	}
	return m
}

type deviceWire struct {
	Name        string    `json:"name"`
	TotalTime   flexFloat `json:"total_time"`
	Ratio       flexFloat `json:"ratio"`
	Utilization flexFloat `json:"utilization"`
	MemoryUsed  flexFloat `json:"memory_used"`
	MemoryTotal flexFloat `json:"memory_total"`
	PowerUsage  flexFloat `json:"power_usage"`
	PowerLimit  flexFloat `json:"power_limit"`
	Energy      flexFloat `json:"energy"`
}

func (w deviceWire) stats() DeviceStats {
	return DeviceStats{
		Name:        w.Name,
		TotalTime:   float64(w.TotalTime),
		Ratio:       float64(w.Ratio),
		Utilization: float64(w.Utilization),
		MemoryUsed:  float64(w.MemoryUsed),
		MemoryTotal: float64(w.MemoryTotal),
		PowerUsage:  float64(w.PowerUsage),
		PowerLimit:  float64(w.PowerLimit),
		Energy:      float64(w.Energy),
	}
}

// decodeNamed decodes null, a list of records, or an object keyed by name.
// Object entries come back sorted by name so rendering order is stable.
func decodeNamed[T any](data json.RawMessage, setName func(*T, string)) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var list []T
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	case '{':
		var byName map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &byName); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		sort.Strings(names)

		out := make([]T, 0, len(names))
		for _, name := range names {
			var v T
			if err := json.Unmarshal(byName[name], &v); err != nil {
				return nil, fmt.Errorf("entry %q: %w", name, err)
			}
			setName(&v, name)
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected object or list, got %.20s", trimmed)
	}
}

// flexFloat decodes a JSON number, a numeric string, or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", s)
	}
	*f = flexFloat(v)
	return nil
}
