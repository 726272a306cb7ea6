package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Expanded is the payload behind the stacked-bar detail chart: an ordered
// list of steps, the server's series order, and one value list per series.
type Expanded struct {
	Steps  []string
	Order  []string
	Values map[string][]float64
}

// UnmarshalJSON decodes {"steps": [...], "order": [...], "<name>": [...]}.
// Steps may be strings or numbers. Extra keys that are not numeric lists
// are ignored. When "order" is absent, series are ordered by name.
func (e *Expanded) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("expanded metric payload is not an object: %w", err)
	}

	*e = Expanded{Values: make(map[string][]float64)}
	for key, val := range raw {
		switch key {
		case "steps":
			steps, err := decodeSteps(val)
			if err != nil {
				return fmt.Errorf("steps: %w", err)
			}
			e.Steps = steps
		case "order":
			if err := json.Unmarshal(val, &e.Order); err != nil {
				return fmt.Errorf("order: %w", err)
			}
		default:
			var values []flexFloat
			if err := json.Unmarshal(val, &values); err != nil {
				continue
			}
			series := make([]float64, len(values))
			for i, v := range values {
				series[i] = float64(v)
			}
			e.Values[key] = series
		}
	}

	if e.Order == nil {
		for name := range e.Values {
			e.Order = append(e.Order, name)
		}
		sort.Strings(e.Order)
	}
	return nil
}

func decodeSteps(data json.RawMessage) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	steps := make([]string, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			steps[i] = s
			continue
		}
		steps[i] = strings.Trim(string(item), `"`)
	}
	return steps, nil
}

// StackedSeries is one layer of a stacked bar chart.
type StackedSeries struct {
	Name       string    `json:"name"`
	Values     []float64 `json:"values"`
	ColorIndex int       `json:"color_index"`
	Color      string    `json:"color"`
}

// ToStackedSeries produces one series per entry of e.Order, in that order,
// coloured by index from Palette. A series shorter than the step list is
// padded with zeros; a name with no values at all becomes an all-zero
// series. A nil payload yields an empty, non-nil series.
func ToStackedSeries(e *Expanded) []StackedSeries {
	if e == nil {
		return []StackedSeries{}
	}

	out := make([]StackedSeries, 0, len(e.Order))
	for i, name := range e.Order {
		src := e.Values[name]
		n := len(src)
		if len(e.Steps) > n {
			n = len(e.Steps)
		}
		values := make([]float64, n)
		copy(values, src)

		idx := PaletteIndex(i)
		out = append(out, StackedSeries{
			Name:       name,
			Values:     values,
			ColorIndex: idx,
			Color:      Palette[idx],
		})
	}
	return out
}

// StepTotals sums every series at each step, giving the height of each
// stacked bar.
func StepTotals(series []StackedSeries) []float64 {
	n := 0
	for _, s := range series {
		if len(s.Values) > n {
			n = len(s.Values)
		}
	}
	totals := make([]float64, n)
	for _, s := range series {
		for i, v := range s.Values {
			totals[i] += v
		}
	}
	return totals
}
