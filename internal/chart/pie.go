package chart

// PieSegment is one slice of a pie chart. Proportion is passed through from
// the server (a percentage) and is not renormalised.
type PieSegment struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Proportion float64 `json:"proportion"`
}

// Segmenter is anything that maps to a single pie segment.
type Segmenter interface {
	Segment() PieSegment
}

// ToPieSeries maps each entity to one segment, preserving order. It never
// aggregates across entities. Nil or empty input yields an empty, non-nil
// series.
func ToPieSeries[E Segmenter](entities []E) []PieSegment {
	out := make([]PieSegment, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Segment())
	}
	return out
}

// DeviceTimingPie builds a pie from the device-side timing of each model.
// Models without device timing are skipped.
func DeviceTimingPie(models []ModelStats) []PieSegment {
	out := make([]PieSegment, 0, len(models))
	for _, m := range models {
		if m.Device == nil {
			continue
		}
		out = append(out, PieSegment{Name: m.Name, Value: m.Device.Total, Proportion: m.Device.Ratio})
	}
	return out
}

// ProportionSum adds up the proportions of a series. Server ratios are
// expected to land near 100 but nothing enforces that.
func ProportionSum(series []PieSegment) float64 {
	var sum float64
	for _, s := range series {
		sum += s.Proportion
	}
	return sum
}
