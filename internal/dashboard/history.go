package dashboard

import "github.com/fdwatch/fdwatch/internal/chart"

// DefaultHistorySize is the number of samples kept per device, one per
// refresh.
const DefaultHistorySize = 60

// History keeps recent device utilization samples for sparklines. It is
// owned by the Model and only touched from Update.
type History struct {
	size    int
	devices map[string]*ringBuffer
}

// NewHistory creates a history that keeps size samples per device.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size, devices: make(map[string]*ringBuffer)}
}

// Push records one sample per device in snap.
func (h *History) Push(snap *chart.Snapshot) {
	if snap == nil {
		return
	}
	for _, d := range snap.Device {
		rb, ok := h.devices[d.Name]
		if !ok {
			rb = newRingBuffer(h.size)
			h.devices[d.Name] = rb
		}
		rb.push(d.Utilization)
	}
}

// Utilization returns up to count samples for device, oldest first.
func (h *History) Utilization(device string, count int) []float64 {
	rb, ok := h.devices[device]
	if !ok {
		return nil
	}
	return rb.getLast(count)
}

// Count returns how many samples are stored for device.
func (h *History) Count(device string) int {
	if rb, ok := h.devices[device]; ok {
		return rb.count
	}
	return 0
}

// Clear drops every sample.
func (h *History) Clear() {
	h.devices = make(map[string]*ringBuffer)
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{data: make([]float64, size)}
}

func (r *ringBuffer) push(v float64) {
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// getLast returns the last count values in chronological order.
func (r *ringBuffer) getLast(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	out := make([]float64, count)
	start := (r.head - count + len(r.data)) % len(r.data)
	for i := range out {
		out[i] = r.data[(start+i)%len(r.data)]
	}
	return out
}
