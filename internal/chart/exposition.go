package chart

import (
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
)

// Triton metric names read by ParseExposition.
const (
	metricRequestSuccess = "nv_inference_request_success"
	metricRequestFailure = "nv_inference_request_failure"
	metricInferenceCount = "nv_inference_count"
	metricExecCount      = "nv_inference_exec_count"
	metricRequestUs      = "nv_inference_request_duration_us"
	metricQueueUs        = "nv_inference_queue_duration_us"
	metricInputUs        = "nv_inference_compute_input_duration_us"
	metricInferUs        = "nv_inference_compute_infer_duration_us"
	metricOutputUs       = "nv_inference_compute_output_duration_us"

	metricGPUPowerUsage = "nv_gpu_power_usage"
	metricGPUPowerLimit = "nv_gpu_power_limit"
	metricGPUEnergy     = "nv_energy_consumption"
	metricGPUUtil       = "nv_gpu_utilization"
	metricGPUMemTotal   = "nv_gpu_memory_total_bytes"
	metricGPUMemUsed    = "nv_gpu_memory_used_bytes"

	metricCPUUtil     = "nv_cpu_utilization"
	metricCPUMemTotal = "nv_cpu_memory_total_bytes"
	metricCPUMemUsed  = "nv_cpu_memory_used_bytes"

	labelModel   = "model"
	labelGPUUUID = "gpu_uuid"

	// CPUDeviceName names the device entry built from nv_cpu_* metrics.
	CPUDeviceName = "cpu"
)

// modelCounters accumulates Triton counters for one model across versions.
type modelCounters struct {
	success, failure, count, exec float64
	requestUs, queueUs            float64
	inputUs, inferUs, outputUs    float64
}

// add folds one sample into the counters. Unknown metrics are ignored.
func (mc *modelCounters) add(metric string, v float64) {
	switch metric {
	case metricRequestSuccess:
		mc.success += v
	case metricRequestFailure:
		mc.failure += v
	case metricInferenceCount:
		mc.count += v
	case metricExecCount:
		mc.exec += v
	case metricRequestUs:
		mc.requestUs += v
	case metricQueueUs:
		mc.queueUs += v
	case metricInputUs:
		mc.inputUs += v
	case metricInferUs:
		mc.inferUs += v
	case metricOutputUs:
		mc.outputUs += v
	}
}

// setGPUMetric stores one nv_gpu_* sample on d. Utilization arrives as a
// fraction and is stored as a percentage.
func setGPUMetric(d *DeviceStats, metric string, v float64) {
	switch metric {
	case metricGPUPowerUsage:
		d.PowerUsage = v
	case metricGPUPowerLimit:
		d.PowerLimit = v
	case metricGPUEnergy:
		d.Energy = v
	case metricGPUUtil:
		d.Utilization = v * 100
	case metricGPUMemTotal:
		d.MemoryTotal = v
	case metricGPUMemUsed:
		d.MemoryUsed = v
	}
}

// ParseExposition builds a Snapshot from a Prometheus text exposition as
// served by a Triton-style inference server's /metrics endpoint.
//
// Host timing is end-to-end request time; device timing is compute
// (input + infer + output) time. Times are converted from microseconds to
// milliseconds, and each ratio is the entity's share of the table total in
// percent. Devices have no time dimension in the exposition, so device
// ratios are shares of summed utilization and TotalTime stays zero.
func ParseExposition(r io.Reader) (*Snapshot, error) {
	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, err
	}

	models := make(map[string]*modelCounters)
	devices := make(map[string]*DeviceStats)

	modelFor := func(name string) *modelCounters {
		mc, ok := models[name]
		if !ok {
			mc = &modelCounters{}
			models[name] = mc
		}
		return mc
	}
	deviceFor := func(name string) *DeviceStats {
		d, ok := devices[name]
		if !ok {
			d = &DeviceStats{Name: name}
			devices[name] = d
		}
		return d
	}

	for name, family := range families {
		for _, m := range family.GetMetric() {
			v, ok := sampleValue(family.GetType(), m)
			if !ok {
				continue
			}

			if modelName := labelValue(m, labelModel); modelName != "" {
				modelFor(modelName).add(name, v)
				continue
			}

			if gpu := labelValue(m, labelGPUUUID); gpu != "" {
				setGPUMetric(deviceFor(gpu), name, v)
				continue
			}

			switch name {
			case metricCPUUtil:
				deviceFor(CPUDeviceName).Utilization = v * 100
			case metricCPUMemTotal:
				deviceFor(CPUDeviceName).MemoryTotal = v
			case metricCPUMemUsed:
				deviceFor(CPUDeviceName).MemoryUsed = v
			}
		}
	}

	return &Snapshot{
		Model:  buildModelTable(models),
		Device: buildDeviceTable(devices),
	}, nil
}

func buildModelTable(models map[string]*modelCounters) []ModelStats {
	names := sortedKeys(models)
	out := make([]ModelStats, 0, len(names))

	var hostSum, deviceSum float64
	for _, name := range names {
		mc := models[name]
		hostSum += mc.requestUs
		deviceSum += mc.inputUs + mc.inferUs + mc.outputUs
	}

	for _, name := range names {
		mc := models[name]
		calls := mc.success + mc.failure
		if calls == 0 {
			calls = mc.count
		}
		host := Timing{
			Calls: int64(calls),
			Total: mc.requestUs / 1000,
			Ratio: share(mc.requestUs, hostSum),
		}
		if calls > 0 {
			host.Avg = host.Total / calls
		}

		computeUs := mc.inputUs + mc.inferUs + mc.outputUs
		device := Timing{
			Calls: int64(mc.exec),
			Total: computeUs / 1000,
			Ratio: share(computeUs, deviceSum),
		}
		if mc.exec > 0 {
			device.Avg = device.Total / mc.exec
		}

		out = append(out, ModelStats{Name: name, Host: host, Device: &device})
	}
	return out
}

func buildDeviceTable(devices map[string]*DeviceStats) []DeviceStats {
	names := sortedKeys(devices)
	out := make([]DeviceStats, 0, len(names))

	var utilSum float64
	for _, name := range names {
		utilSum += devices[name].Utilization
	}
	for _, name := range names {
		d := *devices[name]
		d.Ratio = share(d.Utilization, utilSum)
		out = append(out, d)
	}
	return out
}

func sampleValue(t dto.MetricType, m *dto.Metric) (float64, bool) {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue(), m.GetCounter() != nil
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue(), m.GetGauge() != nil
	case dto.MetricType_UNTYPED:
		return m.GetUntyped().GetValue(), m.GetUntyped() != nil
	default:
		return 0, false
	}
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func share(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
