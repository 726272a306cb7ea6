// Package telemetrytest provides an in-memory telemetry.Source for tests.
package telemetrytest

import (
	"context"
	"sync"

	"github.com/fdwatch/fdwatch/internal/chart"
	"github.com/fdwatch/fdwatch/internal/telemetry"
)

// Call names recorded by FakeSource.
const (
	CallCheckAlive = "check_alive"
	CallOutput     = "output"
	CallMetric     = "metric"
	CallExpanded   = "metric_expand"
	CallConfig     = "config"
)

// FakeSource serves canned responses and records every call. Configure the
// exported fields before handing it to code under test, or use Update
// while calls may be running.
type FakeSource struct {
	mu sync.Mutex

	AliveErr error

	// Chunks are served one per log fetch; once exhausted, fetches return "".
	Chunks []string
	LogErr error

	Snapshot  *chart.Snapshot
	MetricErr error

	Expanded    *chart.Expanded
	ExpandedErr error

	Config    telemetry.ServerConfig
	ConfigErr error

	calls   map[string]int
	offsets []int
	next    int
}

// NewFakeSource returns a FakeSource for a live server with no data.
func NewFakeSource() *FakeSource {
	return &FakeSource{calls: make(map[string]int)}
}

var _ telemetry.Source = (*FakeSource)(nil)

// Update mutates the fake under its lock.
func (f *FakeSource) Update(fn func(f *FakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *FakeSource) record(name string) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

// Calls returns how many times the named call was made.
func (f *FakeSource) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// Offsets returns the fromOffset of every log fetch, in call order.
func (f *FakeSource) Offsets() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

func (f *FakeSource) CheckAlive(ctx context.Context, serverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(CallCheckAlive)
	return f.AliveErr
}

func (f *FakeSource) FetchLogIncrement(ctx context.Context, serverID string, fromOffset int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(CallOutput)
	f.offsets = append(f.offsets, fromOffset)
	if f.LogErr != nil {
		return "", f.LogErr
	}
	if f.next >= len(f.Chunks) {
		return "", nil
	}
	chunk := f.Chunks[f.next]
	f.next++
	return chunk, nil
}

func (f *FakeSource) FetchMetric(ctx context.Context, serverID string) (*chart.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(CallMetric)
	if f.MetricErr != nil {
		return nil, f.MetricErr
	}
	if f.Snapshot == nil {
		return &chart.Snapshot{}, nil
	}
	return f.Snapshot, nil
}

func (f *FakeSource) FetchExpandedMetric(ctx context.Context, serverID, deviceType string, topK int) (*chart.Expanded, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(CallExpanded)
	if f.ExpandedErr != nil {
		return nil, f.ExpandedErr
	}
	return f.Expanded, nil
}

func (f *FakeSource) FetchConfig(ctx context.Context, serverID string) (telemetry.ServerConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(CallConfig)
	if f.ConfigErr != nil {
		return telemetry.ServerConfig{}, f.ConfigErr
	}
	return f.Config, nil
}

func (f *FakeSource) ClientURL(serverID string) string {
	return "http://fake.invalid/fastdeploy_client?server_id=" + serverID
}
