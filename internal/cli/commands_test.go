package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdwatch/fdwatch/internal/config"
	"github.com/fdwatch/fdwatch/internal/errors"
)

func TestServersCommand_JSON(t *testing.T) {
	api := &fakeAPI{running: []string{"s1", "s2"}}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	var out bytes.Buffer
	err := serversCommand(context.Background(), &out, testOptions(path), ServersOptions{JSON: true, Probe: true})
	require.NoError(t, err)

	var env struct {
		Success bool           `json:"success"`
		Data    []ServerStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &env))
	require.True(t, env.Success)
	require.Len(t, env.Data, 3)

	byID := make(map[string]ServerStatus)
	for _, s := range env.Data {
		byID[s.ID] = s
	}

	s1 := byID["s1"]
	assert.Equal(t, "resnet", s1.Alias)
	assert.True(t, s1.Default)
	assert.True(t, s1.Running)
	require.NotNil(t, s1.Alive)
	assert.True(t, *s1.Alive)

	s9 := byID["s9"]
	assert.Equal(t, "idle", s9.Alias)
	assert.Equal(t, "performance", s9.Mode)
	assert.False(t, s9.Running)
	require.NotNil(t, s9.Alive)
	assert.False(t, *s9.Alive)
	assert.Contains(t, s9.Error, "server not alive")

	assert.Equal(t, 3, api.count("alive"))
}

func TestServersCommand_TableWithoutProbe(t *testing.T) {
	api := &fakeAPI{running: []string{"s1", "s2"}}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	var out bytes.Buffer
	err := serversCommand(context.Background(), &out, testOptions(path), ServersOptions{})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "resnet")
	assert.Contains(t, text, "s2")
	assert.Contains(t, text, "not running")
	assert.Zero(t, api.count("alive"))
}

func TestServersCommand_ListFailureWithoutAliases(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1/api/fastdeploy", "timeout: 1s\n")

	var out bytes.Buffer
	err := serversCommand(context.Background(), &out, testOptions(path), ServersOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFetch))
}

func TestLogsCommand_Once(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}, log: "loading model\nserving on :8000\n"}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	var out bytes.Buffer
	err := logsCommand(context.Background(), &out, testOptions(path), false, 0)
	require.NoError(t, err)
	assert.Equal(t, "loading model\nserving on :8000\n", out.String())
	assert.Zero(t, api.count("metric"))
}

func TestLogsCommand_DeadServer(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	opts := testOptions(path)
	opts.Server = "idle"

	var out bytes.Buffer
	err := logsCommand(context.Background(), &out, opts, false, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s9 isn't responding")
	assert.Zero(t, api.count("output"))
	assert.Empty(t, out.String())
}

func TestLogsCommand_Follow(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}, log: "first line\n"}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- logsCommand(ctx, out, testOptions(path), true, time.Second)
	}()

	assert.Eventually(t, func() bool {
		return out.String() == "first line\n"
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("follow did not stop after cancel")
	}
	assert.Zero(t, api.count("metric"))
}

func TestLogsCommand_NoServer(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}}
	path := writeConfig(t, newFakeAPI(t, api), "")

	var out bytes.Buffer
	err := logsCommand(context.Background(), &out, testOptions(path), false, 0)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "No server given")
}

func TestMetricsCommand_JSONWithExpand(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	var out bytes.Buffer
	err := metricsCommand(context.Background(), &out, testOptions(path), MetricsOptions{
		JSON:   true,
		Expand: "gpu",
		TopK:   3,
	})
	require.NoError(t, err)

	var env struct {
		Success bool          `json:"success"`
		Data    MetricsReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &env))
	require.True(t, env.Success)

	report := env.Data
	assert.Equal(t, "s1", report.Server)
	require.Len(t, report.Models, 1)
	assert.Equal(t, "resnet", report.Models[0].Name)
	assert.Equal(t, int64(4), report.Models[0].Host.Calls)
	assert.Nil(t, report.Models[0].Device)

	require.Len(t, report.Devices, 1)
	assert.Equal(t, "gpu0", report.Devices[0].Name)
	assert.Equal(t, 50.0, report.Devices[0].Utilization)

	require.Len(t, report.ModelPie, 1)
	assert.Equal(t, 100.0, report.ModelPie[0].Proportion)
	require.Len(t, report.DevicePie, 1)

	assert.Equal(t, []string{"1", "2"}, report.Steps)
	require.Len(t, report.Stacked, 1)
	assert.Equal(t, "conv", report.Stacked[0].Name)
	assert.Equal(t, []float64{3, 4}, report.Stacked[0].Values)
	assert.Equal(t, 1, api.count("expand:gpu:3"))
}

func TestMetricsCommand_TopKDefaultsFromConfig(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig+"overview:\n  topk: 7\n")

	var out bytes.Buffer
	err := metricsCommand(context.Background(), &out, testOptions(path), MetricsOptions{JSON: true, Expand: "cpu"})
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("expand:cpu:7"))
}

func TestMetricsCommand_Table(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	var out bytes.Buffer
	err := metricsCommand(context.Background(), &out, testOptions(path), MetricsOptions{})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Models")
	assert.Contains(t, text, "resnet")
	assert.Contains(t, text, "5ms")
	assert.Contains(t, text, "gpu0")
	assert.Contains(t, text, "1.0 GiB / 2.0 GiB")
	assert.Contains(t, text, "120W / 300W")
	assert.NotContains(t, text, "Per-step timing")
}

func TestMetricsCommand_UnknownDevice(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	var out bytes.Buffer
	err := metricsCommand(context.Background(), &out, testOptions(path), MetricsOptions{JSON: true, Expand: "tpu"})
	require.Error(t, err)

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(out.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, errors.ErrConfig, env.Error.Code)
	assert.Zero(t, api.count("metric"))
}

func TestConfigCommand(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	t.Run("yaml", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, configCommand(context.Background(), &out, testOptions(path), false))
		assert.Contains(t, out.String(), "resnet:")
		assert.Contains(t, out.String(), "backend: paddle")
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, configCommand(context.Background(), &out, testOptions(path), true))

		var env struct {
			Success bool                      `json:"success"`
			Data    map[string]map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &env))
		assert.True(t, env.Success)
		assert.Equal(t, "paddle", env.Data["resnet"]["backend"])
	})
}

func TestOpenCommand(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	orig := openURL
	defer func() { openURL = orig }()
	var opened string
	openURL = func(u string) error {
		opened = u
		return nil
	}

	var out bytes.Buffer
	require.NoError(t, openCommand(context.Background(), &out, testOptions(path)))
	assert.Contains(t, opened, "/api/fastdeploy/fastdeploy_client?server_id=s1")
	assert.Contains(t, out.String(), opened)
}

func TestStopCommand(t *testing.T) {
	api := &fakeAPI{running: []string{"s1"}}
	path := writeConfig(t, newFakeAPI(t, api), aliasConfig)

	t.Run("requires --yes without a terminal", func(t *testing.T) {
		var out bytes.Buffer
		err := stopCommand(context.Background(), &out, testOptions(path), false)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
		assert.Zero(t, api.count("stop:s1"))
	})

	t.Run("stops with --yes", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, stopCommand(context.Background(), &out, testOptions(path), true))
		assert.Equal(t, 1, api.count("stop:s1"))
		assert.Contains(t, out.String(), "Stopped resnet (s1)")
	})
}

func TestAliasCommand(t *testing.T) {
	path := writeConfig(t, "http://localhost:8040/api/fastdeploy", "# keep me\nrefresh: 5s\n")

	var out bytes.Buffer
	err := aliasCommand(&out, path, "ocr", "71aa01", AliasOptions{Mode: "performance", Default: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "ocr -> 71aa01")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ocr", cfg.Default)
	assert.Equal(t, 5*time.Second, cfg.Refresh)
	require.Contains(t, cfg.Servers, "ocr")
	assert.Equal(t, "71aa01", cfg.Servers["ocr"].ID)
	assert.Equal(t, "performance", cfg.Servers["ocr"].Mode)
}

func TestAliasCommand_RejectsUnknownMode(t *testing.T) {
	path := writeConfig(t, "http://localhost:8040/api/fastdeploy", "")

	var out bytes.Buffer
	err := aliasCommand(&out, path, "ocr", "71aa01", AliasOptions{Mode: "graphs"})
	require.Error(t, err)
	assert.Empty(t, out.String())
}
