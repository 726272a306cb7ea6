package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBlob(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNewServerConfig_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		blob   string
		models []ModelSummary
	}{
		{
			name: "keyed by model",
			blob: `{"yolo": {"backend": "paddle", "max_batch_size": 8,
				"instance_group": [{"count": 2, "kind": "KIND_GPU"}, {"kind": "KIND_CPU"}],
				"input": [{"name": "x"}], "output": [{"name": "a"}, {"name": "b"}]},
				"det": {"platform": "ensemble", "max_batch_size": "4"}}`,
			models: []ModelSummary{
				{Name: "det", Backend: "ensemble", MaxBatch: 4},
				{Name: "yolo", Backend: "paddle", MaxBatch: 8, Instances: 3, Inputs: 1, Outputs: 2},
			},
		},
		{
			name:   "single model",
			blob:   `{"name": "ocr", "backend": "onnxruntime"}`,
			models: []ModelSummary{{Name: "ocr", Backend: "onnxruntime"}},
		},
		{
			name:   "list of models",
			blob:   `[{"name": "a"}, "junk", {"name": "b", "max_batch_size": 1}]`,
			models: []ModelSummary{{Name: "a"}, {Name: "b", MaxBatch: 1}},
		},
		{
			name: "scalar blob",
			blob: `"opaque"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewServerConfig(decodeBlob(t, tt.blob))
			assert.Equal(t, tt.models, cfg.Models)
			assert.False(t, cfg.Empty())
		})
	}
}

func TestServerConfig_YAML(t *testing.T) {
	cfg := NewServerConfig(decodeBlob(t, `{"resnet": {"max_batch_size": 16, "backend": "paddle"}}`))

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Equal(t, "resnet:\n    backend: paddle\n    max_batch_size: 16\n", out)

	empty, err := ServerConfig{}.YAML()
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.True(t, ServerConfig{}.Empty())
}
