package cli

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdwatch/fdwatch/internal/errors"
)

func TestErrorToJSON(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *JSONError
	}{
		{name: "nil", err: nil, want: nil},
		{
			name: "structured with cause",
			err:  errors.WrapWithCode(stderrors.New("connection refused"), errors.ErrFetch, "list request failed", "Check the API address"),
			want: &JSONError{Code: errors.ErrFetch, Message: "list request failed", Suggestion: "Check the API address", Cause: "connection refused"},
		},
		{
			name: "structured behind fmt wrap",
			err:  fmt.Errorf("fetching: %w", errors.New(errors.ErrPayload, "bad metric", "")),
			want: &JSONError{Code: errors.ErrPayload, Message: "bad metric"},
		},
		{
			name: "plain error",
			err:  stderrors.New("boom"),
			want: &JSONError{Code: ErrCodeUnknown, Message: "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorToJSON(tt.err))
		})
	}
}

func TestJSONOrError(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var buf bytes.Buffer
		err := jsonOrError(&buf, func() (any, error) {
			return map[string]int{"servers": 2}, nil
		})
		require.NoError(t, err)

		var env struct {
			Success bool           `json:"success"`
			Data    map[string]int `json:"data"`
			Error   *JSONError     `json:"error"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
		assert.True(t, env.Success)
		assert.Equal(t, 2, env.Data["servers"])
		assert.Nil(t, env.Error)
	})

	t.Run("failure still returns the error", func(t *testing.T) {
		var buf bytes.Buffer
		cause := errors.New(errors.ErrConfig, "No server given", "Pass a server id")
		err := jsonOrError(&buf, func() (any, error) { return nil, cause })
		assert.Equal(t, cause, err)

		var env JSONEnvelope
		require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
		assert.False(t, env.Success)
		assert.Nil(t, env.Data)
		require.NotNil(t, env.Error)
		assert.Equal(t, errors.ErrConfig, env.Error.Code)
		assert.Equal(t, "Pass a server id", env.Error.Suggestion)
	})
}
