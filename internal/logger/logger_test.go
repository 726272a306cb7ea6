package logger

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		expectLog bool
	}{
		{name: "logs when FDWATCH_DEBUG is set", envValue: "1", expectLog: true},
		{name: "logs for any value", envValue: "yes", expectLog: true},
		{name: "silent when unset", envValue: "", expectLog: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			t.Setenv(DebugEnv, tt.envValue)

			NewEnvLogger("[poll]").Debug("offset %d", 42)

			if tt.expectLog {
				assert.Equal(t, "[poll] DEBUG: offset 42\n", buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestEnvLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		call   func(Logger)
		want   string
	}{
		{
			name:   "info with prefix",
			prefix: "[telemetry]",
			call:   func(l Logger) { l.Info("server %s alive", "s1") },
			want:   "[telemetry] server s1 alive\n",
		},
		{
			name:   "warn with prefix",
			prefix: "[telemetry]",
			call:   func(l Logger) { l.Warn("metric fetch failed") },
			want:   "[telemetry] WARN: metric fetch failed\n",
		},
		{
			name: "error without prefix",
			call: func(l Logger) { l.Error("boom") },
			want: "ERROR: boom\n",
		},
		{
			name: "info without prefix",
			call: func(l Logger) { l.Info("plain") },
			want: "plain\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			tt.call(NewEnvLogger(tt.prefix))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestNoop(t *testing.T) {
	buf := captureLog(t)
	l := Noop()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.Empty(t, buf.String())
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()
	l.Warn("log fetch for %s failed", "s1")
	l.Warn("metric fetch for %s failed", "s1")
	l.Debug("tick")

	assert.Len(t, l.Messages, 3)
	assert.Equal(t, "log fetch for s1 failed", l.Messages[0].Message)
	assert.True(t, l.HasLevel("warn"))
	assert.False(t, l.HasLevel("error"))
	assert.Equal(t, 2, l.Count("warn"))

	l.Clear()
	assert.Empty(t, l.Messages)
}

func TestSetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	buf := NewBufferLogger()
	SetDefault(buf)
	Default().Info("hello")

	assert.True(t, buf.HasLevel("info"))
}
