package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandsRegistered(t *testing.T) {
	want := []string{"watch", "servers", "logs", "metrics", "config", "open", "stop", "init", "alias", "version", "completion"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, registered[name], "command %q should be registered", name)
	}
}

func TestPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "api", "no-color", "verbose"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag --%s", name)
	}
}

func TestCompletionCommand(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{shell: "bash", want: "fdwatch"},
		{shell: "zsh", want: "#compdef fdwatch"},
		{shell: "fish", want: "complete -c fdwatch"},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			var buf bytes.Buffer
			completionCmd.SetOut(&buf)
			defer completionCmd.SetOut(nil)

			require.NoError(t, completionCmd.RunE(completionCmd, []string{tt.shell}))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestCompletionCommand_RejectsUnknownShell(t *testing.T) {
	assert.Error(t, completionCmd.Args(completionCmd, []string{"tcsh"}))
	assert.NoError(t, completionCmd.Args(completionCmd, []string{"zsh"}))
}
