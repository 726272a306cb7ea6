package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/telemetry"
)

// configCommand prints the server's model configuration as YAML, or the
// raw blob as JSON.
func configCommand(ctx context.Context, out io.Writer, opts WorkflowOptions, asJSON bool) error {
	if asJSON {
		return jsonOrError(out, func() (any, error) {
			cfg, err := fetchServerConfig(ctx, opts)
			if err != nil {
				return nil, err
			}
			return cfg.Raw, nil
		})
	}

	cfg, err := fetchServerConfig(ctx, opts)
	if err != nil {
		return err
	}
	if cfg.Empty() {
		fmt.Fprintln(out, "# server reported no configuration")
		return nil
	}
	text, err := cfg.YAML()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrPayload,
			"Couldn't render the configuration as YAML",
			"Try --json to see the raw payload.")
	}
	_, err = io.WriteString(out, text)
	return err
}

func fetchServerConfig(ctx context.Context, opts WorkflowOptions) (telemetry.ServerConfig, error) {
	opts.NeedServer = true
	w, err := SetupWorkflow(ctx, opts)
	if err != nil {
		return telemetry.ServerConfig{}, err
	}
	defer w.Close()
	return w.Client.FetchConfig(ctx, w.Server.ID)
}
