package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/ui"
)

// confirmStop is swapped out in tests.
var confirmStop = func(label string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Stop %s?", label)).
				Description("Running requests will fail.").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

func stopCommand(ctx context.Context, out io.Writer, opts WorkflowOptions, yes bool) error {
	opts.NeedServer = true
	w, err := SetupWorkflow(ctx, opts)
	if err != nil {
		return err
	}
	defer w.Close()

	label := w.Server.ID
	if w.Server.Alias != "" && w.Server.Alias != w.Server.ID {
		label = fmt.Sprintf("%s (%s)", w.Server.Alias, w.Server.ID)
	}

	if !yes {
		if !stdinIsTerminal() {
			return errors.New(errors.ErrConfig,
				"Refusing to stop "+label+" without confirmation",
				"Pass --yes when running without a terminal.")
		}
		ok, err := confirmStop(label)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Pass --yes to skip the prompt.")
		}
		if !ok {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if err := w.Client.StopServer(ctx, w.Server.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Stopped %s\n", ui.SymbolSuccess, label)
	return nil
}
