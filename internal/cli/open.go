package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/browser"

	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/ui"
)

// openURL is swapped out in tests.
var openURL = browser.OpenURL

func openCommand(ctx context.Context, out io.Writer, opts WorkflowOptions) error {
	opts.NeedServer = true
	w, err := SetupWorkflow(ctx, opts)
	if err != nil {
		return err
	}
	defer w.Close()

	target := w.Client.ClientURL(w.Server.ID)
	if w.Tunnel != nil {
		ui.PrintWarning("the API is reached through an SSH tunnel; the browser needs its own route to " + target)
	}
	if err := openURL(target); err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Couldn't open a browser",
			"Open "+target+" by hand.")
	}
	fmt.Fprintf(out, "%s Opened %s\n", ui.SymbolSuccess, target)
	return nil
}
