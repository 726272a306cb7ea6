package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/telemetry"
)

// logsCommand prints the log once, or keeps polling with follow until the
// context ends or the user interrupts.
func logsCommand(ctx context.Context, out io.Writer, opts WorkflowOptions, follow bool, interval time.Duration) error {
	opts.NeedServer = true
	w, err := SetupWorkflow(ctx, opts)
	if err != nil {
		return err
	}
	defer w.Close()

	session := telemetry.NewSession(w.Server.ID)

	if !follow {
		defer session.Close()
		t, _ := session.Begin(telemetry.KindRefresh, false)
		res := w.Refresher.RunLog(ctx, w.Server.ID, t)
		switch {
		case res.AliveErr != nil:
			return errors.WrapWithCode(res.AliveErr, errors.ErrFetch,
				fmt.Sprintf("Server %s isn't responding", w.Server.ID),
				"Check it is running with 'fdwatch servers'.")
		case res.LogErr != nil:
			return errors.WrapWithCode(res.LogErr, errors.ErrFetch,
				fmt.Sprintf("Couldn't fetch the log of %s", w.Server.ID),
				"Run with -v to see the request that failed.")
		}
		_, err := io.WriteString(out, res.Chunk)
		return err
	}

	if interval == 0 {
		interval = w.Config.Refresh
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := &telemetry.Poller{
		Refresher: w.Refresher,
		Session:   session,
		Interval:  interval,
		LogOnly:   true,
		OnUpdate: func(o telemetry.Outcome) {
			if o.Chunk != "" {
				io.WriteString(out, o.Chunk) //nolint:errcheck // stdout closing ends the pipe anyway
			}
		},
	}
	return poller.Run(ctx)
}
