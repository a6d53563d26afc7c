package root

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ascend/internal/ui"
)

func newSyncCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Drain the sync queue",
		Long:  "Drain the sync queue against the remote API. By default runs until interrupted, draining on the configured interval; --once performs a single drain cycle and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			out := cmd.OutOrStdout()

			proc := a.processor()

			if once {
				before, err := a.queue.Len(ctx)
				if err != nil {
					return err
				}
				proc.DrainOnce(ctx)
				after, err := a.queue.Len(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, ui.LabelValue("Synced", fmt.Sprintf("%d operation(s), %d pending", before-after, after)))
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(out, ui.Heading(ui.IconSync, "Syncing"))
			fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("Draining every %s against %s. Ctrl-C to stop.", a.cfg.SyncInterval, a.cfg.APIBaseURL)))

			go proc.Run(ctx)
			for {
				select {
				case o := <-proc.Outcomes():
					switch {
					case o.Err == nil:
						fmt.Fprintf(out, "%s %s %s/%s\n", ui.Good.Render(ui.IconDone), o.Op.Operation, o.Op.Collection, o.Op.DocumentID)
					case o.Terminal:
						fmt.Fprintf(out, "%s %s %s/%s: %v\n", ui.Bad.Render(ui.IconError), o.Op.Operation, o.Op.Collection, o.Op.DocumentID, o.Err)
					default:
						fmt.Fprintf(out, "%s %s %s/%s: %v (will retry)\n", ui.Warn.Render(ui.IconWarn), o.Op.Operation, o.Op.Collection, o.Op.DocumentID, o.Err)
					}
				case <-proc.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Drain one batch and exit")

	return cmd
}
