package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ascend/internal/ui"
)

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <quest-id>",
		Short: "Delete a quest and its ordering entries",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("quest id is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.service.DeleteQuest(ctx, a.cfg.UserID, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(ui.IconDone+" Quest deleted; removal queued for sync."))
			return nil
		},
	}

	return cmd
}
