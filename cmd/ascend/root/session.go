package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ascend/internal/storage"
	"ascend/internal/ui"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Track pomodoro sessions",
	}
	cmd.AddCommand(newSessionStartCmd(), newSessionDoneCmd())
	return cmd
}

func newSessionStartCmd() *cobra.Command {
	var isBreak bool

	cmd := &cobra.Command{
		Use:   "start <quest-id>",
		Short: "Start a session on a quest",
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

			sessionType := storage.SessionTypeFocus
			if isBreak {
				sessionType = storage.SessionTypeBreak
			}
			sess, err := a.service.StartSession(ctx, a.cfg.UserID, args[0], sessionType)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconBolt, "Session started"))
			fmt.Fprintln(out, ui.LabelValue("ID", sess.ID))
			fmt.Fprintln(out, ui.Muted.Render("Finish with `ascend session done "+sess.ID+"`."))
			return nil
		},
	}

	cmd.Flags().BoolVar(&isBreak, "break", false, "Start a break session (no XP)")

	return cmd
}

func newSessionDoneCmd() *cobra.Command {
	var quality int

	cmd := &cobra.Command{
		Use:   "done <session-id>",
		Short: "Complete a session and collect XP",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("session id is required")
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

			res, err := a.service.CompleteSession(ctx, a.cfg.UserID, args[0], quality)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconDone, "Session complete"))
			fmt.Fprintln(out, ui.LabelValue("XP earned", fmt.Sprintf("%.0f", res.XPAwarded)))
			if res.LevelUp {
				fmt.Fprintf(out, "%s %s %d → %d\n", ui.IconTrophy, ui.BadgeLevelUp, res.LevelBefore, res.LevelAfter)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&quality, "quality", "q", 70, "Self-rated session quality (0-100)")

	return cmd
}
