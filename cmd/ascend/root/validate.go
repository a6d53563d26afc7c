package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ascend/internal/ui"
)

func newValidateCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "validate <quest-id>",
		Short: "Run GM validation for a quest now",
		Long:  "Run GM validation for a quest immediately instead of waiting for the sync drain. Falls back to the deterministic local verdict when the remote GM is unreachable.",
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

			if offline {
				a.client.SetOnline(false)
			}

			verdict, err := a.pipeline.ProcessValidation(ctx, a.cfg.UserID, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconShield, "GM verdict"))
			fmt.Fprintln(out, ui.LabelValue("Difficulty", ui.Difficulty(verdict.SuggestedDifficulty)))
			fmt.Fprintln(out, ui.LabelValue("XP per pomodoro", verdict.XPPerPomodoro))
			fmt.Fprintln(out, ui.LabelValue("Confidence", fmt.Sprintf("%.0f%%", verdict.Confidence*100)))
			fmt.Fprintln(out, ui.LabelValue("Source", verdict.Source))
			fmt.Fprintln(out, ui.Muted.Render(verdict.Reasoning))
			if verdict.FlagForReview {
				fmt.Fprintln(out, ui.Warn.Render(ui.IconWarn+" Flagged for review: consider a lower difficulty."))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the remote GM and use the local verdict")

	return cmd
}
