package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ascend/internal/quest"
	"ascend/internal/storage"
	"ascend/internal/ui"
)

func newEditCmd() *cobra.Command {
	var title string
	var desc string
	var diff int
	var estimate float64
	var done bool
	var unlock bool

	cmd := &cobra.Command{
		Use:   "edit <quest-id>",
		Short: "Edit a quest",
		Long:  "Edit a quest. Changing difficulty, subtasks, or the time estimate on a GM-locked quest is rejected; pass --unlock to explicitly discard the verdict and revalidate.",
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

			out := cmd.OutOrStdout()
			questID := args[0]

			if unlock {
				if !cmd.Flags().Changed("diff") {
					return errors.New("--unlock requires --diff")
				}
				q, err := a.service.UnlockAndRevalidate(ctx, a.cfg.UserID, questID, diff)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, ui.Heading(ui.IconShield, "Quest unlocked"))
				fmt.Fprintln(out, ui.LabelValue("Difficulty", ui.Difficulty(q.Difficulty.UserAssigned)))
				fmt.Fprintln(out, ui.LabelValue("Status", ui.ValidationText(q.ValidationStatus)))
				return nil
			}

			var u quest.QuestUpdate
			if cmd.Flags().Changed("title") {
				u.Title = &title
			}
			if cmd.Flags().Changed("desc") {
				u.Description = &desc
			}
			if cmd.Flags().Changed("diff") {
				u.UserDifficulty = &diff
			}
			if cmd.Flags().Changed("estimate") {
				u.TimeEstimateHours = &estimate
			}
			if cmd.Flags().Changed("done") {
				u.IsCompleted = &done
			}

			q, err := a.service.UpdateQuest(ctx, a.cfg.UserID, questID, u)
			if err != nil {
				if errors.Is(err, quest.ErrLockedDifficulty) {
					return fmt.Errorf("%w (use --unlock --diff N to discard the GM verdict)", err)
				}
				return err
			}

			fmt.Fprintln(out, ui.Heading(ui.IconDone, "Quest updated"))
			fmt.Fprintln(out, ui.LabelValue("Status", ui.ValidationText(q.ValidationStatus)))
			if q.ValidationStatus == storage.ValidationQueued && !q.Difficulty.IsLocked {
				fmt.Fprintln(out, ui.Muted.Render("Difficulty-affecting change: revalidation queued."))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&desc, "desc", "", "New description")
	cmd.Flags().IntVarP(&diff, "diff", "d", 0, "New difficulty (1-5)")
	cmd.Flags().Float64VarP(&estimate, "estimate", "e", 0, "New time estimate in hours")
	cmd.Flags().BoolVar(&done, "done", false, "Mark completed")
	cmd.Flags().BoolVar(&unlock, "unlock", false, "Discard the GM verdict and revalidate at --diff")

	return cmd
}
