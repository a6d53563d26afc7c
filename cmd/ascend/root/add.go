package root

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ascend/internal/quest"
	"ascend/internal/ui"
)

func newAddCmd() *cobra.Command {
	var diff int
	var questType string
	var desc string
	var estimate float64
	var due string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a quest (queues GM validation)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("title is required")
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

			in := quest.CreateQuestInput{
				OwnerID:           a.cfg.UserID,
				Type:              questType,
				Title:             args[0],
				Description:       desc,
				UserDifficulty:    diff,
				TimeEstimateHours: estimate,
			}
			if due != "" {
				d, err := time.Parse("2006-01-02", due)
				if err != nil {
					return fmt.Errorf("parse due date: %w", err)
				}
				in.DueDate = &d
			}

			q, err := a.service.CreateQuest(ctx, in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconQuest, "Quest added"))
			fmt.Fprintln(out, ui.LabelValue("ID", q.ID))
			fmt.Fprintln(out, ui.LabelValue("Difficulty", ui.Difficulty(q.Difficulty.UserAssigned)))
			fmt.Fprintln(out, ui.LabelValue("Status", ui.ValidationText(q.ValidationStatus)))
			fmt.Fprintln(out, ui.Muted.Render("GM validation queued; run `ascend sync` to process."))
			return nil
		},
	}

	cmd.Flags().IntVarP(&diff, "diff", "d", 1, "Difficulty (1-5)")
	cmd.Flags().StringVarP(&questType, "type", "t", "main", "Quest type (main|side|habit)")
	cmd.Flags().StringVar(&desc, "desc", "", "Description")
	cmd.Flags().Float64VarP(&estimate, "estimate", "e", 0, "Time estimate in hours")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")

	return cmd
}
