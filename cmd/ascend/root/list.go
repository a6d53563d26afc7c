package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ascend/internal/ui"
)

func newListCmd() *cobra.Command {
	var showCompleted bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			quests, err := a.service.QuestRepo().ListByOwner(ctx, a.cfg.UserID, showCompleted)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(quests) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("No quests. Add one with `ascend add`."))
				return nil
			}

			fmt.Fprintln(out, ui.Heading(ui.IconQuest, "Quests"))
			for i := range quests {
				q := &quests[i]
				diff := q.Difficulty.UserAssigned
				locked := ""
				if q.Difficulty.GMValidated != nil {
					diff = *q.Difficulty.GMValidated
				}
				if q.Difficulty.IsLocked {
					locked = " " + ui.BadgeLocked
				}
				fmt.Fprintf(out, "- %s %s  %s %s%s\n",
					ui.H2.Render(q.Title),
					ui.Muted.Render(q.ID),
					ui.Difficulty(diff),
					ui.ValidationText(q.ValidationStatus),
					locked,
				)
				if q.Schedule.DueDate != nil {
					fmt.Fprintf(out, "  %s\n", ui.Muted.Render("due "+q.Schedule.DueDate.Format("2006-01-02")))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showCompleted, "completed", false, "Show completed quests instead of open ones")

	return cmd
}
