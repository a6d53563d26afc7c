package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ascend/internal/ui"
)

func newAntiQuestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "antiquest",
		Aliases: []string{"aq"},
		Short:   "Track negative habits that cost XP",
	}
	cmd.AddCommand(newAntiQuestAddCmd(), newAntiQuestHitCmd(), newAntiQuestListCmd())
	return cmd
}

func newAntiQuestAddCmd() *cobra.Command {
	var penalty float64

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Register an anti-quest",
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

			aq, err := a.service.CreateAntiQuest(ctx, a.cfg.UserID, args[0], penalty)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconSkull, "Anti-quest registered"))
			fmt.Fprintln(out, ui.LabelValue("ID", aq.ID))
			fmt.Fprintln(out, ui.LabelValue("Penalty", fmt.Sprintf("%.0f XP per occurrence", aq.PenaltyXP)))
			return nil
		},
	}

	cmd.Flags().Float64VarP(&penalty, "penalty", "p", 10, "XP penalty per occurrence")

	return cmd
}

func newAntiQuestHitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hit <antiquest-id>",
		Short: "Record an occurrence and take the XP penalty",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("antiquest id is required")
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

			outcome, err := a.service.RecordAntiQuestOccurrence(ctx, a.cfg.UserID, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Bad.Render(ui.IconSkull+" Occurrence recorded"))
			fmt.Fprintln(out, ui.LabelValue("XP lost", fmt.Sprintf("%.0f", outcome.ActualPenalty)))
			if outcome.ActualPenalty < outcome.RequestedPenalty {
				fmt.Fprintln(out, ui.Muted.Render("Penalty capped at the level floor; levels are never lost."))
			}
			fmt.Fprintln(out, ui.LabelValue("XP", fmt.Sprintf("%.0f → %.0f", outcome.XPBefore, outcome.XPAfter)))
			return nil
		},
	}

	return cmd
}

func newAntiQuestListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List anti-quests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := a.service.AntiQuestRepo().ListByUser(ctx, a.cfg.UserID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("No anti-quests tracked."))
				return nil
			}
			fmt.Fprintln(out, ui.Heading(ui.IconSkull, "Anti-quests"))
			for i := range list {
				aq := &list[i]
				fmt.Fprintf(out, "- %s %s  %s\n",
					ui.H2.Render(aq.Title),
					ui.Muted.Render(aq.ID),
					ui.Muted.Render(fmt.Sprintf("-%.0f XP, %d occurrence(s)", aq.PenaltyXP, aq.OccurrenceCount)),
				)
			}
			return nil
		},
	}

	return cmd
}
