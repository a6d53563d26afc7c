package root

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ascend/internal/gm"
	"ascend/internal/leveling"
	"ascend/internal/ui"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show profile, performance, and sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			out := cmd.OutOrStdout()

			p, err := a.service.UserRepo().GetOrCreate(ctx, a.cfg.UserID)
			if err != nil {
				return err
			}
			level := leveling.CurrentLevelFromExp(p.ExperiencePoints)
			nextReq := leveling.TotalExpForLevel(level + 1)
			toNext := nextReq - p.ExperiencePoints
			if toNext < 0 {
				toNext = 0
			}

			fmt.Fprintln(out, ui.Heading(ui.IconSparkle, "Profile"))
			fmt.Fprintln(out, ui.LabelValue("Level", level))
			fmt.Fprintln(out, ui.LabelValue("XP", fmt.Sprintf("%.0f (next at %.0f, %.0f to go)", p.ExperiencePoints, nextReq, toNext)))
			fmt.Fprintln(out, ui.LabelValue("Streak", fmt.Sprintf("%s %d days (best %d)", ui.IconFire, p.Streak.CurrentStreak, p.Streak.LongestStreak)))
			fmt.Fprintln(out, "")

			mctx, err := a.metrics.Derive(ctx, a.cfg.UserID)
			if err != nil {
				return err
			}
			recent, err := a.service.SessionRepo().ListSince(ctx, a.cfg.UserID, time.Now().UTC().Add(-14*24*time.Hour))
			if err != nil {
				return err
			}

			fmt.Fprintln(out, ui.H2.Render("📊 Performance"))
			fmt.Fprintln(out, ui.LabelValue("Weekly velocity", fmt.Sprintf("%.1f XP/h", mctx.WeeklyVelocity)))
			fmt.Fprintln(out, ui.LabelValue("Consistency (30d)", fmt.Sprintf("%.0f/100", mctx.MonthlyConsistency)))
			fmt.Fprintln(out, ui.LabelValue("Consistency (14d)", fmt.Sprintf("%.0f/100", gm.DisplayConsistency14(recent))))
			fmt.Fprintln(out, ui.LabelValue("Burnout risk", ui.BurnoutText(mctx.BurnoutRisk)+ui.Muted.Render(fmt.Sprintf(" (score %d)", mctx.BurnoutScore))))
			fmt.Fprintln(out, ui.LabelValue("Open quests", fmt.Sprintf("%d (%d overdue)", mctx.ActiveQuestCount, mctx.OverdueQuestCount)))
			fmt.Fprintln(out, "")

			depth, err := a.queue.Len(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.H2.Render(ui.IconSync + " Sync"))
			fmt.Fprintln(out, ui.LabelValue("Pending operations", depth))

			terminal, err := a.queue.TerminalFailures(ctx)
			if err != nil {
				return err
			}
			if len(terminal) > 0 {
				fmt.Fprintln(out, ui.Bad.Render(fmt.Sprintf("%s %d operation(s) gave up after max retries:", ui.IconWarn, len(terminal))))
				for i := range terminal {
					op := &terminal[i]
					cause := ""
					if op.Error != nil {
						cause = *op.Error
					}
					fmt.Fprintf(out, "- %s %s/%s %s\n", op.Operation, op.Collection, op.DocumentID, ui.Muted.Render(cause))
				}
			}
			return nil
		},
	}

	return cmd
}
