package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ascend/internal/ui"
)

const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "ascend",
	Short:         "Ascend — offline-first gamified task tracker",
	Long:          "Ascend is a local-first CLI task tracker with RPG progression, GM difficulty validation, and background sync.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.AddCommand(
		newAddCmd(),
		newListCmd(),
		newEditCmd(),
		newRmCmd(),
		newStatusCmd(),
		newSessionCmd(),
		newValidateCmd(),
		newSyncCmd(),
		newAntiQuestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
