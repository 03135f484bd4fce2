package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "workbench",
	Short: "Open, edit and close documents shared between parts",
	Long: `workbench keeps track of documents that are open in several editors and
views at once. Closing a part only asks about unsaved changes when the last
part showing a document goes away, unless you want to be asked earlier.

Sessions are YAML scripts of open, edit and close steps that are replayed
with 'workbench run'.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid session files, failed saves)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "workbench version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPrefsCmd())
}
