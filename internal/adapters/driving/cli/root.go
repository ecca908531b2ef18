// Package cli implements the narrata command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/narrata-labs/narrata-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Persistent flags shared by all commands.
var (
	flagConfigDir string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "narrata",
	Short: "Convert EPUB books into chaptered M4B audiobooks",
	Long: `Narrata reads an EPUB, narrates each chapter with a text-to-speech
service, and packages the result into a single M4B audiobook with
chapter markers.

Conversion progress is recorded, so an interrupted run picks up where
it left off when invoked again with the same output path.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.narrata)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
