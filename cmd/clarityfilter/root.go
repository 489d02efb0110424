package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/clarityfilter/internal/config"
	"github.com/nao1215/clarityfilter/internal/matcher"
)

// NewRootCmd creates the root command for ClarityFilter.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clarityfilter",
		Short: "Conceal page content mentioning terms you chose not to see",
		Long: `ClarityFilter scans HTML documents for a list of terms and conceals the
smallest card, list item or text block holding a match.

Terms, mode and whitelist are stored in a local database shared by all
commands. Use "clarityfilter settings" to manage them, "filter" to process
files or URLs once, and "watch" to follow a document as content is added.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to configuration file (default: .clarityfilter in current or home directory)")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(),
		"Directory holding the settings and history database")
	cmd.PersistentFlags().String("engine", matcher.EngineBacktracking.String(),
		"Regexp engine: backtracking or re2")

	cmd.AddCommand(NewFilterCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewSettingsCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
