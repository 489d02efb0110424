package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/clarityfilter/internal/database"
	"github.com/nao1215/clarityfilter/internal/settings"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the stored settings to a JSON backup",
		Long: `Export writes the terms, whitelist, mode and pixel cell size to a JSON
backup. Without a file the backup goes to standard output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				s, err := db.Get(ctx)
				if err != nil {
					return err
				}
				if len(args) == 0 {
					return settings.Export(cmd.OutOrStdout(), s, time.Now())
				}
				f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
				if err != nil {
					return fmt.Errorf("failed to create backup file: %w", err)
				}
				defer f.Close()
				if err := settings.Export(f, s, time.Now()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d term(s) to %s\n", len(s.Terms), args[0])
				return nil
			})
		},
	}
}

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Merge a JSON backup into the stored settings",
		Long: `Import reads a backup written by export and merges its terms and
whitelist into the stored settings. Mode and pixel cell size are left as
they are. Without a file the backup is read from standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				var r io.Reader = cmd.InOrStdin()
				if len(args) == 1 {
					f, err := os.Open(args[0])
					if err != nil {
						return fmt.Errorf("failed to open backup file: %w", err)
					}
					defer f.Close()
					r = f
				}

				current, err := db.Get(ctx)
				if err != nil {
					return err
				}
				merged, result, err := settings.Import(r, current)
				if err != nil {
					return err
				}
				if _, err := db.SaveSettings(ctx, merged); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new term(s) and %d new site(s)\n",
					result.AddedTerms, result.AddedSites)
				return nil
			})
		},
	}
}
