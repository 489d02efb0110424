package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/clarityfilter/internal/database"
	"github.com/nao1215/clarityfilter/internal/settings"
)

// NewSettingsCmd creates the settings command and its subcommands.
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored filter settings",
		Long: `Settings manages the terms, mode, whitelist and switch stored in the
database. Every change is saved as a new revision; running watch commands
pick it up.`,
	}

	cmd.AddCommand(
		newSettingsShowCmd(),
		newSettingsUpdateCmd("add <term>...", "Add terms to filter", cobra.MinimumNArgs(1),
			func(s settings.Settings, args []string) (settings.Settings, error) {
				for _, term := range args {
					s = s.WithTerm(term)
				}
				return s, nil
			}),
		newSettingsUpdateCmd("remove <term>...", "Remove filtered terms", cobra.MinimumNArgs(1),
			func(s settings.Settings, args []string) (settings.Settings, error) {
				for _, term := range args {
					s = s.WithoutTerm(term)
				}
				return s, nil
			}),
		newSettingsUpdateCmd("mode <hide|blur|pixelate|replace>", "Set the concealment mode", cobra.ExactArgs(1),
			func(s settings.Settings, args []string) (settings.Settings, error) {
				mode, err := settings.ParseMode(args[0])
				if err != nil {
					return s, err
				}
				return s.WithMode(mode), nil
			}),
		newSettingsUpdateCmd("enable", "Switch filtering on", cobra.NoArgs,
			func(s settings.Settings, _ []string) (settings.Settings, error) {
				return s.WithEnabled(true), nil
			}),
		newSettingsUpdateCmd("disable", "Switch filtering off", cobra.NoArgs,
			func(s settings.Settings, _ []string) (settings.Settings, error) {
				return s.WithEnabled(false), nil
			}),
		newSettingsUpdateCmd("allow <site>...", "Whitelist sites", cobra.MinimumNArgs(1),
			func(s settings.Settings, args []string) (settings.Settings, error) {
				for _, site := range args {
					s = s.WithWhitelist(site)
				}
				return s, nil
			}),
		newSettingsUpdateCmd("disallow <site>...", "Remove sites from the whitelist", cobra.MinimumNArgs(1),
			func(s settings.Settings, args []string) (settings.Settings, error) {
				for _, site := range args {
					s = s.WithoutWhitelist(site)
				}
				return s, nil
			}),
		newSettingsUpdateCmd("pixel-cell <size>", "Set the pixelate cell size", cobra.ExactArgs(1),
			func(s settings.Settings, args []string) (settings.Settings, error) {
				size, err := strconv.Atoi(args[0])
				if err != nil {
					return s, fmt.Errorf("invalid pixel cell size %q: %w", args[0], err)
				}
				return s.WithPixelCellSize(size)
			}),
	)
	return cmd
}

// newSettingsShowCmd creates "settings show".
func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				s, revision, err := db.LoadSettings(ctx)
				if err != nil {
					return err
				}
				printSettings(cmd.OutOrStdout(), s, revision)
				return nil
			})
		},
	}
}

// newSettingsUpdateCmd creates a subcommand that changes the stored
// settings with update and saves a new revision.
func newSettingsUpdateCmd(
	use, short string,
	args cobra.PositionalArgs,
	update func(settings.Settings, []string) (settings.Settings, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.DB) error {
				current, _, err := db.LoadSettings(ctx)
				if err != nil {
					return err
				}
				next, err := update(current, args)
				if err != nil {
					return err
				}
				next = settings.Normalize(next)
				if next.Equal(current) {
					fmt.Fprintln(cmd.OutOrStdout(), "Settings unchanged")
					return nil
				}
				revision, err := db.SaveSettings(ctx, next)
				if err != nil {
					return err
				}
				printSettings(cmd.OutOrStdout(), next, revision)
				return nil
			})
		},
	}
}

// withDB builds the configuration, opens the database and runs fn.
func withDB(cmd *cobra.Command, fn func(context.Context, *database.DB) error) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()
	if _, err := storedSettings(ctx, db, logger); err != nil {
		return err
	}
	return fn(ctx, db)
}

// printSettings writes s in a readable form.
func printSettings(w io.Writer, s settings.Settings, revision int64) {
	state := "disabled"
	if s.Enabled {
		state = "enabled"
	}
	fmt.Fprintf(w, "Revision:   %d\n", revision)
	fmt.Fprintf(w, "Filtering:  %s\n", state)
	fmt.Fprintf(w, "Mode:       %s\n", s.Mode)
	fmt.Fprintf(w, "Pixel cell: %dpx\n", s.PixelCellSize)
	fmt.Fprintf(w, "Terms:      %s\n", listOrNone(s.Terms))
	fmt.Fprintf(w, "Whitelist:  %s\n", listOrNone(s.Whitelist))
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
