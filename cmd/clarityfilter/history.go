package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/clarityfilter/internal/config"
	"github.com/nao1215/clarityfilter/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent scans",
		Long: `History lists the scans recorded by filter and watch, newest first.

Examples:
  clarityfilter history
  clarityfilter history --host news.example.com -n 5`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("host", "", "Only show scans of this host")
	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit, "Number of scans to show")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	return withDB(cmd, func(ctx context.Context, db *database.DB) error {
		records, err := db.RecentScans(ctx, host, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No scans recorded")
			return nil
		}
		for _, r := range records {
			state := fmt.Sprintf("newly=%d active=%d", r.Newly, r.Active)
			if r.Skipped != "" {
				state = "skipped (" + r.Skipped + ")"
			}
			if r.Error != "" {
				state += " error: " + r.Error
			}
			trigger := r.Trigger
			if trigger == "" {
				trigger = "filter"
			}
			fmt.Fprintf(out, "#%d  %s  %-8s %-8s %s  %s\n",
				r.ID,
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				trigger,
				r.Mode,
				state,
				r.URL,
			)
		}
		return nil
	})
}
