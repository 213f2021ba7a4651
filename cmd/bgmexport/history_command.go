package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bgmexport/internal/archive"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var archivePath string
	var limit int
	var keep int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List exports recorded in the snapshot archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := strings.TrimSpace(archivePath)
			if path == "" {
				path = cfg.Paths.ArchivePath
			}
			if path == "" {
				return errors.New("no archive configured; pass --archive or set paths.archive_path")
			}

			store, err := archive.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("prune") {
				removed, err := store.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d run(s)\n", removed)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					formatStamp(run.StartedAt),
					run.Username,
					strconv.Itoa(run.RecordCount),
					run.Format,
					yesNo(run.Detail),
					fmt.Sprintf("%d/%d", run.CachedPages, run.CachedPages+run.FetchedPages),
					formatDuration(run.Duration()),
					run.ID,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "User", "Records", "Format", "Detail", "Cached pages", "Duration", "Run"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "Archive database path (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().IntVar(&keep, "prune", 0, "Delete all but the newest N runs before listing")
	return cmd
}
