package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bgmexport/internal/catalog"
	"bgmexport/internal/collectionsync"
	"bgmexport/internal/export"
	"bgmexport/internal/workflow"
)

type exportFlags struct {
	format  string
	output  string
	detail  bool
	noCache bool
	archive string
}

func newRootCommand(runnerOpts ...workflow.Option) *cobra.Command {
	var configFlag string
	var debugFlag bool
	var flags exportFlags

	ctx := newCommandContext(&configFlag, &debugFlag)

	rootCmd := &cobra.Command{
		Use:   "bgmexport",
		Short: "Export your Bangumi collection to CSV and JSON",
		Long: "bgmexport downloads every entry of your Bangumi collection, optionally with\n" +
			"episode progress, and writes bangumi_export.csv and/or bangumi_export.json.\n" +
			"Requests are paced and cached, so an interrupted run resumes where it stopped.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, ctx, flags, runnerOpts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.Flags().StringVarP(&flags.format, "format", "f", "", "Export format: json, csv, or all (default from config)")
	rootCmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory (default from config)")
	rootCmd.Flags().BoolVar(&flags.detail, "detail", false, "Fetch episode progress for every subject")
	rootCmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Clear the cache and resync everything")
	rootCmd.Flags().StringVar(&flags.archive, "archive", "", "Record this run in a SQLite archive at PATH")

	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}

func runExport(cmd *cobra.Command, ctx *commandContext, flags exportFlags, runnerOpts []workflow.Option) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	formatValue := cfg.Export.Format
	if strings.TrimSpace(flags.format) != "" {
		formatValue = flags.format
	}
	format, err := export.ParseFormat(formatValue)
	if err != nil {
		return err
	}
	detail := cfg.Export.Detail
	if cmd.Flags().Changed("detail") {
		detail = flags.detail
	}

	out := cmd.OutOrStdout()
	opts := workflow.Options{
		Format:      format,
		Detail:      detail,
		NoCache:     flags.noCache,
		OutputDir:   strings.TrimSpace(flags.output),
		ArchivePath: strings.TrimSpace(flags.archive),
	}

	var ui *progressUI
	if shouldColorize(cmd.ErrOrStderr()) {
		ui = newProgressUI(cmd.ErrOrStderr())
		opts.Observer = ui
	} else {
		opts.Observer = collectionsync.NewLogObserver(logger, 25)
	}

	result, err := workflow.NewRunner(cfg, logger, runnerOpts...).Run(cmd.Context(), opts)
	// Bars redraw in place, so they stop before the summary is printed.
	if ui != nil {
		ui.Stop()
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Logged in as %s (%s)\n", result.User.Nickname, result.User.Slug())
	export.RenderSummary(out, export.Summarize(result.Records, catalog.NewStatusLabelTable()), shouldColorize(out))
	for _, path := range result.Files {
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	if result.Enrich.Degraded > 0 {
		fmt.Fprintf(out, "Episode progress unavailable for %d subject(s); rerun later to fill them in\n", result.Enrich.Degraded)
	}
	if result.Archived {
		fmt.Fprintf(out, "Archived run %s\n", result.RunID)
	}
	fmt.Fprintf(out, "Done! Exported %d records.\n", len(result.Records))
	return nil
}
