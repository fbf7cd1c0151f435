package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"szurutools/internal/downloader"
	"szurutools/internal/events"
	"szurutools/internal/history"
	"szurutools/internal/importer"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var safety string

	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Download a gallery with gallery-dl and upload it to the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			board, err := ctx.board()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			fetcher, err := downloader.NewFromConfig(cfg, logger)
			if err != nil {
				return err
			}
			imp := importer.New(fetcher, board, importer.Options{
				DefaultSafety:      cfg.Import.DefaultSafety,
				ExpandImplications: cfg.Import.ExpandImplications,
				KeepDownloads:      cfg.Import.KeepDownloads,
			}, logger)

			runCtx := runContext(cmd, history.KindImport)
			req := importer.Request{URL: args[0], Safety: safety}
			var sink events.Sink
			if !ctx.jsonOutput() {
				sink = newConsoleSink(cmd.OutOrStdout())
			}
			started := time.Now()
			result, err := imp.Import(runCtx, req, sink)
			ctx.recordRun(runCtx, history.NewRun(history.KindImport, false, req, result, started, err))
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary([]summaryPair{
				{"Downloaded", strconv.Itoa(result.Downloaded)},
				{"Uploaded", strconv.Itoa(result.Uploaded)},
				{"Errors", strconv.Itoa(result.Errors)},
			}))
			if result.Errors > 0 {
				return fmt.Errorf("%d of %d files failed to upload", result.Errors, result.Downloaded)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&safety, "safety", "", "Post safety: safe, sketchy or unsafe (default from config)")
	return cmd
}
