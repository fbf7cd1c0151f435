package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"szurutools/internal/events"
	"szurutools/internal/history"
	"szurutools/internal/implications"
)

func newImplicationsCommand(ctx *commandContext) *cobra.Command {
	implCmd := &cobra.Command{
		Use:   "implications",
		Short: "Tag implication maintenance",
	}
	implCmd.AddCommand(newImplicationsApplyCommand(ctx))
	return implCmd
}

func newImplicationsApplyCommand(ctx *commandContext) *cobra.Command {
	var fullScan bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply [tags...]",
		Short: "Add implied tags to every post carrying the given tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !fullScan {
				return errors.New("name at least one tag or pass --full-scan")
			}
			board, err := ctx.board()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx := runContext(cmd, history.KindImplications)
			req := implications.Request{Tags: args, FullScan: fullScan, DryRun: dryRun}
			var sink events.Sink
			if !ctx.jsonOutput() {
				sink = newConsoleSink(cmd.OutOrStdout())
			}
			started := time.Now()
			result := implications.NewPropagator(board, board, board, logger).Run(runCtx, req, sink)
			ctx.recordRun(runCtx, history.NewRun(history.KindImplications, dryRun, req, result, started, nil))

			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary([]summaryPair{
				{"Tags processed", strconv.Itoa(result.ProcessedTags)},
				{"Posts found", strconv.Itoa(result.PostsFound)},
				{"Posts updated", strconv.Itoa(result.PostsUpdated)},
				{"Implications added", strconv.Itoa(result.ImplicationsAdded)},
				{"Dry run", yesNo(dryRun)},
			}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fullScan, "full-scan", false, "Process every tag that has implications")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without updating posts")
	return cmd
}
