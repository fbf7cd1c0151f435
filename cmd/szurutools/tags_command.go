package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"szurutools/internal/events"
	"szurutools/internal/history"
	"szurutools/internal/implications"
	"szurutools/internal/tags"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "Tag utilities",
	}
	tagsCmd.AddCommand(newTagsClassifyCommand(ctx))
	tagsCmd.AddCommand(newTagsPruneCommand(ctx))
	return tagsCmd
}

// classifyOutput is the JSON form of a local classification.
type classifyOutput struct {
	UploadTags []string            `json:"upload_tags"`
	Categories map[string][]string `json:"categories"`
}

func newTagsClassifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "classify <raw...>",
		Short:       "Show how raw tags would be normalized and categorized",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			classification := tags.ClassifyForUpload(args)
			if ctx.jsonOutput() {
				out := classifyOutput{
					UploadTags: classification.UploadTags,
					Categories: make(map[string][]string, len(classification.Categories)),
				}
				for _, name := range classification.CategoryNames() {
					out.Categories[name] = classification.Members(name)
				}
				return writeJSON(cmd, out)
			}
			rows := make([][]string, 0, len(classification.Categories))
			for _, name := range classification.CategoryNames() {
				rows = append(rows, []string{name, strings.Join(classification.Members(name), ", ")})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Upload tags: %s\n", strings.Join(classification.UploadTags, " "))
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Category", "Tags"}, rows, nil))
			}
			return nil
		},
	}
}

func newTagsPruneCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune-unused",
		Short: "Delete tags no post uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := ctx.board()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx := runContext(cmd, history.KindSweep)
			req := implications.SweepRequest{DryRun: dryRun}
			var sink events.Sink
			if !ctx.jsonOutput() {
				sink = newConsoleSink(cmd.OutOrStdout())
			}
			started := time.Now()
			result := implications.NewSweeper(board, logger).Sweep(runCtx, req, sink)
			ctx.recordRun(runCtx, history.NewRun(history.KindSweep, dryRun, req, result, started, nil))

			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary([]summaryPair{
				{"Unused tags", strconv.Itoa(result.TagsFound)},
				{"Deleted", strconv.Itoa(result.TagsDeleted)},
				{"Dry run", yesNo(dryRun)},
			}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List unused tags without deleting them")
	return cmd
}
