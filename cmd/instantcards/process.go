package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regexyl/instantcards/internal/jobs"
	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <source>",
		Short: "Run one source through the card pipeline",
		Long: "Process a single source end to end without the daemon. The source may be " +
			"a media URL, a local audio file, a .srt subtitle file, or inline SRT text.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := strings.TrimSpace(args[0])
			if source == "" {
				return fmt.Errorf("source is required")
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store, err := jobs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}
			defer store.Close()

			pipe, err := pipeline.NewFromConfig(cfg, store, logger)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}

			job, err := store.NewJob(cmd.Context(), source, "")
			if err != nil {
				return fmt.Errorf("create job: %w", err)
			}

			result, err := pipe.Run(cmd.Context(), job)
			if err != nil {
				return fmt.Errorf("process job %s: %w", job.ID, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s completed\n", result.JobID)
			rows := [][]string{
				{"Blocks", strconv.Itoa(result.BlocksCount)},
				{"Duration", fmt.Sprintf("%.1fs", result.Duration)},
				{"Tokens", strconv.Itoa(result.TotalAtoms)},
				{"New tokens", strconv.Itoa(result.NewAtoms)},
				{"Audio segments", strconv.Itoa(result.AudioSegmentsCount)},
			}
			fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}
