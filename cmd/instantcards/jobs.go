package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regexyl/instantcards/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := jobs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs yet")
				return nil
			}

			colorize := shouldColorize(out)
			rendered := renderTable(
				[]string{"ID", "Source", "Type", "Status", "Created"},
				buildJobRows(records, colorize),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(out, rendered)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")
	return cmd
}

func buildJobRows(records []*jobs.Job, colorize bool) [][]string {
	rows := make([][]string, 0, len(records))
	for _, job := range records {
		created := ""
		if !job.CreatedAt.IsZero() {
			created = job.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			shortID(job.ID),
			truncate(job.Source, 48),
			string(job.SourceType),
			renderJobStatus(job.Status, colorize),
			created,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// truncate flattens whitespace (inline subtitle sources span lines) and
// shortens the value to max runes.
func truncate(value string, max int) string {
	flattened := strings.Join(strings.Fields(value), " ")
	runes := []rune(flattened)
	if max <= 3 || len(runes) <= max {
		return flattened
	}
	return string(runes[:max-3]) + "..."
}
