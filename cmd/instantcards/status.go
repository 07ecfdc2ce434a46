package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/regexyl/instantcards/internal/api"
	"github.com/regexyl/instantcards/internal/config"
	"github.com/regexyl/instantcards/internal/jobs"
	"github.com/regexyl/instantcards/internal/preflight"
)

const statusRequestTimeout = 2 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and job queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			daemonStatus, daemonErr := fetchDaemonStatus(cmd.Context(), cfg.API.Bind)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			if daemonErr != nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", daemonStatus.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Queue DB", statusInfo, daemonStatus.QueueDBPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, daemonStatus.LockFilePath, colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range environmentStatusLines(cfg, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Job Queue", colorize) {
				fmt.Fprintln(out, line)
			}
			stats, err := jobQueueStats(cmd.Context(), cfg, daemonStatus, daemonErr)
			if err != nil {
				return err
			}
			rows := buildJobStatusRows(stats)
			if len(rows) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

// fetchDaemonStatus asks a running daemon for its status over the control API.
// Any error means the daemon is treated as not running.
func fetchDaemonStatus(ctx context.Context, bind string) (api.DaemonStatus, error) {
	var status api.DaemonStatus

	base, err := apiBaseURL(bind)
	if err != nil {
		return status, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, statusRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, base+"/api/status", nil)
	if err != nil {
		return status, fmt.Errorf("build status request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return status, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("daemon status returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode daemon status: %w", err)
	}
	return status, nil
}

// apiBaseURL turns a bind address into a client-facing base URL. Wildcard
// hosts are rewritten to loopback since the CLI always runs on the same
// machine as the daemon.
func apiBaseURL(bind string) (string, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return "", errors.New("api bind address is not configured")
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "", fmt.Errorf("parse api bind address: %w", err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}

func environmentStatusLines(cfg *config.Config, colorize bool) []string {
	results := preflight.RunAll(cfg)
	lines := make([]string, 0, len(results)+1)
	for _, check := range results {
		lines = append(lines, renderStatusLine(check.Name, statusKindForCheck(check), check.Detail, colorize))
	}
	if cfg.NotificationsEnabled() {
		lines = append(lines, renderStatusLine("Notifications", statusOK, "Enabled", colorize))
	} else {
		lines = append(lines, renderStatusLine("Notifications", statusInfo, "Disabled", colorize))
	}
	return lines
}

func statusKindForCheck(check preflight.Result) statusKind {
	switch {
	case check.Passed:
		return statusOK
	case check.Optional:
		return statusWarn
	default:
		return statusError
	}
}

// jobQueueStats prefers the running daemon's view and falls back to opening
// the store directly when no daemon answers.
func jobQueueStats(ctx context.Context, cfg *config.Config, daemonStatus api.DaemonStatus, daemonErr error) (map[string]int, error) {
	if daemonErr == nil {
		return daemonStatus.JobStats, nil
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return api.MergeJobStats(stats), nil
}

func buildJobStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), strconv.Itoa(stats[key])})
	}
	return rows
}
