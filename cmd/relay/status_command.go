package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"relay/internal/config"
	"relay/internal/daemon"
	"relay/internal/deps"
	"relay/internal/queue"
	"relay/internal/textutil"
	"relay/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var reports int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, batch, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.statusSnapshot(cmd.Context(), reports)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			renderStatus(out, status, shouldColorize(out))
			return nil
		},
	}
	cmd.Flags().IntVarP(&reports, "reports", "n", 5, "Number of recent reports to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// statusSnapshot asks the daemon for its status and falls back to a local
// view of the queue and dependencies when no daemon is listening.
func (c *commandContext) statusSnapshot(ctx context.Context, reports int) (daemon.Status, error) {
	client, err := c.dialClient()
	if err == nil {
		defer client.Close()
		resp, err := client.Status(reports)
		if err != nil {
			return daemon.Status{}, err
		}
		return resp.Status, nil
	}
	if !errors.Is(err, errDaemonNotRunning) {
		return daemon.Status{}, err
	}
	cfg, cfgErr := c.ensureConfig()
	if cfgErr != nil {
		return daemon.Status{}, cfgErr
	}
	return localStatus(ctx, cfg), nil
}

func localStatus(ctx context.Context, cfg *config.Config) daemon.Status {
	status := daemon.Status{
		LockPath:     cfg.LockPath(),
		QueuePath:    cfg.Queue.File,
		Dependencies: deps.CheckSystemDeps(cfg),
	}
	status.Workflow.Control.Cooldown = cfg.CooldownDuration()
	q := queue.New(cfg.Queue.File, cfg.Queue.Backup, "", nil)
	if items, err := q.Load(ctx); err != nil {
		status.QueueError = err.Error()
	} else {
		status.QueueLength = len(items)
	}
	if free, err := deps.FreeSpace(cfg.Paths.WorkDir); err == nil {
		status.FreeBytes = free
	}
	return status
}

func renderStatus(out io.Writer, status daemon.Status, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "running (pid "+strconv.Itoa(status.PID)+")", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
	}
	if status.QueueError != "" {
		fmt.Fprintln(out, renderStatusLine("Queue", statusError, status.QueueError, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Queue", statusInfo, fmt.Sprintf("%s in %s", pluralize(status.QueueLength, "item", "items"), status.QueuePath), colorize))
	}
	if status.FreeBytes > 0 {
		kind := statusOK
		if status.FreeBytes < deps.MinFreeBytes {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Free space", kind, humanize.IBytes(status.FreeBytes), colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Batch", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range batchLines(status.Workflow, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range dependencyLines(status.Dependencies, colorize) {
		fmt.Fprintln(out, line)
	}

	if len(status.Workflow.LastReports) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Recent Activity", colorize) {
			fmt.Fprintln(out, line)
		}
		rows := make([][]string, 0, len(status.Workflow.LastReports))
		for _, r := range status.Workflow.LastReports {
			rows = append(rows, []string{r.Time.Local().Format("15:04:05"), string(r.Kind), textutil.Truncate(r.Message, errorWidth)})
		}
		fmt.Fprint(out, renderTable([]string{"Time", "Event", "Message"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft}))
		fmt.Fprintln(out)
	}
}

func batchLines(wf workflow.StatusSummary, colorize bool) []string {
	var lines []string
	ctl := wf.Control
	switch {
	case !wf.Running:
		lines = append(lines, renderStatusLine("State", statusInfo, "idle", colorize))
	case ctl.Paused:
		lines = append(lines, renderStatusLine("State", statusWarn, "paused", colorize))
	case ctl.InCooldown:
		lines = append(lines, renderStatusLine("State", statusInfo, "cooling down, "+formatRemaining(ctl.Remaining)+" left", colorize))
	default:
		lines = append(lines, renderStatusLine("State", statusOK, "running", colorize))
	}
	if wf.Current != nil {
		current := fmt.Sprintf("%d/%d %s", wf.Index, wf.Total, textutil.Truncate(wf.Current.Title(wf.Current.Locator), queueLineWidth))
		if wf.Stage != "" {
			current += " [" + wf.Stage + "]"
		}
		lines = append(lines, renderStatusLine("Current", statusInfo, current, colorize))
	}
	if wf.Progress != nil {
		progress := fmt.Sprintf("%.1f%%", wf.Progress.Percent)
		if wf.Progress.Speed != "" {
			progress += " at " + wf.Progress.Speed
		}
		if wf.Progress.ETA != "" {
			progress += ", ETA " + wf.Progress.ETA
		}
		lines = append(lines, renderStatusLine("Progress", statusInfo, progress, colorize))
	}
	lines = append(lines, renderStatusLine("Cooldown", statusInfo, formatSeconds(int(ctl.Cooldown.Seconds())), colorize))
	if ctl.SkipPending {
		lines = append(lines, renderStatusLine("Skip", statusInfo, "armed", colorize))
	}
	if last := wf.LastBatch; !last.StartedAt.IsZero() {
		summary := fmt.Sprintf("%d delivered, %d failed, %d reconciled of %d", last.Delivered, last.Failed, last.Reconciled, last.Total)
		kind := statusOK
		if last.Failed > 0 {
			kind = statusWarn
		}
		if last.Aborted != "" {
			kind = statusError
			summary += " (aborted: " + last.Aborted + ")"
		}
		lines = append(lines, renderStatusLine("Last batch", kind, summary, colorize))
	}
	if wf.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, wf.LastError, colorize))
	}
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	if len(statuses) == 0 {
		return []string{renderStatusLine("Dependencies", statusInfo, "none reported", colorize)}
	}
	lines := make([]string, 0, len(statuses))
	for _, s := range statuses {
		kind := statusOK
		detail := s.Command
		if s.Detail != "" {
			detail = s.Detail
		}
		if !s.Available {
			kind = statusError
			if s.Optional {
				kind = statusWarn
			}
			detail = strings.TrimSpace(s.Detail)
			if s.Optional {
				detail += " (optional)"
			}
		}
		lines = append(lines, renderStatusLine(s.Name, kind, detail, colorize))
	}
	return lines
}
