package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"relay/internal/history"
	"relay/internal/queue"
	"relay/internal/textutil"
)

const (
	queueLineWidth = 50
	titleWidth     = 40
	errorWidth     = 60
)

func formatSeconds(seconds int) string {
	if seconds <= 0 {
		return "0s (disabled)"
	}
	return (time.Duration(seconds) * time.Second).String()
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Truncate(time.Second).String()
}

func formatBytes(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

func buildQueueRows(items []queue.Descriptor) [][]string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		title := item.TitleOverride
		if title == "" {
			title = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			textutil.Truncate(title, titleWidth),
			textutil.Truncate(item.Locator, queueLineWidth),
		})
	}
	return rows
}

func buildHistoryRows(outcomes []history.Outcome) [][]string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		detail := o.ReceiptURL
		if o.Status == history.StatusFailed {
			detail = strings.TrimSpace(o.ErrorKind + ": " + o.ErrorMessage)
		}
		if detail == "" {
			detail = "-"
		}
		finished := "-"
		if !o.FinishedAt.IsZero() {
			finished = humanize.Time(o.FinishedAt)
		}
		title := o.Title
		if title == "" {
			title = o.Locator
		}
		rows = append(rows, []string{
			finished,
			string(o.Status),
			textutil.Truncate(title, titleWidth),
			valueOrDash(o.Sink),
			formatBytes(o.SizeBytes),
			textutil.Truncate(detail, errorWidth),
		})
	}
	return rows
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
