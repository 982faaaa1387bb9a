package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

func scanOutcome(scanner interface{ Scan(dest ...any) error }) (Outcome, error) {
	var (
		o           Outcome
		status      string
		title       sql.NullString
		errorKind   sql.NullString
		errorMsg    sql.NullString
		sink        sql.NullString
		receiptID   sql.NullString
		receiptURL  sql.NullString
		seconds     float64
		branded     int
		fallback    int
		refetched   int
		fitted      int
		startedRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(
		&o.ID,
		&o.JobID,
		&o.Descriptor,
		&o.Locator,
		&title,
		&status,
		&errorKind,
		&errorMsg,
		&sink,
		&receiptID,
		&receiptURL,
		&o.SizeBytes,
		&seconds,
		&branded,
		&fallback,
		&refetched,
		&fitted,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Outcome{}, err
	}
	o.Title = title.String
	o.Status = Status(status)
	o.ErrorKind = errorKind.String
	o.ErrorMessage = errorMsg.String
	o.Sink = sink.String
	o.ReceiptID = receiptID.String
	o.ReceiptURL = receiptURL.String
	o.Duration = time.Duration(seconds * float64(time.Second))
	o.Branded = branded != 0
	o.BrandFallback = fallback != 0
	o.Refetched = refetched != 0
	o.Fitted = fitted != 0
	o.StartedAt = parseTime(startedRaw)
	o.FinishedAt = parseTime(finishedRaw)
	return o, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

// retryOnBusy retries fn with linear backoff while SQLite reports a lock.
func retryOnBusy(ctx context.Context, fn func() error) error {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !isBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(i+1) * 50 * time.Millisecond):
		}
	}
	return err
}
