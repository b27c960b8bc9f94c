package bigquery

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
)

// StartReconRun creates a recon_runs row with status=RUNNING and returns its
// ID.
func StartReconRun(ctx context.Context, exportURI string) (string, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("StartReconRun: bigquery client: %w", err)
	}
	defer client.Close()

	return StartReconRunWithClient(ctx, client, exportURI)
}

// StartReconRunWithClient is StartReconRun with a caller-managed client.
func StartReconRunWithClient(ctx context.Context, client *bigquery.Client, exportURI string) (string, error) {
	reconRunID := uuid.NewString()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			recon_run_id,
			export_uri,
			started_ts,
			status
		)
		VALUES (
			@recon_run_id,
			@export_uri,
			@started_ts,
			@status
		)
	`, datasetID, reconRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "recon_run_id", Value: reconRunID},
		{Name: "export_uri", Value: exportURI},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: "RUNNING"},
	}

	if err := runDML(ctx, q, "StartReconRun"); err != nil {
		return "", err
	}

	return reconRunID, nil
}

// MarkReconRunFailed updates a recon_runs row to status=FAILED. Best-effort:
// a bookkeeping failure is logged, not propagated, so it never masks the
// original run error.
func MarkReconRunFailed(ctx context.Context, reconRunID string, runErr error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		log.Printf("MarkReconRunFailed: bigquery client error for run %s: %v", reconRunID, err)
		return
	}
	defer client.Close()

	MarkReconRunFailedWithClient(ctx, client, reconRunID, runErr)
}

// MarkReconRunFailedWithClient is MarkReconRunFailed with a caller-managed
// client.
func MarkReconRunFailedWithClient(ctx context.Context, client *bigquery.Client, reconRunID string, runErr error) {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE recon_run_id = @recon_run_id
	`, datasetID, reconRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "recon_run_id", Value: reconRunID},
	}

	if err := runDML(ctx, q, "MarkReconRunFailed"); err != nil {
		log.Printf("MarkReconRunFailed: run %s: %v", reconRunID, err)
	}
}

// MarkReconRunSucceeded updates a recon_runs row to status=SUCCESS and
// records the run counters.
func MarkReconRunSucceeded(ctx context.Context, reconRunID string, counters RunCounters) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("MarkReconRunSucceeded: bigquery client: %w", err)
	}
	defer client.Close()

	return MarkReconRunSucceededWithClient(ctx, client, reconRunID, counters)
}

// MarkReconRunSucceededWithClient is MarkReconRunSucceeded with a
// caller-managed client.
func MarkReconRunSucceededWithClient(ctx context.Context, client *bigquery.Client, reconRunID string, counters RunCounters) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    transactions_parsed = @transactions_parsed,
		    rows_rejected = @rows_rejected,
		    matched = @matched,
		    unmatched = @unmatched,
		    conflicts = @conflicts
		WHERE recon_run_id = @recon_run_id
	`, datasetID, reconRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "transactions_parsed", Value: counters.TransactionsParsed},
		{Name: "rows_rejected", Value: counters.RowsRejected},
		{Name: "matched", Value: counters.Matched},
		{Name: "unmatched", Value: counters.Unmatched},
		{Name: "conflicts", Value: counters.Conflicts},
		{Name: "recon_run_id", Value: reconRunID},
	}

	return runDML(ctx, q, "MarkReconRunSucceeded")
}
