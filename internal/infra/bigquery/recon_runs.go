package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// ReconRunRow mirrors the recon.recon_runs table. One row per reconciliation
// attempt against a single export file; the run lifecycle mirrors the
// engine's all-or-nothing gate (a run with parse errors is FAILED with the
// errors in error_message, never partially reconciled).
type ReconRunRow struct {
	ReconRunID string `bigquery:"recon_run_id"`
	ExportURI  string `bigquery:"export_uri"`

	StartedAt  time.Time              `bigquery:"started_ts"`
	FinishedAt bigquery.NullTimestamp `bigquery:"finished_ts"`

	Status       string `bigquery:"status"` // RUNNING | FAILED | SUCCESS
	ErrorMessage string `bigquery:"error_message"`

	TransactionsParsed bigquery.NullInt64 `bigquery:"transactions_parsed"`
	RowsRejected       bigquery.NullInt64 `bigquery:"rows_rejected"`
	Matched            bigquery.NullInt64 `bigquery:"matched"`
	Unmatched          bigquery.NullInt64 `bigquery:"unmatched"`
	Conflicts          bigquery.NullInt64 `bigquery:"conflicts"`
}

// RunCounters summarizes a finished run for the recon_runs row.
type RunCounters struct {
	TransactionsParsed int
	RowsRejected       int
	Matched            int
	Unmatched          int
	Conflicts          int
}
