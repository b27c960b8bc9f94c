package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
)

// CommitLogRow mirrors the recon.commit_log table: one append-only row per
// participant write attempted during a session commit, successful or not.
// Financial record-keeping here is append-only; partial commit success must
// stay visible afterwards.
type CommitLogRow struct {
	SessionID     string `bigquery:"session_id"`
	ReconRunID    string `bigquery:"recon_run_id"` // empty for manual sessions
	ParticipantID string `bigquery:"participant_id"`

	Action string `bigquery:"action"` // SET_PAID | SET_UNPAID

	Succeeded    bool   `bigquery:"succeeded"`
	ErrorMessage string `bigquery:"error_message"`

	CommittedTS time.Time `bigquery:"committed_ts"`
}

// InsertCommitLog appends commit-log rows via the streaming inserter.
func InsertCommitLog(ctx context.Context, rows []*CommitLogRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertCommitLog: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertCommitLogWithClient(ctx, client, rows)
}

// InsertCommitLogWithClient is InsertCommitLog with a caller-managed client.
func InsertCommitLogWithClient(ctx context.Context, client *bigquery.Client, rows []*CommitLogRow) error {
	if len(rows) == 0 {
		return nil
	}

	table := client.DatasetInProject(projectID, datasetID).Table(commitLogTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertCommitLog: inserting rows: %w", err)
	}

	return nil
}
