package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dlarionov/payment-recon/internal/domain"
)

// ListConfirmedParticipantIDs returns the identifiers of participants whose
// payment status may be updated by reconciliation, i.e. those in confirmed
// status. Order is stable (registration order) for reproducible matching.
func ListConfirmedParticipantIDs(ctx context.Context) ([]domain.ParticipantID, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListConfirmedParticipantIDs: bigquery client: %w", err)
	}
	defer client.Close()

	return ListConfirmedParticipantIDsWithClient(ctx, client)
}

// ListConfirmedParticipantIDsWithClient is ListConfirmedParticipantIDs with
// a caller-managed client.
func ListConfirmedParticipantIDsWithClient(ctx context.Context, client *bigquery.Client) ([]domain.ParticipantID, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT participant_id
		FROM %s.%s
		WHERE status = @status
		ORDER BY registered_ts, participant_id
	`, datasetID, participantsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: domain.StatusConfirmed},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListConfirmedParticipantIDs: query read: %w", err)
	}

	var ids []domain.ParticipantID
	for {
		var row struct {
			ParticipantID string `bigquery:"participant_id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListConfirmedParticipantIDs: iter next: %w", err)
		}
		ids = append(ids, domain.ParticipantID(row.ParticipantID))
	}

	return ids, nil
}

// GetParticipantWithClient fetches one participant row by ID.
func GetParticipantWithClient(ctx context.Context, client *bigquery.Client, id domain.ParticipantID) (*ParticipantRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT participant_id, name, email, status, paid, payment_deadline, registered_ts, updated_ts
		FROM %s.%s
		WHERE participant_id = @participant_id
		LIMIT 1
	`, datasetID, participantsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "participant_id", Value: string(id)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetParticipant: query read: %w", err)
	}

	var row ParticipantRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("GetParticipant: participant %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("GetParticipant: iter next: %w", err)
	}

	return &row, nil
}

// IsPaidWithClient reports whether a payment date is recorded for the
// participant.
func IsPaidWithClient(ctx context.Context, client *bigquery.Client, id domain.ParticipantID) (bool, error) {
	row, err := GetParticipantWithClient(ctx, client, id)
	if err != nil {
		return false, err
	}
	return row.Paid.Valid, nil
}

// SetPaidWithClient records the payment date for the participant.
func SetPaidWithClient(ctx context.Context, client *bigquery.Client, id domain.ParticipantID, when civil.Date) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET paid = @paid,
		    updated_ts = @updated_ts
		WHERE participant_id = @participant_id
	`, datasetID, participantsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "paid", Value: when},
		{Name: "updated_ts", Value: time.Now()},
		{Name: "participant_id", Value: string(id)},
	}

	return runDML(ctx, q, "SetPaid")
}

// SetUnpaidWithClient clears the payment date for the participant.
func SetUnpaidWithClient(ctx context.Context, client *bigquery.Client, id domain.ParticipantID) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET paid = NULL,
		    updated_ts = @updated_ts
		WHERE participant_id = @participant_id
	`, datasetID, participantsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "updated_ts", Value: time.Now()},
		{Name: "participant_id", Value: string(id)},
	}

	return runDML(ctx, q, "SetUnpaid")
}

// runDML runs a DML query and waits for the job, wrapping errors with the
// operation name.
func runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}

	return nil
}
