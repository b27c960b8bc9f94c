package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

const (
	projectID         = "setorg-recon-471804"
	datasetID         = "recon"
	participantsTable = "participants"
	reconRunsTable    = "recon_runs"
	commitLogTable    = "commit_log"
)

// ParticipantRow mirrors the recon.participants table schema.
type ParticipantRow struct {
	ParticipantID string `bigquery:"participant_id"` // REQUIRED, UUID string

	Name  string `bigquery:"name"`  // NULLABLE
	Email string `bigquery:"email"` // NULLABLE

	Status string `bigquery:"status"` // REQUIRED: registered | confirmed | cancelled

	Paid            bigquery.NullDate `bigquery:"paid"`             // NULLABLE, date payment was recorded
	PaymentDeadline bigquery.NullDate `bigquery:"payment_deadline"` // NULLABLE

	RegisteredTS time.Time              `bigquery:"registered_ts"` // REQUIRED
	UpdatedTS    bigquery.NullTimestamp `bigquery:"updated_ts"`    // NULLABLE
}
