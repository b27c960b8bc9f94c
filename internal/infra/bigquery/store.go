package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dlarionov/payment-recon/internal/domain"
	"github.com/dlarionov/payment-recon/internal/reconcile"
)

// ParticipantStore is the BigQuery-backed implementation of
// reconcile.ParticipantStore. It holds a shared client so a session commit
// does not open a new connection per participant write.
type ParticipantStore struct {
	client *bigquery.Client
}

// NewParticipantStore creates a ParticipantStore with a shared BigQuery
// client.
func NewParticipantStore(ctx context.Context) (*ParticipantStore, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewParticipantStore: creating client: %w", err)
	}
	return &ParticipantStore{client: client}, nil
}

// Close closes the underlying BigQuery client.
func (s *ParticipantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// ListKnownIdentifiers returns the identifiers of confirmed participants.
func (s *ParticipantStore) ListKnownIdentifiers(ctx context.Context) ([]domain.ParticipantID, error) {
	return ListConfirmedParticipantIDsWithClient(ctx, s.client)
}

// IsPaid reports whether a payment date is recorded for the participant.
func (s *ParticipantStore) IsPaid(ctx context.Context, id domain.ParticipantID) (bool, error) {
	return IsPaidWithClient(ctx, s.client, id)
}

// SetPaid records the payment date for the participant.
func (s *ParticipantStore) SetPaid(ctx context.Context, id domain.ParticipantID, when civil.Date) error {
	return SetPaidWithClient(ctx, s.client, id, when)
}

// SetUnpaid clears the payment date for the participant.
func (s *ParticipantStore) SetUnpaid(ctx context.Context, id domain.ParticipantID) error {
	return SetUnpaidWithClient(ctx, s.client, id)
}

// RecordCommit appends the outcome of a session commit to the commit log.
func (s *ParticipantStore) RecordCommit(ctx context.Context, rows []*CommitLogRow) error {
	return InsertCommitLogWithClient(ctx, s.client, rows)
}

var _ reconcile.ParticipantStore = (*ParticipantStore)(nil)
