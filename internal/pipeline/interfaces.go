package pipeline

import (
	"context"

	"github.com/dlarionov/payment-recon/internal/domain"
	infra "github.com/dlarionov/payment-recon/internal/infra/bigquery"
)

// ParticipantSource supplies the identifiers eligible for matching. Narrow
// on purpose: the pipeline reads participant state, it never writes it
// (writes happen only through a reconcile.Session commit).
type ParticipantSource interface {
	ListKnownIdentifiers(ctx context.Context) ([]domain.ParticipantID, error)
}

// RunRecorder tracks the lifecycle of one reconciliation run. This interface
// enables testing the pipeline without BigQuery.
type RunRecorder interface {
	StartRun(ctx context.Context, exportURI string) (string, error)
	MarkRunFailed(ctx context.Context, reconRunID string, runErr error)
	MarkRunSucceeded(ctx context.Context, reconRunID string, counters infra.RunCounters) error
}

// BigQueryRunRecorder is the concrete RunRecorder backed by the recon_runs
// table.
type BigQueryRunRecorder struct{}

func NewBigQueryRunRecorder() *BigQueryRunRecorder {
	return &BigQueryRunRecorder{}
}

func (r *BigQueryRunRecorder) StartRun(ctx context.Context, exportURI string) (string, error) {
	return infra.StartReconRun(ctx, exportURI)
}

func (r *BigQueryRunRecorder) MarkRunFailed(ctx context.Context, reconRunID string, runErr error) {
	infra.MarkReconRunFailed(ctx, reconRunID, runErr)
}

func (r *BigQueryRunRecorder) MarkRunSucceeded(ctx context.Context, reconRunID string, counters infra.RunCounters) error {
	return infra.MarkReconRunSucceeded(ctx, reconRunID, counters)
}
