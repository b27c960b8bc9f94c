// Package pipeline orchestrates one reconciliation run: fetch the export,
// decode and parse it, gate on row errors, and match transactions against
// the known participant identifiers. Run lifecycle is recorded in the
// recon_runs table so every attempt is auditable.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dlarionov/payment-recon/internal/camt"
	"github.com/dlarionov/payment-recon/internal/domain"
	"github.com/dlarionov/payment-recon/internal/exportfile"
	infra "github.com/dlarionov/payment-recon/internal/infra/bigquery"
	"github.com/dlarionov/payment-recon/internal/match"
)

// ErrBatchRejected is returned when the export contained row-level parse
// errors. The gate is all-or-nothing: reconciling partial data silently is
// worse than making the operator fix the export and re-upload it.
var ErrBatchRejected = errors.New("pipeline: export rejected due to row errors")

// State is the shared state threaded through the pipeline steps.
type State struct {
	ExportURI  string
	ReconRunID string

	RawBytes []byte
	Text     []byte

	Transactions []camt.Transaction
	ParseErrors  []camt.ParseError

	ParticipantIDs []domain.ParticipantID
	Result         match.Result
}

// Step is a single step in the reconciliation pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// Pipeline executes a sequence of steps in order, marking the recon run
// failed on the first error.
type Pipeline struct {
	steps    []Step
	recorder RunRecorder
}

func NewPipeline(recorder RunRecorder, steps ...Step) *Pipeline {
	return &Pipeline{steps: steps, recorder: recorder}
}

// Execute runs all steps sequentially. The run must already be started
// (state.ReconRunID set); any step error marks it FAILED.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			p.recorder.MarkRunFailed(ctx, state.ReconRunID, err)
			return fmt.Errorf("pipeline step %d: %w", i+1, err)
		}
	}
	return nil
}

// FetchExportStep fetches the export's raw bytes from storage.
type FetchExportStep struct {
	Storage exportfile.StorageService
}

func (s *FetchExportStep) Execute(ctx context.Context, state *State) error {
	raw, err := s.Storage.Fetch(ctx, state.ExportURI)
	if err != nil {
		return err
	}
	state.RawBytes = raw
	return nil
}

// DecodeExportStep converts the export from the bank's ISO-8859-1 charset.
type DecodeExportStep struct{}

func (s *DecodeExportStep) Execute(ctx context.Context, state *State) error {
	text, err := camt.DecodeLatin1(state.RawBytes)
	if err != nil {
		return err
	}
	state.Text = text
	return nil
}

// ParseExportStep runs the batch ingestor over the decoded export.
type ParseExportStep struct {
	Layout  camt.Layout
	Markers camt.MarkerConfig
}

func (s *ParseExportStep) Execute(ctx context.Context, state *State) error {
	txs, parseErrs, err := camt.ParseExport(bytes.NewReader(state.Text), s.Layout, s.Markers)
	if err != nil {
		return err
	}
	state.Transactions = txs
	state.ParseErrors = parseErrs
	return nil
}

// GateStep enforces the all-or-nothing policy: any row-level parse error
// blocks matching until the operator fixes and re-uploads the export. All
// errors are surfaced together, not just the first.
type GateStep struct{}

func (s *GateStep) Execute(ctx context.Context, state *State) error {
	if len(state.ParseErrors) == 0 {
		return nil
	}
	lines := make([]string, 0, len(state.ParseErrors))
	for _, pe := range state.ParseErrors {
		lines = append(lines, pe.String())
	}
	return fmt.Errorf("%w: %s", ErrBatchRejected, strings.Join(lines, "; "))
}

// LoadParticipantsStep loads the identifiers eligible for matching.
type LoadParticipantsStep struct {
	Source ParticipantSource
}

func (s *LoadParticipantsStep) Execute(ctx context.Context, state *State) error {
	ids, err := s.Source.ListKnownIdentifiers(ctx)
	if err != nil {
		return err
	}
	state.ParticipantIDs = ids
	return nil
}

// MatchStep classifies the parsed transactions.
type MatchStep struct {
	Finder match.Finder
}

func (s *MatchStep) Execute(ctx context.Context, state *State) error {
	state.Result = match.Match(state.Transactions, state.ParticipantIDs, s.Finder)
	return nil
}

// NewReconciliationPipeline assembles the standard pipeline for one export.
func NewReconciliationPipeline(storage exportfile.StorageService, source ParticipantSource, recorder RunRecorder, layout camt.Layout, markers camt.MarkerConfig) *Pipeline {
	return NewPipeline(
		recorder,
		&FetchExportStep{Storage: storage},
		&DecodeExportStep{},
		&ParseExportStep{Layout: layout, Markers: markers},
		&GateStep{},
		&LoadParticipantsStep{Source: source},
		&MatchStep{Finder: match.SubstringFinder{}},
	)
}

// Reconcile runs the standard pipeline against one export URI: starts a
// recon run, executes the steps, and records the outcome. On success the
// returned state carries the match result for review; proposing and
// committing payment-state changes stays a separate, human-confirmed step.
func Reconcile(ctx context.Context, exportURI string, storage exportfile.StorageService, source ParticipantSource, recorder RunRecorder, layout camt.Layout, markers camt.MarkerConfig) (*State, error) {
	reconRunID, err := recorder.StartRun(ctx, exportURI)
	if err != nil {
		return nil, err
	}

	state := &State{ExportURI: exportURI, ReconRunID: reconRunID}

	p := NewReconciliationPipeline(storage, source, recorder, layout, markers)
	if err := p.Execute(ctx, state); err != nil {
		return state, err
	}

	counters := infra.RunCounters{
		TransactionsParsed: len(state.Transactions),
		RowsRejected:       len(state.ParseErrors),
		Matched:            len(state.Result.Matched),
		Unmatched:          len(state.Result.Unmatched),
		Conflicts:          len(state.Result.Conflicts),
	}
	if err := recorder.MarkRunSucceeded(ctx, reconRunID, counters); err != nil {
		return state, err
	}

	return state, nil
}
