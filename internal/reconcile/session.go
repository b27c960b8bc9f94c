// Package reconcile stages proposed payment-state changes and commits them
// through the participant store on explicit confirmation.
//
// A Session is scoped to a single human-reviewed workflow instance: one
// export upload, one review, one commit. It is not safe for concurrent use,
// and the embedding application must ensure only one session is open against
// a given participant at a time.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dlarionov/payment-recon/internal/domain"
	"github.com/dlarionov/payment-recon/internal/match"
)

// ParticipantStore is the engine's view of the external participant state.
// All durable state lives behind this interface; the engine owns none.
type ParticipantStore interface {
	// ListKnownIdentifiers returns the identifiers of participants eligible
	// for matching, typically those in confirmed status.
	ListKnownIdentifiers(ctx context.Context) ([]domain.ParticipantID, error)

	IsPaid(ctx context.Context, id domain.ParticipantID) (bool, error)
	SetPaid(ctx context.Context, id domain.ParticipantID, when civil.Date) error
	SetUnpaid(ctx context.Context, id domain.ParticipantID) error
}

// State of a session. Open accepts proposals; Committed and Discarded are
// terminal.
type State string

const (
	StateOpen      State = "open"
	StateCommitted State = "committed"
	StateDiscarded State = "discarded"
)

// ErrSessionNotOpen is returned when Propose, Commit or Discard is called on
// a terminal session. That always indicates a workflow bug in the caller,
// never a condition to swallow.
var ErrSessionNotOpen = errors.New("reconcile: session is not open")

// ManualSelection is an operator decision for an unmatched transaction or a
// conflicting identifier: mark the chosen participant paid, or revert an
// earlier mark.
type ManualSelection struct {
	Participant domain.ParticipantID
	MarkPaid    bool
}

// WriteFailure records one participant write that failed during Commit.
// MarkPaid reports which operation was attempted: true for SetPaid, false
// for SetUnpaid. Audit consumers need the distinction to log what was
// actually tried, not just who it was tried on.
type WriteFailure struct {
	Participant domain.ParticipantID
	MarkPaid    bool
	Err         error
}

// Report is the outcome of a Commit. Writes are independent, so partial
// success is possible and must stay visible: Applied lists participants
// whose state was written, Failed lists those whose write failed.
type Report struct {
	Paid   []domain.ParticipantID
	Unpaid []domain.ParticipantID
	Failed []WriteFailure
}

// Session holds the proposed payment-state changes for one reconciliation
// attempt. Create with NewSession, seed with Propose, then either Commit or
// Discard exactly once.
type Session struct {
	id    string
	state State
	store ParticipantStore
	log   zerolog.Logger

	proposedPaid   map[domain.ParticipantID]struct{}
	proposedUnpaid map[domain.ParticipantID]struct{}

	// insertion order, for deterministic commit and display
	paidOrder   []domain.ParticipantID
	unpaidOrder []domain.ParticipantID
}

// NewSession creates an empty open session against the given store.
func NewSession(store ParticipantStore, log zerolog.Logger) *Session {
	return &Session{
		id:             uuid.NewString(),
		state:          StateOpen,
		store:          store,
		log:            log,
		proposedPaid:   make(map[domain.ParticipantID]struct{}),
		proposedUnpaid: make(map[domain.ParticipantID]struct{}),
	}
}

// ID returns the session's identifier, used to correlate audit records.
func (s *Session) ID() string { return s.id }

// State returns the session's lifecycle state.
func (s *Session) State() State { return s.state }

// ProposedPaid returns the participants staged to be marked paid, in
// proposal order.
func (s *Session) ProposedPaid() []domain.ParticipantID {
	return append([]domain.ParticipantID(nil), s.paidOrder...)
}

// ProposedUnpaid returns the participants staged to be reverted to unpaid,
// in proposal order.
func (s *Session) ProposedUnpaid() []domain.ParticipantID {
	return append([]domain.ParticipantID(nil), s.unpaidOrder...)
}

// Propose seeds the session from a match result plus the operator's manual
// selections. Re-running reconciliation must be idempotent: a matched or
// selected participant already in the target state is a no-op, not an error.
func (s *Session) Propose(ctx context.Context, result match.Result, manual []ManualSelection) error {
	if s.state != StateOpen {
		return fmt.Errorf("Propose on %s session: %w", s.state, ErrSessionNotOpen)
	}

	for _, pair := range result.Matched {
		if err := s.proposePaid(ctx, pair.Participant); err != nil {
			return err
		}
	}

	for _, sel := range manual {
		var err error
		if sel.MarkPaid {
			err = s.proposePaid(ctx, sel.Participant)
		} else {
			err = s.proposeUnpaid(ctx, sel.Participant)
		}
		if err != nil {
			return err
		}
	}

	s.log.Debug().
		Str("session_id", s.id).
		Int("proposed_paid", len(s.paidOrder)).
		Int("proposed_unpaid", len(s.unpaidOrder)).
		Msg("Session proposals staged")

	return nil
}

func (s *Session) proposePaid(ctx context.Context, id domain.ParticipantID) error {
	paid, err := s.store.IsPaid(ctx, id)
	if err != nil {
		return fmt.Errorf("Propose: checking paid state of %s: %w", id, err)
	}
	if paid {
		return nil
	}
	if _, ok := s.proposedPaid[id]; ok {
		return nil
	}
	s.proposedPaid[id] = struct{}{}
	s.paidOrder = append(s.paidOrder, id)
	return nil
}

func (s *Session) proposeUnpaid(ctx context.Context, id domain.ParticipantID) error {
	paid, err := s.store.IsPaid(ctx, id)
	if err != nil {
		return fmt.Errorf("Propose: checking paid state of %s: %w", id, err)
	}
	if !paid {
		return nil
	}
	if _, ok := s.proposedUnpaid[id]; ok {
		return nil
	}
	s.proposedUnpaid[id] = struct{}{}
	s.unpaidOrder = append(s.unpaidOrder, id)
	return nil
}

// Commit writes every staged change through the participant store and
// transitions the session to Committed. Each write is independent: a failed
// write is recorded in the report and does not prevent the remaining writes.
// The engine never retries; re-running reconciliation is the retry path.
func (s *Session) Commit(ctx context.Context, when civil.Date) (Report, error) {
	if s.state != StateOpen {
		return Report{}, fmt.Errorf("Commit on %s session: %w", s.state, ErrSessionNotOpen)
	}

	var report Report
	for _, id := range s.paidOrder {
		if err := s.store.SetPaid(ctx, id, when); err != nil {
			s.log.Error().Err(err).Str("session_id", s.id).Str("participant_id", string(id)).Msg("SetPaid failed")
			report.Failed = append(report.Failed, WriteFailure{Participant: id, MarkPaid: true, Err: err})
			continue
		}
		report.Paid = append(report.Paid, id)
	}
	for _, id := range s.unpaidOrder {
		if err := s.store.SetUnpaid(ctx, id); err != nil {
			s.log.Error().Err(err).Str("session_id", s.id).Str("participant_id", string(id)).Msg("SetUnpaid failed")
			report.Failed = append(report.Failed, WriteFailure{Participant: id, MarkPaid: false, Err: err})
			continue
		}
		report.Unpaid = append(report.Unpaid, id)
	}

	s.state = StateCommitted

	s.log.Info().
		Str("session_id", s.id).
		Int("paid", len(report.Paid)).
		Int("unpaid", len(report.Unpaid)).
		Int("failed", len(report.Failed)).
		Msg("Session committed")

	return report, nil
}

// Discard abandons the session with zero writes and transitions it to
// Discarded.
func (s *Session) Discard() error {
	if s.state != StateOpen {
		return fmt.Errorf("Discard on %s session: %w", s.state, ErrSessionNotOpen)
	}
	s.state = StateDiscarded
	s.log.Info().Str("session_id", s.id).Msg("Session discarded")
	return nil
}
