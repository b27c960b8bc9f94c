package domain

import (
	"cloud.google.com/go/civil"
)

// ParticipantID uniquely identifies a participant in the participant store.
// The reconciliation engine treats it as an opaque token that is expected to
// appear verbatim inside a transaction's purpose field; the store mints the
// actual values (UUID strings in practice) and the engine never creates or
// persists them.
type ParticipantID string

func (id ParticipantID) String() string { return string(id) }

// Participant status lifecycle. Only confirmed participants are eligible for
// payment matching.
const (
	StatusRegistered = "registered"
	StatusConfirmed  = "confirmed"
	StatusCancelled  = "cancelled"
)

// Participant is the slice of the participant record the engine cares about.
// This is a domain struct, not a storage row; the participant store maps it
// from its own schema.
type Participant struct {
	ID     ParticipantID
	Name   string
	Email  string
	Status string

	// Paid is the date the payment was recorded, or nil if unpaid.
	Paid *civil.Date

	PaymentDeadline *civil.Date
}

// IsPaid reports whether a payment has been recorded for the participant.
func (p *Participant) IsPaid() bool {
	return p.Paid != nil
}
