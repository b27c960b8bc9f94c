// Package match classifies parsed bank transactions against the set of
// known participant identifiers.
//
// The organization requires a strict 1:1 correspondence between a payment
// and a participant. Any transaction whose purpose text contains more than
// one identifier, and any identifier that appears in more than one
// transaction, is reported as a conflict for manual resolution; conflicts
// are never auto-resolved, because picking a heuristic winner risks
// crediting the wrong participant with money.
package match

import (
	"strings"

	"github.com/dlarionov/payment-recon/internal/camt"
	"github.com/dlarionov/payment-recon/internal/domain"
)

// Finder extracts the participant identifiers present in a purpose text.
// The default implementation is raw substring containment; keeping it behind
// an interface lets an integrator swap in exact-token matching without
// touching the conflict-detection logic.
type Finder interface {
	Find(purpose string, ids []domain.ParticipantID) []domain.ParticipantID
}

// SubstringFinder matches an identifier if its string form appears anywhere
// inside the purpose text. Payers type free text, so the identifier is only
// guaranteed to appear somewhere inside it, not as a whole field.
type SubstringFinder struct{}

func (SubstringFinder) Find(purpose string, ids []domain.ParticipantID) []domain.ParticipantID {
	var found []domain.ParticipantID
	for _, id := range ids {
		if strings.Contains(purpose, string(id)) {
			found = append(found, id)
		}
	}
	return found
}

// ConflictKind distinguishes the two ways the 1:1 invariant can fail.
type ConflictKind string

const (
	// ConflictMultiIdentifier: one transaction's purpose contains two or
	// more distinct known identifiers.
	ConflictMultiIdentifier ConflictKind = "multi_identifier"

	// ConflictDuplicateIdentifier: one identifier appears in two or more
	// transactions. Either a duplicate transfer or a data error; always
	// resolved manually.
	ConflictDuplicateIdentifier ConflictKind = "duplicate_identifier"
)

// Conflict carries enough detail to render a diagnostic for the operator:
// the identifiers and transactions involved.
type Conflict struct {
	Kind         ConflictKind
	Participants []domain.ParticipantID
	Transactions []camt.Transaction
}

// Pair is a transaction unambiguously associated with exactly one
// participant identifier that in turn maps to exactly one transaction.
type Pair struct {
	Participant domain.ParticipantID
	Transaction camt.Transaction
}

// Result partitions the input transactions completely: every transaction
// appears in exactly one of Matched, Unmatched, or some Conflict. Slices
// follow input order for reproducible display.
type Result struct {
	Matched   []Pair
	Unmatched []camt.Transaction
	Conflicts []Conflict
}

// Match classifies transactions against the known participant identifiers
// using the given finder. It is deterministic: the same input always yields
// the same classification.
func Match(txs []camt.Transaction, ids []domain.ParticipantID, finder Finder) Result {
	var result Result

	// Every appearance of an identifier counts toward duplicate detection,
	// including appearances inside multi-identifier transactions: a payment
	// mentioning P1 alone must not be auto-matched when another payment also
	// mentions P1.
	occurrences := make(map[domain.ParticipantID][]camt.Transaction)
	var occurrenceOrder []domain.ParticipantID

	type candidate struct {
		id domain.ParticipantID
		tx camt.Transaction
	}
	var candidates []candidate

	record := func(id domain.ParticipantID, tx camt.Transaction) {
		if _, seen := occurrences[id]; !seen {
			occurrenceOrder = append(occurrenceOrder, id)
		}
		occurrences[id] = append(occurrences[id], tx)
	}

	for _, tx := range txs {
		found := finder.Find(tx.Purpose, ids)
		switch len(found) {
		case 0:
			result.Unmatched = append(result.Unmatched, tx)
		case 1:
			candidates = append(candidates, candidate{id: found[0], tx: tx})
			record(found[0], tx)
		default:
			result.Conflicts = append(result.Conflicts, Conflict{
				Kind:         ConflictMultiIdentifier,
				Participants: found,
				Transactions: []camt.Transaction{tx},
			})
			for _, id := range found {
				record(id, tx)
			}
		}
	}

	for _, c := range candidates {
		if len(occurrences[c.id]) == 1 {
			result.Matched = append(result.Matched, Pair{Participant: c.id, Transaction: c.tx})
		}
	}

	for _, id := range occurrenceOrder {
		group := occurrences[id]
		if len(group) < 2 {
			continue
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Kind:         ConflictDuplicateIdentifier,
			Participants: []domain.ParticipantID{id},
			Transactions: group,
		})
	}

	return result
}

// Clean reports whether the result contains neither unmatched transactions
// nor conflicts. An empty conflict list is itself meaningful confirmation
// that the batch was clean.
func (r Result) Clean() bool {
	return len(r.Unmatched) == 0 && len(r.Conflicts) == 0
}
