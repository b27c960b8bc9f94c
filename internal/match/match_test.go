package match

import (
	"reflect"
	"testing"

	"github.com/dlarionov/payment-recon/internal/camt"
	"github.com/dlarionov/payment-recon/internal/domain"
)

func tx(purpose string) camt.Transaction {
	return camt.Transaction{Purpose: purpose, PayerName: "payer of " + purpose}
}

func ids(raw ...string) []domain.ParticipantID {
	out := make([]domain.ParticipantID, len(raw))
	for i, r := range raw {
		out[i] = domain.ParticipantID(r)
	}
	return out
}

func TestSubstringFinder(t *testing.T) {
	finder := SubstringFinder{}
	known := ids("aaa-111", "bbb-222", "ccc-333")

	tests := []struct {
		name    string
		purpose string
		want    []domain.ParticipantID
	}{
		{"identifier embedded in free text", "Fahrt Anmeldung aaa-111 danke", ids("aaa-111")},
		{"identifier alone", "bbb-222", ids("bbb-222")},
		{"two identifiers", "aaa-111 und bbb-222", ids("aaa-111", "bbb-222")},
		{"no identifier", "Mitgliedsbeitrag 2024", nil},
		{"empty purpose", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := finder.Find(tt.purpose, known)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Find(%q) = %v, want %v", tt.purpose, got, tt.want)
			}
		})
	}
}

func TestMatch_CleanBatch(t *testing.T) {
	txs := []camt.Transaction{tx("Fahrt p1"), tx("Fahrt p2")}
	result := Match(txs, ids("p1", "p2", "p3"), SubstringFinder{})

	if !result.Clean() {
		t.Fatalf("expected clean result, got %+v", result)
	}
	if len(result.Matched) != 2 {
		t.Fatalf("got %d matched, want 2", len(result.Matched))
	}
	if result.Matched[0].Participant != "p1" || result.Matched[1].Participant != "p2" {
		t.Errorf("matched pairs out of order: %v", result.Matched)
	}
}

func TestMatch_Unmatched(t *testing.T) {
	txs := []camt.Transaction{tx("Spende ohne Referenz"), tx("Fahrt p1")}
	result := Match(txs, ids("p1"), SubstringFinder{})

	if len(result.Unmatched) != 1 {
		t.Fatalf("got %d unmatched, want 1", len(result.Unmatched))
	}
	if result.Unmatched[0].Purpose != "Spende ohne Referenz" {
		t.Errorf("wrong transaction unmatched: %v", result.Unmatched)
	}
	if result.Clean() {
		t.Error("result with unmatched transactions must not be clean")
	}
}

func TestMatch_MultiIdentifierConflict(t *testing.T) {
	txs := []camt.Transaction{tx("Fahrt p1 und p2 zusammen")}
	result := Match(txs, ids("p1", "p2"), SubstringFinder{})

	if len(result.Matched) != 0 {
		t.Fatalf("multi-identifier transaction must not match: %v", result.Matched)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(result.Conflicts))
	}
	c := result.Conflicts[0]
	if c.Kind != ConflictMultiIdentifier {
		t.Errorf("Kind = %q, want %q", c.Kind, ConflictMultiIdentifier)
	}
	if !reflect.DeepEqual(c.Participants, ids("p1", "p2")) {
		t.Errorf("Participants = %v", c.Participants)
	}
	if len(c.Transactions) != 1 {
		t.Errorf("Transactions = %v, want the one offending transaction", c.Transactions)
	}
}

func TestMatch_DuplicateIdentifierConflict(t *testing.T) {
	txs := []camt.Transaction{tx("Fahrt p1"), tx("Fahrt p1 nochmal")}
	result := Match(txs, ids("p1"), SubstringFinder{})

	if len(result.Matched) != 0 {
		t.Fatalf("duplicated identifier must not match: %v", result.Matched)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(result.Conflicts))
	}
	c := result.Conflicts[0]
	if c.Kind != ConflictDuplicateIdentifier {
		t.Errorf("Kind = %q, want %q", c.Kind, ConflictDuplicateIdentifier)
	}
	if len(c.Transactions) != 2 {
		t.Errorf("got %d transactions in conflict, want both duplicates", len(c.Transactions))
	}
}

// A transaction naming only one identifier still must not match when that
// identifier also appears inside another, multi-identifier transaction.
func TestMatch_DuplicateAcrossConflictTransaction(t *testing.T) {
	txs := []camt.Transaction{
		tx("Fahrt p1"),
		tx("Fahrt p1 und p2"),
		tx("Fahrt p3"),
	}
	result := Match(txs, ids("p1", "p2", "p3"), SubstringFinder{})

	if len(result.Matched) != 1 || result.Matched[0].Participant != "p3" {
		t.Fatalf("Matched = %v, want only p3", result.Matched)
	}
	if len(result.Unmatched) != 0 {
		t.Fatalf("Unmatched = %v, want none", result.Unmatched)
	}

	kinds := map[ConflictKind]int{}
	for _, c := range result.Conflicts {
		kinds[c.Kind]++
	}
	if kinds[ConflictMultiIdentifier] != 1 {
		t.Errorf("got %d multi-identifier conflicts, want 1", kinds[ConflictMultiIdentifier])
	}
	if kinds[ConflictDuplicateIdentifier] != 1 {
		t.Errorf("got %d duplicate-identifier conflicts, want 1", kinds[ConflictDuplicateIdentifier])
	}

	for _, c := range result.Conflicts {
		if c.Kind != ConflictDuplicateIdentifier {
			continue
		}
		if !reflect.DeepEqual(c.Participants, ids("p1")) {
			t.Errorf("duplicate conflict names %v, want p1", c.Participants)
		}
		if len(c.Transactions) != 2 {
			t.Errorf("duplicate conflict carries %d transactions, want 2", len(c.Transactions))
		}
	}
}

// Every input transaction lands in exactly one of the three outcome classes.
func TestMatch_CompletePartition(t *testing.T) {
	txs := []camt.Transaction{
		tx("Fahrt p1"),
		tx("Fahrt p2 und p3"),
		tx("keine Referenz"),
		tx("Fahrt p4"),
		tx("Fahrt p4 doppelt"),
	}
	result := Match(txs, ids("p1", "p2", "p3", "p4"), SubstringFinder{})

	total := len(result.Matched) + len(result.Unmatched)
	for _, c := range result.Conflicts {
		if c.Kind == ConflictDuplicateIdentifier || c.Kind == ConflictMultiIdentifier {
			total += len(c.Transactions)
		}
	}
	if total != len(txs) {
		t.Errorf("outcome classes cover %d transactions, want %d", total, len(txs))
	}
	if len(result.Matched) != 1 || result.Matched[0].Participant != "p1" {
		t.Errorf("Matched = %v, want only p1", result.Matched)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	txs := []camt.Transaction{
		tx("Fahrt p2"),
		tx("Fahrt p1"),
		tx("Fahrt p1 zweites Mal"),
	}
	known := ids("p1", "p2", "p3")

	first := Match(txs, known, SubstringFinder{})
	for i := 0; i < 10; i++ {
		again := Match(txs, known, SubstringFinder{})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestMatch_EmptyInputs(t *testing.T) {
	result := Match(nil, ids("p1"), SubstringFinder{})
	if !result.Clean() || len(result.Matched) != 0 {
		t.Errorf("empty batch should be clean and empty: %+v", result)
	}

	result = Match([]camt.Transaction{tx("anything")}, nil, SubstringFinder{})
	if len(result.Unmatched) != 1 {
		t.Errorf("with no known identifiers everything is unmatched: %+v", result)
	}
}
