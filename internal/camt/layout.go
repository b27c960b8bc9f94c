// Package camt parses the bank's CAMT CSV export into payment transactions.
//
// The export is row-oriented, semicolon-delimited text with a header row.
// Parsing is tolerant: a malformed row produces exactly one ParseError keyed
// by its 1-based data-row index and never aborts the batch.
package camt

// Layout names the columns the parser reads from the export's header row and
// the field delimiter. Defaults match the CAMT CSV format of the
// organization's bank; integrators with a different export supply their own.
type Layout struct {
	Delimiter rune

	BookingDateColumn     string
	TransactionTypeColumn string
	PurposeColumn         string
	PayerNameColumn       string
	IBANColumn            string
	BICColumn             string
	AmountColumn          string
	CurrencyColumn        string
}

// DefaultLayout returns the column layout of the bank's CAMT CSV export.
func DefaultLayout() Layout {
	return Layout{
		Delimiter:             ';',
		BookingDateColumn:     "Buchungstag",
		TransactionTypeColumn: "Buchungstext",
		PurposeColumn:         "Verwendungszweck",
		PayerNameColumn:       "Beguenstigter/Zahlungspflichtiger",
		IBANColumn:            "Kontonummer/IBAN",
		BICColumn:             "BIC (SWIFT-Code)",
		AmountColumn:          "Betrag",
		CurrencyColumn:        "Waehrung",
	}
}

// columns lists every column the layout requires in the header row.
func (l Layout) columns() []string {
	return []string{
		l.BookingDateColumn,
		l.TransactionTypeColumn,
		l.PurposeColumn,
		l.PayerNameColumn,
		l.IBANColumn,
		l.BICColumn,
		l.AmountColumn,
		l.CurrencyColumn,
	}
}

// MarkerConfig carries the transaction-type allow-lists and the home
// currency. Which transaction types are incoming credits and which are
// expected-but-irrelevant is domain knowledge about the bank account; the
// defaults below encode the organization's account, and integrators must
// review them when pointing the engine at a different account.
type MarkerConfig struct {
	// CreditMarkers are transaction-type values that identify an incoming
	// credit transfer. Only rows carrying one of these become Transactions.
	CreditMarkers []string

	// BenignMarkers are transaction-type values that are expected in the
	// export but irrelevant to reconciliation (fee postings, outgoing
	// transfers, cash withdrawals). Rows carrying one of these are skipped
	// silently: neither a Transaction nor a ParseError.
	BenignMarkers []string

	// HomeCurrency is the only currency accepted for incoming credits.
	HomeCurrency string
}

// DefaultMarkers returns the marker configuration for the organization's
// bank account.
func DefaultMarkers() MarkerConfig {
	return MarkerConfig{
		CreditMarkers: []string{
			"GUTSCHR. UEBERWEISUNG",
			"ECHTZEIT-GUTSCHRIFT",
		},
		BenignMarkers: []string{
			"ENTGELTABSCHLUSS",
			"ONLINE-UEBERWEISUNG",
			"RECHNUNG",
			"FOLGELASTSCHRIFT",
			"BARGELDAUSZAHLUNG KASSE",
		},
		HomeCurrency: "EUR",
	}
}

func (m MarkerConfig) isCredit(marker string) bool {
	for _, c := range m.CreditMarkers {
		if marker == c {
			return true
		}
	}
	return false
}

func (m MarkerConfig) isBenign(marker string) bool {
	for _, b := range m.BenignMarkers {
		if marker == b {
			return true
		}
	}
	return false
}
