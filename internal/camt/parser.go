package camt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one accepted incoming credit transfer from the export.
// It is immutable once constructed: only rows whose transaction-type marker
// is an incoming-credit marker and whose currency is the home currency are
// ever turned into a Transaction.
type Transaction struct {
	BookingDate civil.Date

	// Purpose is the free-text payment reference supplied by the payer.
	// Participant identifiers are expected to appear verbatim inside it.
	Purpose string

	PayerName string
	IBAN      string
	BIC       string

	// Amount is the booked amount, normalized from the export's
	// comma-decimal form.
	Amount decimal.Decimal
}

func (t Transaction) String() string {
	return fmt.Sprintf("transaction<%s %s %q from %q>",
		t.BookingDate, t.Amount, t.Purpose, t.PayerName)
}

// Parse-error reasons. These are stable values the review UI keys on.
const (
	ReasonInvalidDate   = "invalid date"
	ReasonInvalidAmount = "invalid amount"
	ReasonWrongCurrency = "wrong currency"
	ReasonUnknownType   = "unrecognized transaction type"
)

// ParseError describes one rejected export row. Row is the 1-based index of
// the data row (the header row is not counted). Value carries the offending
// raw field for the operator's error page; Detail, when set, adds a hint
// about what exactly is wrong with it.
type ParseError struct {
	Row    int
	Reason string
	Value  string
	Detail string
}

func (e ParseError) String() string {
	s := fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	if e.Value != "" {
		s += fmt.Sprintf(": %q", e.Value)
	}
	if e.Detail != "" {
		s += " (" + e.Detail + ")"
	}
	return s
}

// Booking-date formats accepted by the export, tried in order.
var dateFormats = []string{"02.01.06", "02.01.2006"}

func parseBookingDate(raw string) (civil.Date, error) {
	var lastErr error
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return civil.DateOf(t), nil
		}
		lastErr = err
	}
	return civil.Date{}, lastErr
}

// normalizeAmount converts the export's comma-decimal amount ("12,50") into
// a decimal value. The source format always uses a comma separator, so an
// amount that already contains a dot is rejected rather than guessed at;
// a dot alongside a comma is almost certainly a thousands separator, and the
// error says so to help the operator fixing the export.
func normalizeAmount(raw string) (decimal.Decimal, error) {
	if strings.Contains(raw, ".") {
		if strings.Contains(raw, ",") {
			return decimal.Decimal{}, errors.New("thousands separator not supported, write the amount as 1000,00")
		}
		return decimal.Decimal{}, errors.New("unexpected decimal separator, expected comma-decimal form")
	}
	normalized := strings.ReplaceAll(raw, ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// parseRow turns one data row into a Transaction, a ParseError, or neither
// (benign skip). record maps column names to raw field values; rowIndex is
// the 1-based data-row index used in error messages.
func parseRow(record map[string]string, rowIndex int, markers MarkerConfig, layout Layout) (*Transaction, *ParseError) {
	marker := record[layout.TransactionTypeColumn]

	if markers.isBenign(marker) {
		return nil, nil
	}
	if !markers.isCredit(marker) {
		return nil, &ParseError{Row: rowIndex, Reason: ReasonUnknownType, Value: marker}
	}

	rawDate := record[layout.BookingDateColumn]
	bookingDate, err := parseBookingDate(rawDate)
	if err != nil {
		return nil, &ParseError{Row: rowIndex, Reason: ReasonInvalidDate, Value: rawDate}
	}

	rawAmount := record[layout.AmountColumn]
	amount, err := normalizeAmount(rawAmount)
	if err != nil {
		return nil, &ParseError{Row: rowIndex, Reason: ReasonInvalidAmount, Value: rawAmount, Detail: err.Error()}
	}

	if currency := record[layout.CurrencyColumn]; currency != markers.HomeCurrency {
		return nil, &ParseError{Row: rowIndex, Reason: ReasonWrongCurrency, Value: currency}
	}

	// Purpose, payer, IBAN and BIC are copied verbatim; the export's own
	// quoting is the only trimming that ever happens to them.
	return &Transaction{
		BookingDate: bookingDate,
		Purpose:     record[layout.PurposeColumn],
		PayerName:   record[layout.PayerNameColumn],
		IBAN:        record[layout.IBANColumn],
		BIC:         record[layout.BICColumn],
		Amount:      amount,
	}, nil
}
