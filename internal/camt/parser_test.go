package camt

import (
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestParseBookingDate(t *testing.T) {
	tests := []struct {
		input   string
		want    civil.Date
		wantErr bool
	}{
		{"05.03.24", civil.Date{Year: 2024, Month: 3, Day: 5}, false},
		{"05.03.2024", civil.Date{Year: 2024, Month: 3, Day: 5}, false},
		{"31.12.99", civil.Date{Year: 1999, Month: 12, Day: 31}, false},
		{"2024-03-05", civil.Date{}, true},
		{"32.01.2024", civil.Date{}, true},
		{"", civil.Date{}, true},
		{"not a date", civil.Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseBookingDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseBookingDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseBookingDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"12,50", "12.5", false},
		{"1000,00", "1000", false},
		{"0,01", "0.01", false},
		{"7", "7", false},
		{"-25,00", "-25", false},
		// A dot means the amount is not in the export's comma-decimal form.
		{"12.50", "", true},
		{"1.000,00", "", true},
		{"", "", true},
		{"abc", "", true},
		{"12,5,0", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := normalizeAmount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("normalizeAmount(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestParseRow(t *testing.T) {
	layout := DefaultLayout()
	markers := DefaultMarkers()

	baseRecord := func() map[string]string {
		return map[string]string{
			layout.BookingDateColumn:     "14.06.24",
			layout.TransactionTypeColumn: "GUTSCHR. UEBERWEISUNG",
			layout.PurposeColumn:         "Fahrt 0b84093a-9e15-4f20-ba34-d6e3c8a2f911",
			layout.PayerNameColumn:       "Erika Musterfrau",
			layout.IBANColumn:            "DE02120300000000202051",
			layout.BICColumn:             "BYLADEM1001",
			layout.AmountColumn:          "35,00",
			layout.CurrencyColumn:        "EUR",
		}
	}

	t.Run("valid credit row", func(t *testing.T) {
		tx, perr := parseRow(baseRecord(), 1, markers, layout)
		if perr != nil {
			t.Fatalf("parseRow returned error: %v", perr)
		}
		if tx == nil {
			t.Fatal("parseRow returned no transaction")
		}
		wantDate := civil.Date{Year: 2024, Month: 6, Day: 14}
		if tx.BookingDate != wantDate {
			t.Errorf("BookingDate = %v, want %v", tx.BookingDate, wantDate)
		}
		if !tx.Amount.Equal(decimal.NewFromInt(35)) {
			t.Errorf("Amount = %s, want 35", tx.Amount)
		}
		if tx.PayerName != "Erika Musterfrau" {
			t.Errorf("PayerName = %q", tx.PayerName)
		}
	})

	t.Run("realtime credit marker accepted", func(t *testing.T) {
		record := baseRecord()
		record[layout.TransactionTypeColumn] = "ECHTZEIT-GUTSCHRIFT"
		tx, perr := parseRow(record, 1, markers, layout)
		if perr != nil || tx == nil {
			t.Fatalf("parseRow = (%v, %v), want transaction", tx, perr)
		}
	})

	t.Run("benign row skipped silently", func(t *testing.T) {
		record := baseRecord()
		record[layout.TransactionTypeColumn] = "ENTGELTABSCHLUSS"
		tx, perr := parseRow(record, 1, markers, layout)
		if tx != nil || perr != nil {
			t.Fatalf("parseRow = (%v, %v), want (nil, nil)", tx, perr)
		}
	})

	t.Run("unknown transaction type", func(t *testing.T) {
		record := baseRecord()
		record[layout.TransactionTypeColumn] = "DAUERAUFTRAG"
		tx, perr := parseRow(record, 3, markers, layout)
		if tx != nil {
			t.Fatal("expected no transaction")
		}
		if perr == nil || perr.Reason != ReasonUnknownType {
			t.Fatalf("ParseError = %v, want reason %q", perr, ReasonUnknownType)
		}
		if perr.Row != 3 {
			t.Errorf("Row = %d, want 3", perr.Row)
		}
		if perr.Value != "DAUERAUFTRAG" {
			t.Errorf("Value = %q, want the offending marker", perr.Value)
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		record := baseRecord()
		record[layout.BookingDateColumn] = "2024/06/14"
		_, perr := parseRow(record, 2, markers, layout)
		if perr == nil || perr.Reason != ReasonInvalidDate {
			t.Fatalf("ParseError = %v, want reason %q", perr, ReasonInvalidDate)
		}
		if perr.Value != "2024/06/14" {
			t.Errorf("Value = %q, want the raw date", perr.Value)
		}
	})

	t.Run("invalid amount", func(t *testing.T) {
		record := baseRecord()
		record[layout.AmountColumn] = "35.00"
		_, perr := parseRow(record, 5, markers, layout)
		if perr == nil || perr.Reason != ReasonInvalidAmount {
			t.Fatalf("ParseError = %v, want reason %q", perr, ReasonInvalidAmount)
		}
	})

	t.Run("thousands-separated amount names the problem", func(t *testing.T) {
		record := baseRecord()
		record[layout.AmountColumn] = "1.000,00"
		_, perr := parseRow(record, 6, markers, layout)
		if perr == nil || perr.Reason != ReasonInvalidAmount {
			t.Fatalf("ParseError = %v, want reason %q", perr, ReasonInvalidAmount)
		}
		if !strings.Contains(perr.Detail, "thousands separator") {
			t.Errorf("Detail = %q, want a thousands-separator hint", perr.Detail)
		}
	})

	t.Run("wrong currency", func(t *testing.T) {
		record := baseRecord()
		record[layout.CurrencyColumn] = "USD"
		_, perr := parseRow(record, 4, markers, layout)
		if perr == nil || perr.Reason != ReasonWrongCurrency {
			t.Fatalf("ParseError = %v, want reason %q", perr, ReasonWrongCurrency)
		}
		if perr.Value != "USD" {
			t.Errorf("Value = %q, want USD", perr.Value)
		}
	})
}
