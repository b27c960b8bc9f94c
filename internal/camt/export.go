package camt

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ParseExport reads a whole export and partitions its rows into parsed
// transactions and row-level parse errors. Row order is preserved in both
// slices, and a bad row never aborts the batch: a file with 500 good rows
// and 3 bad rows yields 500 transactions and 3 errors.
//
// The returned error is reserved for structural problems that make the file
// unreadable as a whole: a missing header, a missing required column, or a
// row the CSV reader cannot tokenize. Whether a non-empty error list blocks
// further processing is the caller's decision; the reconciliation pipeline
// treats any ParseError as blocking.
func ParseExport(r io.Reader, layout Layout, markers MarkerConfig) ([]Transaction, []ParseError, error) {
	cr := csv.NewReader(r)
	cr.Comma = layout.Delimiter
	// Short rows are handled per-field below rather than failing the batch.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("ParseExport: read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range layout.columns() {
		if _, ok := col[name]; !ok {
			return nil, nil, fmt.Errorf("ParseExport: missing column %q", name)
		}
	}

	var (
		txs       []Transaction
		parseErrs []ParseError
	)

	for rowIndex := 1; ; rowIndex++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("ParseExport: read row %d: %w", rowIndex, err)
		}

		record := make(map[string]string, len(col))
		for name, i := range col {
			if i < len(fields) {
				record[name] = fields[i]
			}
		}

		tx, perr := parseRow(record, rowIndex, markers, layout)
		if perr != nil {
			parseErrs = append(parseErrs, *perr)
			continue
		}
		if tx != nil {
			txs = append(txs, *tx)
		}
	}

	return txs, parseErrs, nil
}

// DecodeLatin1 converts the export's raw bytes from ISO-8859-1, the charset
// the bank exports in, to UTF-8.
func DecodeLatin1(raw []byte) ([]byte, error) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("DecodeLatin1: %w", err)
	}
	return decoded, nil
}
