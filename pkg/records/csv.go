package records

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV encodes recs with the given header. Cells for fields a record does
// not carry are written empty; decoding treats empty cells as absent, so the
// round trip through the partial-record store is lossless for reported values.
func WriteCSV(w io.Writer, recs []Record, header []string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for i, rec := range recs {
		for j, col := range header {
			row[j] = rec[col]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV decodes records previously written by WriteCSV. Empty cells are
// omitted from the record, restoring the absent-field distinction.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var recs []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) && row[i] != "" {
				rec[col] = row[i]
			}
		}
		recs = append(recs, rec)
	}

	return recs, nil
}
