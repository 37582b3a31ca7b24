// Package records models the catalog entries collected during a run: an
// ordered set of field-to-value mappings with a canonical column order for
// tabular output.
package records

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Columns is the canonical column order for the final output. Every record
// handed to a sink is padded to this set.
var Columns = []string{
	"ticker",
	"name",
	"market",
	"locale",
	"primary_exchange",
	"type",
	"active",
	"currency_name",
	"cik",
	"composite_figi",
	"share_class_figi",
	"last_updated_utc",
}

// Record maps field names to string values. A missing key means the source
// did not report that field; Get distinguishes absent from empty.
type Record map[string]string

// Get returns the value for field and whether it is present.
func (r Record) Get(field string) (string, bool) {
	v, ok := r[field]
	return v, ok
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// UnmarshalJSON decodes an arbitrary JSON object, stringifying scalar values.
// The catalog mixes strings, booleans, and numbers in its result objects;
// downstream only ever deals in strings. Null and nested values are dropped.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	rec := make(Record, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			rec[k] = val
		case bool:
			rec[k] = strconv.FormatBool(val)
		case float64:
			rec[k] = formatNumber(val)
		case nil:
			// Absent, not empty.
		default:
			// Nested objects/arrays are not part of the tabular model.
		}
	}

	*r = rec
	return nil
}

// formatNumber renders a JSON number without a trailing ".0" for integers.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Pad ensures every record in recs carries every column in cols, filling
// missing fields with the empty value. Records are modified in place.
func Pad(recs []Record, cols []string) {
	for _, rec := range recs {
		for _, col := range cols {
			if _, ok := rec[col]; !ok {
				rec[col] = ""
			}
		}
	}
}

// Header returns the canonical columns followed by any extra fields observed
// across recs, sorted for a stable order.
func Header(recs []Record, cols []string) []string {
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}

	extraSet := map[string]bool{}
	for _, rec := range recs {
		for k := range rec {
			if !known[k] {
				extraSet[k] = true
			}
		}
	}

	extras := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extras = append(extras, k)
	}
	sort.Strings(extras)

	header := make([]string, 0, len(cols)+len(extras))
	header = append(header, cols...)
	header = append(header, extras...)
	return header
}
