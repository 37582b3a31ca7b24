package records

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
)

func TestRecord_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Record
	}{
		{
			name: "strings only",
			json: `{"ticker":"AAPL","name":"Apple Inc."}`,
			want: Record{"ticker": "AAPL", "name": "Apple Inc."},
		},
		{
			name: "mixed scalar types",
			json: `{"ticker":"AAPL","active":true,"cik":320193}`,
			want: Record{"ticker": "AAPL", "active": "true", "cik": "320193"},
		},
		{
			name: "null values dropped",
			json: `{"ticker":"AAPL","cik":null}`,
			want: Record{"ticker": "AAPL"},
		},
		{
			name: "fractional number",
			json: `{"weight":0.5}`,
			want: Record{"weight": "0.5"},
		},
		{
			name: "nested values dropped",
			json: `{"ticker":"AAPL","address":{"city":"Cupertino"}}`,
			want: Record{"ticker": "AAPL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec Record
			if err := json.Unmarshal([]byte(tt.json), &rec); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !reflect.DeepEqual(rec, tt.want) {
				t.Errorf("Unmarshal() = %v, want %v", rec, tt.want)
			}
		})
	}
}

func TestPad(t *testing.T) {
	recs := []Record{
		{"ticker": "AAA"},
		{"ticker": "BBB", "name": "Bravo"},
	}

	Pad(recs, Columns)

	for i, rec := range recs {
		for _, col := range Columns {
			if _, ok := rec[col]; !ok {
				t.Errorf("record %d missing column %q after Pad", i, col)
			}
		}
	}

	if recs[1]["name"] != "Bravo" {
		t.Errorf("Pad overwrote existing value: %q", recs[1]["name"])
	}
}

func TestHeader_ExtrasSortedAfterCanonical(t *testing.T) {
	recs := []Record{
		{"ticker": "AAA", "zeta": "1"},
		{"ticker": "BBB", "alpha": "2"},
	}

	header := Header(recs, Columns)

	if len(header) != len(Columns)+2 {
		t.Fatalf("Header() length = %d, want %d", len(header), len(Columns)+2)
	}
	for i, col := range Columns {
		if header[i] != col {
			t.Errorf("Header()[%d] = %q, want %q", i, header[i], col)
		}
	}
	if header[len(Columns)] != "alpha" || header[len(Columns)+1] != "zeta" {
		t.Errorf("extras = %v, want [alpha zeta]", header[len(Columns):])
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	recs := []Record{
		{"ticker": "AAA", "name": "Alpha Corp", "active": "true"},
		{"ticker": "BBB"},
	}
	header := Header(recs, Columns)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs, header); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	if !reflect.DeepEqual(got, recs) {
		t.Errorf("round trip = %v, want %v", got, recs)
	}

	// Absent fields must stay absent, not become empty strings.
	if _, ok := got[1]["name"]; ok {
		t.Error("absent field materialized as present after round trip")
	}
}

func TestReadCSV_Empty(t *testing.T) {
	got, err := ReadCSV(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if got != nil {
		t.Errorf("ReadCSV() = %v, want nil", got)
	}
}
