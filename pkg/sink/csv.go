package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/TassioCarmo/ticker-sync/pkg/records"
)

// CSVSink writes the final record set to a single CSV file with the canonical
// column order, via temp-and-rename so a crash never leaves a partial output.
type CSVSink struct {
	path   string
	logger zerolog.Logger
}

// NewCSVSink creates a sink writing to path.
func NewCSVSink(path string) (*CSVSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}

	return &CSVSink{
		path:   path,
		logger: log.With().Str("component", "csv-sink").Logger(),
	}, nil
}

// Consume writes recs to the output file.
func (s *CSVSink) Consume(ctx context.Context, recs []records.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := records.WriteCSV(&buf, recs, records.Columns); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename output: %w", err)
	}

	s.logger.Info().
		Str("path", s.path).
		Int("records", len(recs)).
		Msg("Wrote final record set")

	return nil
}
