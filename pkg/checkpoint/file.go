package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/TassioCarmo/ticker-sync/pkg/records"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	progressFile = "progress.json"
	recordsFile  = "records.csv"
)

// FileStore persists snapshots to a directory as a small progress document
// plus a companion CSV holding the partial record set. Both files are written
// via temp-and-rename, and the record set is committed before the progress
// document so the count claimed by the document is always backed.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates a file-backed store rooted at dir, creating it if
// missing.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}

	return &FileStore{
		dir:    dir,
		logger: log.With().Str("component", "checkpoint-file").Logger(),
	}, nil
}

// Save writes the snapshot durably.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	header := records.Header(snap.Records, records.Columns)
	if err := records.WriteCSV(&buf, snap.Records, header); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := s.writeAtomic(recordsFile, buf.Bytes()); err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	doc := progressDoc{
		ContinuationToken: snap.ContinuationToken,
		RecordCount:       len(snap.Records),
		UpdatedAt:         time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := s.writeAtomic(progressFile, data); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}

	savesTotal.WithLabelValues("file").Inc()
	s.logger.Debug().
		Int("records", doc.RecordCount).
		Bool("has_token", doc.ContinuationToken != "").
		Msg("Checkpoint saved")

	return nil
}

// Load restores the most recent snapshot, or (nil, nil) when none exists.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, progressFile))
	if errors.Is(err, fs.ErrNotExist) {
		loadsTotal.WithLabelValues("file", "empty").Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}

	var doc progressDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}

	var recs []records.Record
	f, err := os.Open(filepath.Join(s.dir, recordsFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No companion file: only valid for an empty checkpoint.
	case err != nil:
		return nil, fmt.Errorf("open records: %w", err)
	default:
		defer f.Close()
		recs, err = records.ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("read records: %w", err)
		}
	}

	if len(recs) > doc.RecordCount {
		s.logger.Warn().
			Int("claimed", doc.RecordCount).
			Int("stored", len(recs)).
			Msg("Record store ahead of progress document - truncating to claimed count")
	}
	recs, err = validateCount(doc.RecordCount, recs)
	if err != nil {
		loadsTotal.WithLabelValues("file", "corrupt").Inc()
		return nil, err
	}

	loadsTotal.WithLabelValues("file", "found").Inc()
	s.logger.Info().
		Int("records", len(recs)).
		Bool("has_token", doc.ContinuationToken != "").
		Msg("Checkpoint loaded")

	return &Snapshot{
		ContinuationToken: doc.ContinuationToken,
		Records:           recs,
		UpdatedAt:         doc.UpdatedAt,
	}, nil
}

// Discard removes all persisted state.
func (s *FileStore) Discard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, name := range []string{progressFile, recordsFile} {
		err := os.Remove(filepath.Join(s.dir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}

	discardsTotal.WithLabelValues("file").Inc()
	return nil
}

// writeAtomic writes data to name via a temp file and rename, syncing before
// the rename so a crash never exposes a partial file.
func (s *FileStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
