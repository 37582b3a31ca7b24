package checkpoint

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/TassioCarmo/ticker-sync/pkg/records"
)

// SqliteStore persists snapshots in a single-row SQLite table keyed by run
// name. The upsert runs as one statement, giving atomic replace for free.
type SqliteStore struct {
	db     *sql.DB
	run    string
	logger zerolog.Logger
}

// SqliteOptions configures the SQLite connection.
type SqliteOptions struct {
	Path string
	// Run names the checkpoint row. Default "default".
	Run string
}

// NewSqliteStore opens (or creates) the database at opts.Path and prepares the
// schema.
func NewSqliteStore(opts SqliteOptions) (*SqliteStore, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	run := opts.Run
	if run == "" {
		run = "default"
	}

	store := &SqliteStore{
		db:     db,
		run:    run,
		logger: log.With().Str("component", "checkpoint-sqlite").Logger(),
	}

	if err := store.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SqliteStore) initSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS checkpoints (
			run TEXT PRIMARY KEY,
			continuation_token TEXT NOT NULL,
			record_count INTEGER NOT NULL,
			records TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// Save upserts the snapshot for this run.
func (s *SqliteStore) Save(ctx context.Context, snap *Snapshot) error {
	var buf bytes.Buffer
	header := records.Header(snap.Records, records.Columns)
	if err := records.WriteCSV(&buf, snap.Records, header); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	query := `
		INSERT INTO checkpoints (run, continuation_token, record_count, records, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run) DO UPDATE SET
			continuation_token = excluded.continuation_token,
			record_count = excluded.record_count,
			records = excluded.records,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		s.run,
		snap.ContinuationToken,
		len(snap.Records),
		buf.String(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	savesTotal.WithLabelValues("sqlite").Inc()
	s.logger.Debug().
		Str("run", s.run).
		Int("records", len(snap.Records)).
		Msg("Checkpoint saved")

	return nil
}

// Load returns this run's snapshot, or (nil, nil) when none exists.
func (s *SqliteStore) Load(ctx context.Context) (*Snapshot, error) {
	query := `
		SELECT continuation_token, record_count, records, updated_at
		FROM checkpoints
		WHERE run = ?
	`

	var (
		token      string
		count      int
		recordsCSV string
		updatedAt  time.Time
	)
	err := s.db.QueryRowContext(ctx, query, s.run).Scan(&token, &count, &recordsCSV, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		loadsTotal.WithLabelValues("sqlite", "empty").Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	recs, err := records.ReadCSV(strings.NewReader(recordsCSV))
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	recs, err = validateCount(count, recs)
	if err != nil {
		loadsTotal.WithLabelValues("sqlite", "corrupt").Inc()
		return nil, err
	}

	loadsTotal.WithLabelValues("sqlite", "found").Inc()
	s.logger.Info().
		Str("run", s.run).
		Int("records", len(recs)).
		Msg("Checkpoint loaded")

	return &Snapshot{
		ContinuationToken: token,
		Records:           recs,
		UpdatedAt:         updatedAt,
	}, nil
}

// Discard removes this run's snapshot.
func (s *SqliteStore) Discard(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run = ?`, s.run); err != nil {
		return fmt.Errorf("discard checkpoint: %w", err)
	}

	discardsTotal.WithLabelValues("sqlite").Inc()
	return nil
}
