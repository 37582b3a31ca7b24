package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/TassioCarmo/ticker-sync/pkg/records"
)

// PgxConn is the slice of the pgx connection surface the sink needs. Both
// *pgxpool.Pool and pgxmock satisfy it.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresSink loads the final record set into a warehouse-style table:
// uppercase column names plus a DS load-date column, one batch insert per run.
type PostgresSink struct {
	conn   PgxConn
	table  string
	now    func() time.Time
	logger zerolog.Logger
}

// NewPostgresSink creates a sink writing to table via conn.
func NewPostgresSink(conn PgxConn, table string) (*PostgresSink, error) {
	if conn == nil {
		return nil, fmt.Errorf("postgres connection is required")
	}
	if table == "" {
		table = "stock_tickers"
	}

	return &PostgresSink{
		conn:   conn,
		table:  table,
		now:    time.Now,
		logger: log.With().Str("component", "postgres-sink").Logger(),
	}, nil
}

// Consume creates the table when missing and batch-inserts every record with
// today's load date.
func (s *PostgresSink) Consume(ctx context.Context, recs []records.Record) error {
	if err := s.ensureTable(ctx); err != nil {
		return err
	}

	ds := s.now().UTC().Format("2006-01-02")

	batch := &pgx.Batch{}
	insert := s.insertStatement()
	for _, rec := range recs {
		args := make([]any, 0, len(records.Columns)+1)
		for _, col := range records.Columns {
			args = append(args, rec[col])
		}
		args = append(args, ds)
		batch.Queue(insert, args...)
	}

	results := s.conn.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	s.logger.Info().
		Str("table", s.table).
		Str("ds", ds).
		Int("records", len(recs)).
		Msg("Loaded final record set")

	return nil
}

func (s *PostgresSink) ensureTable(ctx context.Context) error {
	cols := make([]string, 0, len(records.Columns)+1)
	for _, col := range records.Columns {
		cols = append(cols, fmt.Sprintf("%s TEXT", quoteUpper(col)))
	}
	cols = append(cols, `"DS" DATE NOT NULL`)

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.table, strings.Join(cols, ", "))
	if _, err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure table %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresSink) insertStatement() string {
	cols := make([]string, 0, len(records.Columns)+1)
	placeholders := make([]string, 0, len(records.Columns)+1)
	for i, col := range records.Columns {
		cols = append(cols, quoteUpper(col))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	cols = append(cols, `"DS"`)
	placeholders = append(placeholders, fmt.Sprintf("$%d", len(records.Columns)+1))

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// quoteUpper renders a column name the warehouse way: uppercase, quoted.
func quoteUpper(col string) string {
	return `"` + strings.ToUpper(col) + `"`
}
