package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/go-scripts/modulux/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS modulux_programs (
    position         integer PRIMARY KEY,
    program_number   text NOT NULL,
    program_name     text NOT NULL,
    degree           text NOT NULL,
    first_enrollment text NOT NULL,
    status           text NOT NULL,
    detail_link      text NOT NULL,
    details          jsonb NOT NULL,
    details_error    text,
    scraped_at       timestamptz NOT NULL
)`

const insertProgram = `
INSERT INTO modulux_programs
    (position, program_number, program_name, degree, first_enrollment, status,
     detail_link, details, details_error, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10)`

// PostgresWriter mirrors the dataset into a table. Each write replaces the
// previous run's rows inside one transaction.
type PostgresWriter struct {
	Pool *pgxpool.Pool
	now  func() time.Time
}

// Connect opens a pool for url and ensures the table exists
func Connect(ctx context.Context, url string) (*PostgresWriter, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresWriter{Pool: pool, now: time.Now}, nil
}

func (w *PostgresWriter) Close() { w.Pool.Close() }

func (w *PostgresWriter) Write(ctx context.Context, records []types.ListingRecord) error {
	batch, err := programBatch(records, w.now())
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, w.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM modulux_programs`); err != nil {
			return fmt.Errorf("clear previous run: %w", err)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert programs: %w", err)
		}
		return nil
	})
}

func programBatch(records []types.ListingRecord, scrapedAt time.Time) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for i, rec := range records {
		args, err := programArgs(i, rec, scrapedAt)
		if err != nil {
			return nil, err
		}
		batch.Queue(insertProgram, args...)
	}
	return batch, nil
}

func programArgs(position int, rec types.ListingRecord, scrapedAt time.Time) ([]any, error) {
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return nil, fmt.Errorf("encode details of %q: %w", rec.ProgramName, err)
	}
	var detailsError *string
	if rec.DetailsError != "" {
		detailsError = &rec.DetailsError
	}
	return []any{
		position,
		rec.ProgramNumber,
		rec.ProgramName,
		rec.Degree,
		rec.FirstEnrollment,
		rec.Status,
		rec.DetailLink,
		string(details),
		detailsError,
		scrapedAt,
	}, nil
}
