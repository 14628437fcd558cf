// Package postgres implements the spool backend on PostgreSQL, for runs
// where workers on several hosts stage into one shared partition namespace.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/spool"
)

func init() {
	spool.Register("postgres", New)
}

type Spool struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.Spool) (spool.Spool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres spool: dsn is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres spool: %w", err)
	}
	s := &Spool{pool: pool}
	if err := s.ensureTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Spool) ensureTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS spool_sources (
			id BIGSERIAL PRIMARY KEY,
			part TEXT NOT NULL,
			source TEXT NOT NULL UNIQUE,
			idx BIGINT NOT NULL,
			header TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS spool_rows (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			fields TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS spool_rows_source ON spool_rows(source, id)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres spool: ensure tables: %w", err)
		}
	}
	return nil
}

func (s *Spool) Reset(ctx context.Context) error {
	for _, q := range []string{`TRUNCATE spool_rows`, `TRUNCATE spool_sources RESTART IDENTITY`} {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres spool: reset: %w", err)
		}
	}
	return nil
}

func (s *Spool) AddSource(ctx context.Context, partition, source string, index int, header []string) error {
	h, err := spool.EncodeFields(header)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO spool_sources (part, source, idx, header) VALUES ($1, $2, $3, $4)`,
		partition, source, index, h,
	)
	return err
}

func (s *Spool) RemoveSource(ctx context.Context, source string) error {
	for _, q := range []string{
		`DELETE FROM spool_rows WHERE source = $1`,
		`DELETE FROM spool_sources WHERE source = $1`,
	} {
		if _, err := s.pool.Exec(ctx, q, source); err != nil {
			return fmt.Errorf("postgres spool: remove source: %w", err)
		}
	}
	return nil
}

func (s *Spool) Append(ctx context.Context, source string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO spool_rows (source, fields) VALUES `)
	args := make([]any, 0, 2*len(rows))
	for i, r := range rows {
		enc, err := spool.EncodeFields(r)
		if err != nil {
			return err
		}
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($%d, $%d)", len(args)+1, len(args)+2)
		args = append(args, source, enc)
	}

	_, err := s.pool.Exec(ctx, b.String(), args...)
	return err
}

func (s *Spool) Sources(ctx context.Context) ([]spool.SourceInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT part, source, idx, header FROM spool_sources ORDER BY part ASC, idx ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []spool.SourceInfo
	for rows.Next() {
		var part, source, header string
		var idx int
		if err := rows.Scan(&part, &source, &idx, &header); err != nil {
			return nil, err
		}
		h, err := spool.DecodeFields(header)
		if err != nil {
			return nil, err
		}
		out = append(out, spool.SourceInfo{Partition: part, Source: source, Index: idx, Header: h})
	}
	return out, rows.Err()
}

func (s *Spool) Read(ctx context.Context, source string, fn func(fields []string) error) error {
	rows, err := s.pool.Query(ctx,
		`SELECT fields FROM spool_rows WHERE source = $1 ORDER BY id ASC`, source)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var enc string
		if err := rows.Scan(&enc); err != nil {
			return err
		}
		fields, err := spool.DecodeFields(enc)
		if err != nil {
			return err
		}
		if err := fn(fields); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Spool) Close() error {
	s.pool.Close()
	return nil
}
