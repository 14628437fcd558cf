// Package sqlite implements the default spool backend on a local SQLite
// file via the cgo-free modernc driver.
//
// A single file plays the role the original tool gave a temp directory of
// per-year CSV parts: cheap local staging that survives worker crashes and
// supports ordered re-reads.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/spool"
)

func init() {
	spool.Register("sqlite", New)
}

type Spool struct {
	db *sql.DB
}

func New(ctx context.Context, cfg config.Spool) (spool.Spool, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "file:csvsheets_spool.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Spool{db: db}
	if err := s.ensureTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Spool) ensureTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS spool_sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			part TEXT NOT NULL,
			source TEXT NOT NULL UNIQUE,
			idx INTEGER NOT NULL,
			header TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS spool_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			fields TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS spool_rows_source ON spool_rows(source, id)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite spool: ensure tables: %w", err)
		}
	}
	return nil
}

func (s *Spool) Reset(ctx context.Context) error {
	for _, q := range []string{`DELETE FROM spool_rows`, `DELETE FROM spool_sources`} {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite spool: reset: %w", err)
		}
	}
	return nil
}

func (s *Spool) AddSource(ctx context.Context, partition, source string, index int, header []string) error {
	h, err := spool.EncodeFields(header)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO spool_sources (part, source, idx, header) VALUES (?, ?, ?, ?)`,
		partition, source, index, h,
	)
	return err
}

func (s *Spool) RemoveSource(ctx context.Context, source string) error {
	for _, q := range []string{
		`DELETE FROM spool_rows WHERE source = ?`,
		`DELETE FROM spool_sources WHERE source = ?`,
	} {
		if _, err := s.db.ExecContext(ctx, q, source); err != nil {
			return fmt.Errorf("sqlite spool: remove source: %w", err)
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
		b.WriteString("(?, ?)")
		args = append(args, source, enc)
	}

	_, err := s.db.ExecContext(ctx, b.String(), args...)
	return err
}

func (s *Spool) Sources(ctx context.Context) ([]spool.SourceInfo, error) {
	rows, err := s.db.QueryContext(ctx,
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
	rows, err := s.db.QueryContext(ctx,
		`SELECT fields FROM spool_rows WHERE source = ? ORDER BY id ASC`, source)
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

func (s *Spool) Close() error { return s.db.Close() }
