// Package mssql implements the spool backend on SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/spool"
)

func init() {
	spool.Register("mssql", New)
}

// mssqlMaxParams is SQL Server's parameter limit per statement (2100);
// Append chunks its multi-row inserts to stay under it.
const mssqlMaxParams = 2000

type Spool struct {
	db *sql.DB
}

func New(ctx context.Context, cfg config.Spool) (spool.Spool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mssql spool: dsn is required")
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql spool: %w", err)
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
		`IF OBJECT_ID(N'spool_sources', N'U') IS NULL
		CREATE TABLE spool_sources (
			id BIGINT IDENTITY(1,1) PRIMARY KEY,
			part NVARCHAR(256) NOT NULL,
			source NVARCHAR(256) NOT NULL UNIQUE,
			idx BIGINT NOT NULL,
			header NVARCHAR(MAX) NOT NULL
		)`,
		`IF OBJECT_ID(N'spool_rows', N'U') IS NULL
		CREATE TABLE spool_rows (
			id BIGINT IDENTITY(1,1) PRIMARY KEY,
			source NVARCHAR(256) NOT NULL,
			fields NVARCHAR(MAX) NOT NULL
		)`,
		`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = 'spool_rows_source')
		CREATE INDEX spool_rows_source ON spool_rows(source, id)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("mssql spool: ensure tables: %w", err)
		}
	}
	return nil
}

func (s *Spool) Reset(ctx context.Context) error {
	for _, q := range []string{`DELETE FROM spool_rows`, `DELETE FROM spool_sources`} {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("mssql spool: reset: %w", err)
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
		`INSERT INTO spool_sources (part, source, idx, header) VALUES (@p1, @p2, @p3, @p4)`,
		partition, source, index, h,
	)
	return err
}

func (s *Spool) RemoveSource(ctx context.Context, source string) error {
	for _, q := range []string{
		`DELETE FROM spool_rows WHERE source = @p1`,
		`DELETE FROM spool_sources WHERE source = @p1`,
	} {
		if _, err := s.db.ExecContext(ctx, q, source); err != nil {
			return fmt.Errorf("mssql spool: remove source: %w", err)
		}
	}
	return nil
}

func (s *Spool) Append(ctx context.Context, source string, rows [][]string) error {
	for len(rows) > 0 {
		n := mssqlMaxParams / 2
		if n > len(rows) {
			n = len(rows)
		}
		if err := s.appendBatch(ctx, source, rows[:n]); err != nil {
			return err
		}
		rows = rows[n:]
	}
	return nil
}

func (s *Spool) appendBatch(ctx context.Context, source string, rows [][]string) error {
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
		fmt.Fprintf(&b, "(@p%d, @p%d)", len(args)+1, len(args)+2)
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
		`SELECT fields FROM spool_rows WHERE source = @p1 ORDER BY id ASC`, source)
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
