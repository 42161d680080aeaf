package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/modelq/internal/filter"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
	"github.com/roach88/modelq/internal/schema"
)

// Find implements adapter.Adapter.
//
// Rows are scanned in insertion order and filtered in process.
func (s *Store) Find(ctx context.Context, model string, f *queryir.Filter) ([]ir.Object, error) {
	meta, err := s.resolver.Resolve(model)
	if err != nil {
		return nil, err
	}
	rows, err := s.scan(ctx, meta)
	if err != nil {
		return nil, err
	}
	out, err := filter.Apply(rows, f, filter.Options{
		Properties: meta.Properties,
		PrimaryKey: meta.PrimaryKey,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count implements adapter.Adapter.
func (s *Store) Count(ctx context.Context, model string, where queryir.Where) (int, error) {
	meta, err := s.resolver.Resolve(model)
	if err != nil {
		return 0, err
	}
	matcher, err := filter.Compile(where, meta.Properties)
	if err != nil {
		return 0, err
	}
	rows, err := s.scan(ctx, meta)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range rows {
		if matcher.Match(rec) {
			n++
		}
	}
	return n, nil
}

// Exists implements adapter.Writer.
func (s *Store) Exists(ctx context.Context, model string, id ir.Value) (bool, error) {
	meta, err := s.resolver.Resolve(model)
	if err != nil {
		return false, err
	}
	var one int
	err = s.db.QueryRowContext(ctx, `
		SELECT 1 FROM records WHERE tbl = ? AND id_key = ?
	`, meta.Table, ir.Key(id)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", model, err)
	}
	return true, nil
}

// scan loads every record of a table, keyed by property name.
func (s *Store) scan(ctx context.Context, meta *schema.Resolved) ([]ir.Object, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM records
		WHERE tbl = ?
		ORDER BY seq ASC
	`, meta.Table)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", meta.Name, err)
	}
	defer rows.Close()

	var out []ir.Object
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", meta.Name, err)
		}
		row, err := decodeBody(body)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", meta.Name, err)
		}
		rec, err := s.resolver.FromColumns(meta.Name, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", meta.Name, err)
	}
	return out, nil
}

// load reads one record by id inside a transaction.
func load(ctx context.Context, tx *sql.Tx, table string, idKey string) ([]byte, error) {
	var body []byte
	err := tx.QueryRowContext(ctx, `
		SELECT body FROM records WHERE tbl = ? AND id_key = ?
	`, table, idKey).Scan(&body)
	return body, err
}
