package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/modelq/internal/adapter"
	"github.com/roach88/modelq/internal/ir"
)

var _ adapter.ReadWriter = (*Store)(nil)

// Create implements adapter.Writer.
//
// Defaults are applied first so a generated primary key is stored. Uses
// ON CONFLICT DO NOTHING and reports a duplicate when no row was inserted.
func (s *Store) Create(ctx context.Context, model string, record ir.Object) (ir.Object, error) {
	meta, err := s.resolver.Resolve(model)
	if err != nil {
		return nil, err
	}
	rec, err := s.resolver.ApplyDefaults(model, record)
	if err != nil {
		return nil, err
	}
	id, ok := rec[meta.PrimaryKey]
	if !ok || ir.IsNull(id) {
		return nil, fmt.Errorf("%w: model %s", adapter.ErrMissingID, model)
	}

	body, err := s.encode(model, rec)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (tbl, id_key, body)
		VALUES (?, ?, ?)
		ON CONFLICT (tbl, id_key) DO NOTHING
	`, meta.Table, ir.Key(id), body)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", model, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", model, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s %s", adapter.ErrDuplicateID, model, ir.Key(id))
	}
	return rec, nil
}

// ReplaceByID implements adapter.Writer.
func (s *Store) ReplaceByID(ctx context.Context, model string, id ir.Value, record ir.Object) error {
	meta, err := s.resolver.Resolve(model)
	if err != nil {
		return err
	}
	rec := record.Clone()
	if rec == nil {
		rec = ir.Object{}
	}
	rec[meta.PrimaryKey] = id

	body, err := s.encode(model, rec)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET body = ? WHERE tbl = ? AND id_key = ?
	`, body, meta.Table, ir.Key(id))
	if err != nil {
		return fmt.Errorf("replace %s: %w", model, err)
	}
	return requireRow(res, model, id)
}

// PatchByID implements adapter.Writer. Read-modify-write runs in one
// transaction.
func (s *Store) PatchByID(ctx context.Context, model string, id ir.Value, patch ir.Object) error {
	meta, err := s.resolver.Resolve(model)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("patch %s: %w", model, err)
	}
	defer tx.Rollback()

	body, err := load(ctx, tx, meta.Table, ir.Key(id))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", adapter.ErrNotFound, model, ir.Key(id))
	}
	if err != nil {
		return fmt.Errorf("patch %s: %w", model, err)
	}
	row, err := decodeBody(body)
	if err != nil {
		return err
	}
	rec, err := s.resolver.FromColumns(model, row)
	if err != nil {
		return err
	}
	for k, v := range patch {
		if k == meta.PrimaryKey {
			continue
		}
		rec[k] = v
	}

	updated, err := s.encode(model, rec)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE records SET body = ? WHERE tbl = ? AND id_key = ?
	`, updated, meta.Table, ir.Key(id)); err != nil {
		return fmt.Errorf("patch %s: %w", model, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("patch %s: %w", model, err)
	}
	return nil
}

// DeleteByID implements adapter.Writer.
func (s *Store) DeleteByID(ctx context.Context, model string, id ir.Value) error {
	meta, err := s.resolver.Resolve(model)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM records WHERE tbl = ? AND id_key = ?
	`, meta.Table, ir.Key(id))
	if err != nil {
		return fmt.Errorf("delete %s: %w", model, err)
	}
	return requireRow(res, model, id)
}

// encode maps a property-keyed record to columns and serializes it.
func (s *Store) encode(model string, rec ir.Object) ([]byte, error) {
	row, err := s.resolver.ToColumns(model, rec)
	if err != nil {
		return nil, err
	}
	return encodeBody(row)
}

func requireRow(res sql.Result, model string, id ir.Value) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", model, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", adapter.ErrNotFound, model, ir.Key(id))
	}
	return nil
}
