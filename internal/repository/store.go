package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type sqlStore[T any] struct {
	db        *sqlx.DB
	dialect   dialect
	table     Table
	insertSQL string
	upsertSQL string
}

func newStore[T any](db *sqlx.DB, d dialect, t Table) *sqlStore[T] {
	cols := strings.Join(t.Columns, ", ")
	values := ":" + strings.Join(t.Columns, ", :")
	base := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s)", t.Name, cols, values, t.Key)

	sets := make([]string, len(t.Updatable))
	for i, c := range t.Updatable {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}

	return &sqlStore[T]{
		db:        db,
		dialect:   d,
		table:     t,
		insertSQL: base + " DO NOTHING",
		upsertSQL: base + " DO UPDATE SET " + strings.Join(sets, ", "),
	}
}

func (s *sqlStore[T]) Table() Table {
	return s.table
}

func (s *sqlStore[T]) Insert(ctx context.Context, rows []T) (int64, error) {
	return s.bulk(ctx, s.insertSQL, rows)
}

func (s *sqlStore[T]) Upsert(ctx context.Context, rows []T) (int64, error) {
	return s.bulk(ctx, s.upsertSQL, rows)
}

// bulk runs a multi-row named statement, chunked to stay under the driver's
// bind parameter limit.
func (s *sqlStore[T]) bulk(ctx context.Context, query string, rows []T) (int64, error) {
	chunkSize := s.dialect.maxParams() / len(s.table.Columns)
	var total int64
	for i := 0; i < len(rows); i += chunkSize {
		end := i + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]

		res, err := s.db.NamedExecContext(ctx, query, batch)
		if err != nil {
			return total, fmt.Errorf("failed to write %d rows to %s: %w", len(batch), s.table.Name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *sqlStore[T]) Exists(ctx context.Context, marked bool, scope Scope) (bool, error) {
	where, args := scope.and(markerPredicate(marked))
	q := s.db.Rebind(fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", s.table.Name, where))

	var one int
	if err := s.db.GetContext(ctx, &one, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *sqlStore[T]) ResetMarkers(ctx context.Context, scope Scope, limit int) (int64, error) {
	where, args := scope.and(markerPredicate(true))
	q := fmt.Sprintf(
		"UPDATE %s SET synced_at = NULL WHERE id IN (SELECT id FROM %s WHERE %s LIMIT ?)",
		s.table.Name, s.table.Name, where,
	)
	return s.exec(ctx, q, append(args, limit)...)
}

func (s *sqlStore[T]) DeleteUnmarked(ctx context.Context, scope Scope, limit int) (int64, error) {
	where, args := scope.and(markerPredicate(false))
	q := fmt.Sprintf(
		"DELETE FROM %s WHERE id IN (SELECT id FROM %s WHERE %s LIMIT ?)",
		s.table.Name, s.table.Name, where,
	)
	return s.exec(ctx, q, append(args, limit)...)
}

func (s *sqlStore[T]) ResetMarkersByKeys(ctx context.Context, keys []int64) (int64, error) {
	return s.byKeys(ctx, fmt.Sprintf("UPDATE %s SET synced_at = NULL WHERE %s IN (?)", s.table.Name, s.table.Key), keys)
}

func (s *sqlStore[T]) DeleteUnmarkedByKeys(ctx context.Context, keys []int64) (int64, error) {
	return s.byKeys(ctx, fmt.Sprintf("DELETE FROM %s WHERE synced_at IS NULL AND %s IN (?)", s.table.Name, s.table.Key), keys)
}

func (s *sqlStore[T]) DeleteByKeys(ctx context.Context, keys []int64) (int64, error) {
	return s.byKeys(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s IN (?)", s.table.Name, s.table.Key), keys)
}

func (s *sqlStore[T]) byKeys(ctx context.Context, query string, keys []int64) (int64, error) {
	var total int64
	err := chunkKeys(keys, s.dialect.maxParams(), func(chunk []int64) error {
		q, args, err := sqlx.In(query, chunk)
		if err != nil {
			return err
		}
		n, err := s.exec(ctx, q, args...)
		total += n
		return err
	})
	return total, err
}

func (s *sqlStore[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table.Name)); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *sqlStore[T]) Truncate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.truncate(s.table.Name)); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", s.table.Name, err)
	}
	return nil
}

func (s *sqlStore[T]) FindByKey(ctx context.Context, key int64) (*T, error) {
	q := s.db.Rebind(fmt.Sprintf(
		"SELECT id, %s FROM %s WHERE %s = ?",
		strings.Join(s.table.Columns, ", "), s.table.Name, s.table.Key,
	))

	var row T
	if err := s.db.GetContext(ctx, &row, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (s *sqlStore[T]) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.table.Name, err)
	}
	return res.RowsAffected()
}

func markerPredicate(marked bool) string {
	if marked {
		return "synced_at IS NOT NULL"
	}
	return "synced_at IS NULL"
}

func chunkKeys[K any](keys []K, size int, fn func([]K) error) error {
	for i := 0; i < len(keys); i += size {
		end := i + size
		if end > len(keys) {
			end = len(keys)
		}
		if err := fn(keys[i:end]); err != nil {
			return err
		}
	}
	return nil
}
