package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/jmoiron/sqlx"
)

type entityRepository struct {
	db *sqlx.DB
}

func (r *entityRepository) GetSummary(ctx context.Context, kind model.Kind, geonameID int64) (*model.EntitySummary, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	q := r.db.Rebind(fmt.Sprintf(
		"SELECT id, geoname_id, name, latitude, longitude, population, timezone FROM %s WHERE geoname_id = ?",
		kind.Table(),
	))

	var summary model.EntitySummary
	if err := r.db.GetContext(ctx, &summary, q, geonameID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

// GetLocalizedName returns the best non-archived name in lang, falling back to
// the default name of the entity.
func (r *entityRepository) GetLocalizedName(ctx context.Context, kind model.Kind, entityID int64, lang string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q", kind)
	}
	q := r.db.Rebind(fmt.Sprintf(`
		SELECT COALESCE(
			(SELECT name FROM %s
			 WHERE entity_id = ? AND locale = ? AND is_archived = FALSE
			 ORDER BY is_preferred DESC, is_short ASC, id ASC
			 LIMIT 1),
			(SELECT name FROM %s WHERE id = ?)
		)
	`, kind.TranslationTable(), kind.Table()))

	var name sql.NullString
	if err := r.db.GetContext(ctx, &name, q, entityID, lang, entityID); err != nil {
		return "", err
	}
	return name.String, nil
}

// GetTranslations lists the non-archived translations of an entity, all
// locales when lang is empty.
func (r *entityRepository) GetTranslations(ctx context.Context, kind model.Kind, entityID int64, lang string) ([]model.TranslationResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	q := fmt.Sprintf(
		"SELECT locale, name, is_preferred, is_short FROM %s WHERE entity_id = ? AND is_archived = FALSE",
		kind.TranslationTable(),
	)
	args := []interface{}{entityID}
	if lang != "" {
		q += " AND locale = ?"
		args = append(args, lang)
	}
	q += " ORDER BY locale, is_preferred DESC, id"

	var results []model.TranslationResult
	if err := r.db.SelectContext(ctx, &results, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return results, nil
}
