package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexivanou/geonames-sync/internal/model"
)

const defaultLang = "en"

// ErrUnknownKind is returned for a kind that has no table.
var ErrUnknownKind = errors.New("unknown kind")

// GetEntity retrieves an entity by geoname id with its name in lang and its
// non-archived translations. It returns nil when the entity is not stored.
func (s *Service) GetEntity(ctx context.Context, kind model.Kind, geonameID int64, lang string) (*model.EntityDetailResponse, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	summary, err := s.entityRepo.GetSummary(ctx, kind, geonameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	if summary == nil {
		return nil, nil
	}

	if lang == "" {
		lang = defaultLang
	}

	name, err := s.entityRepo.GetLocalizedName(ctx, kind, summary.ID, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s name: %w", kind, err)
	}

	translations, err := s.entityRepo.GetTranslations(ctx, kind, summary.ID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get %s translations: %w", kind, err)
	}
	if translations == nil {
		translations = []model.TranslationResult{}
	}

	return &model.EntityDetailResponse{
		Kind:         kind,
		GeonameID:    summary.GeonameID,
		Name:         name,
		DefaultName:  summary.Name,
		Coordinates:  model.Coordinate{Lat: summary.Latitude, Lon: summary.Longitude},
		Population:   summary.Population,
		Timezone:     summary.Timezone,
		Translations: translations,
	}, nil
}
