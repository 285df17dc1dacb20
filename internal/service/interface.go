package service

import (
	"context"

	"github.com/alexivanou/geonames-sync/internal/model"
)

// ServiceInterface defines the service interface for testing
type ServiceInterface interface {
	GetEntity(ctx context.Context, kind model.Kind, geonameID int64, lang string) (*model.EntityDetailResponse, error)
}
