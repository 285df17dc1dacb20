package service

import (
	"github.com/alexivanou/geonames-sync/internal/repository"
)

// Service provides the read side of the status API
type Service struct {
	entityRepo repository.EntityRepository
}

// NewService creates a new service instance
func NewService(entityRepo repository.EntityRepository) *Service {
	return &Service{entityRepo: entityRepo}
}
