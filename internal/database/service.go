package database

import (
	"github.com/robalyx/warden/internal/database/service"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	sticky *service.StickyService
}

// NewService creates a new service instance with all services.
func NewService(db *bun.DB, logger *zap.Logger) *Service {
	return &Service{
		sticky: service.NewSticky(db, logger),
	}
}

// Sticky returns the sticky role service.
func (s *Service) Sticky() *service.StickyService {
	return s.sticky
}
