package service

import (
	"context"
	"strings"

	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/policy"
	"github.com/spec-kit/epcr-service/internal/repository"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

// VenueService manages venues.
type VenueService struct {
	venues repository.VenueRepository
	gate   *Gate
}

// NewVenueService constructs the service.
func NewVenueService(venues repository.VenueRepository, gate *Gate) *VenueService {
	return &VenueService{venues: venues, gate: gate}
}

// CreateVenue adds a venue. Admin only.
func (s *VenueService) CreateVenue(ctx context.Context, actor policy.Actor, name, address string) (*domain.Venue, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	venue := &domain.Venue{Name: name, Address: strings.TrimSpace(address)}
	if err := s.venues.Create(ctx, venue); err != nil {
		return nil, err
	}
	s.gate.Audit(ctx, actor, domain.AuditCreate, domain.ResourceVenue, venue.ID, nil)
	return venue, nil
}

// ListVenues returns all venues.
func (s *VenueService) ListVenues(ctx context.Context) ([]domain.Venue, error) {
	return s.venues.List(ctx)
}
