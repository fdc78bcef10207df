package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// VenueRepository persists venues.
type VenueRepository interface {
	Create(ctx context.Context, venue *domain.Venue) error
	GetByID(ctx context.Context, id string) (*domain.Venue, error)
	List(ctx context.Context) ([]domain.Venue, error)
}

type venueRepository struct {
	pool *pgxpool.Pool
}

// NewVenueRepository instantiates the repository.
func NewVenueRepository(pool *pgxpool.Pool) VenueRepository {
	return &venueRepository{pool: pool}
}

func (r *venueRepository) Create(ctx context.Context, venue *domain.Venue) error {
	const query = `
        INSERT INTO venues (name, address)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, venue.Name, venue.Address).
		Scan(&venue.ID, &venue.CreatedAt, &venue.UpdatedAt)
}

func (r *venueRepository) GetByID(ctx context.Context, id string) (*domain.Venue, error) {
	var venue domain.Venue
	if err := r.pool.QueryRow(ctx, `SELECT id, name, address, created_at, updated_at FROM venues WHERE id=$1`, id).Scan(
		&venue.ID,
		&venue.Name,
		&venue.Address,
		&venue.CreatedAt,
		&venue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &venue, nil
}

func (r *venueRepository) List(ctx context.Context) ([]domain.Venue, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, address, created_at, updated_at FROM venues ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []domain.Venue
	for rows.Next() {
		var venue domain.Venue
		if err := rows.Scan(&venue.ID, &venue.Name, &venue.Address, &venue.CreatedAt, &venue.UpdatedAt); err != nil {
			return nil, err
		}
		venues = append(venues, venue)
	}
	return venues, rows.Err()
}
