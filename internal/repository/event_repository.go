package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// EventRepository persists events.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	Update(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, limit, offset int) ([]domain.Event, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Event, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository instantiates the repository.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

const eventColumns = `e.id, e.name, e.venue_id, e.start_date, e.end_date, e.timezone, e.created_at, e.updated_at`

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	const query = `
        INSERT INTO events (name, venue_id, start_date, end_date, timezone)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		event.Name,
		event.VenueID,
		event.StartDate,
		event.EndDate,
		event.Timezone,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
}

func (r *eventRepository) Update(ctx context.Context, event *domain.Event) error {
	const query = `
        UPDATE events SET name=$1, venue_id=$2, start_date=$3, end_date=$4, timezone=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		event.Name,
		event.VenueID,
		event.StartDate,
		event.EndDate,
		event.Timezone,
		event.ID,
	).Scan(&event.UpdatedAt)
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id=$1`, id)
	event, err := scanEvent(row)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) List(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	limit, offset = NormalizePage(limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM events e ORDER BY e.start_date DESC LIMIT %d OFFSET %d`, eventColumns, limit, offset)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *eventRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Event, error) {
	limit, offset = NormalizePage(limit, offset)
	query := fmt.Sprintf(`
        SELECT %s FROM events e
        JOIN staff_assignments sa ON sa.event_id = e.id
        WHERE sa.user_id=$1
        ORDER BY e.start_date DESC LIMIT %d OFFSET %d`, eventColumns, limit, offset)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var event domain.Event
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.VenueID,
		&event.StartDate,
		&event.EndDate,
		&event.Timezone,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	return event, err
}

func scanEvents(rows pgx.Rows) ([]domain.Event, error) {
	var result []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
