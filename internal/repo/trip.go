// Package repo contains all database access logic for the TripMind backend.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here; only SQL and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/tripmind/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations for Trips.
// The service layer depends on this interface, not the concrete Postgres implementation,
// which allows the service to be unit-tested with a mock.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record (with DB-generated
	// id, created_at, and updated_at populated).
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by its UUID primary key.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// ListPaged returns one page of trips ordered by start_date descending
	// (undated trips last) and the total number of trips.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// Update overwrites the scalar columns of an existing trip and returns the
	// updated record. Metadata is left untouched; use MergeMetadata.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// MergeMetadata replaces the given top-level metadata keys and keeps every
	// other key. Returns domain.ErrNotFound if no trip with that ID exists.
	MergeMetadata(ctx context.Context, id uuid.UUID, fields map[string]any) (domain.Trip, error)

	// Delete removes a trip by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, destination, start_date, end_date, duration_days, travelers_count,
		budget, status, metadata, created_at, updated_at`

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	meta, err := json.Marshal(trip.Metadata)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: marshal metadata: %w", err)
	}

	q := `
		INSERT INTO trips (destination, start_date, end_date, duration_days, travelers_count, budget, status, metadata)
		VALUES (@destination, @start_date, @end_date, @duration_days, @travelers_count, @budget, @status, @metadata)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"destination":     trip.Destination,
		"start_date":      trip.StartDate, // nil becomes NULL
		"end_date":        trip.EndDate,
		"duration_days":   nullableInt(trip.DurationDays),
		"travelers_count": trip.TravelersCount,
		"budget":          trip.Budget,
		"status":          trip.Status,
		"metadata":        meta,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// ListPaged returns one page of trips and the total count.
func (r *pgTripRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM trips`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: count: %w", err)
	}

	q := `SELECT ` + tripColumns + `
		FROM trips
		ORDER BY start_date DESC NULLS LAST, created_at DESC
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: rows: %w", err)
	}
	return trips, total, nil
}

// Update overwrites the scalar columns of a trip and returns the updated record.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET destination     = @destination,
		    start_date      = @start_date,
		    end_date        = @end_date,
		    duration_days   = @duration_days,
		    travelers_count = @travelers_count,
		    budget          = @budget,
		    status          = @status,
		    updated_at      = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":              trip.ID,
		"destination":     trip.Destination,
		"start_date":      trip.StartDate,
		"end_date":        trip.EndDate,
		"duration_days":   nullableInt(trip.DurationDays),
		"travelers_count": trip.TravelersCount,
		"budget":          trip.Budget,
		"status":          trip.Status,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	return result, nil
}

// MergeMetadata applies a shallow jsonb merge so concurrent writers touching
// different keys (checklist edits and a running generation, say) do not
// overwrite each other.
func (r *pgTripRepo) MergeMetadata(ctx context.Context, id uuid.UUID, fields map[string]any) (domain.Trip, error) {
	patch, err := json.Marshal(fields)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.MergeMetadata: marshal: %w", err)
	}

	q := `
		UPDATE trips
		SET metadata   = metadata || @patch::jsonb,
		    updated_at = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "patch": string(patch)}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.MergeMetadata: %w", err)
	}
	return result, nil
}

// Delete removes a trip by primary key.
func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scanTrip to be
// reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.Trip.
// It handles the UUID, nullable date/number and JSONB metadata conversions.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t         domain.Trip
		id        pgtype.UUID
		startDate pgtype.Date
		endDate   pgtype.Date
		duration  pgtype.Int4
		budget    pgtype.Float8
		meta      []byte
	)

	err := s.Scan(&id, &t.Destination, &startDate, &endDate, &duration, &t.TravelersCount,
		&budget, &t.Status, &meta, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	if startDate.Valid {
		sd := startDate.Time
		t.StartDate = &sd
	}
	if endDate.Valid {
		ed := endDate.Time
		t.EndDate = &ed
	}
	if duration.Valid {
		t.DurationDays = int(duration.Int32)
	}
	if budget.Valid {
		b := budget.Float64
		t.Budget = &b
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return domain.Trip{}, fmt.Errorf("decode metadata: %w", err)
		}
	}

	return t, nil
}

// nullableInt maps the zero value to NULL.
func nullableInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
