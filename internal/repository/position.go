package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"volunteerhub/internal/model"
)

// PositionRepository handles persistence for positions, including the
// capacity ledger columns (total_slots / filled_slots).
type PositionRepository struct {
	db *pgxpool.Pool
}

// NewPositionRepository constructs a PositionRepository.
func NewPositionRepository(db *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new position and fills in its generated UUID and timestamp.
func (r *PositionRepository) Create(ctx context.Context, p *model.Position) error {
	p.ID = uuid.New().String()
	p.FilledSlots = 0
	p.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO positions (id, event_id, title, location, shift_start, shift_end,
		                        total_slots, filled_slots, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.EventID, p.Title, p.Location, p.ShiftStart, p.ShiftEnd,
		p.TotalSlots, p.FilledSlots, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByID returns a single position or model.ErrNotFound.
func (r *PositionRepository) GetByID(ctx context.Context, id string) (*model.Position, error) {
	var p model.Position
	err := r.db.QueryRow(ctx,
		`SELECT id, event_id, title, location, shift_start, shift_end,
		        total_slots, filled_slots, created_at
		 FROM positions WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.EventID, &p.Title, &p.Location, &p.ShiftStart, &p.ShiftEnd,
		&p.TotalSlots, &p.FilledSlots, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return &p, nil
}

// ListByEvent returns all positions for an event ordered by shift start.
func (r *PositionRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Position, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, title, location, shift_start, shift_end,
		        total_slots, filled_slots, created_at
		 FROM positions
		 WHERE event_id = $1
		 ORDER BY shift_start ASC, created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.ID, &p.EventID, &p.Title, &p.Location, &p.ShiftStart,
			&p.ShiftEnd, &p.TotalSlots, &p.FilledSlots, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Remaining returns the number of open slots for a position.
func (r *PositionRepository) Remaining(ctx context.Context, id string) (int, error) {
	var remaining int
	err := r.db.QueryRow(ctx,
		`SELECT total_slots - filled_slots FROM positions WHERE id = $1`,
		id,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrNotFound
		}
		return 0, fmt.Errorf("remaining slots: %w", err)
	}
	return remaining, nil
}
