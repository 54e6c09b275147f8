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

// RegistrationRepository handles persistence for confirmed signups and
// their guest rows.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// CreateConfirmed inserts the registration with its guests and reserves
// one slot as a single transaction. The insert and the reservation commit
// together or not at all, so a failed reservation never leaks a row.
//
// The registration row goes in before the slot reservation so that a
// duplicate (position, user) submission trips the unique index and
// reports ErrAlreadySignedUp even when the position is also full;
// reserving first would report ErrPositionFull for that case and let the
// caller queue a user who already holds a registration.
//
// Returns model.ErrPositionFull when no slot is open, model.ErrNotFound
// when the position does not exist, and model.ErrAlreadySignedUp when the
// user already holds a registration for this position.
func (r *RegistrationRepository) CreateConfirmed(ctx context.Context, reg *model.Registration) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	reg.ID = uuid.New().String()
	reg.HasGuests = len(reg.Guests) > 0
	reg.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, position_id, user_id, user_email, has_guests, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		reg.ID, reg.PositionID, reg.UserID, reg.UserEmail, reg.HasGuests, reg.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadySignedUp
		}
		if isForeignKeyViolation(err) {
			return model.ErrNotFound
		}
		return fmt.Errorf("insert registration: %w", err)
	}

	if err := insertGuests(ctx, tx, reg.ID, reg.Guests); err != nil {
		return err
	}

	if err := reserve(ctx, tx, reg.PositionID, 1); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns a registration with its guests, or model.ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT id, position_id, user_id, user_email, has_guests, created_at
		 FROM registrations WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, err
	}
	reg.Guests, err = loadGuests(ctx, r.db, reg.ID)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// GetByPositionAndUser returns the user's registration for a position with
// its guests, or model.ErrNotFound.
func (r *RegistrationRepository) GetByPositionAndUser(ctx context.Context, positionID, userID string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT id, position_id, user_id, user_email, has_guests, created_at
		 FROM registrations WHERE position_id = $1 AND user_id = $2`,
		positionID, userID,
	))
	if err != nil {
		return nil, err
	}
	reg.Guests, err = loadGuests(ctx, r.db, reg.ID)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ListByPosition returns all registrations for a position with guests,
// ordered by creation time ascending.
func (r *RegistrationRepository) ListByPosition(ctx context.Context, positionID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, position_id, user_id, user_email, has_guests, created_at
		 FROM registrations
		 WHERE position_id = $1
		 ORDER BY created_at ASC, id ASC`,
		positionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.PositionID, &reg.UserID, &reg.UserEmail,
			&reg.HasGuests, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range regs {
		regs[i].Guests, err = loadGuests(ctx, r.db, regs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return regs, nil
}

// ReplaceGuests swaps a registration's guest list in one transaction.
// Slot consumption is unchanged: a registration holds one slot whatever
// its party size.
func (r *RegistrationRepository) ReplaceGuests(ctx context.Context, registrationID string, guests []model.Guest) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM guests WHERE registration_id = $1`, registrationID,
	); err != nil {
		return fmt.Errorf("delete guests: %w", err)
	}

	if err := insertGuests(ctx, tx, registrationID, guests); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE registrations SET has_guests = $2 WHERE id = $1`,
		registrationID, len(guests) > 0,
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes a registration (guests cascade) and frees its slot in
// one transaction. Returns model.ErrNotFound when no row matches.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var positionID string
	err = tx.QueryRow(ctx,
		`DELETE FROM registrations WHERE id = $1 RETURNING position_id`, id,
	).Scan(&positionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		return fmt.Errorf("delete registration: %w", err)
	}

	if err := release(ctx, tx, positionID, 1); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ─── Row helpers ──────────────────────────────────────────────────────────────

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.PositionID, &reg.UserID, &reg.UserEmail,
		&reg.HasGuests, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	return &reg, nil
}

func insertGuests(ctx context.Context, q dbtx, registrationID string, guests []model.Guest) error {
	for i := range guests {
		g := &guests[i]
		g.ID = uuid.New().String()
		g.RegistrationID = registrationID
		_, err := q.Exec(ctx,
			`INSERT INTO guests (id, registration_id, first_name, last_name,
			                     date_of_birth, relationship, email, phone_number, comments)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			g.ID, g.RegistrationID, g.FirstName, g.LastName,
			g.DateOfBirth, g.Relationship, g.Email, g.PhoneNumber, g.Comments,
		)
		if err != nil {
			return fmt.Errorf("insert guest: %w", err)
		}
	}
	return nil
}

func loadGuests(ctx context.Context, q dbtx, registrationID string) ([]model.Guest, error) {
	rows, err := q.Query(ctx,
		`SELECT id, registration_id, first_name, last_name, date_of_birth,
		        relationship, email, phone_number, comments
		 FROM guests
		 WHERE registration_id = $1
		 ORDER BY last_name ASC, first_name ASC`,
		registrationID,
	)
	if err != nil {
		return nil, fmt.Errorf("load guests: %w", err)
	}
	defer rows.Close()

	var guests []model.Guest
	for rows.Next() {
		var g model.Guest
		if err := rows.Scan(&g.ID, &g.RegistrationID, &g.FirstName, &g.LastName,
			&g.DateOfBirth, &g.Relationship, &g.Email, &g.PhoneNumber, &g.Comments); err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}
