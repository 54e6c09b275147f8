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

// WaitlistRepository handles persistence for waitlist entries and their
// guest rows, and owns the promote/demote transactions that move signups
// between the waitlist and the registration table.
type WaitlistRepository struct {
	db *pgxpool.Pool
}

// NewWaitlistRepository constructs a WaitlistRepository.
func NewWaitlistRepository(db *pgxpool.Pool) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// Create inserts a waitlist entry with its guests in one transaction.
// Returns model.ErrAlreadySignedUp when the user is already queued for
// this position, or already holds a confirmed registration for it: a
// user's placement is at most one of {registration, waitlist entry}.
func (r *WaitlistRepository) Create(ctx context.Context, e *model.WaitlistEntry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var registered bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM registrations WHERE position_id = $1 AND user_id = $2
		 )`,
		e.PositionID, e.UserID,
	).Scan(&registered)
	if err != nil {
		return fmt.Errorf("check existing registration: %w", err)
	}
	if registered {
		return model.ErrAlreadySignedUp
	}

	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx,
		`INSERT INTO waitlist_entries (id, position_id, user_id, user_email, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.PositionID, e.UserID, e.UserEmail, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadySignedUp
		}
		return fmt.Errorf("insert waitlist entry: %w", err)
	}

	if err := insertWaitlistGuests(ctx, tx, e.ID, e.Guests); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns a waitlist entry with its guests, or model.ErrNotFound.
func (r *WaitlistRepository) GetByID(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	e, err := scanWaitlistEntry(r.db.QueryRow(ctx,
		`SELECT id, position_id, user_id, user_email, created_at
		 FROM waitlist_entries WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, err
	}
	e.Guests, err = loadWaitlistGuests(ctx, r.db, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByPositionAndUser returns the user's waitlist entry for a position
// with its guests, or model.ErrNotFound.
func (r *WaitlistRepository) GetByPositionAndUser(ctx context.Context, positionID, userID string) (*model.WaitlistEntry, error) {
	e, err := scanWaitlistEntry(r.db.QueryRow(ctx,
		`SELECT id, position_id, user_id, user_email, created_at
		 FROM waitlist_entries WHERE position_id = $1 AND user_id = $2`,
		positionID, userID,
	))
	if err != nil {
		return nil, err
	}
	e.Guests, err = loadWaitlistGuests(ctx, r.db, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByPosition returns the waitlist in FIFO order (creation time
// ascending, id as tiebreak) with guests loaded.
func (r *WaitlistRepository) ListByPosition(ctx context.Context, positionID string) ([]model.WaitlistEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, position_id, user_id, user_email, created_at
		 FROM waitlist_entries
		 WHERE position_id = $1
		 ORDER BY created_at ASC, id ASC`,
		positionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	defer rows.Close()

	var entries []model.WaitlistEntry
	for rows.Next() {
		var e model.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.PositionID, &e.UserID, &e.UserEmail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Guests, err = loadWaitlistGuests(ctx, r.db, entries[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// QueuePosition returns the 1-based FIFO position of an entry: the count
// of earlier entries for the same position, plus one.
func (r *WaitlistRepository) QueuePosition(ctx context.Context, entryID string) (int, error) {
	var positionID string
	var createdAt time.Time
	err := r.db.QueryRow(ctx,
		`SELECT position_id, created_at FROM waitlist_entries WHERE id = $1`,
		entryID,
	).Scan(&positionID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrNotFound
		}
		return 0, fmt.Errorf("get waitlist entry: %w", err)
	}

	var earlier int
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM waitlist_entries
		 WHERE position_id = $1 AND (created_at, id) < ($2, $3)`,
		positionID, createdAt, entryID,
	).Scan(&earlier)
	if err != nil {
		return 0, fmt.Errorf("count earlier entries: %w", err)
	}
	return earlier + 1, nil
}

// ReplaceGuests swaps a waitlist entry's guest list in one transaction.
func (r *WaitlistRepository) ReplaceGuests(ctx context.Context, entryID string, guests []model.WaitlistGuest) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM waitlist_guests WHERE waitlist_entry_id = $1`, entryID,
	); err != nil {
		return fmt.Errorf("delete waitlist guests: %w", err)
	}

	if err := insertWaitlistGuests(ctx, tx, entryID, guests); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes a waitlist entry (guests cascade). The ledger is not
// touched: queued entries hold no slot.
func (r *WaitlistRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM waitlist_entries WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Promote converts the selected waitlist entries into registrations in a
// single transaction: reserve len(entryIDs) slots, copy each entry and
// its guests into the registration tables, then delete the entries.
// Any failure rolls the whole batch back.
//
// Returns model.ErrNotFound when an entry is missing or belongs to a
// different position, and *model.CapacityError when the batch does not
// fit the open slots.
func (r *WaitlistRepository) Promote(ctx context.Context, positionID string, entryIDs []string) ([]model.Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := reserve(ctx, tx, positionID, len(entryIDs)); err != nil {
		return nil, err
	}

	regs := make([]model.Registration, 0, len(entryIDs))
	for _, entryID := range entryIDs {
		var e model.WaitlistEntry
		err := tx.QueryRow(ctx,
			`SELECT id, position_id, user_id, user_email, created_at
			 FROM waitlist_entries
			 WHERE id = $1 AND position_id = $2
			 FOR UPDATE`,
			entryID, positionID,
		).Scan(&e.ID, &e.PositionID, &e.UserID, &e.UserEmail, &e.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("waitlist entry %s: %w", entryID, model.ErrNotFound)
			}
			return nil, fmt.Errorf("lock waitlist entry: %w", err)
		}

		e.Guests, err = loadWaitlistGuests(ctx, tx, e.ID)
		if err != nil {
			return nil, err
		}

		reg := model.Registration{
			ID:         uuid.New().String(),
			PositionID: e.PositionID,
			UserID:     e.UserID,
			UserEmail:  e.UserEmail,
			HasGuests:  len(e.Guests) > 0,
			Guests:     promotedGuests(e.Guests),
			CreatedAt:  time.Now().UTC(),
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO registrations (id, position_id, user_id, user_email, has_guests, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			reg.ID, reg.PositionID, reg.UserID, reg.UserEmail, reg.HasGuests, reg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert promoted registration: %w", err)
		}
		if err := insertGuests(ctx, tx, reg.ID, reg.Guests); err != nil {
			return nil, err
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM waitlist_entries WHERE id = $1`, e.ID,
		); err != nil {
			return nil, fmt.Errorf("delete promoted entry: %w", err)
		}

		regs = append(regs, reg)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return regs, nil
}

// Demote replaces a registration with a waitlist entry at the tail of the
// queue and frees the slot, all in one transaction. Used when a position's
// capacity shrinks below its filled count.
func (r *WaitlistRepository) Demote(ctx context.Context, registrationID string, e *model.WaitlistEntry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var positionID string
	err = tx.QueryRow(ctx,
		`DELETE FROM registrations WHERE id = $1 RETURNING position_id`,
		registrationID,
	).Scan(&positionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		return fmt.Errorf("delete registration: %w", err)
	}

	e.ID = uuid.New().String()
	e.PositionID = positionID
	e.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx,
		`INSERT INTO waitlist_entries (id, position_id, user_id, user_email, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.PositionID, e.UserID, e.UserEmail, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	if err := insertWaitlistGuests(ctx, tx, e.ID, e.Guests); err != nil {
		return err
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

func scanWaitlistEntry(row pgx.Row) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	err := row.Scan(&e.ID, &e.PositionID, &e.UserID, &e.UserEmail, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("scan waitlist entry: %w", err)
	}
	return &e, nil
}

func insertWaitlistGuests(ctx context.Context, q dbtx, entryID string, guests []model.WaitlistGuest) error {
	for i := range guests {
		g := &guests[i]
		g.ID = uuid.New().String()
		g.WaitlistEntryID = entryID
		_, err := q.Exec(ctx,
			`INSERT INTO waitlist_guests (id, waitlist_entry_id, first_name, last_name,
			                              date_of_birth, relationship, email, comments)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			g.ID, g.WaitlistEntryID, g.FirstName, g.LastName,
			g.DateOfBirth, g.Relationship, g.Email, g.Comments,
		)
		if err != nil {
			return fmt.Errorf("insert waitlist guest: %w", err)
		}
	}
	return nil
}

func loadWaitlistGuests(ctx context.Context, q dbtx, entryID string) ([]model.WaitlistGuest, error) {
	rows, err := q.Query(ctx,
		`SELECT id, waitlist_entry_id, first_name, last_name, date_of_birth,
		        relationship, email, comments
		 FROM waitlist_guests
		 WHERE waitlist_entry_id = $1
		 ORDER BY last_name ASC, first_name ASC`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("load waitlist guests: %w", err)
	}
	defer rows.Close()

	var guests []model.WaitlistGuest
	for rows.Next() {
		var g model.WaitlistGuest
		if err := rows.Scan(&g.ID, &g.WaitlistEntryID, &g.FirstName, &g.LastName,
			&g.DateOfBirth, &g.Relationship, &g.Email, &g.Comments); err != nil {
			return nil, fmt.Errorf("scan waitlist guest: %w", err)
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// promotedGuests copies waitlist guest rows into confirmed-guest shape.
// The waitlist shape has no phone number, so promoted guests carry none.
func promotedGuests(in []model.WaitlistGuest) []model.Guest {
	out := make([]model.Guest, 0, len(in))
	for _, g := range in {
		out = append(out, model.Guest{
			FirstName:    g.FirstName,
			LastName:     g.LastName,
			DateOfBirth:  g.DateOfBirth,
			Relationship: g.Relationship,
			Email:        g.Email,
			Comments:     g.Comments,
		})
	}
	return out
}
