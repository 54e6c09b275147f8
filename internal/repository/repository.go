// Package repository implements all database queries for the volunteer
// event-management system. It uses pgx directly (no ORM) for transparency
// and performance.
//
// Slot bookkeeping lives in the shared reserve/release helpers so that
// every operation that moves capacity does so inside its own transaction.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"volunteerhub/internal/model"
)

// dbtx is the subset of pgx operations shared by *pgxpool.Pool and pgx.Tx,
// so the ledger helpers can run standalone or inside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// reserve takes n slots on a position with a single conditional update.
//
// The update only matches while filled_slots + n <= total_slots, so two
// concurrent reservations for the last slot cannot both succeed: whichever
// statement runs second sees the incremented counter and matches zero
// rows. No SELECT ... FOR UPDATE round trip is needed.
func reserve(ctx context.Context, q dbtx, positionID string, n int) error {
	tag, err := q.Exec(ctx,
		`UPDATE positions
		 SET filled_slots = filled_slots + $2
		 WHERE id = $1 AND filled_slots + $2 <= total_slots`,
		positionID, n,
	)
	if err != nil {
		return fmt.Errorf("reserve slots: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: the position is either missing or out of capacity. The
	// shortfall is clamped at zero for the case where total_slots shrank
	// below filled_slots.
	var available int
	err = q.QueryRow(ctx,
		`SELECT GREATEST(total_slots - filled_slots, 0) FROM positions WHERE id = $1`,
		positionID,
	).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		return fmt.Errorf("check position capacity: %w", err)
	}
	if n == 1 {
		return model.ErrPositionFull
	}
	return &model.CapacityError{Available: available, Requested: n}
}

// release frees n slots on a position, clamping at zero.
func release(ctx context.Context, q dbtx, positionID string, n int) error {
	_, err := q.Exec(ctx,
		`UPDATE positions
		 SET filled_slots = GREATEST(filled_slots - $2, 0)
		 WHERE id = $1`,
		positionID, n,
	)
	if err != nil {
		return fmt.Errorf("release slots: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation reports whether err is a Postgres FK error.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
