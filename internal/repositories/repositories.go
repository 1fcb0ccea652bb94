// package repositories provides SQLite persistence for download history.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// NextSequence atomically increments and returns the next sequence number for name.
//
// Sequence numbers give history rows a stable insertion order independent of UUIDs and timestamps.
func NextSequence(ctx context.Context, db *sql.DB, name string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequence(ctx, tx, name)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}
	return sequence, nil
}

func nextSequence(ctx context.Context, tx *sql.Tx, name string) (int, error) {
	res, err := tx.ExecContext(ctx, "UPDATE sequences SET value = value + 1 WHERE name = ?", name)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("unknown sequence %q", name)
	}

	var sequence int
	if err := tx.QueryRowContext(ctx, "SELECT value FROM sequences WHERE name = ?", name).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}
	return sequence, nil
}
