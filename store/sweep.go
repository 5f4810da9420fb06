package store

import (
	"context"
	"fmt"
	"time"

	"github.com/BatmanBruc/vip-access-bot/types"
)

const sweepTimeout = 30 * time.Second

// ExpireDue flips every active user whose expiry has passed to expired in one
// statement and returns the affected rows. Rows already expired are never reselected.
func (s *PostgresStore) ExpireDue(ctx context.Context, now time.Time) ([]types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	rows, err := s.q.QueryContext(ctx, `
UPDATE users SET status = 'expired'
WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= $1
RETURNING `+userColumns, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("expire due users: %w", err)
	}
	return collectUsers(rows)
}

// MarkReminders stamps reminded_at on active users expiring in (now, until] that
// have not been reminded since their last grant.
func (s *PostgresStore) MarkReminders(ctx context.Context, now, until time.Time) ([]types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	rows, err := s.q.QueryContext(ctx, `
UPDATE users SET reminded_at = $1
WHERE status = 'active' AND reminded_at IS NULL
  AND expires_at > $1 AND expires_at <= $2
RETURNING `+userColumns, now.UTC(), until.UTC())
	if err != nil {
		return nil, fmt.Errorf("mark expiry reminders: %w", err)
	}
	return collectUsers(rows)
}

type rowsScanner interface {
	rowScanner
	Next() bool
	Err() error
	Close() error
}

func collectUsers(rows rowsScanner) ([]types.User, error) {
	defer rows.Close()
	var users []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
