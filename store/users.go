package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BatmanBruc/vip-access-bot/types"
)

const userColumns = `user_id, chat_id, username, first_name, last_name, plan_name, expires_at, status,
  referred_by, balance, reminded_at, joined_at, last_active`

func scanUser(row rowScanner) (*types.User, error) {
	var (
		u          types.User
		status     string
		referredBy sql.NullInt64
	)
	err := row.Scan(&u.UserID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.PlanName,
		&u.ExpiresAt, &status, &referredBy, &u.Balance, &u.RemindedAt, &u.JoinedAt, &u.LastActive)
	if err != nil {
		return nil, err
	}
	u.Status = types.UserStatus(status)
	if referredBy.Valid {
		id := referredBy.Int64
		u.ReferredBy = &id
	}
	return &u, nil
}

// UpsertUser records a user interaction and reports whether the row was newly created.
func (s *PostgresStore) UpsertUser(ctx context.Context, user types.User) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var created bool
	err := s.q.QueryRowContext(ctx, `
INSERT INTO users (user_id, chat_id, username, first_name, last_name, joined_at, last_active)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
  chat_id = EXCLUDED.chat_id,
  username = EXCLUDED.username,
  first_name = EXCLUDED.first_name,
  last_name = EXCLUDED.last_name,
  last_active = NOW()
RETURNING (xmax = 0)
`, user.UserID, user.ChatID, strings.TrimSpace(user.Username), strings.TrimSpace(user.FirstName), strings.TrimSpace(user.LastName)).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert user %d: %w", user.UserID, err)
	}
	return created, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return u, nil
}

func (s *PostgresStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.q.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EnsureUser inserts a placeholder row so admin grants can target users who never wrote to the bot.
func (q *pgQueries) EnsureUser(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := q.q.ExecContext(ctx, `
INSERT INTO users (user_id, chat_id)
VALUES ($1, $1)
ON CONFLICT (user_id) DO NOTHING
`, userID)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	return nil
}

func (q *pgQueries) LockUser(ctx context.Context, userID int64) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	u, err := scanUser(q.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1 FOR UPDATE`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user %d: %w", userID, err)
	}
	return u, nil
}

func (q *pgQueries) ActivateSubscription(ctx context.Context, userID int64, planName string, expiresAt, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := q.q.ExecContext(ctx, `
UPDATE users SET
  plan_name = $2,
  expires_at = $3,
  status = 'active',
  reminded_at = NULL,
  last_active = $4
WHERE user_id = $1
`, userID, planName, expiresAt.UTC(), now.UTC())
	if err != nil {
		return fmt.Errorf("activate subscription for %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// AdjustBalance adds delta to the referral balance and returns the new value.
// A debit that would go below zero fails with ErrInsufficientBalance.
func (q *pgQueries) AdjustBalance(ctx context.Context, userID int64, delta int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var balance int64
	err := q.q.QueryRowContext(ctx, `
UPDATE users SET balance = balance + $2
WHERE user_id = $1 AND balance + $2 >= 0
RETURNING balance
`, userID, delta).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := q.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("adjust balance for %d: %w", userID, err)
		}
		if !exists {
			return 0, types.ErrNotFound
		}
		return 0, types.ErrInsufficientBalance
	}
	if err != nil {
		return 0, fmt.Errorf("adjust balance for %d: %w", userID, err)
	}
	return balance, nil
}

func (q *pgQueries) InsertAudit(ctx context.Context, e types.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	at := e.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := q.q.ExecContext(ctx, `
INSERT INTO audit_log (user_id, action, details, created_at)
VALUES ($1, $2, $3, $4)
`, e.UserID, e.Action, e.Details, at.UTC())
	if err != nil {
		return fmt.Errorf("insert audit %s: %w", e.Action, err)
	}
	return nil
}
