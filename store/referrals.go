package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BatmanBruc/vip-access-bot/types"
)

// InsertReferral links a referred user to the referrer. A user can be referred
// once; a second attempt or an unknown referrer reports false.
func (s *PostgresStore) InsertReferral(ctx context.Context, referrerID, referredID int64, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO referrals (referrer_id, referred_id, status, created_at)
SELECT $1, $2, 'pending', $3
WHERE EXISTS (SELECT 1 FROM users WHERE user_id = $1)
ON CONFLICT (referred_id) DO NOTHING
`, referrerID, referredID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("insert referral %d->%d: %w", referrerID, referredID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE users SET referred_by = $1
WHERE user_id = $2 AND referred_by IS NULL
`, referrerID, referredID); err != nil {
		return false, fmt.Errorf("set referred_by for %d: %w", referredID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit referral: %w", err)
	}
	return true, nil
}

func (q *pgQueries) GetReferral(ctx context.Context, referredID int64) (*types.Referral, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	query := `
SELECT id, referrer_id, referred_id, commission, status, created_at, completed_at
FROM referrals
WHERE referred_id = $1`
	if _, inTx := q.q.(*sql.Tx); inTx {
		query += ` FOR UPDATE`
	}
	var (
		r      types.Referral
		status string
	)
	err := q.q.QueryRowContext(ctx, query, referredID).Scan(&r.ID, &r.ReferrerID, &r.ReferredID, &r.Commission, &status, &r.CreatedAt, &r.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get referral for %d: %w", referredID, err)
	}
	r.Status = types.ReferralStatus(status)
	return &r, nil
}

// CompleteReferral records the commission once; false means it was already completed.
func (q *pgQueries) CompleteReferral(ctx context.Context, referredID int64, commission int64, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := q.q.ExecContext(ctx, `
UPDATE referrals SET status = 'completed', commission = $2, completed_at = $3
WHERE referred_id = $1 AND status = 'pending'
`, referredID, commission, at.UTC())
	if err != nil {
		return false, fmt.Errorf("complete referral for %d: %w", referredID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresStore) ReferralStats(ctx context.Context, userID int64) (types.ReferralStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var st types.ReferralStats
	err := s.q.QueryRowContext(ctx, `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE status = 'completed'),
  COALESCE(SUM(commission) FILTER (WHERE status = 'completed'), 0),
  COALESCE((SELECT balance FROM users WHERE user_id = $1), 0)
FROM referrals
WHERE referrer_id = $1
`, userID).Scan(&st.Referred, &st.Completed, &st.Earned, &st.Balance)
	if err != nil {
		return types.ReferralStats{}, fmt.Errorf("referral stats for %d: %w", userID, err)
	}
	return st, nil
}
