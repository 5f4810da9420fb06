package store

import (
	"context"
	"fmt"
	"time"

	"github.com/BatmanBruc/vip-access-bot/types"
)

func (s *PostgresStore) Stats(ctx context.Context, now time.Time) (types.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	now = now.UTC()
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var st types.Stats
	err := s.q.QueryRowContext(ctx, `
SELECT
  (SELECT COUNT(*) FROM users),
  (SELECT COUNT(*) FROM users WHERE expires_at > $1),
  (SELECT COUNT(*) FROM users WHERE joined_at >= $2),
  (SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'approved'),
  (SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'approved' AND verified_at >= $2),
  (SELECT COUNT(*) FROM payments WHERE status = 'pending'),
  (SELECT COUNT(*) FROM plans WHERE is_active)
`, now, dayStart).Scan(&st.TotalUsers, &st.ActiveUsers, &st.NewToday, &st.Revenue, &st.RevenueToday, &st.Pending, &st.ActivePlans)
	if err != nil {
		return types.Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return st, nil
}
