package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/BatmanBruc/vip-access-bot/types"
)

const planColumns = `id, name, duration_days, price, description, features, is_active`

func scanPlan(row rowScanner) (*types.Plan, error) {
	var (
		p        types.Plan
		features string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.DurationDays, &p.Price, &p.Description, &features, &p.Active); err != nil {
		return nil, err
	}
	p.Features = splitFeatures(features)
	return &p, nil
}

func splitFeatures(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (q *pgQueries) GetPlan(ctx context.Context, id int) (*types.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	p, err := scanPlan(q.q.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %d: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) ListActivePlans(ctx context.Context) ([]types.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.q.QueryContext(ctx, `
SELECT `+planColumns+`
FROM plans
WHERE is_active
ORDER BY price ASC, id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []types.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// SeedPlans inserts plans whose id is not taken yet and returns how many were added.
func (s *PostgresStore) SeedPlans(ctx context.Context, plans []types.Plan) (int, error) {
	inserted := 0
	for _, p := range plans {
		n, err := s.seedPlan(ctx, p)
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

func (s *PostgresStore) seedPlan(ctx context.Context, p types.Plan) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := s.q.ExecContext(ctx, `
INSERT INTO plans (id, name, duration_days, price, description, features, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING
`, p.ID, strings.TrimSpace(p.Name), p.DurationDays, p.Price, strings.TrimSpace(p.Description), strings.Join(p.Features, "\n"), p.Active)
	if err != nil {
		return 0, fmt.Errorf("seed plan %d: %w", p.ID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
