package subscription

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/types"
)

// ListActivePlans returns active plans, cheapest first.
func (s *Service) ListActivePlans(ctx context.Context) ([]types.Plan, error) {
	plans, err := s.store.ListActivePlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active plans: %w", err)
	}
	return plans, nil
}

func (s *Service) GetPlan(ctx context.Context, id int) (*types.Plan, error) {
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get plan %d: %w", id, err)
	}
	return p, nil
}

// SeedPlans inserts any of the given plans that are not in the catalog yet.
func (s *Service) SeedPlans(ctx context.Context, plans []types.Plan) error {
	n, err := s.store.SeedPlans(ctx, plans)
	if err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}
	if n > 0 {
		s.log.Info("seeded plans", zap.Int("inserted", n))
	}
	return nil
}
