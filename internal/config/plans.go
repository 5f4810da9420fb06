package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BatmanBruc/vip-access-bot/types"
)

// DefaultPlans is the catalog seeded into an empty database.
func DefaultPlans() []types.Plan {
	return []types.Plan{
		{
			ID: 1, Name: "⭐ BASIC - 1 Week", DurationDays: 7, Price: 99,
			Description: "Weekly access to private channel",
			Features:    []string{"✅ Channel Access", "✅ Basic Support", "✅ Weekly Updates"},
			Active:      true,
		},
		{
			ID: 2, Name: "🚀 PRO - 1 Month", DurationDays: 30, Price: 299,
			Description: "Monthly access with priority support",
			Features:    []string{"✅ Channel Access", "✅ Priority Support", "✅ Daily Updates", "✅ Exclusive Content"},
			Active:      true,
		},
		{
			ID: 3, Name: "🔥 PREMIUM - 3 Months", DurationDays: 90, Price: 799,
			Description: "3 months access + bonus content",
			Features:    []string{"✅ Channel Access", "✅ VIP Support", "✅ Bonus Content", "✅ Early Access"},
			Active:      true,
		},
		{
			ID: 4, Name: "👑 LIFETIME", DurationDays: 36500, Price: 1999,
			Description: "Lifetime access + all future updates",
			Features:    []string{"✅ Lifetime Access", "✅ All Future Updates", "✅ 24/7 Support", "✅ Special Badge"},
			Active:      true,
		},
	}
}

type planFile struct {
	Plans []struct {
		ID           int      `yaml:"id"`
		Name         string   `yaml:"name"`
		DurationDays int      `yaml:"duration_days"`
		Price        int64    `yaml:"price"`
		Description  string   `yaml:"description"`
		Features     []string `yaml:"features"`
		Active       *bool    `yaml:"active"`
	} `yaml:"plans"`
}

// LoadPlans reads a YAML seed catalog. Plans default to active.
func LoadPlans(path string) ([]types.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePlans(data)
}

func ParsePlans(data []byte) ([]types.Plan, error) {
	var f planFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	if len(f.Plans) == 0 {
		return nil, errors.New("no plans defined")
	}
	seen := make(map[int]bool, len(f.Plans))
	plans := make([]types.Plan, 0, len(f.Plans))
	for _, p := range f.Plans {
		switch {
		case p.ID <= 0:
			return nil, fmt.Errorf("plan %q: id must be positive", p.Name)
		case seen[p.ID]:
			return nil, fmt.Errorf("plan id %d is duplicated", p.ID)
		case strings.TrimSpace(p.Name) == "":
			return nil, fmt.Errorf("plan %d: name is required", p.ID)
		case p.DurationDays <= 0:
			return nil, fmt.Errorf("plan %d: duration_days must be positive", p.ID)
		case p.Price < 0:
			return nil, fmt.Errorf("plan %d: price must not be negative", p.ID)
		}
		seen[p.ID] = true
		active := true
		if p.Active != nil {
			active = *p.Active
		}
		plans = append(plans, types.Plan{
			ID:           p.ID,
			Name:         strings.TrimSpace(p.Name),
			DurationDays: p.DurationDays,
			Price:        p.Price,
			Description:  strings.TrimSpace(p.Description),
			Features:     p.Features,
			Active:       active,
		})
	}
	return plans, nil
}
