package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BatmanBruc/vip-access-bot/types"
)

func (s *PostgresStore) AddChannel(ctx context.Context, c *types.Channel) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	err := s.q.QueryRowContext(ctx, `
INSERT INTO channels (topic, target, description, added_by, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, strings.TrimSpace(c.Topic), strings.TrimSpace(c.Target), strings.TrimSpace(c.Description), c.AddedBy, c.CreatedAt.UTC()).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrDuplicateChannel
		}
		return fmt.Errorf("add channel %q: %w", c.Target, err)
	}
	return nil
}

// ListChannels returns channels for a topic (case-insensitive), or all when topic is empty.
func (s *PostgresStore) ListChannels(ctx context.Context, topic string) ([]types.Channel, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.q.QueryContext(ctx, `
SELECT id, topic, target, description, added_by, created_at
FROM channels
WHERE $1 = '' OR LOWER(topic) = LOWER($1)
ORDER BY id ASC
`, strings.TrimSpace(topic))
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()
	var out []types.Channel
	for rows.Next() {
		var c types.Channel
		if err := rows.Scan(&c.ID, &c.Topic, &c.Target, &c.Description, &c.AddedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
