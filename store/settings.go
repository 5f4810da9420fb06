package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BatmanBruc/vip-access-bot/types"
)

func (q *pgQueries) SetSetting(ctx context.Context, key, value string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := q.q.ExecContext(ctx, `
INSERT INTO settings (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
`, key, strings.TrimSpace(value), at.UTC())
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) ListSettings(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.q.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetWallet stores or replaces the address for a symbol. Symbols are upper case.
func (q *pgQueries) SetWallet(ctx context.Context, w types.Wallet, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := q.q.ExecContext(ctx, `
INSERT INTO wallets (symbol, address, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (symbol) DO UPDATE SET address = EXCLUDED.address, updated_at = EXCLUDED.updated_at
`, strings.ToUpper(strings.TrimSpace(w.Symbol)), strings.TrimSpace(w.Address), at.UTC())
	if err != nil {
		return fmt.Errorf("set wallet %s: %w", w.Symbol, err)
	}
	return nil
}

func (s *PostgresStore) ListWallets(ctx context.Context) ([]types.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.q.QueryContext(ctx, `SELECT symbol, address FROM wallets ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()
	var out []types.Wallet
	for rows.Next() {
		var w types.Wallet
		if err := rows.Scan(&w.Symbol, &w.Address); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
