package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/BatmanBruc/vip-access-bot/types"
)

// RedisSessionStore keeps per-user conversation state, e.g. which payment
// request the next screenshot belongs to.
type RedisSessionStore struct {
	client *RedisClient
	ttl    time.Duration
}

var _ types.SessionStore = (*RedisSessionStore)(nil)

func NewRedisSessionStore(client *RedisClient, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) key(userID int64) string {
	return s.client.generateKey("session", strconv.FormatInt(userID, 10))
}

// GetSession never fails on a missing key: an absent session is an idle one.
func (s *RedisSessionStore) GetSession(ctx context.Context, userID int64) (*types.Session, error) {
	var session types.Session
	if err := s.client.Get(ctx, s.key(userID), &session); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return &types.Session{UserID: userID, State: types.StateIdle}, nil
		}
		return nil, err
	}
	if session.State == "" {
		session.State = types.StateIdle
	}
	return &session, nil
}

func (s *RedisSessionStore) SaveSession(ctx context.Context, session *types.Session) error {
	session.UpdatedAt = time.Now()
	return s.client.Set(ctx, s.key(session.UserID), session, s.ttl)
}

func (s *RedisSessionStore) ClearSession(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.key(userID))
}
