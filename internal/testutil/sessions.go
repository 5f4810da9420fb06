package testutil

import (
	"context"
	"sync"

	"github.com/BatmanBruc/vip-access-bot/types"
)

// MemSessions is an in-memory types.SessionStore. Unknown users get an idle session.
type MemSessions struct {
	mu       sync.Mutex
	sessions map[int64]types.Session
}

var _ types.SessionStore = (*MemSessions)(nil)

func NewMemSessions() *MemSessions {
	return &MemSessions{sessions: map[int64]types.Session{}}
}

func (m *MemSessions) GetSession(_ context.Context, userID int64) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = types.Session{UserID: userID, State: types.StateIdle}
	}
	return &s, nil
}

func (m *MemSessions) SaveSession(_ context.Context, s *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = *s
	return nil
}

func (m *MemSessions) ClearSession(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}
