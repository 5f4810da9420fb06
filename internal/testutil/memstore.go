// Package testutil provides an in-memory store for service and handler tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BatmanBruc/vip-access-bot/types"
)

type state struct {
	users     map[int64]types.User
	plans     map[int]types.Plan
	payments  map[int64]types.PaymentRequest
	referrals map[int64]types.Referral
	channels  []types.Channel
	audit     []types.AuditEntry
	settings  map[string]string
	wallets   map[string]string
	nextPay   int64
	nextRef   int64
	nextChan  int64
}

func (s *state) clone() *state {
	c := &state{
		users:     make(map[int64]types.User, len(s.users)),
		plans:     make(map[int]types.Plan, len(s.plans)),
		payments:  make(map[int64]types.PaymentRequest, len(s.payments)),
		referrals: make(map[int64]types.Referral, len(s.referrals)),
		channels:  append([]types.Channel(nil), s.channels...),
		audit:     append([]types.AuditEntry(nil), s.audit...),
		settings:  make(map[string]string, len(s.settings)),
		wallets:   make(map[string]string, len(s.wallets)),
		nextPay:   s.nextPay,
		nextRef:   s.nextRef,
		nextChan:  s.nextChan,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.plans {
		c.plans[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.referrals {
		c.referrals[k] = v
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	return c
}

// MemStore implements types.Store and types.ExpiryStore. Transactions are
// serialized and applied to a copy that replaces the state on success.
type MemStore struct {
	mu sync.Mutex
	st *state

	// FailWithTx makes every WithTx call return this error when set.
	FailWithTx error
}

var (
	_ types.Store       = (*MemStore)(nil)
	_ types.ExpiryStore = (*MemStore)(nil)
)

func NewMemStore(plans ...types.Plan) *MemStore {
	m := &MemStore{st: &state{
		users:     map[int64]types.User{},
		plans:     map[int]types.Plan{},
		payments:  map[int64]types.PaymentRequest{},
		referrals: map[int64]types.Referral{},
	}}
	for _, p := range plans {
		m.st.plans[p.ID] = p
	}
	return m
}

// PutUser stores u as is.
func (m *MemStore) PutUser(u types.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.users[u.UserID] = u
}

func (m *MemStore) Payment(id int64) (types.PaymentRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.st.payments[id]
	return p, ok
}

func (m *MemStore) Referral(referredID int64) (types.Referral, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.st.referrals[referredID]
	return r, ok
}

func (m *MemStore) Audit() []types.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.AuditEntry(nil), m.st.audit...)
}

func (m *MemStore) WithTx(ctx context.Context, fn func(q types.Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWithTx != nil {
		return m.FailWithTx
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.st.clone()
	if err := fn(&memQueries{st: work}); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *MemStore) GetPlan(_ context.Context, id int) (*types.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memQueries{st: m.st}).getPlan(id)
}

func (m *MemStore) ListActivePlans(_ context.Context) ([]types.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Plan
	for _, p := range m.st.plans {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) SeedPlans(_ context.Context, plans []types.Plan) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range plans {
		if _, ok := m.st.plans[p.ID]; ok {
			continue
		}
		m.st.plans[p.ID] = p
		n++
	}
	return n, nil
}

func (m *MemStore) UpsertUser(_ context.Context, u types.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cur, ok := m.st.users[u.UserID]
	if !ok {
		cur = types.User{UserID: u.UserID, JoinedAt: now, Status: types.UserStatusActive}
	}
	cur.ChatID = u.ChatID
	cur.Username = strings.TrimSpace(u.Username)
	cur.FirstName = strings.TrimSpace(u.FirstName)
	cur.LastName = strings.TrimSpace(u.LastName)
	cur.LastActive = now
	m.st.users[u.UserID] = cur
	return !ok, nil
}

func (m *MemStore) GetUser(_ context.Context, userID int64) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.st.users[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &u, nil
}

func (m *MemStore) ListUserIDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.st.users))
	for id := range m.st.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MemStore) InsertReferral(_ context.Context, referrerID, referredID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.users[referrerID]; !ok {
		return false, nil
	}
	if _, ok := m.st.referrals[referredID]; ok {
		return false, nil
	}
	m.st.nextRef++
	m.st.referrals[referredID] = types.Referral{
		ID:         m.st.nextRef,
		ReferrerID: referrerID,
		ReferredID: referredID,
		Status:     types.ReferralPending,
		CreatedAt:  at,
	}
	if u, ok := m.st.users[referredID]; ok && u.ReferredBy == nil {
		id := referrerID
		u.ReferredBy = &id
		m.st.users[referredID] = u
	}
	return true, nil
}

func (m *MemStore) ReferralStats(_ context.Context, userID int64) (types.ReferralStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st types.ReferralStats
	for _, r := range m.st.referrals {
		if r.ReferrerID != userID {
			continue
		}
		st.Referred++
		if r.Status == types.ReferralCompleted {
			st.Completed++
			st.Earned += r.Commission
		}
	}
	st.Balance = m.st.users[userID].Balance
	return st, nil
}

func (m *MemStore) ListPendingPayments(_ context.Context, limit int) ([]types.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.PaymentRequest
	for _, p := range m.st.payments {
		if p.Status == types.PaymentPending {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) AddChannel(_ context.Context, c *types.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.st.channels {
		if ex.Topic == c.Topic && ex.Target == c.Target {
			return types.ErrDuplicateChannel
		}
	}
	m.st.nextChan++
	c.ID = m.st.nextChan
	m.st.channels = append(m.st.channels, *c)
	return nil
}

func (m *MemStore) ListChannels(_ context.Context, topic string) ([]types.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Channel
	for _, c := range m.st.channels {
		if topic == "" || strings.EqualFold(c.Topic, topic) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemStore) Stats(_ context.Context, now time.Time) (types.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now = now.UTC()
	y, mo, d := now.Date()
	dayStart := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)

	var st types.Stats
	for _, u := range m.st.users {
		st.TotalUsers++
		if u.ActiveAt(now) {
			st.ActiveUsers++
		}
		if !u.JoinedAt.Before(dayStart) {
			st.NewToday++
		}
	}
	for _, p := range m.st.payments {
		switch p.Status {
		case types.PaymentApproved:
			st.Revenue += p.Amount
			if p.VerifiedAt != nil && !p.VerifiedAt.Before(dayStart) {
				st.RevenueToday += p.Amount
			}
		case types.PaymentPending:
			st.Pending++
		}
	}
	for _, p := range m.st.plans {
		if p.Active {
			st.ActivePlans++
		}
	}
	return st, nil
}

func (m *MemStore) ListSettings(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.st.settings))
	for k, v := range m.st.settings {
		out[k] = v
	}
	return out, nil
}

// ListWallets returns stored wallets ordered by symbol.
func (m *MemStore) ListWallets(_ context.Context) ([]types.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Wallet, 0, len(m.st.wallets))
	for sym, addr := range m.st.wallets {
		out = append(out, types.Wallet{Symbol: sym, Address: addr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *MemStore) ExpireDue(_ context.Context, now time.Time) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.User
	for id, u := range m.st.users {
		if u.Status != types.UserStatusActive || u.ExpiresAt == nil || u.ExpiresAt.After(now) {
			continue
		}
		u.Status = types.UserStatusExpired
		m.st.users[id] = u
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemStore) MarkReminders(_ context.Context, now, until time.Time) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.User
	for id, u := range m.st.users {
		if u.Status != types.UserStatusActive || u.RemindedAt != nil || u.ExpiresAt == nil {
			continue
		}
		if !u.ExpiresAt.After(now) || u.ExpiresAt.After(until) {
			continue
		}
		at := now
		u.RemindedAt = &at
		m.st.users[id] = u
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type memQueries struct {
	st *state
}

func (q *memQueries) getPlan(id int) (*types.Plan, error) {
	p, ok := q.st.plans[id]
	if !ok {
		return nil, types.ErrPlanNotFound
	}
	return &p, nil
}

func (q *memQueries) GetPlan(_ context.Context, id int) (*types.Plan, error) {
	return q.getPlan(id)
}

func (q *memQueries) EnsureUser(_ context.Context, userID int64) error {
	if _, ok := q.st.users[userID]; !ok {
		now := time.Now().UTC()
		q.st.users[userID] = types.User{UserID: userID, ChatID: userID, Status: types.UserStatusActive, JoinedAt: now, LastActive: now}
	}
	return nil
}

func (q *memQueries) LockUser(_ context.Context, userID int64) (*types.User, error) {
	u, ok := q.st.users[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &u, nil
}

func (q *memQueries) ActivateSubscription(_ context.Context, userID int64, planName string, expiresAt, now time.Time) error {
	u, ok := q.st.users[userID]
	if !ok {
		return types.ErrNotFound
	}
	exp := expiresAt
	u.PlanName = planName
	u.ExpiresAt = &exp
	u.Status = types.UserStatusActive
	u.RemindedAt = nil
	u.LastActive = now
	q.st.users[userID] = u
	return nil
}

func (q *memQueries) AdjustBalance(_ context.Context, userID int64, delta int64) (int64, error) {
	u, ok := q.st.users[userID]
	if !ok {
		return 0, types.ErrNotFound
	}
	if u.Balance+delta < 0 {
		return 0, types.ErrInsufficientBalance
	}
	u.Balance += delta
	q.st.users[userID] = u
	return u.Balance, nil
}

func (q *memQueries) InsertPayment(_ context.Context, p *types.PaymentRequest) error {
	q.st.nextPay++
	p.ID = q.st.nextPay
	if p.Status == "" {
		p.Status = types.PaymentPending
	}
	q.st.payments[p.ID] = *p
	return nil
}

func (q *memQueries) GetPayment(_ context.Context, id int64) (*types.PaymentRequest, error) {
	p, ok := q.st.payments[id]
	if !ok {
		return nil, types.ErrPaymentNotFound
	}
	return &p, nil
}

func (q *memQueries) TransitionPayment(_ context.Context, id int64, to types.PaymentStatus, adminID int64, note string, at time.Time) (bool, error) {
	p, ok := q.st.payments[id]
	if !ok || p.Status != types.PaymentPending {
		return false, nil
	}
	admin, when := adminID, at
	p.Status = to
	p.VerifiedBy = &admin
	p.VerifiedAt = &when
	if note != "" {
		p.Note = note
	}
	q.st.payments[id] = p
	return true, nil
}

func (q *memQueries) AttachProof(_ context.Context, id, userID int64, proof types.Proof) (bool, error) {
	p, ok := q.st.payments[id]
	if !ok || p.UserID != userID || p.Status != types.PaymentPending {
		return false, nil
	}
	if proof.TransactionRef != "" {
		for oid, other := range q.st.payments {
			if oid != id && other.TransactionRef == proof.TransactionRef {
				return false, types.ErrDuplicateReference
			}
		}
		p.TransactionRef = proof.TransactionRef
	}
	if proof.FileID != "" {
		p.ProofFileID = proof.FileID
	}
	if proof.Note != "" {
		p.Note = proof.Note
	}
	q.st.payments[id] = p
	return true, nil
}

func (q *memQueries) GetReferral(_ context.Context, referredID int64) (*types.Referral, error) {
	r, ok := q.st.referrals[referredID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &r, nil
}

func (q *memQueries) CompleteReferral(_ context.Context, referredID int64, commission int64, at time.Time) (bool, error) {
	r, ok := q.st.referrals[referredID]
	if !ok || r.Status != types.ReferralPending {
		return false, nil
	}
	when := at
	r.Status = types.ReferralCompleted
	r.Commission = commission
	r.CompletedAt = &when
	q.st.referrals[referredID] = r
	return true, nil
}

func (q *memQueries) SetSetting(_ context.Context, key, value string, _ time.Time) error {
	if q.st.settings == nil {
		q.st.settings = make(map[string]string)
	}
	q.st.settings[key] = strings.TrimSpace(value)
	return nil
}

func (q *memQueries) SetWallet(_ context.Context, w types.Wallet, _ time.Time) error {
	if q.st.wallets == nil {
		q.st.wallets = make(map[string]string)
	}
	q.st.wallets[strings.ToUpper(strings.TrimSpace(w.Symbol))] = strings.TrimSpace(w.Address)
	return nil
}

func (q *memQueries) InsertAudit(_ context.Context, e types.AuditEntry) error {
	q.st.audit = append(q.st.audit, e)
	return nil
}
