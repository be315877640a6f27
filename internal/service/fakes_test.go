package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okdriver/backend/internal/models"
	"github.com/okdriver/backend/internal/repository"
)

// memStore is an in-memory stand-in for the postgres repositories.
type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	keys  map[string]*models.APIKey
	plans map[string]*models.Plan
	subs  []*models.Subscription
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*models.User),
		keys:  make(map[string]*models.APIKey),
		plans: make(map[string]*models.Plan),
	}
}

func (m *memStore) addPlan(name string, days int, active bool) *models.Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &models.Plan{ID: uuid.NewString(), Name: name, Price: 99, DaysValidity: days, IsActive: active}
	m.plans[p.ID] = p
	return p
}

func (m *memStore) activeRows(userID string, now time.Time) []*models.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Subscription
	for _, s := range m.subs {
		if s.UserID == userID && s.IsCurrent(now) {
			out = append(out, s)
		}
	}
	return out
}

type userStore struct{ *memStore }

func (s userStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email || (u.GoogleID != "" && existing.GoogleID == u.GoogleID) {
			return repository.ErrUserExists
		}
	}
	u.ID = uuid.NewString()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s userStore) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s userStore) find(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s userStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email })
}

func (s userStore) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.GoogleID != "" && u.GoogleID == googleID })
}

func (s userStore) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return repository.ErrUserExists
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

type keyStore struct{ *memStore }

func (s keyStore) Create(_ context.Context, k *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k.ID = uuid.NewString()
	cp := *k
	s.keys[k.ID] = &cp
	return nil
}

func (s keyStore) ListByUser(_ context.Context, userID string) ([]models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.APIKey{}
	for _, k := range s.keys {
		if k.UserID == userID {
			out = append(out, *k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s keyStore) GetByHash(_ context.Context, hash string) (*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.KeyHash == hash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, repository.ErrAPIKeyNotFound
}

func (s keyStore) Revoke(_ context.Context, userID, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[keyID]
	if !ok || k.UserID != userID {
		return repository.ErrAPIKeyNotFound
	}
	k.IsActive = false
	k.Revoked = true
	return nil
}

func (s keyStore) TouchLastUsed(_ context.Context, keyID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[keyID]; ok {
		k.LastUsedAt = &at
	}
	return nil
}

type planStore struct{ *memStore }

func (s planStore) GetByID(_ context.Context, id string) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, repository.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (s planStore) ListActive(_ context.Context) ([]models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Plan{}
	for _, p := range s.plans {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// subStore serializes ReplaceActive under the store mutex, the in-memory
// equivalent of the row lock the postgres repository takes.
type subStore struct{ *memStore }

func (s subStore) GetCurrent(_ context.Context, userID string, now time.Time) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.Subscription
	for _, sub := range s.subs {
		if sub.UserID != userID || !sub.IsCurrent(now) {
			continue
		}
		if best == nil || sub.EndAt.After(best.EndAt) {
			best = sub
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	if p, ok := s.plans[cp.PlanID]; ok {
		plan := *p
		cp.Plan = &plan
	}
	return &cp, nil
}

func (s subStore) ReplaceActive(_ context.Context, sub *models.Subscription, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[sub.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	for _, existing := range s.subs {
		if existing.UserID == sub.UserID && existing.IsCurrent(now) {
			existing.Status = models.SubscriptionExpired
		}
	}
	sub.ID = uuid.NewString()
	sub.CreatedAt = now
	cp := *sub
	s.subs = append(s.subs, &cp)
	return nil
}

func (s subStore) ExpireLapsed(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sub := range s.subs {
		if sub.Status == models.SubscriptionActive && sub.EndAt.Before(now) {
			sub.Status = models.SubscriptionExpired
			n++
		}
	}
	return n, nil
}

// mapCache is a SubscriptionCache backed by maps.
type mapCache struct {
	mu      sync.Mutex
	gens    map[string]int64
	entries map[string]*models.Subscription
}

func newMapCache() *mapCache {
	return &mapCache{gens: make(map[string]int64), entries: make(map[string]*models.Subscription)}
}

func cacheKey(userID string, gen int64) string {
	return fmt.Sprintf("%s:%d", userID, gen)
}

func (c *mapCache) Generation(_ context.Context, userID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], true
}

func (c *mapCache) Get(_ context.Context, userID string, gen int64) (*models.Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.entries[cacheKey(userID, gen)]
	return sub, ok
}

func (c *mapCache) Set(_ context.Context, userID string, gen int64, sub *models.Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(userID, gen)] = sub
}

func (c *mapCache) Invalidate(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[userID]++
}

// current returns the answer a reader would see right now.
func (c *mapCache) current(userID string) (*models.Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.entries[cacheKey(userID, c.gens[userID])]
	return sub, ok
}

// pausedReads holds every GetCurrent after the read until release is closed,
// announcing each completed read on read.
type pausedReads struct {
	SubscriptionStore
	read    chan struct{}
	release chan struct{}
}

func (p pausedReads) GetCurrent(ctx context.Context, userID string, now time.Time) (*models.Subscription, error) {
	sub, err := p.SubscriptionStore.GetCurrent(ctx, userID, now)
	p.read <- struct{}{}
	<-p.release
	return sub, err
}

// countingHasher records how many password comparisons were made.
type countingHasher struct {
	PasswordHasher
	mu     sync.Mutex
	checks int
}

func (h *countingHasher) Check(password, hash string) bool {
	h.mu.Lock()
	h.checks++
	h.mu.Unlock()
	return h.PasswordHasher.Check(password, hash)
}

func (h *countingHasher) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.checks
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
