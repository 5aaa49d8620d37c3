package repository

import (
	"context"
	"strconv"
	"sync"

	"admin-dashboard/backend/internal/models"
	"admin-dashboard/backend/pkg/cache"
)

// CachedUserStore fronts a UserStore with a by-id cache, the lookup every
// authenticated request makes. Cached users never carry the password hash.
type CachedUserStore struct {
	UserStore
	cache cache.Cache[models.User]

	mu  sync.Mutex
	gen map[uint]uint64
}

// NewCachedUserStore wraps next with c.
func NewCachedUserStore(next UserStore, c cache.Cache[models.User]) *CachedUserStore {
	return &CachedUserStore{UserStore: next, cache: c, gen: make(map[uint]uint64)}
}

func key(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (s *CachedUserStore) generation(id uint) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[id]
}

func (s *CachedUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	if u, ok := s.cache.Get(ctx, key(id)); ok {
		return &u, nil
	}
	gen := s.generation(id)
	user, err := s.UserStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot := *user
	snapshot.Password = ""

	// A row read before a concurrent Update must not be cached.
	s.mu.Lock()
	if s.gen[id] == gen {
		s.cache.Set(ctx, key(id), snapshot)
	}
	s.mu.Unlock()
	return user, nil
}

func (s *CachedUserStore) Update(ctx context.Context, user *models.User, fields ...string) error {
	err := s.UserStore.Update(ctx, user, fields...)
	s.mu.Lock()
	s.gen[user.ID]++
	s.cache.Delete(ctx, key(user.ID))
	s.mu.Unlock()
	return err
}
