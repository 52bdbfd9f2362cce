package storage

import (
	"context"
	"sync"
	"time"

	"github.com/xaenox/nutrobo/internal/models"
)

type MemoryStorage struct {
	mu     sync.RWMutex
	users  map[string]*models.User
	owners map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:  make(map[string]*models.User),
		owners: make(map[string]string),
	}
}

func (s *MemoryStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (s *MemoryStorage) PutUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, threadID := range user.Threads {
		if owner, ok := s.owners[threadID]; ok && owner != user.ID {
			return ErrThreadOwned
		}
	}

	stored, exists := s.users[user.ID]
	if !exists {
		stored = &models.User{ID: user.ID}
		s.users[user.ID] = stored
	}
	stored.Profile = user.Profile
	stored.LastUsedAt = time.Now()

	// oldest first so the newest ends up in front
	for i := len(user.Threads) - 1; i >= 0; i-- {
		s.addThreadLocked(stored, user.Threads[i])
	}
	return nil
}

func (s *MemoryStorage) AddThread(ctx context.Context, userID, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.owners[threadID]; ok && owner != userID {
		return ErrThreadOwned
	}
	user, exists := s.users[userID]
	if !exists {
		user = &models.User{ID: userID}
		s.users[userID] = user
	}
	user.LastUsedAt = time.Now()
	s.addThreadLocked(user, threadID)
	return nil
}

func (s *MemoryStorage) addThreadLocked(user *models.User, threadID string) {
	if _, ok := s.owners[threadID]; ok {
		return
	}
	s.owners[threadID] = user.ID
	user.Threads = append([]string{threadID}, user.Threads...)
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Threads = append([]string{}, u.Threads...)
	return &c
}
