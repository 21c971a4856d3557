// Package memstore is an in-memory store.CredentialStore for tests and local tooling.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/taskmanager/internal/models"
	"github.com/huangang/taskmanager/internal/store"
)

var _ store.CredentialStore = (*Store)(nil)

type Store struct {
	lock     sync.RWMutex
	users    map[string]*models.User
	emailIDs map[string]string // email to user id
	roles    map[uint]*models.Role
	tokens   map[string]*models.RefreshToken
}

// New returns a store seeded with the default roles.
func New() *Store {
	s := &Store{
		users:    make(map[string]*models.User),
		emailIDs: make(map[string]string),
		roles:    make(map[uint]*models.Role),
		tokens:   make(map[string]*models.RefreshToken),
	}
	for _, role := range models.DefaultRoles {
		role := role
		s.roles[role.ID] = &role
	}
	return s
}

func (s *Store) withRole(u *models.User) *models.User {
	cp := *u
	cp.Role = nil
	if role, ok := s.roles[u.RoleID]; ok {
		r := *role
		cp.Role = &r
	}
	return &cp
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	id, ok := s.emailIDs[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.withRole(s.users[id]), nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.withRole(u), nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.emailIDs[user.Email]; ok {
		return store.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := s.users[user.ID]; ok {
		return store.ErrDuplicate
	}

	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	cp.Role = nil
	s.users[cp.ID] = &cp
	s.emailIDs[cp.Email] = cp.ID
	return nil
}

func (s *Store) UpdateUser(_ context.Context, id string, upd models.UserUpdate) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if upd.Email != nil && *upd.Email != u.Email {
		if _, taken := s.emailIDs[*upd.Email]; taken {
			return store.ErrDuplicate
		}
		delete(s.emailIDs, u.Email)
		u.Email = *upd.Email
		s.emailIDs[u.Email] = id
	}
	if upd.Password != nil {
		u.Password = *upd.Password
	}
	if upd.RoleID != nil {
		u.RoleID = *upd.RoleID
	}
	if !upd.IsEmpty() {
		u.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.emailIDs, u.Email)
	delete(s.users, id)
	for tid, t := range s.tokens {
		if t.UserID == id {
			delete(s.tokens, tid)
		}
	}
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *s.withRole(u))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Email < users[j].Email
	})
	return users, nil
}

func (s *Store) FindRoleByID(_ context.Context, id uint) (*models.Role, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	role, ok := s.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *role
	return &cp, nil
}

func (s *Store) ListRoles(_ context.Context) ([]models.Role, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	roles := make([]models.Role, 0, len(s.roles))
	for _, r := range s.roles {
		roles = append(roles, *r)
	}
	sort.Slice(roles, func(i, j int) bool {
		return roles[i].ID < roles[j].ID
	})
	return roles, nil
}

func (s *Store) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.createTokenLocked(token)
}

func (s *Store) createTokenLocked(token *models.RefreshToken) error {
	if _, ok := s.tokens[token.ID]; ok {
		return store.ErrDuplicate
	}
	now := time.Now()
	token.CreatedAt, token.UpdatedAt = now, now
	cp := *token
	s.tokens[cp.ID] = &cp
	return nil
}

func (s *Store) FindUnrevokedRefreshToken(_ context.Context, userID, tokenID string) (*models.RefreshToken, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	t, ok := s.tokens[tokenID]
	if !ok || t.UserID != userID || t.Revoked {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) RotateRefreshToken(_ context.Context, oldID string, next *models.RefreshToken, now time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	old, ok := s.tokens[oldID]
	if !ok || old.Revoked {
		return store.ErrNotFound
	}
	if _, exists := s.tokens[next.ID]; exists {
		return store.ErrDuplicate
	}
	revoke(old, now)
	return s.createTokenLocked(next)
}

func (s *Store) RevokeRefreshTokens(_ context.Context, filter store.RevokeFilter, now time.Time) (int64, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	var n int64
	for _, t := range s.tokens {
		if t.Revoked {
			continue
		}
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if filter.TokenID != "" && t.ID != filter.TokenID {
			continue
		}
		revoke(t, now)
		n++
	}
	return n, nil
}

func (s *Store) PurgeRefreshTokens(_ context.Context, expiredBefore, revokedBefore time.Time) (int64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var n int64
	for id, t := range s.tokens {
		expired := t.ExpiresAt.Before(expiredBefore)
		stale := t.Revoked && t.RevokedAt != nil && t.RevokedAt.Before(revokedBefore)
		if expired || stale {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

// RefreshTokens returns a snapshot of every stored record, for assertions in tests.
func (s *Store) RefreshTokens() []models.RefreshToken {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := make([]models.RefreshToken, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func revoke(t *models.RefreshToken, now time.Time) {
	t.Revoked = true
	at := now
	t.RevokedAt = &at
	t.UpdatedAt = now
}
