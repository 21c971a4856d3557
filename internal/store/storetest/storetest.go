// Package storetest is a behavioural suite shared by every store.CredentialStore implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/taskmanager/internal/models"
	"github.com/huangang/taskmanager/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s. newStore must return an empty store with the default roles present.
func Run(t *testing.T, newStore func(t *testing.T) store.CredentialStore) {
	t.Run("UserLifecycle", func(t *testing.T) { testUserLifecycle(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("Roles", func(t *testing.T) { testRoles(t, newStore(t)) })
	t.Run("RefreshTokenLookup", func(t *testing.T) { testRefreshTokenLookup(t, newStore(t)) })
	t.Run("RotateIsSingleUse", func(t *testing.T) { testRotateIsSingleUse(t, newStore(t)) })
	t.Run("RevokeByFilter", func(t *testing.T) { testRevokeByFilter(t, newStore(t)) })
	t.Run("Purge", func(t *testing.T) { testPurge(t, newStore(t)) })
}

func createUser(t *testing.T, s store.CredentialStore, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "hash", RoleID: models.RoleUserID}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

func newToken(userID string, expiresAt time.Time) *models.RefreshToken {
	return &models.RefreshToken{ID: uuid.NewString(), UserID: userID, ExpiresAt: expiresAt}
}

func testUserLifecycle(t *testing.T, s store.CredentialStore) {
	ctx := context.Background()
	u := createUser(t, s, "a@x.com")

	byEmail, err := s.FindUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.Role)
	assert.Equal(t, models.RoleUser, byID.Role.Name)

	email := "b@x.com"
	role := models.RoleAdminID
	require.NoError(t, s.UpdateUser(ctx, u.ID, models.UserUpdate{Email: &email, RoleID: &role}))

	updated, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", updated.Email)
	assert.Equal(t, "hash", updated.Password, "unset fields must be left alone")
	assert.Equal(t, models.RoleAdmin, updated.RoleName())

	_, err = s.FindUserByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.FindUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateUser(ctx, u.ID, models.UserUpdate{Email: &email}), store.ErrNotFound)
}

func testDuplicateEmail(t *testing.T, s store.CredentialStore) {
	ctx := context.Background()
	createUser(t, s, "a@x.com")
	other := createUser(t, s, "b@x.com")

	err := s.CreateUser(ctx, &models.User{Email: "a@x.com", Password: "hash", RoleID: models.RoleUserID})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	taken := "a@x.com"
	assert.ErrorIs(t, s.UpdateUser(ctx, other.ID, models.UserUpdate{Email: &taken}), store.ErrDuplicate)
}

func testRoles(t *testing.T, s store.CredentialStore) {
	ctx := context.Background()

	role, err := s.FindRoleByID(ctx, models.RoleAdminID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role.Name)

	_, err = s.FindRoleByID(ctx, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)

	roles, err := s.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, models.RoleAdminID, roles[0].ID)
}

func testRefreshTokenLookup(t *testing.T, s store.CredentialStore) {
	ctx := context.Background()
	tok := newToken("user-1", time.Now().Add(time.Hour))
	require.NoError(t, s.CreateRefreshToken(ctx, tok))

	found, err := s.FindUnrevokedRefreshToken(ctx, "user-1", tok.ID)
	require.NoError(t, err)
	assert.False(t, found.Revoked)

	_, err = s.FindUnrevokedRefreshToken(ctx, "user-2", tok.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "token must be bound to its owner")

	_, err = s.FindUnrevokedRefreshToken(ctx, "user-1", uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testRotateIsSingleUse(t *testing.T, s store.CredentialStore) {
	ctx := context.Background()
	now := time.Now()
	old := newToken("user-1", now.Add(time.Hour))
	require.NoError(t, s.CreateRefreshToken(ctx, old))

	next := newToken("user-1", now.Add(time.Hour))
	require.NoError(t, s.RotateRefreshToken(ctx, old.ID, next, now))

	_, err := s.FindUnrevokedRefreshToken(ctx, "user-1", old.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindUnrevokedRefreshToken(ctx, "user-1", next.ID)
	assert.NoError(t, err)

	again := newToken("user-1", now.Add(time.Hour))
	assert.ErrorIs(t, s.RotateRefreshToken(ctx, old.ID, again, now), store.ErrNotFound)
	_, err = s.FindUnrevokedRefreshToken(ctx, "user-1", again.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "a failed rotation must not persist the new record")
}

func testRevokeByFilter(t *testing.T, s store.CredentialStore) {
	ctx := context.Background()
	now := time.Now()
	a1 := newToken("user-a", now.Add(time.Hour))
	a2 := newToken("user-a", now.Add(time.Hour))
	b1 := newToken("user-b", now.Add(time.Hour))
	for _, tok := range []*models.RefreshToken{a1, a2, b1} {
		require.NoError(t, s.CreateRefreshToken(ctx, tok))
	}

	_, err := s.RevokeRefreshTokens(ctx, store.RevokeFilter{}, now)
	assert.Error(t, err, "an empty filter must not revoke everything")

	n, err := s.RevokeRefreshTokens(ctx, store.RevokeFilter{UserID: "user-a", TokenID: a1.ID}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.RevokeRefreshTokens(ctx, store.RevokeFilter{UserID: "user-a"}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "already revoked records are not counted twice")

	_, err = s.FindUnrevokedRefreshToken(ctx, "user-b", b1.ID)
	assert.NoError(t, err, "other users are unaffected")
}

func testPurge(t *testing.T, s store.CredentialStore) {
	ctx := context.Background()
	now := time.Now()

	live := newToken("u", now.Add(time.Hour))
	expired := newToken("u", now.Add(-time.Hour))
	oldRevoked := newToken("u", now.Add(time.Hour))
	freshRevoked := newToken("u", now.Add(time.Hour))
	for _, tok := range []*models.RefreshToken{live, expired, oldRevoked, freshRevoked} {
		require.NoError(t, s.CreateRefreshToken(ctx, tok))
	}
	_, err := s.RevokeRefreshTokens(ctx, store.RevokeFilter{TokenID: oldRevoked.ID}, now.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = s.RevokeRefreshTokens(ctx, store.RevokeFilter{TokenID: freshRevoked.ID}, now)
	require.NoError(t, err)

	n, err := s.PurgeRefreshTokens(ctx, now, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = s.FindUnrevokedRefreshToken(ctx, "u", live.ID)
	assert.NoError(t, err)

	// The recently revoked record survives the sweep but stays unusable.
	assert.ErrorIs(t, s.RotateRefreshToken(ctx, freshRevoked.ID, newToken("u", now.Add(time.Hour)), now), store.ErrNotFound)
}
