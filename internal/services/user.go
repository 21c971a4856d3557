package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangang/taskmanager/internal/models"
	"github.com/huangang/taskmanager/internal/store"
	"github.com/huangang/taskmanager/internal/utils"
	"github.com/huangang/taskmanager/pkg/logger"
	"github.com/rs/zerolog"
)

// SessionRevoker signs a user out of every device.
type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string) (int64, error)
}

// UserService is the admin-facing user management.
type UserService struct {
	store    store.CredentialStore
	hasher   utils.PasswordHasher
	sessions SessionRevoker
	log      zerolog.Logger
}

func NewUserService(st store.CredentialStore, hasher utils.PasswordHasher, sessions SessionRevoker) *UserService {
	return &UserService{
		store:    st,
		hasher:   hasher,
		sessions: sessions,
		log:      logger.Component("users"),
	}
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	RoleID   uint   `json:"roleId" binding:"required"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6,max=72"`
	RoleID   *uint   `json:"roleId"`
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(users))
	for i := range users {
		out = append(out, users[i].Sanitized())
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.FindUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindNotFound, MsgUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	if _, err := s.store.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, newError(KindDuplicateEmail, MsgDuplicateEmail)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err := s.checkRole(ctx, req.RoleID); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Email: req.Email, Password: hash, RoleID: req.RoleID}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, newError(KindDuplicateEmail, MsgDuplicateEmail)
		}
		return nil, err
	}
	return s.Get(ctx, user.ID)
}

// Update applies a partial update. Changing the password or the role revokes the user's sessions.
func (s *UserService) Update(ctx context.Context, id string, req *UpdateUserRequest) (*models.User, error) {
	user, err := s.store.FindUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindNotFound, MsgUserNotFound)
	}
	if err != nil {
		return nil, err
	}

	var upd models.UserUpdate
	if req.Email != nil && *req.Email != user.Email {
		if _, err := s.store.FindUserByEmail(ctx, *req.Email); err == nil {
			return nil, newError(KindDuplicateEmail, "Email already in use")
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		upd.Email = req.Email
	}
	if req.RoleID != nil {
		if err := s.checkRole(ctx, *req.RoleID); err != nil {
			return nil, err
		}
		upd.RoleID = req.RoleID
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		upd.Password = &hash
	}

	if err := s.store.UpdateUser(ctx, id, upd); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, newError(KindDuplicateEmail, "Email already in use")
		}
		return nil, err
	}

	roleChanged := upd.RoleID != nil && *upd.RoleID != user.RoleID
	if upd.Password != nil || roleChanged {
		if _, err := s.sessions.RevokeUserSessions(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// Delete removes a user. Admins cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return newError(KindValidation, "You cannot delete your own account")
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, MsgUserNotFound)
		}
		return err
	}
	s.log.Info().Str("user_id", id).Str("actor_id", actorID).Msg("user deleted")
	return nil
}

func (s *UserService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.store.ListRoles(ctx)
}

func (s *UserService) checkRole(ctx context.Context, roleID uint) error {
	_, err := s.store.FindRoleByID(ctx, roleID)
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindInvalidRole, MsgInvalidRole)
	}
	return err
}
