package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/huangang/taskmanager/internal/models"
	"github.com/huangang/taskmanager/internal/store"
	"github.com/huangang/taskmanager/internal/utils"
	"github.com/huangang/taskmanager/pkg/logger"
	"github.com/rs/zerolog"
)

// RevokedTokenGrace is how long revoked refresh-token records are kept before
// the maintenance sweep deletes them.
const RevokedTokenGrace = 24 * time.Hour

// AuthService manages registration, login and the refresh-token lifecycle.
type AuthService struct {
	store  store.CredentialStore
	codec  *utils.TokenCodec
	hasher utils.PasswordHasher
	now    func() time.Time
	log    zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

type AuthOption func(*AuthService)

// WithClock sets the time source used for expiry checks and revocation stamps.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func WithPasswordHasher(h utils.PasswordHasher) AuthOption {
	return func(s *AuthService) { s.hasher = h }
}

func NewAuthService(st store.CredentialStore, codec *utils.TokenCodec, opts ...AuthOption) *AuthService {
	s := &AuthService{
		store:  st,
		codec:  codec,
		hasher: utils.BcryptHasher{},
		now:    time.Now,
		log:    logger.Component("auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	RoleID   uint   `json:"roleId" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6,max=72"`
}

// Session is the outcome of register, login and refresh.
type Session struct {
	User             *models.User
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type tokenPair struct {
	accessToken  string
	refreshToken string
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*Session, error) {
	if _, err := s.store.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, newError(KindDuplicateEmail, MsgDuplicateEmail)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	role, err := s.store.FindRoleByID(ctx, req.RoleID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindInvalidRole, MsgInvalidRole)
	}
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Email: req.Email, Password: hash, RoleID: role.ID}
	if err := s.store.CreateUser(ctx, user); err != nil {
		// lost a race with a concurrent registration of the same email
		if errors.Is(err, store.ErrDuplicate) {
			return nil, newError(KindDuplicateEmail, MsgDuplicateEmail)
		}
		return nil, err
	}
	user.Role = role

	s.log.Info().Str("user_id", user.ID).Str("role", role.Name).Msg("user registered")
	return s.startSession(ctx, user)
}

// Login returns the same failure for an unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		// keep response timing close to the wrong-password path
		s.hasher.Verify(req.Password, s.fallbackHash())
		return nil, newError(KindInvalidCredentials, MsgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(req.Password, user.Password) {
		return nil, newError(KindInvalidCredentials, MsgInvalidCredentials)
	}

	return s.startSession(ctx, user)
}

// Refresh rotates a refresh token: the presented record is revoked and a new
// pair is issued in the same unit of work.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, newError(KindInvalidRefreshToken, "Refresh token required")
	}

	claims, err := s.codec.VerifyRefreshToken(refreshToken)
	if errors.Is(err, utils.ErrTokenExpired) {
		return nil, newError(KindRefreshTokenExpired, MsgRefreshTokenExpired)
	}
	if err != nil {
		return nil, wrapError(KindInvalidRefreshToken, MsgInvalidRefreshToken, err)
	}

	record, err := s.store.FindUnrevokedRefreshToken(ctx, claims.UserID, claims.TokenID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn().Str("user_id", claims.UserID).Str("token_id", claims.TokenID).Msg("refresh with revoked or unknown token")
		return nil, newError(KindInvalidRefreshToken, MsgInvalidRefreshToken)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !now.Before(record.ExpiresAt) {
		return nil, newError(KindRefreshTokenExpired, MsgRefreshTokenExpired)
	}

	user, err := s.store.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindInvalidRefreshToken, MsgInvalidRefreshToken)
	}
	if err != nil {
		return nil, err
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, err
	}
	next, err := s.refreshRecord(user.ID, pair.refreshToken)
	if err != nil {
		return nil, err
	}

	if err := s.store.RotateRefreshToken(ctx, record.ID, next, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindInvalidRefreshToken, MsgInvalidRefreshToken)
		}
		return nil, err
	}

	return &Session{
		User:             user.Sanitized(),
		AccessToken:      pair.accessToken,
		RefreshToken:     pair.refreshToken,
		RefreshExpiresAt: next.ExpiresAt,
	}, nil
}

// Logout revokes the record behind refreshToken. It never fails: a token that
// cannot be verified has nothing left to revoke.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	claims, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.log.Debug().Err(err).Msg("logout with unverifiable refresh token")
		return
	}

	filter := store.RevokeFilter{UserID: claims.UserID, TokenID: claims.TokenID}
	if _, err := s.store.RevokeRefreshTokens(ctx, filter, s.now()); err != nil {
		s.log.Warn().Err(err).Str("user_id", claims.UserID).Msg("failed to revoke refresh token on logout")
	}
}

// AuthenticateAccessToken verifies an access token and loads its user.
func (s *AuthService) AuthenticateAccessToken(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.codec.VerifyAccessToken(accessToken)
	if errors.Is(err, utils.ErrTokenExpired) {
		return nil, newError(KindTokenExpired, "Token expired")
	}
	if err != nil {
		return nil, wrapError(KindUnauthenticated, "Invalid token", err)
	}

	user, err := s.store.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindUnauthenticated, MsgUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindNotFound, MsgUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// ChangePassword replaces the password and signs the user out everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error {
	user, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, MsgUserNotFound)
	}
	if err != nil {
		return err
	}

	if !s.hasher.Verify(req.OldPassword, user.Password) {
		return newError(KindInvalidCredentials, "Current password is incorrect")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUser(ctx, userID, models.UserUpdate{Password: &hash}); err != nil {
		return err
	}

	_, err = s.RevokeUserSessions(ctx, userID)
	return err
}

// RevokeUserSessions revokes every live refresh token of the user.
func (s *AuthService) RevokeUserSessions(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.RevokeRefreshTokens(ctx, store.RevokeFilter{UserID: userID}, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Str("user_id", userID).Int64("revoked", n).Msg("revoked user sessions")
	}
	return n, nil
}

// EnsureAdmin creates an admin account with the given credentials unless the email is taken.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	admin := &models.User{Email: email, Password: hash, RoleID: models.RoleAdminID}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PurgeRefreshTokens deletes expired records and records revoked longer than RevokedTokenGrace ago.
func (s *AuthService) PurgeRefreshTokens(ctx context.Context) (int64, error) {
	now := s.now()
	return s.store.PurgeRefreshTokens(ctx, now, now.Add(-RevokedTokenGrace))
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*Session, error) {
	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, err
	}
	record, err := s.saveRefreshToken(ctx, user.ID, pair.refreshToken)
	if err != nil {
		return nil, err
	}
	return &Session{
		User:             user.Sanitized(),
		AccessToken:      pair.accessToken,
		RefreshToken:     pair.refreshToken,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

// generateTokenPair issues both tokens under a fresh record id. Nothing is persisted.
func (s *AuthService) generateTokenPair(userID string) (*tokenPair, error) {
	tokenID, err := utils.NewTokenID()
	if err != nil {
		return nil, err
	}

	access, err := s.codec.IssueAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.IssueRefreshToken(userID, tokenID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &tokenPair{accessToken: access, refreshToken: refresh}, nil
}

func (s *AuthService) saveRefreshToken(ctx context.Context, userID, refreshToken string) (*models.RefreshToken, error) {
	record, err := s.refreshRecord(userID, refreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateRefreshToken(ctx, record); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return record, nil
}

// refreshRecord builds the persisted record for a token this service just issued.
func (s *AuthService) refreshRecord(userID, refreshToken string) (*models.RefreshToken, error) {
	payload, err := s.codec.DecodeUnsafe(refreshToken)
	if err != nil {
		return nil, err
	}
	if payload.ExpiresAt == nil {
		return nil, errors.New("refresh token has no expiry")
	}
	claims, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.UserID != userID {
		return nil, errors.New("refresh token issued for another user")
	}
	return &models.RefreshToken{
		ID:        claims.TokenID,
		UserID:    userID,
		ExpiresAt: payload.ExpiresAt.Time,
	}, nil
}

func (s *AuthService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("taskmanager-invalid-password")
	})
	return s.dummyHash
}
