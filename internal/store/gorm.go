package store

import (
	"context"
	"errors"
	"time"

	"github.com/huangang/taskmanager/internal/models"
	"gorm.io/gorm"
)

var _ CredentialStore = (*GormStore)(nil)

// GormStore implements CredentialStore on top of a gorm handle.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Omit("Role").Create(user).Error)
}

func (s *GormStore) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		if upd.IsEmpty() {
			return nil
		}
		return translate(tx.Model(&models.User{}).Where("id = ?", id).Updates(upd.Columns()).Error)
	})
}

// DeleteUser removes the user along with their tasks, comments and refresh tokens.
func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownedTasks := tx.Model(&models.Task{}).Select("id").Where("created_by_id = ?", id)
		if err := tx.Where("author_id = ? OR task_id IN (?)", id, ownedTasks).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("created_by_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Preload("Role").Order("email ASC").Find(&users).Error
	return users, err
}

func (s *GormStore) FindRoleByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (s *GormStore) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := s.db.WithContext(ctx).Order("id ASC").Find(&roles).Error
	return roles, err
}

func (s *GormStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return translate(s.db.WithContext(ctx).Create(token).Error)
}

func (s *GormStore) FindUnrevokedRefreshToken(ctx context.Context, userID, tokenID string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND revoked = ?", tokenID, userID, false).
		First(&token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (s *GormStore) RotateRefreshToken(ctx context.Context, oldID string, next *models.RefreshToken, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = ?", oldID, false).
			Updates(map[string]interface{}{"revoked": true, "revoked_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return translate(tx.Create(next).Error)
	})
}

func (s *GormStore) RevokeRefreshTokens(ctx context.Context, filter RevokeFilter, now time.Time) (int64, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.RefreshToken{}).Where("revoked = ?", false)
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.TokenID != "" {
		query = query.Where("id = ?", filter.TokenID)
	}

	result := query.Updates(map[string]interface{}{"revoked": true, "revoked_at": now})
	return result.RowsAffected, result.Error
}

func (s *GormStore) PurgeRefreshTokens(ctx context.Context, expiredBefore, revokedBefore time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked = ? AND revoked_at < ?)", expiredBefore, true, revokedBefore).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}
