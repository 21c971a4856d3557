package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/huangang/taskmanager/internal/config"
	"github.com/huangang/taskmanager/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB returns a migrated and seeded in-memory sqlite database private to t.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := models.OpenDB(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, false)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	require.NoError(t, models.SeedDefaultData(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "hash", RoleID: models.RoleUserID}
	require.NoError(t, db.Create(user).Error)
	return user
}
