package models

import (
	"fmt"
	"time"

	"github.com/huangang/taskmanager/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	applog "github.com/huangang/taskmanager/pkg/logger"
)

// OpenDB connects to the configured database. The handle is passed explicitly
// to the stores; there is no package-level connection.
func OpenDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(debug),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return db, nil
}

// gormWriter forwards gorm's log lines into the application logger.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	applog.Warnf(format, args...)
}

// newGormLogger logs slow queries and real errors. A missing row is an
// expected outcome for lookups and is not logged.
func newGormLogger(debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(gormWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Role{},
		&User{},
		&RefreshToken{},
		&TaskCategory{},
		&TaskPriority{},
		&Task{},
		&Comment{},
		&AuditLog{},
	)
}

// DefaultRoles, DefaultCategories and DefaultPriorities are the seeded reference data.
var (
	DefaultRoles = []Role{
		{ID: RoleAdminID, Name: RoleAdmin},
		{ID: RoleUserID, Name: RoleUser},
	}

	DefaultCategories = []TaskCategory{
		{ID: 1, Name: "Work"},
		{ID: 2, Name: "Personal"},
		{ID: 3, Name: "Education"},
		{ID: 4, Name: "Health"},
		{ID: 5, Name: "Finance"},
		{ID: 6, Name: "Home"},
		{ID: 7, Name: "Other"},
	}

	DefaultPriorities = []TaskPriority{
		{ID: 1, Name: "LOW", Level: 1},
		{ID: 2, Name: "MEDIUM", Level: 2},
		{ID: 3, Name: "HIGH", Level: 3},
		{ID: 4, Name: "URGENT", Level: 4},
	}
)

// SeedDefaultData creates the reference data if it does not exist yet.
func SeedDefaultData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, role := range DefaultRoles {
			role := role
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", role.Name, err)
			}
		}
		for _, category := range DefaultCategories {
			category := category
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&category).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", category.Name, err)
			}
		}
		for _, priority := range DefaultPriorities {
			priority := priority
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&priority).Error; err != nil {
				return fmt.Errorf("seed priority %s: %w", priority.Name, err)
			}
		}
		return nil
	})
}
