// Command purge_refresh_tokens runs one maintenance sweep against the
// configured database: expired and long-revoked refresh tokens are deleted and
// audit logs past retention are removed. It is the manual counterpart of the
// server's scheduled maintenance.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/huangang/taskmanager/internal/config"
	"github.com/huangang/taskmanager/internal/models"
	"github.com/huangang/taskmanager/internal/services"
	"github.com/huangang/taskmanager/internal/store"
	"github.com/huangang/taskmanager/internal/utils"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := models.OpenDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	fmt.Println("Connected to database successfully!")
	fmt.Println("")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var total, live int64
	db.Model(&models.RefreshToken{}).Count(&total)
	db.Model(&models.RefreshToken{}).Where("revoked = ? AND expires_at > ?", false, time.Now()).Count(&live)
	fmt.Printf("Refresh tokens before purge: %d (%d live)\n", total, live)

	authService := services.NewAuthService(store.NewGormStore(db), utils.NewTokenCodec(cfg.JWT))
	purged, err := authService.PurgeRefreshTokens(ctx)
	if err != nil {
		log.Fatalf("Failed to purge refresh tokens: %v", err)
	}
	fmt.Printf("✅ Deleted %d refresh tokens\n", purged)

	cleaned, err := services.NewAuditLogService(db).Cleanup(ctx, cfg.Maintenance.LogRetentionDays)
	if err != nil {
		log.Fatalf("Failed to clean audit logs: %v", err)
	}
	fmt.Printf("✅ Deleted %d audit logs older than %d days\n", cleaned, cfg.Maintenance.LogRetentionDays)

	db.Model(&models.RefreshToken{}).Count(&total)
	fmt.Println("")
	fmt.Printf("Refresh tokens after purge: %d\n", total)
}
