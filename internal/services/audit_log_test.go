package services

import (
	"context"
	"testing"
	"time"

	"github.com/huangang/taskmanager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogService_RecordAndList(t *testing.T) {
	db := openTestDB(t)
	svc := NewAuditLogService(db)
	ctx := context.Background()

	svc.Record(ctx, AuditEntry{Module: "auth", Action: "login", Message: "User login", UserID: "u1", IP: "10.0.0.1"})
	svc.Record(ctx, AuditEntry{Level: AuditLevelWarning, Module: "tasks", Action: "delete", Message: "Deleted task", Extra: map[string]string{"id": "t1"}})

	all, err := svc.List(ctx, &AuditLogListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.PageSize)

	byModule, err := svc.List(ctx, &AuditLogListRequest{Module: "tasks"})
	require.NoError(t, err)
	require.Len(t, byModule.Items, 1)
	assert.Equal(t, AuditLevelWarning, byModule.Items[0].Level)
	assert.JSONEq(t, `{"id":"t1"}`, byModule.Items[0].Extra)
	assert.Nil(t, byModule.Items[0].UserID)

	byUser, err := svc.List(ctx, &AuditLogListRequest{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, byUser.Items, 1)
	assert.Equal(t, AuditLevelInfo, byUser.Items[0].Level, "level defaults to info")

	searched, err := svc.List(ctx, &AuditLogListRequest{Search: "Deleted"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), searched.Total)

	_, err = svc.List(ctx, &AuditLogListRequest{StartDate: "last week"})
	assert.True(t, IsKind(err, KindValidation))
}

func TestAuditLogService_Pagination(t *testing.T) {
	db := openTestDB(t)
	svc := NewAuditLogService(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Record(ctx, AuditEntry{Module: "tasks", Action: "create"})
	}

	page, err := svc.List(ctx, &AuditLogListRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, 2)

	last, err := svc.List(ctx, &AuditLogListRequest{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
}

func TestAuditLogService_Cleanup(t *testing.T) {
	db := openTestDB(t)
	svc := NewAuditLogService(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now.AddDate(0, 0, -40) }
	svc.Record(ctx, AuditEntry{Module: "auth", Action: "old"})
	svc.now = func() time.Time { return now }
	svc.Record(ctx, AuditEntry{Module: "auth", Action: "fresh"})

	n, err := svc.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n, "non-positive retention keeps everything")

	n, err = svc.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var remaining []models.AuditLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].Action)
}
