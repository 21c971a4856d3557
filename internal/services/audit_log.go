package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/huangang/taskmanager/internal/models"
	"github.com/huangang/taskmanager/pkg/logger"
	"gorm.io/gorm"
)

const (
	AuditLevelInfo    = "info"
	AuditLevelWarning = "warning"
	AuditLevelError   = "error"
)

type AuditLogService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuditLogService(db *gorm.DB) *AuditLogService {
	return &AuditLogService{db: db, now: time.Now}
}

// AuditEntry is one audited action before persistence.
type AuditEntry struct {
	Level     string
	Module    string
	Action    string
	Message   string
	UserID    string
	IP        string
	UserAgent string
	Extra     interface{}
}

// Record stores an entry. Failures are logged and not returned, so auditing
// never breaks the request that triggered it.
func (s *AuditLogService) Record(ctx context.Context, entry AuditEntry) {
	if entry.Level == "" {
		entry.Level = AuditLevelInfo
	}

	var extra string
	if entry.Extra != nil {
		if b, err := json.Marshal(entry.Extra); err == nil {
			extra = string(b)
		}
	}

	record := &models.AuditLog{
		Level:     entry.Level,
		Module:    entry.Module,
		Action:    entry.Action,
		Message:   entry.Message,
		IP:        entry.IP,
		UserAgent: entry.UserAgent,
		Extra:     extra,
		CreatedAt: s.now(),
	}
	if entry.UserID != "" {
		uid := entry.UserID
		record.UserID = &uid
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.Warn().Err(err).Str("module", entry.Module).Str("action", entry.Action).Msg("failed to write audit log")
	}
}

type AuditLogListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	UserID    string `form:"userId"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Search    string `form:"search"`
}

type AuditLogListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Items    []models.AuditLog `json:"items"`
}

func (s *AuditLogService) List(ctx context.Context, req *AuditLogListRequest) (*AuditLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.UserID != "" {
		query = query.Where("user_id = ?", req.UserID)
	}
	if from, err := parseBound(req.StartDate, "startDate", false); err != nil {
		return nil, err
	} else if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to, err := parseBound(req.EndDate, "endDate", true); err != nil {
		return nil, err
	} else if to != nil {
		query = query.Where("created_at <= ?", *to)
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	logs := make([]models.AuditLog, 0)
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &AuditLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// Cleanup deletes logs older than retentionDays. A non-positive value keeps everything.
func (s *AuditLogService) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
