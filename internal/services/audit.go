package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/logger"
	"github.com/robfig/cron/v3"
)

var auditStore *store.Store

// InitAuditLogger wires the global audit sink. Called once from bootstrap;
// audit writes before that are dropped.
func InitAuditLogger(st *store.Store) {
	auditStore = st
}

func AuditInfo(module, action, message string, userID *uint, ip string, extra interface{}) {
	writeAudit("info", module, action, message, userID, ip, extra)
}

func AuditWarning(module, action, message string, userID *uint, ip string, extra interface{}) {
	writeAudit("warning", module, action, message, userID, ip, extra)
}

func AuditError(module, action, message string, userID *uint, ip string, extra interface{}) {
	writeAudit("error", module, action, message, userID, ip, extra)
}

func writeAudit(level, module, action, message string, userID *uint, ip string, extra interface{}) {
	if auditStore == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.AuditLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    userID,
		IP:        ip,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	if err := auditStore.CreateAuditLog(context.Background(), entry); err != nil {
		logger.Warn().Err(err).Str("module", module).Str("action", action).Msg("audit write failed")
	}
}

type AuditService struct {
	store         *store.Store
	retentionDays int
}

func NewAuditService(st *store.Store, retentionDays int) *AuditService {
	return &AuditService{store: st, retentionDays: retentionDays}
}

type AuditListRequest struct {
	Page     int    `form:"page" binding:"min=1"`
	PageSize int    `form:"page_size" binding:"min=1,max=100"`
	Level    string `form:"level"`
	Module   string `form:"module"`
	Action   string `form:"action"`
	Search   string `form:"search"`
}

type AuditListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []models.AuditLog `json:"items"`
}

func (s *AuditService) List(ctx context.Context, req *AuditListRequest) (*AuditListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	items, total, err := s.store.ListAuditLogs(ctx, store.AuditFilter{
		Level:    req.Level,
		Module:   req.Module,
		Action:   req.Action,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	return &AuditListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

// Cleanup deletes entries older than the retention window and returns the
// number removed.
func (s *AuditService) Cleanup(ctx context.Context) (int64, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	return s.store.DeleteAuditLogsBefore(ctx, cutoff)
}

// StartAuditCleanupScheduler runs retention cleanup once at startup and
// then nightly at 03:00.
func StartAuditCleanupScheduler(st *store.Store, retentionDays int) *cron.Cron {
	service := NewAuditService(st, retentionDays)

	run := func() {
		deleted, err := service.Cleanup(context.Background())
		if err != nil {
			logger.Error().Err(err).Msg("audit log cleanup failed")
			return
		}
		if deleted > 0 {
			logger.Infof("[Audit] Cleaned up %d entries older than %d days", deleted, retentionDays)
		}
	}

	go run()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 3 * * *", run); err != nil {
		logger.Error().Err(err).Msg("failed to schedule audit cleanup")
		return scheduler
	}
	scheduler.Start()
	return scheduler
}
