package store

import (
	"context"
	"time"

	"github.com/panelbridge/surveylink/internal/models"
)

// AuditFilter narrows audit log list queries.
type AuditFilter struct {
	Level    string
	Module   string
	Action   string
	Search   string
	Page     int
	PageSize int
}

func (s *Store) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return classify("create_audit_log", err)
	}
	return nil
}

func (s *Store) ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if f.Level != "" {
		query = query.Where("level = ?", f.Level)
	}
	if f.Module != "" {
		query = query.Where("module = ?", f.Module)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.Search != "" {
		query = query.Where("message LIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classify("list_audit_logs", err)
	}

	var logs []models.AuditLog
	if f.Page > 0 && f.PageSize > 0 {
		query = query.Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize)
	}
	if err := query.Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, classify("list_audit_logs", err)
	}
	return logs, total, nil
}

// DeleteAuditLogsBefore removes entries older than the cutoff and returns
// how many were deleted.
func (s *Store) DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, classify("delete_audit_logs_before", result.Error)
	}
	return result.RowsAffected, nil
}
