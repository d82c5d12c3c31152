package store

import (
	"context"
	"time"

	"github.com/panelbridge/surveylink/internal/models"
)

// LinkFilter narrows link list queries. Zero values are ignored.
type LinkFilter struct {
	ProjectID uint
	VendorID  uint
	Status    models.LinkStatus
	LinkType  models.LinkType
	BatchID   string
	Page      int
	PageSize  int
}

// CreateSurveyLink persists a new link. Conflicts on the per-project uid
// index come back as KindConflict so the caller can regenerate the uid.
func (s *Store) CreateSurveyLink(ctx context.Context, link *models.SurveyLink) error {
	if link.ProjectID == 0 {
		return validationError("create_survey_link", "project id is required")
	}
	if link.UID == "" {
		return validationError("create_survey_link", "uid is required")
	}
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		return classify("create_survey_link", err)
	}
	return nil
}

func (s *Store) GetSurveyLink(ctx context.Context, id uint) (*models.SurveyLink, error) {
	var link models.SurveyLink
	if err := s.db.WithContext(ctx).First(&link, id).Error; err != nil {
		return nil, classify("get_survey_link", err)
	}
	return &link, nil
}

func (s *Store) GetSurveyLinkByUID(ctx context.Context, projectID uint, uid string) (*models.SurveyLink, error) {
	var link models.SurveyLink
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND uid = ?", projectID, uid).
		First(&link).Error
	if err != nil {
		return nil, classify("get_survey_link_by_uid", err)
	}
	return &link, nil
}

// ListSurveyLinks returns links matching the filter plus the unpaginated
// total count.
func (s *Store) ListSurveyLinks(ctx context.Context, f LinkFilter) ([]models.SurveyLink, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.SurveyLink{})

	if f.ProjectID != 0 {
		query = query.Where("project_id = ?", f.ProjectID)
	}
	if f.VendorID != 0 {
		query = query.Where("vendor_id = ?", f.VendorID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.LinkType != "" {
		query = query.Where("link_type = ?", f.LinkType)
	}
	if f.BatchID != "" {
		query = query.Where("metadata LIKE ?", "%\"batchId\":\""+f.BatchID+"\"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classify("list_survey_links", err)
	}

	var links []models.SurveyLink
	if f.Page > 0 && f.PageSize > 0 {
		query = query.Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize)
	}
	if err := query.Order("id ASC").Find(&links).Error; err != nil {
		return nil, 0, classify("list_survey_links", err)
	}
	return links, total, nil
}

func (s *Store) ListSurveyLinksByProject(ctx context.Context, projectID uint) ([]models.SurveyLink, error) {
	links, _, err := s.ListSurveyLinks(ctx, LinkFilter{ProjectID: projectID})
	return links, err
}

// UpdateSurveyLink saves the full record.
func (s *Store) UpdateSurveyLink(ctx context.Context, link *models.SurveyLink) error {
	if link.ID == 0 {
		return validationError("update_survey_link", "link id is required")
	}
	if err := s.db.WithContext(ctx).Save(link).Error; err != nil {
		return classify("update_survey_link", err)
	}
	return nil
}

// DeleteSurveyLinksByProject removes all links of a project. Used only by
// cascading project deletion.
func (s *Store) DeleteSurveyLinksByProject(ctx context.Context, projectID uint) error {
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&models.SurveyLink{}).Error
	if err != nil {
		return classify("delete_survey_links_by_project", err)
	}
	return nil
}

// StatusCount is one row of a grouped status aggregate.
type StatusCount struct {
	Status models.LinkStatus `json:"status"`
	Count  int64             `json:"count"`
}

// TypeCount is one row of a grouped link-type aggregate.
type TypeCount struct {
	LinkType models.LinkType `json:"link_type"`
	Count    int64           `json:"count"`
}

// VendorCount is one row of a grouped per-vendor aggregate. VendorID is
// nil for pooled links.
type VendorCount struct {
	VendorID *uint `json:"vendor_id"`
	Count    int64 `json:"count"`
}

// CountLinksByStatus groups link counts by status, optionally scoped to a
// project.
func (s *Store) CountLinksByStatus(ctx context.Context, projectID uint) ([]StatusCount, error) {
	query := s.db.WithContext(ctx).Model(&models.SurveyLink{}).
		Select("status, count(*) as count").
		Group("status")
	if projectID != 0 {
		query = query.Where("project_id = ?", projectID)
	}
	var out []StatusCount
	if err := query.Scan(&out).Error; err != nil {
		return nil, classify("count_links_by_status", err)
	}
	return out, nil
}

// CountLinksByType groups link counts by link type, optionally scoped to a
// project.
func (s *Store) CountLinksByType(ctx context.Context, projectID uint) ([]TypeCount, error) {
	query := s.db.WithContext(ctx).Model(&models.SurveyLink{}).
		Select("link_type, count(*) as count").
		Group("link_type")
	if projectID != 0 {
		query = query.Where("project_id = ?", projectID)
	}
	var out []TypeCount
	if err := query.Scan(&out).Error; err != nil {
		return nil, classify("count_links_by_type", err)
	}
	return out, nil
}

// CountLinksByVendor groups link counts by vendor for one project.
func (s *Store) CountLinksByVendor(ctx context.Context, projectID uint) ([]VendorCount, error) {
	var out []VendorCount
	err := s.db.WithContext(ctx).Model(&models.SurveyLink{}).
		Select("vendor_id, count(*) as count").
		Where("project_id = ?", projectID).
		Group("vendor_id").
		Scan(&out).Error
	if err != nil {
		return nil, classify("count_links_by_vendor", err)
	}
	return out, nil
}

// ListStaleInProgress returns in-progress links whose last update is older
// than the cutoff. Used by the sweep scheduler.
func (s *Store) ListStaleInProgress(ctx context.Context, cutoff time.Time) ([]models.SurveyLink, error) {
	var links []models.SurveyLink
	err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.StatusInProgress, cutoff).
		Find(&links).Error
	if err != nil {
		return nil, classify("list_stale_in_progress", err)
	}
	return links, nil
}
