package store

import (
	"context"

	"github.com/panelbridge/surveylink/internal/models"
)

// ProjectFilter narrows project list queries.
type ProjectFilter struct {
	Name     string
	Page     int
	PageSize int
}

func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	if project.Name == "" {
		return validationError("create_project", "project name is required")
	}
	if project.SurveyURL == "" {
		return validationError("create_project", "survey url is required")
	}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return classify("create_project", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, classify("get_project", err)
	}
	return &project, nil
}

func (s *Store) ListProjects(ctx context.Context, f ProjectFilter) ([]models.Project, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Project{})
	if f.Name != "" {
		query = query.Where("name LIKE ?", "%"+f.Name+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classify("list_projects", err)
	}

	var projects []models.Project
	if f.Page > 0 && f.PageSize > 0 {
		query = query.Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize)
	}
	if err := query.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, 0, classify("list_projects", err)
	}
	return projects, total, nil
}

func (s *Store) UpdateProject(ctx context.Context, project *models.Project) error {
	if project.ID == 0 {
		return validationError("update_project", "project id is required")
	}
	if err := s.db.WithContext(ctx).Save(project).Error; err != nil {
		return classify("update_project", err)
	}
	return nil
}

// DeleteProject soft-deletes the project row. Dependent entities are
// removed by the service-level cascade.
func (s *Store) DeleteProject(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Project{}, id)
	if result.Error != nil {
		return classify("delete_project", result.Error)
	}
	if result.RowsAffected == 0 {
		return newError(KindNotFound, "delete_project", nil)
	}
	return nil
}
