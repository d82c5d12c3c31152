package services

import (
	"context"
	"fmt"

	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/response"
)

type ProjectService struct {
	store *store.Store
}

func NewProjectService(st *store.Store) *ProjectService {
	return &ProjectService{store: st}
}

type ProjectListRequest struct {
	Page     int    `form:"page" binding:"min=1"`
	PageSize int    `form:"page_size" binding:"min=1,max=100"`
	Name     string `form:"name"`
}

type ProjectListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Project `json:"items"`
}

type CreateProjectRequest struct {
	Name      string                  `json:"name" binding:"required"`
	SurveyURL string                  `json:"survey_url" binding:"required"`
	Settings  *models.ProjectSettings `json:"settings"`
	VendorIDs []uint                  `json:"vendor_ids"`
}

type UpdateProjectRequest struct {
	Name      string                  `json:"name"`
	SurveyURL string                  `json:"survey_url"`
	Settings  *models.ProjectSettings `json:"settings"`
}

func (s *ProjectService) List(ctx context.Context, req *ProjectListRequest) (*ProjectListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 10
	}

	items, total, err := s.store.ListProjects(ctx, store.ProjectFilter{
		Name:     req.Name,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

func (s *ProjectService) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest, userID uint) (*models.Project, error) {
	project := models.Project{
		Name:      req.Name,
		SurveyURL: req.SurveyURL,
		CreatedBy: userID,
	}
	if req.Settings != nil {
		project.EncodeSettings(*req.Settings)
	}

	if err := s.store.CreateProject(ctx, &project); err != nil {
		return nil, err
	}

	for _, vendorID := range req.VendorIDs {
		if err := s.store.AttachVendor(ctx, project.ID, vendorID); err != nil && !store.IsConflict(err) {
			return nil, err
		}
	}

	AuditInfo("projects", "create",
		fmt.Sprintf("project %q created", project.Name), &userID, "", nil)
	return &project, nil
}

func (s *ProjectService) Update(ctx context.Context, id uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		project.Name = req.Name
	}
	if req.SurveyURL != "" {
		project.SurveyURL = req.SurveyURL
	}
	if req.Settings != nil {
		project.EncodeSettings(*req.Settings)
	}

	if err := s.store.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes a project and cascades to its links, questions, and
// vendor associations.
func (s *ProjectService) Delete(ctx context.Context, id uint, userID uint) error {
	project, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteSurveyLinksByProject(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteQuestionsByProject(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteProjectVendorsByProject(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}

	AuditInfo("projects", "delete",
		fmt.Sprintf("project %q deleted with dependents", project.Name), &userID, "", nil)
	return nil
}
