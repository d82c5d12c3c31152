package store

import (
	"context"

	"github.com/panelbridge/surveylink/internal/models"
)

func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) error {
	if q.ProjectID == 0 {
		return validationError("create_question", "project id is required")
	}
	if q.Text == "" {
		return validationError("create_question", "question text is required")
	}
	if err := s.db.WithContext(ctx).Create(q).Error; err != nil {
		return classify("create_question", err)
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	if err := s.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, classify("get_question", err)
	}
	return &q, nil
}

func (s *Store) ListQuestionsByProject(ctx context.Context, projectID uint) ([]models.Question, error) {
	var questions []models.Question
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("sort_order ASC, id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, classify("list_questions_by_project", err)
	}
	return questions, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q *models.Question) error {
	if q.ID == 0 {
		return validationError("update_question", "question id is required")
	}
	if err := s.db.WithContext(ctx).Save(q).Error; err != nil {
		return classify("update_question", err)
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Question{}, id)
	if result.Error != nil {
		return classify("delete_question", result.Error)
	}
	if result.RowsAffected == 0 {
		return newError(KindNotFound, "delete_question", nil)
	}
	return nil
}

// DeleteQuestionsByProject removes all questions of a project. Used only
// by cascading project deletion.
func (s *Store) DeleteQuestionsByProject(ctx context.Context, projectID uint) error {
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&models.Question{}).Error
	if err != nil {
		return classify("delete_questions_by_project", err)
	}
	return nil
}
