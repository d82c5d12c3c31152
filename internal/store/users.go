package store

import (
	"context"

	"github.com/panelbridge/surveylink/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.Username == "" {
		return validationError("create_user", "username is required")
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return classify("create_user", err)
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, classify("get_user_by_username", err)
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, classify("get_user", err)
	}
	return &user, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, classify("count_users", err)
	}
	return count, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	if user.ID == 0 {
		return validationError("update_user", "user id is required")
	}
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return classify("update_user", err)
	}
	return nil
}
