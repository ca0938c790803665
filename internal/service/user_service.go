package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UserService interface {
	GetUserInfo(ctx context.Context, id string) (*models.User, error)
	RemoveUser(ctx context.Context, userID string) error
}

type userService struct {
	u repository.UserRepository
}

func NewUserService(u repository.UserRepository) UserService {
	return &userService{u: u}
}

func (s *userService) GetUserInfo(ctx context.Context, id string) (*models.User, error) {
	user, isExist, err := s.u.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	if !isExist {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// RemoveUser deletes the user with their scheduled posts and history.
// Connected accounts and media assets go with it through foreign keys.
func (s *userService) RemoveUser(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserNotFound
	}
	if err := s.u.Remove(ctx, userID); err != nil {
		return fmt.Errorf("remove user: %w", err)
	}
	slog.Info("user removed", "user_id", userID)
	return nil
}
