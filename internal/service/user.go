package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/models"
	"github.com/xaenox/nutrobo/internal/storage"
)

var icRatioPattern = regexp.MustCompile(`^[0-9]+:[0-9]+$`)

// ProfileUpdate carries the fields to change. Empty fields are left as is.
type ProfileUpdate struct {
	Name    string
	ICRatio string
}

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error)
}

type userService struct {
	store  storage.UserStorage
	logger *zap.Logger
}

func NewUserService(store storage.UserStorage, logger *zap.Logger) UserService {
	return &userService{store: store, logger: logger}
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, unauthorizedError("Unable to get a user ID.")
	}
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		user = &models.User{ID: userID, Threads: []string{}}
		if err := s.store.PutUser(ctx, user); err != nil {
			return nil, fmt.Errorf("error creating user %s: %w", userID, err)
		}
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading user %s: %w", userID, err)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	if userID == "" {
		return nil, unauthorizedError("Unable to get a user ID.")
	}
	if update.ICRatio != "" && !icRatioPattern.MatchString(update.ICRatio) {
		return nil, validationError("Invalid icRatio format, must be insulin:carbs, where insulin and carbs are both numbers.")
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if update.Name != "" {
		user.Profile.Name = update.Name
	}
	if update.ICRatio != "" {
		user.Profile.ICRatio = update.ICRatio
	}
	if err := s.store.PutUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error saving user %s: %w", userID, err)
	}
	s.logger.Info("Profile updated", zap.String("user_id", userID))
	return user, nil
}
