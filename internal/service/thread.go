package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/assistant"
	"github.com/xaenox/nutrobo/internal/composer"
	"github.com/xaenox/nutrobo/internal/models"
	"github.com/xaenox/nutrobo/internal/storage"
	"github.com/xaenox/nutrobo/internal/threadlock"
)

const Greeting = "How may I help you today?"

type ThreadService interface {
	CreateThread(ctx context.Context, userID string) (*models.Thread, error)
	GetThread(ctx context.Context, userID, threadID string) (*models.Thread, error)
	SendMessage(ctx context.Context, userID, threadID, content string, data []string) (*models.Thread, error)
	SendBarcode(ctx context.Context, userID, threadID, barcode string, data []string) (*models.Thread, error)
	SendNutritionInfo(ctx context.Context, userID, threadID, label string, data []string) (*models.Thread, error)
}

type threadService struct {
	runner   Runner
	resolver BarcodeResolver
	store    storage.Storage
	locker   threadlock.Locker
	logger   *zap.Logger
}

func NewThreadService(runner Runner, resolver BarcodeResolver, store storage.Storage, locker threadlock.Locker, logger *zap.Logger) ThreadService {
	return &threadService{
		runner:   runner,
		resolver: resolver,
		store:    store,
		locker:   locker,
		logger:   logger,
	}
}

// CreateThread opens a thread with the assistant greeting. Threads created
// for an identified user are registered to that user.
func (s *threadService) CreateThread(ctx context.Context, userID string) (*models.Thread, error) {
	threadID, err := s.runner.CreateThread(ctx, Greeting)
	if err != nil {
		return nil, fmt.Errorf("error creating thread: %w", err)
	}
	if userID != "" {
		if err := s.store.AddThread(ctx, userID, threadID); err != nil {
			return nil, fmt.Errorf("error registering thread %s: %w", threadID, err)
		}
	}
	s.logger.Info("Thread created",
		zap.String("thread_id", threadID),
		zap.String("user_id", userID))
	return s.runner.Transcript(ctx, threadID)
}

func (s *threadService) GetThread(ctx context.Context, userID, threadID string) (*models.Thread, error) {
	if _, err := s.authorize(ctx, userID, threadID); err != nil {
		return nil, err
	}
	return s.runner.Transcript(ctx, threadID)
}

func (s *threadService) SendMessage(ctx context.Context, userID, threadID, content string, data []string) (*models.Thread, error) {
	user, err := s.authorize(ctx, userID, threadID)
	if err != nil {
		return nil, err
	}
	if err := requireContent(content); err != nil {
		return nil, err
	}
	return s.runTurn(ctx, user, assistant.Turn{
		ThreadID: threadID,
		Role:     models.RoleUser,
		Content:  content,
		Steering: data,
	})
}

// SendBarcode resolves the barcode and posts the food facts as an assistant
// observation.
func (s *threadService) SendBarcode(ctx context.Context, userID, threadID, barcode string, data []string) (*models.Thread, error) {
	user, err := s.authorize(ctx, userID, threadID)
	if err != nil {
		return nil, err
	}
	f, err := resolveBarcode(ctx, s.resolver, s.logger, barcode)
	if err != nil {
		return nil, err
	}
	return s.runTurn(ctx, user, assistant.Turn{
		ThreadID: threadID,
		Role:     models.RoleAssistant,
		Content:  composer.FoodMessage(f),
		Steering: data,
	})
}

func (s *threadService) SendNutritionInfo(ctx context.Context, userID, threadID, label string, data []string) (*models.Thread, error) {
	user, err := s.authorize(ctx, userID, threadID)
	if err != nil {
		return nil, err
	}
	if err := requireContent(label); err != nil {
		return nil, err
	}
	return s.runTurn(ctx, user, assistant.Turn{
		ThreadID: threadID,
		Role:     models.RoleUser,
		Content:  composer.NutritionInfoMessage(label),
		Steering: data,
	})
}

func (s *threadService) runTurn(ctx context.Context, user *models.User, turn assistant.Turn) (*models.Thread, error) {
	unlock, err := s.locker.Lock(ctx, turn.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("error locking thread %s: %w", turn.ThreadID, err)
	}
	defer unlock()

	turn.Steering = steering(user, turn.Steering)
	return s.runner.RunTurn(ctx, turn)
}

// authorize fails closed: the user must be known and own the thread.
func (s *threadService) authorize(ctx context.Context, userID, threadID string) (*models.User, error) {
	if userID == "" || threadID == "" {
		return nil, unauthorizedError("Unable to get thread ID or user ID")
	}
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, unauthorizedError("The provided threadId does not belong to this user")
	}
	if err != nil {
		return nil, fmt.Errorf("error loading user %s: %w", userID, err)
	}
	if !user.OwnsThread(threadID) {
		s.logger.Warn("Thread ownership mismatch",
			zap.String("thread_id", threadID),
			zap.String("user_id", userID))
		return nil, unauthorizedError("The provided threadId does not belong to this user")
	}
	return user, nil
}

func requireContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return validationError("Required `content` parameter is missing.")
	}
	return nil
}

// steering prepends the user's insulin to carb ratio to the caller's data.
func steering(user *models.User, data []string) []string {
	out := make([]string, 0, len(data)+1)
	if user != nil && user.Profile.ICRatio != "" {
		out = append(out, fmt.Sprintf("The user's insulin to carb ratio is %s.", user.Profile.ICRatio))
	}
	for _, d := range data {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}
