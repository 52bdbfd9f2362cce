// Package service implements the request-level operations shared by the HTTP
// API and the Telegram bot.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/assistant"
	"github.com/xaenox/nutrobo/internal/models"
	"github.com/xaenox/nutrobo/internal/storage"
	"github.com/xaenox/nutrobo/internal/threadlock"
)

// Runner advances remote threads.
type Runner interface {
	CreateThread(ctx context.Context, greeting string) (string, error)
	RunTurn(ctx context.Context, turn assistant.Turn) (*models.Thread, error)
	Transcript(ctx context.Context, threadID string) (*models.Thread, error)
}

// BarcodeResolver finds a food by barcode across the configured providers.
type BarcodeResolver interface {
	ResolveByBarcode(ctx context.Context, barcode string) (*models.Food, error)
}

type Deps struct {
	Runner   Runner
	Resolver BarcodeResolver
	Storage  storage.Storage
	Locker   threadlock.Locker
	Logger   *zap.Logger
}

type Services struct {
	threads ThreadService
	food    FoodService
	users   UserService
}

func NewServices(deps Deps) *Services {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Locker == nil {
		deps.Locker = threadlock.NewLocal()
	}
	return &Services{
		threads: NewThreadService(deps.Runner, deps.Resolver, deps.Storage, deps.Locker, deps.Logger),
		food:    NewFoodService(deps.Resolver, deps.Logger),
		users:   NewUserService(deps.Storage, deps.Logger),
	}
}

func (s *Services) Threads() ThreadService {
	return s.threads
}

func (s *Services) Food() FoodService {
	return s.food
}

func (s *Services) Users() UserService {
	return s.users
}
