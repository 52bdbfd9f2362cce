package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/food"
	"github.com/xaenox/nutrobo/internal/models"
)

const barcodeNotFoundMessage = "Barcode not found."

type FoodService interface {
	ResolveFood(ctx context.Context, barcode string) (*models.Food, error)
}

type foodService struct {
	resolver BarcodeResolver
	logger   *zap.Logger
}

func NewFoodService(resolver BarcodeResolver, logger *zap.Logger) FoodService {
	return &foodService{resolver: resolver, logger: logger}
}

func (s *foodService) ResolveFood(ctx context.Context, barcode string) (*models.Food, error) {
	return resolveBarcode(ctx, s.resolver, s.logger, barcode)
}

func resolveBarcode(ctx context.Context, resolver BarcodeResolver, logger *zap.Logger, barcode string) (*models.Food, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, validationError("Required `content` parameter is missing.")
	}
	f, err := resolver.ResolveByBarcode(ctx, barcode)
	if errors.Is(err, food.ErrNotFound) {
		logger.Info("Barcode not found", zap.String("barcode", barcode))
		return nil, notFoundError(barcodeNotFoundMessage)
	}
	if err != nil {
		return nil, fmt.Errorf("error resolving barcode %s: %w", barcode, err)
	}
	return f, nil
}
