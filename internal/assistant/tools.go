package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/composer"
	"github.com/xaenox/nutrobo/internal/food"
	"github.com/xaenox/nutrobo/internal/models"
)

const ToolGetNutrientData = "getNutrientData"

// FoodFinder searches the primary food provider by name.
type FoodFinder interface {
	SearchByName(ctx context.Context, name string) (*models.Food, error)
}

type nutrientDataArgs struct {
	FoodName string `json:"foodName"`
}

type nutrientData struct {
	FoodName  string   `json:"food_name"`
	Match     string   `json:"match,omitempty"`
	Nutrients []string `json:"nutrients,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// NutrientDataTool answers getNutrientData calls.
func NutrientDataTool(finder FoodFinder, logger *zap.Logger) ToolFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, call ToolCall) any {
		var args nutrientDataArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil || strings.TrimSpace(args.FoodName) == "" {
			logger.Warn("Invalid getNutrientData arguments",
				zap.String("arguments", call.Arguments),
				zap.Error(err))
			return toolError{Error: "foodName argument is required"}
		}

		f, err := finder.SearchByName(ctx, args.FoodName)
		if errors.Is(err, food.ErrNotFound) || (err == nil && f == nil) {
			return nutrientData{FoodName: args.FoodName, Error: "no data found"}
		}
		if err != nil {
			logger.Error("Nutrient lookup failed",
				zap.Error(err),
				zap.String("food_name", args.FoodName))
			return nutrientData{FoodName: args.FoodName, Error: "nutrient data unavailable"}
		}

		lines := make([]string, 0, len(f.Nutrients))
		for _, n := range food.OrderedNutrients(f) {
			lines = append(lines, composer.ToolNutrientLine(n))
		}
		return nutrientData{
			FoodName:  args.FoodName,
			Match:     f.FoodName,
			Nutrients: lines,
		}
	}
}
