package food

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/models"
)

// ErrNotFound is returned when no provider knows the requested food.
var ErrNotFound = errors.New("food not found")

// Source is a food data provider able to look up a product by barcode.
type Source interface {
	Name() models.FoodSource
	LookupBarcode(ctx context.Context, barcode string) (*models.Food, error)
}

// NameSearcher is implemented by sources that support free-text search.
type NameSearcher interface {
	SearchByName(ctx context.Context, name string) (*models.Food, error)
}

// ProviderError is returned when a provider answers with an unexpected status.
type ProviderError struct {
	Source     models.FoodSource
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Source, e.StatusCode, e.Body)
}

// Normalize converts a raw provider record into a canonical Food.
func Normalize(source models.FoodSource, raw json.RawMessage, barcodeHint string, logger *zap.Logger) (models.Food, error) {
	switch source {
	case models.SourceFDC:
		var rec FDCFood
		if err := json.Unmarshal(raw, &rec); err != nil {
			return models.Food{}, fmt.Errorf("decode fdc food: %w", err)
		}
		return NormalizeFDC(rec, barcodeHint, logger), nil
	case models.SourceNutritionix:
		var rec NutritionixFood
		if err := json.Unmarshal(raw, &rec); err != nil {
			return models.Food{}, fmt.Errorf("decode nutritionix food: %w", err)
		}
		return NormalizeNutritionix(rec, barcodeHint, logger), nil
	default:
		return models.Food{}, fmt.Errorf("unknown food source %q", source)
	}
}

func doJSON(client *http.Client, req *http.Request, source models.FoodSource, out any) (found bool, err error) {
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s request: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, &ProviderError{Source: source, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode %s response: %w", source, err)
	}
	return true, nil
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
