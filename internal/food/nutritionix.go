package food

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/models"
)

const DefaultNutritionixBaseURL = "https://trackapi.nutritionix.com"

// NutritionixFood is an item of a Nutritionix search/item response.
type NutritionixFood struct {
	NixItemID          string                `json:"nix_item_id"`
	FoodName           string                `json:"food_name"`
	BrandName          string                `json:"brand_name"`
	ServingWeightGrams *float64              `json:"serving_weight_grams"`
	FullNutrients      []NutritionixNutrient `json:"full_nutrients"`
}

type NutritionixNutrient struct {
	AttrID int     `json:"attr_id"`
	Value  float64 `json:"value"`
}

type nutritionixResponse struct {
	Foods []NutritionixFood `json:"foods"`
}

type NutritionixConfig struct {
	BaseURL string
	AppID   string
	APIKey  string
}

// NutritionixSource looks products up by UPC on the Nutritionix track API.
type NutritionixSource struct {
	baseURL    string
	appID      string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewNutritionixSource(cfg NutritionixConfig, httpClient *http.Client, logger *zap.Logger) *NutritionixSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultNutritionixBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &NutritionixSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appID:      cfg.AppID,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     orNop(logger),
	}
}

func (s *NutritionixSource) Name() models.FoodSource {
	return models.SourceNutritionix
}

func (s *NutritionixSource) LookupBarcode(ctx context.Context, barcode string) (*models.Food, error) {
	u := s.baseURL + "/v2/search/item?upc=" + url.QueryEscape(barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build nutritionix request: %w", err)
	}
	req.Header.Set("x-app-id", s.appID)
	req.Header.Set("x-app-key", s.apiKey)

	var resp nutritionixResponse
	found, err := doJSON(s.httpClient, req, models.SourceNutritionix, &resp)
	if err != nil {
		return nil, err
	}
	if !found || len(resp.Foods) == 0 {
		return nil, ErrNotFound
	}
	f := NormalizeNutritionix(resp.Foods[0], barcode, s.logger)
	return &f, nil
}

// NormalizeNutritionix maps a Nutritionix item to the canonical Food.
// Nutritionix reports no units: serving size is always grams and nutrients
// take the taxonomy unit of their attribute.
func NormalizeNutritionix(rec NutritionixFood, barcode string, logger *zap.Logger) models.Food {
	logger = orNop(logger)
	nutrients := make(map[models.NutrientKey]models.Nutrient, len(rec.FullNutrients))
	for _, n := range rec.FullNutrients {
		info, ok := Lookup(n.AttrID)
		if !ok {
			logger.Debug("Skipping unmapped Nutritionix nutrient",
				zap.String("nix_item_id", rec.NixItemID),
				zap.Int("attr_id", n.AttrID))
			continue
		}
		nutrients[info.Key] = models.Nutrient{
			ID:    n.AttrID,
			Name:  info.Name,
			Unit:  info.Unit,
			Value: n.Value,
		}
	}

	var serving float64
	if rec.ServingWeightGrams != nil {
		serving = *rec.ServingWeightGrams
	}

	return models.Food{
		ID:          rec.NixItemID,
		FoodName:    rec.FoodName,
		BrandName:   rec.BrandName,
		Source:      models.SourceNutritionix,
		Barcode:     barcode,
		ServingSize: models.ServingSize{Value: serving, Unit: "g"},
		Nutrients:   nutrients,
	}
}
