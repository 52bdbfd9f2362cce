package food

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/models"
)

const DefaultFDCBaseURL = "https://api.nal.usda.gov/fdc"

// FDCFood is a food entry of a FoodData Central search response.
type FDCFood struct {
	FDCID           int               `json:"fdcId"`
	Description     string            `json:"description"`
	BrandName       string            `json:"brandName"`
	BrandOwner      string            `json:"brandOwner"`
	GTINUPC         string            `json:"gtinUpc"`
	ServingSize     float64           `json:"servingSize"`
	ServingSizeUnit string            `json:"servingSizeUnit"`
	FoodNutrients   []FDCFoodNutrient `json:"foodNutrients"`
}

type FDCFoodNutrient struct {
	NutrientID     int     `json:"nutrientId"`
	NutrientName   string  `json:"nutrientName"`
	NutrientNumber string  `json:"nutrientNumber"`
	UnitName       string  `json:"unitName"`
	Value          float64 `json:"value"`
}

type fdcSearchRequest struct {
	Query    string   `json:"query"`
	DataType []string `json:"dataType,omitempty"`
	PageSize int      `json:"pageSize"`
}

type fdcSearchResponse struct {
	TotalHits int       `json:"totalHits"`
	Foods     []FDCFood `json:"foods"`
}

type FDCConfig struct {
	BaseURL string
	APIKey  string
}

// FDCSource queries the USDA FoodData Central search API.
type FDCSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewFDCSource(cfg FDCConfig, httpClient *http.Client, logger *zap.Logger) *FDCSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultFDCBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &FDCSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     orNop(logger),
	}
}

func (s *FDCSource) Name() models.FoodSource {
	return models.SourceFDC
}

// LookupBarcode searches branded products using the barcode as text query.
func (s *FDCSource) LookupBarcode(ctx context.Context, barcode string) (*models.Food, error) {
	foods, err := s.search(ctx, fdcSearchRequest{
		Query:    barcode,
		DataType: []string{"Branded"},
		PageSize: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(foods) == 0 {
		return nil, ErrNotFound
	}
	f := NormalizeFDC(foods[0], barcode, s.logger)
	return &f, nil
}

// SearchByName returns the best match for a free-text food name.
func (s *FDCSource) SearchByName(ctx context.Context, name string) (*models.Food, error) {
	foods, err := s.search(ctx, fdcSearchRequest{Query: name, PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(foods) == 0 {
		return nil, ErrNotFound
	}
	f := NormalizeFDC(foods[0], "", s.logger)
	return &f, nil
}

func (s *FDCSource) search(ctx context.Context, body fdcSearchRequest) ([]FDCFood, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode fdc search: %w", err)
	}

	u := s.baseURL + "/v1/foods/search?api_key=" + url.QueryEscape(s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build fdc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp fdcSearchResponse
	found, err := doJSON(s.httpClient, req, models.SourceFDC, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	s.logger.Debug("FDC search",
		zap.String("query", body.Query),
		zap.Int("total_hits", resp.TotalHits))
	return resp.Foods, nil
}

// NormalizeFDC maps an FDC record to the canonical Food. Nutrients whose
// number is unknown or malformed are dropped.
func NormalizeFDC(rec FDCFood, barcodeHint string, logger *zap.Logger) models.Food {
	logger = orNop(logger)
	nutrients := make(map[models.NutrientKey]models.Nutrient, len(rec.FoodNutrients))
	for _, n := range rec.FoodNutrients {
		number, err := strconv.Atoi(strings.TrimSpace(n.NutrientNumber))
		if err != nil {
			logger.Debug("Skipping FDC nutrient with malformed number",
				zap.Int("fdc_id", rec.FDCID),
				zap.String("nutrient_number", n.NutrientNumber))
			continue
		}
		info, ok := Lookup(number)
		if !ok {
			logger.Debug("Skipping unmapped FDC nutrient",
				zap.Int("fdc_id", rec.FDCID),
				zap.Int("nutrient_number", number),
				zap.String("nutrient_name", n.NutrientName))
			continue
		}
		unit := strings.ToLower(n.UnitName)
		if unit == "" {
			unit = info.Unit
		}
		name := n.NutrientName
		if name == "" {
			name = info.Name
		}
		nutrients[info.Key] = models.Nutrient{
			ID:    number,
			Name:  name,
			Unit:  unit,
			Value: n.Value,
		}
	}

	brand := rec.BrandName
	if brand == "" {
		brand = rec.BrandOwner
	}
	barcode := rec.GTINUPC
	if barcode == "" {
		barcode = barcodeHint
	}

	return models.Food{
		ID:        strconv.Itoa(rec.FDCID),
		FoodName:  rec.Description,
		BrandName: brand,
		Source:    models.SourceFDC,
		Barcode:   barcode,
		ServingSize: models.ServingSize{
			Value: rec.ServingSize,
			Unit:  rec.ServingSizeUnit,
		},
		Nutrients: nutrients,
	}
}
