package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/http/handler"
	"github.com/xaenox/nutrobo/internal/models"
	"github.com/xaenox/nutrobo/internal/service"
)

var _ = Describe("FoodHandler", func() {
	var (
		router *gin.Engine
		svc    *mockFoodService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockFoodService{}
		h := handler.NewFoodHandler(svc, zap.NewNop())
		router.GET("/get-by-barcode/:barcode", h.GetByBarcode)
	})

	get := func(barcode string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/get-by-barcode/"+barcode, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("returns 200 with the canonical food", func() {
		svc.resolveFoodFn = func(_ context.Context, barcode string) (*models.Food, error) {
			return &models.Food{
				ID:       "nix-1",
				FoodName: "Oat Bar",
				Source:   models.SourceNutritionix,
				Barcode:  barcode,
				Nutrients: map[models.NutrientKey]models.Nutrient{
					models.NutrientProtein: {ID: 203, Name: "Protein", Unit: "g", Value: 12},
				},
			}, nil
		}

		w := get("012345678905")

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["source"]).To(Equal("ntrx"))
		Expect(resp["barcode"]).To(Equal("012345678905"))
		protein := resp["nutrients"].(map[string]any)["protein"].(map[string]any)
		Expect(protein["id"]).To(BeEquivalentTo(203))
		Expect(protein["unit"]).To(Equal("g"))
		Expect(protein["value"]).To(BeEquivalentTo(12))
	})

	It("returns 404 when no provider knows the barcode", func() {
		svc.resolveFoodFn = func(_ context.Context, _ string) (*models.Food, error) {
			return nil, &service.Error{Kind: service.ErrNotFound, Message: "Barcode not found."}
		}

		w := get("000")

		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(MatchJSON(`{"code":404,"error":"Barcode not found."}`))
	})
})
