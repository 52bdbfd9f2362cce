package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/service"
)

type FoodHandler struct {
	food   service.FoodService
	logger *zap.Logger
}

func NewFoodHandler(food service.FoodService, logger *zap.Logger) *FoodHandler {
	return &FoodHandler{food: food, logger: logger}
}

func (h *FoodHandler) GetByBarcode(c *gin.Context) {
	f, err := h.food.ResolveFood(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, f)
}
