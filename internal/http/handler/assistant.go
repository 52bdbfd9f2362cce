package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/auth"
	"github.com/xaenox/nutrobo/internal/http/dto"
	"github.com/xaenox/nutrobo/internal/models"
	"github.com/xaenox/nutrobo/internal/service"
)

type AssistantHandler struct {
	threads service.ThreadService
	logger  *zap.Logger
}

func NewAssistantHandler(threads service.ThreadService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{threads: threads, logger: logger}
}

func (h *AssistantHandler) CreateThread(c *gin.Context) {
	ctx := c.Request.Context()
	thread, err := h.threads.CreateThread(ctx, auth.FromContext(ctx).UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

func (h *AssistantHandler) GetThread(c *gin.Context) {
	ctx := c.Request.Context()
	thread, err := h.threads.GetThread(ctx, auth.FromContext(ctx).UserID, c.Param("threadId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *AssistantHandler) SendMessage(c *gin.Context) {
	h.turn(c, h.threads.SendMessage)
}

func (h *AssistantHandler) SendBarcode(c *gin.Context) {
	h.turn(c, h.threads.SendBarcode)
}

func (h *AssistantHandler) SendNutritionInfo(c *gin.Context) {
	h.turn(c, h.threads.SendNutritionInfo)
}

// sendFunc is the common shape of the ThreadService send operations.
type sendFunc func(ctx context.Context, userID, threadID, content string, data []string) (*models.Thread, error)

func (h *AssistantHandler) turn(c *gin.Context, send sendFunc) {
	var req dto.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	thread, err := send(ctx, auth.FromContext(ctx).UserID, c.Param("threadId"), req.Content, req.Data)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}
