package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/auth"
	"github.com/xaenox/nutrobo/internal/http/dto"
	"github.com/xaenox/nutrobo/internal/service"
)

type UserHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewUserHandler(users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.users.GetProfile(ctx, auth.FromContext(ctx).UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.UpdateProfile(ctx, auth.FromContext(ctx).UserID, service.ProfileUpdate{
		Name:    req.Name,
		ICRatio: req.ICRatio,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}
