package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/assistant"
	"github.com/xaenox/nutrobo/internal/food"
	"github.com/xaenox/nutrobo/internal/http/dto"
	"github.com/xaenox/nutrobo/internal/service"
)

// StatusFor maps a service error onto an HTTP status and a client message.
func StatusFor(err error) (int, string) {
	var svcErr *service.Error
	var runErr *assistant.RunError
	var transportErr *assistant.TransportError
	var providerErr *food.ProviderError

	switch {
	case errors.As(err, &svcErr) && errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, svcErr.Message
	case errors.As(err, &svcErr) && errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, svcErr.Message
	case errors.As(err, &svcErr) && errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, svcErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "Request has timed out."
	case errors.As(err, &runErr):
		if runErr.State == assistant.StateCancelled {
			return http.StatusConflict, "The assistant run was cancelled."
		}
		return http.StatusBadGateway, "The assistant run did not complete."
	case errors.As(err, &transportErr), errors.As(err, &providerErr):
		return http.StatusBadGateway, "Upstream service unavailable."
	default:
		return http.StatusInternalServerError, "Internal server error."
	}
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, message := StatusFor(err)
	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("path", c.FullPath()),
	}
	switch {
	case status >= http.StatusInternalServerError:
		// The failing layer and the request logger already report these.
		logger.Debug("Request failed", fields...)
	case status == http.StatusNotFound:
		logger.Info("Request not found", fields...)
	default:
		logger.Warn("Request rejected", fields...)
	}
	_ = c.Error(err)
	c.JSON(status, dto.ErrorResponse{Code: status, Error: message})
}

func badBody(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("Invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: http.StatusBadRequest, Error: "Invalid request body."})
}
