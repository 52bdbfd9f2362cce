package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/auth"
	"github.com/xaenox/nutrobo/internal/http/handler"
	"github.com/xaenox/nutrobo/internal/http/middleware"
	"github.com/xaenox/nutrobo/internal/service"
)

type RouterConfig struct {
	RequestTimeout time.Duration
}

// New builds the engine with the shared middleware stack and all routes.
func New(services *service.Services, verifier auth.Verifier, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	)
	SetupRoutes(engine, services, verifier, cfg, logger)
	return engine
}

func SetupRoutes(engine *gin.Engine, services *service.Services, verifier auth.Verifier, cfg RouterConfig, logger *zap.Logger) {
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/v1")
	v1.Use(
		middleware.Timeout(cfg.RequestTimeout, logger),
		middleware.Auth(verifier, logger),
	)
	{
		AssistantRouter(v1.Group("/assistant"), handler.NewAssistantHandler(services.Threads(), logger))
		FoodRouter(v1.Group("/food"), handler.NewFoodHandler(services.Food(), logger))
		UserRouter(v1.Group("/user"), handler.NewUserHandler(services.Users(), logger))
	}
}

func AssistantRouter(rg *gin.RouterGroup, h *handler.AssistantHandler) {
	rg.POST("/create-thread", h.CreateThread)
	rg.GET("/get-thread/:threadId", h.GetThread)
	rg.POST("/send-message/:threadId", h.SendMessage)
	rg.POST("/send-barcode/:threadId", h.SendBarcode)
	rg.POST("/send-nutrition-info/:threadId", h.SendNutritionInfo)
}

func FoodRouter(rg *gin.RouterGroup, h *handler.FoodHandler) {
	rg.GET("/get-by-barcode/:barcode", h.GetByBarcode)
}

func UserRouter(rg *gin.RouterGroup, h *handler.UserHandler) {
	rg.GET("/get-profile", h.GetProfile)
	rg.POST("/update-profile", h.UpdateProfile)
}
