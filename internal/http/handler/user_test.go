package handler_test

import (
	"bytes"
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

var _ = Describe("UserHandler", func() {
	var (
		router *gin.Engine
		svc    *mockUserService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(withIdentity("user-1"))
		svc = &mockUserService{}
		h := handler.NewUserHandler(svc, zap.NewNop())
		router.GET("/get-profile", h.GetProfile)
		router.POST("/update-profile", h.UpdateProfile)
	})

	It("returns the profile with an empty thread list", func() {
		req := httptest.NewRequest(http.MethodGet, "/get-profile", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"id":"user-1","threads":[],"profile":{}}`))
	})

	It("updates the insulin to carb ratio", func() {
		svc.updateProfileFn = func(_ context.Context, userID string, update service.ProfileUpdate) (*models.User, error) {
			Expect(update.ICRatio).To(Equal("1:10"))
			return &models.User{ID: userID, Threads: []string{"thread-1"}, Profile: models.Profile{ICRatio: update.ICRatio}}, nil
		}

		body, _ := json.Marshal(map[string]string{"icRatio": "1:10"})
		req := httptest.NewRequest(http.MethodPost, "/update-profile", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"id":"user-1","threads":["thread-1"],"profile":{"icRatio":"1:10"}}`))
	})

	It("returns 400 on a malformed ratio", func() {
		svc.updateProfileFn = func(_ context.Context, _ string, _ service.ProfileUpdate) (*models.User, error) {
			return nil, &service.Error{Kind: service.ErrValidation, Message: "Invalid icRatio format, must be insulin:carbs, where insulin and carbs are both numbers."}
		}

		body, _ := json.Marshal(map[string]string{"icRatio": "ten"})
		req := httptest.NewRequest(http.MethodPost, "/update-profile", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
