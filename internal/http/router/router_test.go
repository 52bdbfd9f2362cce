package router_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/auth"
	"github.com/xaenox/nutrobo/internal/http/router"
	"github.com/xaenox/nutrobo/internal/service"
	"github.com/xaenox/nutrobo/internal/storage"
)

var _ = Describe("Router", func() {
	var engine *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		services := service.NewServices(service.Deps{Storage: storage.NewMemoryStorage()})
		verifier := auth.NewTokenVerifier(auth.Config{JWTSecret: "s3cret"})
		engine = router.New(services, verifier, router.RouterConfig{RequestTimeout: time.Second}, zap.NewNop())
	})

	It("serves /health without credentials", func() {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("requires credentials on /v1 routes", func() {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/user/get-profile", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("resolves the user from a bearer token", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).
			SignedString([]byte("s3cret"))
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/v1/user/get-profile", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"id":"user-1","threads":[],"profile":{}}`))
		Expect(w.Header().Get("X-Request-ID")).NotTo(BeEmpty())
	})
})
