package middleware_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/auth"
	"github.com/xaenox/nutrobo/internal/http/middleware"
)

var _ = Describe("Middleware", func() {
	var router *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("RequestID", func() {
		BeforeEach(func() {
			router.Use(middleware.RequestID())
			router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		})

		It("assigns an id when the caller sends none", func() {
			w := serve(httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(w.Header().Get(middleware.RequestIDHeader)).To(HaveLen(36))
		})

		It("keeps the caller's id", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(middleware.RequestIDHeader, "abc")
			Expect(serve(req).Header().Get(middleware.RequestIDHeader)).To(Equal("abc"))
		})
	})

	Describe("Auth", func() {
		BeforeEach(func() {
			verifier := auth.NewTokenVerifier(auth.Config{Clients: map[string][]string{"web": {"secret"}}})
			router.Use(middleware.Auth(verifier, zap.NewNop()))
			router.GET("/", func(c *gin.Context) {
				c.String(http.StatusOK, auth.FromContext(c.Request.Context()).UserID)
			})
		})

		It("rejects requests without credentials", func() {
			w := serve(httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(w.Body.String()).To(ContainSubstring(`"code":401`))
		})

		It("stores the identity for trusted clients", func() {
			req := httptest.NewRequest(http.MethodGet, "/?uid=user-7", nil)
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("web:secret")))
			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("user-7"))
		})
	})

	Describe("Timeout", func() {
		It("answers 408 when the handler outlives the deadline", func() {
			router.Use(middleware.Timeout(10*time.Millisecond, zap.NewNop()))
			router.GET("/", func(c *gin.Context) {
				<-c.Request.Context().Done()
			})

			w := serve(httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(w.Code).To(Equal(http.StatusRequestTimeout))
		})

		It("leaves fast handlers alone", func() {
			router.Use(middleware.Timeout(time.Second, zap.NewNop()))
			router.GET("/", func(c *gin.Context) {
				_, ok := c.Request.Context().Deadline()
				Expect(ok).To(BeTrue())
				c.Status(http.StatusNoContent)
			})

			Expect(serve(httptest.NewRequest(http.MethodGet, "/", nil)).Code).To(Equal(http.StatusNoContent))
		})
	})

	Describe("Recovery", func() {
		It("turns panics into 500", func() {
			router.Use(middleware.Recovery(zap.NewNop()))
			router.GET("/", func(c *gin.Context) { panic("boom") })

			w := serve(httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})
