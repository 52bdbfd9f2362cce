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
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xaenox/nutrobo/internal/assistant"
	"github.com/xaenox/nutrobo/internal/http/handler"
	"github.com/xaenox/nutrobo/internal/models"
	"github.com/xaenox/nutrobo/internal/service"
)

var _ = Describe("AssistantHandler", func() {
	var (
		router *gin.Engine
		svc    *mockThreadService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(withIdentity("user-1"))
		svc = &mockThreadService{}
		h := handler.NewAssistantHandler(svc, zap.NewNop())
		router.POST("/create-thread", h.CreateThread)
		router.GET("/get-thread/:threadId", h.GetThread)
		router.POST("/send-message/:threadId", h.SendMessage)
		router.POST("/send-barcode/:threadId", h.SendBarcode)
		router.POST("/send-nutrition-info/:threadId", h.SendNutritionInfo)
	})

	post := func(path string, body any) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decodeError := func(w *httptest.ResponseRecorder) map[string]any {
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		return resp
	}

	It("returns 201 with the greeting transcript on create-thread", func() {
		svc.createThreadFn = func(_ context.Context, userID string) (*models.Thread, error) {
			Expect(userID).To(Equal("user-1"))
			return &models.Thread{
				ID:        "thread-1",
				CreatedAt: 1700000000,
				Messages: []models.Message{
					{ID: "msg-1", Role: models.RoleAssistant, Content: service.Greeting, CreatedAt: 1700000000},
				},
			}, nil
		}

		w := post("/create-thread", nil)

		Expect(w.Code).To(Equal(http.StatusCreated))
		var resp models.Thread
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.ID).To(Equal("thread-1"))
		Expect(resp.Messages).To(HaveLen(1))
		Expect(resp.Messages[0].Role).To(Equal(models.RoleAssistant))
		Expect(resp.Messages[0].Content).To(Equal(service.Greeting))
	})

	It("passes content and data through on send-message", func() {
		svc.sendMessageFn = func(_ context.Context, userID, threadID, content string, data []string) (*models.Thread, error) {
			Expect(userID).To(Equal("user-1"))
			Expect(threadID).To(Equal("thread-1"))
			Expect(content).To(Equal("hello"))
			Expect(data).To(Equal([]string{"ratio 1:10"}))
			return &models.Thread{ID: threadID}, nil
		}

		w := post("/send-message/thread-1", map[string]any{"content": "hello", "data": []string{"ratio 1:10"}})

		Expect(w.Code).To(Equal(http.StatusCreated))
	})

	It("returns 400 with the service message on validation errors", func() {
		svc.sendMessageFn = func(_ context.Context, _, _, _ string, _ []string) (*models.Thread, error) {
			return nil, &service.Error{Kind: service.ErrValidation, Message: "Required `content` parameter is missing."}
		}

		w := post("/send-message/thread-1", map[string]any{})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		resp := decodeError(w)
		Expect(resp["code"]).To(BeEquivalentTo(400))
		Expect(resp["error"]).To(Equal("Required `content` parameter is missing."))
	})

	It("returns 400 on a malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/send-message/thread-1", bytes.NewBufferString(`{`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 401 on ownership mismatch", func() {
		svc.getThreadFn = func(_ context.Context, _, _ string) (*models.Thread, error) {
			return nil, &service.Error{Kind: service.ErrUnauthorized, Message: "The provided threadId does not belong to this user"}
		}

		req := httptest.NewRequest(http.MethodGet, "/get-thread/thread-9", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(decodeError(w)["code"]).To(BeEquivalentTo(401))
	})

	It("lets ownership win over missing content on send-message", func() {
		svc.sendMessageFn = func(_ context.Context, _, threadID, content string, _ []string) (*models.Thread, error) {
			Expect(content).To(BeEmpty())
			return nil, &service.Error{Kind: service.ErrUnauthorized, Message: "The provided threadId does not belong to this user"}
		}

		w := post("/send-message/thread-9", map[string]any{})

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(decodeError(w)["code"]).To(BeEquivalentTo(401))
	})

	It("returns 404 Barcode not found. for unresolved barcodes", func() {
		svc.sendBarcodeFn = func(_ context.Context, _, _, barcode string, _ []string) (*models.Thread, error) {
			Expect(barcode).To(Equal("000"))
			return nil, &service.Error{Kind: service.ErrNotFound, Message: "Barcode not found."}
		}

		w := post("/send-barcode/thread-1", map[string]any{"content": "000"})

		Expect(w.Code).To(Equal(http.StatusNotFound))
		resp := decodeError(w)
		Expect(resp["code"]).To(BeEquivalentTo(404))
		Expect(resp["error"]).To(Equal("Barcode not found."))
	})

	It("returns 502 when the run fails", func() {
		svc.sendNutritionInfoFn = func(_ context.Context, _, threadID, _ string, _ []string) (*models.Thread, error) {
			return nil, &assistant.RunError{ThreadID: threadID, RunID: "run-1", Status: assistant.RunFailed, State: assistant.StateFailed}
		}

		w := post("/send-nutrition-info/thread-1", map[string]any{"content": "Carbohydrate / Glucides 12 g"})

		Expect(w.Code).To(Equal(http.StatusBadGateway))
	})

	It("logs upstream failures below error level", func() {
		core, logs := observer.New(zapcore.DebugLevel)
		observed := gin.New()
		observed.Use(withIdentity("user-1"))
		observed.POST("/send-message/:threadId", handler.NewAssistantHandler(svc, zap.New(core)).SendMessage)
		svc.sendMessageFn = func(_ context.Context, _, threadID, _ string, _ []string) (*models.Thread, error) {
			return nil, &assistant.RunError{ThreadID: threadID, RunID: "run-1", Status: assistant.RunFailed, State: assistant.StateFailed}
		}

		raw, _ := json.Marshal(map[string]any{"content": "hi"})
		req := httptest.NewRequest(http.MethodPost, "/send-message/thread-1", bytes.NewBuffer(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		observed.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadGateway))
		Expect(logs.FilterLevelExact(zapcore.ErrorLevel).Len()).To(BeZero())
		Expect(logs.FilterMessage("Request failed").Len()).To(Equal(1))
	})
})
