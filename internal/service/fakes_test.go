package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xaenox/nutrobo/internal/assistant"
	"github.com/xaenox/nutrobo/internal/food"
	"github.com/xaenox/nutrobo/internal/models"
	"github.com/xaenox/nutrobo/internal/storage"
	"github.com/xaenox/nutrobo/internal/threadlock"
)

type appendCall struct {
	threadID string
	role     models.Role
	content  string
}

// stubGateway completes every run on the first poll.
type stubGateway struct {
	mu       sync.Mutex
	appends  []appendCall
	messages []models.Message
	steering []string
	runs     int
}

func (g *stubGateway) CreateThread(context.Context) (assistant.ThreadInfo, error) {
	return assistant.ThreadInfo{ID: "thread-1", CreatedAt: 1700000000}, nil
}

func (g *stubGateway) AppendMessage(_ context.Context, threadID string, role models.Role, content string) (models.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appends = append(g.appends, appendCall{threadID: threadID, role: role, content: content})
	m := models.Message{
		ID:        fmt.Sprintf("msg-%d", len(g.messages)+1),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		CreatedAt: int64(1700000000 + len(g.messages)),
	}
	g.messages = append(g.messages, m)
	return m, nil
}

func (g *stubGateway) ListMessages(context.Context, string) ([]models.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.Message(nil), g.messages...), nil
}

func (g *stubGateway) GetThread(_ context.Context, threadID string) (assistant.ThreadInfo, error) {
	return assistant.ThreadInfo{ID: threadID, CreatedAt: 1700000000}, nil
}

func (g *stubGateway) ListRuns(context.Context, string) ([]assistant.Run, error) {
	return nil, nil
}

func (g *stubGateway) CreateRun(_ context.Context, threadID, steering string) (assistant.Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runs++
	g.steering = append(g.steering, steering)
	return assistant.Run{ID: fmt.Sprintf("run-%d", g.runs), ThreadID: threadID, Status: assistant.RunQueued}, nil
}

func (g *stubGateway) GetRun(_ context.Context, threadID, runID string) (assistant.Run, error) {
	return assistant.Run{ID: runID, ThreadID: threadID, Status: assistant.RunCompleted}, nil
}

func (g *stubGateway) CancelRun(_ context.Context, threadID, runID string) (assistant.Run, error) {
	return assistant.Run{ID: runID, ThreadID: threadID, Status: assistant.RunCancelled}, nil
}

func (g *stubGateway) SubmitToolOutputs(_ context.Context, threadID, runID string, _ []assistant.ToolOutput) (assistant.Run, error) {
	return assistant.Run{ID: runID, ThreadID: threadID, Status: assistant.RunQueued}, nil
}

type stubResolver struct {
	food     *models.Food
	err      error
	barcodes []string
}

func (r *stubResolver) ResolveByBarcode(_ context.Context, barcode string) (*models.Food, error) {
	r.barcodes = append(r.barcodes, barcode)
	if r.food == nil && r.err == nil {
		return nil, food.ErrNotFound
	}
	return r.food, r.err
}

type fixture struct {
	gateway  *stubGateway
	resolver *stubResolver
	store    *storage.MemoryStorage
	services *Services
}

func newFixture() *fixture {
	gw := &stubGateway{}
	orch := assistant.NewOrchestrator(gw, assistant.NewDispatcher(gw, nil), assistant.Config{
		PollInterval: time.Millisecond,
	}, nil)
	res := &stubResolver{}
	store := storage.NewMemoryStorage()
	return &fixture{
		gateway:  gw,
		resolver: res,
		store:    store,
		services: NewServices(Deps{
			Runner:   orch,
			Resolver: res,
			Storage:  store,
			Locker:   threadlock.NewLocal(),
		}),
	}
}
