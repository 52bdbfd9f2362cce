package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/models"
)

const pageSize = 100

// ThreadInfo is the metadata of a remote thread.
type ThreadInfo struct {
	ID        string
	CreatedAt int64
}

// Gateway owns the remote conversation primitives. Implementations hold no
// cross-call state and never retry.
type Gateway interface {
	CreateThread(ctx context.Context) (ThreadInfo, error)
	AppendMessage(ctx context.Context, threadID string, role models.Role, content string) (models.Message, error)
	ListMessages(ctx context.Context, threadID string) ([]models.Message, error)
	GetThread(ctx context.Context, threadID string) (ThreadInfo, error)
	ListRuns(ctx context.Context, threadID string) ([]Run, error)
	CreateRun(ctx context.Context, threadID, steering string) (Run, error)
	GetRun(ctx context.Context, threadID, runID string) (Run, error)
	CancelRun(ctx context.Context, threadID, runID string) (Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error)
}

// TransportError wraps any failure of a remote conversation call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("assistant %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status reported by the remote API, or 0 when
// the call failed before a response was received.
func (e *TransportError) StatusCode() int {
	var apiErr *openai.APIError
	if errors.As(e.Err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(e.Err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// Temporary reports whether retrying the same call may succeed.
func (e *TransportError) Temporary() bool {
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) {
		return false
	}
	code := e.StatusCode()
	return code == 0 || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	OrgID       string
	AssistantID string
	HTTPClient  *http.Client
}

// OpenAIGateway implements Gateway on the OpenAI Assistants API.
type OpenAIGateway struct {
	client      *openai.Client
	assistantID string
	logger      *zap.Logger
}

func NewOpenAIGateway(cfg OpenAIConfig, logger *zap.Logger) *OpenAIGateway {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.OrgID != "" {
		clientCfg.OrgID = cfg.OrgID
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIGateway{
		client:      openai.NewClientWithConfig(clientCfg),
		assistantID: cfg.AssistantID,
		logger:      logger,
	}
}

func (g *OpenAIGateway) CreateThread(ctx context.Context) (ThreadInfo, error) {
	t, err := g.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return ThreadInfo{}, &TransportError{Op: "create thread", Err: err}
	}
	g.logger.Info("Thread created", zap.String("thread_id", t.ID))
	return ThreadInfo{ID: t.ID, CreatedAt: t.CreatedAt}, nil
}

func (g *OpenAIGateway) GetThread(ctx context.Context, threadID string) (ThreadInfo, error) {
	t, err := g.client.RetrieveThread(ctx, threadID)
	if err != nil {
		return ThreadInfo{}, &TransportError{Op: "get thread", Err: err}
	}
	return ThreadInfo{ID: t.ID, CreatedAt: t.CreatedAt}, nil
}

func (g *OpenAIGateway) AppendMessage(ctx context.Context, threadID string, role models.Role, content string) (models.Message, error) {
	msg, err := g.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(role),
		Content: content,
	})
	if err != nil {
		return models.Message{}, &TransportError{Op: "append message", Err: err}
	}
	return toMessage(msg), nil
}

// ListMessages returns every message of the thread in creation order.
func (g *OpenAIGateway) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	limit := pageSize
	order := "asc"
	var after *string
	var out []models.Message
	for {
		page, err := g.client.ListMessage(ctx, threadID, &limit, &order, after, nil, nil)
		if err != nil {
			return nil, &TransportError{Op: "list messages", Err: err}
		}
		for _, m := range page.Messages {
			out = append(out, toMessage(m))
		}
		if !page.HasMore || page.LastID == nil {
			return out, nil
		}
		after = page.LastID
	}
}

func (g *OpenAIGateway) ListRuns(ctx context.Context, threadID string) ([]Run, error) {
	limit := pageSize
	list, err := g.client.ListRuns(ctx, threadID, openai.Pagination{Limit: &limit})
	if err != nil {
		return nil, &TransportError{Op: "list runs", Err: err}
	}
	runs := make([]Run, 0, len(list.Runs))
	for _, r := range list.Runs {
		runs = append(runs, toRun(r))
	}
	return runs, nil
}

func (g *OpenAIGateway) CreateRun(ctx context.Context, threadID, steering string) (Run, error) {
	r, err := g.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID:            g.assistantID,
		AdditionalInstructions: steering,
	})
	if err != nil {
		return Run{}, &TransportError{Op: "create run", Err: err}
	}
	return toRun(r), nil
}

func (g *OpenAIGateway) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	r, err := g.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, &TransportError{Op: "get run", Err: err}
	}
	return toRun(r), nil
}

func (g *OpenAIGateway) CancelRun(ctx context.Context, threadID, runID string) (Run, error) {
	r, err := g.client.CancelRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, &TransportError{Op: "cancel run", Err: err}
	}
	return toRun(r), nil
}

func (g *OpenAIGateway) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error) {
	req := openai.SubmitToolOutputsRequest{ToolOutputs: make([]openai.ToolOutput, 0, len(outputs))}
	for _, o := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, openai.ToolOutput{
			ToolCallID: o.ToolCallID,
			Output:     o.Output,
		})
	}
	r, err := g.client.SubmitToolOutputs(ctx, threadID, runID, req)
	if err != nil {
		return Run{}, &TransportError{Op: "submit tool outputs", Err: err}
	}
	return toRun(r), nil
}

func toMessage(m openai.Message) models.Message {
	var content string
	if len(m.Content) > 0 && m.Content[0].Text != nil {
		content = m.Content[0].Text.Value
	}
	return models.Message{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		Role:      models.Role(m.Role),
		Content:   content,
		CreatedAt: int64(m.CreatedAt),
	}
}

func toRun(r openai.Run) Run {
	run := Run{
		ID:       r.ID,
		ThreadID: r.ThreadID,
		Status:   RunStatus(r.Status),
	}
	if r.RequiredAction != nil && r.RequiredAction.SubmitToolOutputs != nil {
		for _, tc := range r.RequiredAction.SubmitToolOutputs.ToolCalls {
			run.ToolCalls = append(run.ToolCalls, ToolCall{
				ID:           tc.ID,
				FunctionName: tc.Function.Name,
				Arguments:    tc.Function.Arguments,
			})
		}
	}
	if r.LastError != nil {
		run.LastError = fmt.Sprintf("%s: %s", r.LastError.Code, r.LastError.Message)
	}
	return run
}
