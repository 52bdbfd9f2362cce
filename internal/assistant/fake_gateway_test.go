package assistant

import (
	"context"
	"fmt"
	"sync"

	"github.com/xaenox/nutrobo/internal/models"
)

type submitCall struct {
	threadID string
	runID    string
	outputs  []ToolOutput
}

// fakeGateway replays scripted run statuses and records every call.
type fakeGateway struct {
	mu sync.Mutex

	calls     []string
	runs      []Run
	polls     []Run
	pollErrs  []error
	pollIdx   int
	messages  []models.Message
	submitted []submitCall
	cancelled []string
	steering  []string
	appendErr error
}

func (f *fakeGateway) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeGateway) CreateThread(_ context.Context) (ThreadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateThread")
	return ThreadInfo{ID: "thread-1", CreatedAt: 1700000000}, nil
}

func (f *fakeGateway) AppendMessage(_ context.Context, threadID string, role models.Role, content string) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AppendMessage")
	if f.appendErr != nil {
		return models.Message{}, f.appendErr
	}
	m := models.Message{
		ID:        fmt.Sprintf("msg-%d", len(f.messages)+1),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		CreatedAt: int64(1700000000 + len(f.messages)),
	}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeGateway) ListMessages(_ context.Context, _ string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListMessages")
	return append([]models.Message(nil), f.messages...), nil
}

func (f *fakeGateway) GetThread(_ context.Context, threadID string) (ThreadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetThread")
	return ThreadInfo{ID: threadID, CreatedAt: 1700000000}, nil
}

func (f *fakeGateway) ListRuns(_ context.Context, _ string) ([]Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListRuns")
	return f.runs, nil
}

func (f *fakeGateway) CreateRun(_ context.Context, threadID, steering string) (Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateRun")
	f.steering = append(f.steering, steering)
	return Run{ID: "run-1", ThreadID: threadID, Status: RunQueued}, nil
}

func (f *fakeGateway) GetRun(_ context.Context, threadID, runID string) (Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetRun")
	i := f.pollIdx
	f.pollIdx++
	if i < len(f.pollErrs) && f.pollErrs[i] != nil {
		return Run{}, f.pollErrs[i]
	}
	if i >= len(f.polls) {
		return Run{ID: runID, ThreadID: threadID, Status: RunInProgress}, nil
	}
	return f.polls[i], nil
}

func (f *fakeGateway) CancelRun(_ context.Context, threadID, runID string) (Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CancelRun")
	f.cancelled = append(f.cancelled, runID)
	for i := range f.runs {
		if f.runs[i].ID == runID {
			f.runs[i].Status = RunCancelled
		}
	}
	return Run{ID: runID, ThreadID: threadID, Status: RunCancelling}, nil
}

func (f *fakeGateway) SubmitToolOutputs(_ context.Context, threadID, runID string, outputs []ToolOutput) (Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SubmitToolOutputs")
	f.submitted = append(f.submitted, submitCall{threadID: threadID, runID: runID, outputs: outputs})
	return Run{ID: runID, ThreadID: threadID, Status: RunQueued}, nil
}

type fakeFinder struct {
	food  *models.Food
	err   error
	names []string
}

func (f *fakeFinder) SearchByName(_ context.Context, name string) (*models.Food, error) {
	f.names = append(f.names, name)
	return f.food, f.err
}
