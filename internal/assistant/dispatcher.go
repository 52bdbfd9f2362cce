package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// ToolFunc executes a tool call. It always returns a payload; failures are
// described inside the payload so the run can advance.
type ToolFunc func(ctx context.Context, call ToolCall) any

type toolError struct {
	Error string `json:"error"`
}

// Dispatcher executes tool calls of a paused run and submits their outputs.
type Dispatcher struct {
	gateway Gateway
	tools   map[string]ToolFunc
	logger  *zap.Logger
}

func NewDispatcher(gateway Gateway, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		gateway: gateway,
		tools:   make(map[string]ToolFunc),
		logger:  logger,
	}
}

// Register binds a function name to its handler.
func (d *Dispatcher) Register(name string, fn ToolFunc) {
	d.tools[name] = fn
}

// Execute runs a single tool call and serializes its payload.
func (d *Dispatcher) Execute(ctx context.Context, call ToolCall) ToolOutput {
	fn, ok := d.tools[call.FunctionName]
	var payload any
	if !ok {
		d.logger.Warn("Unknown tool requested",
			zap.String("tool", call.FunctionName),
			zap.String("tool_call_id", call.ID))
		payload = toolError{Error: fmt.Sprintf("unknown tool %q", call.FunctionName)}
	} else {
		payload = fn(ctx, call)
	}

	out, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("Failed to encode tool output",
			zap.Error(err),
			zap.String("tool", call.FunctionName))
		out, _ = json.Marshal(toolError{Error: "tool output could not be encoded"})
	}
	return ToolOutput{ToolCallID: call.ID, Output: string(out)}
}

// Dispatch executes every pending call in order and submits all outputs in a
// single request.
func (d *Dispatcher) Dispatch(ctx context.Context, threadID, runID string, calls []ToolCall) error {
	if len(calls) == 0 {
		return nil
	}
	outputs := make([]ToolOutput, 0, len(calls))
	for _, call := range calls {
		d.logger.Info("Handling tool call",
			zap.String("thread_id", threadID),
			zap.String("run_id", runID),
			zap.String("tool", call.FunctionName),
			zap.String("tool_call_id", call.ID))
		outputs = append(outputs, d.Execute(ctx, call))
	}
	if _, err := d.gateway.SubmitToolOutputs(ctx, threadID, runID, outputs); err != nil {
		return fmt.Errorf("submit %d tool outputs: %w", len(outputs), err)
	}
	return nil
}
