package assistant

import "fmt"

// RunStatus is the status reported by the remote API for a run.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
	RunIncomplete     RunStatus = "incomplete"
)

// Run is one attempt to advance a thread to its next assistant turn.
type Run struct {
	ID        string
	ThreadID  string
	Status    RunStatus
	ToolCalls []ToolCall
	LastError string
}

// ToolCall is a function call requested by a paused run.
type ToolCall struct {
	ID           string
	FunctionName string
	Arguments    string
}

// ToolOutput is the serialized result for one tool call.
type ToolOutput struct {
	ToolCallID string
	Output     string
}

// State is a step of a turn's lifecycle.
type State int

const (
	StateIdle State = iota
	StateMessageAppended
	StateRunStarted
	StatePolling
	StateToolHandling
	StateCompleted
	StateFailed
	StateCancelled
	StateExpired
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StateMessageAppended: "message_appended",
	StateRunStarted:      "run_started",
	StatePolling:         "polling",
	StateToolHandling:    "tool_handling",
	StateCompleted:       "completed",
	StateFailed:          "failed",
	StateCancelled:       "cancelled",
	StateExpired:         "expired",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateExpired:
		return true
	}
	return false
}

// nextState maps a polled run status to the orchestrator state.
func nextState(status RunStatus) State {
	switch status {
	case RunQueued, RunInProgress, RunCancelling:
		return StatePolling
	case RunRequiresAction:
		return StateToolHandling
	case RunCompleted:
		return StateCompleted
	case RunCancelled:
		return StateCancelled
	case RunExpired:
		return StateExpired
	default:
		// failed, incomplete and anything the API adds later
		return StateFailed
	}
}

// RunError reports a run that ended without completing.
type RunError struct {
	ThreadID string
	RunID    string
	Status   RunStatus
	State    State
	Reason   string
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("run %s on thread %s ended with status %s", e.RunID, e.ThreadID, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
