package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/models"
)

const (
	DefaultPollInterval  = time.Second
	DefaultFetchMaxTries = 3
)

type Config struct {
	PollInterval time.Duration
	// MaxPollDuration bounds a single run's polling. Zero leaves the bound
	// to the caller's context.
	MaxPollDuration time.Duration
	// FetchMaxTries bounds attempts for one status fetch.
	FetchMaxTries       uint
	FetchInitialBackoff time.Duration
}

// ToolDispatcher services the tool calls of a paused run.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, threadID, runID string, calls []ToolCall) error
}

// Turn is one inbound contribution to a thread.
type Turn struct {
	ThreadID string
	Role     models.Role
	Content  string
	// Steering is appended to the run's instructions for this turn only.
	Steering []string
}

// Orchestrator drives a thread through the run lifecycle.
type Orchestrator struct {
	gateway    Gateway
	dispatcher ToolDispatcher
	cfg        Config
	logger     *zap.Logger
}

func NewOrchestrator(gateway Gateway, dispatcher ToolDispatcher, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.FetchMaxTries == 0 {
		cfg.FetchMaxTries = DefaultFetchMaxTries
	}
	if cfg.FetchInitialBackoff <= 0 {
		cfg.FetchInitialBackoff = cfg.PollInterval / 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		gateway:    gateway,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// CreateThread creates a remote thread opened by an assistant greeting.
func (o *Orchestrator) CreateThread(ctx context.Context, greeting string) (string, error) {
	t, err := o.gateway.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	if _, err := o.gateway.AppendMessage(ctx, t.ID, models.RoleAssistant, greeting); err != nil {
		return "", err
	}
	return t.ID, nil
}

// CancelPendingRuns cancels every run of the thread left in requires_action.
// It returns the number of cancelled runs and is a no-op when none is pending.
func (o *Orchestrator) CancelPendingRuns(ctx context.Context, threadID string) (int, error) {
	runs, err := o.gateway.ListRuns(ctx, threadID)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, r := range runs {
		if r.Status != RunRequiresAction {
			continue
		}
		if _, err := o.gateway.CancelRun(ctx, threadID, r.ID); err != nil {
			return cancelled, err
		}
		o.logger.Info("Cancelled stale run",
			zap.String("thread_id", threadID),
			zap.String("run_id", r.ID))
		cancelled++
	}
	return cancelled, nil
}

// RunTurn appends the turn's message, runs the assistant to completion and
// returns the resulting transcript.
func (o *Orchestrator) RunTurn(ctx context.Context, turn Turn) (*models.Thread, error) {
	log := o.logger.With(zap.String("thread_id", turn.ThreadID))
	state := StateIdle
	enter := func(s State) {
		log.Debug("Turn state", zap.Stringer("from", state), zap.Stringer("to", s))
		state = s
	}

	if _, err := o.CancelPendingRuns(ctx, turn.ThreadID); err != nil {
		return nil, fmt.Errorf("preflight: %w", err)
	}

	role := turn.Role
	if role == "" {
		role = models.RoleUser
	}
	if _, err := o.gateway.AppendMessage(ctx, turn.ThreadID, role, turn.Content); err != nil {
		return nil, err
	}
	enter(StateMessageAppended)

	run, err := o.gateway.CreateRun(ctx, turn.ThreadID, strings.Join(turn.Steering, " "))
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("run_id", run.ID))
	enter(StateRunStarted)

	enter(StatePolling)
	if err := o.poll(ctx, turn.ThreadID, run.ID, log); err != nil {
		log.Error("Run did not complete", zap.Error(err), zap.Stringer("state", state))
		return nil, err
	}
	enter(StateCompleted)

	return o.Transcript(ctx, turn.ThreadID)
}

func (o *Orchestrator) poll(ctx context.Context, threadID, runID string, log *zap.Logger) error {
	if o.cfg.MaxPollDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.MaxPollDuration)
		defer cancel()
	}

	timer := time.NewTimer(o.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("poll run %s: %w", runID, ctx.Err())
		case <-timer.C:
		}

		run, err := o.fetchRun(ctx, threadID, runID, log)
		if err != nil {
			return err
		}

		state := nextState(run.Status)
		log.Debug("Run status", zap.String("status", string(run.Status)), zap.Stringer("state", state))

		switch state {
		case StateCompleted:
			return nil
		case StateToolHandling:
			if len(run.ToolCalls) == 0 {
				log.Warn("Run requires action without tool calls")
				break
			}
			if err := o.dispatcher.Dispatch(ctx, threadID, runID, run.ToolCalls); err != nil {
				return err
			}
		case StatePolling:
		default:
			return &RunError{
				ThreadID: threadID,
				RunID:    runID,
				Status:   run.Status,
				State:    state,
				Reason:   run.LastError,
			}
		}

		timer.Reset(o.cfg.PollInterval)
	}
}

// fetchRun retries transient fetch failures with exponential backoff so a
// single failed poll is never mistaken for a running run.
func (o *Orchestrator) fetchRun(ctx context.Context, threadID, runID string, log *zap.Logger) (Run, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.cfg.FetchInitialBackoff

	op := func() (Run, error) {
		run, err := o.gateway.GetRun(ctx, threadID, runID)
		if err == nil {
			return run, nil
		}
		var terr *TransportError
		if errors.As(err, &terr) && terr.Temporary() {
			return run, err
		}
		return run, backoff.Permanent(err)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(o.cfg.FetchMaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("Run status fetch failed, retrying",
				zap.Error(err),
				zap.Duration("backoff", next))
		}))
}

// Transcript projects the thread's messages and metadata.
func (o *Orchestrator) Transcript(ctx context.Context, threadID string) (*models.Thread, error) {
	messages, err := o.gateway.ListMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	info, err := o.gateway.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return &models.Thread{
		ID:        threadID,
		CreatedAt: info.CreatedAt,
		Messages:  messages,
	}, nil
}
