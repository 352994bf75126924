package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRejected        = errors.New("action rejected by user")
	ErrApprovalTimeout = errors.New("approval timed out")
)

const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
)

// EventEmitter allows the approval queue to notify the frontend.
// service.EventEmitter satisfies it.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// PendingAction is a destructive tool call waiting for the user.
type PendingAction struct {
	ID          string    `json:"id"`
	Tool        string    `json:"tool"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	// Metadata is JSON the frontend uses to highlight affected shapes.
	Metadata string `json:"metadata"`
}

type waiter struct {
	action PendingAction
	answer chan bool
}

// ApprovalQueue asks the user before destructive MCP tool calls run.
// Each request is pushed to the frontend as mcp:approval-required and
// waits until the user answers, the caller goes away or the timeout hits.
type ApprovalQueue struct {
	appCtx      context.Context
	emitter     EventEmitter
	timeout     time.Duration
	autoApprove bool

	mu      sync.Mutex
	pending map[string]*waiter
}

func NewApprovalQueue(appCtx context.Context, emitter EventEmitter) *ApprovalQueue {
	return &ApprovalQueue{
		appCtx:  appCtx,
		emitter: emitter,
		timeout: 2 * time.Minute,
		pending: make(map[string]*waiter),
	}
}

// Ask returns nil once the user approves tool. metadata, when not nil, is
// sent to the frontend as JSON.
func (q *ApprovalQueue) Ask(ctx context.Context, tool, description string, metadata any) error {
	if q.autoApprove {
		return nil
	}

	meta := []byte("{}")
	if metadata != nil {
		var err error
		if meta, err = json.Marshal(metadata); err != nil {
			return fmt.Errorf("approval metadata: %w", err)
		}
	}
	w := &waiter{
		action: PendingAction{
			ID:          uuid.New().String(),
			Tool:        tool,
			Description: description,
			CreatedAt:   time.Now().UTC(),
			Metadata:    string(meta),
		},
		answer: make(chan bool, 1),
	}

	q.mu.Lock()
	q.pending[w.action.ID] = w
	q.mu.Unlock()
	q.emitter.Emit(q.appCtx, EventApprovalRequired, w.action)

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case ok := <-w.answer:
		if !ok {
			return fmt.Errorf("%s: %w", tool, ErrRejected)
		}
		return nil
	case <-ctx.Done():
		q.dismiss(w.action.ID)
		return ctx.Err()
	case <-q.appCtx.Done():
		q.dismiss(w.action.ID)
		return q.appCtx.Err()
	case <-timer.C:
		q.dismiss(w.action.ID)
		return fmt.Errorf("%s after %s: %w", tool, q.timeout, ErrApprovalTimeout)
	}
}

// Pending lists the unanswered requests, oldest first.
func (q *ApprovalQueue) Pending() []PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingAction, 0, len(q.pending))
	for _, w := range q.pending {
		out = append(out, w.action)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Approve answers actionID. It reports false if the request is gone.
func (q *ApprovalQueue) Approve(actionID string) bool {
	return q.answer(actionID, true)
}

// Reject answers actionID. It reports false if the request is gone.
func (q *ApprovalQueue) Reject(actionID string) bool {
	return q.answer(actionID, false)
}

func (q *ApprovalQueue) answer(id string, ok bool) bool {
	q.mu.Lock()
	w, found := q.pending[id]
	delete(q.pending, id)
	q.mu.Unlock()
	if found {
		w.answer <- ok
	}
	return found
}

// dismiss drops an unanswered request and tells the frontend to hide it.
func (q *ApprovalQueue) dismiss(id string) {
	q.mu.Lock()
	_, found := q.pending[id]
	delete(q.pending, id)
	q.mu.Unlock()
	if found {
		q.emitter.Emit(q.appCtx, EventApprovalDismissed, map[string]string{"id": id})
	}
}
