// Package task keeps a passive audit ledger of dispatched commands. A task
// records status transitions for observability only; it is never a control
// structure: no retries, no cancellation, no reopening.
package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aversine/adjutant/internal/log"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a task in this status can never transition again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Priority classifies a task's importance. Informational only.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority maps a string to a Priority, defaulting to medium.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return Priority(s)
	default:
		return PriorityMedium
	}
}

// Task is one audit record.
type Task struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id,omitempty"`
	Description string         `json:"description"`
	Status      Status         `json:"status"`
	Priority    Priority       `json:"priority"`
	Context     map[string]any `json:"context,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task transition")
)

// Store persists task snapshots. Persistence failures are logged by the
// tracker and never fail the command being audited.
type Store interface {
	Save(t Task) error
}

// Tracker is the in-memory ledger. One mutex guards mutation so the HTTP
// surface can dispatch from request goroutines without weakening the
// per-task state-machine ordering.
type Tracker struct {
	mu        sync.Mutex
	sessionID string
	tasks     map[string]*Task
	order     []string
	store     Store
	logger    *slog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithStore attaches a persistent store to the tracker.
func WithStore(s Store) TrackerOption {
	return func(t *Tracker) { t.store = s }
}

// NewTracker creates a ledger bound to a session identifier.
func NewTracker(sessionID string, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		sessionID: sessionID,
		tasks:     make(map[string]*Task),
		logger:    log.WithComponent("task"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create records a new pending task and returns a snapshot of it.
func (tr *Tracker) Create(description string, priority Priority, context map[string]any) Task {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	now := time.Now().UTC()
	t := &Task{
		ID:          uuid.NewString(),
		SessionID:   tr.sessionID,
		Description: description,
		Status:      StatusPending,
		Priority:    priority,
		Context:     context,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tr.tasks[t.ID] = t
	tr.order = append(tr.order, t.ID)

	tr.logger.Debug("created task", "task_id", t.ID, "description", description)
	tr.persist(t)
	return *t
}

// Start transitions a pending task to in_progress.
func (tr *Tracker) Start(id string) error {
	return tr.transition(id, StatusPending, StatusInProgress)
}

// Finish transitions an in_progress task to completed or failed.
func (tr *Tracker) Finish(id string, success bool) error {
	to := StatusCompleted
	if !success {
		to = StatusFailed
	}
	return tr.transition(id, StatusInProgress, to)
}

func (tr *Tracker) transition(id string, from, to Status) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, ok := tr.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if t.Status != from {
		return fmt.Errorf("%w: %s is %s, cannot move to %s", ErrInvalidTransition, id, t.Status, to)
	}

	t.Status = to
	t.UpdatedAt = time.Now().UTC()

	tr.logger.Debug("task transition", "task_id", id, "status", to)
	tr.persist(t)
	return nil
}

// Get returns a snapshot of one task.
func (tr *Tracker) Get(id string) (Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, ok := tr.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *t, nil
}

// List returns snapshots of every task in creation order.
func (tr *Tracker) List() []Task {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	out := make([]Task, 0, len(tr.order))
	for _, id := range tr.order {
		out = append(out, *tr.tasks[id])
	}
	return out
}

// Summary counts tasks per status.
func (tr *Tracker) Summary() map[Status]int {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	summary := map[Status]int{
		StatusPending:    0,
		StatusInProgress: 0,
		StatusCompleted:  0,
		StatusFailed:     0,
	}
	for _, t := range tr.tasks {
		summary[t.Status]++
	}
	return summary
}

// persist is called with the tracker mutex held.
func (tr *Tracker) persist(t *Task) {
	if tr.store == nil {
		return
	}
	if err := tr.store.Save(*t); err != nil {
		tr.logger.Error("failed to persist task", "task_id", t.ID, "error", err.Error())
	}
}
