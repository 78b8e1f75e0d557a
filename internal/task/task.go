package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status is the lifecycle state of a background task.
type Status string

const (
	StatusRunning    Status = "running"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusSuperseded Status = "superseded" // replaced by a newer run of the same kind
)

// Runner is the unit of work a task executes. It must honor ctx cancellation
// between path batches and may call cb at coarse checkpoints.
type Runner func(ctx context.Context, cb Callback) (any, error)

// Task is one background run. All fields behind mu; reads go through the
// accessor methods.
type Task struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	mu       sync.Mutex
	status   Status
	progress Progress
	result   any
	err      error
	started  time.Time
	finished time.Time
	cancel   context.CancelFunc

	subscribers map[int]chan Progress
	nextSubID   int
}

// Snapshot is the externally visible view of a task.
type Snapshot struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Status   Status   `json:"status"`
	Progress Progress `json:"progress"`
	Result   any      `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Snapshot returns the current state of the task. The result is only
// populated once the task is done.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		ID:       t.ID,
		Kind:     t.Kind,
		Status:   t.status,
		Progress: t.progress,
	}
	if t.status == StatusDone {
		s.Result = t.result
	}
	if t.err != nil {
		s.Error = t.err.Error()
	}
	return s
}

// Subscribe returns a channel of progress updates plus an unsubscribe
// function. Updates are dropped rather than blocking a slow consumer.
func (t *Task) Subscribe() (<-chan Progress, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Terminal tasks get an already-closed channel so consumers fall
	// straight through to the final snapshot.
	if t.status != StatusRunning {
		ch := make(chan Progress)
		close(ch)
		return ch, func() {}
	}

	id := t.nextSubID
	t.nextSubID++
	ch := make(chan Progress, 16)
	t.subscribers[id] = ch

	return ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.subscribers[id]; ok {
			delete(t.subscribers, id)
			close(ch)
		}
	}
}

func (t *Task) reportProgress(current, total int, phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return
	}
	t.progress = Progress{Phase: phase, Current: current, Total: total}
	for _, ch := range t.subscribers {
		select {
		case ch <- t.progress:
		default: // slow consumer, drop
		}
	}
}

func (t *Task) closeSubscribers() {
	for id, ch := range t.subscribers {
		delete(t.subscribers, id)
		close(ch)
	}
}

// Manager owns all background tasks. At most one task per kind is considered
// current: starting a new run cancels the previous one of the same kind, and
// a superseded task's result is discarded rather than surfaced.
type Manager struct {
	log zerolog.Logger

	mu      sync.Mutex
	tasks   map[string]*Task
	current map[string]string // kind -> task ID of the authoritative run
}

// NewManager creates a task manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:     log.With().Str("component", "task_manager").Logger(),
		tasks:   make(map[string]*Task),
		current: make(map[string]string),
	}
}

// Start launches a runner in the background and returns its task handle.
// Any running task of the same kind is cancelled and marked superseded.
func (m *Manager) Start(kind string, run Runner) *Task {
	ctx, cancel := context.WithCancel(context.Background())

	t := &Task{
		ID:          uuid.New().String(),
		Kind:        kind,
		status:      StatusRunning,
		started:     time.Now(),
		cancel:      cancel,
		subscribers: make(map[int]chan Progress),
	}

	m.mu.Lock()
	if prevID, ok := m.current[kind]; ok {
		if prev := m.tasks[prevID]; prev != nil {
			prev.supersede()
		}
	}
	m.tasks[t.ID] = t
	m.current[kind] = t.ID
	m.mu.Unlock()

	m.log.Info().Str("task_id", t.ID).Str("kind", kind).Msg("Task started")

	go func() {
		defer cancel()
		result, err := run(ctx, t.reportProgress)
		m.finish(t, result, err)
	}()

	return t
}

// supersede cancels the task and flags it so its eventual result is dropped.
func (t *Task) supersede() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusRunning {
		t.status = StatusSuperseded
		t.cancel()
		t.closeSubscribers()
	}
}

func (m *Manager) finish(t *Task, result any, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.finished = time.Now()

	switch {
	case t.status == StatusSuperseded:
		// A newer run owns this kind; discard whatever we computed.
		m.log.Debug().Str("task_id", t.ID).Msg("Discarding result of superseded task")
	case errors.Is(err, context.Canceled):
		t.status = StatusCancelled
	case err != nil:
		t.status = StatusFailed
		t.err = err
		m.log.Error().Err(err).Str("task_id", t.ID).Str("kind", t.Kind).Msg("Task failed")
	default:
		t.status = StatusDone
		t.result = result
		m.log.Info().
			Str("task_id", t.ID).
			Str("kind", t.Kind).
			Dur("elapsed", t.finished.Sub(t.started)).
			Msg("Task completed")
	}

	t.closeSubscribers()
}

// Get returns a task by ID.
func (m *Manager) Get(id string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

// Cancel requests cooperative cancellation of a running task. Returns false
// if the task does not exist.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	t, ok := m.tasks[id]
	m.mu.Unlock()
	if !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusRunning {
		t.cancel()
	}
	return true
}
