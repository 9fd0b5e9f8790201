package timetrack

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Tracker.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Tracker validates time entries and timers and persists them through a
// Repository.
type Tracker struct {
	repo   Repository
	now    func() time.Time
	logger Logger
}

// NewTracker creates a Tracker backed by repo.
func NewTracker(repo Repository) *Tracker {
	return &Tracker{repo: repo, now: time.Now, logger: noopLogger{}}
}

// SetLogger sets the logger.
func (t *Tracker) SetLogger(logger Logger) {
	t.logger = logger
}

// clock returns the current time at the storage precision.
func (t *Tracker) clock() time.Time {
	return t.now().UTC().Truncate(time.Microsecond)
}

// Create validates req and stores a new entry.
func (t *Tracker) Create(ctx context.Context, req CreateRequest) (*Entry, error) {
	now := t.clock()
	if err := ValidateCreate(req, now); err != nil {
		return nil, err
	}

	e := &Entry{
		ID:          uuid.NewString(),
		Description: req.Description,
		StartTime:   req.StartTime.UTC().Truncate(time.Microsecond),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.EndTime != nil {
		end := req.EndTime.UTC().Truncate(time.Microsecond)
		e.EndTime = &end
	}

	if err := t.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	t.logger.Info("time entry created", "id", e.ID, "running", e.Running())
	return e, nil
}

// Get returns one entry.
func (t *Tracker) Get(ctx context.Context, id string) (*Entry, error) {
	return t.repo.GetByID(ctx, id)
}

// List returns every entry, newest first.
func (t *Tracker) List(ctx context.Context) ([]Entry, error) {
	return t.repo.List(ctx)
}

// Active returns the running timers, newest first.
func (t *Tracker) Active(ctx context.Context) ([]Entry, error) {
	return t.repo.ListActive(ctx)
}

// Update applies the non-nil fields of req.
func (t *Tracker) Update(ctx context.Context, id string, req UpdateRequest) (*Entry, error) {
	e, err := t.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateUpdate(e, req); err != nil {
		return nil, err
	}

	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.EndTime != nil {
		end := req.EndTime.UTC().Truncate(time.Microsecond)
		e.EndTime = &end
	}

	if err := t.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes an entry.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	if err := t.repo.Delete(ctx, id); err != nil {
		return err
	}
	t.logger.Info("time entry deleted", "id", id)
	return nil
}

// StartTimer creates a running entry starting now.
func (t *Tracker) StartTimer(ctx context.Context, req StartRequest) (*Entry, error) {
	return t.Create(ctx, CreateRequest{Description: req.Description, StartTime: t.clock()})
}

// StopTimer sets the end time of a running entry to now. It returns
// ErrTimerStopped if the entry has already ended.
func (t *Tracker) StopTimer(ctx context.Context, id string) (*Entry, error) {
	e, err := t.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Running() {
		return nil, ErrTimerStopped
	}

	end := t.clock()
	e.EndTime = &end
	if err := t.repo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("stopping timer: %w", err)
	}

	d, _ := e.Duration()
	t.logger.Info("timer stopped", "id", e.ID, "duration", d)
	return e, nil
}

// Statistics aggregates every stored entry.
func (t *Tracker) Statistics(ctx context.Context) (Statistics, error) {
	return t.repo.Statistics(ctx)
}
