package timetrack

import (
	"encoding/json"
	"time"
)

// MaxDescriptionLength is the longest description accepted, in characters.
const MaxDescriptionLength = 200

// Entry is one tracked span of work. An entry without an end time is a
// running timer.
type Entry struct {
	ID          string
	Description string
	StartTime   time.Time
	EndTime     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Running reports whether the entry has no end time.
func (e *Entry) Running() bool {
	return e.EndTime == nil
}

// Duration returns EndTime-StartTime, or false for a running entry.
func (e *Entry) Duration() (time.Duration, bool) {
	if e.EndTime == nil {
		return 0, false
	}
	return e.EndTime.Sub(e.StartTime), true
}

type entryJSON struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Duration    *string    `json:"duration"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MarshalJSON renders duration with FormatDuration, null while running.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{
		ID:          e.ID,
		Description: e.Description,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if d, ok := e.Duration(); ok {
		s := FormatDuration(d)
		out.Duration = &s
	}
	return json.Marshal(out)
}

// CreateRequest holds the fields accepted when creating an entry.
type CreateRequest struct {
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

// UpdateRequest holds the fields that may change after creation. Nil
// fields are left as they are.
type UpdateRequest struct {
	Description *string    `json:"description"`
	EndTime     *time.Time `json:"end_time"`
}

// StartRequest starts a timer at the current time.
type StartRequest struct {
	Description string `json:"description"`
}

// Statistics aggregates all entries.
type Statistics struct {
	TotalEntries  int     `json:"total_entries"`
	TotalDuration string  `json:"total_duration"`
	TotalSeconds  float64 `json:"total_seconds"`
}
