// Package plan defines the training-plan request entity and its lifecycle,
// plus the date arithmetic that splits the runway to race day into weekly chunks.
package plan

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status represents the lifecycle state of a plan request.
type Status string

const (
	// StatusInitialized means the request exists but no week has been generated.
	StatusInitialized Status = "initialized"
	// StatusInProgress means at least one week has been generated.
	StatusInProgress Status = "in_progress"
	// StatusCompleted means every week has been generated.
	StatusCompleted Status = "completed"
	// StatusError means the last generation attempt failed.
	StatusError Status = "error"
)

// Terminal reports whether the status accepts no further transitions.
// An errored request may still retry its pending week (see orchestrator docs),
// so callers deciding on retries must check for StatusError separately.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// GoalTime is the runner's target finish time.
type GoalTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// String formats the goal time as H:MM:SS.
func (g GoalTime) String() string {
	return fmt.Sprintf("%d:%02d:%02d", g.Hours, g.Minutes, g.Seconds)
}

// Validate checks the goal time is a plausible marathon finish time.
func (g GoalTime) Validate() error {
	if g.Hours < 0 || g.Minutes < 0 || g.Seconds < 0 {
		return fmt.Errorf("goal time components must be non-negative")
	}
	if g.Minutes > 59 || g.Seconds > 59 {
		return fmt.Errorf("goal time minutes and seconds must be below 60")
	}
	if g.Hours == 0 && g.Minutes == 0 && g.Seconds == 0 {
		return fmt.Errorf("goal time cannot be zero")
	}
	return nil
}

// Request is one end-to-end plan-generation session. It is stored as a single
// serialized record per request ID; the orchestrator owns all mutations.
type Request struct {
	ID             string         `json:"request_id"`
	Status         Status         `json:"status"`
	Email          string         `json:"email"`
	RaceDate       time.Time      `json:"race_date"`
	GoalTime       GoalTime       `json:"goal_time"`
	CurrentMileage float64        `json:"current_mileage"`
	TotalWeeks     int            `json:"total_weeks"`
	CurrentWeek    int            `json:"current_week"`
	Weeks          map[int]string `json:"weeks"`
	Error          string         `json:"error,omitempty"`
	StartTime      time.Time      `json:"start_time"`
}

// Encode serializes the request for storage.
func (r *Request) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan request %s: %w", r.ID, err)
	}
	return data, nil
}

// Decode deserializes a stored request record.
func Decode(data []byte) (*Request, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode plan request record: %w", err)
	}
	if r.Weeks == nil {
		r.Weeks = make(map[int]string)
	}
	return &r, nil
}

// FullText concatenates the generated weeks in ascending order, separated by
// blank lines. Used for the completion email body.
func (r *Request) FullText() string {
	indexes := make([]int, 0, len(r.Weeks))
	for w := range r.Weeks {
		indexes = append(indexes, w)
	}
	sort.Ints(indexes)

	parts := make([]string, 0, len(indexes))
	for _, w := range indexes {
		parts = append(parts, r.Weeks[w])
	}
	return strings.Join(parts, "\n\n")
}
