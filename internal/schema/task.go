// Package schema defines the entity types held in the local store.
//
// Records are flat with last-write-wins semantics: a remote update replaces
// the whole row by primary key, no field-level merge. Timestamps resolve
// nothing by themselves; the most recently applied write wins.
package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/tandemhq/tandem/internal/week"
)

// OwnerType classifies who a task belongs to.
type OwnerType string

const (
	OwnerSelf    OwnerType = "SELF"
	OwnerPartner OwnerType = "PARTNER"
	OwnerShared  OwnerType = "SHARED"
)

// TaskStatus is the current state of a task. Any transition between statuses
// is permitted at this layer; policy enforcement belongs to callers.
type TaskStatus string

const (
	TaskPending           TaskStatus = "PENDING"
	TaskPendingAcceptance TaskStatus = "PENDING_ACCEPTANCE"
	TaskCompleted         TaskStatus = "COMPLETED"
	TaskTried             TaskStatus = "TRIED"
	TaskSkipped           TaskStatus = "SKIPPED"
	TaskDeclined          TaskStatus = "DECLINED"
)

// Task is a single actionable commitment scoped to one week.
type Task struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`

	OwnerID   string    `json:"owner_id"`
	OwnerType OwnerType `json:"owner_type"`
	CreatedBy string    `json:"created_by"`

	WeekID string     `json:"week_id"`
	Status TaskStatus `json:"status"`

	// RepeatTarget, when set, makes this a repeatable task for the week.
	// RepeatCompleted counts completions and has no ceiling.
	RepeatTarget    *int `json:"repeat_target,omitempty"`
	RepeatCompleted int  `json:"repeat_completed"`

	LinkedGoalID     string `json:"linked_goal_id,omitempty"`
	ParentTaskID     string `json:"parent_task_id,omitempty"`
	RolledFromWeekID string `json:"rolled_from_week_id,omitempty"`
	ReviewNote       string `json:"review_note,omitempty"`

	// ScheduledDate and Deadline are ISO dates (YYYY-MM-DD), empty when unset.
	ScheduledDate string `json:"scheduled_date,omitempty"`
	Deadline      string `json:"deadline,omitempty"`

	Priority int      `json:"priority"`
	Labels   []string `json:"labels,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the Task's field invariants.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title must not be blank")
	}
	if !week.Valid(t.WeekID) {
		return fmt.Errorf("invalid week id %q", t.WeekID)
	}
	if t.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	switch t.OwnerType {
	case OwnerSelf, OwnerPartner, OwnerShared:
	default:
		return fmt.Errorf("unknown owner type %q", t.OwnerType)
	}
	switch t.Status {
	case TaskPending, TaskPendingAcceptance, TaskCompleted, TaskTried, TaskSkipped, TaskDeclined:
	default:
		return fmt.Errorf("unknown task status %q", t.Status)
	}
	if t.RepeatTarget != nil && *t.RepeatTarget < 0 {
		return fmt.Errorf("repeat_target must be non-negative (got %d)", *t.RepeatTarget)
	}
	if t.RepeatCompleted < 0 {
		return fmt.Errorf("repeat_completed must be non-negative (got %d)", t.RepeatCompleted)
	}
	if t.RolledFromWeekID != "" && !week.Valid(t.RolledFromWeekID) {
		return fmt.Errorf("invalid rolled_from_week_id %q", t.RolledFromWeekID)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if t.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}

// Touch refreshes UpdatedAt. Called on every mutation.
func (t *Task) Touch(now time.Time) {
	t.UpdatedAt = now.UTC()
}

// TaskFromRecord decodes a flat string-keyed record from the remote change
// feed into a Task. Timestamps arrive as ISO-8601 strings, numbers as JSON
// numbers. The result is validated before being returned.
func TaskFromRecord(rec map[string]any) (*Task, error) {
	t := &Task{
		ID:           recString(rec, "id"),
		Title:        recString(rec, "title"),
		Notes:        recString(rec, "notes"),
		OwnerID:      recString(rec, "owner_id"),
		OwnerType:    OwnerType(recString(rec, "owner_type")),
		CreatedBy:    recString(rec, "created_by"),
		WeekID:       recString(rec, "week_id"),
		Status:       TaskStatus(recString(rec, "status")),
		LinkedGoalID: recString(rec, "linked_goal_id"),
	}
	if v, ok := recInt(rec, "repeat_target"); ok {
		t.RepeatTarget = &v
	}
	if v, ok := recInt(rec, "repeat_completed"); ok {
		t.RepeatCompleted = v
	}
	var err error
	if t.CreatedAt, err = recTime(rec, "created_at"); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = recTime(rec, "updated_at"); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task record: %w", err)
	}
	return t, nil
}

func recString(rec map[string]any, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

func recInt(rec map[string]any, key string) (int, bool) {
	switch v := rec[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func recTime(rec map[string]any, key string) (time.Time, error) {
	s, ok := rec[key].(string)
	if !ok || s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp %q", key)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", key, err)
	}
	return t.UTC(), nil
}
