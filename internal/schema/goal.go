package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/tandemhq/tandem/internal/week"
)

// MaxGoalNameLen is the longest allowed goal name.
const MaxGoalNameLen = 100

// GoalKind discriminates the GoalType variants.
type GoalKind string

const (
	KindWeeklyHabit   GoalKind = "WEEKLY_HABIT"
	KindRecurringTask GoalKind = "RECURRING_TASK"
	KindTargetAmount  GoalKind = "TARGET_AMOUNT"
)

// GoalType is a closed set of goal variants. The variant determines the
// target value that progress is measured against:
//
//	WeeklyHabit   — TargetPerWeek completions each week
//	RecurringTask — exactly once each week
//	TargetAmount  — TargetTotal accumulated over the goal's lifetime
type GoalType interface {
	Kind() GoalKind
	TargetValue() int
}

// WeeklyHabit is a goal done a fixed number of times per week.
type WeeklyHabit struct {
	TargetPerWeek int
}

func (h WeeklyHabit) Kind() GoalKind   { return KindWeeklyHabit }
func (h WeeklyHabit) TargetValue() int { return h.TargetPerWeek }

// RecurringTask is a goal done once per week.
type RecurringTask struct{}

func (RecurringTask) Kind() GoalKind   { return KindRecurringTask }
func (RecurringTask) TargetValue() int { return 1 }

// TargetAmount is a goal accumulating toward a total across weeks.
type TargetAmount struct {
	TargetTotal int
}

func (a TargetAmount) Kind() GoalKind   { return KindTargetAmount }
func (a TargetAmount) TargetValue() int { return a.TargetTotal }

// GoalTypeFrom reconstructs a GoalType from its stored kind and target.
func GoalTypeFrom(kind GoalKind, target int) (GoalType, error) {
	switch kind {
	case KindWeeklyHabit:
		return WeeklyHabit{TargetPerWeek: target}, nil
	case KindRecurringTask:
		return RecurringTask{}, nil
	case KindTargetAmount:
		return TargetAmount{TargetTotal: target}, nil
	default:
		return nil, fmt.Errorf("unknown goal kind %q", kind)
	}
}

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "ACTIVE"
	GoalCompleted GoalStatus = "COMPLETED"
	GoalExpired   GoalStatus = "EXPIRED"
)

// Goal is a multi-week target owned by one user. CurrentProgress always
// refers to the week named by CurrentWeekID.
type Goal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`

	Type GoalType `json:"-"`

	// DurationWeeks, when set, bounds the goal's lifetime starting at
	// StartWeekID.
	DurationWeeks *int   `json:"duration_weeks,omitempty"`
	StartWeekID   string `json:"start_week_id"`

	OwnerID string `json:"owner_id"`

	CurrentProgress int        `json:"current_progress"`
	CurrentWeekID   string     `json:"current_week_id"`
	Status          GoalStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasMetTarget reports whether current progress has reached the target value
// for the goal's type.
func (g *Goal) HasMetTarget() bool {
	return g.CurrentProgress >= g.Type.TargetValue()
}

// EndWeekID returns the last week of the goal's lifetime, or "" when the
// goal has no duration.
func (g *Goal) EndWeekID() (string, error) {
	if g.DurationWeeks == nil {
		return "", nil
	}
	return week.Add(g.StartWeekID, *g.DurationWeeks-1)
}

// Touch refreshes the modification timestamp.
func (g *Goal) Touch(now time.Time) {
	g.UpdatedAt = now.UTC()
}

// Validate checks the Goal's field invariants.
func (g *Goal) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("name must not be blank")
	}
	if len(g.Name) > MaxGoalNameLen {
		return fmt.Errorf("name must be %d characters or less (got %d)", MaxGoalNameLen, len(g.Name))
	}
	if g.Type == nil {
		return fmt.Errorf("type is required")
	}
	if g.Type.TargetValue() < 1 {
		return fmt.Errorf("target must be positive (got %d)", g.Type.TargetValue())
	}
	if g.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if !week.Valid(g.StartWeekID) {
		return fmt.Errorf("invalid start_week_id %q", g.StartWeekID)
	}
	if !week.Valid(g.CurrentWeekID) {
		return fmt.Errorf("invalid current_week_id %q", g.CurrentWeekID)
	}
	if g.CurrentProgress < 0 {
		return fmt.Errorf("current_progress must be non-negative (got %d)", g.CurrentProgress)
	}
	if g.DurationWeeks != nil && *g.DurationWeeks < 1 {
		return fmt.Errorf("duration_weeks must be positive (got %d)", *g.DurationWeeks)
	}
	switch g.Status {
	case GoalActive, GoalCompleted, GoalExpired:
	default:
		return fmt.Errorf("unknown goal status %q", g.Status)
	}
	return nil
}

// GoalProgress is an immutable historical snapshot of one goal's progress
// for one week. Rows are only ever inserted, never mutated.
type GoalProgress struct {
	ID            string    `json:"id"`
	GoalID        string    `json:"goal_id"`
	WeekID        string    `json:"week_id"`
	ProgressValue int       `json:"progress_value"`
	TargetValue   int       `json:"target_value"`
	CreatedAt     time.Time `json:"created_at"`
}

// PartnerGoal is a read-only mirrored copy of a counter-party's goal,
// refreshed by synchronization. It is never mutated locally, so the type
// carries the flat stored form rather than the GoalType sum.
type PartnerGoal struct {
	ID              string     `json:"id"`
	PartnerID       string     `json:"partner_id"`
	Name            string     `json:"name"`
	Icon            string     `json:"icon,omitempty"`
	Kind            GoalKind   `json:"kind"`
	Target          int        `json:"target"`
	CurrentProgress int        `json:"current_progress"`
	CurrentWeekID   string     `json:"current_week_id"`
	Status          GoalStatus `json:"status"`
	UpdatedAt       time.Time  `json:"updated_at"`
	SyncedAt        time.Time  `json:"synced_at"`
}
