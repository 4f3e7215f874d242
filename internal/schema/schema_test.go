package schema

import (
	"strings"
	"testing"
	"time"
)

func validTask() *Task {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	return &Task{
		ID:        "task-1",
		Title:     "Pay bills",
		OwnerID:   "user-a",
		OwnerType: OwnerSelf,
		CreatedBy: "user-a",
		WeekID:    "2026-W01",
		Status:    TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestTaskValidate_Valid tests that a well-formed task passes validation.
func TestTaskValidate_Valid(t *testing.T) {
	if err := validTask().Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

// TestTaskValidate_BlankTitle tests that whitespace-only titles are rejected.
func TestTaskValidate_BlankTitle(t *testing.T) {
	for _, title := range []string{"", "  ", "\t\n"} {
		task := validTask()
		task.Title = title
		if err := task.Validate(); err == nil {
			t.Errorf("Validate() accepted title %q", title)
		}
	}
}

// TestTaskValidate_BadWeekID tests that malformed week ids are rejected.
func TestTaskValidate_BadWeekID(t *testing.T) {
	for _, id := range []string{"2026-1", "2026-W1", "", "w1"} {
		task := validTask()
		task.WeekID = id
		if err := task.Validate(); err == nil {
			t.Errorf("Validate() accepted week id %q", id)
		}
	}
}

// TestTaskValidate_BadEnums tests unknown owner types and statuses.
func TestTaskValidate_BadEnums(t *testing.T) {
	task := validTask()
	task.OwnerType = "FRIEND"
	if err := task.Validate(); err == nil {
		t.Error("Validate() accepted unknown owner type")
	}
	task = validTask()
	task.Status = "DONE"
	if err := task.Validate(); err == nil {
		t.Error("Validate() accepted unknown status")
	}
}

// TestTaskFromRecord_Valid tests decoding a remote change-feed record.
func TestTaskFromRecord_Valid(t *testing.T) {
	rec := map[string]any{
		"id":               "task-9",
		"title":            "Call mom",
		"owner_id":         "partner-b",
		"owner_type":       "SELF",
		"week_id":          "2026-W02",
		"status":           "COMPLETED",
		"created_by":       "partner-b",
		"repeat_target":    float64(3),
		"repeat_completed": float64(2),
		"linked_goal_id":   "goal-1",
		"created_at":       "2026-01-05T08:00:00Z",
		"updated_at":       "2026-01-06T09:30:00Z",
	}
	task, err := TaskFromRecord(rec)
	if err != nil {
		t.Fatalf("TaskFromRecord() failed: %v", err)
	}
	if task.ID != "task-9" || task.OwnerID != "partner-b" {
		t.Errorf("decoded identity = (%q, %q)", task.ID, task.OwnerID)
	}
	if task.RepeatTarget == nil || *task.RepeatTarget != 3 {
		t.Errorf("RepeatTarget = %v, want 3", task.RepeatTarget)
	}
	if task.RepeatCompleted != 2 {
		t.Errorf("RepeatCompleted = %d, want 2", task.RepeatCompleted)
	}
	if task.Status != TaskCompleted {
		t.Errorf("Status = %q, want COMPLETED", task.Status)
	}
	if task.UpdatedAt != time.Date(2026, 1, 6, 9, 30, 0, 0, time.UTC) {
		t.Errorf("UpdatedAt = %v", task.UpdatedAt)
	}
}

// TestTaskFromRecord_Invalid tests that broken records fail to decode.
func TestTaskFromRecord_Invalid(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"id":         "task-9",
			"title":      "Call mom",
			"owner_id":   "partner-b",
			"owner_type": "SELF",
			"week_id":    "2026-W02",
			"status":     "PENDING",
			"created_by": "partner-b",
			"created_at": "2026-01-05T08:00:00Z",
			"updated_at": "2026-01-06T09:30:00Z",
		}
	}

	rec := base()
	delete(rec, "updated_at")
	if _, err := TaskFromRecord(rec); err == nil {
		t.Error("TaskFromRecord() accepted record without updated_at")
	}

	rec = base()
	rec["created_at"] = "yesterday"
	if _, err := TaskFromRecord(rec); err == nil {
		t.Error("TaskFromRecord() accepted unparseable created_at")
	}

	rec = base()
	rec["title"] = "   "
	if _, err := TaskFromRecord(rec); err == nil {
		t.Error("TaskFromRecord() accepted blank title")
	}
}

// TestGoalType_TargetValues tests the target mapping per variant.
func TestGoalType_TargetValues(t *testing.T) {
	if got := (WeeklyHabit{TargetPerWeek: 3}).TargetValue(); got != 3 {
		t.Errorf("WeeklyHabit target = %d, want 3", got)
	}
	if got := (RecurringTask{}).TargetValue(); got != 1 {
		t.Errorf("RecurringTask target = %d, want 1", got)
	}
	if got := (TargetAmount{TargetTotal: 100}).TargetValue(); got != 100 {
		t.Errorf("TargetAmount target = %d, want 100", got)
	}
}

// TestGoalTypeFrom_RoundTrip tests reconstructing each variant from its
// stored form.
func TestGoalTypeFrom_RoundTrip(t *testing.T) {
	for _, typ := range []GoalType{WeeklyHabit{TargetPerWeek: 5}, RecurringTask{}, TargetAmount{TargetTotal: 40}} {
		got, err := GoalTypeFrom(typ.Kind(), typ.TargetValue())
		if err != nil {
			t.Fatalf("GoalTypeFrom(%q) failed: %v", typ.Kind(), err)
		}
		if got.Kind() != typ.Kind() || got.TargetValue() != typ.TargetValue() {
			t.Errorf("round trip %q: got (%q, %d)", typ.Kind(), got.Kind(), got.TargetValue())
		}
	}
	if _, err := GoalTypeFrom("MONTHLY", 1); err == nil {
		t.Error("GoalTypeFrom() accepted unknown kind")
	}
}

// TestGoalValidate tests goal name and week id checks.
func TestGoalValidate(t *testing.T) {
	now := time.Now().UTC()
	goal := &Goal{
		ID:            "goal-1",
		Name:          "Run more",
		Type:          WeeklyHabit{TargetPerWeek: 3},
		OwnerID:       "user-a",
		StartWeekID:   "2026-W01",
		CurrentWeekID: "2026-W01",
		Status:        GoalActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := goal.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	goal.Name = "  "
	if err := goal.Validate(); err == nil {
		t.Error("Validate() accepted blank name")
	}
	goal.Name = strings.Repeat("x", MaxGoalNameLen+1)
	if err := goal.Validate(); err == nil {
		t.Error("Validate() accepted over-length name")
	}
	goal.Name = "Run more"
	goal.CurrentWeekID = "2026-5"
	if err := goal.Validate(); err == nil {
		t.Error("Validate() accepted bad current_week_id")
	}
}

// TestGoalEndWeekID tests duration arithmetic including no duration.
func TestGoalEndWeekID(t *testing.T) {
	goal := &Goal{StartWeekID: "2025-W50"}
	if end, err := goal.EndWeekID(); err != nil || end != "" {
		t.Errorf("EndWeekID() without duration = (%q, %v)", end, err)
	}
	dur := 4
	goal.DurationWeeks = &dur
	end, err := goal.EndWeekID()
	if err != nil {
		t.Fatalf("EndWeekID() failed: %v", err)
	}
	if end != "2026-W01" {
		t.Errorf("EndWeekID() = %q, want 2026-W01", end)
	}
}

// TestWeekValidate tests the Monday-start, 6-day-span and rating invariants.
func TestWeekValidate(t *testing.T) {
	monday := time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)
	w := &Week{
		ID:        "2026-W01",
		UserID:    "user-a",
		StartDate: monday,
		EndDate:   monday.AddDate(0, 0, 6),
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	w.StartDate = monday.AddDate(0, 0, 1)
	w.EndDate = w.StartDate.AddDate(0, 0, 6)
	if err := w.Validate(); err == nil {
		t.Error("Validate() accepted non-Monday start")
	}

	w.StartDate = monday
	w.EndDate = monday.AddDate(0, 0, 5)
	if err := w.Validate(); err == nil {
		t.Error("Validate() accepted 5-day span")
	}

	w.EndDate = monday.AddDate(0, 0, 6)
	for _, rating := range []int{0, 6, -1} {
		r := rating
		w.OverallRating = &r
		if err := w.Validate(); err == nil {
			t.Errorf("Validate() accepted rating %d", rating)
		}
	}
	ok := 5
	w.OverallRating = &ok
	if err := w.Validate(); err != nil {
		t.Errorf("Validate() rejected rating 5: %v", err)
	}
}

// TestNewPartnership_CanonicalOrder tests user id ordering and PartnerOf.
func TestNewPartnership_CanonicalOrder(t *testing.T) {
	p := NewPartnership("p-1", "zed", "amy", time.Now())
	if p.User1ID != "amy" || p.User2ID != "zed" {
		t.Errorf("ordering = (%q, %q), want (amy, zed)", p.User1ID, p.User2ID)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
	if got := p.PartnerOf("amy"); got != "zed" {
		t.Errorf("PartnerOf(amy) = %q, want zed", got)
	}
	if got := p.PartnerOf("bob"); got != "" {
		t.Errorf("PartnerOf(bob) = %q, want empty", got)
	}
}

// TestInviteExpired tests time-based expiry.
func TestInviteExpired(t *testing.T) {
	now := time.Now().UTC()
	inv := &Invite{
		Code:      "ABC123",
		CreatorID: "user-a",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
		Status:    InvitePending,
	}
	if err := inv.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if inv.Expired(now) {
		t.Error("Expired() true before expiry")
	}
	if !inv.Expired(now.Add(2 * time.Hour)) {
		t.Error("Expired() false after expiry")
	}
}
