package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tandemhq/tandem/internal/schema"
	"github.com/tandemhq/tandem/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tandem.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return s
}

func fixedClock(iso string) func() time.Time {
	ts, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

// TestTaskCreate_Defaults verifies id assignment, default status and
// timestamps.
func TestTaskCreate_Defaults(t *testing.T) {
	r := NewTaskRepository(newTestStore(t), nil)
	r.now = fixedClock("2026-03-02T10:00:00Z")
	ctx := context.Background()

	task, err := r.Create(ctx, NewTask{
		Title:     "write report",
		OwnerID:   "user-a",
		CreatedBy: "user-a",
		WeekID:    "2026-W10",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.ID == "" {
		t.Error("expected generated id")
	}
	if task.Status != schema.TaskPending {
		t.Errorf("status = %q, want PENDING", task.Status)
	}
	if task.OwnerType != schema.OwnerSelf {
		t.Errorf("owner type = %q, want SELF", task.OwnerType)
	}
	if !task.CreatedAt.Equal(task.UpdatedAt) {
		t.Error("created_at and updated_at should match on create")
	}

	got, err := r.Get(ctx, task.ID)
	if err != nil || got == nil {
		t.Fatalf("Get after Create = (%v, %v)", got, err)
	}
}

// TestTaskCreate_Rejected verifies blank-title and bad-week validation.
func TestTaskCreate_Rejected(t *testing.T) {
	r := NewTaskRepository(newTestStore(t), nil)
	ctx := context.Background()

	if _, err := r.Create(ctx, NewTask{Title: "   ", OwnerID: "u", CreatedBy: "u", WeekID: "2026-W10"}); err == nil {
		t.Error("expected error for blank title")
	}
	if _, err := r.Create(ctx, NewTask{Title: "ok", OwnerID: "u", CreatedBy: "u", WeekID: "2026-1"}); err == nil {
		t.Error("expected error for malformed week id")
	}
	if _, err := r.Create(ctx, NewTask{Title: "ok", OwnerID: "u", CreatedBy: "u", WeekID: "2026-W10", ScheduledDate: "03/02/2026"}); err == nil {
		t.Error("expected error for malformed scheduled date")
	}
}

// TestTaskMutate_MissingID verifies mutations on an absent id return
// (nil, nil) rather than an error.
func TestTaskMutate_MissingID(t *testing.T) {
	r := NewTaskRepository(newTestStore(t), nil)
	ctx := context.Background()

	task, err := r.UpdateStatus(ctx, "no-such-id", schema.TaskCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if task != nil {
		t.Errorf("expected nil task for missing id, got %+v", task)
	}

	ok, err := r.Delete(ctx, "no-such-id")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok {
		t.Error("Delete of missing id reported true")
	}
}

// TestTaskIncrementRepeatCount verifies counting past the target is allowed.
func TestTaskIncrementRepeatCount(t *testing.T) {
	r := NewTaskRepository(newTestStore(t), nil)
	ctx := context.Background()

	target := 2
	task, err := r.Create(ctx, NewTask{
		Title: "gym", OwnerID: "u", CreatedBy: "u", WeekID: "2026-W10",
		RepeatTarget: &target,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if task, err = r.IncrementRepeatCount(ctx, task.ID); err != nil {
			t.Fatalf("IncrementRepeatCount failed: %v", err)
		}
	}
	if task.RepeatCompleted != 3 {
		t.Errorf("repeat_completed = %d, want 3", task.RepeatCompleted)
	}
	if task.Status != schema.TaskPending {
		t.Errorf("status changed to %q; repeat counting must not touch status", task.Status)
	}
}

// TestTaskMoveToWeek verifies provenance is recorded on reschedule.
func TestTaskMoveToWeek(t *testing.T) {
	r := NewTaskRepository(newTestStore(t), nil)
	ctx := context.Background()

	task, err := r.Create(ctx, NewTask{Title: "t", OwnerID: "u", CreatedBy: "u", WeekID: "2026-W10"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	moved, err := r.MoveToWeek(ctx, task.ID, "2026-W11")
	if err != nil {
		t.Fatalf("MoveToWeek failed: %v", err)
	}
	if moved.WeekID != "2026-W11" || moved.RolledFromWeekID != "2026-W10" {
		t.Errorf("move = (%q from %q), want 2026-W11 from 2026-W10",
			moved.WeekID, moved.RolledFromWeekID)
	}
}

// TestTaskWatchWeek verifies the reactive stream emits an initial snapshot
// and a fresh one after a write.
func TestTaskWatchWeek(t *testing.T) {
	r := NewTaskRepository(newTestStore(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := r.WatchWeek(ctx, "user-a", "2026-W10")
	if err != nil {
		t.Fatalf("WatchWeek failed: %v", err)
	}

	select {
	case snap := <-stream:
		if len(snap) != 0 {
			t.Errorf("initial snapshot has %d tasks, want 0", len(snap))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	if _, err := r.Create(ctx, NewTask{Title: "t", OwnerID: "user-a", CreatedBy: "user-a", WeekID: "2026-W10"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	select {
	case snap := <-stream:
		if len(snap) != 1 {
			t.Errorf("snapshot after write has %d tasks, want 1", len(snap))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot after write")
	}
}

// TestWeekGetOrCreateCurrent verifies boundary dates and idempotency for
// the week containing 2026-01-01.
func TestWeekGetOrCreateCurrent(t *testing.T) {
	r := NewWeekRepository(newTestStore(t), nil, time.UTC)
	r.now = fixedClock("2026-01-01T12:00:00Z")
	ctx := context.Background()

	if id := r.CurrentWeekID(); id != "2026-W01" {
		t.Fatalf("CurrentWeekID() = %q, want 2026-W01", id)
	}

	w, err := r.GetOrCreateCurrent(ctx, "user-a")
	if err != nil {
		t.Fatalf("GetOrCreateCurrent failed: %v", err)
	}
	if got := w.StartDate.Format("2006-01-02"); got != "2025-12-29" {
		t.Errorf("start date = %s, want 2025-12-29", got)
	}
	if got := w.EndDate.Format("2006-01-02"); got != "2026-01-04" {
		t.Errorf("end date = %s, want 2026-01-04", got)
	}

	again, err := r.GetOrCreateCurrent(ctx, "user-a")
	if err != nil {
		t.Fatalf("second GetOrCreateCurrent failed: %v", err)
	}
	if again.ID != w.ID {
		t.Errorf("second call created a different week %q", again.ID)
	}
	weeks, err := r.List(ctx, "user-a")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(weeks) != 1 {
		t.Errorf("have %d week rows, want 1", len(weeks))
	}
}

// TestWeekUpdateReview verifies rating bounds and the missing-week contract.
func TestWeekUpdateReview(t *testing.T) {
	r := NewWeekRepository(newTestStore(t), nil, time.UTC)
	r.now = fixedClock("2026-03-08T20:00:00Z")
	ctx := context.Background()

	w, err := r.GetOrCreateCurrent(ctx, "user-a")
	if err != nil {
		t.Fatalf("GetOrCreateCurrent failed: %v", err)
	}

	if _, err := r.UpdateReview(ctx, w.ID, "user-a", 0, "x"); err == nil {
		t.Error("expected error for rating 0")
	}
	if _, err := r.UpdateReview(ctx, w.ID, "user-a", 6, "x"); err == nil {
		t.Error("expected error for rating 6")
	}

	reviewed, err := r.UpdateReview(ctx, w.ID, "user-a", 4, "solid week")
	if err != nil {
		t.Fatalf("UpdateReview failed: %v", err)
	}
	if reviewed.OverallRating == nil || *reviewed.OverallRating != 4 {
		t.Errorf("rating = %v, want 4", reviewed.OverallRating)
	}
	if reviewed.ReviewedAt == nil {
		t.Error("reviewed_at not stamped")
	}

	missing, err := r.UpdateReview(ctx, "2030-W01", "user-a", 3, "")
	if err != nil {
		t.Fatalf("UpdateReview on missing week failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing week, got %+v", missing)
	}
}

// TestWeekMarkPlanningCompleted verifies the planning timestamp is stamped.
func TestWeekMarkPlanningCompleted(t *testing.T) {
	r := NewWeekRepository(newTestStore(t), nil, time.UTC)
	ctx := context.Background()

	w, err := r.GetOrCreateCurrent(ctx, "user-a")
	if err != nil {
		t.Fatalf("GetOrCreateCurrent failed: %v", err)
	}
	planned, err := r.MarkPlanningCompleted(ctx, w.ID, "user-a")
	if err != nil {
		t.Fatalf("MarkPlanningCompleted failed: %v", err)
	}
	if planned.PlanningCompletedAt == nil {
		t.Error("planning_completed_at not stamped")
	}
}

func testGoalType() schema.GoalType {
	return schema.WeeklyHabit{TargetPerWeek: 3}
}

// TestGoalCreate_ActiveLimit verifies the cap on concurrent ACTIVE goals.
func TestGoalCreate_ActiveLimit(t *testing.T) {
	r := NewGoalRepository(newTestStore(t), nil)
	ctx := context.Background()

	for i := 0; i < MaxActiveGoals; i++ {
		_, err := r.Create(ctx, NewGoal{
			Name:        "goal",
			Type:        testGoalType(),
			StartWeekID: "2026-W10",
			OwnerID:     "user-a",
		})
		if err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	if _, err := r.Create(ctx, NewGoal{
		Name: "one too many", Type: testGoalType(),
		StartWeekID: "2026-W10", OwnerID: "user-a",
	}); err == nil {
		t.Error("expected error past the active goal limit")
	}

	// Completing one frees a slot.
	goals, err := r.ListActive(ctx, "user-a")
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if _, err := r.UpdateStatus(ctx, goals[0].ID, schema.GoalCompleted); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if _, err := r.Create(ctx, NewGoal{
		Name: "replacement", Type: testGoalType(),
		StartWeekID: "2026-W10", OwnerID: "user-a",
	}); err != nil {
		t.Errorf("Create after freeing a slot failed: %v", err)
	}
}

// TestGoalIncrement_HabitStaysActive verifies weekly goals never
// auto-complete no matter how far past the target the count runs.
func TestGoalIncrement_HabitStaysActive(t *testing.T) {
	r := NewGoalRepository(newTestStore(t), nil)
	ctx := context.Background()

	g, err := r.Create(ctx, NewGoal{
		Name: "run", Type: schema.WeeklyHabit{TargetPerWeek: 3},
		StartWeekID: "2026-W10", OwnerID: "user-a",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if g, err = r.IncrementProgress(ctx, g.ID, 1); err != nil {
			t.Fatalf("IncrementProgress failed: %v", err)
		}
	}
	if g.CurrentProgress != 5 {
		t.Errorf("progress = %d, want 5", g.CurrentProgress)
	}
	if g.Status != schema.GoalActive {
		t.Errorf("status = %q; habit goals must never auto-complete", g.Status)
	}
}

// TestGoalIncrement_TargetAmountCompletes verifies reaching the cumulative
// total flips the goal to COMPLETED.
func TestGoalIncrement_TargetAmountCompletes(t *testing.T) {
	r := NewGoalRepository(newTestStore(t), nil)
	ctx := context.Background()

	g, err := r.Create(ctx, NewGoal{
		Name: "read pages", Type: schema.TargetAmount{TargetTotal: 100},
		StartWeekID: "2026-W10", OwnerID: "user-a",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if g, err = r.IncrementProgress(ctx, g.ID, 90); err != nil {
		t.Fatalf("IncrementProgress failed: %v", err)
	}
	if g.Status != schema.GoalActive {
		t.Fatalf("status = %q at 90/100, want ACTIVE", g.Status)
	}
	if g, err = r.IncrementProgress(ctx, g.ID, 10); err != nil {
		t.Fatalf("IncrementProgress failed: %v", err)
	}
	if g.Status != schema.GoalCompleted {
		t.Errorf("status = %q at 100/100, want COMPLETED", g.Status)
	}

	if _, err := r.IncrementProgress(ctx, g.ID, -1); err == nil {
		t.Error("expected error for non-positive increment")
	}
}

// TestGoalProcessWeeklyResets verifies the rollover snapshots history,
// zeroes weekly progress, and is idempotent.
func TestGoalProcessWeeklyResets(t *testing.T) {
	r := NewGoalRepository(newTestStore(t), nil)
	ctx := context.Background()

	habit, err := r.Create(ctx, NewGoal{
		Name: "run", Type: schema.WeeklyHabit{TargetPerWeek: 3},
		StartWeekID: "2026-W10", OwnerID: "user-a",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	amount, err := r.Create(ctx, NewGoal{
		Name: "read pages", Type: schema.TargetAmount{TargetTotal: 100},
		StartWeekID: "2026-W10", OwnerID: "user-a",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := r.IncrementProgress(ctx, habit.ID, 2); err != nil {
		t.Fatalf("IncrementProgress failed: %v", err)
	}
	if _, err := r.IncrementProgress(ctx, amount.ID, 40); err != nil {
		t.Fatalf("IncrementProgress failed: %v", err)
	}

	rolled, err := r.ProcessWeeklyResets(ctx, "2026-W11")
	if err != nil {
		t.Fatalf("ProcessWeeklyResets failed: %v", err)
	}
	if rolled != 2 {
		t.Errorf("rolled %d goals, want 2", rolled)
	}

	habit, _ = r.Get(ctx, habit.ID)
	if habit.CurrentProgress != 0 || habit.CurrentWeekID != "2026-W11" {
		t.Errorf("habit after roll = (%d, %s), want (0, 2026-W11)",
			habit.CurrentProgress, habit.CurrentWeekID)
	}
	amount, _ = r.Get(ctx, amount.ID)
	if amount.CurrentProgress != 40 {
		t.Errorf("cumulative progress = %d after roll, want 40 preserved", amount.CurrentProgress)
	}
	if amount.CurrentWeekID != "2026-W11" {
		t.Errorf("cumulative goal week = %s, want 2026-W11", amount.CurrentWeekID)
	}

	history, err := r.History(ctx, habit.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d snapshots, want 1", len(history))
	}
	if history[0].WeekID != "2026-W10" || history[0].ProgressValue != 2 {
		t.Errorf("snapshot = (%s, %d), want (2026-W10, 2)",
			history[0].WeekID, history[0].ProgressValue)
	}

	// Re-running for the same week must be a no-op.
	rolled, err = r.ProcessWeeklyResets(ctx, "2026-W11")
	if err != nil {
		t.Fatalf("second ProcessWeeklyResets failed: %v", err)
	}
	if rolled != 0 {
		t.Errorf("second sweep rolled %d goals, want 0", rolled)
	}
	history, _ = r.History(ctx, habit.ID)
	if len(history) != 1 {
		t.Errorf("history grew to %d snapshots on re-run, want 1", len(history))
	}
}

// TestGoalCheckExpirations verifies duration-bounded goals close only once
// the current week is past the final week, completing when the target was
// met and expiring otherwise.
func TestGoalCheckExpirations(t *testing.T) {
	r := NewGoalRepository(newTestStore(t), nil)
	ctx := context.Background()

	dur := 2
	unmet, err := r.Create(ctx, NewGoal{
		Name: "sprint", Type: schema.RecurringTask{},
		DurationWeeks: &dur, StartWeekID: "2026-W10", OwnerID: "user-a",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	met, err := r.Create(ctx, NewGoal{
		Name: "run", Type: schema.WeeklyHabit{TargetPerWeek: 3},
		DurationWeeks: &dur, StartWeekID: "2026-W10", OwnerID: "user-a",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := r.IncrementProgress(ctx, met.ID, 3); err != nil {
		t.Fatalf("IncrementProgress failed: %v", err)
	}

	// Final week is 2026-W11; still inside the window.
	closed, err := r.CheckGoalExpirations(ctx, "2026-W11")
	if err != nil {
		t.Fatalf("CheckGoalExpirations failed: %v", err)
	}
	if closed != 0 {
		t.Errorf("closed %d goals inside the window, want 0", closed)
	}

	closed, err = r.CheckGoalExpirations(ctx, "2026-W12")
	if err != nil {
		t.Fatalf("CheckGoalExpirations failed: %v", err)
	}
	if closed != 2 {
		t.Errorf("closed %d goals past the window, want 2", closed)
	}
	unmet, _ = r.Get(ctx, unmet.ID)
	if unmet.Status != schema.GoalExpired {
		t.Errorf("unmet goal status = %q, want EXPIRED", unmet.Status)
	}
	met, _ = r.Get(ctx, met.ID)
	if met.Status != schema.GoalCompleted {
		t.Errorf("met goal status = %q, want COMPLETED", met.Status)
	}
}

// TestGoalDelete_UnlinksTasks verifies deleting a goal clears task links
// without deleting the tasks themselves.
func TestGoalDelete_UnlinksTasks(t *testing.T) {
	s := newTestStore(t)
	goals := NewGoalRepository(s, nil)
	tasks := NewTaskRepository(s, nil)
	ctx := context.Background()

	g, err := goals.Create(ctx, NewGoal{
		Name: "run", Type: testGoalType(),
		StartWeekID: "2026-W10", OwnerID: "user-a",
	})
	if err != nil {
		t.Fatalf("Create goal failed: %v", err)
	}
	task, err := tasks.Create(ctx, NewTask{
		Title: "morning run", OwnerID: "user-a", CreatedBy: "user-a",
		WeekID: "2026-W10", LinkedGoalID: g.ID,
	})
	if err != nil {
		t.Fatalf("Create task failed: %v", err)
	}

	ok, err := goals.Delete(ctx, g.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !ok {
		t.Fatal("Delete reported goal missing")
	}

	survivor, err := tasks.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get task failed: %v", err)
	}
	if survivor == nil {
		t.Fatal("task was deleted along with the goal")
	}
	if survivor.LinkedGoalID != "" {
		t.Errorf("linked_goal_id = %q, want cleared", survivor.LinkedGoalID)
	}
}
