// Package repo implements the repository layer between UI-facing callers
// and the local store.
//
// Repositories validate input, write through the store, and expose reactive
// query streams: every store write re-triggers the open subscriptions for
// the affected table, and each subscription re-runs its query and emits a
// fresh snapshot.
//
// Mutations on a missing id return (nil, nil) rather than an error so
// callers can branch without exception-driven control flow.
package repo

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tandemhq/tandem/internal/schema"
	"github.com/tandemhq/tandem/internal/store"
	"github.com/tandemhq/tandem/internal/week"
)

const dateLayout = "2006-01-02"

// TaskRepository provides CRUD and filtered reactive queries over tasks.
type TaskRepository struct {
	store  *store.Store
	logger *log.Logger
	now    func() time.Time
}

// NewTaskRepository creates a TaskRepository. A nil logger means a default
// stderr logger.
func NewTaskRepository(s *store.Store, logger *log.Logger) *TaskRepository {
	if logger == nil {
		logger = log.New(os.Stderr, "[tasks] ", log.LstdFlags)
	}
	return &TaskRepository{
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// NewTask carries the caller-supplied fields for task creation. Id and
// timestamps are assigned by the repository.
type NewTask struct {
	Title            string
	Notes            string
	OwnerID          string
	OwnerType        schema.OwnerType
	CreatedBy        string
	WeekID           string
	Status           schema.TaskStatus // defaults to PENDING
	RepeatTarget     *int
	LinkedGoalID     string
	ParentTaskID     string
	RolledFromWeekID string
	ScheduledDate    string
	Deadline         string
	Priority         int
	Labels           []string
}

// Create validates and persists a new task.
func (r *TaskRepository) Create(ctx context.Context, in NewTask) (*schema.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title must not be blank")
	}
	if !week.Valid(in.WeekID) {
		return nil, fmt.Errorf("invalid week id %q", in.WeekID)
	}
	if in.ScheduledDate != "" {
		if err := validDate(in.ScheduledDate); err != nil {
			return nil, err
		}
	}
	if in.Deadline != "" {
		if err := validDate(in.Deadline); err != nil {
			return nil, err
		}
	}

	status := in.Status
	if status == "" {
		status = schema.TaskPending
	}
	ownerType := in.OwnerType
	if ownerType == "" {
		ownerType = schema.OwnerSelf
	}

	now := r.now().UTC()
	task := &schema.Task{
		ID:               uuid.NewString(),
		Title:            in.Title,
		Notes:            in.Notes,
		OwnerID:          in.OwnerID,
		OwnerType:        ownerType,
		CreatedBy:        in.CreatedBy,
		WeekID:           in.WeekID,
		Status:           status,
		RepeatTarget:     in.RepeatTarget,
		RepeatCompleted:  0,
		LinkedGoalID:     in.LinkedGoalID,
		ParentTaskID:     in.ParentTaskID,
		RolledFromWeekID: in.RolledFromWeekID,
		ScheduledDate:    in.ScheduledDate,
		Deadline:         in.Deadline,
		Priority:         in.Priority,
		Labels:           in.Labels,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := r.store.UpsertTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Get retrieves a task by id; (nil, nil) when absent.
func (r *TaskRepository) Get(ctx context.Context, id string) (*schema.Task, error) {
	return r.store.GetTask(ctx, id)
}

// ListForWeek returns the viewer's tasks for one week.
func (r *TaskRepository) ListForWeek(ctx context.Context, viewerID, weekID string) ([]*schema.Task, error) {
	return r.store.ListTasks(ctx, store.TaskFilter{ViewerID: viewerID, WeekID: weekID})
}

// ListByOwnerType returns the viewer's tasks with the given owner type.
func (r *TaskRepository) ListByOwnerType(ctx context.Context, viewerID string, ot schema.OwnerType) ([]*schema.Task, error) {
	return r.store.ListTasks(ctx, store.TaskFilter{ViewerID: viewerID, OwnerType: ot})
}

// ListForWeekAndOwnerType combines the week and owner-type filters.
func (r *TaskRepository) ListForWeekAndOwnerType(ctx context.Context, viewerID, weekID string, ot schema.OwnerType) ([]*schema.Task, error) {
	return r.store.ListTasks(ctx, store.TaskFilter{ViewerID: viewerID, WeekID: weekID, OwnerType: ot})
}

// ListForGoal returns the viewer's tasks linked to one goal.
func (r *TaskRepository) ListForGoal(ctx context.Context, viewerID, goalID string) ([]*schema.Task, error) {
	return r.store.ListTasks(ctx, store.TaskFilter{ViewerID: viewerID, LinkedGoalID: goalID})
}

// ListForDate returns the viewer's tasks scheduled on an ISO date.
func (r *TaskRepository) ListForDate(ctx context.Context, viewerID, date string) ([]*schema.Task, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	return r.store.ListTasks(ctx, store.TaskFilter{ViewerID: viewerID, ScheduledDate: date})
}

// ListOverdue returns the viewer's incomplete tasks scheduled before today.
func (r *TaskRepository) ListOverdue(ctx context.Context, viewerID string) ([]*schema.Task, error) {
	today := r.now().UTC().Format(dateLayout)
	return r.store.ListTasks(ctx, store.TaskFilter{ViewerID: viewerID, OverdueBefore: today})
}

// ListUnscheduled returns the viewer's tasks with no scheduled date.
func (r *TaskRepository) ListUnscheduled(ctx context.Context, viewerID string) ([]*schema.Task, error) {
	return r.store.ListTasks(ctx, store.TaskFilter{ViewerID: viewerID, Unscheduled: true})
}

// Subtasks returns the direct children of a task.
func (r *TaskRepository) Subtasks(ctx context.Context, parentID string) ([]*schema.Task, error) {
	return r.store.ListTasks(ctx, store.TaskFilter{ParentTaskID: parentID})
}

// Update rewrites a task's title, notes and status. Title is re-validated;
// updated_at is refreshed. Returns (nil, nil) when the task is missing.
func (r *TaskRepository) Update(ctx context.Context, id, title, notes string, status schema.TaskStatus) (*schema.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title must not be blank")
	}
	return r.mutate(ctx, id, func(t *schema.Task) error {
		t.Title = title
		t.Notes = notes
		t.Status = status
		return nil
	})
}

// UpdateStatus sets a task's status. Any transition is permitted; policy
// enforcement belongs to higher layers.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status schema.TaskStatus) (*schema.Task, error) {
	return r.mutate(ctx, id, func(t *schema.Task) error {
		t.Status = status
		return nil
	})
}

// IncrementRepeatCount adds one completion to a repeatable task. There is
// no ceiling; completions past the target still count.
func (r *TaskRepository) IncrementRepeatCount(ctx context.Context, id string) (*schema.Task, error) {
	return r.mutate(ctx, id, func(t *schema.Task) error {
		t.RepeatCompleted++
		return nil
	})
}

// UpdateReviewNote sets the week-review note on a task.
func (r *TaskRepository) UpdateReviewNote(ctx context.Context, id, note string) (*schema.Task, error) {
	return r.mutate(ctx, id, func(t *schema.Task) error {
		t.ReviewNote = note
		return nil
	})
}

// UpdateOwner reassigns a task.
func (r *TaskRepository) UpdateOwner(ctx context.Context, id, ownerID string, ot schema.OwnerType) (*schema.Task, error) {
	return r.mutate(ctx, id, func(t *schema.Task) error {
		t.OwnerID = ownerID
		t.OwnerType = ot
		return nil
	})
}

// UpdateSchedule sets or clears ("" clears) the scheduled date.
func (r *TaskRepository) UpdateSchedule(ctx context.Context, id, date string) (*schema.Task, error) {
	if date != "" {
		if err := validDate(date); err != nil {
			return nil, err
		}
	}
	return r.mutate(ctx, id, func(t *schema.Task) error {
		t.ScheduledDate = date
		return nil
	})
}

// UpdateDeadline sets or clears ("" clears) the deadline date.
func (r *TaskRepository) UpdateDeadline(ctx context.Context, id, date string) (*schema.Task, error) {
	if date != "" {
		if err := validDate(date); err != nil {
			return nil, err
		}
	}
	return r.mutate(ctx, id, func(t *schema.Task) error {
		t.Deadline = date
		return nil
	})
}

// UpdatePriority sets the sort priority.
func (r *TaskRepository) UpdatePriority(ctx context.Context, id string, priority int) (*schema.Task, error) {
	return r.mutate(ctx, id, func(t *schema.Task) error {
		t.Priority = priority
		return nil
	})
}

// UpdateLabels replaces the label set.
func (r *TaskRepository) UpdateLabels(ctx context.Context, id string, labels []string) (*schema.Task, error) {
	return r.mutate(ctx, id, func(t *schema.Task) error {
		t.Labels = labels
		return nil
	})
}

// MoveToWeek reschedules a task into another week, recording provenance.
func (r *TaskRepository) MoveToWeek(ctx context.Context, id, weekID string) (*schema.Task, error) {
	if !week.Valid(weekID) {
		return nil, fmt.Errorf("invalid week id %q", weekID)
	}
	return r.mutate(ctx, id, func(t *schema.Task) error {
		if t.WeekID != weekID {
			t.RolledFromWeekID = t.WeekID
			t.WeekID = weekID
		}
		return nil
	})
}

// Delete removes a task and its subtasks. Returns false when the task did
// not exist.
func (r *TaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.store.DeleteTask(ctx, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAllForWeek bulk-deletes a user's tasks for one week and returns the
// count.
func (r *TaskRepository) DeleteAllForWeek(ctx context.Context, weekID, userID string) (int64, error) {
	if !week.Valid(weekID) {
		return 0, fmt.Errorf("invalid week id %q", weekID)
	}
	return r.store.DeleteTasksForWeek(ctx, weekID, userID)
}

// WatchWeek streams snapshots of the viewer's tasks for one week. The first
// snapshot is emitted immediately; a fresh one follows every task-table
// write until ctx is cancelled.
func (r *TaskRepository) WatchWeek(ctx context.Context, viewerID, weekID string) (<-chan []*schema.Task, error) {
	if !week.Valid(weekID) {
		return nil, fmt.Errorf("invalid week id %q", weekID)
	}
	return r.watch(ctx, store.TaskFilter{ViewerID: viewerID, WeekID: weekID})
}

// WatchGoal streams snapshots of the viewer's tasks linked to one goal.
func (r *TaskRepository) WatchGoal(ctx context.Context, viewerID, goalID string) (<-chan []*schema.Task, error) {
	return r.watch(ctx, store.TaskFilter{ViewerID: viewerID, LinkedGoalID: goalID})
}

func (r *TaskRepository) watch(ctx context.Context, filter store.TaskFilter) (<-chan []*schema.Task, error) {
	signals, cancel := r.store.Watch(store.TableTask)

	initial, err := r.store.ListTasks(ctx, filter)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan []*schema.Task, 1)
	go func() {
		defer cancel()
		defer close(out)

		select {
		case out <- initial:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				tasks, err := r.store.ListTasks(ctx, filter)
				if err != nil {
					r.logger.Printf("watch query failed: %v", err)
					continue
				}
				select {
				case out <- tasks:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// mutate loads, edits, touches and persists one task. Missing id yields
// (nil, nil).
func (r *TaskRepository) mutate(ctx context.Context, id string, fn func(*schema.Task) error) (*schema.Task, error) {
	task, err := r.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	if err := fn(task); err != nil {
		return nil, err
	}
	task.Touch(r.now())
	if err := r.store.UpsertTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func validDate(s string) error {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return nil
}
