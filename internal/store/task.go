package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tandemhq/tandem/internal/schema"
)

const taskColumns = `id, title, notes, owner_id, owner_type, created_by, week_id, status,
	repeat_target, repeat_completed, linked_goal_id, parent_task_id,
	rolled_from_week_id, review_note, scheduled_date, deadline, priority, labels,
	created_at, updated_at`

// UpsertTask inserts or replaces a task by primary key (last-write-wins,
// whole row). The task must already be valid.
func (s *Store) UpsertTask(ctx context.Context, task *schema.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	labelsJSON, err := json.Marshal(task.Labels)
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}

	query := `
	INSERT INTO task (` + taskColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		notes = excluded.notes,
		owner_id = excluded.owner_id,
		owner_type = excluded.owner_type,
		created_by = excluded.created_by,
		week_id = excluded.week_id,
		status = excluded.status,
		repeat_target = excluded.repeat_target,
		repeat_completed = excluded.repeat_completed,
		linked_goal_id = excluded.linked_goal_id,
		parent_task_id = excluded.parent_task_id,
		rolled_from_week_id = excluded.rolled_from_week_id,
		review_note = excluded.review_note,
		scheduled_date = excluded.scheduled_date,
		deadline = excluded.deadline,
		priority = excluded.priority,
		labels = excluded.labels,
		updated_at = excluded.updated_at
	`

	_, err = s.conn.ExecContext(ctx, query,
		task.ID,
		task.Title,
		nullStr(task.Notes),
		task.OwnerID,
		string(task.OwnerType),
		task.CreatedBy,
		task.WeekID,
		string(task.Status),
		nullInt(task.RepeatTarget),
		task.RepeatCompleted,
		nullStr(task.LinkedGoalID),
		nullStr(task.ParentTaskID),
		nullStr(task.RolledFromWeekID),
		nullStr(task.ReviewNote),
		nullStr(task.ScheduledDate),
		nullStr(task.Deadline),
		task.Priority,
		string(labelsJSON),
		msec(task.CreatedAt),
		msec(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", task.ID, err)
	}

	s.changed(TableTask)
	return nil
}

// GetTask retrieves a single task by id. Returns (nil, nil) when the task
// does not exist so callers can branch without error handling.
func (s *Store) GetTask(ctx context.Context, id string) (*schema.Task, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM task WHERE id = ?`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return task, nil
}

// TaskFilter configures ListTasks.
//
// ViewerID, when set, restricts results to rows the viewer owns or created;
// the underlying store has no row-level security, so visibility is enforced
// here.
type TaskFilter struct {
	ViewerID      string
	WeekID        string
	OwnerType     schema.OwnerType
	LinkedGoalID  string
	ParentTaskID  string
	ScheduledDate string
	// OverdueBefore selects incomplete tasks scheduled strictly before the
	// given ISO date.
	OverdueBefore string
	// Unscheduled selects tasks with no scheduled date.
	Unscheduled bool
}

// ListTasks retrieves tasks matching the filter, ordered by priority then
// creation time.
func (s *Store) ListTasks(ctx context.Context, filter TaskFilter) ([]*schema.Task, error) {
	var conditions []string
	var args []any

	if filter.ViewerID != "" {
		conditions = append(conditions, "(owner_id = ? OR created_by = ?)")
		args = append(args, filter.ViewerID, filter.ViewerID)
	}
	if filter.WeekID != "" {
		conditions = append(conditions, "week_id = ?")
		args = append(args, filter.WeekID)
	}
	if filter.OwnerType != "" {
		conditions = append(conditions, "owner_type = ?")
		args = append(args, string(filter.OwnerType))
	}
	if filter.LinkedGoalID != "" {
		conditions = append(conditions, "linked_goal_id = ?")
		args = append(args, filter.LinkedGoalID)
	}
	if filter.ParentTaskID != "" {
		conditions = append(conditions, "parent_task_id = ?")
		args = append(args, filter.ParentTaskID)
	}
	if filter.ScheduledDate != "" {
		conditions = append(conditions, "scheduled_date = ?")
		args = append(args, filter.ScheduledDate)
	}
	if filter.OverdueBefore != "" {
		conditions = append(conditions,
			"scheduled_date IS NOT NULL AND scheduled_date < ? AND status NOT IN ('COMPLETED', 'SKIPPED', 'DECLINED')")
		args = append(args, filter.OverdueBefore)
	}
	if filter.Unscheduled {
		conditions = append(conditions, "scheduled_date IS NULL")
	}

	query := `SELECT ` + taskColumns + ` FROM task`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY priority ASC, created_at ASC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*schema.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// DeleteTask removes a task and its subtasks. Returns the number of rows
// deleted; zero means the task did not exist.
func (s *Store) DeleteTask(ctx context.Context, id string) (int64, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Subtasks first, then the task itself.
	sub, err := tx.ExecContext(ctx, `DELETE FROM task WHERE parent_task_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete subtasks of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM task WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}

	subN, _ := sub.RowsAffected()
	n, _ := res.RowsAffected()
	if n+subN > 0 {
		s.changed(TableTask)
	}
	return n + subN, nil
}

// DeleteTasksForWeek bulk-deletes a user's tasks for one week and returns
// the count.
func (s *Store) DeleteTasksForWeek(ctx context.Context, weekID, userID string) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM task WHERE week_id = ? AND (owner_id = ? OR created_by = ?)`,
		weekID, userID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks for week %s: %w", weekID, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.changed(TableTask)
	}
	return n, nil
}

// ClearLinkedGoal nulls linked_goal_id on every task referencing the goal.
// Tasks themselves are never deleted as a side effect of goal deletion.
func (s *Store) ClearLinkedGoal(ctx context.Context, goalID string) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE task SET linked_goal_id = NULL WHERE linked_goal_id = ?`, goalID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear linked goal %s: %w", goalID, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.changed(TableTask)
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*schema.Task, error) {
	var (
		task                                  schema.Task
		notes, linkedGoal, parentTask         sql.NullString
		rolledFrom, reviewNote                sql.NullString
		scheduledDate, deadline, labelsJSON   sql.NullString
		repeatTarget                          sql.NullInt64
		ownerType, status                     string
		createdAt, updatedAt                  int64
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&notes,
		&task.OwnerID,
		&ownerType,
		&task.CreatedBy,
		&task.WeekID,
		&status,
		&repeatTarget,
		&task.RepeatCompleted,
		&linkedGoal,
		&parentTask,
		&rolledFrom,
		&reviewNote,
		&scheduledDate,
		&deadline,
		&task.Priority,
		&labelsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Notes = strVal(notes)
	task.OwnerType = schema.OwnerType(ownerType)
	task.Status = schema.TaskStatus(status)
	task.RepeatTarget = intPtr(repeatTarget)
	task.LinkedGoalID = strVal(linkedGoal)
	task.ParentTaskID = strVal(parentTask)
	task.RolledFromWeekID = strVal(rolledFrom)
	task.ReviewNote = strVal(reviewNote)
	task.ScheduledDate = strVal(scheduledDate)
	task.Deadline = strVal(deadline)
	task.CreatedAt = fromMsec(createdAt)
	task.UpdatedAt = fromMsec(updatedAt)

	if labelsJSON.Valid && labelsJSON.String != "" && labelsJSON.String != "null" {
		if err := json.Unmarshal([]byte(labelsJSON.String), &task.Labels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
	}

	return &task, nil
}
