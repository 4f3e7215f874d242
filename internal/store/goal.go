package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tandemhq/tandem/internal/schema"
)

const goalColumns = `id, name, icon, kind, target, duration_weeks, start_week_id,
	owner_id, current_progress, current_week_id, status, created_at, updated_at`

// UpsertGoal inserts or replaces a goal by primary key.
func (s *Store) UpsertGoal(ctx context.Context, g *schema.Goal) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid goal: %w", err)
	}

	query := `
	INSERT INTO goal (` + goalColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		icon = excluded.icon,
		kind = excluded.kind,
		target = excluded.target,
		duration_weeks = excluded.duration_weeks,
		start_week_id = excluded.start_week_id,
		current_progress = excluded.current_progress,
		current_week_id = excluded.current_week_id,
		status = excluded.status,
		updated_at = excluded.updated_at
	`

	_, err := s.conn.ExecContext(ctx, query,
		g.ID,
		g.Name,
		nullStr(g.Icon),
		string(g.Type.Kind()),
		g.Type.TargetValue(),
		nullInt(g.DurationWeeks),
		g.StartWeekID,
		g.OwnerID,
		g.CurrentProgress,
		g.CurrentWeekID,
		string(g.Status),
		msec(g.CreatedAt),
		msec(g.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert goal %s: %w", g.ID, err)
	}

	s.changed(TableGoal)
	return nil
}

// GetGoal retrieves a single goal by id. Returns (nil, nil) when absent.
func (s *Store) GetGoal(ctx context.Context, id string) (*schema.Goal, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goal WHERE id = ?`, id)

	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal %s: %w", id, err)
	}
	return g, nil
}

// GoalFilter configures ListGoals.
type GoalFilter struct {
	OwnerID string
	Status  schema.GoalStatus
	// NotInWeek selects goals whose current_week_id differs from the given
	// week; used by the weekly reset sweep.
	NotInWeek string
	// WithDuration selects only goals that have a bounded lifetime.
	WithDuration bool
}

// ListGoals retrieves goals matching the filter, oldest first.
func (s *Store) ListGoals(ctx context.Context, filter GoalFilter) ([]*schema.Goal, error) {
	var conditions []string
	var args []any

	if filter.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.NotInWeek != "" {
		conditions = append(conditions, "current_week_id != ?")
		args = append(args, filter.NotInWeek)
	}
	if filter.WithDuration {
		conditions = append(conditions, "duration_weeks IS NOT NULL")
	}

	query := `SELECT ` + goalColumns + ` FROM goal`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*schema.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return goals, nil
}

// CountActiveGoals returns how many ACTIVE goals an owner has.
func (s *Store) CountActiveGoals(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM goal WHERE owner_id = ? AND status = 'ACTIVE'`,
		ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active goals: %w", err)
	}
	return count, nil
}

// DeleteGoal removes a goal row. Returns the number of rows deleted.
// Callers are responsible for clearing task links first; see
// ClearLinkedGoal.
func (s *Store) DeleteGoal(ctx context.Context, id string) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM goal WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete goal %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.changed(TableGoal)
	}
	return n, nil
}

// InsertGoalProgress appends a progress snapshot. The (goal_id, week_id)
// pair is unique; re-inserting the same snapshot is a no-op, which keeps the
// weekly reset sweep safe to re-run after a crash.
func (s *Store) InsertGoalProgress(ctx context.Context, p *schema.GoalProgress) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO goal_progress (id, goal_id, week_id, progress_value, target_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(goal_id, week_id) DO NOTHING`,
		p.ID, p.GoalID, p.WeekID, p.ProgressValue, p.TargetValue, msec(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert goal progress for %s: %w", p.GoalID, err)
	}

	s.changed(TableGoalProgress)
	return nil
}

// ListGoalProgress retrieves a goal's history, oldest week first.
func (s *Store) ListGoalProgress(ctx context.Context, goalID string) ([]*schema.GoalProgress, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, goal_id, week_id, progress_value, target_value, created_at
		FROM goal_progress WHERE goal_id = ? ORDER BY week_id ASC`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goal progress: %w", err)
	}
	defer rows.Close()

	var history []*schema.GoalProgress
	for rows.Next() {
		var (
			p         schema.GoalProgress
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &p.GoalID, &p.WeekID,
			&p.ProgressValue, &p.TargetValue, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal progress: %w", err)
		}
		p.CreatedAt = fromMsec(createdAt)
		history = append(history, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goal progress: %w", err)
	}

	return history, nil
}

func scanGoal(row scanner) (*schema.Goal, error) {
	var (
		g                    schema.Goal
		icon                 sql.NullString
		kind                 string
		target               int
		duration             sql.NullInt64
		status               string
		createdAt, updatedAt int64
	)

	err := row.Scan(
		&g.ID,
		&g.Name,
		&icon,
		&kind,
		&target,
		&duration,
		&g.StartWeekID,
		&g.OwnerID,
		&g.CurrentProgress,
		&g.CurrentWeekID,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.Icon = strVal(icon)
	g.DurationWeeks = intPtr(duration)
	g.Status = schema.GoalStatus(status)
	g.CreatedAt = fromMsec(createdAt)
	g.UpdatedAt = fromMsec(updatedAt)

	if g.Type, err = schema.GoalTypeFrom(schema.GoalKind(kind), target); err != nil {
		return nil, fmt.Errorf("goal %s: %w", g.ID, err)
	}

	return &g, nil
}
