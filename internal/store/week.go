package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tandemhq/tandem/internal/schema"
)

// UpsertWeek inserts or replaces a week row keyed by (id, user_id).
// The week must already be valid.
func (s *Store) UpsertWeek(ctx context.Context, w *schema.Week) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("invalid week: %w", err)
	}

	query := `
	INSERT INTO week (id, user_id, start_date, end_date,
		overall_rating, review_note, reviewed_at, planning_completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id, user_id) DO UPDATE SET
		start_date = excluded.start_date,
		end_date = excluded.end_date,
		overall_rating = excluded.overall_rating,
		review_note = excluded.review_note,
		reviewed_at = excluded.reviewed_at,
		planning_completed_at = excluded.planning_completed_at
	`

	_, err := s.conn.ExecContext(ctx, query,
		w.ID,
		w.UserID,
		dateStr(w.StartDate),
		dateStr(w.EndDate),
		nullInt(w.OverallRating),
		nullStr(w.ReviewNote),
		nullMsec(w.ReviewedAt),
		nullMsec(w.PlanningCompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert week %s: %w", w.ID, err)
	}

	s.changed(TableWeek)
	return nil
}

// GetWeek retrieves one user's week by id. Returns (nil, nil) when absent.
func (s *Store) GetWeek(ctx context.Context, weekID, userID string) (*schema.Week, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, user_id, start_date, end_date,
		       overall_rating, review_note, reviewed_at, planning_completed_at
		FROM week WHERE id = ? AND user_id = ?`, weekID, userID)

	var (
		w                    schema.Week
		startDate, endDate   string
		rating               sql.NullInt64
		reviewNote           sql.NullString
		reviewedAt, planDone sql.NullInt64
	)
	err := row.Scan(&w.ID, &w.UserID, &startDate, &endDate,
		&rating, &reviewNote, &reviewedAt, &planDone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get week %s: %w", weekID, err)
	}

	if w.StartDate, err = parseDate(startDate); err != nil {
		return nil, err
	}
	if w.EndDate, err = parseDate(endDate); err != nil {
		return nil, err
	}
	w.OverallRating = intPtr(rating)
	w.ReviewNote = strVal(reviewNote)
	w.ReviewedAt = msecPtr(reviewedAt)
	w.PlanningCompletedAt = msecPtr(planDone)

	return &w, nil
}

// ListWeeks retrieves all of a user's weeks, newest first.
func (s *Store) ListWeeks(ctx context.Context, userID string) ([]*schema.Week, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, user_id, start_date, end_date,
		       overall_rating, review_note, reviewed_at, planning_completed_at
		FROM week WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list weeks: %w", err)
	}
	defer rows.Close()

	var weeks []*schema.Week
	for rows.Next() {
		var (
			w                    schema.Week
			startDate, endDate   string
			rating               sql.NullInt64
			reviewNote           sql.NullString
			reviewedAt, planDone sql.NullInt64
		)
		if err := rows.Scan(&w.ID, &w.UserID, &startDate, &endDate,
			&rating, &reviewNote, &reviewedAt, &planDone); err != nil {
			return nil, fmt.Errorf("failed to scan week: %w", err)
		}
		if w.StartDate, err = parseDate(startDate); err != nil {
			return nil, err
		}
		if w.EndDate, err = parseDate(endDate); err != nil {
			return nil, err
		}
		w.OverallRating = intPtr(rating)
		w.ReviewNote = strVal(reviewNote)
		w.ReviewedAt = msecPtr(reviewedAt)
		w.PlanningCompletedAt = msecPtr(planDone)
		weeks = append(weeks, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weeks: %w", err)
	}

	return weeks, nil
}

// DeleteWeek removes one user's week row. Returns the number of rows
// deleted.
func (s *Store) DeleteWeek(ctx context.Context, weekID, userID string) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM week WHERE id = ? AND user_id = ?`, weekID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete week %s: %w", weekID, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.changed(TableWeek)
	}
	return n, nil
}
