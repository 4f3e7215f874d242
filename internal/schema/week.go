package schema

import (
	"fmt"
	"time"

	"github.com/tandemhq/tandem/internal/week"
)

// Week is a calendar week scoped to one user. The pair (ID, UserID) is the
// logical key; the same calendar week exists once per user.
type Week struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// Review fields are all nil/empty until the user reviews the week.
	OverallRating       *int       `json:"overall_rating,omitempty"`
	ReviewNote          string     `json:"review_note,omitempty"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty"`
	PlanningCompletedAt *time.Time `json:"planning_completed_at,omitempty"`
}

// Validate checks the Week's field invariants: a Monday start, an end date
// exactly six days later, and a rating within 1-5 when present.
func (w *Week) Validate() error {
	if !week.Valid(w.ID) {
		return fmt.Errorf("invalid week id %q", w.ID)
	}
	if w.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if w.StartDate.Weekday() != time.Monday {
		return fmt.Errorf("start_date %s is not a Monday", w.StartDate.Format("2006-01-02"))
	}
	if !w.EndDate.Equal(w.StartDate.AddDate(0, 0, 6)) {
		return fmt.Errorf("end_date must be start_date+6 days (got %s)", w.EndDate.Format("2006-01-02"))
	}
	if w.OverallRating != nil && (*w.OverallRating < 1 || *w.OverallRating > 5) {
		return fmt.Errorf("overall_rating must be between 1 and 5 (got %d)", *w.OverallRating)
	}
	return nil
}
