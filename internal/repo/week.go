package repo

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tandemhq/tandem/internal/schema"
	"github.com/tandemhq/tandem/internal/store"
	"github.com/tandemhq/tandem/internal/week"
)

// WeekRepository manages per-user week records and the calendar position.
type WeekRepository struct {
	store  *store.Store
	logger *log.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewWeekRepository creates a WeekRepository. The location determines which
// calendar week "now" falls in; nil means the system local zone. A nil
// logger means a default stderr logger.
func NewWeekRepository(s *store.Store, logger *log.Logger, loc *time.Location) *WeekRepository {
	if logger == nil {
		logger = log.New(os.Stderr, "[weeks] ", log.LstdFlags)
	}
	if loc == nil {
		loc = time.Local
	}
	return &WeekRepository{
		store:  s,
		logger: logger,
		loc:    loc,
		now:    time.Now,
	}
}

// CurrentWeekID returns the week id containing the current instant in the
// repository's location.
func (r *WeekRepository) CurrentWeekID() string {
	return week.CurrentID(r.now(), r.loc)
}

// Get retrieves one user's week record; (nil, nil) when absent.
func (r *WeekRepository) Get(ctx context.Context, weekID, userID string) (*schema.Week, error) {
	return r.store.GetWeek(ctx, weekID, userID)
}

// List retrieves all of a user's week records, newest first.
func (r *WeekRepository) List(ctx context.Context, userID string) ([]*schema.Week, error) {
	return r.store.ListWeeks(ctx, userID)
}

// GetOrCreateCurrent returns the user's record for the current calendar
// week, creating an empty one with the correct boundary dates if missing.
func (r *WeekRepository) GetOrCreateCurrent(ctx context.Context, userID string) (*schema.Week, error) {
	id := r.CurrentWeekID()

	w, err := r.store.GetWeek(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if w != nil {
		return w, nil
	}

	start, end, err := week.Boundaries(id)
	if err != nil {
		return nil, err
	}
	w = &schema.Week{
		ID:        id,
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
	}
	if err := r.store.UpsertWeek(ctx, w); err != nil {
		return nil, err
	}
	r.logger.Printf("created week %s for %s", id, userID)
	return w, nil
}

// Save validates and persists a week record as-is.
func (r *WeekRepository) Save(ctx context.Context, w *schema.Week) error {
	if err := w.Validate(); err != nil {
		return err
	}
	return r.store.UpsertWeek(ctx, w)
}

// UpdateReview records the end-of-week review. Rating must be 1 through 5;
// the review timestamp is stamped with the current time. Returns (nil, nil)
// when the week record is missing.
func (r *WeekRepository) UpdateReview(ctx context.Context, weekID, userID string, rating int, note string) (*schema.Week, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	return r.mutate(ctx, weekID, userID, func(w *schema.Week) {
		now := r.now().UTC()
		w.OverallRating = &rating
		w.ReviewNote = note
		w.ReviewedAt = &now
	})
}

// MarkPlanningCompleted stamps the planning-done timestamp. Re-marking an
// already planned week refreshes the timestamp. Returns (nil, nil) when the
// week record is missing.
func (r *WeekRepository) MarkPlanningCompleted(ctx context.Context, weekID, userID string) (*schema.Week, error) {
	return r.mutate(ctx, weekID, userID, func(w *schema.Week) {
		now := r.now().UTC()
		w.PlanningCompletedAt = &now
	})
}

// Delete removes one user's week record. Returns false when it did not
// exist. Tasks for the week are untouched; use TaskRepository.DeleteAllForWeek
// for those.
func (r *WeekRepository) Delete(ctx context.Context, weekID, userID string) (bool, error) {
	n, err := r.store.DeleteWeek(ctx, weekID, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Watch streams snapshots of one user's week list. The first snapshot is
// emitted immediately; a fresh one follows every week-table write until ctx
// is cancelled.
func (r *WeekRepository) Watch(ctx context.Context, userID string) (<-chan []*schema.Week, error) {
	signals, cancel := r.store.Watch(store.TableWeek)

	initial, err := r.store.ListWeeks(ctx, userID)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan []*schema.Week, 1)
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
				weeks, err := r.store.ListWeeks(ctx, userID)
				if err != nil {
					r.logger.Printf("watch query failed: %v", err)
					continue
				}
				select {
				case out <- weeks:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (r *WeekRepository) mutate(ctx context.Context, weekID, userID string, fn func(*schema.Week)) (*schema.Week, error) {
	w, err := r.store.GetWeek(ctx, weekID, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, nil
	}
	fn(w)
	if err := r.store.UpsertWeek(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}
