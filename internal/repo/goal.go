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

// MaxActiveGoals caps how many ACTIVE goals a user may hold at once.
const MaxActiveGoals = 10

// GoalRepository manages goals, their weekly progress cycle, and the
// append-only progress history.
type GoalRepository struct {
	store  *store.Store
	logger *log.Logger
	now    func() time.Time
}

// NewGoalRepository creates a GoalRepository. A nil logger means a default
// stderr logger.
func NewGoalRepository(s *store.Store, logger *log.Logger) *GoalRepository {
	if logger == nil {
		logger = log.New(os.Stderr, "[goals] ", log.LstdFlags)
	}
	return &GoalRepository{
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// NewGoal carries the caller-supplied fields for goal creation.
type NewGoal struct {
	Name          string
	Icon          string
	Type          schema.GoalType
	DurationWeeks *int
	StartWeekID   string
	OwnerID       string
}

// Create validates and persists a new ACTIVE goal. The owner's active-goal
// count is enforced here; progress starts at zero in the start week.
func (r *GoalRepository) Create(ctx context.Context, in NewGoal) (*schema.Goal, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("goal name must not be blank")
	}
	if !week.Valid(in.StartWeekID) {
		return nil, fmt.Errorf("invalid week id %q", in.StartWeekID)
	}

	count, err := r.store.CountActiveGoals(ctx, in.OwnerID)
	if err != nil {
		return nil, err
	}
	if count >= MaxActiveGoals {
		return nil, fmt.Errorf("active goal limit reached (%d)", MaxActiveGoals)
	}

	now := r.now().UTC()
	g := &schema.Goal{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Icon:            in.Icon,
		Type:            in.Type,
		DurationWeeks:   in.DurationWeeks,
		StartWeekID:     in.StartWeekID,
		OwnerID:         in.OwnerID,
		CurrentProgress: 0,
		CurrentWeekID:   in.StartWeekID,
		Status:          schema.GoalActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	if err := r.store.UpsertGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Get retrieves a goal by id; (nil, nil) when absent.
func (r *GoalRepository) Get(ctx context.Context, id string) (*schema.Goal, error) {
	return r.store.GetGoal(ctx, id)
}

// ListForOwner retrieves all of an owner's goals, oldest first.
func (r *GoalRepository) ListForOwner(ctx context.Context, ownerID string) ([]*schema.Goal, error) {
	return r.store.ListGoals(ctx, store.GoalFilter{OwnerID: ownerID})
}

// ListActive retrieves an owner's ACTIVE goals.
func (r *GoalRepository) ListActive(ctx context.Context, ownerID string) ([]*schema.Goal, error) {
	return r.store.ListGoals(ctx, store.GoalFilter{OwnerID: ownerID, Status: schema.GoalActive})
}

// Update rewrites a goal's name and icon. Returns (nil, nil) when missing.
func (r *GoalRepository) Update(ctx context.Context, id, name, icon string) (*schema.Goal, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("goal name must not be blank")
	}
	if len(name) > schema.MaxGoalNameLen {
		return nil, fmt.Errorf("goal name exceeds %d characters", schema.MaxGoalNameLen)
	}
	return r.mutate(ctx, id, func(g *schema.Goal) error {
		g.Name = name
		g.Icon = icon
		return nil
	})
}

// IncrementProgress adds a positive amount to a goal's progress. Only
// TARGET_AMOUNT goals auto-complete when the target is reached; habit and
// recurring goals stay ACTIVE no matter how far past the weekly target the
// count runs. Returns (nil, nil) when the goal is missing.
func (r *GoalRepository) IncrementProgress(ctx context.Context, id string, amount int) (*schema.Goal, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("increment must be positive, got %d", amount)
	}
	return r.mutate(ctx, id, func(g *schema.Goal) error {
		g.CurrentProgress += amount
		if g.Type.Kind() == schema.KindTargetAmount && g.HasMetTarget() {
			g.Status = schema.GoalCompleted
		}
		return nil
	})
}

// UpdateStatus sets a goal's status directly.
func (r *GoalRepository) UpdateStatus(ctx context.Context, id string, status schema.GoalStatus) (*schema.Goal, error) {
	return r.mutate(ctx, id, func(g *schema.Goal) error {
		g.Status = status
		return nil
	})
}

// Delete unlinks the owner's tasks from the goal, then removes the goal.
// The two writes are sequential, not transactional: a crash in between
// leaves tasks unlinked and the goal present, which a retry cleans up.
// Tasks are never deleted. Returns false when the goal did not exist.
func (r *GoalRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := r.store.ClearLinkedGoal(ctx, id); err != nil {
		return false, err
	}
	n, err := r.store.DeleteGoal(ctx, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// History retrieves a goal's progress snapshots, oldest week first.
func (r *GoalRepository) History(ctx context.Context, goalID string) ([]*schema.GoalProgress, error) {
	return r.store.ListGoalProgress(ctx, goalID)
}

// RecordWeeklyProgress appends a snapshot of the goal's current progress
// for its current week. Re-recording the same week is a no-op.
func (r *GoalRepository) RecordWeeklyProgress(ctx context.Context, g *schema.Goal) error {
	return r.store.InsertGoalProgress(ctx, &schema.GoalProgress{
		ID:            uuid.NewString(),
		GoalID:        g.ID,
		WeekID:        g.CurrentWeekID,
		ProgressValue: g.CurrentProgress,
		TargetValue:   g.Type.TargetValue(),
		CreatedAt:     r.now().UTC(),
	})
}

// ResetWeeklyProgress moves one goal into a new week: the outgoing week's
// progress is snapshotted to history first, then the counter resets.
// TARGET_AMOUNT progress is cumulative and survives the rollover; only the
// week pointer advances. Returns (nil, nil) when the goal is missing.
func (r *GoalRepository) ResetWeeklyProgress(ctx context.Context, id, newWeekID string) (*schema.Goal, error) {
	if !week.Valid(newWeekID) {
		return nil, fmt.Errorf("invalid week id %q", newWeekID)
	}

	g, err := r.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}
	if g.CurrentWeekID == newWeekID {
		return g, nil
	}

	if err := r.RecordWeeklyProgress(ctx, g); err != nil {
		return nil, err
	}

	if g.Type.Kind() != schema.KindTargetAmount {
		g.CurrentProgress = 0
	}
	g.CurrentWeekID = newWeekID
	g.Touch(r.now())
	if err := r.store.UpsertGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// ProcessWeeklyResets rolls every ACTIVE goal whose week pointer lags the
// given week. Each goal is handled independently; one failure is logged and
// skipped rather than aborting the sweep. Re-running after a crash is safe
// because snapshots are unique per (goal, week) and already-rolled goals no
// longer match. Returns how many goals were rolled.
func (r *GoalRepository) ProcessWeeklyResets(ctx context.Context, currentWeekID string) (int, error) {
	if !week.Valid(currentWeekID) {
		return 0, fmt.Errorf("invalid week id %q", currentWeekID)
	}

	stale, err := r.store.ListGoals(ctx, store.GoalFilter{
		Status:    schema.GoalActive,
		NotInWeek: currentWeekID,
	})
	if err != nil {
		return 0, err
	}

	var rolled int
	for _, g := range stale {
		if _, err := r.ResetWeeklyProgress(ctx, g.ID, currentWeekID); err != nil {
			r.logger.Printf("weekly reset failed for goal %s: %v", g.ID, err)
			continue
		}
		rolled++
	}
	if rolled > 0 {
		r.logger.Printf("rolled %d goal(s) into %s", rolled, currentWeekID)
	}
	return rolled, nil
}

// CheckGoalExpirations closes ACTIVE duration-bounded goals once the
// current week is past their final week: COMPLETED when the target was met,
// EXPIRED otherwise. Returns how many goals were closed.
func (r *GoalRepository) CheckGoalExpirations(ctx context.Context, currentWeekID string) (int, error) {
	if !week.Valid(currentWeekID) {
		return 0, fmt.Errorf("invalid week id %q", currentWeekID)
	}

	bounded, err := r.store.ListGoals(ctx, store.GoalFilter{
		Status:       schema.GoalActive,
		WithDuration: true,
	})
	if err != nil {
		return 0, err
	}

	var closed int
	for _, g := range bounded {
		end, err := g.EndWeekID()
		if err != nil {
			r.logger.Printf("expiration check failed for goal %s: %v", g.ID, err)
			continue
		}
		if end == "" {
			continue
		}
		cmp, err := week.Compare(currentWeekID, end)
		if err != nil {
			r.logger.Printf("expiration check failed for goal %s: %v", g.ID, err)
			continue
		}
		if cmp <= 0 {
			continue
		}
		if g.HasMetTarget() {
			g.Status = schema.GoalCompleted
		} else {
			g.Status = schema.GoalExpired
		}
		g.Touch(r.now())
		if err := r.store.UpsertGoal(ctx, g); err != nil {
			r.logger.Printf("failed to close goal %s: %v", g.ID, err)
			continue
		}
		closed++
	}
	if closed > 0 {
		r.logger.Printf("closed %d goal(s) as of %s", closed, currentWeekID)
	}
	return closed, nil
}

// Watch streams snapshots of an owner's goal list. The first snapshot is
// emitted immediately; a fresh one follows every goal-table write until ctx
// is cancelled.
func (r *GoalRepository) Watch(ctx context.Context, ownerID string) (<-chan []*schema.Goal, error) {
	signals, cancel := r.store.Watch(store.TableGoal)

	initial, err := r.store.ListGoals(ctx, store.GoalFilter{OwnerID: ownerID})
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan []*schema.Goal, 1)
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
				goals, err := r.store.ListGoals(ctx, store.GoalFilter{OwnerID: ownerID})
				if err != nil {
					r.logger.Printf("watch query failed: %v", err)
					continue
				}
				select {
				case out <- goals:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (r *GoalRepository) mutate(ctx context.Context, id string, fn func(*schema.Goal) error) (*schema.Goal, error) {
	g, err := r.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}
	if err := fn(g); err != nil {
		return nil, err
	}
	g.Touch(r.now())
	if err := r.store.UpsertGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}
