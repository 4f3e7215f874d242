// Package daemon runs the background maintenance loop.
//
// The daemon:
// 1. Ensures the current week record exists as the calendar advances
// 2. Rolls goals into the new week and checks expirations
// 3. Keeps the partner task subscription matched to the pairing state
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tandemhq/tandem/internal/repo"
	psync "github.com/tandemhq/tandem/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// UserID is the local user whose data is maintained.
	UserID string

	// SweepInterval is how often maintenance runs.
	SweepInterval time.Duration

	// SyncEnabled gates the partner task subscription.
	SyncEnabled bool

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SweepInterval: time.Minute,
		SyncEnabled:   true,
		Logger:        log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// PartnerSource answers who the user's current partner is, from local data.
type PartnerSource interface {
	PartnerID(ctx context.Context, userID string) (string, error)
}

// Daemon drives periodic maintenance and owns the sync engine lifecycle.
type Daemon struct {
	config   *Config
	weeks    *repo.WeekRepository
	goals    *repo.GoalRepository
	partners PartnerSource
	engine   *psync.Engine

	syncedPartner string
}

// New creates a Daemon. Partners and engine may be nil, which disables the
// subscription half of the loop.
func New(config *Config, weeks *repo.WeekRepository, goals *repo.GoalRepository, partners PartnerSource, engine *psync.Engine) (*Daemon, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.UserID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}
	if weeks == nil || goals == nil {
		return nil, fmt.Errorf("week and goal repositories are required")
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	return &Daemon{
		config:   config,
		weeks:    weeks,
		goals:    goals,
		partners: partners,
		engine:   engine,
	}, nil
}

// Start runs the maintenance loop until ctx is cancelled. The first sweep
// happens immediately so a freshly started daemon catches up on missed
// weeks before the first tick.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	d.RunSweep(ctx)
	d.ReconcileSync(ctx)

	ticker := time.NewTicker(d.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.config.Logger.Println("Shutdown signal received")
			if d.engine != nil {
				d.engine.Stop()
			}
			return nil
		case <-ticker.C:
			d.RunSweep(ctx)
			d.ReconcileSync(ctx)
		}
	}
}

// RunSweep performs one maintenance pass: ensure the current week record,
// roll stale goals forward, expire finished ones. Each step failure is
// logged without aborting the rest.
func (d *Daemon) RunSweep(ctx context.Context) {
	weekID := d.weeks.CurrentWeekID()

	if _, err := d.weeks.GetOrCreateCurrent(ctx, d.config.UserID); err != nil {
		d.config.Logger.Printf("WARNING: failed to ensure week %s: %v", weekID, err)
	}
	if _, err := d.goals.ProcessWeeklyResets(ctx, weekID); err != nil {
		d.config.Logger.Printf("WARNING: weekly reset sweep failed: %v", err)
	}
	if _, err := d.goals.CheckGoalExpirations(ctx, weekID); err != nil {
		d.config.Logger.Printf("WARNING: expiration sweep failed: %v", err)
	}
}

// ReconcileSync aligns the subscription with the current pairing state:
// subscribe when a partner appears, resubscribe when the partner changes or
// the connection dropped, unsubscribe when the partnership ends.
func (d *Daemon) ReconcileSync(ctx context.Context) {
	if !d.config.SyncEnabled || d.engine == nil || d.partners == nil {
		return
	}

	partnerID, err := d.partners.PartnerID(ctx, d.config.UserID)
	if err != nil {
		d.config.Logger.Printf("WARNING: partner lookup failed: %v", err)
		return
	}

	switch {
	case partnerID == "" && d.syncedPartner != "":
		d.engine.Stop()
		d.syncedPartner = ""
		d.config.Logger.Println("partnership ended, subscription stopped")
	case partnerID != "" && partnerID != d.syncedPartner:
		// Start replaces any prior subscription.
		d.engine.Start(partnerID)
		d.syncedPartner = partnerID
	case partnerID != "" && d.engine.State() == psync.StateStopped:
		// Dropped connection; try again.
		d.engine.Start(partnerID)
	}
}
