// Command tandem is the CLI for the tandem weekly planner: an offline-first
// task and goal tracker with an accountability partner.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tandemhq/tandem/internal/config"
	"github.com/tandemhq/tandem/internal/invite"
	"github.com/tandemhq/tandem/internal/remote"
	"github.com/tandemhq/tandem/internal/repo"
	"github.com/tandemhq/tandem/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tandem",
	Short: "Offline-first weekly planning with an accountability partner",
	Long: `tandem tracks weekly tasks and multi-week goals in a local SQLite
database. Everything works offline; pairing with a partner adds a live
one-way mirror of their tasks and goals.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.tandem/config.yaml)")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// app bundles everything a command needs against one open store.
type app struct {
	cfg   *config.Config
	viper *viper.Viper
	store *store.Store
	tasks *repo.TaskRepository
	weeks *repo.WeekRepository
	goals *repo.GoalRepository
	flow  *invite.Flow
}

func openApp() *app {
	cfg, v, err := config.Load(configPath)
	if err != nil {
		fatal("loading config: %v", err)
	}
	if cfg.UserID == "" {
		fatal("user_id is not configured; set it in the config file or TANDEM_USER_ID")
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		fatal("opening database: %v", err)
	}
	if err := s.InitSchema(context.Background()); err != nil {
		s.Close()
		fatal("initializing schema: %v", err)
	}

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, nil, nil)
	return &app{
		cfg:   cfg,
		viper: v,
		store: s,
		tasks: repo.NewTaskRepository(s, nil),
		weeks: repo.NewWeekRepository(s, nil, cfg.Location(nil)),
		goals: repo.NewGoalRepository(s, nil),
		flow:  invite.NewFlow(s, client, nil),
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing database: %v\n", err)
	}
}

// weekOrCurrent resolves the --week flag, defaulting to the current week.
func (a *app) weekOrCurrent(weekID string) string {
	if weekID == "" {
		return a.weeks.CurrentWeekID()
	}
	return weekID
}
