package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tandemhq/tandem/internal/config"
	"github.com/tandemhq/tandem/internal/daemon"
	psync "github.com/tandemhq/tandem/internal/sync"
	"gopkg.in/natefinch/lumberjack.v2"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background maintenance daemon",
	Long: `Run the daemon that keeps local data current: it creates week records
as the calendar advances, rolls goals into the new week, expires finished
goals, and mirrors the partner's tasks over the realtime channel.

Stops cleanly on SIGINT or SIGTERM. Config changes to the sweep interval
or sync settings apply on the next restart; the config file is watched and
changes are logged.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		logger := daemonLogger(a.cfg)

		var engine *psync.Engine
		if a.cfg.Sync.Enabled && a.cfg.Sync.RealtimeURL != "" {
			dialer := &psync.WebsocketDialer{
				BaseURL: a.cfg.Sync.RealtimeURL,
				Token:   a.cfg.Remote.Token,
			}
			engine = psync.New(a.store, dialer, logger)
		}

		cfg := &daemon.Config{
			UserID:        a.cfg.UserID,
			SweepInterval: a.cfg.Daemon.SweepInterval,
			SyncEnabled:   a.cfg.Sync.Enabled,
			Logger:        logger,
		}
		d, err := daemon.New(cfg, a.weeks, a.goals, a.flow, engine)
		if err != nil {
			fatal("starting daemon: %v", err)
		}

		config.Watch(a.viper, logger, func(fresh *config.Config) {
			logger.Printf("config changed; restart to apply interval or sync settings")
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := d.Start(ctx); err != nil {
			fatal("daemon: %v", err)
		}
	},
}

// daemonLogger logs to stderr, and also to a rotated file when one is
// configured.
func daemonLogger(cfg *config.Config) *log.Logger {
	var out io.Writer = os.Stderr
	if cfg.Daemon.LogFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.Daemon.LogFile,
			MaxSize:    cfg.Daemon.LogMaxSizeMB,
			MaxBackups: cfg.Daemon.LogMaxBackups,
		}
		out = io.MultiWriter(os.Stderr, rotated)
		fmt.Fprintf(os.Stderr, "Logging to %s\n", cfg.Daemon.LogFile)
	}
	return log.New(out, "[daemon] ", log.LstdFlags)
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
