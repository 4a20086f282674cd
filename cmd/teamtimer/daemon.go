package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/teamtimer/internal/audit"
	"github.com/fentz26/teamtimer/internal/controlplane"
	"github.com/fentz26/teamtimer/internal/engine"
	"github.com/fentz26/teamtimer/internal/gauzy"
	"github.com/fentz26/teamtimer/internal/notify"
	"github.com/fentz26/teamtimer/internal/session"
	"github.com/fentz26/teamtimer/internal/store"
)

var (
	listenAddr   string
	dbPath       string
	journalDays  int
	noDesktopMsg bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the teamtimer daemon",
	Long: `Starts the daemon which keeps the timer in sync with the API and serves the
local HTTP API used by the other commands.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to the journal database (overrides config)")
	daemonCmd.Flags().IntVar(&journalDays, "journal-days", 30, "Prune journal entries older than this many days (0 keeps all)")
	daemonCmd.Flags().BoolVar(&noDesktopMsg, "no-desktop", false, "Disable desktop notifications")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Daemon.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.Daemon.DBPath = dbPath
	}
	if noDesktopMsg {
		cfg.Notifications.Desktop = false
	}

	logger, logCloser, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("setting up log: %w", err)
	}
	defer logCloser.Close()
	logger.Info("starting teamtimer daemon", "version", controlplane.Version, "api", cfg.API.BaseURL)

	// Session facts written by the login flow
	sess, err := session.Load(cfg.Session.CredentialsPath)
	if err != nil {
		return err
	}
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("%w (credentials: %s)", err, sess.Path())
	}

	// Initialize store
	s, err := store.New(cfg.Daemon.DBPath)
	if err != nil {
		return err
	}
	if journalDays > 0 {
		before := time.Now().AddDate(0, 0, -journalDays)
		if n, err := s.Prune(context.Background(), before); err != nil {
			logger.Warn("journal prune failed", "error", err)
		} else if n > 0 {
			logger.Info("journal pruned", "entries", n)
		}
	}

	// Initialize components
	sinks := notify.Multi{notify.NewLogger(logger)}
	if cfg.Notifications.Desktop {
		sinks = append(sinks, notify.NewDesktop("teamtimer", "", logger))
	}
	api := gauzy.NewClient(cfg.API.BaseURL, sess, cfg.API.Timeout)
	journal := audit.NewJournal(s)

	engineCfg := engine.DefaultConfig()
	engineCfg.PollInterval = cfg.Sync.PollInterval
	engineCfg.StatsInterval = cfg.Sync.StatsInterval
	eng := engine.New(api, sess, sinks, journal, engineCfg, logger)

	// Create service and server
	service := controlplane.NewService(eng, s)
	server := controlplane.NewServer(service, cfg.Daemon.Listen, logger)

	if err := eng.Start(); err != nil {
		s.Close()
		return err
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		err := server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, initiating graceful shutdown", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
			eng.Stop()
			s.Close()
			return err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	eng.Stop()

	logger.Info("closing database connection")
	if err := s.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
