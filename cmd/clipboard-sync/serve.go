package main

import (
	"clipboard-sync/internal/auth"
	"clipboard-sync/internal/clipboard"
	"clipboard-sync/internal/mirror"
	"clipboard-sync/internal/notify"
	"clipboard-sync/internal/preview"
	"clipboard-sync/internal/server"
	"clipboard-sync/internal/storage"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the clipboard daemon",
	Long: `Serve runs the HTTP API, the websocket change feed, the widget snapshot
writer and, when enabled, the clipboard monitor and the cloud mirror.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP port")
	serveCmd.Flags().Bool("monitor", false, "watch the system clipboard")
	serveCmd.Flags().String("mirror", "", "mirror directory (enables the mirror)")
	v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	v.BindPFlag("monitor.enabled", serveCmd.Flags().Lookup("monitor"))
	v.BindPFlag("mirror.path", serveCmd.Flags().Lookup("mirror"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("mirror") {
		cfg.Mirror.Enabled = true
	}

	pidFile, err := server.NewPIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	if err := pidFile.Acquire(); err != nil {
		return err
	}
	defer pidFile.Remove()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var monitor clipboard.Monitor
	if cfg.Monitor.Enabled {
		monitor = clipboard.NewMonitor(cfg.Monitor.Interval, logger)
	}

	s, err := openStack(monitor)
	if err != nil {
		return err
	}

	if err := s.snapshots.Write(ctx); err != nil {
		logger.Warn("Failed to write initial snapshot", zap.Error(err))
	}

	sender, err := notify.NewSender(cfg.Notify, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Service:   s.svc,
		Posts:     s.store,
		Snapshots: s.snapshots,
		Scraper: preview.New(preview.Config{
			Timeout:   cfg.Preview.Timeout,
			UserAgent: cfg.Preview.UserAgent,
			CacheTTL:  cfg.Preview.CacheTTL,
		}, logger),
		Auth:    auth.New(cfg.Admin),
		Trigger: notify.NewPostTrigger(sender, logger),
		Logger:  logger,
	}, server.Config{Port: cfg.Port, BaseURL: cfg.BaseURL})

	var mirrorSvc *mirror.SyncService
	if cfg.Mirror.Enabled {
		mirrorSvc, err = newMirror(s)
		if err != nil {
			return err
		}
	}

	// Start the components concurrently; the first failure aborts startup
	var g errgroup.Group
	g.Go(s.svc.Start)
	g.Go(srv.Start)
	if mirrorSvc != nil {
		g.Go(func() error { return mirrorSvc.Start(ctx) })
	}
	startErr := g.Wait()

	if startErr == nil {
		logger.Info("clipboard-sync running",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath),
			zap.Bool("monitor", monitor != nil),
			zap.Bool("mirror", mirrorSvc != nil))
		<-ctx.Done()
		logger.Info("Shutting down")
	}

	var errs []error
	if startErr != nil {
		errs = append(errs, startErr)
	}
	if err := srv.Stop(); err != nil {
		errs = append(errs, err)
	}
	if mirrorSvc != nil {
		mirrorSvc.Stop()
	}
	return errors.Join(errs...)
}

func newMirror(s *stack) (*mirror.SyncService, error) {
	remote, err := mirror.NewDirRemote(cfg.Mirror.Path)
	if err != nil {
		return nil, err
	}
	return mirror.New(s.store, remote, mirror.Config{
		TokenPath:    filepath.Join(cfg.DataDir, "mirror.token"),
		SyncInterval: cfg.Mirror.Interval,
		OnApplied: func(change storage.Change) {
			s.svc.Publish(context.Background(), change)
		},
	}, logger)
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		pidFile, err := server.NewPIDFile(cfg.DataDir)
		if err != nil {
			return err
		}
		pid, err := pidFile.Read()
		if err != nil {
			return err
		}
		if pid == 0 || !server.IsRunning(pid) {
			pidFile.Remove()
			fmt.Fprintln(cmd.OutOrStdout(), "clipboard-sync is not running")
			return nil
		}
		if err := server.KillProcess(pid); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stopped clipboard-sync (pid %d)\n", pid)
		return nil
	},
}
