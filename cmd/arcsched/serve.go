package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"arcsched/internal/alert"
	appLog "arcsched/internal/log"
	"arcsched/internal/metrics"
	"arcsched/internal/presence"
	"arcsched/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI and automatic notification checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		appLog.Info("effective config",
			"listen", cfg.Listen,
			"timezone", cfg.Location().String(),
			"language", cfg.Language,
			"db_path", cfg.DBPath,
			"notify_cron", cfg.NotifyCron,
			"basic_auth", cfg.BasicAuth != nil,
		)

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		// Root context with cancellation on SIGINT/SIGTERM.
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case sig := <-sigCh:
				appLog.Info("signal received, shutting down", "signal", sig.String())
				cancel()
			case <-ctx.Done():
			}
		}()

		p, err := store.Rewrite(ctx)
		if err != nil {
			return err
		}
		appLog.Info("preferences loaded",
			"events", len(p.Events),
			"maps", len(p.Locations),
			"rules", len(p.Rules),
			"notifications", p.NotificationsEnabled,
		)

		m := metrics.New()
		feed := alert.NewFeed(cfg.FeedSize)
		runner := alert.New(alert.Options{
			Prefs:     store,
			Location:  cfg.Location(),
			Localizer: translator(""),
			Sink:      alert.MultiSink{alert.LogSink{}, feed},
			Metrics:   m,
		})
		if err := runner.Start(cfg.NotifyCron); err != nil {
			return err
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			runner.Stop(stopCtx)
		}()

		srv := web.NewServer(web.Options{
			Config:   cfg,
			Prefs:    store,
			Presence: presence.NewTracker(),
			Runner:   runner,
			Feed:     feed,
			Metrics:  m,
		})
		if err := srv.Run(ctx); err != nil {
			return err
		}
		appLog.Info("arcsched exiting")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
