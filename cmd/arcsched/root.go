package main

import (
	"fmt"
	"io"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"arcsched/internal/config"
	"arcsched/internal/i18n"
	appLog "arcsched/internal/log"
	"arcsched/internal/prefs"
)

var (
	configPath string
	listenFlag string
	verbose    bool

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "arcsched",
	Short:         "ARC Raiders event schedule tracker with filters, alert rules and notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		// CLI --listen overrides config file listen if provided.
		if listenFlag != "" {
			cfg.Listen = listenFlag
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return setupLogging()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "arcsched.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&listenFlag, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func setupLogging() error {
	level := appLog.ParseLevel(cfg.Log.Level)
	if verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	if cfg.Log.File == "" {
		return nil
	}
	w, err := appLog.OpenRotating(appLog.RotateOptions{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	appLog.SetOutput(w)
	logCloser = w
	return nil
}

// openStore opens the preference database named in the config.
func openStore() (*prefs.Store, func(), error) {
	kv, err := prefs.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := kv.Close(); err != nil {
			appLog.Error("closing preference store failed", err)
		}
	}
	return prefs.NewStore(kv), closeFn, nil
}

// translator picks --lang when given, else the configured language.
func translator(lang string) *i18n.Translator {
	if lang == "" {
		lang = cfg.Language
	}
	return i18n.New(lang)
}
