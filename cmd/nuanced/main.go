// Nuance Daemon - serves the local scoring API
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nuance-app/nuance/internal/api"
	"github.com/nuance-app/nuance/internal/coach"
	"github.com/nuance-app/nuance/internal/config"
	"github.com/nuance-app/nuance/internal/logging"
	"github.com/nuance-app/nuance/internal/state"
	"github.com/nuance-app/nuance/internal/storage"
)

var (
	configPath string
	dataDir    string
	port       int
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nuanced",
		Short: "Nuance daemon - local daily scoring service",
		RunE:  runDaemon,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if debug || cfg.Features.DebugMode {
		logging.SetLevel(logging.DEBUG)
	}

	log := logging.WithField("component", "daemon")

	db, err := storage.Open(storage.Config{Path: cfg.DBPath()})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	app := state.New()

	stateStore := storage.NewStateStore(db)
	blob, err := stateStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if blob != nil {
		if err := app.Restore(blob); err != nil {
			// Corrupt blob: keep the defaults rather than refusing to start.
			log.Warn("stored state unreadable, starting fresh: %v", err)
		}
	}

	historyStore := storage.NewHistoryStore(db)
	history, err := historyStore.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	app.SetHistory(history)
	log.Info("loaded %d saved days", len(history))

	coachCfg := coach.DefaultConfig()
	if cfg.Coach.WindowDays > 0 {
		coachCfg.WindowDays = cfg.Coach.WindowDays
	}
	if cfg.Coach.MinEntries > 0 {
		coachCfg.MinEntries = cfg.Coach.MinEntries
	}

	server := api.New(api.Config{
		Host:  cfg.Server.Host,
		Port:  cfg.Server.Port,
		App:   app,
		DB:    db,
		Coach: coachCfg,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		log.Info("shutting down")
		if data, err := app.Marshal(); err == nil {
			stateStore.Save(data)
		}
		server.Stop(context.Background())
	}()

	err = server.Start()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
