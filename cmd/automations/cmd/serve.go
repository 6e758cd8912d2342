package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/planora/automations/internal/core/config"
	"github.com/planora/automations/internal/core/db"
	"github.com/planora/automations/internal/core/server"
	"github.com/planora/automations/internal/core/store"
	"github.com/planora/automations/internal/engine"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP event ingestion service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := setupLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Port = port
	}

	var opts []engine.Option
	opts = append(opts, engine.WithLogger(log))

	var provider engine.RuleProvider
	if dbURL == "" {
		// Demo mode. Rules live in memory only and events are not archived.
		log.Warn("no --db-url given, running with an empty in-memory rule store")
		provider = store.NewMemory()
	} else {
		database, err := db.Open(dbURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		if err := db.MigrateUp(database); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}

		queries, err := db.LoadQueries(database)
		if err != nil {
			return fmt.Errorf("failed to load queries: %w", err)
		}

		st := store.New(queries, log)
		provider = st
		opts = append(opts, engine.WithSink(st))
	}

	eng := engine.New(provider, opts...)

	httpServer, err := server.NewHTTPServer(cfg, eng, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info("starting automations service", "version", Version, "host", cfg.Host, "port", cfg.Port)
	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		log.Info("shutting down gracefully")
		return httpServer.Shutdown(ctx)
	}
}
