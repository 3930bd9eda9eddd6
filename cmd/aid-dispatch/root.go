package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mr1hm/go-aid-dispatch/internal/config"
	"github.com/mr1hm/go-aid-dispatch/internal/console"
	"github.com/mr1hm/go-aid-dispatch/internal/dispatch"
	"github.com/mr1hm/go-aid-dispatch/internal/events"
	"github.com/mr1hm/go-aid-dispatch/internal/fleet"
	"github.com/mr1hm/go-aid-dispatch/internal/geocode"
	"github.com/mr1hm/go-aid-dispatch/internal/inventory"
	"github.com/mr1hm/go-aid-dispatch/internal/logging"
	"github.com/mr1hm/go-aid-dispatch/internal/repository"
	"github.com/mr1hm/go-aid-dispatch/internal/stations"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "aid-dispatch",
	Short:         "Disaster-relief supply dispatch",
	Long:          "Interactive console for operators and requesters. Use 'serve' for the HTTP API.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConsole,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional file of environment overrides")
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func loadConfig() (*config.Config, error) {
	// A missing env file is fine; the process environment still applies.
	_ = godotenv.Load(envFile)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// buildSystem wires the shared components. The returned close func releases the
// dispatch log.
func buildSystem(cfg *config.Config, broadcaster *events.Broadcaster, requireDB bool) (*dispatch.System, func(), error) {
	ledger := inventory.NewLedger(repository.NewFileStore(cfg.Storage.Path))

	f := fleet.New()
	f.Seed(cfg.Fleet.Prefix, cfg.Fleet.Size)

	var (
		dispatches repository.DispatchRepository
		closeDB    = func() {}
	)
	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	switch {
	case err == nil:
		dispatches = db
		closeDB = func() {
			if err := db.Close(); err != nil {
				slog.Error("error closing database", "error", err)
			}
		}
	case requireDB:
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	default:
		slog.Warn("dispatch log unavailable, continuing without it", "path", cfg.DB.Path, "error", err)
	}

	return dispatch.NewSystem(ledger, f, stations.NewRegistry(), dispatches, broadcaster), closeDB, nil
}

func newGeocoder(cfg *config.Config) *geocode.Client {
	return geocode.NewClient(cfg.Geocoder.URL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout)
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Prompts own stdout.
	logging.Setup(cfg.Logging.Level, os.Stderr)

	sys, closeDB, err := buildSystem(cfg, nil, false)
	if err != nil {
		return err
	}
	defer closeDB()

	c := console.New(sys, newGeocoder(cfg), cfg.Console.OperatorPassword, cmd.InOrStdin(), cmd.OutOrStdout())
	// Signals keep their default behaviour here: every mutation is already on disk.
	return c.Run(context.Background())
}
