// Command optigov serves the NDPR compliance dashboard API and administers its
// storage.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"optigov.org/internal/config"
	"optigov.org/internal/kv"
	"optigov.org/internal/obs"
	"optigov.org/internal/store"
)

var version = "0.1.0"

// app carries the global flags and the configuration they resolve to.
type app struct {
	configPath string
	driver     string
	dsn        string

	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "optigov",
		Short:         "NDPR compliance dashboard backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.driver, "driver", "", "storage driver override (memory, file, sqlite, postgres, redis)")
	root.PersistentFlags().StringVar(&a.dsn, "dsn", "", "storage location override: directory, database path/DSN or redis URL")

	root.AddCommand(
		a.serveCmd(),
		a.migrateCmd(),
		a.seedCmd(),
		a.analyticsCmd(),
		a.usersCmd(),
		a.requestsCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
	)
	return root
}

// load resolves config then applies --driver and --dsn.
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.Storage.Driver = strings.ToLower(a.driver)
	}
	if a.dsn != "" {
		switch cfg.Storage.Driver {
		case kv.DriverFile:
			cfg.Storage.Dir = a.dsn
		case kv.DriverRedis:
			cfg.Storage.RedisURL = a.dsn
		default:
			cfg.Storage.DSN = a.dsn
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	obs.SetLogger(logger)
	a.log = logger
	return nil
}

// openStore opens the configured backend. The returned close func releases it.
func (a *app) openStore(ctx context.Context) (*store.Store, func(), error) {
	backend, err := kv.Open(ctx, a.cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	st := store.New(backend,
		store.WithBcryptCost(a.cfg.BcryptCost),
		store.WithLogger(obs.Named("store")),
	)
	return st, func() { _ = backend.Close() }, nil
}

func (a *app) seedAdmin() *store.SeedAdmin {
	if a.cfg.Admin == nil {
		return nil
	}
	return &store.SeedAdmin{
		Username: a.cfg.Admin.Username,
		Email:    a.cfg.Admin.Email,
		Password: a.cfg.Admin.Password,
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "optigov:", err)
		os.Exit(1)
	}
}
