package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"optigov.org/internal/auth"
	"optigov.org/internal/httpapi"
	"optigov.org/internal/obs"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.AuthSecret == "" {
		return errors.New("auth secret is required: set OPTIGOV_AUTH_SECRET or auth.secret")
	}
	tokens, err := auth.NewTokens(a.cfg.AuthSecret, a.cfg.SessionTTL)
	if err != nil {
		return err
	}

	obs.Init()
	obs.InitBuildInfo(version, a.cfg.Storage.Driver)

	st, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if a.cfg.Seed {
		seeded, err := st.Seed(ctx, a.seedAdmin())
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if seeded {
			a.log.Info("seeded empty store")
		}
	}

	api := httpapi.New(st, tokens,
		httpapi.WithVersion(version),
		httpapi.WithRateLimit(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst),
		httpapi.WithMaxBodyBytes(a.cfg.MaxBodyBytes),
		httpapi.WithCORSOrigins(a.cfg.CORSOrigins),
	)
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("version", version),
			zap.String("storage_driver", a.cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := st.WatchExternal(gctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("external change watcher stopped", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info("stopped")
	return nil
}
