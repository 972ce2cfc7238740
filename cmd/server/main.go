// Package main is the entry point for the dirbridge server binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dirbridge/internal/api"
	"dirbridge/internal/bridge"
	"dirbridge/internal/config"
	internaldb "dirbridge/internal/db"
	"dirbridge/internal/db/repository"
	"dirbridge/internal/domain"
	"dirbridge/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dirbridge",
		Short:         "Identity directory with an LDAP bridge",
		Long:          "A user and group directory exposing a JSON management API and a read/bind-only LDAP endpoint.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the LDAP bridge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (env vars override it)")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var logHandler slog.Handler
	if cfg.IsProduction() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	}
	log := slog.New(logHandler)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, 4)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	groupRepo := repository.NewGroupRepo(writeDB, readDB)
	userRepo := repository.NewUserRepo(writeDB, readDB)

	userSvc := service.NewUserService(userRepo, groupRepo)
	groupSvc := service.NewGroupService(groupRepo)
	authSvc := service.NewAuthService(userSvc, cfg.JWTSecret, time.Duration(cfg.JWTExpireHours)*time.Hour)

	if err := seedAdmin(ctx, log, userSvc); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	ctrl := bridge.NewController(log, userSvc, groupSvc, cfg.LDAP.Bridge())
	if err := ctrl.Start(); err != nil {
		return fmt.Errorf("start ldap bridge: %w", err)
	}

	handler := api.NewHandler(log, userSvc, groupSvc, authSvc, ctrl)
	httpServer := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: handler.Router(api.RouterConfig{
			RateLimitRPS:       cfg.RateLimitRPS,
			RateLimitBurst:     cfg.RateLimitBurst,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http api listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", "err", err)
		}
		return ctrl.Stop()
	})

	return g.Wait()
}

// seedAdmin creates a default admin account on an empty store so the
// console has something to log in with.
func seedAdmin(ctx context.Context, log *slog.Logger, users *service.UserService) error {
	result, err := users.List(ctx, domain.PageRequest{Page: 1, PageSize: 1})
	if err != nil {
		return err
	}
	if result.Total > 0 {
		return nil
	}

	_, err = users.Create(ctx, domain.CreateUserInput{
		Username:    "admin",
		DisplayName: "Administrator",
		Email:       "admin@example.com",
		Password:    "admin123456",
	})
	if err != nil {
		return err
	}
	log.Warn("seeded default admin account; change its password", "username", "admin")
	return nil
}
