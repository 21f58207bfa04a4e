// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

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

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"intekcms/internal/account"
	"intekcms/internal/cache"
	"intekcms/internal/catalog"
	"intekcms/internal/config"
	"intekcms/internal/database"
	"intekcms/internal/handlers"
	"intekcms/internal/middleware"
	"intekcms/internal/router"
	"intekcms/internal/storage"
	"intekcms/internal/store"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP API server",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "write-limit",
			Usage: "Admin writes per caller and sign-in attempts per client allowed per minute (0 disables limiting)",
			Value: 120,
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := configFrom(cCtx)
	logrus.WithFields(logrus.Fields{
		"env":  cfg.Env,
		"addr": cfg.Addr(),
	}).Info("configuration loaded")

	pool, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(pool); err != nil {
		return err
	}
	if cfg.IsDev() {
		if err := database.Seed(ctx, pool); err != nil {
			return err
		}
	}

	// The event index only speeds up id-only event lookups; the API keeps
	// working from the store alone when Valkey is down.
	var index catalog.EventIndex
	valkey, err := cache.ConnectValkey(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword)
	if err != nil {
		logrus.WithError(err).Warn("valkey unavailable, event lookups will scan the store")
	} else {
		defer valkey.Close()
		index = cache.NewEventIndex(valkey, cache.DefaultEventTTL)
	}

	images, err := newImageHost(cfg)
	if err != nil {
		return err
	}

	// Interface values must stay nil when no host is configured.
	var host catalog.ImageHost
	var uploader handlers.ImageUploader
	if images != nil {
		host, uploader = images, images
	}

	svc := catalog.New(store.NewCategoryStore(pool), index, host)
	if index != nil {
		if n, err := svc.RebuildEventIndex(ctx); err != nil {
			logrus.WithError(err).Warn("event index rebuild failed")
		} else {
			logrus.WithField("events", n).Info("event index rebuilt")
		}
	}

	// The account service signs tokens with the base authenticator; the
	// guard checks the account behind every admin token.
	tokens := middleware.NewAuthenticator(cfg.JWTSecret, nil)
	accounts := account.New(store.NewAdminStore(pool), tokens)
	guard := tokens.WithAccounts(accounts)
	if has, err := accounts.HasAdmins(ctx); err != nil {
		logrus.WithError(err).Warn("could not count admin accounts")
	} else if !has {
		logrus.Warn("no admin accounts yet, create one with: intekcms admin create")
	}

	api := handlers.New(svc, uploader, cfg.Env)
	api.AddHealthCheck("postgres", pool.Ping)
	if valkey != nil {
		api.AddHealthCheck("valkey", func(ctx context.Context) error {
			return valkey.Ping(ctx).Err()
		})
	}

	var limiter *middleware.RateLimiter
	if n := cCtx.Int("write-limit"); n > 0 {
		limiter = middleware.NewRateLimiter(n, time.Minute)
		defer limiter.Stop()
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.New(api, handlers.NewAuth(accounts, cfg.Env), guard, limiter),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", cfg.Addr()).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logrus.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrus.Info("server stopped gracefully")
	return nil
}

// newImageHost connects the S3 image host, or returns nil when storage is
// not configured.
func newImageHost(cfg *config.Config) (*storage.Client, error) {
	if !cfg.StorageEnabled() {
		logrus.Warn("s3 storage not configured, image uploads disabled")
		return nil, nil
	}
	client, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		return nil, fmt.Errorf("init s3 storage: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"endpoint": cfg.S3Endpoint,
		"bucket":   cfg.S3Bucket,
	}).Info("s3 storage connected")
	return client, nil
}
