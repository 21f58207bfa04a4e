// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"intekcms/internal/cache"
	"intekcms/internal/catalog"
	"intekcms/internal/database"
	"intekcms/internal/migrate"
	"intekcms/internal/store"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Apply pending schema migrations",
	Action: func(cCtx *cli.Context) error {
		pool, err := database.Connect(cCtx.Context, configFrom(cCtx).DSN())
		if err != nil {
			return err
		}
		defer pool.Close()
		return database.Migrate(pool)
	},
}

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Insert the development category catalogue into an empty database",
	Action: func(cCtx *cli.Context) error {
		pool, err := database.Connect(cCtx.Context, configFrom(cCtx).DSN())
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.Migrate(pool); err != nil {
			return err
		}
		return database.Seed(cCtx.Context, pool)
	},
}

var migrateEventsCommand = &cli.Command{
	Name:  "migrate-events",
	Usage: "Embed the legacy standalone events into their categories",
	Description: "Reads every record of the legacy event table and copies it into the event list\n" +
		"of its category. Each copy remembers the record it came from, so running the\n" +
		"command again only embeds records that were not migrated yet.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "mode",
			Usage: "append (keep existing events) or replace (swap the event list for the migrated events)",
			Value: string(migrate.ModeAppend),
		},
		&cli.BoolFlag{
			Name:  "allow-duplicates",
			Usage: "embed records even when already migrated; every rerun adds another copy",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "report what would change without writing",
		},
	},
	Action: migrateEvents,
}

func migrateEvents(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode, err := migrate.ParseMode(cCtx.String("mode"))
	if err != nil {
		return err
	}
	opts := migrate.Options{
		Mode:            mode,
		AllowDuplicates: cCtx.Bool("allow-duplicates"),
		DryRun:          cCtx.Bool("dry-run"),
	}
	if opts.AllowDuplicates {
		logrus.Warn("--allow-duplicates is set: records already embedded will be embedded AGAIN, " +
			"and every rerun adds another copy of every legacy event")
	}

	cfg := configFrom(cCtx)
	pool, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.Migrate(pool); err != nil {
		return err
	}

	categories := store.NewCategoryStore(pool)
	summary, err := migrate.Run(ctx, store.NewLegacyEventStore(pool), categories, opts)
	for _, s := range summary.Skipped {
		logrus.WithFields(logrus.Fields{
			"category_id": s.CategoryID,
			"events":      s.Events,
		}).Warn("legacy events left behind: category no longer exists")
	}
	if err != nil {
		logrus.WithFields(summary.Fields()).Error("event migration stopped; fix the cause and rerun")
		return fmt.Errorf("migrate events: %w", err)
	}
	logrus.WithFields(summary.Fields()).Info("event migration complete")

	if opts.DryRun || summary.CategoriesUpdated == 0 {
		return nil
	}
	return refreshEventIndex(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword, categories)
}

// refreshEventIndex rebuilds the id lookup index after events were added
// outside the API. A missing Valkey is not an error: the API rebuilds the
// index on start.
func refreshEventIndex(ctx context.Context, addr, password string, categories *store.CategoryStore) error {
	client, err := cache.ConnectValkey(ctx, addr, password)
	if err != nil {
		logrus.WithError(err).Warn("valkey unavailable, event index not refreshed")
		return nil
	}
	defer client.Close()

	svc := catalog.New(categories, cache.NewEventIndex(client, cache.DefaultEventTTL), nil)
	n, err := svc.RebuildEventIndex(ctx)
	if err != nil {
		return fmt.Errorf("rebuild event index: %w", err)
	}
	logrus.WithField("events", n).Info("event index rebuilt")
	return nil
}
