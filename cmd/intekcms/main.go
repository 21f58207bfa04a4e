// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Command intekcms runs the Intek content API and its maintenance tasks:
// schema migrations, development seeding, the legacy event migration,
// admin account management and admin token issuance.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"intekcms/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "intekcms",
		Usage: "Intek category and event content API",
		Before: func(cCtx *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogging(cfg)
			cCtx.App.Metadata = map[string]any{"config": cfg}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			seedCommand,
			migrateEventsCommand,
			adminCommand,
			tokenCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}

// configFrom returns the configuration loaded by the app's Before hook.
func configFrom(cCtx *cli.Context) *config.Config {
	return cCtx.App.Metadata["config"].(*config.Config)
}

// setupLogging configures the standard logrus logger: JSON outside
// development, human-readable text in development.
func setupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if cfg.IsDev() {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})
}
