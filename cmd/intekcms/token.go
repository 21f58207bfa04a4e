// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"intekcms/internal/account"
	"intekcms/internal/database"
	"intekcms/internal/middleware"
	"intekcms/internal/store"
)

var tokenCommand = &cli.Command{
	Name:  "token",
	Usage: "Issue a bearer token for an admin account, for scripts and CI",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "email",
			Usage:    "email of the active admin the token is issued to",
			Required: true,
		},
		&cli.DurationFlag{
			Name:  "ttl",
			Usage: "token lifetime",
			Value: 12 * time.Hour,
		},
	},
	Action: func(cCtx *cli.Context) error {
		return withAccounts(cCtx, func(ctx context.Context, accounts *account.Service) error {
			token, err := accounts.IssueToken(ctx, cCtx.String("email"), cCtx.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cCtx.App.Writer, token)
			return nil
		})
	},
}

// withAccounts connects to the database, applies migrations and runs fn
// with an account service.
func withAccounts(cCtx *cli.Context, fn func(ctx context.Context, accounts *account.Service) error) error {
	cfg := configFrom(cCtx)
	pool, err := database.Connect(cCtx.Context, cfg.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.Migrate(pool); err != nil {
		return err
	}

	tokens := middleware.NewAuthenticator(cfg.JWTSecret, nil)
	return fn(cCtx.Context, account.New(store.NewAdminStore(pool), tokens))
}
