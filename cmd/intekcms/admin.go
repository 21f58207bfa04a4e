// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"intekcms/internal/account"
	"intekcms/internal/models"
)

var emailFlag = &cli.StringFlag{
	Name:     "email",
	Usage:    "admin email address",
	Required: true,
}

var adminCommand = &cli.Command{
	Name:  "admin",
	Usage: "Manage admin accounts",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Create an active admin account",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Usage: "display name", Required: true},
				emailFlag,
				&cli.StringFlag{
					Name:     "password",
					Usage:    "initial password, at least 8 characters",
					EnvVars:  []string{"INTEKCMS_ADMIN_PASSWORD"},
					Required: true,
				},
			},
			Action: func(cCtx *cli.Context) error {
				return withAccounts(cCtx, func(ctx context.Context, accounts *account.Service) error {
					a, err := accounts.CreateAdmin(ctx, models.RegisterInput{
						Name:     cCtx.String("name"),
						Email:    cCtx.String("email"),
						Password: cCtx.String("password"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(cCtx.App.Writer, "created admin %s (%s)\n", a.Email, a.ID)
					return nil
				})
			},
		},
		statusCommand("activate", "Allow an admin to sign in again", models.AdminActive),
		statusCommand("deactivate", "Block an admin; existing tokens stop working", models.AdminInactive),
		{
			Name:  "reset-2fa",
			Usage: "Clear an admin's two-factor enrollment",
			Flags: []cli.Flag{emailFlag},
			Action: func(cCtx *cli.Context) error {
				return withAccounts(cCtx, func(ctx context.Context, accounts *account.Service) error {
					if err := accounts.ResetTwoFactor(ctx, cCtx.String("email")); err != nil {
						return err
					}
					fmt.Fprintf(cCtx.App.Writer, "two-factor authentication reset for %s\n", cCtx.String("email"))
					return nil
				})
			},
		},
	},
}

func statusCommand(name, usage string, status models.AdminStatus) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{emailFlag},
		Action: func(cCtx *cli.Context) error {
			return withAccounts(cCtx, func(ctx context.Context, accounts *account.Service) error {
				a, err := accounts.SetStatus(ctx, cCtx.String("email"), status)
				if err != nil {
					return err
				}
				fmt.Fprintf(cCtx.App.Writer, "admin %s is now %s\n", a.Email, a.Status)
				return nil
			})
		},
	}
}
