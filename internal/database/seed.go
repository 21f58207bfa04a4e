// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"intekcms/internal/slug"
)

// seedCategories is the development catalogue inserted into an empty database.
var seedCategories = []struct {
	title        string
	short        string
	displayOrder int
}{
	{"Robotics", "Industrial and service robotics programmes", 1},
	{"Machine Vision", "Inspection, measurement and recognition systems", 2},
	{"Automation", "Line automation and control integration", 3},
}

// Default development admin. Change the password with
// PUT /api/auth/update-credentials after the first sign-in.
const (
	seedAdminEmail    = "admin@intek.local"
	seedAdminPassword = "changeme"
)

// Seed populates the database with initial development data: a default
// admin when no account exists and a small category catalogue when no
// categories exist yet.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	if err := seedAdmin(ctx, pool); err != nil {
		return err
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		logrus.Info("database already seeded, skipping")
		return nil
	}

	for _, c := range seedCategories {
		_, err := pool.Exec(ctx, `
			INSERT INTO categories (title, slug, short_description, display_order)
			VALUES ($1, $2, $3, $4)
		`, c.title, slug.Legacy(), c.short, c.displayOrder)
		if err != nil {
			return fmt.Errorf("seed insert category %q: %w", c.title, err)
		}
	}

	logrus.WithField("categories", len(seedCategories)).Info("database seeded with development categories")
	return nil
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM admins").Scan(&count); err != nil {
		return fmt.Errorf("seed check admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO admins (name, email, password_hash)
		VALUES ($1, $2, $3)
	`, "Admin", seedAdminEmail, string(hash))
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"email":    seedAdminEmail,
		"password": seedAdminPassword,
	}).Warn("database seeded with default admin, change the password after first login")
	return nil
}
