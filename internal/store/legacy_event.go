// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"intekcms/internal/models"
)

const legacyEventTable = "legacy_events"

var legacyEventColumns = []string{
	"id", "category_id", "title", "description", "details",
	"image_url", "image_public_id", "created_at", "updated_at",
}

// LegacyEventStore reads the standalone event table left behind by the old
// flat event model.
type LegacyEventStore struct {
	pool *pgxpool.Pool
}

// NewLegacyEventStore returns a new LegacyEventStore.
func NewLegacyEventStore(pool *pgxpool.Pool) *LegacyEventStore {
	return &LegacyEventStore{pool: pool}
}

// All returns every legacy record in a stable order.
func (s *LegacyEventStore) All(ctx context.Context) ([]*models.LegacyEvent, error) {
	query, args, err := psql().Select(legacyEventColumns...).
		From(legacyEventTable).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate legacy events query: %w", err)
	}

	events := make([]*models.LegacyEvent, 0)
	if err := pgxscan.Select(ctx, s.pool, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch legacy events: %w", err)
	}
	return events, nil
}

// Create inserts a legacy record. Only fixtures and imports write here.
func (s *LegacyEventStore) Create(ctx context.Context, e *models.LegacyEvent) error {
	query, args, err := psql().Insert(legacyEventTable).SetMap(map[string]any{
		"id":              e.ID,
		"category_id":     e.CategoryID,
		"title":           e.Title,
		"description":     e.Description,
		"details":         e.Details,
		"image_url":       e.ImageURL,
		"image_public_id": e.ImagePublicID,
	}).Suffix("RETURNING created_at, updated_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate legacy insert query: %w", err)
	}

	if err := s.pool.QueryRow(ctx, query, args...).Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert legacy event %s: %w", e.ID, err)
	}
	return nil
}
