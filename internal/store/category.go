// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"intekcms/internal/models"
)

const categoryTable = "categories"

var categoryColumns = []string{
	"id", "title", "slug", "short_description", "description",
	"image_url", "image_public_id", "is_active", "display_order",
	"meta_title", "meta_description", "parent_id", "events",
	"version", "created_at", "updated_at",
}

var categoryOrder = []string{"display_order ASC", "title ASC"}

// CategoryStore manages category documents, embedded events included.
type CategoryStore struct {
	pool *pgxpool.Pool
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(pool *pgxpool.Pool) *CategoryStore {
	return &CategoryStore{pool: pool}
}

// List returns categories matching filter ordered by display order, then title.
func (s *CategoryStore) List(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, error) {
	q := psql().Select(categoryColumns...).From(categoryTable).OrderBy(categoryOrder...)
	if filter.IsActive != nil {
		q = q.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	return s.selectCategories(ctx, q)
}

// ListWithEvents returns every category that embeds at least one event.
func (s *CategoryStore) ListWithEvents(ctx context.Context) ([]*models.Category, error) {
	q := psql().Select(categoryColumns...).From(categoryTable).
		Where("jsonb_array_length(events) > 0").
		OrderBy(categoryOrder...)
	return s.selectCategories(ctx, q)
}

// FindByID returns the category or models.ErrCategoryNotFound.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	q := psql().Select(categoryColumns...).From(categoryTable).Where(sq.Eq{"id": id}).Limit(1)
	return s.getCategory(ctx, q)
}

// FindByTitle returns the category whose trimmed title equals title, ignoring
// exclude when set. It returns (nil, nil) when nothing matches.
func (s *CategoryStore) FindByTitle(ctx context.Context, title string, exclude *uuid.UUID) (*models.Category, error) {
	q := psql().Select(categoryColumns...).From(categoryTable).
		Where(sq.Expr("btrim(title) = btrim(?)", title)).
		Limit(1)
	if exclude != nil {
		q = q.Where(sq.NotEq{"id": *exclude})
	}

	c, err := s.getCategory(ctx, q)
	if errors.Is(err, models.ErrCategoryNotFound) {
		return nil, nil
	}
	return c, err
}

// FindByEventID returns the first category embedding an event with the given
// id, using jsonb containment against the GIN index on events.
func (s *CategoryStore) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.Category, error) {
	needle, err := json.Marshal([]map[string]string{{"id": eventID.String()}})
	if err != nil {
		return nil, fmt.Errorf("encode event lookup: %w", err)
	}

	q := psql().Select(categoryColumns...).From(categoryTable).
		Where(sq.Expr("events @> ?::jsonb", string(needle))).
		OrderBy("created_at ASC").
		Limit(1)
	return s.getCategory(ctx, q)
}

// HasChildren reports whether any category names id as its parent.
func (s *CategoryStore) HasChildren(ctx context.Context, id uuid.UUID) (bool, error) {
	sub, args, err := psql().Select("1").From(categoryTable).Where(sq.Eq{"parent_id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate children query: %w", err)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check child categories: %w", err)
	}
	return exists, nil
}

// Create inserts c and fills in the generated id, version and timestamps.
// A title collision on the unique index yields models.ErrDuplicateTitle.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) error {
	events, err := encodeEvents(c.Events)
	if err != nil {
		return err
	}

	query, args, err := psql().Insert(categoryTable).SetMap(map[string]any{
		"title":             c.Title,
		"slug":              c.Slug,
		"short_description": c.ShortDescription,
		"description":       c.Description,
		"image_url":         c.ImageURL,
		"image_public_id":   c.ImagePublicID,
		"is_active":         c.IsActive,
		"display_order":     c.DisplayOrder,
		"meta_title":        c.MetaTitle,
		"meta_description":  c.MetaDescription,
		"parent_id":         c.ParentID,
		"events":            events,
	}).Suffix("RETURNING id, version, created_at, updated_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert query: %w", err)
	}

	err = s.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return models.ErrDuplicateTitle
	}
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// Save writes the whole document back, events included, provided the stored
// version still equals c.Version. On success c.Version and c.UpdatedAt are
// advanced. A version mismatch yields models.ErrStaleWrite.
func (s *CategoryStore) Save(ctx context.Context, c *models.Category) error {
	events, err := encodeEvents(c.Events)
	if err != nil {
		return err
	}

	query, args, err := psql().Update(categoryTable).SetMap(map[string]any{
		"title":             c.Title,
		"short_description": c.ShortDescription,
		"description":       c.Description,
		"image_url":         c.ImageURL,
		"image_public_id":   c.ImagePublicID,
		"is_active":         c.IsActive,
		"display_order":     c.DisplayOrder,
		"meta_title":        c.MetaTitle,
		"meta_description":  c.MetaDescription,
		"parent_id":         c.ParentID,
		"events":            events,
		"version":           sq.Expr("version + 1"),
		"updated_at":        time.Now(),
	}).
		Where(sq.Eq{"id": c.ID, "version": c.Version}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate save query for category %s: %w", c.ID, err)
	}

	err = s.pool.QueryRow(ctx, query, args...).Scan(&c.Version, &c.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return models.ErrDuplicateTitle
	case errors.Is(err, pgx.ErrNoRows):
		if _, findErr := s.FindByID(ctx, c.ID); findErr != nil {
			return findErr
		}
		return models.ErrStaleWrite
	default:
		return fmt.Errorf("failed to save category %s: %w", c.ID, err)
	}
}

// SetDisplayOrder updates a single category's display order.
func (s *CategoryStore) SetDisplayOrder(ctx context.Context, id uuid.UUID, order int) error {
	query, args, err := psql().Update(categoryTable).SetMap(map[string]any{
		"display_order": order,
		"version":       sq.Expr("version + 1"),
		"updated_at":    time.Now(),
	}).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate reorder query: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to reorder category %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrCategoryNotFound
	}
	return nil
}

// Delete removes a category and, with it, its embedded events.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql().Delete(categoryTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete query: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrCategoryNotFound
	}
	return nil
}

func (s *CategoryStore) selectCategories(ctx context.Context, q sq.SelectBuilder) ([]*models.Category, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate categories query: %w", err)
	}

	categories := make([]*models.Category, 0)
	if err := pgxscan.Select(ctx, s.pool, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryStore) getCategory(ctx context.Context, q sq.SelectBuilder) (*models.Category, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate category query: %w", err)
	}

	var c models.Category
	err = pgxscan.Get(ctx, s.pool, &c, query, args...)
	if pgxscan.NotFound(err) {
		return nil, models.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}
	return &c, nil
}

// encodeEvents renders the embedded list as raw JSON for the jsonb column.
func encodeEvents(events []models.Event) ([]byte, error) {
	if events == nil {
		events = []models.Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode embedded events: %w", err)
	}
	return data, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
