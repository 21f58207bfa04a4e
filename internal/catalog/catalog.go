// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog holds the business rules for categories and the events
// embedded in them. Category documents are the single source of truth; the
// flat, id-addressed event API is served from the embedded lists through an
// ownership index.
//
// Every event mutation is a read-modify-write of the whole owning category.
// Writes are versioned, and a write that lost a race is retried against a
// fresh copy, so concurrent edits to one category never drop each other.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"intekcms/internal/apperr"
	"intekcms/internal/models"
)

// maxWriteAttempts bounds the retries of a versioned write that keeps
// losing to concurrent writers.
const maxWriteAttempts = 5

// CategoryRepository persists category documents. It is satisfied by
// *store.CategoryStore.
type CategoryRepository interface {
	List(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, error)
	ListWithEvents(ctx context.Context) ([]*models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindByTitle(ctx context.Context, title string, exclude *uuid.UUID) (*models.Category, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.Category, error)
	HasChildren(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, c *models.Category) error
	Save(ctx context.Context, c *models.Category) error
	SetDisplayOrder(ctx context.Context, id uuid.UUID, order int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventIndex maps event ids to owning category ids. Entries may be stale;
// the service verifies every hit. It is satisfied by *cache.EventIndex.
type EventIndex interface {
	Lookup(ctx context.Context, eventID uuid.UUID) (uuid.UUID, bool)
	Put(ctx context.Context, eventID, categoryID uuid.UUID)
	Remove(ctx context.Context, eventIDs ...uuid.UUID)
	Rebuild(ctx context.Context, categories []*models.Category) (int, error)
}

// ImageHost releases hosted image assets. It is satisfied by *storage.Client.
type ImageHost interface {
	Release(ctx context.Context, ref models.ImageRef) error
}

// Service implements category and event operations.
type Service struct {
	repo   CategoryRepository
	index  EventIndex
	images ImageHost
	now    func() time.Time
}

// New creates a Service. index and images may be nil: without an index
// every id-only event lookup falls back to the store, and without an image
// host deleted categories leave their assets in place.
func New(repo CategoryRepository, index EventIndex, images ImageHost) *Service {
	if index == nil {
		index = noIndex{}
	}
	return &Service{
		repo:   repo,
		index:  index,
		images: images,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RebuildEventIndex repopulates the ownership index from the store.
func (s *Service) RebuildEventIndex(ctx context.Context) (int, error) {
	categories, err := s.repo.ListWithEvents(ctx)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "Error loading categories", err)
	}
	n, err := s.index.Rebuild(ctx, categories)
	if err != nil {
		return 0, apperr.Wrap(apperr.DependencyFailure, "Error rebuilding event index", err)
	}
	return n, nil
}

// mutate applies fn to a freshly loaded copy of the category and saves the
// result. A stale write reloads and reapplies fn, so fn must be safe to run
// more than once.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(c *models.Category) error) (*models.Category, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "Request cancelled", err)
		}

		c, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, storeError(err)
		}
		if err := fn(c); err != nil {
			return nil, err
		}

		err = s.repo.Save(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, models.ErrStaleWrite) {
			return nil, storeError(err)
		}

		logrus.WithFields(logrus.Fields{
			"category_id": id,
			"attempt":     attempt,
		}).Debug("stale category write, retrying")
	}

	return nil, apperr.Wrap(apperr.Conflict,
		"Category is being modified concurrently, please retry", models.ErrStaleWrite)
}

// storeError translates repository errors into application errors.
func storeError(err error) error {
	switch {
	case errors.Is(err, models.ErrCategoryNotFound):
		return apperr.Wrap(apperr.NotFound, "Category not found", err)
	case errors.Is(err, models.ErrDuplicateTitle):
		return apperr.Wrap(apperr.Conflict, duplicateTitleMessage, err)
	case errors.Is(err, models.ErrStaleWrite):
		return apperr.Wrap(apperr.Conflict, "Category is being modified concurrently, please retry", err)
	default:
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperr.Wrap(apperr.Internal, "Unexpected storage error", err)
	}
}

type noIndex struct{}

func (noIndex) Lookup(context.Context, uuid.UUID) (uuid.UUID, bool) { return uuid.Nil, false }
func (noIndex) Put(context.Context, uuid.UUID, uuid.UUID)            {}
func (noIndex) Remove(context.Context, ...uuid.UUID)                 {}
func (noIndex) Rebuild(context.Context, []*models.Category) (int, error) {
	return 0, nil
}
