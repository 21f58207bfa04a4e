// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"intekcms/internal/apperr"
	"intekcms/internal/models"
	"intekcms/internal/slug"
	"intekcms/internal/validate"
)

const duplicateTitleMessage = "A category with this title already exists. Please use a different title."

// ListCategories returns categories ordered by display order, then title.
func (s *Service) ListCategories(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, error) {
	categories, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Error fetching categories", err)
	}
	return categories, nil
}

// GetCategory returns one category.
func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return c, nil
}

// CreateCategory validates in and stores a new category with no events.
// A title already in use, compared after trimming, is rejected with
// Conflict; titles are never renamed to dodge a collision.
func (s *Service) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	in.Trim()
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.checkTitle(ctx, in.Title, nil); err != nil {
		return nil, err
	}

	c := &models.Category{
		Title:            in.Title,
		Slug:             slug.Legacy(),
		ShortDescription: in.ShortDescription,
		Description:      in.Description,
		ImageURL:         in.ImageURL,
		ImagePublicID:    in.ImagePublicID,
		IsActive:         true,
		DisplayOrder:     in.DisplayOrder,
		MetaTitle:        in.MetaTitle,
		MetaDescription:  in.MetaDescription,
		ParentID:         in.ParentID.Value,
		Events:           []models.Event{},
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, storeError(err)
	}

	logrus.WithFields(logrus.Fields{"category_id": c.ID, "title": c.Title}).Info("category created")
	return c, nil
}

// UpdateCategory merges the present fields of patch into the category.
// The stored slug is never touched.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, patch models.CategoryPatch) (*models.Category, error) {
	patch.Trim()
	if err := validate.Struct(&patch); err != nil {
		return nil, err
	}
	if err := validate.RequirePresent("title", patch.Title); err != nil {
		return nil, err
	}
	if patch.ParentID.Value != nil && *patch.ParentID.Value == id {
		return nil, apperr.Validation(apperr.FieldError{
			Field:   "parentCategory",
			Message: "a category cannot be its own parent",
		})
	}

	c, err := s.mutate(ctx, id, func(c *models.Category) error {
		if patch.Title != nil {
			if err := s.checkTitle(ctx, *patch.Title, &c.ID); err != nil {
				return err
			}
		}
		patch.Apply(c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithField("category_id", id).Info("category updated")
	return c, nil
}

// DeleteCategory removes a category and the events embedded in it. It
// refuses while another category names this one as its parent. Releasing
// the category image is best-effort and never blocks the delete.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	hasChildren, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Error checking subcategories", err)
	}
	if hasChildren {
		return apperr.New(apperr.Conflict,
			"Cannot delete category with subcategories. Please delete or reassign subcategories first.")
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeError(err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err)
	}

	eventIDs := make([]uuid.UUID, len(c.Events))
	for i := range c.Events {
		eventIDs[i] = c.Events[i].ID
	}
	s.index.Remove(ctx, eventIDs...)

	s.releaseImage(ctx, c)

	logrus.WithFields(logrus.Fields{
		"category_id": id,
		"events":      len(c.Events),
	}).Info("category deleted")
	return nil
}

func (s *Service) releaseImage(ctx context.Context, c *models.Category) {
	ref := c.Image()
	if s.images == nil || ref.IsZero() {
		return
	}
	if err := s.images.Release(ctx, ref); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"category_id": c.ID,
			"public_id":   ref.PublicID,
			"image_url":   ref.URL,
		}).Warn("failed to release category image")
	}
}

// ReorderResult reports the outcome of a reorder. The batch is not atomic:
// pairs listed in Failed kept their previous display order while the rest
// were applied.
type ReorderResult struct {
	Updated []uuid.UUID
	Failed  map[uuid.UUID]error
}

// ReorderCategories applies every (id, order) pair concurrently. A failing
// pair never stops the others.
func (s *Service) ReorderCategories(ctx context.Context, orderings []models.Ordering) (*ReorderResult, error) {
	var fields []apperr.FieldError
	seen := make(map[uuid.UUID]struct{}, len(orderings))
	for _, o := range orderings {
		if o.ID == uuid.Nil {
			fields = append(fields, apperr.FieldError{Field: "categoryOrders.id", Message: "id is required"})
			break
		}
		if _, dup := seen[o.ID]; dup {
			fields = append(fields, apperr.FieldError{
				Field:   "categoryOrders.id",
				Message: fmt.Sprintf("id %s is listed more than once", o.ID),
			})
			break
		}
		seen[o.ID] = struct{}{}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	errs := make([]error, len(orderings))
	var wg sync.WaitGroup
	for i, o := range orderings {
		wg.Add(1)
		go func(i int, o models.Ordering) {
			defer wg.Done()
			if err := s.repo.SetDisplayOrder(ctx, o.ID, o.DisplayOrder); err != nil {
				errs[i] = storeError(err)
			}
		}(i, o)
	}
	wg.Wait()

	result := &ReorderResult{
		Updated: make([]uuid.UUID, 0, len(orderings)),
		Failed:  make(map[uuid.UUID]error),
	}
	for i, o := range orderings {
		if errs[i] != nil {
			result.Failed[o.ID] = errs[i]
			continue
		}
		result.Updated = append(result.Updated, o.ID)
	}

	if len(result.Failed) > 0 {
		logrus.WithFields(logrus.Fields{
			"updated": len(result.Updated),
			"failed":  len(result.Failed),
		}).Warn("category reorder partially failed")
	}
	return result, nil
}

// checkTitle rejects title when another category already uses it. The
// unique index on the trimmed title backs this up for concurrent writers.
func (s *Service) checkTitle(ctx context.Context, title string, exclude *uuid.UUID) error {
	existing, err := s.repo.FindByTitle(ctx, title, exclude)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Error checking category title", err)
	}
	if existing != nil {
		return apperr.Wrap(apperr.Conflict, duplicateTitleMessage, models.ErrDuplicateTitle)
	}
	return nil
}
