// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"intekcms/internal/apperr"
	"intekcms/internal/models"
	"intekcms/internal/validate"
)

const (
	eventNotFoundMessage           = "Event not found"
	eventNotFoundInCategoryMessage = "Event not found in this category"
)

// ListCategoryEvents returns the embedded events of one category in
// insertion order.
func (s *Service) ListCategoryEvents(ctx context.Context, categoryID uuid.UUID) ([]models.Event, error) {
	c, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		return nil, storeError(err)
	}
	return c.Events, nil
}

// CreateEventInCategory appends a new event to the category and returns it
// as persisted.
func (s *Service) CreateEventInCategory(ctx context.Context, categoryID uuid.UUID, in models.EventInput) (*models.Event, error) {
	in.Trim()
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	return s.appendEvent(ctx, categoryID, in)
}

// UpdateCategoryEvent merges patch into an event of the given category.
func (s *Service) UpdateCategoryEvent(ctx context.Context, categoryID, eventID uuid.UUID, patch models.EventPatch) (*models.Event, error) {
	if err := checkEventPatch(&patch); err != nil {
		return nil, err
	}
	return s.patchEvent(ctx, categoryID, eventID, patch, eventNotFoundInCategoryMessage)
}

// DeleteCategoryEvent removes an event from the given category.
func (s *Service) DeleteCategoryEvent(ctx context.Context, categoryID, eventID uuid.UUID) error {
	return s.removeEvent(ctx, categoryID, eventID, eventNotFoundInCategoryMessage)
}

// CreateEvent is the flat create: the owning category travels in the body.
func (s *Service) CreateEvent(ctx context.Context, in models.LegacyEventInput) (*models.Event, error) {
	in.Trim()
	in.Category = strings.TrimSpace(in.Category)
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	categoryID, err := uuid.Parse(in.Category)
	if err != nil {
		return nil, apperr.Validation(apperr.FieldError{Field: "category", Message: "category must be a valid id"})
	}
	return s.appendEvent(ctx, categoryID, in.EventInput)
}

// ListAllEvents flattens the events of every category that has any, each
// decorated with its owner. Output follows category order, then embedded
// order; callers must not rely on any other global ordering.
func (s *Service) ListAllEvents(ctx context.Context) ([]models.OwnedEvent, error) {
	categories, err := s.repo.ListWithEvents(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Error fetching events", err)
	}

	events := make([]models.OwnedEvent, 0)
	for _, c := range categories {
		owner := models.CategoryRef{ID: c.ID, Title: c.Title}
		for _, e := range c.Events {
			events = append(events, models.OwnedEvent{Event: e, Category: owner})
		}
	}
	return events, nil
}

// GetEventByID finds an event by id alone.
func (s *Service) GetEventByID(ctx context.Context, eventID uuid.UUID) (*models.OwnedEvent, error) {
	c, err := s.owner(ctx, eventID)
	if err != nil {
		return nil, err
	}
	e := c.Events[c.EventIndex(eventID)]
	return &models.OwnedEvent{Event: e, Category: models.CategoryRef{ID: c.ID, Title: c.Title}}, nil
}

// UpdateEventByID merges patch into an event found by id alone. EventPatch
// has no owner field, so the event always stays in its category.
func (s *Service) UpdateEventByID(ctx context.Context, eventID uuid.UUID, patch models.EventPatch) (*models.Event, error) {
	if err := checkEventPatch(&patch); err != nil {
		return nil, err
	}
	c, err := s.owner(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.patchEvent(ctx, c.ID, eventID, patch, eventNotFoundMessage)
}

// DeleteEventByID removes an event found by id alone.
func (s *Service) DeleteEventByID(ctx context.Context, eventID uuid.UUID) error {
	c, err := s.owner(ctx, eventID)
	if err != nil {
		return err
	}
	return s.removeEvent(ctx, c.ID, eventID, eventNotFoundMessage)
}

// owner resolves the category that embeds eventID. The index answers first
// and every hit is checked against the stored document. On a miss the
// store is asked with a containment query; without the GIN index on the
// events column that lookup degrades to a scan of every category.
func (s *Service) owner(ctx context.Context, eventID uuid.UUID) (*models.Category, error) {
	if ownerID, ok := s.index.Lookup(ctx, eventID); ok {
		c, err := s.repo.FindByID(ctx, ownerID)
		switch {
		case err == nil && c.EventIndex(eventID) >= 0:
			return c, nil
		case err != nil && !errors.Is(err, models.ErrCategoryNotFound):
			return nil, storeError(err)
		}
		s.index.Remove(ctx, eventID)
	}

	c, err := s.repo.FindByEventID(ctx, eventID)
	if errors.Is(err, models.ErrCategoryNotFound) {
		return nil, apperr.Wrap(apperr.NotFound, eventNotFoundMessage, models.ErrEventNotFound)
	}
	if err != nil {
		return nil, storeError(err)
	}

	s.index.Put(ctx, eventID, c.ID)
	return c, nil
}

func (s *Service) appendEvent(ctx context.Context, categoryID uuid.UUID, in models.EventInput) (*models.Event, error) {
	now := s.now()
	e := models.Event{
		ID:            uuid.New(),
		Title:         in.Title,
		Description:   in.Description,
		Details:       in.Details,
		ImageURL:      in.ImageURL,
		ImagePublicID: in.ImagePublicID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := s.mutate(ctx, categoryID, func(c *models.Category) error {
		c.Events = append(c.Events, e)
		return nil
	}); err != nil {
		return nil, err
	}

	s.index.Put(ctx, e.ID, categoryID)
	logrus.WithFields(logrus.Fields{"category_id": categoryID, "event_id": e.ID}).Info("event created")
	return &e, nil
}

func (s *Service) patchEvent(ctx context.Context, categoryID, eventID uuid.UUID, patch models.EventPatch, notFound string) (*models.Event, error) {
	var updated models.Event
	_, err := s.mutate(ctx, categoryID, func(c *models.Category) error {
		i := c.EventIndex(eventID)
		if i < 0 {
			return apperr.Wrap(apperr.NotFound, notFound, models.ErrEventNotFound)
		}
		patch.Apply(&c.Events[i])
		c.Events[i].UpdatedAt = s.now()
		updated = c.Events[i]
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"category_id": categoryID, "event_id": eventID}).Info("event updated")
	return &updated, nil
}

func (s *Service) removeEvent(ctx context.Context, categoryID, eventID uuid.UUID, notFound string) error {
	_, err := s.mutate(ctx, categoryID, func(c *models.Category) error {
		i := c.EventIndex(eventID)
		if i < 0 {
			return apperr.Wrap(apperr.NotFound, notFound, models.ErrEventNotFound)
		}
		c.Events = append(c.Events[:i], c.Events[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	s.index.Remove(ctx, eventID)
	logrus.WithFields(logrus.Fields{"category_id": categoryID, "event_id": eventID}).Info("event deleted")
	return nil
}

func checkEventPatch(patch *models.EventPatch) error {
	patch.Trim()
	if err := validate.Struct(patch); err != nil {
		return err
	}
	return validate.RequirePresent("title", patch.Title)
}
