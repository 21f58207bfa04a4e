// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"intekcms/internal/models"
)

const (
	eventNotFound         = "Event not found"
	categoryEventNotFound = "Event not found in this category"
)

// ListCategoryEvents handles GET /api/categories/{id}/events.
func (a *API) ListCategoryEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", categoryNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	events, err := a.svc.ListCategoryEvents(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	okList(w, events)
}

// CreateCategoryEvent handles POST /api/categories/{id}/events.
func (a *API) CreateCategoryEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", categoryNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var in models.EventInput
	if err := decode(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	event, err := a.svc.CreateEventInCategory(r.Context(), id, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, event)
}

// UpdateCategoryEvent handles PUT /api/categories/{categoryId}/events/{eventId}.
func (a *API) UpdateCategoryEvent(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "categoryId", categoryNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	eventID, err := pathID(r, "eventId", categoryEventNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var patch models.EventPatch
	if err := decode(w, r, &patch); err != nil {
		a.fail(w, r, err)
		return
	}
	event, err := a.svc.UpdateCategoryEvent(r.Context(), categoryID, eventID, patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, event)
}

// DeleteCategoryEvent handles DELETE /api/categories/{categoryId}/events/{eventId}.
func (a *API) DeleteCategoryEvent(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "categoryId", categoryNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	eventID, err := pathID(r, "eventId", categoryEventNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.DeleteCategoryEvent(r.Context(), categoryID, eventID); err != nil {
		a.fail(w, r, err)
		return
	}
	okMessage(w, "Event deleted successfully", nil)
}

// The handlers below serve the flat event API kept for older clients.
// Events are addressed by id alone; the owning category is resolved by
// the service.

// CreateEvent handles POST /api/events. The body names the owning
// category in its category field.
func (a *API) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in models.LegacyEventInput
	if err := decode(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	event, err := a.svc.CreateEvent(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, event)
}

// ListEvents handles GET /api/events.
func (a *API) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := a.svc.ListAllEvents(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	okList(w, events)
}

// GetEvent handles GET /api/events/{id}.
func (a *API) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", eventNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	event, err := a.svc.GetEventByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /api/events/{id}. A category field in the body
// is ignored; events cannot move between categories.
func (a *API) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", eventNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var patch models.EventPatch
	if err := decode(w, r, &patch); err != nil {
		a.fail(w, r, err)
		return
	}
	event, err := a.svc.UpdateEventByID(r.Context(), id, patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	okMessage(w, "Event updated successfully", event)
}

// DeleteEvent handles DELETE /api/events/{id}.
func (a *API) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", eventNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.DeleteEventByID(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	okMessage(w, "Event deleted successfully", nil)
}
