// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrEventNotFound = errors.New("event not found")

// Event is embedded in its owning Category and has no storage of its own.
// IDs are unique within the owner; nothing enforces global uniqueness.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Details       string    `json:"details"`
	ImageURL      string    `json:"imageUrl"`
	ImagePublicID string    `json:"imagePublicId"`

	// LegacyID is the id of the standalone record this event was migrated
	// from, if any.
	LegacyID *string `json:"legacyId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CategoryRef is a snapshot of the owning category attached to events on
// the flat event listing.
type CategoryRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// OwnedEvent is an event decorated with its owner.
type OwnedEvent struct {
	Event
	Category CategoryRef `json:"category"`
}

// EventInput is the body accepted when appending an event to a category.
type EventInput struct {
	Title         string `json:"title" validate:"required,max=300"`
	Description   string `json:"description" validate:"max=5000"`
	Details       string `json:"details" validate:"max=100000"`
	ImageURL      string `json:"imageUrl" validate:"omitempty,url"`
	ImagePublicID string `json:"imagePublicId" validate:"max=500"`
}

// Trim strips surrounding whitespace from every text field.
func (in *EventInput) Trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Details = strings.TrimSpace(in.Details)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.ImagePublicID = strings.TrimSpace(in.ImagePublicID)
}

// LegacyEventInput is the flat create body, which names the owner inline.
type LegacyEventInput struct {
	EventInput
	Category string `json:"category" validate:"required,uuid"`
}

// EventPatch carries a partial event update. It deliberately has no
// category field, so an event can never change owner through a patch.
type EventPatch struct {
	Title         *string `json:"title" validate:"omitempty,max=300"`
	Description   *string `json:"description" validate:"omitempty,max=5000"`
	Details       *string `json:"details" validate:"omitempty,max=100000"`
	ImageURL      *string `json:"imageUrl" validate:"omitempty,url"`
	ImagePublicID *string `json:"imagePublicId" validate:"omitempty,max=500"`
}

// Trim strips surrounding whitespace from every present text field.
func (p *EventPatch) Trim() {
	trimPtr(p.Title)
	trimPtr(p.Description)
	trimPtr(p.Details)
	trimPtr(p.ImageURL)
	trimPtr(p.ImagePublicID)
}

// Apply merges the present fields of p into e.
func (p *EventPatch) Apply(e *Event) {
	setString(&e.Title, p.Title)
	setString(&e.Description, p.Description)
	setString(&e.Details, p.Details)
	setString(&e.ImageURL, p.ImageURL)
	setString(&e.ImagePublicID, p.ImagePublicID)
}
