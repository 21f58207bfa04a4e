// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// LegacyEvent is a row of the deprecated standalone event table. It is
// only read by the embedding migration.
type LegacyEvent struct {
	ID            string    `db:"id"`
	CategoryID    uuid.UUID `db:"category_id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	Details       string    `db:"details"`
	ImageURL      string    `db:"image_url"`
	ImagePublicID string    `db:"image_public_id"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Embedded converts the record into an embedded event with a fresh id. The
// owner reference is dropped and the original timestamps are kept.
func (l *LegacyEvent) Embedded() Event {
	origin := l.ID
	return Event{
		ID:            uuid.New(),
		Title:         l.Title,
		Description:   l.Description,
		Details:       l.Details,
		ImageURL:      l.ImageURL,
		ImagePublicID: l.ImagePublicID,
		LegacyID:      &origin,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}
