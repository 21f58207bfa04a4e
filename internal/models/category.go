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

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrDuplicateTitle   = errors.New("category title already in use")

	// ErrStaleWrite is returned by a versioned save when the stored document
	// changed after it was read.
	ErrStaleWrite = errors.New("category was modified concurrently")
)

// Category is the aggregate that owns an ordered list of embedded events.
// The whole document, events included, is written back on every mutation.
type Category struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Title            string     `db:"title" json:"title"`
	Slug             string     `db:"slug" json:"slug"`
	ShortDescription string     `db:"short_description" json:"shortDescription"`
	Description      string     `db:"description" json:"description"`
	ImageURL         string     `db:"image_url" json:"imageUrl"`
	ImagePublicID    string     `db:"image_public_id" json:"imagePublicId"`
	IsActive         bool       `db:"is_active" json:"isActive"`
	DisplayOrder     int        `db:"display_order" json:"displayOrder"`
	MetaTitle        string     `db:"meta_title" json:"metaTitle"`
	MetaDescription  string     `db:"meta_description" json:"metaDescription"`
	ParentID         *uuid.UUID `db:"parent_id" json:"parentCategory"`
	Events           []Event    `db:"events" json:"events"`
	Version          int64      `db:"version" json:"version"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// EventIndex returns the position of the embedded event with the given id,
// or -1.
func (c *Category) EventIndex(eventID uuid.UUID) int {
	for i := range c.Events {
		if c.Events[i].ID == eventID {
			return i
		}
	}
	return -1
}

// Image returns the category image reference.
func (c *Category) Image() ImageRef {
	return ImageRef{URL: c.ImageURL, PublicID: c.ImagePublicID}
}

// CategoryFilter narrows a category listing. A nil IsActive matches both.
type CategoryFilter struct {
	IsActive *bool
}

// CategoryInput is the body accepted when creating a category. Any slug the
// client sends is not part of the input and is therefore dropped.
type CategoryInput struct {
	Title            string       `json:"title" validate:"required,max=300"`
	ShortDescription string       `json:"shortDescription" validate:"max=1000"`
	Description      string       `json:"description" validate:"max=100000"`
	ImageURL         string       `json:"imageUrl" validate:"omitempty,url"`
	ImagePublicID    string       `json:"imagePublicId" validate:"max=500"`
	IsActive         *bool        `json:"isActive"`
	DisplayOrder     int          `json:"displayOrder"`
	MetaTitle        string       `json:"metaTitle" validate:"max=300"`
	MetaDescription  string       `json:"metaDescription" validate:"max=500"`
	ParentID         NullableUUID `json:"parentCategory"`
}

// CategoryPatch carries a partial category update. Nil pointers are absent
// fields and leave the stored value untouched.
type CategoryPatch struct {
	Title            *string      `json:"title" validate:"omitempty,max=300"`
	ShortDescription *string      `json:"shortDescription" validate:"omitempty,max=1000"`
	Description      *string      `json:"description" validate:"omitempty,max=100000"`
	ImageURL         *string      `json:"imageUrl" validate:"omitempty,url"`
	ImagePublicID    *string      `json:"imagePublicId" validate:"omitempty,max=500"`
	IsActive         *bool        `json:"isActive"`
	DisplayOrder     *int         `json:"displayOrder"`
	MetaTitle        *string      `json:"metaTitle" validate:"omitempty,max=300"`
	MetaDescription  *string      `json:"metaDescription" validate:"omitempty,max=500"`
	ParentID         NullableUUID `json:"parentCategory"`
}

// Apply merges the present fields of p into c.
func (p *CategoryPatch) Apply(c *Category) {
	setString(&c.Title, p.Title)
	setString(&c.ShortDescription, p.ShortDescription)
	setString(&c.Description, p.Description)
	setString(&c.ImageURL, p.ImageURL)
	setString(&c.ImagePublicID, p.ImagePublicID)
	setString(&c.MetaTitle, p.MetaTitle)
	setString(&c.MetaDescription, p.MetaDescription)
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.DisplayOrder != nil {
		c.DisplayOrder = *p.DisplayOrder
	}
	if p.ParentID.Set {
		c.ParentID = p.ParentID.Value
	}
}

// Trim strips surrounding whitespace from every text field.
func (in *CategoryInput) Trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.ShortDescription = strings.TrimSpace(in.ShortDescription)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.ImagePublicID = strings.TrimSpace(in.ImagePublicID)
	in.MetaTitle = strings.TrimSpace(in.MetaTitle)
	in.MetaDescription = strings.TrimSpace(in.MetaDescription)
}

// Trim strips surrounding whitespace from every present text field.
func (p *CategoryPatch) Trim() {
	trimPtr(p.Title)
	trimPtr(p.ShortDescription)
	trimPtr(p.Description)
	trimPtr(p.ImageURL)
	trimPtr(p.ImagePublicID)
	trimPtr(p.MetaTitle)
	trimPtr(p.MetaDescription)
}

// Ordering assigns a display order to one category.
type Ordering struct {
	ID           uuid.UUID `json:"id"`
	DisplayOrder int       `json:"order"`
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func trimPtr(v *string) {
	if v != nil {
		*v = strings.TrimSpace(*v)
	}
}
