// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"intekcms/internal/models"
)

// memRepo is an in-memory CategoryRepository with the same versioning and
// title uniqueness rules as the Postgres store. Every read hands out a deep
// copy, so callers mutate their own snapshot like they would a decoded row.
type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Category
	seq  int

	// beforeSave runs once per Save call, outside the lock, before the
	// version check. Tests use it to interleave a competing writer.
	beforeSave func(c *models.Category)

	failOrder map[uuid.UUID]error
	failList  error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]*models.Category), failOrder: make(map[uuid.UUID]error)}
}

func clone(c *models.Category) *models.Category {
	cp := *c
	cp.Events = append([]models.Event{}, c.Events...)
	if c.ParentID != nil {
		p := *c.ParentID
		cp.ParentID = &p
	}
	return &cp
}

func (r *memRepo) sorted(keep func(*models.Category) bool) []*models.Category {
	out := make([]*models.Category, 0, len(r.rows))
	for _, c := range r.rows {
		if keep(c) {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func (r *memRepo) List(_ context.Context, filter models.CategoryFilter) ([]*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, r.failList
	}
	return r.sorted(func(c *models.Category) bool {
		return filter.IsActive == nil || c.IsActive == *filter.IsActive
	}), nil
}

func (r *memRepo) ListWithEvents(context.Context) ([]*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, r.failList
	}
	return r.sorted(func(c *models.Category) bool { return len(c.Events) > 0 }), nil
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, models.ErrCategoryNotFound
	}
	return clone(c), nil
}

func (r *memRepo) FindByTitle(_ context.Context, title string, exclude *uuid.UUID) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.titleOwner(title, exclude); c != nil {
		return clone(c), nil
	}
	return nil, nil
}

func (r *memRepo) titleOwner(title string, exclude *uuid.UUID) *models.Category {
	for _, c := range r.rows {
		if exclude != nil && c.ID == *exclude {
			continue
		}
		if strings.TrimSpace(c.Title) == strings.TrimSpace(title) {
			return c
		}
	}
	return nil
}

func (r *memRepo) FindByEventID(_ context.Context, eventID uuid.UUID) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.sorted(func(*models.Category) bool { return true }) {
		if c.EventIndex(eventID) >= 0 {
			return c, nil
		}
	}
	return nil, models.ErrCategoryNotFound
}

func (r *memRepo) HasChildren(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.ParentID != nil && *c.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) Create(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.titleOwner(c.Title, nil) != nil {
		return models.ErrDuplicateTitle
	}
	r.seq++
	c.ID = uuid.New()
	c.Version = 1
	c.CreatedAt = time.Date(2026, 1, 1, 0, 0, r.seq, 0, time.UTC)
	c.UpdatedAt = c.CreatedAt
	r.rows[c.ID] = clone(c)
	return nil
}

func (r *memRepo) Save(_ context.Context, c *models.Category) error {
	if r.beforeSave != nil {
		r.beforeSave(c)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[c.ID]
	if !ok {
		return models.ErrCategoryNotFound
	}
	if stored.Version != c.Version {
		return models.ErrStaleWrite
	}
	if r.titleOwner(c.Title, &c.ID) != nil {
		return models.ErrDuplicateTitle
	}
	c.Version++
	c.UpdatedAt = time.Now()
	r.rows[c.ID] = clone(c)
	return nil
}

func (r *memRepo) SetDisplayOrder(_ context.Context, id uuid.UUID, order int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOrder[id]; err != nil {
		return err
	}
	c, ok := r.rows[id]
	if !ok {
		return models.ErrCategoryNotFound
	}
	c.DisplayOrder = order
	c.Version++
	return nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return models.ErrCategoryNotFound
	}
	delete(r.rows, id)
	return nil
}

// memIndex is an in-memory EventIndex that counts lookups.
type memIndex struct {
	mu      sync.Mutex
	owners  map[uuid.UUID]uuid.UUID
	lookups int
	hits    int
}

func newMemIndex() *memIndex {
	return &memIndex{owners: make(map[uuid.UUID]uuid.UUID)}
}

func (x *memIndex) Lookup(_ context.Context, eventID uuid.UUID) (uuid.UUID, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.lookups++
	owner, ok := x.owners[eventID]
	if ok {
		x.hits++
	}
	return owner, ok
}

func (x *memIndex) Put(_ context.Context, eventID, categoryID uuid.UUID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.owners[eventID] = categoryID
}

func (x *memIndex) Remove(_ context.Context, eventIDs ...uuid.UUID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range eventIDs {
		delete(x.owners, id)
	}
}

func (x *memIndex) Rebuild(_ context.Context, categories []*models.Category) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.owners = make(map[uuid.UUID]uuid.UUID)
	for _, c := range categories {
		for _, e := range c.Events {
			x.owners[e.ID] = c.ID
		}
	}
	return len(x.owners), nil
}

func (x *memIndex) owner(eventID uuid.UUID) (uuid.UUID, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	id, ok := x.owners[eventID]
	return id, ok
}

// fakeImages records released assets and can be told to fail.
type fakeImages struct {
	mu       sync.Mutex
	released []string
	refs     []models.ImageRef
	err      error
}

func (f *fakeImages) Release(_ context.Context, ref models.ImageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.refs = append(f.refs, ref)
	if ref.PublicID != "" {
		f.released = append(f.released, ref.PublicID)
	}
	return nil
}

var errBoom = errors.New("boom")
