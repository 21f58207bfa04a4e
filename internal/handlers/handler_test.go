// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"intekcms/internal/apperr"
	"intekcms/internal/catalog"
	"intekcms/internal/models"
)

// fakeService records the arguments it receives and returns canned
// results. Methods a test does not set fall through to the embedded nil
// interface and panic.
type fakeService struct {
	CategoryService

	err error

	gotFilter   models.CategoryFilter
	gotID       uuid.UUID
	gotEventID  uuid.UUID
	gotInput    models.CategoryInput
	gotPatch    models.CategoryPatch
	gotEvent    models.EventInput
	gotLegacy   models.LegacyEventInput
	gotEvPatch  models.EventPatch
	gotOrders   []models.Ordering
	categories  []*models.Category
	events      []models.Event
	owned       []models.OwnedEvent
	reorder     *catalog.ReorderResult
	deleteCalls int
}

func (f *fakeService) ListCategories(_ context.Context, filter models.CategoryFilter) ([]*models.Category, error) {
	f.gotFilter = filter
	return f.categories, f.err
}

func (f *fakeService) GetCategory(_ context.Context, id uuid.UUID) (*models.Category, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: id, Title: "Robotics"}, nil
}

func (f *fakeService) CreateCategory(_ context.Context, in models.CategoryInput) (*models.Category, error) {
	f.gotInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: uuid.New(), Title: in.Title, Events: []models.Event{}}, nil
}

func (f *fakeService) UpdateCategory(_ context.Context, id uuid.UUID, patch models.CategoryPatch) (*models.Category, error) {
	f.gotID, f.gotPatch = id, patch
	if f.err != nil {
		return nil, f.err
	}
	c := &models.Category{ID: id}
	patch.Apply(c)
	return c, nil
}

func (f *fakeService) DeleteCategory(_ context.Context, id uuid.UUID) error {
	f.gotID = id
	f.deleteCalls++
	return f.err
}

func (f *fakeService) ReorderCategories(_ context.Context, orderings []models.Ordering) (*catalog.ReorderResult, error) {
	f.gotOrders = orderings
	if f.err != nil {
		return nil, f.err
	}
	if f.reorder != nil {
		return f.reorder, nil
	}
	res := &catalog.ReorderResult{Failed: map[uuid.UUID]error{}}
	for _, o := range orderings {
		res.Updated = append(res.Updated, o.ID)
	}
	return res, nil
}

func (f *fakeService) ListCategoryEvents(_ context.Context, id uuid.UUID) ([]models.Event, error) {
	f.gotID = id
	return f.events, f.err
}

func (f *fakeService) CreateEventInCategory(_ context.Context, id uuid.UUID, in models.EventInput) (*models.Event, error) {
	f.gotID, f.gotEvent = id, in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Event{ID: uuid.New(), Title: in.Title}, nil
}

func (f *fakeService) UpdateCategoryEvent(_ context.Context, categoryID, eventID uuid.UUID, patch models.EventPatch) (*models.Event, error) {
	f.gotID, f.gotEventID, f.gotEvPatch = categoryID, eventID, patch
	if f.err != nil {
		return nil, f.err
	}
	e := &models.Event{ID: eventID}
	patch.Apply(e)
	return e, nil
}

func (f *fakeService) DeleteCategoryEvent(_ context.Context, categoryID, eventID uuid.UUID) error {
	f.gotID, f.gotEventID = categoryID, eventID
	return f.err
}

func (f *fakeService) CreateEvent(_ context.Context, in models.LegacyEventInput) (*models.Event, error) {
	f.gotLegacy = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Event{ID: uuid.New(), Title: in.Title}, nil
}

func (f *fakeService) ListAllEvents(context.Context) ([]models.OwnedEvent, error) {
	return f.owned, f.err
}

func (f *fakeService) GetEventByID(_ context.Context, id uuid.UUID) (*models.OwnedEvent, error) {
	f.gotEventID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.OwnedEvent{
		Event:    models.Event{ID: id, Title: "Launch"},
		Category: models.CategoryRef{ID: uuid.New(), Title: "Robotics"},
	}, nil
}

func (f *fakeService) UpdateEventByID(_ context.Context, id uuid.UUID, patch models.EventPatch) (*models.Event, error) {
	f.gotEventID, f.gotEvPatch = id, patch
	if f.err != nil {
		return nil, f.err
	}
	e := &models.Event{ID: id}
	patch.Apply(e)
	return e, nil
}

func (f *fakeService) DeleteEventByID(_ context.Context, id uuid.UUID) error {
	f.gotEventID = id
	return f.err
}

type fakeUploader struct {
	err     error
	gotName string
	gotType string
	gotBody []byte
	gotSize int64
}

func (u *fakeUploader) Upload(_ context.Context, filename, contentType string, body io.Reader, size int64) (models.ImageRef, error) {
	u.gotName, u.gotType, u.gotSize = filename, contentType, size
	data, err := io.ReadAll(body)
	if err != nil {
		return models.ImageRef{}, err
	}
	u.gotBody = data
	if u.err != nil {
		return models.ImageRef{}, u.err
	}
	return models.ImageRef{URL: "https://cdn.example.com/intek/" + filename, PublicID: "intek/" + filename}, nil
}

// testMux mounts the handlers on the same paths the router uses, without
// authentication.
func testMux(a *API) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", a.Health)
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", a.ListCategories)
		r.Get("/active", a.ListActiveCategories)
		r.Post("/", a.CreateCategory)
		r.Patch("/reorder", a.ReorderCategories)
		r.Get("/{id}", a.GetCategory)
		r.Put("/{id}", a.UpdateCategory)
		r.Delete("/{id}", a.DeleteCategory)
		r.Get("/{id}/events", a.ListCategoryEvents)
		r.Post("/{id}/events", a.CreateCategoryEvent)
		r.Put("/{categoryId}/events/{eventId}", a.UpdateCategoryEvent)
		r.Delete("/{categoryId}/events/{eventId}", a.DeleteCategoryEvent)
	})
	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", a.ListEvents)
		r.Post("/", a.CreateEvent)
		r.Get("/{id}", a.GetEvent)
		r.Put("/{id}", a.UpdateEvent)
		r.Delete("/{id}", a.DeleteEvent)
	})
	r.Post("/api/upload", a.UploadImage)
	return r
}

type response struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Count   *int                `json:"count"`
	Data    json.RawMessage     `json:"data"`
	Errors  []apperr.FieldError `json:"errors"`
	Stack   string              `json:"stack"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "body: %s", rr.Body.String())
	return rr, resp
}

func decodeData[T any](t *testing.T, resp response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

var errBoom = errors.New("connection reset by peer")
