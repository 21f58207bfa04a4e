// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON REST API. Every response uses the
// same envelope: success, an optional message, data with an optional count,
// and on failure the failing fields. In development the "stack" key carries
// the wrapped error chain (each layer's message down to the root cause); it
// is not a goroutine stack trace.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"intekcms/internal/apperr"
	"intekcms/internal/catalog"
	"intekcms/internal/models"
)

// maxBodySize caps JSON request bodies. Category descriptions are long
// rich text, so this is generous.
const maxBodySize = 2 << 20

// CategoryService is the catalog API the handlers depend on. It is
// satisfied by *catalog.Service.
type CategoryService interface {
	ListCategories(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, patch models.CategoryPatch) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ReorderCategories(ctx context.Context, orderings []models.Ordering) (*catalog.ReorderResult, error)

	ListCategoryEvents(ctx context.Context, categoryID uuid.UUID) ([]models.Event, error)
	CreateEventInCategory(ctx context.Context, categoryID uuid.UUID, in models.EventInput) (*models.Event, error)
	UpdateCategoryEvent(ctx context.Context, categoryID, eventID uuid.UUID, patch models.EventPatch) (*models.Event, error)
	DeleteCategoryEvent(ctx context.Context, categoryID, eventID uuid.UUID) error

	CreateEvent(ctx context.Context, in models.LegacyEventInput) (*models.Event, error)
	ListAllEvents(ctx context.Context) ([]models.OwnedEvent, error)
	GetEventByID(ctx context.Context, eventID uuid.UUID) (*models.OwnedEvent, error)
	UpdateEventByID(ctx context.Context, eventID uuid.UUID, patch models.EventPatch) (*models.Event, error)
	DeleteEventByID(ctx context.Context, eventID uuid.UUID) error
}

// ImageUploader stores uploaded images. It is satisfied by *storage.Client.
type ImageUploader interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader, size int64) (models.ImageRef, error)
}

// API groups the REST handlers and their dependencies.
type API struct {
	svc     CategoryService
	images  ImageUploader
	dev     bool
	env     string
	started time.Time
	checks  map[string]func(context.Context) error
}

// New creates the API handlers. images may be nil when no image host is
// configured; uploads then answer 503.
func New(svc CategoryService, images ImageUploader, env string) *API {
	return &API{
		svc:     svc,
		images:  images,
		dev:     env == "development",
		env:     env,
		started: time.Now(),
		checks:  make(map[string]func(context.Context) error),
	}
}

// AddHealthCheck registers a dependency check reported by Health.
func (a *API) AddHealthCheck(name string, check func(context.Context) error) {
	a.checks[name] = check
}

// envelope is the body of every API response.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Count   *int                `json:"count,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	// Stack holds the error chain, development only.
	Stack string `json:"stack,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Warn("encode response")
	}
}

func ok(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func okList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: &n, Data: items})
}

func okMessage(w http.ResponseWriter, msg string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msg, Data: data})
}

// fail maps err to its status and writes the failure envelope. Internal
// errors are logged. In development the full wrapped chain of err is sent
// under "stack" so the cause behind a generic message is visible.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	fail(w, r, err, a.dev)
}

func fail(w http.ResponseWriter, r *http.Request, err error, dev bool) {
	body := envelope{Message: "Internal server error"}
	status := http.StatusInternalServerError

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status = appErr.Kind.Status()
		body.Message = appErr.Message
		body.Errors = appErr.Fields
	}

	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": status,
		}).WithError(err).Error("request failed")
	}
	if dev {
		// apperr.Error and fmt.Errorf both render "outer: ...: root cause".
		body.Stack = err.Error()
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into dst. Malformed bodies become validation
// errors carrying the decoder's explanation.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.New(apperr.ValidationFailed, "Request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.ValidationFailed, "Request body is required")
		}
		return apperr.Wrap(apperr.ValidationFailed, "Invalid request body", err)
	}
	return nil
}

// pathID parses a uuid path parameter. Malformed ids cannot match any
// document, so they answer 404 with the resource's not-found message.
func pathID(r *http.Request, param, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.NotFound, notFound)
	}
	return id, nil
}
