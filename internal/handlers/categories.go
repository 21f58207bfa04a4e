// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"intekcms/internal/apperr"
	"intekcms/internal/models"
)

const categoryNotFound = "Category not found"

// ListCategories handles GET /api/categories. The optional isActive query
// parameter filters by visibility.
func (a *API) ListCategories(w http.ResponseWriter, r *http.Request) {
	var filter models.CategoryFilter
	if v := r.URL.Query().Get("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			a.fail(w, r, apperr.Validation(apperr.FieldError{Field: "isActive", Message: "isActive must be true or false"}))
			return
		}
		filter.IsActive = &active
	}
	a.listCategories(w, r, filter)
}

// ListActiveCategories handles GET /api/categories/active.
func (a *API) ListActiveCategories(w http.ResponseWriter, r *http.Request) {
	active := true
	a.listCategories(w, r, models.CategoryFilter{IsActive: &active})
}

func (a *API) listCategories(w http.ResponseWriter, r *http.Request, filter models.CategoryFilter) {
	categories, err := a.svc.ListCategories(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	okList(w, categories)
}

// GetCategory handles GET /api/categories/{id}.
func (a *API) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", categoryNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	category, err := a.svc.GetCategory(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, category)
}

// CreateCategory handles POST /api/categories.
func (a *API) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryInput
	if err := decode(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	category, err := a.svc.CreateCategory(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/categories/{id}. Only fields present in
// the body change.
func (a *API) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", categoryNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var patch models.CategoryPatch
	if err := decode(w, r, &patch); err != nil {
		a.fail(w, r, err)
		return
	}
	category, err := a.svc.UpdateCategory(r.Context(), id, patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/categories/{id}.
func (a *API) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", categoryNotFound)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.DeleteCategory(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	okMessage(w, "Category deleted successfully", nil)
}

type reorderRequest struct {
	CategoryOrders json.RawMessage `json:"categoryOrders"`
}

type reorderFailure struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

type reorderResponse struct {
	Updated []uuid.UUID      `json:"updated"`
	Failed  []reorderFailure `json:"failed"`
}

// ReorderCategories handles PATCH /api/categories/reorder. Pairs are
// applied independently; when some fail the response is 207 and lists
// them, while the rest keep their new order.
func (a *API) ReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	if len(req.CategoryOrders) == 0 || req.CategoryOrders[0] != '[' {
		a.fail(w, r, &apperr.Error{
			Kind:    apperr.ValidationFailed,
			Message: "categoryOrders must be an array",
			Fields:  []apperr.FieldError{{Field: "categoryOrders", Message: "categoryOrders must be an array"}},
		})
		return
	}
	var orderings []models.Ordering
	if err := json.Unmarshal(req.CategoryOrders, &orderings); err != nil {
		a.fail(w, r, apperr.Wrap(apperr.ValidationFailed, "Each category order needs a valid id and a numeric order", err))
		return
	}

	result, err := a.svc.ReorderCategories(r.Context(), orderings)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	resp := reorderResponse{Updated: result.Updated, Failed: []reorderFailure{}}
	listed := make(map[uuid.UUID]bool, len(result.Failed))
	for _, o := range orderings {
		if ferr, failed := result.Failed[o.ID]; failed && !listed[o.ID] {
			listed[o.ID] = true
			resp.Failed = append(resp.Failed, reorderFailure{ID: o.ID, Message: apperrMessage(ferr)})
		}
	}

	if len(resp.Failed) > 0 {
		writeJSON(w, http.StatusMultiStatus, envelope{
			Success: false,
			Message: "Some categories could not be reordered",
			Data:    resp,
		})
		return
	}
	okMessage(w, "Categories reordered successfully", resp)
}

// apperrMessage returns the user-facing message of err.
func apperrMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
