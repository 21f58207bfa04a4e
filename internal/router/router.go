// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up the HTTP routes and middleware chains of the
// intekcms API. Reads and sign-in are public; every write requires the
// bearer token of an active admin account.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"intekcms/internal/handlers"
	"intekcms/internal/middleware"
)

// New creates the configured chi router. limiter throttles sign-in attempts
// per client and admin writes and uploads per caller. It may be nil.
func New(api *handlers.API, accounts *handlers.Auth, auth *middleware.Authenticator, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.NotFound(jsonStatus(http.StatusNotFound, "Route not found"))
	r.MethodNotAllowed(jsonStatus(http.StatusMethodNotAllowed, "Method not allowed"))

	r.Get("/health", api.Health)

	admin := func(r chi.Router) chi.Router {
		r = r.With(auth.RequireAdmin)
		if limiter != nil {
			r = r.With(limiter.Middleware)
		}
		return r
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if limiter != nil {
				r.With(limiter.Middleware).Post("/login", accounts.Login)
			} else {
				r.Post("/login", accounts.Login)
			}

			r.Group(func(r chi.Router) {
				r = admin(r)
				r.Get("/verify", accounts.Verify)
				r.Post("/register", accounts.Register)
				r.Put("/update-credentials", accounts.UpdateCredentials)
				r.Post("/2fa/setup", accounts.SetupTwoFactor)
				r.Post("/2fa/enable", accounts.EnableTwoFactor)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", api.ListCategories)
			r.Get("/active", api.ListActiveCategories)
			r.Get("/{id}", api.GetCategory)
			r.Get("/{id}/events", api.ListCategoryEvents)

			r.Group(func(r chi.Router) {
				r = admin(r)
				r.Post("/", api.CreateCategory)
				r.Patch("/reorder", api.ReorderCategories)
				r.Put("/{id}", api.UpdateCategory)
				r.Delete("/{id}", api.DeleteCategory)

				r.Post("/{id}/events", api.CreateCategoryEvent)
				r.Put("/{categoryId}/events/{eventId}", api.UpdateCategoryEvent)
				r.Delete("/{categoryId}/events/{eventId}", api.DeleteCategoryEvent)
			})
		})

		// Flat event API kept for older clients.
		r.Route("/events", func(r chi.Router) {
			r.Get("/", api.ListEvents)
			r.Get("/{id}", api.GetEvent)

			r.Group(func(r chi.Router) {
				r = admin(r)
				r.Post("/", api.CreateEvent)
				r.Put("/{id}", api.UpdateEvent)
				r.Delete("/{id}", api.DeleteEvent)
			})
		})

		admin(r).Post("/upload", api.UploadImage)
	})

	return r
}

// jsonStatus answers with the API's failure envelope.
func jsonStatus(status int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": message,
		})
	}
}
