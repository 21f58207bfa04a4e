// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package migrate moves records from the legacy standalone event table into
// the event lists embedded in their owning categories.
//
// Categories are processed one at a time, never in parallel, so two writers
// never touch the same category. A failed write stops the run; there is no
// checkpoint, and the run is meant to be started again once the cause is
// fixed. Every embedded copy carries the id of the record it came from, which
// is how a rerun recognises work already done.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"intekcms/internal/models"
)

// saveAttempts bounds retries when a category changes under the migration,
// which only happens if the API is serving writes during the run.
const saveAttempts = 3

// Source yields the legacy records to migrate.
type Source interface {
	All(ctx context.Context) ([]*models.LegacyEvent, error)
}

// Target loads and stores categories.
type Target interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Save(ctx context.Context, c *models.Category) error
}

// Mode selects how migrated events combine with a category's existing list.
type Mode string

const (
	// ModeAppend adds migrated events after the existing ones.
	ModeAppend Mode = "append"
	// ModeReplace swaps the existing list for the migrated events.
	ModeReplace Mode = "replace"
)

// ParseMode parses a mode name. The empty string selects ModeAppend.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAppend:
		return ModeAppend, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("unknown migration mode %q (want %q or %q)", s, ModeAppend, ModeReplace)
	}
}

// Options tune a run.
type Options struct {
	Mode Mode

	// AllowDuplicates embeds every record even when a copy of it is
	// already embedded. Each rerun then adds another copy of every event.
	AllowDuplicates bool

	// DryRun computes the summary without writing anything.
	DryRun bool
}

// SkippedCategory is a group of records whose category no longer exists.
type SkippedCategory struct {
	CategoryID uuid.UUID `json:"categoryId"`
	Events     int       `json:"events"`
}

// Summary reports what a run did, or would do under DryRun.
type Summary struct {
	SourceRecords     int               `json:"sourceRecords"`
	CategoriesUpdated int               `json:"categoriesUpdated"`
	EventsEmbedded    int               `json:"eventsEmbedded"`
	AlreadyEmbedded   int               `json:"alreadyEmbedded"`
	Skipped           []SkippedCategory `json:"skippedCategories"`
	DryRun            bool              `json:"dryRun"`
}

// Fields renders the summary for structured logging.
func (s Summary) Fields() logrus.Fields {
	return logrus.Fields{
		"source_records":     s.SourceRecords,
		"categories_updated": s.CategoriesUpdated,
		"events_embedded":    s.EventsEmbedded,
		"already_embedded":   s.AlreadyEmbedded,
		"categories_skipped": len(s.Skipped),
		"dry_run":            s.DryRun,
	}
}

type group struct {
	categoryID uuid.UUID
	records    []*models.LegacyEvent
}

// Run migrates every legacy record into its category. The returned summary
// is valid up to the point of failure when err is non-nil.
func Run(ctx context.Context, src Source, dst Target, opts Options) (Summary, error) {
	summary := Summary{DryRun: opts.DryRun, Skipped: []SkippedCategory{}}
	if opts.Mode == "" {
		opts.Mode = ModeAppend
	}

	records, err := src.All(ctx)
	if err != nil {
		return summary, fmt.Errorf("read legacy events: %w", err)
	}
	summary.SourceRecords = len(records)
	if len(records) == 0 {
		logrus.Info("no legacy events to migrate")
		return summary, nil
	}

	groups := groupByCategory(records)
	logrus.WithFields(logrus.Fields{
		"records":    len(records),
		"categories": len(groups),
		"mode":       opts.Mode,
	}).Info("migrating legacy events")

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := migrateGroup(ctx, dst, g, opts, &summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// groupByCategory buckets records by owner, keeping both the order in which
// owners first appear and the record order within each owner.
func groupByCategory(records []*models.LegacyEvent) []*group {
	var groups []*group
	byID := make(map[uuid.UUID]*group)
	for _, r := range records {
		g, ok := byID[r.CategoryID]
		if !ok {
			g = &group{categoryID: r.CategoryID}
			byID[r.CategoryID] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, r)
	}
	return groups
}

func migrateGroup(ctx context.Context, dst Target, g *group, opts Options, summary *Summary) error {
	log := logrus.WithField("category_id", g.categoryID)

	for attempt := 1; attempt <= saveAttempts; attempt++ {
		c, err := dst.FindByID(ctx, g.categoryID)
		if errors.Is(err, models.ErrCategoryNotFound) {
			log.WithField("events", len(g.records)).Warn("category not found, skipping its legacy events")
			summary.Skipped = append(summary.Skipped, SkippedCategory{CategoryID: g.categoryID, Events: len(g.records)})
			return nil
		}
		if err != nil {
			return fmt.Errorf("load category %s: %w", g.categoryID, err)
		}

		events, embedded, already := merge(c.Events, g.records, opts)
		if embedded == 0 && sameEvents(events, c.Events) {
			log.WithField("already_embedded", already).Info("category already migrated")
			summary.AlreadyEmbedded += already
			return nil
		}

		if !opts.DryRun {
			c.Events = events
			err = dst.Save(ctx, c)
			if errors.Is(err, models.ErrStaleWrite) {
				log.WithField("attempt", attempt).Warn("category changed during migration, retrying")
				continue
			}
			if err != nil {
				return fmt.Errorf("save category %s: %w", g.categoryID, err)
			}
		}

		summary.CategoriesUpdated++
		summary.EventsEmbedded += embedded
		summary.AlreadyEmbedded += already
		log.WithFields(logrus.Fields{
			"title":            c.Title,
			"embedded":         embedded,
			"already_embedded": already,
		}).Info("migrated legacy events into category")
		return nil
	}

	return fmt.Errorf("save category %s: %w", g.categoryID, models.ErrStaleWrite)
}

// merge builds the category's new event list. Records with an embedded copy
// are skipped in append mode and keep their existing copy in replace mode,
// unless duplicates are allowed.
func merge(existing []models.Event, records []*models.LegacyEvent, opts Options) (events []models.Event, embedded, already int) {
	copies := make(map[string]models.Event)
	if !opts.AllowDuplicates {
		for _, e := range existing {
			if e.LegacyID != nil {
				copies[*e.LegacyID] = e
			}
		}
	}

	if opts.Mode == ModeAppend {
		events = append(events, existing...)
	}

	for _, r := range records {
		if prior, ok := copies[r.ID]; ok {
			already++
			if opts.Mode == ModeReplace {
				events = append(events, prior)
			}
			continue
		}
		events = append(events, r.Embedded())
		embedded++
	}

	if events == nil {
		events = []models.Event{}
	}
	return events, embedded, already
}

func sameEvents(a, b []models.Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
