// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"intekcms/internal/models"
)

const (
	// eventKeyPrefix is the Valkey key prefix for event ownership entries.
	eventKeyPrefix = "event:owner:"

	// DefaultEventTTL bounds how long an ownership entry survives without
	// being refreshed.
	DefaultEventTTL = 24 * time.Hour
)

// EventIndex maps embedded event ids to the id of the owning category.
// It is advisory: callers must verify a hit against the category and fall
// back to the store on a miss. Valkey errors are logged and reported as
// misses so the index can never fail a request.
type EventIndex struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventIndex creates an event index backed by the given Valkey client.
func NewEventIndex(client *redis.Client, ttl time.Duration) *EventIndex {
	if ttl == 0 {
		ttl = DefaultEventTTL
	}
	return &EventIndex{client: client, ttl: ttl}
}

func eventKey(eventID uuid.UUID) string {
	return eventKeyPrefix + eventID.String()
}

// Lookup returns the recorded owner of eventID.
func (x *EventIndex) Lookup(ctx context.Context, eventID uuid.UUID) (uuid.UUID, bool) {
	val, err := x.client.Get(ctx, eventKey(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false
	}
	if err != nil {
		logrus.WithError(err).WithField("event_id", eventID).Warn("event index get error")
		return uuid.Nil, false
	}

	owner, err := uuid.Parse(val)
	if err != nil {
		logrus.WithField("event_id", eventID).Warn("event index holds malformed owner, dropping")
		x.Remove(ctx, eventID)
		return uuid.Nil, false
	}
	return owner, true
}

// Put records categoryID as the owner of eventID.
func (x *EventIndex) Put(ctx context.Context, eventID, categoryID uuid.UUID) {
	if err := x.client.Set(ctx, eventKey(eventID), categoryID.String(), x.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("event_id", eventID).Warn("event index set error")
	}
}

// Remove forgets the given events.
func (x *EventIndex) Remove(ctx context.Context, eventIDs ...uuid.UUID) {
	if len(eventIDs) == 0 {
		return
	}
	keys := make([]string, len(eventIDs))
	for i, id := range eventIDs {
		keys[i] = eventKey(id)
	}
	if err := x.client.Del(ctx, keys...).Err(); err != nil {
		logrus.WithError(err).WithField("events", len(eventIDs)).Warn("event index delete error")
	}
}

// Rebuild clears the index and repopulates it from the given categories.
// It returns the number of entries written.
func (x *EventIndex) Rebuild(ctx context.Context, categories []*models.Category) (int, error) {
	if err := x.clear(ctx); err != nil {
		return 0, err
	}

	pipe := x.client.Pipeline()
	written := 0
	for _, c := range categories {
		for _, e := range c.Events {
			pipe.Set(ctx, eventKey(e.ID), c.ID.String(), x.ttl)
			written++
		}
	}
	if written == 0 {
		return 0, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	logrus.WithField("entries", written).Info("event index rebuilt")
	return written, nil
}

func (x *EventIndex) clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := x.client.Scan(ctx, cursor, eventKeyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := x.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
