// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NullableUUID distinguishes an absent JSON field from an explicit null.
// Set is true whenever the key appeared in the document; Value is nil for
// null or an empty string.
type NullableUUID struct {
	Set   bool
	Value *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	n.Set = true
	n.Value = nil
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parent category must be a string id: %w", err)
	}
	if s == "" {
		return nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("parent category %q is not a valid id: %w", s, err)
	}
	n.Value = &id
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n NullableUUID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value.String())
}
