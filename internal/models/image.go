// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// ImageRef points at an asset held by the image host. PublicID is the
// host-side identifier used to release the asset later.
type ImageRef struct {
	URL      string `json:"imageUrl"`
	PublicID string `json:"imagePublicId"`
}

// IsZero reports whether no asset is referenced.
func (r ImageRef) IsZero() bool {
	return r.URL == "" && r.PublicID == ""
}
