// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings
// and the opaque placeholder slugs stored on categories.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	legacyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	legacySuffix   = 7
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, or space.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.ReplaceAll(result, " ", "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// Legacy returns a placeholder category slug such as
// "cat-1760781600000-k3j9x0a". Category slugs are kept for older clients
// only; nothing looks categories up by slug or requires it to be unique.
func Legacy() string {
	return LegacyAt(time.Now())
}

// LegacyAt is Legacy with an explicit clock.
func LegacyAt(t time.Time) string {
	return fmt.Sprintf("cat-%d-%s", t.UnixMilli(), gonanoid.MustGenerate(legacyAlphabet, legacySuffix))
}
