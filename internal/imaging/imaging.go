// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging prepares uploaded images for the image host: oversized
// images are scaled down to fit the site's largest layout and re-encoded,
// and every image is checked against decompression bombs.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp" // register WebP decoder
	"golang.org/x/image/draw"
)

const (
	// MaxDimension is the longest edge kept after optimisation.
	MaxDimension = 1920

	jpegQuality = 80

	// maxPixels caps decoded size. 10000x10000 is ~400 MB as RGBA.
	maxPixels = 100_000_000
)

// ErrTooManyPixels is returned for images whose declared size exceeds the
// decode budget.
var ErrTooManyPixels = errors.New("image dimensions are too large")

// Result is an optimised image ready for upload.
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Resized     bool
}

// Optimize prepares data of the given sniffed content type for upload.
// GIFs pass through untouched to keep animation. WebP cannot be encoded
// here, so an oversized WebP comes back as JPEG; callers must use the
// returned content type.
func Optimize(data []byte, contentType string) (*Result, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("imaging: %dx%d: %w", cfg.Width, cfg.Height, ErrTooManyPixels)
	}

	orig := &Result{Data: data, ContentType: contentType, Width: cfg.Width, Height: cfg.Height}
	if format == "gif" {
		return orig, nil
	}

	w, h := fit(cfg.Width, cfg.Height, MaxDimension)
	resize := w != cfg.Width || h != cfg.Height
	if !resize && format == "webp" {
		return orig, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode %s: %w", format, err)
	}

	if resize {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		img = dst
	}

	out := &Result{Width: w, Height: h, Resized: resize}
	var buf bytes.Buffer
	switch format {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
		out.ContentType = "image/png"
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
		out.ContentType = "image/jpeg"
	}
	if err != nil {
		return nil, fmt.Errorf("imaging: encode %s: %w", out.ContentType, err)
	}
	out.Data = buf.Bytes()

	// Re-encoding an already small image can make it bigger.
	if !resize && len(out.Data) >= len(data) {
		return orig, nil
	}
	return out, nil
}

// fit scales w x h down to fit inside limit x limit, keeping the aspect
// ratio. Images that already fit are returned unchanged.
func fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, scaled(h, limit, w)
	}
	return scaled(w, limit, h), limit
}

func scaled(side, target, long int) int {
	n := int(float64(side)*float64(target)/float64(long) + 0.5)
	if n < 1 {
		return 1
	}
	return n
}

// Extension returns the file extension for an image content type.
func Extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
