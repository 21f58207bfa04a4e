// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"intekcms/internal/apperr"
	"intekcms/internal/imaging"
)

// maxUploadSize is the largest accepted image (10 MB).
const maxUploadSize = 10 << 20

// uploadRetryAfter is the hint, in seconds, sent when the image host fails.
const uploadRetryAfter = "5"

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type uploadResponse struct {
	URL         string `json:"url"`
	PublicID    string `json:"publicId"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// UploadImage handles POST /api/upload. The multipart field "image" is
// type-checked by content sniffing, scaled down when oversized and stored on
// the image host; the response carries the public URL and the asset id to
// save alongside it.
func (a *API) UploadImage(w http.ResponseWriter, r *http.Request) {
	if a.images == nil {
		writeJSON(w, http.StatusServiceUnavailable, envelope{Message: "Image uploads are not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.fail(w, r, apperr.New(apperr.ValidationFailed, "File too large. Maximum size is 10MB."))
			return
		}
		a.fail(w, r, apperr.Wrap(apperr.ValidationFailed, "No file uploaded", err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		a.fail(w, r, apperr.Validation(apperr.FieldError{Field: "image", Message: "No file uploaded"}))
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		a.fail(w, r, apperr.New(apperr.ValidationFailed, "File too large. Maximum size is 10MB."))
		return
	}

	sniff := make([]byte, 512)
	n, err := file.Read(sniff)
	if err != nil && err != io.EOF {
		a.fail(w, r, apperr.Wrap(apperr.Internal, "Failed to read file", err))
		return
	}
	contentType := http.DetectContentType(sniff[:n])
	if !allowedImageTypes[contentType] {
		a.fail(w, r, apperr.New(apperr.ValidationFailed, "Invalid file type. Only JPEG, PNG, GIF and WEBP are allowed."))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		a.fail(w, r, apperr.Wrap(apperr.Internal, "Failed to read file", err))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		a.fail(w, r, apperr.Wrap(apperr.Internal, "Failed to read file", err))
		return
	}

	img, err := imaging.Optimize(data, contentType)
	if err != nil {
		if errors.Is(err, imaging.ErrTooManyPixels) {
			a.fail(w, r, apperr.Wrap(apperr.ValidationFailed, "Image dimensions are too large", err))
			return
		}
		a.fail(w, r, apperr.Wrap(apperr.ValidationFailed, "The file is not a readable image", err))
		return
	}

	filename := header.Filename
	if img.ContentType != contentType {
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + imaging.Extension(img.ContentType)
	}

	ref, err := a.images.Upload(r.Context(), filename, img.ContentType, bytes.NewReader(img.Data), int64(len(img.Data)))
	if err != nil {
		w.Header().Set("Retry-After", uploadRetryAfter)
		a.fail(w, r, apperr.Wrap(apperr.DependencyFailure, "Image host is unavailable, please retry the upload", err))
		return
	}

	logrus.WithFields(logrus.Fields{
		"public_id":     ref.PublicID,
		"content_type":  img.ContentType,
		"original_size": header.Size,
		"size":          len(img.Data),
		"resized":       img.Resized,
	}).Info("image uploaded")

	ok(w, http.StatusCreated, uploadResponse{
		URL:         ref.URL,
		PublicID:    ref.PublicID,
		ContentType: img.ContentType,
		Size:        int64(len(img.Data)),
		Width:       img.Width,
		Height:      img.Height,
	})
}
