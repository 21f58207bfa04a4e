// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x), A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var resp response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "body: %s", rr.Body.String())
	return rr, resp
}

func TestUploadImage(t *testing.T) {
	up := &fakeUploader{}
	h := testMux(New(&fakeService{}, up, "production"))

	rr, resp := serve(t, h, multipartRequest(t, "image", "robot arm.png", encodePNG(t, 40, 30)))
	assert.Equal(t, http.StatusCreated, rr.Code)

	got := decodeData[uploadResponse](t, resp)
	assert.Equal(t, "https://cdn.example.com/intek/robot arm.png", got.URL)
	assert.Equal(t, "intek/robot arm.png", got.PublicID)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, 40, got.Width)
	assert.Equal(t, 30, got.Height)

	assert.Equal(t, "image/png", up.gotType)
	assert.Equal(t, int64(len(up.gotBody)), up.gotSize)
	cfg, err := png.DecodeConfig(bytes.NewReader(up.gotBody))
	require.NoError(t, err, "body is rewound after sniffing")
	assert.Equal(t, 40, cfg.Width)
}

func TestUploadImage_DownscalesOversized(t *testing.T) {
	up := &fakeUploader{}
	h := testMux(New(&fakeService{}, up, "production"))

	rr, resp := serve(t, h, multipartRequest(t, "image", "banner.png", encodePNG(t, 2400, 10)))
	require.Equal(t, http.StatusCreated, rr.Code)

	got := decodeData[uploadResponse](t, resp)
	assert.Equal(t, 1920, got.Width)
	assert.Equal(t, 8, got.Height)
}

func TestUploadImage_CorruptImage(t *testing.T) {
	h := testMux(New(&fakeService{}, &fakeUploader{}, "production"))

	corrupt := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	rr, resp := serve(t, h, multipartRequest(t, "image", "broken.png", corrupt))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "The file is not a readable image", resp.Message)
}

func TestUploadImage_Rejections(t *testing.T) {
	h := testMux(New(&fakeService{}, &fakeUploader{}, "production"))

	rr, resp := serve(t, h, multipartRequest(t, "image", "notes.png", []byte("just some text")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, resp.Message, "Invalid file type")

	rr, resp = serve(t, h, multipartRequest(t, "file", "a.png", encodePNG(t, 2, 2)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "image", resp.Errors[0].Field)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr, _ = serve(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadImage_HostFailure(t *testing.T) {
	up := &fakeUploader{err: errors.New("dial tcp: i/o timeout")}
	h := testMux(New(&fakeService{}, up, "production"))

	rr, resp := serve(t, h, multipartRequest(t, "image", "a.png", encodePNG(t, 2, 2)))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, uploadRetryAfter, rr.Header().Get("Retry-After"))
	assert.Contains(t, resp.Message, "retry")
}

func TestUploadImage_NotConfigured(t *testing.T) {
	h := testMux(New(&fakeService{}, nil, "production"))

	rr, resp := serve(t, h, multipartRequest(t, "image", "a.png", encodePNG(t, 2, 2)))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.False(t, resp.Success)
}

func TestHealth(t *testing.T) {
	a := New(&fakeService{}, nil, "production")
	h := testMux(a)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "production", body.Environment)

	a.AddHealthCheck("postgres", func(context.Context) error { return nil })
	a.AddHealthCheck("valkey", func(context.Context) error { return errors.New("connection refused") })

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "valkey": "connection refused"}, body.Checks)
}
