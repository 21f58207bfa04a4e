// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage is the image host: an S3-compatible bucket that holds
// category and event images. It wraps the AWS SDK v2 and is configured for
// path-style access (required by CEPH/Hetzner).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"intekcms/internal/models"
	"intekcms/internal/slug"
)

// keyPrefix is the folder all uploaded images live under.
const keyPrefix = "intek"

// ErrUnknownImage is returned when a reference carries neither a public id
// nor a URL served from this bucket.
var ErrUnknownImage = errors.New("image is not held by this host")

// Client uploads and releases images in a single public bucket.
type Client struct {
	s3        *s3.Client
	bucket    string
	endpoint  string
	publicURL string // optional CDN/direct URL for public files
	now       func() time.Time
}

// New creates an S3 storage client with path-style addressing. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the app to
// start without an image host.
func New(endpoint, region, accessKey, secretKey, bucket, publicURL string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required when storage is configured")
	}

	endpoint = strings.TrimRight(endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:        s3Client,
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}, nil
}

// Upload stores an image under a fresh key derived from filename and
// returns the reference to persist on a category or event. The object key
// doubles as the public id.
func (c *Client) Upload(ctx context.Context, filename, contentType string, body io.Reader, size int64) (models.ImageRef, error) {
	key := c.objectKey(filename)

	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return models.ImageRef{}, fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}

	return models.ImageRef{URL: c.FileURL(key), PublicID: key}, nil
}

// Release deletes the asset behind ref. The public id wins; without one
// the key is recovered from the URL.
func (c *Client) Release(ctx context.Context, ref models.ImageRef) error {
	key := ref.PublicID
	if key == "" {
		var ok bool
		if key, ok = c.KeyFromURL(ref.URL); !ok {
			return ErrUnknownImage
		}
	}

	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// FileURL returns the public URL for an object key.
// Uses the configured public URL if set, otherwise builds a path-style URL.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// KeyFromURL extracts the object key from a public file URL. Returns
// ("", false) if the URL doesn't belong to this bucket.
func (c *Client) KeyFromURL(rawURL string) (string, bool) {
	if c.publicURL != "" {
		prefix := c.publicURL + "/"
		if strings.HasPrefix(rawURL, prefix) {
			return rawURL[len(prefix):], true
		}
	}

	prefix := c.endpoint + "/" + c.bucket + "/"
	if strings.HasPrefix(rawURL, prefix) {
		return rawURL[len(prefix):], true
	}

	return "", false
}

// objectKey builds intek/<yyyy>/<mm>/<id>-<slug><ext>.
func (c *Client) objectKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	base := slug.Generate(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	if base == "" {
		base = "image"
	}

	now := c.now().UTC()
	id := gonanoid.MustGenerate("0123456789abcdefghijklmnopqrstuvwxyz", 10)
	return fmt.Sprintf("%s/%04d/%02d/%s-%s%s", keyPrefix, now.Year(), int(now.Month()), id, base, ext)
}
