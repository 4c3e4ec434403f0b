// Package storage provides BlobStore implementations for uploaded chat attachments.
package storage

import (
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ErrObjectNotFound is returned (wrapped) when the requested object does not exist
var ErrObjectNotFound = goerr.New("object not found")

// ErrInvalidLocator is returned (wrapped) when a locator cannot be mapped to an object
var ErrInvalidLocator = goerr.New("invalid locator")

const gcsPublicHost = "storage.googleapis.com"

// Object identifies one object inside a bucket
type Object struct {
	Bucket string
	Name   string
}

// ParseLocator maps an attachment locator onto a bucket and object name.
//
// Accepted forms are gs://bucket/name, https://storage.googleapis.com/bucket/name and a
// bare object name. Bare names resolve into container, or into defaultBucket when
// container is empty.
func ParseLocator(locator, container, defaultBucket string) (Object, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return Object{}, goerr.Wrap(ErrInvalidLocator, "locator is empty")
	}

	switch {
	case strings.HasPrefix(locator, "gs://"):
		bucket, name, ok := strings.Cut(strings.TrimPrefix(locator, "gs://"), "/")
		if !ok || bucket == "" || name == "" {
			return Object{}, goerr.Wrap(ErrInvalidLocator, "malformed gs locator", goerr.V("locator", locator))
		}
		return Object{Bucket: bucket, Name: name}, nil

	case strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://"):
		u, err := url.Parse(locator)
		if err != nil {
			return Object{}, goerr.Wrap(ErrInvalidLocator, "malformed URL locator",
				goerr.V("locator", locator), goerr.V("cause", err.Error()))
		}
		path := strings.TrimPrefix(u.Path, "/")
		if u.Host == gcsPublicHost {
			bucket, name, ok := strings.Cut(path, "/")
			if !ok || bucket == "" || name == "" {
				return Object{}, goerr.Wrap(ErrInvalidLocator, "malformed storage URL", goerr.V("locator", locator))
			}
			name, _ = url.PathUnescape(name)
			return Object{Bucket: bucket, Name: name}, nil
		}

		// Other hosts are treated as <host>/<container>/<name>
		bucket := pickBucket(container, defaultBucket)
		if container != "" {
			path = strings.TrimPrefix(path, container+"/")
		}
		name, _ := url.PathUnescape(path)
		if bucket == "" || name == "" {
			return Object{}, goerr.Wrap(ErrInvalidLocator, "cannot resolve URL locator", goerr.V("locator", locator))
		}
		return Object{Bucket: bucket, Name: name}, nil
	}

	bucket := pickBucket(container, defaultBucket)
	if bucket == "" {
		return Object{}, goerr.Wrap(ErrInvalidLocator, "no bucket for bare locator", goerr.V("locator", locator))
	}
	return Object{Bucket: bucket, Name: strings.TrimPrefix(locator, "/")}, nil
}

func pickBucket(container, defaultBucket string) string {
	if container != "" {
		return container
	}
	return defaultBucket
}
