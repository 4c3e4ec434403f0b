package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"google.golang.org/api/option"
)

const defaultDownloadTimeout = 2 * time.Minute

// GCS downloads attachments from Google Cloud Storage
type GCS struct {
	client        *storage.Client
	defaultBucket string
	timeout       time.Duration
}

var _ interfaces.BlobStore = &GCS{}

type GCSOption func(*GCS)

// WithDownloadTimeout bounds the lifetime of a single download
func WithDownloadTimeout(d time.Duration) GCSOption {
	return func(g *GCS) {
		g.timeout = d
	}
}

func NewGCS(ctx context.Context, defaultBucket string, clientOpts []option.ClientOption, opts ...GCSOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	g := &GCS{
		client:        client,
		defaultBucket: defaultBucket,
		timeout:       defaultDownloadTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GCS) Download(ctx context.Context, locator, container string) (io.ReadCloser, error) {
	obj, err := ParseLocator(locator, container, g.defaultBucket)
	if err != nil {
		return nil, err
	}

	// The reader outlives this call, so the timeout is released on Close
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	r, err := g.client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, goerr.Wrap(ErrObjectNotFound, "object does not exist",
				goerr.V("bucket", obj.Bucket), goerr.V("object", obj.Name))
		}
		return nil, goerr.Wrap(err, "failed to open object reader",
			goerr.V("bucket", obj.Bucket), goerr.V("object", obj.Name))
	}

	return &cancelOnClose{ReadCloser: r, cancel: cancel}, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
